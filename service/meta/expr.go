package meta

import (
	"os"
	"regexp"
)

var envExpr = regexp.MustCompile(`\$\{env\.([A-Za-z0-9_]*)\}`)

// expandEnv replaces ${env.KEY} with the value of KEY, empty when unset.
// Malformed expressions are left as is.
func expandEnv(value string) string {
	return envExpr.ReplaceAllStringFunc(value, func(match string) string {
		key := envExpr.FindStringSubmatch(match)[1]
		return os.Getenv(key)
	})
}
