// Package logging configures the logrus logger shared by all components.
package logging

import (
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Setup configures the standard logger level and formatter. An unknown level
// falls back to info; format is either "text" (default) or "json".
func Setup(level, format string) {
	lvl, err := log.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)
	log.SetOutput(os.Stderr)
	switch strings.ToLower(format) {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	default:
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

// Logger returns an entry tagged with the module name.
func Logger(module string) *log.Entry {
	return log.WithField("module", module)
}
