// Package catalog embeds the default action, workflow, agent and intent definitions.
package catalog

import "embed"

// FS holds the default definitions.
//
//go:embed default
var FS embed.FS

// URL is the afs location of the embedded definitions; pass &FS as an afs option.
const URL = "embed:///default"
