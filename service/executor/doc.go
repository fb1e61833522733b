// Package executor runs catalog actions: it validates the params, calls each
// bound tool through the adapter with retry and a per-call timeout, and merges
// the tool outputs into one action result.
package executor
