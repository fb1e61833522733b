// Package approval keeps the ledger of approval requests filed by paused
// workflow executions and the decisions recorded for them. Helpers decide
// pending requests automatically or reject them once they expire.
package approval
