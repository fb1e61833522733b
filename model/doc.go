// Package model holds the catalog (agents, actions, workflows), the units a
// request produces (sessions, tasks) and the value helpers they share.
// Workflow nodes live in graph, run records in execution.
package model
