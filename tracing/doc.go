// Package tracing wraps OpenTelemetry so sessions, tasks, executions, nodes
// and tool calls can open spans without importing the SDK directly. Until
// Init is called spans are no-ops.
package tracing
