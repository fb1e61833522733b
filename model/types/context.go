package types

import "context"

type executionContextKey string

// ExecutionContextKey holds the unit lineage (session, task) for the running request.
var ExecutionContextKey = executionContextKey("execution-context")

// Lineage keys stored in the execution context.
const (
	SessionIDKey = "sessionId"
	TaskIDKey    = "taskId"
)

// EnsureExecutionContext returns a context carrying a copy of the lineage values
// extended with the supplied key/value pairs.
func EnsureExecutionContext(ctx context.Context, pairs ...string) context.Context {
	values := map[string]string{}
	if prev, ok := ctx.Value(ExecutionContextKey).(map[string]string); ok {
		for k, v := range prev {
			values[k] = v
		}
	}
	for i := 0; i+1 < len(pairs); i += 2 {
		values[pairs[i]] = pairs[i+1]
	}
	return context.WithValue(ctx, ExecutionContextKey, values)
}

// ExecutionValue returns a lineage value from ctx.
func ExecutionValue(ctx context.Context, key string) string {
	if values, ok := ctx.Value(ExecutionContextKey).(map[string]string); ok {
		return values[key]
	}
	return ""
}

// ExecutionValues returns a copy of all lineage values from ctx.
func ExecutionValues(ctx context.Context) map[string]string {
	values, _ := ctx.Value(ExecutionContextKey).(map[string]string)
	ret := make(map[string]string, len(values))
	for k, v := range values {
		ret[k] = v
	}
	return ret
}
