// Package local calls the simulated backend systems in process.
package local

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/viant/opsagent/extension"
	"github.com/viant/opsagent/internal/clock"
	"github.com/viant/opsagent/service/adapter"
	"github.com/viant/structology/conv"
)

// Adapter dispatches tool ids to registered action services.
type Adapter struct {
	actions   *extension.Actions
	converter *conv.Converter
	latency   time.Duration
	mux       sync.Mutex
	failures  map[string]int
}

var _ adapter.Adapter = (*Adapter)(nil)

// Call decodes params into the method's typed input, runs it and returns the output as a map.
func (a *Adapter) Call(ctx context.Context, toolID string, params map[string]interface{}) (*adapter.Result, error) {
	started := clock.Now()
	service, methodName, ok := a.actions.Resolve(toolID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", adapter.ErrUnknownTool, toolID)
	}
	signature := service.Methods().Lookup(methodName)
	method, err := service.Method(methodName)
	if signature == nil || err != nil {
		return nil, fmt.Errorf("%w: %s", adapter.ErrUnknownTool, toolID)
	}
	if err = a.wait(ctx); err != nil {
		return nil, err
	}
	if a.injectFailure(toolID) {
		return &adapter.Result{Error: "simulated failure of " + toolID, DurationMs: clock.ElapsedMs(started)}, nil
	}

	input := newInstance(signature.Input)
	if len(params) > 0 {
		if err = a.converter.Convert(params, input); err != nil {
			return &adapter.Result{Error: fmt.Sprintf("invalid input for %s: %v", toolID, err), DurationMs: clock.ElapsedMs(started)}, nil
		}
	}
	output := newInstance(signature.Output)
	if err = method(ctx, input, output); err != nil {
		return &adapter.Result{Error: err.Error(), DurationMs: clock.ElapsedMs(started)}, nil
	}
	values, err := asMap(output)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s output: %w", toolID, err)
	}
	return &adapter.Result{Success: true, Output: values, DurationMs: clock.ElapsedMs(started)}, nil
}

func (a *Adapter) wait(ctx context.Context) error {
	if a.latency <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(a.latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (a *Adapter) injectFailure(toolID string) bool {
	a.mux.Lock()
	defer a.mux.Unlock()
	remaining := a.failures[toolID]
	if remaining == 0 {
		return false
	}
	if remaining > 0 {
		a.failures[toolID] = remaining - 1
	}
	return true
}

func newInstance(t reflect.Type) interface{} {
	if t.Kind() == reflect.Ptr {
		return reflect.New(t.Elem()).Interface()
	}
	return reflect.New(t).Interface()
}

func asMap(output interface{}) (map[string]interface{}, error) {
	data, err := json.Marshal(output)
	if err != nil {
		return nil, err
	}
	ret := map[string]interface{}{}
	if err = json.Unmarshal(data, &ret); err != nil {
		return nil, err
	}
	return ret, nil
}

// New creates a local adapter over actions.
func New(actions *extension.Actions, opts ...Option) *Adapter {
	options := conv.DefaultOptions()
	options.ClonePointerData = true
	options.IgnoreUnmapped = true
	options.AccessUnexported = true
	ret := &Adapter{
		actions:   actions,
		converter: conv.NewConverter(options),
		failures:  map[string]int{},
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}
