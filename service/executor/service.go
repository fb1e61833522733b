package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/sirupsen/logrus"
	"github.com/viant/opsagent/internal/clock"
	"github.com/viant/opsagent/internal/idgen"
	"github.com/viant/opsagent/internal/logging"
	"github.com/viant/opsagent/model"
	"github.com/viant/opsagent/model/execution"
	"github.com/viant/opsagent/model/graph"
	"github.com/viant/opsagent/model/types"
	"github.com/viant/opsagent/service/adapter"
	"github.com/viant/opsagent/service/dao"
	"github.com/viant/opsagent/service/dao/record"
	"github.com/viant/opsagent/service/dao/store"
	"github.com/viant/opsagent/service/event"
	"github.com/viant/opsagent/tracing"
	"github.com/xeipuuv/gojsonschema"
)

const (
	// OutputActionID is set on every action output.
	OutputActionID = "_action_id"
	// OutputToolsCalled lists the tools called, in order.
	OutputToolsCalled = "_tools_called"

	defaultTimeout = 30 * time.Second
)

// Catalog resolves action definitions.
type Catalog interface {
	Action(id string) (*model.Action, bool)
}

// Service is the atomic action executor.
type Service struct {
	catalog Catalog
	adapter adapter.Adapter
	actions dao.Service[string, execution.Action]
	events  *event.Service
	timeout time.Duration
	logger  *logrus.Entry
}

// Run executes actionID with params. Unknown actions return a NotFound error
// before the adapter is called. Every other outcome is stored and returned as
// an action record; a failed run also returns its error.
func (s *Service) Run(ctx context.Context, actionID string, params map[string]interface{}, options ...RunOption) (*execution.Action, error) {
	definition, ok := s.catalog.Action(actionID)
	if !ok {
		return nil, types.NewNotFoundError("executor.Run", "action", actionID)
	}
	opts := &run{retry: definition.Retry, timeout: s.timeout}
	if timeout, err := parseTimeout(definition.Timeout); err == nil && timeout > 0 {
		opts.timeout = timeout
	}
	for _, option := range options {
		option(opts)
	}

	anAction := execution.NewAction(idgen.NewWithPrefix(idgen.ActionPrefix), actionID, params)
	anAction.ExecutionID = opts.executionID
	anAction.NodeID = opts.nodeID
	ctx, span := tracing.StartUnit(ctx, event.UnitAction, actionID, anAction.ID, opts.executionID)
	logger := s.logger.WithFields(logrus.Fields{"action": actionID, "id": anAction.ID, "node": opts.nodeID})

	err := s.validate(anAction.ID, definition, params)
	if err == nil {
		err = s.callTools(ctx, anAction, definition, opts, logger)
	}
	anAction.Finish(err)
	if err != nil {
		logger.WithError(err).Warn("action failed")
	} else {
		logger.WithField("durationMs", anAction.DurationMs).Debug("action completed")
	}
	if saveErr := s.actions.Save(ctx, anAction); saveErr != nil {
		logger.WithError(saveErr).Error("failed to store action execution")
	}
	s.emit(ctx, anAction)
	tracing.EndSpan(span, err)
	return anAction, err
}

func (s *Service) validate(unitID string, definition *model.Action, params map[string]interface{}) error {
	if len(definition.InputSchema) == 0 {
		return nil
	}
	if params == nil {
		params = map[string]interface{}{}
	}
	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(definition.InputSchema), gojsonschema.NewGoLoader(params))
	if err != nil {
		return types.NewConfigurationError("executor.validate", unitID, fmt.Errorf("action %s schema: %w", definition.ID, err))
	}
	if result.Valid() {
		return nil
	}
	var messages []string
	for _, item := range result.Errors() {
		messages = append(messages, item.String())
	}
	return types.NewConfigurationError("executor.validate", unitID, fmt.Errorf("invalid params for action %s: %s", definition.ID, strings.Join(messages, "; ")))
}

// callTools calls every tool in declaration order. Each tool sees the params
// overlaid with the outputs of the tools before it; outputs merge last write wins.
func (s *Service) callTools(ctx context.Context, anAction *execution.Action, definition *model.Action, opts *run, logger *logrus.Entry) error {
	output := map[string]interface{}{}
	var called []string
	for _, toolID := range definition.Tools {
		input := model.Merge(model.CloneMap(anAction.Params), output)
		call := s.call(ctx, anAction.ID, toolID, input, opts, logger)
		anAction.Calls = append(anAction.Calls, call)
		anAction.Attempts += call.Attempts
		if !call.Success {
			return types.NewAdapterError("executor.Run", anAction.ID, fmt.Errorf("tool %s: %s", toolID, call.Error))
		}
		model.Merge(output, call.Output)
		called = append(called, toolID)
	}
	output[OutputActionID] = definition.ID
	output[OutputToolsCalled] = called
	anAction.Output = output
	return nil
}

func (s *Service) call(ctx context.Context, actionExecutionID, toolID string, input map[string]interface{}, opts *run, logger *logrus.Entry) *execution.ToolCall {
	started := clock.Now()
	call := &execution.ToolCall{ToolID: toolID}
	ctx, span := tracing.StartUnit(ctx, "tool", toolID, toolID, actionExecutionID)
	var last *adapter.Result
	operation := func() (*adapter.Result, error) {
		call.Attempts++
		callCtx, cancel := context.WithTimeout(ctx, opts.timeout)
		defer cancel()
		result, err := s.adapter.Call(callCtx, toolID, input)
		if err != nil {
			if errors.Is(err, adapter.ErrUnknownTool) {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		last = result
		if !result.Success {
			return result, fmt.Errorf("%s", result.Error)
		}
		return result, nil
	}
	notify := func(err error, next time.Duration) {
		logger.WithError(err).WithFields(logrus.Fields{"tool": toolID, "attempt": call.Attempts, "retryIn": next}).Debug("retrying tool call")
	}
	result, err := backoff.Retry(ctx, operation, retryOptions(opts.retry, notify)...)
	if result == nil {
		result = last
	}
	call.DurationMs = clock.ElapsedMs(started)
	if err != nil {
		call.Error = err.Error()
		if result != nil && result.Error != "" {
			call.Error = result.Error
		}
	} else {
		call.Success = true
		call.Output = model.CloneMap(result.Output)
	}
	tracing.EndSpan(span, err)
	return call
}

func retryOptions(retry *graph.Retry, notify backoff.Notify) []backoff.RetryOption {
	if !retry.Enabled() {
		return []backoff.RetryOption{backoff.WithMaxTries(1)}
	}
	var strategy backoff.BackOff = backoff.NewConstantBackOff(retry.DelayDuration())
	if retry.IsExponential() {
		exponential := backoff.NewExponentialBackOff()
		exponential.InitialInterval = retry.DelayDuration()
		exponential.RandomizationFactor = 0
		if retry.Multiplier > 1 {
			exponential.Multiplier = retry.Multiplier
		}
		if maxDelay := retry.MaxDelayDuration(); maxDelay > 0 {
			exponential.MaxInterval = maxDelay
		}
		strategy = exponential
	}
	return []backoff.RetryOption{
		backoff.WithBackOff(strategy),
		backoff.WithMaxTries(uint(retry.MaxRetries + 1)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(notify),
	}
}

func (s *Service) emit(ctx context.Context, anAction *execution.Action) {
	status := "success"
	if !anAction.Success {
		status = "error"
	}
	s.events.Emit(ctx, &event.Unit{
		Type:       event.UnitAction,
		ID:         anAction.ID,
		ParentID:   anAction.ExecutionID,
		Name:       anAction.ActionID,
		Status:     status,
		DurationMs: anAction.DurationMs,
		Error:      anAction.Error,
		Output:     anAction.Output,
	})
}

// Action returns a stored action execution.
func (s *Service) Action(ctx context.Context, id string) (*execution.Action, error) {
	ret, err := s.actions.Load(ctx, id)
	if errors.Is(err, dao.ErrNotFound) {
		return nil, types.NewNotFoundError("executor.Action", "action execution", id)
	}
	return ret, err
}

// Actions lists stored action executions.
func (s *Service) Actions(ctx context.Context, parameters ...*dao.Parameter) ([]*execution.Action, error) {
	return s.actions.List(ctx, parameters...)
}

func parseTimeout(value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	return time.ParseDuration(value)
}

// New creates an executor over catalog and adapter.
func New(catalog Catalog, anAdapter adapter.Adapter, options ...Option) *Service {
	ret := &Service{
		catalog: catalog,
		adapter: anAdapter,
		timeout: defaultTimeout,
		logger:  logging.Logger("executor"),
	}
	for _, option := range options {
		option(ret)
	}
	if ret.actions == nil {
		ret.actions = store.NewMemoryStore(record.Action)
	}
	return ret
}
