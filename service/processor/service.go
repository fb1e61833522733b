package processor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/viant/opsagent/internal/idgen"
	"github.com/viant/opsagent/internal/logging"
	"github.com/viant/opsagent/model"
	"github.com/viant/opsagent/model/execution"
	"github.com/viant/opsagent/model/state"
	"github.com/viant/opsagent/model/types"
	"github.com/viant/opsagent/policy"
	"github.com/viant/opsagent/progress"
	"github.com/viant/opsagent/service/approval"
	"github.com/viant/opsagent/service/condition"
	"github.com/viant/opsagent/service/dao"
	"github.com/viant/opsagent/service/dao/record"
	"github.com/viant/opsagent/service/dao/store"
	"github.com/viant/opsagent/service/event"
	"github.com/viant/opsagent/service/executor"
	"github.com/viant/opsagent/tracing"
)

// Context keys set when an action or subgraph node fails and control follows onError.
const (
	ContextError     = "_error"
	ContextErrorNode = "_error_node"
)

const defaultMaxDepth = 8

// Definitions resolves workflow definitions by id.
type Definitions interface {
	Lookup(id string) (*model.Workflow, bool)
}

// ActionRunner runs catalog actions.
type ActionRunner interface {
	Run(ctx context.Context, actionID string, params map[string]interface{}, options ...executor.RunOption) (*execution.Action, error)
}

// Service is the workflow engine.
type Service struct {
	definitions     Definitions
	actions         ActionRunner
	executions      dao.Service[string, execution.Workflow]
	approvals       approval.Service
	events          *event.Service
	approvalTimeout time.Duration
	maxDepth        int
	policy          *policy.Policy
	onProgress      func(progress.Snapshot)
	locks           sync.Map
	logger          *logrus.Entry
}

// Execute starts a run of definitionID seeded with input. The execution is
// stored and returned in every case; the error is set only when it ends as
// ERROR. Session and task ids are taken from the ctx lineage.
func (s *Service) Execute(ctx context.Context, definitionID string, input map[string]interface{}) (*execution.Workflow, error) {
	return s.start(ctx, definitionID, input, nil, 0)
}

func (s *Service) start(ctx context.Context, definitionID string, input map[string]interface{}, parent *execution.Workflow, depth int) (*execution.Workflow, error) {
	anExecution := execution.NewWorkflow(idgen.NewWithPrefix(idgen.WorkflowPrefix), definitionID, input)
	anExecution.SessionID = types.ExecutionValue(ctx, types.SessionIDKey)
	anExecution.TaskID = types.ExecutionValue(ctx, types.TaskIDKey)
	if parent != nil {
		anExecution.ParentID = parent.ID
		anExecution.SessionID = parent.SessionID
		anExecution.TaskID = parent.TaskID
	}
	ctx = s.track(ctx, anExecution.ID, definitionID)
	ctx, span := tracing.StartUnit(ctx, event.UnitWorkflow, definitionID, anExecution.ID, anExecution.ParentID)
	defer func() { tracing.EndSpan(span, errorOf(anExecution)) }()

	definition, ok := s.definitions.Lookup(definitionID)
	switch {
	case !ok:
		return s.finish(ctx, anExecution, types.NewNotFoundError("processor.Execute", "workflow", definitionID))
	case depth > s.maxDepth:
		return s.finish(ctx, anExecution, types.NewConfigurationError("processor.Execute", definitionID, fmt.Errorf("subgraph nesting deeper than %d", s.maxDepth)))
	}
	if issues := definition.Validate(); len(issues) > 0 {
		return s.finish(ctx, anExecution, types.NewConfigurationError("processor.Execute", definitionID, errors.Join(issues...)))
	}
	anExecution.Start()
	if err := s.executions.Save(ctx, anExecution); err != nil {
		return anExecution, err
	}
	s.logger.WithFields(logrus.Fields{"execution": anExecution.ID, "workflow": definitionID}).Debug("execution started")
	return s.run(ctx, &scope{execution: anExecution, definition: definition, context: anExecution.Context, depth: depth}, definition.Start)
}

// ResumeApproval applies a decision to a paused execution. Concurrent calls
// for one execution are serialised; the later caller sees InvalidState.
func (s *Service) ResumeApproval(ctx context.Context, executionID string, approved bool, approver string) (*execution.Workflow, error) {
	return s.resume(ctx, executionID, approved, approver, 0)
}

func (s *Service) resume(ctx context.Context, executionID string, approved bool, approver string, depth int) (*execution.Workflow, error) {
	lock := s.lock(executionID)
	lock.Lock()
	defer lock.Unlock()

	anExecution, err := s.executions.Load(ctx, executionID)
	if err != nil {
		if errors.Is(err, dao.ErrNotFound) {
			return nil, types.NewNotFoundError("processor.ResumeApproval", "execution", executionID)
		}
		return nil, err
	}
	if !anExecution.Status.IsPaused() {
		return anExecution, types.NewInvalidStateError("processor.ResumeApproval", executionID, "execution is %s, not awaiting approval", anExecution.Status)
	}
	definition, ok := s.definitions.Lookup(anExecution.WorkflowID)
	if !ok {
		return anExecution, types.NewNotFoundError("processor.ResumeApproval", "workflow", anExecution.WorkflowID)
	}
	node, ok := definition.Node(anExecution.PendingApproval)
	if !ok {
		return s.finish(ctx, anExecution, types.NewConfigurationError("processor.ResumeApproval", anExecution.PendingApproval, fmt.Errorf("paused node not found in %s", definition.ID)))
	}
	ctx = s.track(ctx, anExecution.ID, definition.ID)
	ctx, span := tracing.StartUnit(ctx, event.UnitWorkflow, definition.ID, anExecution.ID, anExecution.ParentID)
	defer func() { tracing.EndSpan(span, errorOf(anExecution)) }()
	if anExecution.Context == nil {
		anExecution.Context = map[string]interface{}{}
	}
	sc := &scope{execution: anExecution, definition: definition, context: anExecution.Context, depth: depth}
	logger := s.logger.WithFields(logrus.Fields{"execution": executionID, "node": node.Common().ID, "approved": approved, "approver": approver})

	if anExecution.ChildExecutionID != "" {
		child, err := s.resume(ctx, anExecution.ChildExecutionID, approved, approver, depth+1)
		if child == nil {
			return anExecution, err
		}
		logger.WithField("child", child.ID).Debug("child execution resumed")
		next, outcome, err := s.settleChild(ctx, sc, node, child, anExecution.LastRecord(node.Common().ID))
		return s.continueAfter(ctx, sc, next, outcome, err)
	}

	if rec := anExecution.LastRecord(node.Common().ID); rec != nil {
		rec.Resolve(approved, approver)
		progress.UpdateCtx(ctx, deltaOf(rec.Status))
		s.emitNode(ctx, anExecution, rec)
	}
	if anExecution.ApprovalRequestID != "" && s.approvals != nil {
		if _, err := s.approvals.Decide(ctx, anExecution.ApprovalRequestID, approved, approver, ""); err != nil && !errors.Is(err, approval.ErrDecided) {
			logger.WithError(err).Warn("failed to record approval decision")
		}
	}
	logger.Debug("approval resolved")
	if !approved {
		anExecution.Reject()
		return s.finish(ctx, anExecution, nil)
	}
	anExecution.ClearPause()
	anExecution.Start()
	return s.run(ctx, sc, node.Common().Next)
}

func (s *Service) continueAfter(ctx context.Context, sc *scope, next string, outcome outcome, err error) (*execution.Workflow, error) {
	anExecution := sc.execution
	switch {
	case err != nil:
		return s.finish(ctx, anExecution, err)
	case outcome == paused:
		return s.finish(ctx, anExecution, nil)
	case outcome == rejected:
		anExecution.Reject()
		return s.finish(ctx, anExecution, nil)
	}
	anExecution.ClearPause()
	anExecution.Start()
	return s.run(ctx, sc, next)
}

// run is the main loop: look up, snapshot, run, record, pick next.
func (s *Service) run(ctx context.Context, sc *scope, nodeID string) (*execution.Workflow, error) {
	anExecution := sc.execution
	for nodeID != "" {
		if err := ctx.Err(); err != nil {
			return s.finish(ctx, anExecution, &types.Error{Kind: types.KindInvalidState, Op: "processor.run", UnitID: nodeID, Err: err})
		}
		node, ok := sc.definition.Node(nodeID)
		if !ok {
			return s.finish(ctx, anExecution, types.NewConfigurationError("processor.run", nodeID, fmt.Errorf("node %s not found in %s", nodeID, sc.definition.ID)))
		}
		anExecution.CurrentNode = nodeID
		next, outcome, err := s.step(ctx, sc, node)
		if err != nil {
			return s.finish(ctx, anExecution, err)
		}
		switch outcome {
		case paused:
			return s.finish(ctx, anExecution, nil)
		case rejected:
			anExecution.Reject()
			return s.finish(ctx, anExecution, nil)
		}
		if err = s.executions.Save(ctx, anExecution); err != nil {
			return anExecution, err
		}
		nodeID = next
	}
	anExecution.CurrentNode = ""
	anExecution.Complete()
	return s.finish(ctx, anExecution, nil)
}

// finish records a terminal failure (when err is set), stores the execution
// and emits its unit event unless it is still running.
func (s *Service) finish(ctx context.Context, anExecution *execution.Workflow, err error) (*execution.Workflow, error) {
	if err != nil {
		anExecution.Fail(types.UnitOf(err), err)
		if anExecution.ErrorUnitID == "" {
			anExecution.ErrorUnitID = anExecution.ID
		}
	}
	if saveErr := s.executions.Save(context.WithoutCancel(ctx), anExecution); saveErr != nil {
		s.logger.WithError(saveErr).WithField("execution", anExecution.ID).Error("failed to store execution")
		if err == nil {
			err = saveErr
		}
	}
	logger := s.logger.WithFields(logrus.Fields{"execution": anExecution.ID, "workflow": anExecution.WorkflowID, "status": anExecution.Status})
	if err != nil {
		logger.WithError(err).Warn("execution failed")
	} else {
		logger.Debug("execution stopped")
	}
	s.events.Emit(ctx, &event.Unit{
		Type:       event.UnitWorkflow,
		ID:         anExecution.ID,
		ParentID:   parentOf(anExecution),
		Name:       anExecution.WorkflowID,
		Status:     anExecution.Status.String(),
		DurationMs: anExecution.DurationMs,
		Error:      anExecution.Error,
	})
	return anExecution, err
}

// track attaches a progress tracker to ctx unless an outer call already did.
func (s *Service) track(ctx context.Context, executionID, workflowID string) context.Context {
	if _, ok := progress.FromContext(ctx); ok {
		return ctx
	}
	logger := s.logger.WithFields(logrus.Fields{"execution": executionID, "workflow": workflowID})
	ctx, _ = progress.WithNewTracker(ctx, executionID, workflowID, func(snapshot progress.Snapshot) {
		logger.WithFields(logrus.Fields{"completed": snapshot.Completed, "failed": snapshot.Failed, "paused": snapshot.Paused}).Trace("progress")
		if s.onProgress != nil {
			s.onProgress(snapshot)
		}
	})
	return ctx
}

func (s *Service) lock(executionID string) *sync.Mutex {
	lock, _ := s.locks.LoadOrStore(executionID, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

// rootOf returns the id of the top-level execution anExecution belongs to.
func (s *Service) rootOf(ctx context.Context, anExecution *execution.Workflow) string {
	id, parentID := anExecution.ID, anExecution.ParentID
	for parentID != "" {
		parent, err := s.executions.Load(ctx, parentID)
		if err != nil {
			break
		}
		id, parentID = parent.ID, parent.ParentID
	}
	return id
}

// Execution returns a stored execution.
func (s *Service) Execution(ctx context.Context, id string) (*execution.Workflow, error) {
	ret, err := s.executions.Load(ctx, id)
	if errors.Is(err, dao.ErrNotFound) {
		return nil, types.NewNotFoundError("processor.Execution", "execution", id)
	}
	return ret, err
}

// Executions lists stored executions.
func (s *Service) Executions(ctx context.Context, parameters ...*dao.Parameter) ([]*execution.Workflow, error) {
	return s.executions.List(ctx, parameters...)
}

// New creates the engine.
func New(definitions Definitions, actions ActionRunner, options ...Option) (*Service, error) {
	if definitions == nil {
		return nil, fmt.Errorf("definitions are required")
	}
	if actions == nil {
		return nil, fmt.Errorf("action runner is required")
	}
	ret := &Service{
		definitions: definitions,
		actions:     actions,
		maxDepth:    defaultMaxDepth,
		logger:      logging.Logger("processor"),
	}
	for _, option := range options {
		option(ret)
	}
	if ret.executions == nil {
		ret.executions = store.NewMemoryStore(record.Execution)
	}
	return ret, nil
}

func errorOf(anExecution *execution.Workflow) error {
	if anExecution.Status != state.StatusError {
		return nil
	}
	return errors.New(anExecution.Error)
}

func parentOf(anExecution *execution.Workflow) string {
	if anExecution.ParentID != "" {
		return anExecution.ParentID
	}
	return anExecution.TaskID
}

// expandParams resolves string params of the form ${expr} against the
// context, descending into nested maps. An expression that resolves to nil
// leaves the literal in place; one that cannot be evaluated is an error
// naming the param.
func expandParams(params, context map[string]interface{}) (map[string]interface{}, error) {
	if len(params) == 0 {
		return nil, nil
	}
	ret := make(map[string]interface{}, len(params))
	for k, v := range params {
		expanded, err := expandValue(v, context)
		if err != nil {
			return nil, fmt.Errorf("param %s: %w", k, err)
		}
		ret[k] = expanded
	}
	return ret, nil
}

func expandValue(value interface{}, context map[string]interface{}) (interface{}, error) {
	switch actual := value.(type) {
	case string:
		if strings.HasPrefix(actual, "${") && strings.HasSuffix(actual, "}") {
			expanded, err := condition.Value(actual, context)
			if err != nil {
				return nil, err
			}
			if expanded != nil {
				return expanded, nil
			}
		}
	case map[string]interface{}:
		return expandParams(actual, context)
	}
	return value, nil
}
