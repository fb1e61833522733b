// Package dispatcher runs agent tasks: it plans the workflows a capability
// agent should run for an instruction and drives them through the engine one
// at a time, pausing with the engine at approval gates.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/viant/opsagent/internal/clock"
	"github.com/viant/opsagent/internal/idgen"
	"github.com/viant/opsagent/internal/logging"
	"github.com/viant/opsagent/model"
	"github.com/viant/opsagent/model/execution"
	"github.com/viant/opsagent/model/state"
	"github.com/viant/opsagent/model/types"
	"github.com/viant/opsagent/service/dao"
	"github.com/viant/opsagent/service/dao/record"
	"github.com/viant/opsagent/service/dao/store"
	"github.com/viant/opsagent/service/event"
	"github.com/viant/opsagent/tracing"
)

// Agents resolves capability agents by id.
type Agents interface {
	Agent(id string) (*model.Agent, bool)
}

// Engine runs and resumes workflow executions.
type Engine interface {
	Execute(ctx context.Context, definitionID string, input map[string]interface{}) (*execution.Workflow, error)
	ResumeApproval(ctx context.Context, executionID string, approved bool, approver string) (*execution.Workflow, error)
}

// Service dispatches agent tasks.
type Service struct {
	agents Agents
	engine Engine
	tasks  dao.Service[string, model.Task]
	events *event.Service
	locks  sync.Map
	logger *logrus.Entry
}

// PlanWorkflows returns the workflows agent would run for instruction: the
// union, in first-seen order, of the workflows of every matching capability.
func PlanWorkflows(agent *model.Agent, instruction string) []string {
	var ret []string
	seen := map[string]bool{}
	for _, capability := range agent.Capabilities {
		if !capability.Matches(instruction) {
			continue
		}
		for _, id := range capability.Workflows {
			if seen[id] {
				continue
			}
			seen[id] = true
			ret = append(ret, id)
		}
	}
	return ret
}

// PlanWorkflows plans instruction for the agent agentID.
func (s *Service) PlanWorkflows(agentID, instruction string) ([]string, error) {
	agent, ok := s.agents.Agent(agentID)
	if !ok {
		return nil, types.NewNotFoundError("dispatcher.PlanWorkflows", "agent", agentID)
	}
	return PlanWorkflows(agent, instruction), nil
}

// CreateTask stores a pending task with its workflow plan. The session id is
// taken from the ctx lineage.
func (s *Service) CreateTask(ctx context.Context, agentID, instruction string, taskContext map[string]interface{}) (*model.Task, error) {
	workflows, err := s.PlanWorkflows(agentID, instruction)
	if err != nil {
		return nil, err
	}
	now := clock.Now()
	task := &model.Task{
		ID:          idgen.NewWithPrefix(idgen.TaskPrefix),
		SessionID:   types.ExecutionValue(ctx, types.SessionIDKey),
		AgentID:     agentID,
		Instruction: instruction,
		Context:     model.Merge(nil, taskContext),
		Workflows:   workflows,
		Status:      state.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err = s.tasks.Save(ctx, task); err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{"task": task.ID, "agent": agentID, "workflows": workflows}).Debug("task created")
	return task, nil
}

// RunTask runs a pending task's workflows in plan order. The task is
// returned in every case; the error is set only when it ends as ERROR.
func (s *Service) RunTask(ctx context.Context, taskID string) (*model.Task, error) {
	lock := s.lock(taskID)
	lock.Lock()
	defer lock.Unlock()

	task, err := s.load(ctx, "dispatcher.RunTask", taskID)
	if err != nil {
		return nil, err
	}
	if task.Status != state.StatusPending {
		return task, types.NewInvalidStateError("dispatcher.RunTask", taskID, "task is %s, not pending", task.Status)
	}
	ctx, span := s.startSpan(ctx, task)
	defer func() { tracing.EndSpan(span, errorOf(task)) }()
	task.Start()
	if err = s.tasks.Save(ctx, task); err != nil {
		return task, err
	}
	return s.advance(ctx, task)
}

// ResumeTask applies an approval decision to the paused workflow of a task
// and continues its plan when the workflow completes.
func (s *Service) ResumeTask(ctx context.Context, taskID string, approved bool, approver string) (*model.Task, error) {
	lock := s.lock(taskID)
	lock.Lock()
	defer lock.Unlock()

	task, err := s.load(ctx, "dispatcher.ResumeTask", taskID)
	if err != nil {
		return nil, err
	}
	if !task.Status.IsPaused() {
		return task, types.NewInvalidStateError("dispatcher.ResumeTask", taskID, "task is %s, not awaiting approval", task.Status)
	}
	ctx, span := s.startSpan(ctx, task)
	defer func() { tracing.EndSpan(span, errorOf(task)) }()

	anExecution, err := s.engine.ResumeApproval(s.lineage(ctx, task), task.CurrentExecution(), approved, approver)
	if anExecution == nil {
		return task, err
	}
	logger := s.logger.WithFields(logrus.Fields{"task": taskID, "execution": anExecution.ID, "approved": approved, "approver": approver})
	if types.KindOf(err) == types.KindInvalidState {
		if !anExecution.Status.IsTerminal() {
			return task, err
		}
		// the workflow was resolved directly through the engine; the task catches up with its outcome
		logger.WithField("status", anExecution.Status).Debug("task workflow already resolved")
		err = nil
	} else {
		logger.Debug("task workflow resumed")
	}
	if stop, err := s.settle(ctx, task, anExecution, err); stop {
		return task, err
	}
	task.Start()
	return s.advance(ctx, task)
}

// advance runs planned workflows from the cursor until the plan is done or a
// workflow stops the task.
func (s *Service) advance(ctx context.Context, task *model.Task) (*model.Task, error) {
	for task.Cursor < len(task.Workflows) {
		if err := ctx.Err(); err != nil {
			return s.finish(ctx, task, &types.Error{Kind: types.KindInvalidState, Op: "dispatcher.RunTask", UnitID: task.ID, Err: err})
		}
		definitionID := task.Workflows[task.Cursor]
		anExecution, err := s.engine.Execute(s.lineage(ctx, task), definitionID, model.CloneMap(task.Context))
		if anExecution == nil {
			if err == nil {
				err = fmt.Errorf("workflow %s returned no execution", definitionID)
			}
			return s.finish(ctx, task, err)
		}
		task.Executions = append(task.Executions, anExecution.ID)
		if stop, err := s.settle(ctx, task, anExecution, err); stop {
			return task, err
		}
	}
	task.Complete()
	return s.finish(ctx, task, nil)
}

// settle maps the state a workflow execution reached onto its task. It
// reports whether the task stopped advancing.
func (s *Service) settle(ctx context.Context, task *model.Task, anExecution *execution.Workflow, err error) (bool, error) {
	switch anExecution.Status {
	case state.StatusSuccess:
		task.Context = model.Merge(task.Context, anExecution.Output())
		task.Cursor++
		task.UpdatedAt = clock.Now()
		if err := s.tasks.Save(ctx, task); err != nil {
			return true, err
		}
		return false, nil
	case state.StatusAwaitingApproval:
		task.Pause()
		_, err = s.finish(ctx, task, nil)
		return true, err
	case state.StatusRejected:
		task.Reject()
		_, err = s.finish(ctx, task, nil)
		return true, err
	}
	if err == nil {
		err = fmt.Errorf("%s", anExecution.Error)
	}
	kind := types.KindOf(err)
	if kind == "" {
		kind = types.KindAdapterFailure
	}
	unitID := anExecution.ErrorUnitID
	if unitID == "" {
		unitID = anExecution.ID
	}
	_, err = s.finish(ctx, task, &types.Error{Kind: kind, Op: "dispatcher.RunTask", UnitID: unitID, Err: err})
	return true, err
}

// finish records a failure (when err is set), stores the task and emits its
// unit event.
func (s *Service) finish(ctx context.Context, task *model.Task, err error) (*model.Task, error) {
	if err != nil && task.Status != state.StatusError {
		unitID := types.UnitOf(err)
		if unitID == "" {
			unitID = task.ID
		}
		task.Fail(unitID, err.Error())
	}
	if saveErr := s.tasks.Save(context.WithoutCancel(ctx), task); saveErr != nil {
		s.logger.WithError(saveErr).WithField("task", task.ID).Error("failed to store task")
		if err == nil {
			err = saveErr
		}
	}
	logger := s.logger.WithFields(logrus.Fields{"task": task.ID, "agent": task.AgentID, "status": task.Status})
	if err != nil {
		logger.WithError(err).Warn("task failed")
	} else {
		logger.Debug("task stopped")
	}
	s.events.Emit(ctx, &event.Unit{
		Type:       event.UnitTask,
		ID:         task.ID,
		ParentID:   task.SessionID,
		Name:       task.AgentID,
		Status:     task.Status.String(),
		DurationMs: task.DurationMs,
		Error:      task.Error,
	})
	return task, err
}

func (s *Service) startSpan(ctx context.Context, task *model.Task) (context.Context, *tracing.Span) {
	return tracing.StartUnit(ctx, event.UnitTask, task.AgentID, task.ID, task.SessionID)
}

func (s *Service) lineage(ctx context.Context, task *model.Task) context.Context {
	pairs := []string{types.TaskIDKey, task.ID}
	if task.SessionID != "" {
		pairs = append(pairs, types.SessionIDKey, task.SessionID)
	}
	return types.EnsureExecutionContext(ctx, pairs...)
}

func (s *Service) load(ctx context.Context, op, taskID string) (*model.Task, error) {
	task, err := s.tasks.Load(ctx, taskID)
	if errors.Is(err, dao.ErrNotFound) {
		return nil, types.NewNotFoundError(op, "task", taskID)
	}
	return task, err
}

func (s *Service) lock(taskID string) *sync.Mutex {
	lock, _ := s.locks.LoadOrStore(taskID, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

// Task returns a stored task.
func (s *Service) Task(ctx context.Context, id string) (*model.Task, error) {
	return s.load(ctx, "dispatcher.Task", id)
}

// Tasks lists stored tasks.
func (s *Service) Tasks(ctx context.Context, parameters ...*dao.Parameter) ([]*model.Task, error) {
	return s.tasks.List(ctx, parameters...)
}

// New creates a dispatcher.
func New(agents Agents, engine Engine, options ...Option) (*Service, error) {
	if agents == nil {
		return nil, fmt.Errorf("agents are required")
	}
	if engine == nil {
		return nil, fmt.Errorf("engine is required")
	}
	ret := &Service{agents: agents, engine: engine, logger: logging.Logger("dispatcher")}
	for _, option := range options {
		option(ret)
	}
	if ret.tasks == nil {
		ret.tasks = store.NewMemoryStore(record.Task)
	}
	return ret, nil
}

func errorOf(task *model.Task) error {
	if task.Status != state.StatusError {
		return nil
	}
	return errors.New(task.Error)
}
