// Package planner is the entry point for free-form requests: it classifies
// the text, plans one task per capability agent, runs the tasks and keeps the
// session state, including the approvals it waits on.
package planner

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/viant/opsagent/internal/clock"
	"github.com/viant/opsagent/internal/idgen"
	"github.com/viant/opsagent/internal/logging"
	"github.com/viant/opsagent/model"
	"github.com/viant/opsagent/model/execution"
	"github.com/viant/opsagent/model/state"
	"github.com/viant/opsagent/model/types"
	"github.com/viant/opsagent/service/classifier"
	"github.com/viant/opsagent/service/dao"
	"github.com/viant/opsagent/service/dao/record"
	"github.com/viant/opsagent/service/dao/store"
	"github.com/viant/opsagent/service/event"
	"github.com/viant/opsagent/tracing"
)

// Catalog provides the read-only definitions used for planning and impact estimation.
type Catalog interface {
	Agent(id string) (*model.Agent, bool)
	Action(id string) (*model.Action, bool)
	Lookup(id string) (*model.Workflow, bool)
	Regions() map[string]int
}

// Dispatcher creates and drives agent tasks.
type Dispatcher interface {
	PlanWorkflows(agentID, instruction string) ([]string, error)
	CreateTask(ctx context.Context, agentID, instruction string, taskContext map[string]interface{}) (*model.Task, error)
	RunTask(ctx context.Context, taskID string) (*model.Task, error)
	ResumeTask(ctx context.Context, taskID string, approved bool, approver string) (*model.Task, error)
	Task(ctx context.Context, taskID string) (*model.Task, error)
}

// Executions reads workflow executions.
type Executions interface {
	Execution(ctx context.Context, id string) (*execution.Workflow, error)
}

// Service processes sessions.
type Service struct {
	classifier classifier.Classifier
	catalog    Catalog
	dispatcher Dispatcher
	executions Executions
	sessions   dao.Service[string, model.Session]
	events     *event.Service
	locks      sync.Map
	logger     *logrus.Entry
}

// Process classifies text, plans and runs one task per agent. The session
// is returned in every case; the error is set only when it ends as ERROR.
func (s *Service) Process(ctx context.Context, text string) (*model.Session, error) {
	now := clock.Now()
	session := &model.Session{
		ID:        idgen.NewWithPrefix(idgen.SessionPrefix),
		Text:      text,
		Status:    state.StatusRunning,
		Context:   map[string]interface{}{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	ctx, span := tracing.StartUnit(ctx, event.UnitSession, "process", session.ID, "")
	defer func() { tracing.EndSpan(span, errorOf(session)) }()
	ctx = types.EnsureExecutionContext(ctx, types.SessionIDKey, session.ID)

	lock := s.lock(session.ID)
	lock.Lock()
	defer lock.Unlock()

	planned, err := s.plan(ctx, text)
	if err != nil {
		return s.finish(ctx, session, nil, err)
	}
	session.Intent = planned.intent
	session.Plan = planned.plan
	session.Context = model.Merge(session.Context, planned.intent.Entities)
	if err = s.sessions.Save(ctx, session); err != nil {
		return session, err
	}
	s.logger.WithFields(logrus.Fields{"session": session.ID, "intent": planned.intent.Type, "agents": planned.plan.Agents()}).Debug("session planned")

	var tasks []*model.Task
	for _, step := range planned.plan.Steps {
		task, err := s.dispatcher.CreateTask(ctx, step.AgentID, step.Instruction, planned.intent.Entities)
		if err != nil {
			return s.finish(ctx, session, tasks, err)
		}
		tasks = append(tasks, task)
		session.Tasks = append(session.Tasks, task.ID)
	}
	var pending []string
	for i, task := range tasks {
		ran, err := s.dispatcher.RunTask(ctx, task.ID)
		if ran != nil {
			tasks[i] = ran
		}
		if err != nil {
			return s.finish(ctx, session, tasks, taskError(task.ID, ran, err))
		}
		switch ran.Status {
		case state.StatusAwaitingApproval:
			pending = append(pending, ran.ID)
		case state.StatusSuccess:
			session.Context = model.Merge(session.Context, ran.Context)
		case state.StatusRejected:
			session.Reject()
			return s.finish(ctx, session, tasks, nil)
		}
	}
	return s.settle(ctx, session, tasks, pending)
}

// ApproveSession resumes every task the session waits on with one decision.
// A rejection rejects the session; it succeeds once every task is terminal.
func (s *Service) ApproveSession(ctx context.Context, sessionID string, approved bool, approver string) (*model.Session, error) {
	return s.resolve(ctx, "planner.ApproveSession", sessionID, "", approved, approver)
}

// ResumeTask applies a decision to one task the session waits on and settles
// the session: other paused tasks keep it awaiting approval.
func (s *Service) ResumeTask(ctx context.Context, sessionID, taskID string, approved bool, approver string) (*model.Session, error) {
	return s.resolve(ctx, "planner.ResumeTask", sessionID, taskID, approved, approver)
}

// resolve resumes the pending tasks of a session, or only taskID when set.
// Every selected task is resolved even when an earlier one fails.
func (s *Service) resolve(ctx context.Context, op, sessionID, taskID string, approved bool, approver string) (*model.Session, error) {
	lock := s.lock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	session, err := s.sessions.Load(ctx, sessionID)
	if err != nil {
		if errors.Is(err, dao.ErrNotFound) {
			return nil, types.NewNotFoundError(op, "session", sessionID)
		}
		return nil, err
	}
	if !session.Status.IsPaused() {
		return session, types.NewInvalidStateError(op, sessionID, "session is %s, not awaiting approval", session.Status)
	}
	selected := session.PendingApprovals
	if taskID != "" {
		if !slices.Contains(session.PendingApprovals, taskID) {
			return session, types.NewInvalidStateError(op, taskID, "task is not awaiting approval in session %s", sessionID)
		}
		selected = []string{taskID}
	}
	ctx, span := tracing.StartUnit(ctx, event.UnitSession, "approve", session.ID, "")
	defer func() { tracing.EndSpan(span, errorOf(session)) }()
	ctx = types.EnsureExecutionContext(ctx, types.SessionIDKey, session.ID)
	session.Approver = approver
	if session.Context == nil {
		session.Context = map[string]interface{}{}
	}
	s.logger.WithFields(logrus.Fields{"session": sessionID, "approved": approved, "approver": approver, "tasks": selected}).Debug("resolving session approvals")

	var failure error
	rejected := false
	for _, pendingID := range selected {
		task, err := s.dispatcher.ResumeTask(ctx, pendingID, approved, approver)
		if task == nil {
			if failure == nil {
				failure = taskError(pendingID, nil, err)
			}
			continue
		}
		if err != nil && types.KindOf(err) != types.KindInvalidState {
			if failure == nil {
				failure = taskError(pendingID, task, err)
			}
			continue
		}
		switch task.Status {
		case state.StatusRejected:
			rejected = true
		case state.StatusSuccess:
			session.Context = model.Merge(session.Context, task.Context)
		}
	}

	tasks, err := s.tasks(ctx, session)
	if err != nil && failure == nil {
		failure = err
	}
	switch {
	case rejected:
		session.Reject()
		return s.finish(ctx, session, tasks, nil)
	case failure != nil:
		return s.finish(ctx, session, tasks, failure)
	}
	var pending []string
	for _, task := range tasks {
		switch task.Status {
		case state.StatusAwaitingApproval:
			pending = append(pending, task.ID)
		case state.StatusRejected:
			session.Reject()
			return s.finish(ctx, session, tasks, nil)
		case state.StatusError:
			return s.finish(ctx, session, tasks, taskError(task.ID, task, nil))
		}
	}
	return s.settle(ctx, session, tasks, pending)
}

// settle pauses the session on pending tasks, or completes it once every task is terminal.
func (s *Service) settle(ctx context.Context, session *model.Session, tasks []*model.Task, pending []string) (*model.Session, error) {
	if len(pending) > 0 {
		session.Pause(pending)
		return s.finish(ctx, session, tasks, nil)
	}
	for _, task := range tasks {
		if !task.Status.IsTerminal() {
			return s.finish(ctx, session, tasks, types.NewInvalidStateError("planner.settle", task.ID, "task is %s", task.Status))
		}
	}
	session.Complete()
	return s.finish(ctx, session, tasks, nil)
}

// finish records a failure (when err is set), generates summaries for a
// successful session, stores it and emits its unit event.
func (s *Service) finish(ctx context.Context, session *model.Session, tasks []*model.Task, err error) (*model.Session, error) {
	if err != nil && session.Status != state.StatusError {
		unitID := types.UnitOf(err)
		if unitID == "" {
			unitID = session.ID
		}
		session.Fail(unitID, err.Error())
	}
	if session.Status == state.StatusSuccess {
		session.Summary = Summary(session, tasks, s.nodeCounts(ctx, tasks))
		session.Brief = Brief(session, tasks)
	}
	if saveErr := s.sessions.Save(context.WithoutCancel(ctx), session); saveErr != nil {
		s.logger.WithError(saveErr).WithField("session", session.ID).Error("failed to store session")
		if err == nil {
			err = saveErr
		}
	}
	logger := s.logger.WithFields(logrus.Fields{"session": session.ID, "status": session.Status})
	if err != nil {
		logger.WithError(err).Warn("session failed")
	} else {
		logger.Debug("session stopped")
	}
	unit := &event.Unit{
		Type:       event.UnitSession,
		ID:         session.ID,
		Name:       intentType(session),
		Status:     session.Status.String(),
		DurationMs: session.DurationMs,
		Error:      session.Error,
	}
	if session.Status == state.StatusSuccess {
		unit.Output = map[string]interface{}{"brief": session.Brief}
	}
	s.events.Emit(ctx, unit)
	return session, err
}

func (s *Service) tasks(ctx context.Context, session *model.Session) ([]*model.Task, error) {
	var ret []*model.Task
	for _, taskID := range session.Tasks {
		task, err := s.dispatcher.Task(ctx, taskID)
		if err != nil {
			return ret, err
		}
		ret = append(ret, task)
	}
	return ret, nil
}

func (s *Service) nodeCounts(ctx context.Context, tasks []*model.Task) map[string]int {
	ret := map[string]int{}
	if s.executions == nil {
		return ret
	}
	for _, task := range tasks {
		for _, id := range task.Executions {
			if anExecution, err := s.executions.Execution(ctx, id); err == nil {
				ret[id] = len(anExecution.Nodes)
			}
		}
	}
	return ret
}

func (s *Service) lock(sessionID string) *sync.Mutex {
	lock, _ := s.locks.LoadOrStore(sessionID, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

// Session returns a stored session.
func (s *Service) Session(ctx context.Context, id string) (*model.Session, error) {
	ret, err := s.sessions.Load(ctx, id)
	if errors.Is(err, dao.ErrNotFound) {
		return nil, types.NewNotFoundError("planner.Session", "session", id)
	}
	return ret, err
}

// Sessions lists stored sessions.
func (s *Service) Sessions(ctx context.Context, parameters ...*dao.Parameter) ([]*model.Session, error) {
	return s.sessions.List(ctx, parameters...)
}

// New creates a planner.
func New(aClassifier classifier.Classifier, catalog Catalog, dispatcher Dispatcher, options ...Option) (*Service, error) {
	switch {
	case aClassifier == nil:
		return nil, fmt.Errorf("classifier is required")
	case catalog == nil:
		return nil, fmt.Errorf("catalog is required")
	case dispatcher == nil:
		return nil, fmt.Errorf("dispatcher is required")
	}
	ret := &Service{classifier: aClassifier, catalog: catalog, dispatcher: dispatcher, logger: logging.Logger("planner")}
	for _, option := range options {
		option(ret)
	}
	if ret.sessions == nil {
		ret.sessions = store.NewMemoryStore(record.Session)
	}
	return ret, nil
}

// taskError attributes a task failure to the task.
func taskError(taskID string, task *model.Task, err error) error {
	message := ""
	if task != nil {
		message = task.Error
	}
	if message == "" && err != nil {
		message = err.Error()
	}
	kind := types.KindOf(err)
	if kind == "" {
		kind = types.KindAdapterFailure
	}
	return &types.Error{Kind: kind, Op: "planner.task", UnitID: taskID, Err: errors.New(message)}
}

func intentType(session *model.Session) string {
	if session.Intent == nil {
		return ""
	}
	return session.Intent.Type
}

func errorOf(session *model.Session) error {
	if session.Status != state.StatusError {
		return nil
	}
	return errors.New(session.Error)
}
