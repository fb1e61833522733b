package opsagent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/viant/afs"
	"github.com/viant/afs/storage"
	"github.com/viant/afs/url"
	"github.com/viant/opsagent/catalog"
	"github.com/viant/opsagent/extension"
	"github.com/viant/opsagent/internal/logging"
	"github.com/viant/opsagent/model"
	"github.com/viant/opsagent/model/execution"
	"github.com/viant/opsagent/model/state"
	"github.com/viant/opsagent/model/types"
	"github.com/viant/opsagent/service/action"
	"github.com/viant/opsagent/service/adapter"
	"github.com/viant/opsagent/service/adapter/local"
	"github.com/viant/opsagent/service/adapter/mcp"
	"github.com/viant/opsagent/service/approval"
	amemory "github.com/viant/opsagent/service/approval/memory"
	"github.com/viant/opsagent/service/classifier"
	"github.com/viant/opsagent/service/dao"
	"github.com/viant/opsagent/service/dao/definition"
	"github.com/viant/opsagent/service/dao/fs"
	"github.com/viant/opsagent/service/dao/record"
	"github.com/viant/opsagent/service/dao/redis"
	"github.com/viant/opsagent/service/dao/store"
	"github.com/viant/opsagent/service/dispatcher"
	"github.com/viant/opsagent/service/event"
	"github.com/viant/opsagent/service/executor"
	"github.com/viant/opsagent/service/messaging"
	qfs "github.com/viant/opsagent/service/messaging/fs"
	qnats "github.com/viant/opsagent/service/messaging/nats"
	"github.com/viant/opsagent/service/meta"
	"github.com/viant/opsagent/service/planner"
	"github.com/viant/opsagent/service/processor"
	"github.com/viant/opsagent/tracing"
)

// Version is reported to the tracing provider.
const Version = "1.0.0"

// Service wires the planner, dispatcher, workflow engine and executor over
// the configured stores, adapter, approval ledger and event sink.
type Service struct {
	config         *Config
	catalogURL     string
	catalogOptions []storage.Option
	definitions    *definition.Service
	actions        *extension.Actions
	actionServices []types.Service
	adapter        adapter.Adapter
	classifier     classifier.Classifier
	approvals      approval.Service
	events         *event.Service
	sessions       dao.Service[string, model.Session]
	tasks          dao.Service[string, model.Task]
	executions     dao.Service[string, execution.Workflow]
	actionRuns     dao.Service[string, execution.Action]
	redis          goredis.UniversalClient
	executor       *executor.Service
	processor      *processor.Service
	dispatcher     *dispatcher.Service
	planner        *planner.Service
	runtime        *Runtime
	closers        []io.Closer
	logger         *logrus.Entry
}

func (s *Service) init(ctx context.Context, options []Option) error {
	for _, option := range options {
		option(s)
	}
	if err := s.config.Validate(); err != nil {
		return types.NewConfigurationError("opsagent.New", "config", err)
	}
	if s.config.Tracing.Enabled {
		if err := tracing.Init(s.config.Tracing.ServiceName, Version, s.config.Tracing.Output); err != nil {
			s.logger.WithError(err).Warn("failed to initialise tracing")
		}
	}
	if err := s.ensureCatalog(ctx); err != nil {
		return err
	}
	if err := s.ensureStores(ctx); err != nil {
		return err
	}
	if err := s.ensureEvents(); err != nil {
		return err
	}
	if err := s.ensureApprovals(ctx); err != nil {
		return err
	}
	s.actions = extension.NewActions(action.Services()...)
	s.actions.Register(s.actionServices...)
	if err := s.ensureAdapter(ctx); err != nil {
		return err
	}

	callTimeout, _ := parseDuration(s.config.Adapter.Timeout)
	approvalTimeout, _ := parseDuration(s.config.Approval.Timeout)
	executorOptions := []executor.Option{executor.WithStore(s.actionRuns), executor.WithEvents(s.events)}
	if callTimeout > 0 {
		executorOptions = append(executorOptions, executor.WithDefaultTimeout(callTimeout))
	}
	s.executor = executor.New(s.definitions, s.adapter, executorOptions...)
	var err error
	if s.processor, err = processor.New(s.definitions, s.executor,
		processor.WithExecutionDAO(s.executions),
		processor.WithApprovalService(s.approvals),
		processor.WithEvents(s.events),
		processor.WithApprovalTimeout(approvalTimeout),
		processor.WithMaxDepth(s.config.Engine.MaxDepth),
		processor.WithPolicy(s.config.Engine.Policy)); err != nil {
		return err
	}
	if s.dispatcher, err = dispatcher.New(s.definitions, s.processor,
		dispatcher.WithTaskDAO(s.tasks),
		dispatcher.WithEvents(s.events)); err != nil {
		return err
	}
	if s.classifier == nil {
		s.classifier = classifier.NewKeyword(s.definitions)
	}
	if s.planner, err = planner.New(s.classifier, s.definitions, s.dispatcher,
		planner.WithSessionDAO(s.sessions),
		planner.WithEvents(s.events),
		planner.WithExecutions(s.processor)); err != nil {
		return err
	}
	s.runtime = &Runtime{
		definitions: s.definitions,
		planner:     s.planner,
		dispatcher:  s.dispatcher,
		processor:   s.processor,
		executor:    s.executor,
		approvals:   s.approvals,
	}
	return nil
}

func (s *Service) ensureCatalog(ctx context.Context) error {
	URL, options := s.catalogURL, s.catalogOptions
	if URL == "" {
		URL = s.config.Catalog.URL
	}
	if URL == "" {
		URL, options = catalog.URL, []storage.Option{&catalog.FS}
	}
	s.definitions = definition.New(meta.New(afs.New(), URL, options...))
	if err := s.definitions.Load(ctx); err != nil {
		return types.NewConfigurationError("opsagent.New", URL, err)
	}
	return nil
}

func (s *Service) ensureStores(ctx context.Context) error {
	if s.config.Store.Kind == StoreRedis {
		client, err := redis.NewClient(ctx, s.config.Store.Redis.Addr, s.config.Store.Redis.Password, s.config.Store.Redis.DB)
		if err != nil {
			return err
		}
		s.redis = client
		s.closers = append(s.closers, client)
	}
	var err error
	if s.sessions == nil {
		if s.sessions, err = storeOf(ctx, s, "session", record.Session); err != nil {
			return err
		}
	}
	if s.tasks == nil {
		if s.tasks, err = storeOf(ctx, s, "task", record.Task); err != nil {
			return err
		}
	}
	if s.executions == nil {
		if s.executions, err = storeOf(ctx, s, "execution", record.Execution); err != nil {
			return err
		}
	}
	if s.actionRuns == nil {
		if s.actionRuns, err = storeOf(ctx, s, "action", record.Action); err != nil {
			return err
		}
	}
	return nil
}

// storeOf creates the store for one record kind on the configured backend.
func storeOf[T any](ctx context.Context, s *Service, name string, accessor *dao.Accessor[string, T]) (dao.Service[string, T], error) {
	switch s.config.Store.Kind {
	case StoreFS:
		ret, err := fs.New[T](ctx, afs.New(), url.Join(s.config.Store.URL, name), accessor)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s store: %w", name, err)
		}
		return ret, nil
	case StoreRedis:
		return redis.New[T](s.redis, fmt.Sprintf("%s:%s:", s.config.Store.Redis.Prefix, name), accessor), nil
	}
	return store.NewMemoryStore(accessor), nil
}

func (s *Service) ensureEvents() error {
	if s.events != nil {
		return nil
	}
	cfg := s.config.Events
	var options []event.Option
	switch messaging.Vendor(cfg.Vendor) {
	case messaging.VendorFS:
		if cfg.URL != "" {
			options = append(options, event.WithFSConfig(func(name string) qfs.Config {
				ret := qfs.DefaultConfig(name)
				ret.BaseURL = url.Join(cfg.URL, name)
				return ret
			}))
		}
	case messaging.VendorNATS:
		options = append(options, event.WithNATSConfig(func(name string) qnats.Config {
			ret := qnats.DefaultConfig(cfg.Subject + "." + name)
			if cfg.URL != "" {
				ret.URL = cfg.URL
			}
			return ret
		}))
	}
	events, err := event.New(messaging.Vendor(cfg.Vendor), options...)
	if err != nil {
		return types.NewConfigurationError("opsagent.New", "events", err)
	}
	s.events = events
	s.closers = append(s.closers, events)
	if cfg.Log {
		if err = events.LogUnits(logging.Logger("event")); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) ensureApprovals(ctx context.Context) error {
	if s.approvals != nil {
		return nil
	}
	requests, err := storeOf(ctx, s, "approval_request", amemory.Requests)
	if err != nil {
		return err
	}
	decisions, err := storeOf(ctx, s, "approval_decision", amemory.Decisions)
	if err != nil {
		return err
	}
	options := []amemory.Option{amemory.WithRequestDAO(requests), amemory.WithDecisionDAO(decisions)}
	if queue, err := event.QueueOf[approval.Event](s.events, "approval"); err == nil {
		options = append(options, amemory.WithQueue(queue))
	} else {
		s.logger.WithError(err).Warn("approval events fall back to an in-memory queue")
	}
	s.approvals = amemory.New(options...)
	return nil
}

func (s *Service) ensureAdapter(ctx context.Context) error {
	if s.adapter != nil {
		return nil
	}
	cfg := s.config.Adapter
	if cfg.Kind == AdapterMCP {
		timeout, _ := parseDuration(cfg.MCP.Timeout)
		client, err := mcp.NewStdio(ctx, cfg.MCP.Command, cfg.MCP.Env, cfg.MCP.Args, timeout)
		if err != nil {
			return types.NewConfigurationError("opsagent.New", "adapter", err)
		}
		s.adapter = client
		s.closers = append(s.closers, client)
		return nil
	}
	var options []local.Option
	if latency, _ := parseDuration(cfg.Latency); latency > 0 {
		options = append(options, local.WithLatency(latency))
	}
	s.adapter = local.New(s.actions, options...)
	return nil
}

// Process classifies text, plans it into agent tasks and runs them.
func (s *Service) Process(ctx context.Context, text string) (*model.Session, error) {
	return s.planner.Process(ctx, text)
}

// Preview plans text and estimates its impact without running anything.
func (s *Service) Preview(ctx context.Context, text string) (*model.Preview, error) {
	return s.planner.Preview(ctx, text)
}

// Enrich completes the entities of text from its best matching scenario
// template and rates its complexity.
func (s *Service) Enrich(ctx context.Context, text string) (*model.Enrichment, error) {
	return s.planner.Enrich(ctx, text)
}

// ApproveSession applies one decision to every task the session waits on.
func (s *Service) ApproveSession(ctx context.Context, sessionID string, approved bool, approver string) (*model.Session, error) {
	return s.planner.ApproveSession(ctx, sessionID, approved, approver)
}

// CreateTask plans a standalone agent task.
func (s *Service) CreateTask(ctx context.Context, agentID, instruction string, taskContext map[string]interface{}) (*model.Task, error) {
	return s.dispatcher.CreateTask(ctx, agentID, instruction, taskContext)
}

// RunTask runs a pending task.
func (s *Service) RunTask(ctx context.Context, taskID string) (*model.Task, error) {
	return s.dispatcher.RunTask(ctx, taskID)
}

// ResumeTask resumes a task waiting on approval. A task planned for a session
// is resolved through the session so it advances too.
func (s *Service) ResumeTask(ctx context.Context, taskID string, approved bool, approver string) (*model.Task, error) {
	task, err := s.dispatcher.Task(ctx, taskID)
	if err != nil || task.SessionID == "" {
		return s.dispatcher.ResumeTask(ctx, taskID, approved, approver)
	}
	_, err = s.planner.ResumeTask(ctx, task.SessionID, taskID, approved, approver)
	current, loadErr := s.dispatcher.Task(ctx, taskID)
	if loadErr != nil {
		return nil, loadErr
	}
	if types.KindOf(err) == types.KindInvalidState || current.Status == state.StatusError {
		return current, err
	}
	return current, nil
}

// Execute runs one workflow definition.
func (s *Service) Execute(ctx context.Context, workflowID string, input map[string]interface{}) (*execution.Workflow, error) {
	return s.processor.Execute(ctx, workflowID, input)
}

// ResumeApproval resumes a workflow execution waiting on approval. An
// execution run for a task or a session is resolved through its owner so the
// task and session advance with it; the returned execution is reloaded.
func (s *Service) ResumeApproval(ctx context.Context, executionID string, approved bool, approver string) (*execution.Workflow, error) {
	root, err := s.rootExecution(ctx, executionID)
	if err != nil {
		return nil, err
	}
	switch {
	case root.SessionID != "" && root.TaskID != "":
		_, err = s.planner.ResumeTask(ctx, root.SessionID, root.TaskID, approved, approver)
	case root.TaskID != "":
		_, err = s.dispatcher.ResumeTask(ctx, root.TaskID, approved, approver)
	default:
		return s.processor.ResumeApproval(ctx, executionID, approved, approver)
	}
	anExecution, loadErr := s.processor.Execution(ctx, executionID)
	if loadErr != nil {
		return nil, loadErr
	}
	if types.KindOf(err) == types.KindInvalidState || anExecution.Status == state.StatusError {
		return anExecution, err
	}
	return anExecution, nil
}

// rootExecution follows ParentID up to the top-level execution.
func (s *Service) rootExecution(ctx context.Context, executionID string) (*execution.Workflow, error) {
	anExecution, err := s.processor.Execution(ctx, executionID)
	for err == nil && anExecution.ParentID != "" {
		anExecution, err = s.processor.Execution(ctx, anExecution.ParentID)
	}
	return anExecution, err
}

// Resolve applies a decision to the unit that filed the request: its session,
// its standalone task, or its root workflow execution. It is the resolver
// used by the approval helpers; a unit already resolved is not an error.
func (s *Service) Resolve(ctx context.Context, r *approval.Request, approved bool, approver, reason string) error {
	if _, err := s.approvals.Decide(ctx, r.ID, approved, approver, reason); err != nil && !errors.Is(err, approval.ErrDecided) {
		return err
	}
	var err error
	switch {
	case r.MetaString(approval.MetaSessionID) != "":
		_, err = s.planner.ApproveSession(ctx, r.MetaString(approval.MetaSessionID), approved, approver)
	case r.MetaString(approval.MetaTaskID) != "":
		_, err = s.dispatcher.ResumeTask(ctx, r.MetaString(approval.MetaTaskID), approved, approver)
	default:
		executionID := r.MetaString(approval.MetaRootExecutionID)
		if executionID == "" {
			executionID = r.ExecutionID
		}
		_, err = s.processor.ResumeApproval(ctx, executionID, approved, approver)
	}
	if types.KindOf(err) == types.KindInvalidState {
		return nil
	}
	return err
}

// ExpireApprovals rejects every pending request past its deadline and
// returns the number rejected.
func (s *Service) ExpireApprovals(ctx context.Context) (int, error) {
	return approval.ExpirePending(ctx, s.approvals, s.Resolve)
}

// AutoExpire rejects expired requests every interval until stop is called.
func (s *Service) AutoExpire(ctx context.Context, interval time.Duration) (stop func()) {
	return approval.AutoExpire(ctx, s.approvals, s.Resolve, interval)
}

// AutoApprove approves pending requests every interval until stop is called.
func (s *Service) AutoApprove(ctx context.Context, interval time.Duration) (stop func()) {
	return approval.AutoApprove(ctx, s.approvals, s.Resolve, interval)
}

// Runtime returns the read API.
func (s *Service) Runtime() *Runtime {
	return s.runtime
}

// Actions returns the registry of local action services.
func (s *Service) Actions() *extension.Actions {
	return s.actions
}

// Adapter returns the external-system adapter.
func (s *Service) Adapter() adapter.Adapter {
	return s.adapter
}

// Events returns the event service.
func (s *Service) Events() *event.Service {
	return s.events
}

// Config returns the effective configuration.
func (s *Service) Config() *Config {
	return s.config
}

// Close releases adapter, queue and store connections.
func (s *Service) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

// New creates a service; the catalog is loaded and every store connected
// before it returns.
func New(ctx context.Context, options ...Option) (*Service, error) {
	ret := &Service{config: DefaultConfig(), logger: logging.Logger("opsagent")}
	if err := ret.init(ctx, options); err != nil {
		_ = ret.Close()
		return nil, err
	}
	return ret, nil
}
