package opsagent

import (
	"context"
	"fmt"

	"github.com/viant/opsagent/model"
	"github.com/viant/opsagent/model/execution"
	"github.com/viant/opsagent/model/state"
	"github.com/viant/opsagent/model/types"
	"github.com/viant/opsagent/service/approval"
	"github.com/viant/opsagent/service/dao"
	"github.com/viant/opsagent/service/dao/definition"
	"github.com/viant/opsagent/service/dispatcher"
	"github.com/viant/opsagent/service/executor"
	"github.com/viant/opsagent/service/planner"
	"github.com/viant/opsagent/service/processor"
)

// Runtime is the read-only view over sessions, tasks, executions and the
// catalog, plus definition hot swap.
type Runtime struct {
	definitions *definition.Service
	planner     *planner.Service
	dispatcher  *dispatcher.Service
	processor   *processor.Service
	executor    *executor.Service
	approvals   approval.Service
}

// StatusFilter returns a list parameter matching any of statuses.
func StatusFilter(statuses ...state.Status) *dao.Parameter {
	values := make([]string, 0, len(statuses))
	for _, status := range statuses {
		values = append(values, string(status))
	}
	return &dao.Parameter{Name: dao.ParamStatus, Value: values}
}

// Session returns a session
func (r *Runtime) Session(ctx context.Context, id string) (*model.Session, error) {
	return r.planner.Session(ctx, id)
}

// Sessions returns a list of sessions
func (r *Runtime) Sessions(ctx context.Context, parameters ...*dao.Parameter) ([]*model.Session, error) {
	return r.planner.Sessions(ctx, parameters...)
}

// Task returns a task
func (r *Runtime) Task(ctx context.Context, id string) (*model.Task, error) {
	return r.dispatcher.Task(ctx, id)
}

// Tasks returns a list of tasks
func (r *Runtime) Tasks(ctx context.Context, parameters ...*dao.Parameter) ([]*model.Task, error) {
	return r.dispatcher.Tasks(ctx, parameters...)
}

// Execution returns a workflow execution
func (r *Runtime) Execution(ctx context.Context, id string) (*execution.Workflow, error) {
	return r.processor.Execution(ctx, id)
}

// Executions returns a list of workflow executions
func (r *Runtime) Executions(ctx context.Context, parameters ...*dao.Parameter) ([]*execution.Workflow, error) {
	return r.processor.Executions(ctx, parameters...)
}

// ActionExecution returns an action execution
func (r *Runtime) ActionExecution(ctx context.Context, id string) (*execution.Action, error) {
	return r.executor.Action(ctx, id)
}

// ActionExecutions returns a list of action executions
func (r *Runtime) ActionExecutions(ctx context.Context, parameters ...*dao.Parameter) ([]*execution.Action, error) {
	return r.executor.Actions(ctx, parameters...)
}

// PendingApprovals returns the undecided approval requests.
func (r *Runtime) PendingApprovals(ctx context.Context, filters ...approval.PendingFilter) ([]*approval.Request, error) {
	return approval.ListPending(ctx, r.approvals, filters...)
}

// Workflow returns a workflow definition.
func (r *Runtime) Workflow(id string) (*model.Workflow, error) {
	ret, ok := r.definitions.Lookup(id)
	if !ok {
		return nil, types.NewNotFoundError("runtime.Workflow", "workflow", id)
	}
	return ret, nil
}

// Workflows returns every workflow definition.
func (r *Runtime) Workflows() []*model.Workflow {
	return r.definitions.Workflows()
}

// Agents returns every capability agent.
func (r *Runtime) Agents() []*model.Agent {
	return r.definitions.Agents()
}

// Actions returns every catalog action.
func (r *Runtime) Actions() []*model.Action {
	return r.definitions.Actions()
}

// Templates returns the scenario templates.
func (r *Runtime) Templates() []*model.Template {
	return r.planner.Templates()
}

// Template returns one scenario template.
func (r *Runtime) Template(id string) (*model.Template, error) {
	return r.planner.Template(id)
}

// UpsertWorkflow decodes a YAML definition and registers it under its id,
// replacing any previous version.
func (r *Runtime) UpsertWorkflow(data []byte) (*model.Workflow, error) {
	ret, err := r.definitions.UpsertWorkflow(data)
	if err != nil {
		return nil, types.NewConfigurationError("runtime.UpsertWorkflow", "workflow", err)
	}
	return ret, nil
}

// RefreshCatalog reloads every catalog document; the previous snapshot stays
// in place when the reload fails.
func (r *Runtime) RefreshCatalog(ctx context.Context) error {
	if err := r.definitions.Load(ctx); err != nil {
		return fmt.Errorf("failed to refresh catalog: %w", err)
	}
	return nil
}
