package processor

import (
	"context"
	"fmt"
	"time"

	"github.com/viant/opsagent/internal/clock"
	"github.com/viant/opsagent/internal/idgen"
	"github.com/viant/opsagent/model"
	"github.com/viant/opsagent/model/execution"
	"github.com/viant/opsagent/model/graph"
	"github.com/viant/opsagent/model/state"
	"github.com/viant/opsagent/model/types"
	"github.com/viant/opsagent/policy"
	"github.com/viant/opsagent/progress"
	"github.com/viant/opsagent/service/approval"
	"github.com/viant/opsagent/service/condition"
	"github.com/viant/opsagent/service/event"
	"github.com/viant/opsagent/service/executor"
	"github.com/viant/opsagent/tracing"
	"golang.org/x/sync/errgroup"
)

type outcome int

const (
	proceed outcome = iota
	paused
	rejected
)

// scope is the context a node runs against. The main chain writes records to
// the execution; a parallel branch collects them and its outputs locally.
type scope struct {
	execution  *execution.Workflow
	definition *model.Workflow
	context    map[string]interface{}
	depth      int
	branch     bool
	records    []*execution.Node
	output     map[string]interface{}
}

func (sc *scope) merge(output map[string]interface{}) {
	model.Merge(sc.context, output)
	if sc.branch {
		sc.output = model.Merge(sc.output, output)
	}
}

func (s *Service) record(ctx context.Context, sc *scope, rec *execution.Node) {
	if sc.branch {
		sc.records = append(sc.records, rec)
		return
	}
	sc.execution.Append(rec)
	progress.UpdateCtx(ctx, deltaOf(rec.Status))
	s.emitNode(ctx, sc.execution, rec)
}

func deltaOf(status state.Status) progress.Delta {
	switch status {
	case state.StatusSuccess, state.StatusApproved:
		return progress.Delta{Completed: 1}
	case state.StatusError, state.StatusCancelled:
		return progress.Delta{Failed: 1}
	case state.StatusAwaitingApproval:
		return progress.Delta{Paused: 1}
	case state.StatusRejected:
		return progress.Delta{Rejected: 1}
	}
	return progress.Delta{}
}

func (s *Service) emitNode(ctx context.Context, anExecution *execution.Workflow, rec *execution.Node) {
	s.events.Emit(ctx, &event.Unit{
		Type:       event.UnitNode,
		ID:         anExecution.ID + "/" + rec.NodeID,
		ParentID:   anExecution.ID,
		Name:       string(rec.Kind),
		Status:     rec.Status.String(),
		DurationMs: rec.DurationMs,
		Error:      rec.Error,
		Output:     rec.Output,
	})
}

// step runs one node and returns the id of the node to run next.
func (s *Service) step(ctx context.Context, sc *scope, node graph.Node) (string, outcome, error) {
	base := node.Common()
	ctx, span := tracing.StartUnit(ctx, event.UnitNode, base.ID, sc.execution.ID+"/"+base.ID, sc.execution.ID)
	var (
		next   string
		result = proceed
		err    error
	)
	switch actual := node.(type) {
	case *graph.Action:
		next, err = s.runAction(ctx, sc, actual)
	case *graph.Conditional:
		next, err = s.runConditional(ctx, sc, actual)
	case *graph.Wait:
		next, err = s.runWait(ctx, sc, actual)
	case *graph.Approval:
		if sc.branch {
			err = branchError(actual)
			break
		}
		result, err = s.runApproval(ctx, sc, actual)
	case *graph.Parallel:
		if sc.branch {
			err = branchError(actual)
			break
		}
		next, err = s.runParallel(ctx, sc, actual)
	case *graph.Subgraph:
		if sc.branch {
			err = branchError(actual)
			break
		}
		next, result, err = s.runSubgraph(ctx, sc, actual)
	default:
		err = types.NewConfigurationError("processor.step", base.ID, fmt.Errorf("unsupported node type %T", node))
	}
	tracing.EndSpan(span, err)
	return next, result, err
}

func (s *Service) runAction(ctx context.Context, sc *scope, node *graph.Action) (string, error) {
	rec := execution.NewNode(node, sc.context)
	if !s.policyOf(ctx).IsAllowed(node.ActionID) {
		err := fmt.Errorf("action %s is blocked by policy", node.ActionID)
		rec.Finish(state.StatusError, nil, err)
		s.record(ctx, sc, rec)
		return s.onFailure(sc, node, err, types.KindInvalidState)
	}
	expanded, err := expandParams(node.Params, sc.context)
	if err != nil {
		err = types.NewConfigurationError("processor.action", node.ID, err)
		rec.Finish(state.StatusError, nil, err)
		s.record(ctx, sc, rec)
		return "", err
	}
	params := model.Merge(model.CloneMap(sc.context), expanded)
	timeout, _ := node.TimeoutDuration()
	anAction, err := s.actions.Run(ctx, node.ActionID, params,
		executor.WithNode(sc.execution.ID, node.ID),
		executor.WithRetry(node.Retry),
		executor.WithTimeout(timeout))
	if anAction != nil {
		rec.ActionExecutionID = anAction.ID
	}
	if err != nil {
		rec.Finish(state.StatusError, nil, err)
		s.record(ctx, sc, rec)
		return s.onFailure(sc, node, err, types.KindAdapterFailure)
	}
	output := model.CloneMap(anAction.Output)
	rec.Finish(state.StatusSuccess, output, nil)
	s.record(ctx, sc, rec)
	sc.merge(output)
	return node.Next, nil
}

func (s *Service) runConditional(ctx context.Context, sc *scope, node *graph.Conditional) (string, error) {
	rec := execution.NewNode(node, sc.context)
	value, err := condition.Evaluate(node.When, sc.context)
	if err != nil {
		err = types.NewConfigurationError("processor.condition", node.ID, err)
		rec.Finish(state.StatusError, nil, err)
		s.record(ctx, sc, rec)
		return "", err
	}
	next := node.Branch(value)
	rec.Finish(state.StatusSuccess, map[string]interface{}{"result": value, "next": next}, nil)
	s.record(ctx, sc, rec)
	return next, nil
}

func (s *Service) runWait(ctx context.Context, sc *scope, node *graph.Wait) (string, error) {
	rec := execution.NewNode(node, sc.context)
	delay, _ := node.DelayDuration()
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		err := &types.Error{Kind: types.KindInvalidState, Op: "processor.wait", UnitID: node.ID, Err: ctx.Err()}
		rec.Finish(state.StatusCancelled, nil, err)
		s.record(ctx, sc, rec)
		return "", err
	case <-timer.C:
	}
	rec.Finish(state.StatusSuccess, map[string]interface{}{"delay": delay.String()}, nil)
	s.record(ctx, sc, rec)
	return node.Next, nil
}

func (s *Service) runApproval(ctx context.Context, sc *scope, node *graph.Approval) (outcome, error) {
	anExecution := sc.execution
	rec := execution.NewNode(node, sc.context)
	request := &approval.Request{
		ID:          idgen.NewWithPrefix(idgen.ApprovalPrefix),
		ExecutionID: anExecution.ID,
		WorkflowID:  sc.definition.ID,
		NodeID:      node.ID,
		Name:        node.Label(),
		Roles:       model.CloneStrings(node.Roles),
		CreatedAt:   clock.Now(),
		Meta: map[string]interface{}{
			approval.MetaRootExecutionID: s.rootOf(ctx, anExecution),
		},
	}
	if anExecution.SessionID != "" {
		request.Meta[approval.MetaSessionID] = anExecution.SessionID
	}
	if anExecution.TaskID != "" {
		request.Meta[approval.MetaTaskID] = anExecution.TaskID
	}
	timeout, _ := node.TimeoutDuration()
	if timeout == 0 {
		timeout = s.approvalTimeout
	}
	if timeout > 0 {
		expiresAt := request.CreatedAt.Add(timeout)
		request.ExpiresAt = &expiresAt
	}
	if s.approvals != nil {
		if err := s.approvals.RequestApproval(ctx, request); err != nil {
			err = types.NewAdapterError("processor.approval", node.ID, err)
			rec.Finish(state.StatusError, nil, err)
			s.record(ctx, sc, rec)
			return proceed, err
		}
	}
	output := map[string]interface{}{"roles": model.CloneStrings(node.Roles), "requestId": request.ID}
	rec.Finish(state.StatusAwaitingApproval, output, nil)
	s.record(ctx, sc, rec)
	anExecution.Pause(node.ID, request.ID, "")
	return paused, nil
}

// runParallel runs every branch on its own snapshot of the context, then
// appends the branch records and merges the branch outputs in declaration order.
func (s *Service) runParallel(ctx context.Context, sc *scope, node *graph.Parallel) (string, error) {
	rec := execution.NewNode(node, sc.context)
	branches := make([]*scope, len(node.Branches))
	group, groupCtx := errgroup.WithContext(ctx)
	for i, start := range node.Branches {
		branch := &scope{
			execution:  sc.execution,
			definition: sc.definition,
			context:    model.CloneMap(sc.context),
			depth:      sc.depth,
			branch:     true,
			output:     map[string]interface{}{},
		}
		if branch.context == nil {
			branch.context = map[string]interface{}{}
		}
		branches[i] = branch
		group.Go(func() error {
			return s.runBranch(groupCtx, branch, node, start)
		})
	}
	err := group.Wait()
	output := map[string]interface{}{}
	for _, branch := range branches {
		for _, branchRecord := range branch.records {
			s.record(ctx, sc, branchRecord)
		}
		model.Merge(output, branch.output)
	}
	if err != nil {
		rec.Finish(state.StatusError, nil, err)
		s.record(ctx, sc, rec)
		return s.onFailure(sc, node, err, types.KindAdapterFailure)
	}
	rec.Finish(state.StatusSuccess, map[string]interface{}{"branches": len(node.Branches)}, nil)
	s.record(ctx, sc, rec)
	sc.merge(output)
	return node.Next, nil
}

// runBranch follows a branch chain until the join node or the chain end.
func (s *Service) runBranch(ctx context.Context, branch *scope, parallel *graph.Parallel, nodeID string) error {
	for nodeID != "" && nodeID != parallel.Next {
		if err := ctx.Err(); err != nil {
			return err
		}
		node, ok := branch.definition.Node(nodeID)
		if !ok {
			return types.NewConfigurationError("processor.parallel", nodeID, fmt.Errorf("branch node %s not found", nodeID))
		}
		next, _, err := s.step(ctx, branch, node)
		if err != nil {
			return err
		}
		nodeID = next
	}
	return nil
}

func (s *Service) runSubgraph(ctx context.Context, sc *scope, node *graph.Subgraph) (string, outcome, error) {
	expanded, err := expandParams(node.Input, sc.context)
	if err != nil {
		err = types.NewConfigurationError("processor.subgraph", node.ID, err)
		rec := execution.NewNode(node, sc.context)
		rec.Finish(state.StatusError, nil, err)
		s.record(ctx, sc, rec)
		return "", proceed, err
	}
	input := model.Merge(model.CloneMap(sc.context), expanded)
	if err := s.executions.Save(ctx, sc.execution); err != nil {
		return "", proceed, err
	}
	child, _ := s.start(ctx, node.WorkflowID, input, sc.execution, sc.depth+1)
	return s.settleChild(ctx, sc, node, child, nil)
}

// settleChild records the state a child execution reached and maps it onto
// the parent: success merges the child output, a pause pauses the parent.
// When the parent resumes, pausedRecord is the record the node left at the pause;
// it is resolved in place rather than appended again.
func (s *Service) settleChild(ctx context.Context, sc *scope, node graph.Node, child *execution.Workflow, pausedRecord *execution.Node) (string, outcome, error) {
	base := node.Common()
	rec := pausedRecord
	if rec == nil {
		rec = execution.NewNode(node, sc.context)
	}
	rec.ChildExecutionID = child.ID
	commit := func() {
		if pausedRecord == nil {
			s.record(ctx, sc, rec)
			return
		}
		progress.UpdateCtx(ctx, deltaOf(rec.Status))
		s.emitNode(ctx, sc.execution, rec)
	}
	switch child.Status {
	case state.StatusSuccess:
		output := child.Output()
		rec.Finish(state.StatusSuccess, output, nil)
		commit()
		sc.merge(output)
		return base.Next, proceed, nil
	case state.StatusAwaitingApproval:
		rec.Finish(state.StatusAwaitingApproval, map[string]interface{}{"childExecutionId": child.ID, "pendingApproval": child.PendingApproval}, nil)
		commit()
		sc.execution.Pause(base.ID, child.ApprovalRequestID, child.ID)
		return "", paused, nil
	case state.StatusRejected:
		rec.Finish(state.StatusRejected, nil, nil)
		commit()
		return "", rejected, nil
	}
	err := fmt.Errorf("child execution %s ended as %s: %s", child.ID, child.Status, child.Error)
	rec.Finish(state.StatusError, nil, err)
	commit()
	next, err := s.onFailure(sc, node, err, types.KindAdapterFailure)
	return next, proceed, err
}

// onFailure follows the node's onError edge when set; otherwise it returns
// the error attributed to the node.
func (s *Service) onFailure(sc *scope, node graph.Node, err error, kind types.Kind) (string, error) {
	base := node.Common()
	if base.OnError != "" {
		sc.merge(map[string]interface{}{ContextError: err.Error(), ContextErrorNode: base.ID})
		return base.OnError, nil
	}
	if actual := types.KindOf(err); actual == types.KindConfiguration {
		kind = actual
	}
	return "", &types.Error{Kind: kind, Op: "processor." + string(node.Kind()), UnitID: base.ID, Err: err}
}

// policyOf returns the policy carried by ctx, falling back to the engine default.
func (s *Service) policyOf(ctx context.Context) *policy.Policy {
	if ret := policy.FromContext(ctx); ret != nil {
		return ret
	}
	return s.policy
}

func branchError(node graph.Node) error {
	return types.NewConfigurationError("processor.parallel", node.Common().ID, fmt.Errorf("%s node is not allowed in a parallel branch", node.Kind()))
}
