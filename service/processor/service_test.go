package processor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/opsagent/model"
	"github.com/viant/opsagent/model/execution"
	"github.com/viant/opsagent/model/graph"
	"github.com/viant/opsagent/model/state"
	"github.com/viant/opsagent/model/types"
	"github.com/viant/opsagent/policy"
	"github.com/viant/opsagent/progress"
	"github.com/viant/opsagent/service/adapter"
	"github.com/viant/opsagent/service/approval"
	memApproval "github.com/viant/opsagent/service/approval/memory"
	"github.com/viant/opsagent/service/executor"
)

type definitions map[string]*model.Workflow

func (d definitions) Lookup(id string) (*model.Workflow, bool) {
	ret, ok := d[id]
	return ret, ok
}

type catalog map[string]*model.Action

func (c catalog) Action(id string) (*model.Action, bool) {
	ret, ok := c[id]
	return ret, ok
}

var testActions = catalog{
	"put":  {ID: "put", Tools: []string{"sys.put"}},
	"fail": {ID: "fail", Tools: []string{"sys.fail"}},
}

var backend = adapter.Func(func(ctx context.Context, toolID string, params map[string]interface{}) (*adapter.Result, error) {
	switch toolID {
	case "sys.put":
		out, _ := params["put"].(map[string]interface{})
		return &adapter.Result{Success: true, Output: model.CloneMap(out)}, nil
	case "sys.fail":
		return &adapter.Result{Success: false, Error: "system down"}, nil
	}
	return nil, adapter.ErrUnknownTool
})

func put(id, next string, values map[string]interface{}) *graph.Action {
	return &graph.Action{Base: graph.Base{ID: id, Next: next}, ActionID: "put", Params: map[string]interface{}{"put": values}}
}

func fail(id, next, onError string) *graph.Action {
	return &graph.Action{Base: graph.Base{ID: id, Next: next, OnError: onError}, ActionID: "fail"}
}

func gate(id, next string) *graph.Approval {
	return &graph.Approval{Base: graph.Base{ID: id, Next: next}, Roles: []string{"区域总监"}, Timeout: "1h"}
}

func workflow(id, start string, nodes ...graph.Node) *model.Workflow {
	return model.NewWorkflow(id).WithStart(start).AddNode(nodes...)
}

type harness struct {
	srv       *Service
	approvals approval.Service
}

func newHarness(t *testing.T, workflows ...*model.Workflow) *harness {
	defs := definitions{}
	for _, w := range workflows {
		defs[w.ID] = w
	}
	approvals := memApproval.New()
	srv, err := New(defs, executor.New(testActions, backend), WithApprovalService(approvals))
	require.NoError(t, err)
	return &harness{srv: srv, approvals: approvals}
}

func nodeIDs(anExecution *execution.Workflow) []string {
	var ret []string
	for _, rec := range anExecution.Nodes {
		ret = append(ret, rec.NodeID)
	}
	return ret
}

func nodeStatuses(anExecution *execution.Workflow) []state.Status {
	var ret []state.Status
	for _, rec := range anExecution.Nodes {
		ret = append(ret, rec.Status)
	}
	return ret
}

func TestService_Execute(t *testing.T) {
	testCases := []struct {
		description   string
		workflows     []*model.Workflow
		run           string
		input         map[string]interface{}
		expectStatus  state.Status
		expectKind    types.Kind
		expectUnit    string
		expectNodes   []string
		expectContext map[string]interface{}
	}{
		{
			description:   "linear chain merges outputs",
			workflows:     []*model.Workflow{workflow("linear", "a", put("a", "b", map[string]interface{}{"sku": "SKU-1", "step": 1}), put("b", "", map[string]interface{}{"step": 2}))},
			run:           "linear",
			input:         map[string]interface{}{"price": 28.0},
			expectStatus:  state.StatusSuccess,
			expectNodes:   []string{"a", "b"},
			expectContext: map[string]interface{}{"price": 28.0, "sku": "SKU-1", "step": 2},
		},
		{
			description:  "action failure ends the run",
			workflows:    []*model.Workflow{workflow("failing", "a", put("a", "b", nil), fail("b", "c", ""), put("c", "", nil))},
			run:          "failing",
			expectStatus: state.StatusError,
			expectKind:   types.KindAdapterFailure,
			expectUnit:   "b",
			expectNodes:  []string{"a", "b"},
		},
		{
			description:   "action failure follows onError",
			workflows:     []*model.Workflow{workflow("recover", "a", fail("a", "b", "c"), put("b", "", nil), put("c", "", map[string]interface{}{"recovered": true}))},
			run:           "recover",
			expectStatus:  state.StatusSuccess,
			expectNodes:   []string{"a", "c"},
			expectContext: map[string]interface{}{"recovered": true, ContextErrorNode: "a"},
		},
		{
			description:  "unknown definition",
			run:          "missing",
			expectStatus: state.StatusError,
			expectKind:   types.KindNotFound,
			expectUnit:   "missing",
		},
		{
			description:  "cyclic definition",
			workflows:    []*model.Workflow{workflow("cyclic", "a", put("a", "b", nil), put("b", "a", nil))},
			run:          "cyclic",
			expectStatus: state.StatusError,
			expectKind:   types.KindConfiguration,
			expectUnit:   "cyclic",
		},
		{
			description:  "missing start node",
			workflows:    []*model.Workflow{workflow("headless", "z", put("a", "", nil))},
			run:          "headless",
			expectStatus: state.StatusError,
			expectKind:   types.KindConfiguration,
		},
		{
			description: "conditional then",
			workflows: []*model.Workflow{workflow("cond", "c",
				&graph.Conditional{Base: graph.Base{ID: "c", Next: "n"}, When: "price > 20", Then: "t", Else: "e"},
				put("t", "", map[string]interface{}{"branch": "then"}),
				put("e", "", map[string]interface{}{"branch": "else"}),
				put("n", "", map[string]interface{}{"branch": "next"}))},
			run:           "cond",
			input:         map[string]interface{}{"price": 28.0},
			expectStatus:  state.StatusSuccess,
			expectNodes:   []string{"c", "t"},
			expectContext: map[string]interface{}{"branch": "then"},
		},
		{
			description: "conditional falls back to next",
			workflows: []*model.Workflow{workflow("cond-next", "c",
				&graph.Conditional{Base: graph.Base{ID: "c", Next: "n"}, When: "price > 20", Then: "t"},
				put("t", "", map[string]interface{}{"branch": "then"}),
				put("n", "", map[string]interface{}{"branch": "next"}))},
			run:           "cond-next",
			input:         map[string]interface{}{"price": 12.0},
			expectStatus:  state.StatusSuccess,
			expectNodes:   []string{"c", "n"},
			expectContext: map[string]interface{}{"branch": "next"},
		},
		{
			description: "invalid expression",
			workflows: []*model.Workflow{workflow("bad-cond", "c",
				&graph.Conditional{Base: graph.Base{ID: "c", Next: "n"}, When: "price >"},
				put("n", "", nil))},
			run:          "bad-cond",
			expectStatus: state.StatusError,
			expectKind:   types.KindConfiguration,
			expectUnit:   "c",
			expectNodes:  []string{"c"},
		},
		{
			description: "wait then continue",
			workflows: []*model.Workflow{workflow("wait", "w",
				&graph.Wait{Base: graph.Base{ID: "w", Next: "a"}, Delay: "5ms"},
				put("a", "", map[string]interface{}{"done": true}))},
			run:           "wait",
			expectStatus:  state.StatusSuccess,
			expectNodes:   []string{"w", "a"},
			expectContext: map[string]interface{}{"done": true},
		},
		{
			description: "parallel merges in branch order",
			workflows: []*model.Workflow{workflow("fanout", "p",
				&graph.Parallel{Base: graph.Base{ID: "p", Next: "j"}, Branches: []string{"b1", "b2"}},
				put("b1", "b1x", map[string]interface{}{"pos": "ok", "who": "b1"}),
				&graph.Wait{Base: graph.Base{ID: "b1x", Next: "j"}, Delay: "10ms"},
				put("b2", "j", map[string]interface{}{"app": "ok", "who": "b2"}),
				put("j", "", map[string]interface{}{"joined": true}))},
			run:           "fanout",
			expectStatus:  state.StatusSuccess,
			expectNodes:   []string{"b1", "b1x", "b2", "p", "j"},
			expectContext: map[string]interface{}{"pos": "ok", "app": "ok", "who": "b2", "joined": true},
		},
		{
			description: "failed branch fails the parallel node",
			workflows: []*model.Workflow{workflow("fanout-fail", "p",
				&graph.Parallel{Base: graph.Base{ID: "p", Next: "j"}, Branches: []string{"b1", "b2"}},
				put("b1", "j", nil),
				&graph.Wait{Base: graph.Base{ID: "b2", Next: "b2x"}, Delay: "20ms"},
				fail("b2x", "j", ""),
				put("j", "", nil))},
			run:          "fanout-fail",
			expectStatus: state.StatusError,
			expectKind:   types.KindAdapterFailure,
			expectUnit:   "p",
			expectNodes:  []string{"b1", "b2", "b2x", "p"},
		},
		{
			description: "approval inside a branch is rejected",
			workflows: []*model.Workflow{workflow("fanout-gate", "p",
				&graph.Parallel{Base: graph.Base{ID: "p", Next: "j"}, Branches: []string{"g"}},
				gate("g", "j"),
				put("j", "", nil))},
			run:          "fanout-gate",
			expectStatus: state.StatusError,
			expectKind:   types.KindConfiguration,
		},
		{
			description: "subgraph merges child output",
			workflows: []*model.Workflow{
				workflow("parent", "s", &graph.Subgraph{Base: graph.Base{ID: "s", Next: "a"}, WorkflowID: "child"}, put("a", "", map[string]interface{}{"after": true})),
				workflow("child", "c", put("c", "", map[string]interface{}{"fromChild": "yes"})),
			},
			run:           "parent",
			expectStatus:  state.StatusSuccess,
			expectNodes:   []string{"s", "a"},
			expectContext: map[string]interface{}{"fromChild": "yes", "after": true},
		},
		{
			description: "failed child follows onError",
			workflows: []*model.Workflow{
				workflow("parent-fail", "s", &graph.Subgraph{Base: graph.Base{ID: "s", Next: "a", OnError: "r"}, WorkflowID: "child-fail"}, put("a", "", nil), put("r", "", map[string]interface{}{"rescued": true})),
				workflow("child-fail", "c", fail("c", "", "")),
			},
			run:           "parent-fail",
			expectStatus:  state.StatusSuccess,
			expectNodes:   []string{"s", "r"},
			expectContext: map[string]interface{}{"rescued": true, ContextErrorNode: "s"},
		},
		{
			description: "params expand from context",
			workflows: []*model.Workflow{workflow("expand", "a",
				&graph.Action{Base: graph.Base{ID: "a"}, ActionID: "put", Params: map[string]interface{}{"put": "${order}"}})},
			run:           "expand",
			input:         map[string]interface{}{"order": map[string]interface{}{"qty": 2.0}},
			expectStatus:  state.StatusSuccess,
			expectNodes:   []string{"a"},
			expectContext: map[string]interface{}{"qty": 2.0},
		},
		{
			description: "unresolved param keeps the literal",
			workflows: []*model.Workflow{workflow("literal", "a",
				put("a", "", map[string]interface{}{"note": "${missing}"}))},
			run:           "literal",
			expectStatus:  state.StatusSuccess,
			expectNodes:   []string{"a"},
			expectContext: map[string]interface{}{"note": "${missing}"},
		},
		{
			description: "param that cannot be evaluated fails the node",
			workflows: []*model.Workflow{workflow("bad-param", "a",
				&graph.Action{Base: graph.Base{ID: "a", Next: "b", OnError: "b"}, ActionID: "put", Params: map[string]interface{}{"put": map[string]interface{}{"qty": "${order +}"}}},
				put("b", "", nil))},
			run:          "bad-param",
			expectStatus: state.StatusError,
			expectKind:   types.KindConfiguration,
			expectUnit:   "a",
			expectNodes:  []string{"a"},
		},
		{
			description: "subgraph input that cannot be evaluated fails the node",
			workflows: []*model.Workflow{
				workflow("leaf", "l", put("l", "", nil)),
				workflow("bad-input", "s", &graph.Subgraph{Base: graph.Base{ID: "s"}, WorkflowID: "leaf", Input: map[string]interface{}{"qty": "${len()}"}}),
			},
			run:          "bad-input",
			expectStatus: state.StatusError,
			expectKind:   types.KindConfiguration,
			expectUnit:   "s",
			expectNodes:  []string{"s"},
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			h := newHarness(t, testCase.workflows...)
			ctx := context.Background()
			anExecution, err := h.srv.Execute(ctx, testCase.run, testCase.input)
			require.NotNil(t, anExecution)
			assert.Equal(t, testCase.expectStatus, anExecution.Status, anExecution.Error)
			if testCase.expectKind != "" {
				require.Error(t, err)
				assert.Equal(t, testCase.expectKind, types.KindOf(err))
				assert.NotEmpty(t, anExecution.Error)
			} else {
				assert.NoError(t, err)
			}
			if testCase.expectUnit != "" {
				assert.Equal(t, testCase.expectUnit, anExecution.ErrorUnitID)
			}
			assert.Equal(t, testCase.expectNodes, nodeIDs(anExecution))
			for k, v := range testCase.expectContext {
				assert.EqualValues(t, v, anExecution.Context[k], k)
			}

			stored, err := h.srv.Execution(ctx, anExecution.ID)
			require.NoError(t, err)
			assert.Equal(t, anExecution.Status, stored.Status)
		})
	}
}

func TestService_ApprovalGate(t *testing.T) {
	definition := workflow("gated", "a", put("a", "g", map[string]interface{}{"calculated": true}), gate("g", "b"), put("b", "", map[string]interface{}{"applied": true}))
	testCases := []struct {
		description  string
		approved     bool
		expectStatus state.Status
		expectNodes  []string
		expectGate   state.Status
	}{
		{description: "approved", approved: true, expectStatus: state.StatusSuccess, expectNodes: []string{"a", "g", "b"}, expectGate: state.StatusApproved},
		{description: "rejected", approved: false, expectStatus: state.StatusRejected, expectNodes: []string{"a", "g"}, expectGate: state.StatusRejected},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			h := newHarness(t, definition)
			ctx := types.EnsureExecutionContext(context.Background(), types.SessionIDKey, "ses-1", types.TaskIDKey, "task-1")
			anExecution, err := h.srv.Execute(ctx, "gated", nil)
			require.NoError(t, err)
			assert.Equal(t, state.StatusAwaitingApproval, anExecution.Status)
			assert.Equal(t, "g", anExecution.PendingApproval)
			assert.Equal(t, []string{"a", "g"}, nodeIDs(anExecution))
			assert.Equal(t, []string{"区域总监"}, anExecution.Nodes[1].Output["roles"])

			pending, err := h.approvals.ListPending(ctx)
			require.NoError(t, err)
			require.Len(t, pending, 1)
			request := pending[0]
			assert.Equal(t, anExecution.ApprovalRequestID, request.ID)
			assert.Equal(t, "ses-1", request.MetaString(approval.MetaSessionID))
			assert.Equal(t, "task-1", request.MetaString(approval.MetaTaskID))
			assert.Equal(t, anExecution.ID, request.MetaString(approval.MetaRootExecutionID))
			require.NotNil(t, request.ExpiresAt)
			assert.Equal(t, time.Hour, request.ExpiresAt.Sub(request.CreatedAt))

			resumed, err := h.srv.ResumeApproval(ctx, anExecution.ID, testCase.approved, "区域总监")
			require.NoError(t, err)
			assert.Equal(t, testCase.expectStatus, resumed.Status)
			assert.Equal(t, testCase.expectNodes, nodeIDs(resumed))
			assert.Equal(t, testCase.expectGate, resumed.Nodes[1].Status)
			assert.Equal(t, "区域总监", resumed.Nodes[1].Approver)
			assert.Empty(t, resumed.PendingApproval)

			decision, err := h.approvals.Decision(ctx, request.ID)
			require.NoError(t, err)
			assert.Equal(t, testCase.approved, decision.Approved)

			_, err = h.srv.ResumeApproval(ctx, anExecution.ID, true, "again")
			assert.True(t, errors.Is(err, types.ErrInvalidState))
		})
	}
}

func TestService_ResumeErrors(t *testing.T) {
	h := newHarness(t, workflow("plain", "a", put("a", "", nil)))
	ctx := context.Background()
	_, err := h.srv.ResumeApproval(ctx, "wfx-missing", true, "ops")
	assert.Equal(t, types.KindNotFound, types.KindOf(err))

	done, err := h.srv.Execute(ctx, "plain", nil)
	require.NoError(t, err)
	untouched, err := h.srv.ResumeApproval(ctx, done.ID, true, "ops")
	assert.Equal(t, types.KindInvalidState, types.KindOf(err))
	assert.Equal(t, state.StatusSuccess, untouched.Status)
	assert.Equal(t, nodeIDs(done), nodeIDs(untouched))
}

func TestService_ConcurrentResume(t *testing.T) {
	h := newHarness(t, workflow("gated", "g", gate("g", "b"), put("b", "", nil)))
	ctx := context.Background()
	anExecution, err := h.srv.Execute(ctx, "gated", nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = h.srv.ResumeApproval(ctx, anExecution.ID, true, "ops")
		}(i)
	}
	wg.Wait()
	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.Equal(t, types.KindInvalidState, types.KindOf(err))
	}
	assert.Equal(t, 1, succeeded)
	final, err := h.srv.Execution(ctx, anExecution.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"g", "b"}, nodeIDs(final))
}

func TestService_SubgraphApproval(t *testing.T) {
	parent := workflow("parent", "s", &graph.Subgraph{Base: graph.Base{ID: "s", Next: "a"}, WorkflowID: "child"}, put("a", "", map[string]interface{}{"after": true}))
	child := workflow("child", "c", put("c", "g", map[string]interface{}{"prepared": true}), gate("g", "d"), put("d", "", map[string]interface{}{"childDone": true}))
	testCases := []struct {
		description       string
		approved          bool
		expectStatus      state.Status
		expectChildStatus state.Status
		expectNodes       []string
		expectStatuses    []state.Status
	}{
		{
			description:       "approve resumes child then parent",
			approved:          true,
			expectStatus:      state.StatusSuccess,
			expectChildStatus: state.StatusSuccess,
			expectNodes:       []string{"s", "a"},
			expectStatuses:    []state.Status{state.StatusSuccess, state.StatusSuccess},
		},
		{
			description:       "reject rejects both",
			approved:          false,
			expectStatus:      state.StatusRejected,
			expectChildStatus: state.StatusRejected,
			expectNodes:       []string{"s"},
			expectStatuses:    []state.Status{state.StatusRejected},
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			h := newHarness(t, parent, child)
			ctx := context.Background()
			anExecution, err := h.srv.Execute(ctx, "parent", map[string]interface{}{"region": "华东"})
			require.NoError(t, err)
			assert.Equal(t, state.StatusAwaitingApproval, anExecution.Status)
			assert.Equal(t, "s", anExecution.PendingApproval)
			require.NotEmpty(t, anExecution.ChildExecutionID)
			childID := anExecution.ChildExecutionID

			pending, err := h.approvals.ListPending(ctx)
			require.NoError(t, err)
			require.Len(t, pending, 1)
			assert.Equal(t, childID, pending[0].ExecutionID)
			assert.Equal(t, anExecution.ID, pending[0].MetaString(approval.MetaRootExecutionID))

			resumed, err := h.srv.ResumeApproval(ctx, anExecution.ID, testCase.approved, "运营总监")
			require.NoError(t, err)
			assert.Equal(t, testCase.expectStatus, resumed.Status)
			assert.Equal(t, testCase.expectNodes, nodeIDs(resumed))
			assert.Equal(t, testCase.expectStatuses, nodeStatuses(resumed))
			assert.Equal(t, childID, resumed.Nodes[0].ChildExecutionID)
			assert.Equal(t, anExecution.Nodes[0].StartedAt, resumed.Nodes[0].StartedAt)

			childExecution, err := h.srv.Execution(ctx, childID)
			require.NoError(t, err)
			assert.Equal(t, testCase.expectChildStatus, childExecution.Status)
			assert.Equal(t, anExecution.ID, childExecution.ParentID)
			if testCase.approved {
				assert.Equal(t, true, resumed.Context["childDone"])
				assert.Equal(t, "华东", resumed.Context["region"])
			}
		})
	}
}

func TestService_WaitCancelled(t *testing.T) {
	h := newHarness(t, workflow("slow", "w", &graph.Wait{Base: graph.Base{ID: "w", Next: ""}, Delay: "1h"}))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	anExecution, err := h.srv.Execute(ctx, "slow", nil)
	require.Error(t, err)
	assert.Equal(t, state.StatusError, anExecution.Status)
	assert.Equal(t, "w", anExecution.ErrorUnitID)
	assert.Equal(t, []state.Status{state.StatusCancelled}, nodeStatuses(anExecution))
}

func TestService_Policy(t *testing.T) {
	chain := workflow("chain", "a", put("a", "b", map[string]interface{}{"step": 1}), put("b", "", map[string]interface{}{"step": 2}))
	recovering := workflow("recovering", "a", &graph.Action{Base: graph.Base{ID: "a", OnError: "b"}, ActionID: "put"}, put("b", "", map[string]interface{}{"recovered": true}))
	testCases := []struct {
		description  string
		defaults     *policy.Policy
		request      *policy.Policy
		run          string
		expectStatus state.Status
		expectKind   types.Kind
		expectUnit   string
	}{
		{description: "no policy", run: "chain", expectStatus: state.StatusSuccess},
		{description: "allowed by default policy", defaults: &policy.Policy{AllowList: []string{"PUT"}}, run: "chain", expectStatus: state.StatusSuccess},
		{description: "blocked by default policy", defaults: &policy.Policy{BlockList: []string{"put"}}, run: "chain", expectStatus: state.StatusError, expectKind: types.KindInvalidState, expectUnit: "a"},
		{description: "request policy overrides default", defaults: &policy.Policy{Mode: policy.ModeDeny}, request: &policy.Policy{Mode: policy.ModeAuto}, run: "chain", expectStatus: state.StatusSuccess},
		{description: "deny mode", request: &policy.Policy{Mode: policy.ModeDeny}, run: "chain", expectStatus: state.StatusError, expectKind: types.KindInvalidState, expectUnit: "a"},
		{description: "blocked action follows onError", request: &policy.Policy{AllowList: []string{"other"}}, run: "recovering", expectStatus: state.StatusError, expectKind: types.KindInvalidState, expectUnit: "b"},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			srv, err := New(definitions{chain.ID: chain, recovering.ID: recovering}, executor.New(testActions, backend), WithPolicy(testCase.defaults))
			require.NoError(t, err)
			ctx := context.Background()
			if testCase.request != nil {
				ctx = policy.WithPolicy(ctx, testCase.request)
			}
			anExecution, err := srv.Execute(ctx, testCase.run, nil)
			require.NotNil(t, anExecution)
			assert.Equal(t, testCase.expectStatus, anExecution.Status)
			if testCase.expectKind == "" {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, testCase.expectKind, types.KindOf(err))
			assert.Equal(t, testCase.expectUnit, anExecution.ErrorUnitID)
		})
	}
}

func TestService_Progress(t *testing.T) {
	var (
		mux       sync.Mutex
		snapshots []progress.Snapshot
	)
	defs := definitions{}
	for _, w := range []*model.Workflow{
		workflow("child", "c1", put("c1", "c2", nil), gate("c2", "c3"), put("c3", "", nil)),
		workflow("parent", "p1", put("p1", "p2", nil), &graph.Subgraph{Base: graph.Base{ID: "p2"}, WorkflowID: "child"}),
	} {
		defs[w.ID] = w
	}
	srv, err := New(defs, executor.New(testActions, backend), WithApprovalService(memApproval.New()), WithProgress(func(snapshot progress.Snapshot) {
		mux.Lock()
		defer mux.Unlock()
		snapshots = append(snapshots, snapshot)
	}))
	require.NoError(t, err)

	ctx, tracker := progress.WithNewTracker(context.Background(), "run-1", "parent", nil)
	anExecution, err := srv.Execute(ctx, "parent", nil)
	require.NoError(t, err)
	require.Equal(t, state.StatusAwaitingApproval, anExecution.Status)
	actual := tracker.Snapshot()
	assert.Equal(t, 2, actual.Completed)
	assert.Equal(t, 2, actual.Paused)
	assert.Empty(t, snapshots, "an outer tracker replaces the engine one")

	anExecution, err = srv.ResumeApproval(context.Background(), anExecution.ID, true, "区域总监")
	require.NoError(t, err)
	require.Equal(t, state.StatusSuccess, anExecution.Status)
	mux.Lock()
	defer mux.Unlock()
	require.NotEmpty(t, snapshots)
	last := snapshots[len(snapshots)-1]
	assert.Equal(t, anExecution.ID, last.ExecutionID)
	assert.Equal(t, 3, last.Completed)
	assert.Equal(t, 0, last.Failed)
}
