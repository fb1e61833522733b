package opsagent_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "github.com/viant/afs/embed"
	"github.com/viant/opsagent"
	"github.com/viant/opsagent/internal/clock"
	"github.com/viant/opsagent/model/state"
	"github.com/viant/opsagent/model/types"
	"github.com/viant/opsagent/service/approval"
)

const priceRequest = "华东地区芒果奶茶调价，定价28元"

func newService(t *testing.T) *opsagent.Service {
	srv, err := opsagent.New(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })
	return srv
}

func TestService_ProcessAndApprove(t *testing.T) {
	testCases := []struct {
		description  string
		approved     bool
		expectStatus state.Status
	}{
		{description: "approved rollout", approved: true, expectStatus: state.StatusSuccess},
		{description: "rejected rollout", approved: false, expectStatus: state.StatusRejected},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			srv := newService(t)
			ctx := context.Background()
			runtime := srv.Runtime()

			session, err := srv.Process(ctx, priceRequest)
			require.NoError(t, err)
			require.Equal(t, state.StatusAwaitingApproval, session.Status, session.Error)
			assert.Equal(t, "price_adjust", session.Intent.Type)
			assert.Equal(t, []string{"pricing-agent"}, session.Plan.Agents())
			assert.Equal(t, []string{"price-adjust-workflow/node-2"}, session.Plan.ApprovalNodes)
			assert.Equal(t, session.Tasks, session.PendingApprovals)

			pending, err := runtime.PendingApprovals(ctx, approval.WithSessionID(session.ID))
			require.NoError(t, err)
			require.Len(t, pending, 1)
			assert.Equal(t, "node-2", pending[0].NodeID)
			assert.Equal(t, session.Tasks[0], pending[0].MetaString(approval.MetaTaskID))

			session, err = srv.ApproveSession(ctx, session.ID, testCase.approved, "财务总监")
			require.NoError(t, err)
			assert.Equal(t, testCase.expectStatus, session.Status)
			assert.Empty(t, session.PendingApprovals)

			stored, err := runtime.Session(ctx, session.ID)
			require.NoError(t, err)
			assert.Equal(t, testCase.expectStatus, stored.Status)
			task, err := runtime.Task(ctx, session.Tasks[0])
			require.NoError(t, err)
			assert.Equal(t, testCase.expectStatus, task.Status)
			executions, err := runtime.Executions(ctx, opsagent.StatusFilter(testCase.expectStatus))
			require.NoError(t, err)
			assert.Len(t, executions, 1)
			actions, err := runtime.ActionExecutions(ctx)
			require.NoError(t, err)
			assert.NotEmpty(t, actions)

			pending, err = runtime.PendingApprovals(ctx)
			require.NoError(t, err)
			assert.Empty(t, pending)
			if testCase.approved {
				assert.Contains(t, session.Summary, "price-adjust-workflow")
				assert.Contains(t, session.Brief, "intent: price_adjust")
			}
		})
	}
}

func TestService_Preview(t *testing.T) {
	srv := newService(t)
	ctx := context.Background()
	preview, err := srv.Preview(ctx, priceRequest)
	require.NoError(t, err)
	assert.Equal(t, []string{"pricing-agent"}, preview.RequiredAgents)
	assert.Equal(t, "华东", preview.Impact.Region)
	assert.Equal(t, 892, preview.Impact.AffectedStores)
	assert.True(t, preview.Impact.RequiresApproval)
	assert.Contains(t, preview.Impact.ApprovalRoles, "财务总监")
	assert.NotEmpty(t, preview.Steps)

	sessions, err := srv.Runtime().Sessions(ctx)
	require.NoError(t, err)
	assert.Empty(t, sessions)
	executions, err := srv.Runtime().Executions(ctx)
	require.NoError(t, err)
	assert.Empty(t, executions)
}

func TestService_ExpireApprovals(t *testing.T) {
	srv := newService(t)
	ctx := context.Background()
	session, err := srv.Process(ctx, priceRequest)
	require.NoError(t, err)
	require.Equal(t, state.StatusAwaitingApproval, session.Status)
	standalone, err := srv.Execute(ctx, "price-adjust-workflow", map[string]interface{}{"price": 28.0})
	require.NoError(t, err)
	require.Equal(t, state.StatusAwaitingApproval, standalone.Status)

	expired, err := srv.ExpireApprovals(ctx)
	require.NoError(t, err)
	assert.Zero(t, expired)

	later := time.Now().Add(25 * time.Hour)
	clock.NowFunc = func() time.Time { return later }
	defer func() { clock.NowFunc = time.Now }()

	expired, err = srv.ExpireApprovals(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, expired)

	session, err = srv.Runtime().Session(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, state.StatusRejected, session.Status)
	assert.Equal(t, approval.SystemApprover, session.Approver)
	standalone, err = srv.Runtime().Execution(ctx, standalone.ID)
	require.NoError(t, err)
	assert.Equal(t, state.StatusRejected, standalone.Status)
}

func TestService_AutoApproveTask(t *testing.T) {
	srv := newService(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	task, err := srv.CreateTask(ctx, "pricing-agent", "调价 [entities: price=28]", map[string]interface{}{"price": 28.0})
	require.NoError(t, err)
	task, err = srv.RunTask(ctx, task.ID)
	require.NoError(t, err)
	require.Equal(t, state.StatusAwaitingApproval, task.Status)

	stop := srv.AutoApprove(ctx, 10*time.Millisecond)
	defer stop()
	require.Eventually(t, func() bool {
		current, err := srv.Runtime().Task(ctx, task.ID)
		return err == nil && current.Status == state.StatusSuccess
	}, 5*time.Second, 20*time.Millisecond)
}

func TestService_ResumeApproval_OwnedExecution(t *testing.T) {
	testCases := []struct {
		description  string
		approved     bool
		expectStatus state.Status
	}{
		{description: "approved session workflow", approved: true, expectStatus: state.StatusSuccess},
		{description: "rejected session workflow", approved: false, expectStatus: state.StatusRejected},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			srv := newService(t)
			ctx := context.Background()
			runtime := srv.Runtime()

			session, err := srv.Process(ctx, priceRequest)
			require.NoError(t, err)
			require.Equal(t, state.StatusAwaitingApproval, session.Status)
			task, err := runtime.Task(ctx, session.Tasks[0])
			require.NoError(t, err)
			executionID := task.CurrentExecution()
			require.NotEmpty(t, executionID)

			anExecution, err := srv.ResumeApproval(ctx, executionID, testCase.approved, "ops")
			require.NoError(t, err)
			assert.Equal(t, executionID, anExecution.ID)
			assert.Equal(t, testCase.expectStatus, anExecution.Status)

			task, err = runtime.Task(ctx, task.ID)
			require.NoError(t, err)
			assert.Equal(t, testCase.expectStatus, task.Status)
			session, err = runtime.Session(ctx, session.ID)
			require.NoError(t, err)
			assert.Equal(t, testCase.expectStatus, session.Status)
			assert.Empty(t, session.PendingApprovals)
			assert.Equal(t, "ops", session.Approver)

			_, err = srv.ResumeApproval(ctx, executionID, true, "ops")
			assert.Equal(t, types.KindInvalidState, types.KindOf(err))
			_, err = srv.ApproveSession(ctx, session.ID, true, "ops")
			assert.Equal(t, types.KindInvalidState, types.KindOf(err))
		})
	}
}

func TestService_ResumeTask_SessionTask(t *testing.T) {
	srv := newService(t)
	ctx := context.Background()
	session, err := srv.Process(ctx, priceRequest)
	require.NoError(t, err)
	require.Equal(t, state.StatusAwaitingApproval, session.Status)

	task, err := srv.ResumeTask(ctx, session.Tasks[0], true, "ops")
	require.NoError(t, err)
	assert.Equal(t, state.StatusSuccess, task.Status)
	session, err = srv.Runtime().Session(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, state.StatusSuccess, session.Status)
}

func TestService_ResumeApproval_OwnedTask(t *testing.T) {
	srv := newService(t)
	ctx := context.Background()

	task, err := srv.CreateTask(ctx, "pricing-agent", "调价 [entities: price=28]", map[string]interface{}{"price": 28.0})
	require.NoError(t, err)
	task, err = srv.RunTask(ctx, task.ID)
	require.NoError(t, err)
	require.Equal(t, state.StatusAwaitingApproval, task.Status)

	anExecution, err := srv.ResumeApproval(ctx, task.CurrentExecution(), true, "ops")
	require.NoError(t, err)
	assert.Equal(t, state.StatusSuccess, anExecution.Status)
	task, err = srv.Runtime().Task(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, state.StatusSuccess, task.Status)

	_, err = srv.ResumeTask(ctx, task.ID, true, "ops")
	assert.Equal(t, types.KindInvalidState, types.KindOf(err))
}

func TestService_Enrich(t *testing.T) {
	srv := newService(t)
	ctx := context.Background()
	assert.Len(t, srv.Runtime().Templates(), 6)
	_, err := srv.Runtime().Template("missing")
	assert.Equal(t, types.KindNotFound, types.KindOf(err))

	enriched, err := srv.Enrich(ctx, "华东区全线汉堡产品涨价5%，下周一生效")
	require.NoError(t, err)
	require.NotNil(t, enriched.Template)
	assert.Equal(t, "regional_price_adjust", enriched.Template.ID)
	assert.NotContains(t, enriched.Normalized, "下周一")
	assert.Equal(t, "全部", enriched.Entities["category"])
	assert.Equal(t, 5.0, enriched.Entities["percentage"])
	assert.NotEmpty(t, enriched.Complexity)
}

func TestService_Errors(t *testing.T) {
	srv := newService(t)
	ctx := context.Background()

	_, err := srv.ApproveSession(ctx, "ses-missing", true, "ops")
	assert.Equal(t, types.KindNotFound, types.KindOf(err))
	_, err = srv.ResumeApproval(ctx, "wf-missing", true, "ops")
	assert.Equal(t, types.KindNotFound, types.KindOf(err))
	_, err = srv.ResumeTask(ctx, "task-missing", true, "ops")
	assert.Equal(t, types.KindNotFound, types.KindOf(err))
	_, err = srv.Runtime().Workflow("missing-workflow")
	assert.Equal(t, types.KindNotFound, types.KindOf(err))

	anExecution, err := srv.Execute(ctx, "missing-workflow", nil)
	require.Error(t, err)
	assert.Equal(t, types.KindNotFound, types.KindOf(err))
	assert.Equal(t, state.StatusError, anExecution.Status)
	assert.Empty(t, anExecution.Nodes)

	_, err = opsagent.New(ctx, opsagent.WithConfig(&opsagent.Config{Store: opsagent.StoreConfig{Kind: "oracle"}}))
	assert.Equal(t, types.KindConfiguration, types.KindOf(err))
}

func TestRuntime_UpsertWorkflow(t *testing.T) {
	srv := newService(t)
	ctx := context.Background()
	runtime := srv.Runtime()

	_, err := runtime.UpsertWorkflow([]byte(`
id: quick-notify
start: notify
nodes:
  - id: notify
    type: action
    action: send-notification
`))
	require.NoError(t, err)
	anExecution, err := srv.Execute(ctx, "quick-notify", nil)
	require.NoError(t, err)
	assert.Equal(t, state.StatusSuccess, anExecution.Status)
	require.Len(t, anExecution.Nodes, 1)
	assert.NotEmpty(t, anExecution.Nodes[0].ActionExecutionID)

	_, err = runtime.UpsertWorkflow([]byte(`
id: broken
start: a
nodes:
  - id: a
    type: action
    action: no-such-action
`))
	assert.Equal(t, types.KindConfiguration, types.KindOf(err))

	require.NoError(t, runtime.RefreshCatalog(ctx))
	_, err = runtime.Workflow("quick-notify")
	assert.Equal(t, types.KindNotFound, types.KindOf(err))
	assert.Len(t, runtime.Workflows(), 4)
	assert.Len(t, runtime.Agents(), 5)
}
