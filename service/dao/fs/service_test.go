package fs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afs"
	"github.com/viant/opsagent/model/execution"
	"github.com/viant/opsagent/model/state"
	"github.com/viant/opsagent/service/dao"
	"github.com/viant/opsagent/service/dao/record"
)

func TestService(t *testing.T) {
	ctx := context.Background()
	srv, err := New(ctx, afs.New(), t.TempDir(), record.Execution)
	require.NoError(t, err)

	first := execution.NewWorkflow("wfx-1", "report-gen-workflow", map[string]interface{}{"region": "全国"})
	first.Status = state.StatusSuccess
	second := execution.NewWorkflow("wfx-2", "price-adjust-workflow", nil)
	second.CreatedAt = first.CreatedAt.Add(time.Second)
	second.Status = state.StatusAwaitingApproval
	second.PendingApproval = "node-2"
	require.NoError(t, srv.Save(ctx, first))
	require.NoError(t, srv.Save(ctx, second))

	loaded, err := srv.Load(ctx, "wfx-2")
	require.NoError(t, err)
	assert.Equal(t, "node-2", loaded.PendingApproval)
	assert.Equal(t, state.StatusAwaitingApproval, loaded.Status)

	list, err := srv.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "wfx-1", list[0].ID)

	paused, err := srv.List(ctx, dao.NewParameter(dao.ParamStatus, string(state.StatusAwaitingApproval)))
	require.NoError(t, err)
	require.Len(t, paused, 1)
	assert.Equal(t, "wfx-2", paused[0].ID)

	require.NoError(t, srv.Delete(ctx, "wfx-1"))
	_, err = srv.Load(ctx, "wfx-1")
	assert.ErrorIs(t, err, dao.ErrNotFound)
	assert.ErrorIs(t, srv.Delete(ctx, "wfx-1"), dao.ErrNotFound)
}
