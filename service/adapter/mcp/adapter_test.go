package mcp

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/opsagent/extension"
	"github.com/viant/opsagent/service/action"
	"github.com/viant/opsagent/service/adapter"
	"github.com/viant/opsagent/service/adapter/local"
)

func TestAdapter_InProcess(t *testing.T) {
	ctx := context.Background()
	actions := extension.NewActions(action.Services()...)
	backend := local.New(actions, local.WithFailures("pos.price.update", -1))
	srv, err := NewInProcess(ctx, NewServer(actions, backend), time.Second)
	require.NoError(t, err)
	defer srv.Close()
	assert.Len(t, srv.Tools(), len(actions.Tools()))

	testCases := []struct {
		description string
		toolID      string
		params      map[string]interface{}
		expectErr   error
		expectOK    bool
		expectKey   string
	}{
		{description: "success", toolID: "pricing.calculate", params: map[string]interface{}{"price": 20.0}, expectOK: true, expectKey: "suggested_price"},
		{description: "tool error", toolID: "pos.price.update"},
		{description: "unknown tool", toolID: "erp.order.create", expectErr: adapter.ErrUnknownTool},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			result, err := srv.Call(ctx, testCase.toolID, testCase.params)
			if testCase.expectErr != nil {
				assert.ErrorIs(t, err, testCase.expectErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, testCase.expectOK, result.Success)
			if testCase.expectOK {
				assert.Contains(t, result.Output, testCase.expectKey)
			} else {
				assert.Contains(t, result.Error, "simulated failure")
			}
		})
	}
}
