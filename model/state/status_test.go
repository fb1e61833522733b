package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus_IsTerminal(t *testing.T) {
	testCases := []struct {
		status   Status
		terminal bool
		paused   bool
	}{
		{status: StatusPending},
		{status: StatusRunning},
		{status: StatusAwaitingApproval, paused: true},
		{status: StatusSuccess, terminal: true},
		{status: StatusError, terminal: true},
		{status: StatusRejected, terminal: true},
		{status: StatusApproved, terminal: true},
	}
	for _, testCase := range testCases {
		t.Run(testCase.status.String(), func(t *testing.T) {
			assert.Equal(t, testCase.terminal, testCase.status.IsTerminal())
			assert.Equal(t, testCase.paused, testCase.status.IsPaused())
		})
	}
}
