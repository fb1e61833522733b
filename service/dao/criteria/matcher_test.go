package criteria

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/viant/opsagent/service/dao"
)

func TestMatches(t *testing.T) {
	fields := map[string]string{dao.ParamStatus: "success", dao.ParamSessionID: "ses-1"}
	field := func(name string) (string, bool) {
		value, ok := fields[name]
		return value, ok
	}
	testCases := []struct {
		description string
		parameters  []*dao.Parameter
		expect      bool
	}{
		{description: "no parameters", expect: true},
		{description: "status match", parameters: []*dao.Parameter{dao.NewParameter(dao.ParamStatus, "success")}, expect: true},
		{description: "status mismatch", parameters: []*dao.Parameter{dao.NewParameter(dao.ParamStatus, "error")}, expect: false},
		{description: "any of", parameters: []*dao.Parameter{dao.NewParameter(dao.ParamStatus, "error", "success")}, expect: true},
		{description: "unknown parameter ignored", parameters: []*dao.Parameter{dao.NewParameter("Color", "red")}, expect: true},
		{
			description: "all must match",
			parameters: []*dao.Parameter{
				dao.NewParameter(dao.ParamStatus, "success"),
				dao.NewParameter(dao.ParamSessionID, "ses-2"),
			},
			expect: false,
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			assert.Equal(t, testCase.expect, Matches(field, testCase.parameters))
		})
	}
}
