package logging

import (
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestSetup(t *testing.T) {
	testCases := []struct {
		description string
		level       string
		format      string
		expectLevel log.Level
		expectJSON  bool
	}{
		{description: "debug text", level: "debug", format: "text", expectLevel: log.DebugLevel},
		{description: "warn json", level: "warn", format: "json", expectLevel: log.WarnLevel, expectJSON: true},
		{description: "invalid level", level: "loud", format: "", expectLevel: log.InfoLevel},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			Setup(testCase.level, testCase.format)
			assert.Equal(t, testCase.expectLevel, log.GetLevel())
			_, isJSON := log.StandardLogger().Formatter.(*log.JSONFormatter)
			assert.Equal(t, testCase.expectJSON, isJSON)
		})
	}
	entry := Logger("processor")
	assert.Equal(t, "processor", entry.Data["module"])
}
