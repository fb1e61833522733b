// Package crm simulates the membership system.
package crm

import (
	"context"
	"reflect"
	"strings"

	"github.com/viant/opsagent/internal/clock"
	"github.com/viant/opsagent/model/types"
	"github.com/viant/opsagent/service/action/sim"
)

const name = "crm"

// Service simulates member points configuration.
type Service struct{}

// PointsInput configures points for a campaign.
type PointsInput struct {
	CampaignID string  `json:"campaign_id"`
	Multiplier float64 `json:"multiplier"`
}

// PointsOutput is the configured rule.
type PointsOutput struct {
	PointsRuleID  string  `json:"points_rule_id"`
	Multiplier    float64 `json:"points_multiplier"`
	EffectiveFrom string  `json:"effective_from"`
}

// New creates the CRM service
func New() *Service {
	return &Service{}
}

// Name returns the service name
func (s *Service) Name() string {
	return name
}

// Methods returns the service methods
func (s *Service) Methods() types.Signatures {
	return []types.Signature{
		{
			Name:        "points.config",
			Description: "Configures member points for a campaign.",
			Input:       reflect.TypeOf(&PointsInput{}),
			Output:      reflect.TypeOf(&PointsOutput{}),
		},
	}
}

// Method returns the specified method
func (s *Service) Method(name string) (types.Executable, error) {
	switch strings.ToLower(name) {
	case "points.config":
		return s.configPoints, nil
	default:
		return nil, types.NewMethodNotFoundError(name)
	}
}

func (s *Service) configPoints(ctx context.Context, in, out interface{}) error {
	input, ok := in.(*PointsInput)
	if !ok {
		return types.NewInvalidInputError(in)
	}
	output, ok := out.(*PointsOutput)
	if !ok {
		return types.NewInvalidOutputError(out)
	}
	output.PointsRuleID = sim.Code("PTS", 6, input.CampaignID)
	output.Multiplier = input.Multiplier
	if output.Multiplier <= 0 {
		output.Multiplier = 1
	}
	output.EffectiveFrom = clock.Now().Format("2006-01-02")
	return nil
}
