// Package marketing simulates the campaign platform.
package marketing

import (
	"context"
	"reflect"
	"strings"

	"github.com/viant/opsagent/model/types"
	"github.com/viant/opsagent/service/action/sim"
)

const name = "marketing"

// Service simulates campaign creation.
type Service struct{}

// CampaignInput describes a campaign.
type CampaignInput struct {
	CampaignType string                 `json:"campaign_type"`
	Discount     map[string]interface{} `json:"discount"`
	Percentage   float64                `json:"percentage"`
	Region       string                 `json:"region"`
	Duration     map[string]interface{} `json:"duration"`
}

// CampaignOutput is the created campaign.
type CampaignOutput struct {
	CampaignID     string `json:"campaign_id"`
	CampaignStatus string `json:"campaign_status"`
	EstimatedReach int    `json:"estimated_reach"`
}

// New creates the marketing service
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
			Name:        "campaign.create",
			Description: "Creates a marketing campaign.",
			Input:       reflect.TypeOf(&CampaignInput{}),
			Output:      reflect.TypeOf(&CampaignOutput{}),
		},
	}
}

// Method returns the specified method
func (s *Service) Method(name string) (types.Executable, error) {
	switch strings.ToLower(name) {
	case "campaign.create":
		return s.create, nil
	default:
		return nil, types.NewMethodNotFoundError(name)
	}
}

func (s *Service) create(ctx context.Context, in, out interface{}) error {
	input, ok := in.(*CampaignInput)
	if !ok {
		return types.NewInvalidInputError(in)
	}
	output, ok := out.(*CampaignOutput)
	if !ok {
		return types.NewInvalidOutputError(out)
	}
	output.CampaignID = sim.Code("CMP", 8, input.CampaignType, input.Discount, input.Percentage, input.Region)
	output.CampaignStatus = "active"
	output.EstimatedReach = 300000
	return nil
}
