// Package menuboard simulates the in-store menu board CMS.
package menuboard

import (
	"context"
	"reflect"
	"strings"

	"github.com/viant/opsagent/model/types"
	"github.com/viant/opsagent/service/action/sim"
)

const name = "menuboard"

// offline boards that never acknowledge an update.
var offline = []string{"SH-0234", "BJ-0891"}

// Service simulates menu board content updates.
type Service struct{}

// UpdateInput pushes content.
type UpdateInput struct {
	SkuID      string `json:"sku_id"`
	StoreCount int    `json:"store_count"`
}

// UpdateOutput reports the rollout.
type UpdateOutput struct {
	UpdatedStores int      `json:"updated_stores"`
	FailedStores  []string `json:"failed_stores"`
	SuccessRate   float64  `json:"success_rate"`
}

// New creates the menu board service
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
			Name:        "content.update",
			Description: "Pushes new content to store menu boards.",
			Input:       reflect.TypeOf(&UpdateInput{}),
			Output:      reflect.TypeOf(&UpdateOutput{}),
		},
	}
}

// Method returns the specified method
func (s *Service) Method(name string) (types.Executable, error) {
	switch strings.ToLower(name) {
	case "content.update":
		return s.update, nil
	default:
		return nil, types.NewMethodNotFoundError(name)
	}
}

func (s *Service) update(ctx context.Context, in, out interface{}) error {
	input, ok := in.(*UpdateInput)
	if !ok {
		return types.NewInvalidInputError(in)
	}
	output, ok := out.(*UpdateOutput)
	if !ok {
		return types.NewInvalidOutputError(out)
	}
	stores := sim.Stores(input.StoreCount)
	failed := offline
	if stores <= len(offline) {
		failed = nil
	}
	output.FailedStores = append([]string{}, failed...)
	output.UpdatedStores = stores - len(failed)
	output.SuccessRate = sim.Round2(float64(output.UpdatedStores) / float64(stores))
	return nil
}
