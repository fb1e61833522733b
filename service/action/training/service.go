// Package training simulates the staff training system.
package training

import (
	"context"
	"reflect"
	"strings"

	"github.com/viant/opsagent/model/types"
	"github.com/viant/opsagent/service/action/sim"
)

const (
	name = "training"
	// staffPerStore is used to size the training audience.
	staffPerStore = 4
)

// Service simulates training assignments.
type Service struct{}

// TaskInput assigns training for a product.
type TaskInput struct {
	SkuID        string `json:"sku_id"`
	ProductName  string `json:"product_name"`
	TrainingType string `json:"training_type"`
	StoreCount   int    `json:"store_count"`
}

// TaskOutput is the assignment.
type TaskOutput struct {
	TrainingTaskID string `json:"training_task_id"`
	TargetCount    int    `json:"target_count"`
	EstimatedDays  int    `json:"estimated_days"`
}

// New creates the training service
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
			Name:        "task.create",
			Description: "Assigns product training to store staff.",
			Input:       reflect.TypeOf(&TaskInput{}),
			Output:      reflect.TypeOf(&TaskOutput{}),
		},
	}
}

// Method returns the specified method
func (s *Service) Method(name string) (types.Executable, error) {
	switch strings.ToLower(name) {
	case "task.create":
		return s.createTask, nil
	default:
		return nil, types.NewMethodNotFoundError(name)
	}
}

func (s *Service) createTask(ctx context.Context, in, out interface{}) error {
	input, ok := in.(*TaskInput)
	if !ok {
		return types.NewInvalidInputError(in)
	}
	output, ok := out.(*TaskOutput)
	if !ok {
		return types.NewInvalidOutputError(out)
	}
	output.TrainingTaskID = sim.Code("TRN", 6, input.SkuID, input.ProductName, input.TrainingType)
	output.TargetCount = sim.Stores(input.StoreCount) * staffPerStore
	output.EstimatedDays = 3
	return nil
}
