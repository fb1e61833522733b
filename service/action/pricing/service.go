// Package pricing simulates the pricing engine.
package pricing

import (
	"context"
	"reflect"
	"strings"

	"github.com/viant/opsagent/model/types"
	"github.com/viant/opsagent/service/action/sim"
)

const (
	name      = "pricing"
	basePrice = 25.0
)

// Service simulates price calculation and competitor analysis.
type Service struct{}

type (
	// CalculateInput holds the current price and requested adjustment.
	CalculateInput struct {
		Price      float64 `json:"price"`
		Percentage float64 `json:"percentage"`
		Region     string  `json:"region"`
	}

	// CalculateOutput is the suggestion.
	CalculateOutput struct {
		SuggestedPrice  float64   `json:"suggested_price"`
		Margin          float64   `json:"margin"`
		Elasticity      float64   `json:"elasticity"`
		CompetitorRange []float64 `json:"competitor_range"`
	}

	// CompetitorInput identifies the product being compared.
	CompetitorInput struct {
		ProductName string `json:"product_name"`
		Region      string `json:"region"`
	}

	// CompetitorPrice is one competitor's price point.
	CompetitorPrice struct {
		Brand string  `json:"brand"`
		Price float64 `json:"price"`
	}

	// CompetitorOutput summarises competitor prices.
	CompetitorOutput struct {
		CompetitorPrices []CompetitorPrice `json:"competitor_prices"`
		AvgPrice         float64           `json:"avg_price"`
		PricePosition    string            `json:"price_position"`
	}
)

// New creates the pricing service
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
			Name:        "calculate",
			Description: "Calculates the suggested price for an adjustment.",
			Input:       reflect.TypeOf(&CalculateInput{}),
			Output:      reflect.TypeOf(&CalculateOutput{}),
		},
		{
			Name:        "competitor.analyze",
			Description: "Compares the price against competitors.",
			Input:       reflect.TypeOf(&CompetitorInput{}),
			Output:      reflect.TypeOf(&CompetitorOutput{}),
		},
	}
}

// Method returns the specified method
func (s *Service) Method(name string) (types.Executable, error) {
	switch strings.ToLower(name) {
	case "calculate":
		return s.calculate, nil
	case "competitor.analyze":
		return s.analyze, nil
	default:
		return nil, types.NewMethodNotFoundError(name)
	}
}

func (s *Service) calculate(ctx context.Context, in, out interface{}) error {
	input, ok := in.(*CalculateInput)
	if !ok {
		return types.NewInvalidInputError(in)
	}
	output, ok := out.(*CalculateOutput)
	if !ok {
		return types.NewInvalidOutputError(out)
	}
	price := input.Price
	if price <= 0 {
		price = basePrice
	}
	output.SuggestedPrice = sim.Round2(price * (1 + input.Percentage/100))
	output.Margin = 0.6
	output.Elasticity = -0.42
	output.CompetitorRange = []float64{21.0, 32.0}
	return nil
}

func (s *Service) analyze(ctx context.Context, in, out interface{}) error {
	if _, ok := in.(*CompetitorInput); !ok {
		return types.NewInvalidInputError(in)
	}
	output, ok := out.(*CompetitorOutput)
	if !ok {
		return types.NewInvalidOutputError(out)
	}
	output.CompetitorPrices = []CompetitorPrice{
		{Brand: "品牌A", Price: 26.0},
		{Brand: "品牌B", Price: 28.0},
		{Brand: "品牌C", Price: 24.0},
	}
	total := 0.0
	for _, item := range output.CompetitorPrices {
		total += item.Price
	}
	output.AvgPrice = sim.Round2(total / float64(len(output.CompetitorPrices)))
	output.PricePosition = "中等偏上"
	return nil
}
