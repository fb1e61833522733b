// Package analytics simulates the reporting system.
package analytics

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/viant/opsagent/internal/clock"
	"github.com/viant/opsagent/model/types"
	"github.com/viant/opsagent/service/action/sim"
)

const (
	name = "analytics"
	// salesPerStore is the simulated daily sales of one store.
	salesPerStore = 15876.0
	// ordersPerStore is the simulated daily order count of one store.
	ordersPerStore = 215
)

// Service simulates sales queries and report generation.
type Service struct{}

type (
	// SalesInput scopes the query.
	SalesInput struct {
		Region     string `json:"region"`
		Date       string `json:"date"`
		StoreCount int    `json:"store_count"`
	}

	// SalesOutput is the aggregate.
	SalesOutput struct {
		TotalSales    float64 `json:"total_sales"`
		OrderCount    int     `json:"order_count"`
		AvgOrderValue float64 `json:"avg_order_value"`
	}

	// ReportInput selects the report.
	ReportInput struct {
		ReportType string  `json:"report_type"`
		TotalSales float64 `json:"total_sales"`
	}

	// ReportOutput locates the report.
	ReportOutput struct {
		ReportID string `json:"report_id"`
		FileURL  string `json:"file_url"`
	}
)

// New creates the analytics service
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
			Name:        "sales.query",
			Description: "Aggregates sales for a region.",
			Input:       reflect.TypeOf(&SalesInput{}),
			Output:      reflect.TypeOf(&SalesOutput{}),
		},
		{
			Name:        "report.generate",
			Description: "Generates a report document.",
			Input:       reflect.TypeOf(&ReportInput{}),
			Output:      reflect.TypeOf(&ReportOutput{}),
		},
	}
}

// Method returns the specified method
func (s *Service) Method(name string) (types.Executable, error) {
	switch strings.ToLower(name) {
	case "sales.query":
		return s.querySales, nil
	case "report.generate":
		return s.generateReport, nil
	default:
		return nil, types.NewMethodNotFoundError(name)
	}
}

func (s *Service) querySales(ctx context.Context, in, out interface{}) error {
	input, ok := in.(*SalesInput)
	if !ok {
		return types.NewInvalidInputError(in)
	}
	output, ok := out.(*SalesOutput)
	if !ok {
		return types.NewInvalidOutputError(out)
	}
	stores := sim.Stores(input.StoreCount)
	output.TotalSales = sim.Round2(float64(stores) * salesPerStore)
	output.OrderCount = stores * ordersPerStore
	output.AvgOrderValue = sim.Round2(output.TotalSales / float64(output.OrderCount))
	return nil
}

func (s *Service) generateReport(ctx context.Context, in, out interface{}) error {
	input, ok := in.(*ReportInput)
	if !ok {
		return types.NewInvalidInputError(in)
	}
	output, ok := out.(*ReportOutput)
	if !ok {
		return types.NewInvalidOutputError(out)
	}
	reportType := input.ReportType
	if reportType == "" {
		reportType = "sales"
	}
	day := clock.Now().Format("20060102")
	output.ReportID = sim.Code("RPT", 8, reportType, input.TotalSales, day)
	output.FileURL = fmt.Sprintf("/reports/%s_%s.pdf", reportType, day)
	return nil
}
