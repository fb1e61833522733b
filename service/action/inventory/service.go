// Package inventory simulates the inventory system.
package inventory

import (
	"context"
	"reflect"
	"strings"

	"github.com/viant/opsagent/model/types"
	"github.com/viant/opsagent/service/action/sim"
)

const name = "inventory"

// Service simulates SKU management.
type Service struct{}

// CreateSKUInput describes a new product.
type CreateSKUInput struct {
	ProductName string  `json:"product_name"`
	Price       float64 `json:"price"`
	Category    string  `json:"category"`
}

// CreateSKUOutput is the created SKU.
type CreateSKUOutput struct {
	SkuID       string `json:"sku_id"`
	Barcode     string `json:"barcode"`
	ProductName string `json:"product_name"`
	Status      string `json:"sku_status"`
}

// New creates the inventory service
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
			Name:        "sku.create",
			Description: "Creates a product SKU with a barcode.",
			Input:       reflect.TypeOf(&CreateSKUInput{}),
			Output:      reflect.TypeOf(&CreateSKUOutput{}),
		},
	}
}

// Method returns the specified method
func (s *Service) Method(name string) (types.Executable, error) {
	switch strings.ToLower(name) {
	case "sku.create":
		return s.createSKU, nil
	default:
		return nil, types.NewMethodNotFoundError(name)
	}
}

func (s *Service) createSKU(ctx context.Context, in, out interface{}) error {
	input, ok := in.(*CreateSKUInput)
	if !ok {
		return types.NewInvalidInputError(in)
	}
	output, ok := out.(*CreateSKUOutput)
	if !ok {
		return types.NewInvalidOutputError(out)
	}
	productName := input.ProductName
	if productName == "" {
		productName = "未知商品"
	}
	output.SkuID = sim.Code("SKU", 8, productName, input.Category)
	output.Barcode = "69" + strings.Map(func(r rune) rune {
		if r >= 'A' {
			return '0' + (r-'A')%10
		}
		return r
	}, sim.Code("", 11, productName)[1:])
	output.ProductName = productName
	output.Status = "created"
	return nil
}
