// Package pos simulates the point-of-sale system.
package pos

import (
	"context"
	"reflect"
	"strings"

	"github.com/viant/opsagent/model/types"
	"github.com/viant/opsagent/service/action/sim"
)

const name = "pos"

// Service simulates POS item, price and discount configuration.
type Service struct{}

type (
	// CreateProductInput configures a menu item.
	CreateProductInput struct {
		SkuID          string  `json:"sku_id"`
		ProductName    string  `json:"product_name"`
		Price          float64 `json:"price"`
		ButtonPosition string  `json:"button_position"`
		StoreCount     int     `json:"store_count"`
	}

	// CreateProductOutput is the configured item.
	CreateProductOutput struct {
		PosItemID      string `json:"pos_item_id"`
		SyncStatus     string `json:"sync_status"`
		ButtonPosition string `json:"button_position"`
		AffectedStores int    `json:"affected_stores"`
	}

	// UpdatePriceInput changes a price.
	UpdatePriceInput struct {
		SkuID          string  `json:"sku_id"`
		Price          float64 `json:"price"`
		SuggestedPrice float64 `json:"suggested_price"`
		Region         string  `json:"region"`
		StoreCount     int     `json:"store_count"`
	}

	// UpdatePriceOutput reports the change.
	UpdatePriceOutput struct {
		AffectedStores int                `json:"affected_stores"`
		EffectiveTime  string             `json:"effective_time"`
		PriceChange    map[string]float64 `json:"price_change"`
	}

	// DiscountInput configures a discount rule.
	DiscountInput struct {
		CampaignID string                 `json:"campaign_id"`
		Discount   map[string]interface{} `json:"discount"`
		Percentage float64                `json:"percentage"`
		StoreCount int                    `json:"store_count"`
	}

	// DiscountOutput is the configured rule.
	DiscountOutput struct {
		RuleID     string `json:"discount_rule_id"`
		StoreCount int    `json:"discount_store_count"`
		Effective  bool   `json:"discount_effective"`
	}
)

// New creates the POS service
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
			Name:        "product.create",
			Description: "Creates a POS menu item for a SKU.",
			Input:       reflect.TypeOf(&CreateProductInput{}),
			Output:      reflect.TypeOf(&CreateProductOutput{}),
		},
		{
			Name:        "price.update",
			Description: "Updates the POS price table.",
			Input:       reflect.TypeOf(&UpdatePriceInput{}),
			Output:      reflect.TypeOf(&UpdatePriceOutput{}),
		},
		{
			Name:        "discount.config",
			Description: "Configures a POS discount rule.",
			Input:       reflect.TypeOf(&DiscountInput{}),
			Output:      reflect.TypeOf(&DiscountOutput{}),
		},
	}
}

// Method returns the specified method
func (s *Service) Method(name string) (types.Executable, error) {
	switch strings.ToLower(name) {
	case "product.create":
		return s.createProduct, nil
	case "price.update":
		return s.updatePrice, nil
	case "discount.config":
		return s.configDiscount, nil
	default:
		return nil, types.NewMethodNotFoundError(name)
	}
}

func (s *Service) createProduct(ctx context.Context, in, out interface{}) error {
	input, ok := in.(*CreateProductInput)
	if !ok {
		return types.NewInvalidInputError(in)
	}
	output, ok := out.(*CreateProductOutput)
	if !ok {
		return types.NewInvalidOutputError(out)
	}
	output.PosItemID = sim.Code("POS", 6, input.SkuID, input.ProductName)
	output.SyncStatus = "synced"
	output.ButtonPosition = input.ButtonPosition
	if output.ButtonPosition == "" {
		output.ButtonPosition = "A1"
	}
	output.AffectedStores = sim.Stores(input.StoreCount)
	return nil
}

func (s *Service) updatePrice(ctx context.Context, in, out interface{}) error {
	input, ok := in.(*UpdatePriceInput)
	if !ok {
		return types.NewInvalidInputError(in)
	}
	output, ok := out.(*UpdatePriceOutput)
	if !ok {
		return types.NewInvalidOutputError(out)
	}
	newPrice := input.SuggestedPrice
	if newPrice == 0 {
		newPrice = input.Price
	}
	output.AffectedStores = sim.Stores(input.StoreCount)
	output.EffectiveTime = "明日 06:00"
	output.PriceChange = map[string]float64{"old": input.Price, "new": newPrice}
	return nil
}

func (s *Service) configDiscount(ctx context.Context, in, out interface{}) error {
	input, ok := in.(*DiscountInput)
	if !ok {
		return types.NewInvalidInputError(in)
	}
	output, ok := out.(*DiscountOutput)
	if !ok {
		return types.NewInvalidOutputError(out)
	}
	output.RuleID = sim.Code("RULE", 6, input.CampaignID, input.Discount, input.Percentage)
	output.StoreCount = sim.Stores(input.StoreCount)
	output.Effective = true
	return nil
}
