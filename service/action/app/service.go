// Package app simulates the ordering app back office.
package app

import (
	"context"
	"reflect"
	"strings"

	"github.com/viant/opsagent/internal/clock"
	"github.com/viant/opsagent/model/types"
	"github.com/viant/opsagent/service/action/sim"
)

const name = "app"

// defaultAudience is the member count reached when no recipients are given.
const defaultAudience = 50000

// Service simulates app catalog, price and notification tools.
type Service struct{}

type (
	// ProductSyncInput publishes a product.
	ProductSyncInput struct {
		SkuID       string `json:"sku_id"`
		ProductName string `json:"product_name"`
		CampaignID  string `json:"campaign_id"`
	}

	// ProductSyncOutput is the published product.
	ProductSyncOutput struct {
		AppProductID string `json:"app_product_id"`
		CacheCleared bool   `json:"cache_cleared"`
		CdnRefreshed bool   `json:"cdn_refreshed"`
	}

	// PriceSyncInput publishes a price.
	PriceSyncInput struct {
		SkuID string  `json:"sku_id"`
		Price float64 `json:"price"`
	}

	// PriceSyncOutput reports the price sync.
	PriceSyncOutput struct {
		CacheCleared bool   `json:"cache_cleared"`
		EffectiveAt  string `json:"effective_at"`
	}

	// NotificationInput sends a message.
	NotificationInput struct {
		Recipients []string `json:"recipients"`
		Message    string   `json:"message"`
		Channel    string   `json:"channel"`
	}

	// NotificationOutput reports delivery.
	NotificationOutput struct {
		NotificationID string `json:"notification_id"`
		SentCount      int    `json:"sent_count"`
		FailedCount    int    `json:"failed_count"`
		Channel        string `json:"channel"`
	}
)

// New creates the app service
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
			Name:        "product.sync",
			Description: "Publishes product information to the app.",
			Input:       reflect.TypeOf(&ProductSyncInput{}),
			Output:      reflect.TypeOf(&ProductSyncOutput{}),
		},
		{
			Name:        "price.sync",
			Description: "Publishes prices to the app and clears caches.",
			Input:       reflect.TypeOf(&PriceSyncInput{}),
			Output:      reflect.TypeOf(&PriceSyncOutput{}),
		},
		{
			Name:        "notification.send",
			Description: "Sends a notification to stores or members.",
			Input:       reflect.TypeOf(&NotificationInput{}),
			Output:      reflect.TypeOf(&NotificationOutput{}),
		},
	}
}

// Method returns the specified method
func (s *Service) Method(name string) (types.Executable, error) {
	switch strings.ToLower(name) {
	case "product.sync":
		return s.syncProduct, nil
	case "price.sync":
		return s.syncPrice, nil
	case "notification.send":
		return s.sendNotification, nil
	default:
		return nil, types.NewMethodNotFoundError(name)
	}
}

func (s *Service) syncProduct(ctx context.Context, in, out interface{}) error {
	input, ok := in.(*ProductSyncInput)
	if !ok {
		return types.NewInvalidInputError(in)
	}
	output, ok := out.(*ProductSyncOutput)
	if !ok {
		return types.NewInvalidOutputError(out)
	}
	output.AppProductID = sim.Code("APP", 6, input.SkuID, input.ProductName, input.CampaignID)
	output.CacheCleared = true
	output.CdnRefreshed = true
	return nil
}

func (s *Service) syncPrice(ctx context.Context, in, out interface{}) error {
	if _, ok := in.(*PriceSyncInput); !ok {
		return types.NewInvalidInputError(in)
	}
	output, ok := out.(*PriceSyncOutput)
	if !ok {
		return types.NewInvalidOutputError(out)
	}
	output.CacheCleared = true
	output.EffectiveAt = clock.Now().Format("2006-01-02T15:04:05")
	return nil
}

func (s *Service) sendNotification(ctx context.Context, in, out interface{}) error {
	input, ok := in.(*NotificationInput)
	if !ok {
		return types.NewInvalidInputError(in)
	}
	output, ok := out.(*NotificationOutput)
	if !ok {
		return types.NewInvalidOutputError(out)
	}
	output.NotificationID = sim.Code("NOTIF", 8, input.Recipients, input.Message)
	output.SentCount = len(input.Recipients)
	if output.SentCount == 0 {
		output.SentCount = defaultAudience
	}
	output.Channel = input.Channel
	if output.Channel == "" {
		output.Channel = "app"
	}
	return nil
}
