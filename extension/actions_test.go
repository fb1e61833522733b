package extension

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/viant/opsagent/service/action"
)

func TestActions_Resolve(t *testing.T) {
	actions := NewActions(action.Services()...)
	testCases := []struct {
		toolID  string
		service string
		method  string
		ok      bool
	}{
		{toolID: "pos.price.update", service: "pos", method: "price.update", ok: true},
		{toolID: "inventory.sku.create", service: "inventory", method: "sku.create", ok: true},
		{toolID: "erp.order.create"},
		{toolID: "pos"},
		{toolID: "pos."},
	}
	for _, testCase := range testCases {
		t.Run(testCase.toolID, func(t *testing.T) {
			service, method, ok := actions.Resolve(testCase.toolID)
			assert.Equal(t, testCase.ok, ok)
			if !ok {
				return
			}
			assert.Equal(t, testCase.service, service.Name())
			assert.Equal(t, testCase.method, method)
		})
	}
}

func TestActions_Tools(t *testing.T) {
	actions := NewActions(action.Services()...)
	var ids []string
	for _, tool := range actions.Tools() {
		ids = append(ids, tool.ID)
	}
	expect := []string{
		"analytics.report.generate", "analytics.sales.query",
		"app.notification.send", "app.price.sync", "app.product.sync",
		"crm.points.config",
		"inventory.sku.create",
		"marketing.campaign.create",
		"menuboard.content.update",
		"pos.discount.config", "pos.price.update", "pos.product.create",
		"pricing.calculate", "pricing.competitor.analyze",
		"training.task.create",
	}
	assert.Equal(t, expect, ids)
}
