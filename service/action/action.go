// Package action lists the simulated backend systems.
package action

import (
	"github.com/viant/opsagent/model/types"
	"github.com/viant/opsagent/service/action/analytics"
	"github.com/viant/opsagent/service/action/app"
	"github.com/viant/opsagent/service/action/crm"
	"github.com/viant/opsagent/service/action/inventory"
	"github.com/viant/opsagent/service/action/marketing"
	"github.com/viant/opsagent/service/action/menuboard"
	"github.com/viant/opsagent/service/action/pos"
	"github.com/viant/opsagent/service/action/pricing"
	"github.com/viant/opsagent/service/action/training"
)

// Services returns one instance of every simulated system.
func Services() []types.Service {
	return []types.Service{
		inventory.New(),
		pos.New(),
		app.New(),
		menuboard.New(),
		pricing.New(),
		marketing.New(),
		crm.New(),
		training.New(),
		analytics.New(),
	}
}
