package planner

import (
	"context"
	"fmt"
	"sort"

	"github.com/viant/opsagent/model"
	"github.com/viant/opsagent/model/graph"
)

const (
	// Nationwide is the region assumed when the request names none.
	Nationwide          = "全国"
	nationwideStores    = 2847
	minutesPerAgent     = 30
	seriesMinimumSKUs   = 5
	largeRolloutStores  = 2000
	mediumRolloutStores = 1000
	largeRolloutFactor  = 1.5
	mediumRolloutFactor = 1.2
	minutesPerHour      = 60.0
)

// Preview plans text and estimates its impact without running anything.
func (s *Service) Preview(ctx context.Context, text string) (*model.Preview, error) {
	planned, err := s.plan(ctx, text)
	if err != nil {
		return nil, err
	}
	ret := &model.Preview{
		Text:           text,
		Intent:         planned.intent,
		Plan:           planned.plan,
		RequiredAgents: planned.plan.Agents(),
		Steps:          s.steps(planned),
	}
	var suggested []string
	for _, agent := range planned.agents {
		suggested = append(suggested, agent.Workflows()...)
	}
	ret.SuggestedWorkflows = unique(suggested)
	ret.Impact = s.impact(planned, ret.Steps)
	return ret, nil
}

// impact estimates the stores, SKUs, systems and time a plan touches.
func (s *Service) impact(planned *planned, steps []*model.PreviewStep) *model.Impact {
	entities := planned.intent.Entities
	region, _ := entities[model.EntityRegion].(string)
	if region == "" {
		region = Nationwide
	}
	regions := s.catalog.Regions()
	stores, ok := regions[region]
	if !ok {
		if stores, ok = regions[Nationwide]; !ok {
			stores = nationwideStores
		}
	}
	if count, ok := asInt(entities[model.EntityStoreCount]); ok {
		stores = count
	}
	skus := 1
	if count, ok := asInt(entities[model.EntitySKUCount]); ok {
		skus = count
	}
	if _, ok := entities[model.EntityProductSeries]; ok && skus < seriesMinimumSKUs {
		skus = seriesMinimumSKUs
	}

	var systems []string
	for _, step := range steps {
		systems = append(systems, step.Systems...)
	}
	systems = unique(systems)
	sort.Strings(systems)

	minutes := float64(len(planned.plan.Steps) * minutesPerAgent)
	switch {
	case stores > largeRolloutStores:
		minutes *= largeRolloutFactor
	case stores > mediumRolloutStores:
		minutes *= mediumRolloutFactor
	}

	var roles []string
	for _, agent := range planned.agents {
		roles = append(roles, agent.RequiresApprovalFrom...)
	}
	seen := map[string]bool{}
	for _, workflows := range planned.workflows {
		for _, workflowID := range workflows {
			s.walk(workflowID, seen, func(_ *model.Workflow, node graph.Node) {
				if approval, ok := node.(*graph.Approval); ok {
					roles = append(roles, approval.Roles...)
				}
			})
		}
	}
	roles = unique(roles)
	return &model.Impact{
		Region:            region,
		AffectedStores:    stores,
		AffectedSKUs:      skus,
		AffectedSystems:   systems,
		EstimatedMinutes:  int(minutes),
		EstimatedDuration: formatMinutes(minutes),
		RequiresApproval:  len(planned.plan.ApprovalNodes) > 0 || len(roles) > 0,
		ApprovalRoles:     roles,
	}
}

// steps lists the action nodes of every planned workflow in plan order.
func (s *Service) steps(planned *planned) []*model.PreviewStep {
	var ret []*model.PreviewStep
	for i, agent := range planned.agents {
		seen := map[string]bool{}
		for _, workflowID := range planned.workflows[i] {
			s.walk(workflowID, seen, func(definition *model.Workflow, node graph.Node) {
				actionNode, ok := node.(*graph.Action)
				if !ok {
					return
				}
				step := &model.PreviewStep{
					Step:       len(ret) + 1,
					AgentID:    agent.ID,
					WorkflowID: definition.ID,
					NodeID:     actionNode.ID,
					Name:       actionNode.Label(),
					Kind:       string(actionNode.Kind()),
				}
				if action, ok := s.catalog.Action(actionNode.ActionID); ok {
					step.Systems = model.CloneStrings(action.Systems)
					step.Duration = action.EstimatedDuration
				}
				ret = append(ret, step)
			})
		}
	}
	return ret
}

func formatMinutes(minutes float64) string {
	if minutes < minutesPerHour {
		return fmt.Sprintf("%d min", int(minutes))
	}
	return fmt.Sprintf("%.1f h", minutes/minutesPerHour)
}

func asInt(value interface{}) (int, bool) {
	switch actual := value.(type) {
	case int:
		return actual, true
	case int64:
		return int(actual), true
	case float64:
		return int(actual), true
	}
	return 0, false
}
