package planner

import (
	"context"
	"fmt"

	"github.com/viant/opsagent/model"
	"github.com/viant/opsagent/model/graph"
)

// Agents pulled into a plan by the entities found in the text.
const (
	PricingAgent   = "pricing-agent"
	MarketingAgent = "marketing-agent"
)

// planned is the outcome of the planning path shared by Process and Preview.
type planned struct {
	intent    *model.Intent
	plan      *model.Plan
	agents    []*model.Agent
	workflows [][]string
}

// plan classifies text and decomposes it into one step per agent.
func (s *Service) plan(ctx context.Context, text string) (*planned, error) {
	intent, err := s.classify(ctx, text)
	if err != nil {
		return nil, err
	}
	agentIDs := model.CloneStrings(intent.RequiredAgents)
	if _, ok := intent.Entities[model.EntityPrice]; ok {
		agentIDs = append(agentIDs, PricingAgent)
	}
	if _, ok := intent.Entities[model.EntityDiscount]; ok {
		agentIDs = append(agentIDs, MarketingAgent)
	}
	agentIDs = unique(agentIDs)
	intent.RequiredAgents = agentIDs

	ret := &planned{intent: intent, plan: &model.Plan{}}
	instruction := Instruction(text, intent.Entities)
	seen := map[string]bool{}
	for _, agentID := range agentIDs {
		agent, ok := s.catalog.Agent(agentID)
		if !ok {
			s.logger.WithField("agent", agentID).Warn("intent refers to unknown agent")
			continue
		}
		workflows, err := s.dispatcher.PlanWorkflows(agentID, instruction)
		if err != nil {
			return nil, err
		}
		ret.agents = append(ret.agents, agent)
		ret.workflows = append(ret.workflows, workflows)
		ret.plan.Steps = append(ret.plan.Steps, &model.PlanStep{AgentID: agentID, Instruction: instruction, Priority: len(ret.plan.Steps) + 1})
		for _, workflowID := range workflows {
			s.walk(workflowID, seen, func(definition *model.Workflow, node graph.Node) {
				if node.Kind() == graph.KindApproval {
					ret.plan.ApprovalNodes = append(ret.plan.ApprovalNodes, definition.ID+"/"+node.Common().ID)
				}
			})
		}
	}
	return ret, nil
}

func (s *Service) classify(ctx context.Context, text string) (*model.Intent, error) {
	intent, err := s.classifier.Classify(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to classify request: %w", err)
	}
	if intent.Entities == nil {
		intent.Entities = map[string]interface{}{}
	}
	return intent, nil
}

// walk visits the nodes of a definition in declaration order, descending into
// subgraphs once per definition.
func (s *Service) walk(workflowID string, seen map[string]bool, visit func(definition *model.Workflow, node graph.Node)) {
	if seen[workflowID] {
		return
	}
	seen[workflowID] = true
	definition, ok := s.catalog.Lookup(workflowID)
	if !ok {
		return
	}
	for _, node := range definition.Nodes {
		visit(definition, node)
		if subgraph, ok := node.(*graph.Subgraph); ok {
			s.walk(subgraph.WorkflowID, seen, visit)
		}
	}
}

// Instruction appends the entities to text as "[entities: k=v, ...]", keys sorted.
func Instruction(text string, entities map[string]interface{}) string {
	if len(entities) == 0 {
		return text
	}
	return text + " [entities: " + formatEntities(entities) + "]"
}

func unique(values []string) []string {
	var ret []string
	seen := map[string]bool{}
	for _, value := range values {
		if value == "" || seen[value] {
			continue
		}
		seen[value] = true
		ret = append(ret, value)
	}
	return ret
}
