// Package definition holds the read-only catalog: actions, agents, intent
// patterns, region store counts and workflow definitions.
package definition

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/viant/opsagent/model"
	"github.com/viant/opsagent/model/graph"
	"github.com/viant/opsagent/service/dao/workflow"
	"github.com/viant/opsagent/service/meta"
)

const (
	actionsFile   = "actions.yaml"
	agentsFile    = "agents.yaml"
	intentsFile   = "intents.yaml"
	regionsFile   = "regions.yaml"
	templatesFile = "templates.yaml"
	workflowsPath = "workflows"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Service is a snapshot of the catalog; Load swaps the snapshot atomically.
type Service struct {
	metaService *meta.Service
	workflows   *workflow.Service
	mux         sync.RWMutex
	actions     map[string]*model.Action
	agents      []*model.Agent
	agentIndex  map[string]*model.Agent
	intents     []*model.IntentPattern
	regions     map[string]int
	templates   []*model.Template
}

// Load reads and cross-checks every catalog document.
func (s *Service) Load(ctx context.Context) error {
	catalog := &model.Catalog{}
	documents := []struct {
		location string
		target   *model.Catalog
		optional bool
	}{
		{location: actionsFile, target: &model.Catalog{}},
		{location: agentsFile, target: &model.Catalog{}},
		{location: intentsFile, target: &model.Catalog{}},
		{location: regionsFile, target: &model.Catalog{}, optional: true},
		{location: templatesFile, target: &model.Catalog{}, optional: true},
	}
	for _, document := range documents {
		if document.optional {
			if ok, _ := s.metaService.Exists(ctx, document.location); !ok {
				continue
			}
		}
		if err := s.metaService.Load(ctx, document.location, document.target); err != nil {
			return err
		}
		catalog.Actions = append(catalog.Actions, document.target.Actions...)
		catalog.Agents = append(catalog.Agents, document.target.Agents...)
		catalog.Intents = append(catalog.Intents, document.target.Intents...)
		catalog.Templates = append(catalog.Templates, document.target.Templates...)
		if len(document.target.Regions) > 0 {
			catalog.Regions = document.target.Regions
		}
	}
	workflows, err := s.workflows.LoadAll(ctx, s.metaService.URL(workflowsPath))
	if err != nil {
		return err
	}
	catalog.Workflows = workflows
	return s.Apply(catalog)
}

// Apply validates catalog and replaces the current snapshot.
func (s *Service) Apply(catalog *model.Catalog) error {
	if err := Check(catalog); err != nil {
		return err
	}
	actions := make(map[string]*model.Action, len(catalog.Actions))
	for _, action := range catalog.Actions {
		actions[action.ID] = action
	}
	agentIndex := make(map[string]*model.Agent, len(catalog.Agents))
	for _, agent := range catalog.Agents {
		agentIndex[agent.ID] = agent
	}
	s.workflows.Replace(catalog.Workflows)
	s.mux.Lock()
	defer s.mux.Unlock()
	s.actions = actions
	s.agents = catalog.Agents
	s.agentIndex = agentIndex
	s.intents = catalog.Intents
	s.regions = catalog.Regions
	s.templates = catalog.Templates
	return nil
}

// Check validates catalog entries and the references between them.
func Check(catalog *model.Catalog) error {
	var issues []error
	actions := map[string]bool{}
	for _, action := range catalog.Actions {
		if err := validate.Struct(action); err != nil {
			issues = append(issues, fmt.Errorf("action %v: %w", action.ID, err))
		}
		if actions[action.ID] {
			issues = append(issues, fmt.Errorf("duplicate action %v", action.ID))
		}
		actions[action.ID] = true
	}
	workflows := map[string]bool{}
	for _, item := range catalog.Workflows {
		if workflows[item.ID] {
			issues = append(issues, fmt.Errorf("duplicate workflow %v", item.ID))
		}
		workflows[item.ID] = true
		issues = append(issues, item.Validate()...)
	}
	for _, item := range catalog.Workflows {
		for _, node := range item.Nodes {
			switch actual := node.(type) {
			case *graph.Action:
				if !actions[actual.ActionID] {
					issues = append(issues, fmt.Errorf("workflow %v node %v: unknown action %v", item.ID, actual.ID, actual.ActionID))
				}
			case *graph.Subgraph:
				if !workflows[actual.WorkflowID] {
					issues = append(issues, fmt.Errorf("workflow %v node %v: unknown workflow %v", item.ID, actual.ID, actual.WorkflowID))
				}
			}
		}
	}
	agents := map[string]bool{}
	for _, agent := range catalog.Agents {
		if err := validate.Struct(agent); err != nil {
			issues = append(issues, fmt.Errorf("agent %v: %w", agent.ID, err))
		}
		if agents[agent.ID] {
			issues = append(issues, fmt.Errorf("duplicate agent %v", agent.ID))
		}
		agents[agent.ID] = true
		for _, id := range agent.Workflows() {
			if !workflows[id] {
				issues = append(issues, fmt.Errorf("agent %v: unknown workflow %v", agent.ID, id))
			}
		}
	}
	for _, intent := range catalog.Intents {
		if err := validate.Struct(intent); err != nil {
			issues = append(issues, fmt.Errorf("intent %v: %w", intent.Type, err))
		}
		for _, id := range append(append([]string{}, intent.RequiredAgents...), intent.OptionalAgents...) {
			if !agents[id] {
				issues = append(issues, fmt.Errorf("intent %v: unknown agent %v", intent.Type, id))
			}
		}
	}
	templates := map[string]bool{}
	for _, template := range catalog.Templates {
		if err := validate.Struct(template); err != nil {
			issues = append(issues, fmt.Errorf("template %v: %w", template.ID, err))
		}
		if templates[template.ID] {
			issues = append(issues, fmt.Errorf("duplicate template %v", template.ID))
		}
		templates[template.ID] = true
	}
	return errors.Join(issues...)
}

// Action returns the catalog action by id.
func (s *Service) Action(id string) (*model.Action, bool) {
	s.mux.RLock()
	defer s.mux.RUnlock()
	action, ok := s.actions[id]
	return action, ok
}

// Actions returns catalog actions ordered by id.
func (s *Service) Actions() []*model.Action {
	s.mux.RLock()
	ret := make([]*model.Action, 0, len(s.actions))
	for _, action := range s.actions {
		ret = append(ret, action)
	}
	s.mux.RUnlock()
	sort.Slice(ret, func(i, j int) bool { return ret[i].ID < ret[j].ID })
	return ret
}

// Agent returns the agent by id.
func (s *Service) Agent(id string) (*model.Agent, bool) {
	s.mux.RLock()
	defer s.mux.RUnlock()
	agent, ok := s.agentIndex[id]
	return agent, ok
}

// Agents returns agents in declaration order.
func (s *Service) Agents() []*model.Agent {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return append([]*model.Agent{}, s.agents...)
}

// Intents returns intent patterns in declaration order.
func (s *Service) Intents() []*model.IntentPattern {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return append([]*model.IntentPattern{}, s.intents...)
}

// Regions returns store counts per region.
func (s *Service) Regions() map[string]int {
	s.mux.RLock()
	defer s.mux.RUnlock()
	ret := make(map[string]int, len(s.regions))
	for k, v := range s.regions {
		ret[k] = v
	}
	return ret
}

// Templates returns the scenario templates in catalog order.
func (s *Service) Templates() []*model.Template {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return append([]*model.Template{}, s.templates...)
}

// Template returns the scenario template by id.
func (s *Service) Template(id string) (*model.Template, bool) {
	s.mux.RLock()
	defer s.mux.RUnlock()
	for _, template := range s.templates {
		if template.ID == id {
			return template, true
		}
	}
	return nil, false
}

// Lookup returns a workflow definition by id.
func (s *Service) Lookup(id string) (*model.Workflow, bool) {
	return s.workflows.Lookup(id)
}

// Workflows returns definitions ordered by id.
func (s *Service) Workflows() []*model.Workflow {
	return s.workflows.List()
}

// UpsertWorkflow decodes a YAML definition and registers it after checking its references.
func (s *Service) UpsertWorkflow(data []byte) (*model.Workflow, error) {
	item, err := s.workflows.DecodeYAML(data)
	if err != nil {
		return nil, err
	}
	for _, node := range item.Nodes {
		switch actual := node.(type) {
		case *graph.Action:
			if _, ok := s.Action(actual.ActionID); !ok {
				return nil, fmt.Errorf("workflow %v node %v: unknown action %v", item.ID, actual.ID, actual.ActionID)
			}
		case *graph.Subgraph:
			if _, ok := s.Lookup(actual.WorkflowID); !ok {
				return nil, fmt.Errorf("workflow %v node %v: unknown workflow %v", item.ID, actual.ID, actual.WorkflowID)
			}
		}
	}
	if err = s.workflows.Register(item); err != nil {
		return nil, err
	}
	return item, nil
}

// New creates a catalog backed by metaService; relative document locations resolve against its base URL.
func New(metaService *meta.Service) *Service {
	return &Service{
		metaService: metaService,
		workflows:   workflow.New(workflow.WithMetaService(metaService)),
		actions:     map[string]*model.Action{},
		agentIndex:  map[string]*model.Agent{},
		regions:     map[string]int{},
	}
}
