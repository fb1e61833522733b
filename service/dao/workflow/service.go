package workflow

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/viant/afs"
	"github.com/viant/opsagent/model"
	"github.com/viant/opsagent/service/meta"
	"gopkg.in/yaml.v3"
)

// Service loads and holds workflow definitions by id.
type Service struct {
	metaService *meta.Service
	mux         sync.RWMutex
	workflows   map[string]*model.Workflow
}

// DecodeYAML decodes and validates a workflow from YAML
func (s *Service) DecodeYAML(encoded []byte) (*model.Workflow, error) {
	workflow := &model.Workflow{}
	if err := yaml.Unmarshal(encoded, workflow); err != nil {
		return nil, fmt.Errorf("failed to decode workflow: %w", err)
	}
	if err := validate(workflow); err != nil {
		return nil, err
	}
	return workflow, nil
}

// Load loads and validates a workflow from YAML at the specified URL
func (s *Service) Load(ctx context.Context, URL string) (*model.Workflow, error) {
	if filepath.Ext(URL) == "" {
		URL += ".yaml"
	}
	workflow := &model.Workflow{}
	if err := s.metaService.Load(ctx, URL, workflow); err != nil {
		return nil, fmt.Errorf("failed to load workflow from %s: %w", URL, err)
	}
	if workflow.ID == "" {
		workflow.ID = getWorkflowIDFromURL(URL)
	}
	if err := validate(workflow); err != nil {
		return nil, fmt.Errorf("invalid workflow %s: %w", URL, err)
	}
	return workflow, nil
}

// LoadAll loads every YAML definition under URL.
func (s *Service) LoadAll(ctx context.Context, URL string) ([]*model.Workflow, error) {
	URLs, err := s.metaService.List(ctx, URL, ".yaml", ".yml")
	if err != nil {
		return nil, err
	}
	sort.Strings(URLs)
	var ret []*model.Workflow
	for _, candidate := range URLs {
		workflow, err := s.Load(ctx, candidate)
		if err != nil {
			return nil, err
		}
		ret = append(ret, workflow)
	}
	return ret, nil
}

// Register validates and stores workflows, replacing any with the same id.
func (s *Service) Register(workflows ...*model.Workflow) error {
	for _, workflow := range workflows {
		if err := validate(workflow); err != nil {
			return err
		}
	}
	s.mux.Lock()
	defer s.mux.Unlock()
	for _, workflow := range workflows {
		s.workflows[workflow.ID] = workflow
	}
	return nil
}

// Replace swaps the whole set of definitions.
func (s *Service) Replace(workflows []*model.Workflow) {
	index := make(map[string]*model.Workflow, len(workflows))
	for _, workflow := range workflows {
		index[workflow.ID] = workflow
	}
	s.mux.Lock()
	s.workflows = index
	s.mux.Unlock()
}

// Lookup returns the definition by id.
func (s *Service) Lookup(id string) (*model.Workflow, bool) {
	s.mux.RLock()
	defer s.mux.RUnlock()
	workflow, ok := s.workflows[id]
	return workflow, ok
}

// List returns definitions ordered by id.
func (s *Service) List() []*model.Workflow {
	s.mux.RLock()
	ret := make([]*model.Workflow, 0, len(s.workflows))
	for _, workflow := range s.workflows {
		ret = append(ret, workflow)
	}
	s.mux.RUnlock()
	sort.Slice(ret, func(i, j int) bool { return ret[i].ID < ret[j].ID })
	return ret
}

func validate(workflow *model.Workflow) error {
	if issues := workflow.Validate(); len(issues) > 0 {
		return errors.Join(issues...)
	}
	return nil
}

// getWorkflowIDFromURL extracts workflow id from URL (file name without extension)
func getWorkflowIDFromURL(URL string) string {
	base := filepath.Base(URL)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// New creates a new workflow service instance
func New(opts ...Option) *Service {
	ret := &Service{
		workflows: map[string]*model.Workflow{},
	}
	for _, opt := range opts {
		opt(ret)
	}
	if ret.metaService == nil {
		ret.metaService = meta.New(afs.New(), "")
	}
	return ret
}
