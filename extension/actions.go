package extension

import (
	"sort"
	"strings"
	"sync"

	"github.com/viant/opsagent/model/types"
)

// Actions is a registry of local action services
type Actions struct {
	services map[string]types.Service
	mux      sync.RWMutex
}

// Lookup returns a service by name
func (s *Actions) Lookup(name string) types.Service {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return s.services[name]
}

// Register registers services, replacing any with the same name
func (s *Actions) Register(services ...types.Service) {
	s.mux.Lock()
	defer s.mux.Unlock()
	for _, service := range services {
		s.services[service.Name()] = service
	}
}

// Resolve splits a tool id ("pos.price.update") into its service and method.
func (s *Actions) Resolve(toolID string) (types.Service, string, bool) {
	index := strings.Index(toolID, ".")
	if index <= 0 || index == len(toolID)-1 {
		return nil, "", false
	}
	service := s.Lookup(toolID[:index])
	if service == nil {
		return nil, "", false
	}
	return service, toolID[index+1:], true
}

// Tool describes one registered tool.
type Tool struct {
	ID        string
	Signature *types.Signature
}

// Tools returns every registered tool ordered by id.
func (s *Actions) Tools() []*Tool {
	s.mux.RLock()
	var ret []*Tool
	for name, service := range s.services {
		signatures := service.Methods()
		for i := range signatures {
			ret = append(ret, &Tool{ID: name + "." + signatures[i].Name, Signature: &signatures[i]})
		}
	}
	s.mux.RUnlock()
	sort.Slice(ret, func(i, j int) bool { return ret[i].ID < ret[j].ID })
	return ret
}

// NewActions creates a registry with the supplied services
func NewActions(services ...types.Service) *Actions {
	ret := &Actions{services: make(map[string]types.Service)}
	ret.Register(services...)
	return ret
}
