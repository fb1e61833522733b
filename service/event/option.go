package event

import (
	"github.com/viant/opsagent/service/messaging/fs"
	"github.com/viant/opsagent/service/messaging/memory"
	"github.com/viant/opsagent/service/messaging/nats"
)

type Option func(s *Service)

// WithFSConfig sets the per-queue filesystem configuration.
func WithFSConfig(newConfig func(name string) fs.Config) Option {
	return func(s *Service) {
		s.fsConfig = newConfig
	}
}

// WithMemoryConfig sets the per-queue memory configuration.
func WithMemoryConfig(newConfig func(name string) memory.Config) Option {
	return func(s *Service) {
		s.memoryConfig = newConfig
	}
}

// WithNATSConfig sets the per-queue NATS configuration.
func WithNATSConfig(newConfig func(name string) nats.Config) Option {
	return func(s *Service) {
		s.natsConfig = newConfig
	}
}
