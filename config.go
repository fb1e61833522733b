package opsagent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/viant/afs"
	"github.com/viant/opsagent/policy"
	"github.com/viant/opsagent/service/meta"
)

// Store kinds.
const (
	StoreMemory = "memory"
	StoreFS     = "fs"
	StoreRedis  = "redis"
)

// Adapter kinds.
const (
	AdapterLocal = "local"
	AdapterMCP   = "mcp"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Config is a serialisable representation of the service configuration. It
// can be populated from YAML, JSON or TOML; the zero value of any section
// inherits the defaults.
type Config struct {
	Store    StoreConfig    `json:"store" yaml:"store" toml:"store"`
	Catalog  CatalogConfig  `json:"catalog" yaml:"catalog" toml:"catalog"`
	Adapter  AdapterConfig  `json:"adapter" yaml:"adapter" toml:"adapter"`
	Events   EventsConfig   `json:"events" yaml:"events" toml:"events"`
	Approval ApprovalConfig `json:"approval" yaml:"approval" toml:"approval"`
	Engine   EngineConfig   `json:"engine" yaml:"engine" toml:"engine"`
	Tracing  TracingConfig  `json:"tracing" yaml:"tracing" toml:"tracing"`
	Log      LogConfig      `json:"log" yaml:"log" toml:"log"`
}

type (
	// StoreConfig selects where sessions, tasks and executions are kept.
	StoreConfig struct {
		Kind  string      `json:"kind" yaml:"kind" toml:"kind" validate:"oneof=memory fs redis"`
		URL   string      `json:"url,omitempty" yaml:"url,omitempty" toml:"url" validate:"required_if=Kind fs"`
		Redis RedisConfig `json:"redis,omitempty" yaml:"redis,omitempty" toml:"redis"`
	}

	RedisConfig struct {
		Addr     string `json:"addr,omitempty" yaml:"addr,omitempty" toml:"addr"`
		Password string `json:"password,omitempty" yaml:"password,omitempty" toml:"password"`
		DB       int    `json:"db,omitempty" yaml:"db,omitempty" toml:"db" validate:"gte=0"`
		Prefix   string `json:"prefix,omitempty" yaml:"prefix,omitempty" toml:"prefix"`
	}

	// CatalogConfig locates the definitions; an empty URL uses the embedded catalog.
	CatalogConfig struct {
		URL string `json:"url,omitempty" yaml:"url,omitempty" toml:"url"`
	}

	AdapterConfig struct {
		Kind string `json:"kind" yaml:"kind" toml:"kind" validate:"oneof=local mcp"`
		// Timeout bounds a single tool call when neither node nor action sets one.
		Timeout string    `json:"timeout,omitempty" yaml:"timeout,omitempty" toml:"timeout"`
		Latency string    `json:"latency,omitempty" yaml:"latency,omitempty" toml:"latency"`
		MCP     MCPConfig `json:"mcp,omitempty" yaml:"mcp,omitempty" toml:"mcp"`
	}

	// MCPConfig launches an MCP server over stdio.
	MCPConfig struct {
		Command string   `json:"command,omitempty" yaml:"command,omitempty" toml:"command"`
		Args    []string `json:"args,omitempty" yaml:"args,omitempty" toml:"args"`
		Env     []string `json:"env,omitempty" yaml:"env,omitempty" toml:"env"`
		Timeout string   `json:"timeout,omitempty" yaml:"timeout,omitempty" toml:"timeout"`
	}

	EventsConfig struct {
		Vendor  string `json:"vendor" yaml:"vendor" toml:"vendor" validate:"oneof=memory fs nats"`
		URL     string `json:"url,omitempty" yaml:"url,omitempty" toml:"url"`
		Subject string `json:"subject,omitempty" yaml:"subject,omitempty" toml:"subject"`
		// Log installs a listener logging every unit event.
		Log bool `json:"log,omitempty" yaml:"log,omitempty" toml:"log"`
	}

	ApprovalConfig struct {
		// Timeout is the default expiry of an approval request.
		Timeout string `json:"timeout,omitempty" yaml:"timeout,omitempty" toml:"timeout"`
	}

	EngineConfig struct {
		MaxDepth int            `json:"maxDepth,omitempty" yaml:"maxDepth,omitempty" toml:"maxDepth" validate:"gte=0"`
		Policy   *policy.Policy `json:"policy,omitempty" yaml:"policy,omitempty" toml:"policy"`
	}

	TracingConfig struct {
		Enabled     bool   `json:"enabled,omitempty" yaml:"enabled,omitempty" toml:"enabled"`
		ServiceName string `json:"serviceName,omitempty" yaml:"serviceName,omitempty" toml:"serviceName"`
		Output      string `json:"output,omitempty" yaml:"output,omitempty" toml:"output"`
	}

	LogConfig struct {
		Level  string `json:"level,omitempty" yaml:"level,omitempty" toml:"level"`
		Format string `json:"format,omitempty" yaml:"format,omitempty" toml:"format" validate:"omitempty,oneof=text json"`
	}
)

// DefaultConfig returns an in-process configuration: memory stores, the
// embedded catalog and the local simulator.
func DefaultConfig() *Config {
	return &Config{
		Store:    StoreConfig{Kind: StoreMemory, Redis: RedisConfig{Addr: "localhost:6379", Prefix: "opsagent"}},
		Adapter:  AdapterConfig{Kind: AdapterLocal, Timeout: "30s", MCP: MCPConfig{Timeout: "30s"}},
		Events:   EventsConfig{Vendor: "memory", Subject: "opsagent"},
		Approval: ApprovalConfig{Timeout: "24h"},
		Engine:   EngineConfig{MaxDepth: 8},
		Tracing:  TracingConfig{ServiceName: "opsagent"},
		Log:      LogConfig{Level: "info", Format: "text"},
	}
}

// Validate returns aggregated error describing invalid settings or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	var errs []error
	if err := validate.Struct(c); err != nil {
		errs = append(errs, err)
	}
	if c.Store.Kind == StoreRedis && c.Store.Redis.Addr == "" {
		errs = append(errs, fmt.Errorf("store.redis.addr is required for redis store"))
	}
	if c.Adapter.Kind == AdapterMCP && c.Adapter.MCP.Command == "" {
		errs = append(errs, fmt.Errorf("adapter.mcp.command is required for mcp adapter"))
	}
	durations := map[string]string{
		"adapter.timeout":     c.Adapter.Timeout,
		"adapter.latency":     c.Adapter.Latency,
		"adapter.mcp.timeout": c.Adapter.MCP.Timeout,
		"approval.timeout":    c.Approval.Timeout,
	}
	for name, value := range durations {
		if _, err := parseDuration(value); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// LoadConfig reads the document at URL over the defaults; the format follows
// the extension (yaml, json or toml) and ${env.X} expressions are expanded.
func LoadConfig(ctx context.Context, URL string) (*Config, error) {
	ret := DefaultConfig()
	if err := meta.New(afs.New(), "").Load(ctx, URL, ret); err != nil {
		return nil, err
	}
	if err := ret.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", URL, err)
	}
	return ret, nil
}

func parseDuration(value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	return time.ParseDuration(value)
}
