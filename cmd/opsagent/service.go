package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"
	"github.com/viant/opsagent"
	"github.com/viant/opsagent/internal/logging"
)

const autoApprover = "auto"

// newService builds the service from the config file overridden by flags.
func newService(ctx context.Context, command *cli.Command) (*opsagent.Service, error) {
	config := opsagent.DefaultConfig()
	if location := command.String("config"); location != "" {
		var err error
		if config, err = opsagent.LoadConfig(ctx, location); err != nil {
			return nil, err
		}
	}
	if value := command.String("store"); value != "" {
		config.Store.Kind = value
	}
	if value := command.String("store-url"); value != "" {
		if config.Store.Kind == opsagent.StoreRedis {
			config.Store.Redis.Addr = value
		} else {
			config.Store.URL = value
		}
	}
	if value := command.String("catalog"); value != "" {
		config.Catalog.URL = value
	}
	if value := command.String("log-level"); value != "" {
		config.Log.Level = value
	}
	if value := command.String("log-format"); value != "" {
		config.Log.Format = value
	}
	if value := command.String("trace"); value != "" {
		config.Tracing.Enabled = true
		config.Tracing.Output = value
	}
	logging.Setup(config.Log.Level, config.Log.Format)
	return opsagent.New(ctx, opsagent.WithConfig(config))
}

// withService runs fn with a service that is closed afterwards.
func withService(fn func(ctx context.Context, command *cli.Command, srv *opsagent.Service) error) cli.ActionFunc {
	return func(ctx context.Context, command *cli.Command) error {
		srv, err := newService(ctx, command)
		if err != nil {
			return fmt.Errorf("failed to initialise service: %w", err)
		}
		defer func() {
			if err := srv.Close(); err != nil {
				logging.Logger("cli").WithError(err).Warn("failed to close service")
			}
		}()
		return fn(ctx, command, srv)
	}
}

// printJSON writes v as indented JSON to the root command writer.
func printJSON(command *cli.Command, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(command.Root().Writer, string(data))
	return err
}

// parseInput turns k=v pairs into a map; values are decoded as JSON when
// possible and kept as strings otherwise.
func parseInput(pairs []string) (map[string]interface{}, error) {
	ret := map[string]interface{}{}
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid input %q, expected key=value", pair)
		}
		var decoded interface{}
		if err := json.Unmarshal([]byte(value), &decoded); err != nil {
			decoded = value
		}
		ret[key] = decoded
	}
	return ret, nil
}

// requireArg returns the positional arguments joined by spaces.
func requireArg(command *cli.Command, name string) (string, error) {
	if command.Args().Len() == 0 {
		return "", fmt.Errorf("%s is required", name)
	}
	return strings.Join(command.Args().Slice(), " "), nil
}
