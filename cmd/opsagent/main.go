package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
)

func main() {
	_ = godotenv.Load()
	if err := NewCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// NewCommand returns the opsagent command tree.
func NewCommand() *cli.Command {
	return &cli.Command{
		Name:                  "opsagent",
		Usage:                 "Plan and run store operations requests through approval-gated workflows",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Configuration file (yaml, json or toml)",
				Sources: cli.EnvVars("OPSAGENT_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "store",
				Usage:   "Record store (memory, fs, redis)",
				Sources: cli.EnvVars("OPSAGENT_STORE"),
			},
			&cli.StringFlag{
				Name:    "store-url",
				Usage:   "Base URL of the fs store, or the redis address",
				Sources: cli.EnvVars("OPSAGENT_STORE_URL"),
			},
			&cli.StringFlag{
				Name:    "catalog",
				Usage:   "Catalog location; the embedded catalog when empty",
				Sources: cli.EnvVars("OPSAGENT_CATALOG"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Sources: cli.EnvVars("OPSAGENT_LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "Log format (text, json)",
				Sources: cli.EnvVars("OPSAGENT_LOG_FORMAT"),
			},
			&cli.StringFlag{
				Name:    "trace",
				Usage:   "Write OpenTelemetry spans to the given file",
				Sources: cli.EnvVars("OPSAGENT_TRACE"),
			},
			&cli.BoolFlag{
				Name:  "auto-approve",
				Usage: "Approve every approval gate as it is reached",
			},
		},
		Commands: []*cli.Command{
			NewRunCommand(),
			NewPreviewCommand(),
			NewEnrichCommand(),
			NewApproveCommand(),
			NewExecuteCommand(),
			NewResumeCommand(),
			NewSessionsCommand(),
			NewTasksCommand(),
			NewExecutionsCommand(),
			NewWorkflowsCommand(),
			NewAgentsCommand(),
			NewTemplatesCommand(),
			NewExpireCommand(),
			NewToolsCommand(),
		},
	}
}
