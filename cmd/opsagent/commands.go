package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
	"github.com/viant/opsagent"
	"github.com/viant/opsagent/model/state"
	"github.com/viant/opsagent/service/adapter/mcp"
	"github.com/viant/opsagent/service/dao"
)

func decisionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "reject",
			Usage: "Reject instead of approving",
		},
		&cli.StringFlag{
			Name:  "approver",
			Usage: "Name recorded with the decision",
			Value: "cli",
		},
	}
}

func statusFlag() cli.Flag {
	return &cli.StringSliceFlag{
		Name:  "status",
		Usage: "Only list records with one of the given statuses",
	}
}

func NewRunCommand() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "Process a request and print the session",
		ArgsUsage: "TEXT",
		Action: withService(func(ctx context.Context, command *cli.Command, srv *opsagent.Service) error {
			text, err := requireArg(command, "TEXT")
			if err != nil {
				return err
			}
			session, err := srv.Process(ctx, text)
			for err == nil && command.Bool("auto-approve") && session.Status == state.StatusAwaitingApproval {
				session, err = srv.ApproveSession(ctx, session.ID, true, autoApprover)
			}
			if session != nil {
				if printErr := printJSON(command, session); printErr != nil {
					return printErr
				}
			}
			return err
		}),
	}
}

func NewPreviewCommand() *cli.Command {
	return &cli.Command{
		Name:      "preview",
		Usage:     "Plan a request and estimate its impact without running it",
		ArgsUsage: "TEXT",
		Action: withService(func(ctx context.Context, command *cli.Command, srv *opsagent.Service) error {
			text, err := requireArg(command, "TEXT")
			if err != nil {
				return err
			}
			preview, err := srv.Preview(ctx, text)
			if err != nil {
				return err
			}
			return printJSON(command, preview)
		}),
	}
}

func NewEnrichCommand() *cli.Command {
	return &cli.Command{
		Name:      "enrich",
		Usage:     "Complete a request from its scenario template and rate its complexity",
		ArgsUsage: "TEXT",
		Action: withService(func(ctx context.Context, command *cli.Command, srv *opsagent.Service) error {
			text, err := requireArg(command, "TEXT")
			if err != nil {
				return err
			}
			enriched, err := srv.Enrich(ctx, text)
			if err != nil {
				return err
			}
			return printJSON(command, enriched)
		}),
	}
}

func NewApproveCommand() *cli.Command {
	return &cli.Command{
		Name:      "approve",
		Usage:     "Approve or reject every approval a session waits on",
		ArgsUsage: "SESSION_ID",
		Flags:     decisionFlags(),
		Action: withService(func(ctx context.Context, command *cli.Command, srv *opsagent.Service) error {
			sessionID, err := requireArg(command, "SESSION_ID")
			if err != nil {
				return err
			}
			session, err := srv.ApproveSession(ctx, sessionID, !command.Bool("reject"), command.String("approver"))
			if session != nil {
				if printErr := printJSON(command, session); printErr != nil {
					return printErr
				}
			}
			return err
		}),
	}
}

func NewExecuteCommand() *cli.Command {
	return &cli.Command{
		Name:      "execute",
		Usage:     "Run one workflow definition",
		ArgsUsage: "WORKFLOW_ID",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "input",
				Aliases: []string{"i"},
				Usage:   "Input value as key=value; JSON values are decoded",
			},
		},
		Action: withService(func(ctx context.Context, command *cli.Command, srv *opsagent.Service) error {
			workflowID, err := requireArg(command, "WORKFLOW_ID")
			if err != nil {
				return err
			}
			input, err := parseInput(command.StringSlice("input"))
			if err != nil {
				return err
			}
			anExecution, err := srv.Execute(ctx, workflowID, input)
			for err == nil && command.Bool("auto-approve") && anExecution.Status == state.StatusAwaitingApproval {
				anExecution, err = srv.ResumeApproval(ctx, anExecution.ID, true, autoApprover)
			}
			if anExecution != nil {
				if printErr := printJSON(command, anExecution); printErr != nil {
					return printErr
				}
			}
			return err
		}),
	}
}

func NewResumeCommand() *cli.Command {
	return &cli.Command{
		Name:      "resume",
		Usage:     "Approve or reject a workflow execution waiting on approval",
		ArgsUsage: "EXECUTION_ID",
		Flags:     decisionFlags(),
		Action: withService(func(ctx context.Context, command *cli.Command, srv *opsagent.Service) error {
			executionID, err := requireArg(command, "EXECUTION_ID")
			if err != nil {
				return err
			}
			anExecution, err := srv.ResumeApproval(ctx, executionID, !command.Bool("reject"), command.String("approver"))
			if anExecution != nil {
				if printErr := printJSON(command, anExecution); printErr != nil {
					return printErr
				}
			}
			return err
		}),
	}
}

func NewSessionsCommand() *cli.Command {
	return &cli.Command{
		Name:  "sessions",
		Usage: "List sessions",
		Flags: []cli.Flag{statusFlag()},
		Action: withService(func(ctx context.Context, command *cli.Command, srv *opsagent.Service) error {
			sessions, err := srv.Runtime().Sessions(ctx, statusParameters(command)...)
			if err != nil {
				return err
			}
			return printJSON(command, sessions)
		}),
	}
}

func NewTasksCommand() *cli.Command {
	return &cli.Command{
		Name:  "tasks",
		Usage: "List agent tasks",
		Flags: []cli.Flag{
			statusFlag(),
			&cli.StringFlag{Name: "session", Usage: "Only list tasks of the given session"},
		},
		Action: withService(func(ctx context.Context, command *cli.Command, srv *opsagent.Service) error {
			parameters := statusParameters(command)
			if sessionID := command.String("session"); sessionID != "" {
				parameters = append(parameters, dao.NewParameter(dao.ParamSessionID, sessionID))
			}
			tasks, err := srv.Runtime().Tasks(ctx, parameters...)
			if err != nil {
				return err
			}
			return printJSON(command, tasks)
		}),
	}
}

func NewExecutionsCommand() *cli.Command {
	return &cli.Command{
		Name:  "executions",
		Usage: "List workflow executions",
		Flags: []cli.Flag{
			statusFlag(),
			&cli.StringFlag{Name: "workflow", Usage: "Only list executions of the given definition"},
		},
		Action: withService(func(ctx context.Context, command *cli.Command, srv *opsagent.Service) error {
			parameters := statusParameters(command)
			if workflowID := command.String("workflow"); workflowID != "" {
				parameters = append(parameters, dao.NewParameter(dao.ParamWorkflowID, workflowID))
			}
			executions, err := srv.Runtime().Executions(ctx, parameters...)
			if err != nil {
				return err
			}
			return printJSON(command, executions)
		}),
	}
}

func NewWorkflowsCommand() *cli.Command {
	return &cli.Command{
		Name:  "workflows",
		Usage: "List workflow definitions",
		Action: withService(func(ctx context.Context, command *cli.Command, srv *opsagent.Service) error {
			writer := command.Root().Writer
			for _, workflow := range srv.Runtime().Workflows() {
				fmt.Fprintf(writer, "%s\t%s\t%d nodes\n", workflow.ID, workflow.Label(), len(workflow.Nodes))
			}
			return nil
		}),
	}
}

func NewAgentsCommand() *cli.Command {
	return &cli.Command{
		Name:  "agents",
		Usage: "List capability agents and their workflows",
		Action: withService(func(ctx context.Context, command *cli.Command, srv *opsagent.Service) error {
			writer := command.Root().Writer
			for _, agent := range srv.Runtime().Agents() {
				fmt.Fprintf(writer, "%s\t%s\t%v\n", agent.ID, agent.Label(), agent.Workflows())
			}
			return nil
		}),
	}
}

func NewTemplatesCommand() *cli.Command {
	return &cli.Command{
		Name:      "templates",
		Usage:     "List scenario templates, or show one by id",
		ArgsUsage: "[ID]",
		Action: withService(func(ctx context.Context, command *cli.Command, srv *opsagent.Service) error {
			if id := command.Args().First(); id != "" {
				template, err := srv.Runtime().Template(id)
				if err != nil {
					return err
				}
				return printJSON(command, template)
			}
			writer := command.Root().Writer
			for _, template := range srv.Runtime().Templates() {
				fmt.Fprintf(writer, "%s\t%s\t%s\n", template.ID, template.Category, template.Name)
			}
			return nil
		}),
	}
}

func NewExpireCommand() *cli.Command {
	return &cli.Command{
		Name:  "expire",
		Usage: "Reject every approval request past its deadline",
		Action: withService(func(ctx context.Context, command *cli.Command, srv *opsagent.Service) error {
			count, err := srv.ExpireApprovals(ctx)
			fmt.Fprintf(command.Root().Writer, "expired: %d\n", count)
			return err
		}),
	}
}

func NewToolsCommand() *cli.Command {
	return &cli.Command{
		Name:  "tools",
		Usage: "Simulated backend systems",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List the tools of the simulated systems",
				Action: withService(func(ctx context.Context, command *cli.Command, srv *opsagent.Service) error {
					for _, tool := range srv.Actions().Tools() {
						fmt.Fprintf(command.Root().Writer, "%s\t%s\n", tool.ID, tool.Signature.Description)
					}
					return nil
				}),
			},
			{
				Name:  "serve",
				Usage: "Serve the simulated systems as an MCP stdio server",
				Action: withService(func(ctx context.Context, command *cli.Command, srv *opsagent.Service) error {
					return mcp.Serve(mcp.NewServer(srv.Actions(), srv.Adapter()))
				}),
			},
		},
	}
}

func statusParameters(command *cli.Command) []*dao.Parameter {
	statuses := command.StringSlice("status")
	if len(statuses) == 0 {
		return nil
	}
	values := make([]state.Status, 0, len(statuses))
	for _, status := range statuses {
		values = append(values, state.Status(status))
	}
	return []*dao.Parameter{opsagent.StatusFilter(values...)}
}
