package planner

import (
	"fmt"
	"sort"
	"strings"

	"github.com/viant/opsagent/model"
)

const rule = "=================================================="

// Summary renders a multi-line report of a session: intent, plan, and the
// outcome of every task with its workflow executions. nodeCounts maps an
// execution id to the number of node records it produced.
func Summary(session *model.Session, tasks []*model.Task, nodeCounts map[string]int) string {
	builder := &strings.Builder{}
	builder.WriteString(rule + "\nExecution summary\n" + rule + "\n")
	if intent := session.Intent; intent != nil {
		fmt.Fprintf(builder, "\nIntent\n   type: %s\n   confidence: %.0f%%\n", intent.Type, intent.Confidence*100)
		if len(intent.Entities) > 0 {
			fmt.Fprintf(builder, "   entities: %s\n", formatEntities(intent.Entities))
		}
	}
	if session.Plan != nil {
		builder.WriteString("\nPlan\n")
		for _, step := range session.Plan.Steps {
			fmt.Fprintf(builder, "   %d. %s\n", step.Priority, step.AgentID)
		}
	}
	builder.WriteString("\nTasks\n")
	for _, task := range tasks {
		fmt.Fprintf(builder, "   [%s] %s\n", task.Status, task.AgentID)
		for i, executionID := range task.Executions {
			workflowID := executionID
			if i < len(task.Workflows) {
				workflowID = task.Workflows[i]
			}
			if count, ok := nodeCounts[executionID]; ok {
				fmt.Fprintf(builder, "      - %s: %d nodes\n", workflowID, count)
				continue
			}
			fmt.Fprintf(builder, "      - %s\n", workflowID)
		}
	}
	builder.WriteString("\n" + rule)
	return builder.String()
}

// Brief renders a one-line summary.
func Brief(session *model.Session, tasks []*model.Task) string {
	if session.Intent == nil {
		return "completed"
	}
	workflows := 0
	for _, task := range tasks {
		workflows += len(task.Executions)
	}
	return fmt.Sprintf("intent: %s, %d agents, %d workflows", session.Intent.Type, len(tasks), workflows)
}

func formatEntities(entities map[string]interface{}) string {
	keys := make([]string, 0, len(entities))
	for k := range entities {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%v", k, entities[k]))
	}
	return strings.Join(pairs, ", ")
}
