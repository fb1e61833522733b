// Package opsagent turns free-form operational requests into agent tasks and
// runs them through a graph workflow engine that pauses at approval gates.
//
// The service is layered:
//
//   - planner classifies a request and plans one task per agent
//   - dispatcher runs an agent's planned workflows in order
//   - processor is the workflow engine (actions, branches, parallel fan-out, subgraphs, approvals)
//   - executor runs one catalog action through the external-system adapter
//
// End-users typically interact with the engine via the Service façade
// exposed by the root package:
//
//	srv, _ := opsagent.New(ctx)
//	session, _ := srv.Process(ctx, "华东地区芒果奶茶调价，定价28元")
//	if session.Status == state.StatusAwaitingApproval {
//		session, _ = srv.ApproveSession(ctx, session.ID, true, "财务总监")
//	}
//
// Sessions, tasks and executions can be inspected through srv.Runtime().
package opsagent
