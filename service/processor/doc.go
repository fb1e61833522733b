// Package processor is the graph workflow engine. It walks a workflow
// definition node by node, appends one record per node run and suspends at
// approval gates until ResumeApproval continues or terminates the run.
package processor
