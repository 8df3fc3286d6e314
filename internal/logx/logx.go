package logx

import (
	"context"

	"pkt.systems/flowdeck/schema"
	"pkt.systems/pslog"
)

type contextKey int

const (
	tabKey contextKey = iota
)

// Ctx returns the logger bound to the provided context.
func Ctx(ctx context.Context) pslog.Logger {
	if ctx == nil {
		ctx = context.Background()
	}
	return pslog.Ctx(ctx)
}

// WithTab annotates the logger with the tab's workflow id if present.
func WithTab(ctx context.Context, tabID schema.WorkflowID) pslog.Logger {
	log := Ctx(ctx)
	if tabID != 0 {
		if current, ok := ctx.Value(tabKey).(schema.WorkflowID); ok && current == tabID {
			return log
		}
		log = log.With("tab", int64(tabID))
	}
	return log
}

// WithWorkflow annotates the logger with workflow metadata when available.
func WithWorkflow(log pslog.Logger, wf *schema.Workflow) pslog.Logger {
	if wf == nil {
		return log
	}
	if wf.Name != "" {
		log = log.With("workflow", wf.Name)
	}
	return log.With("nodes", len(wf.Definition.Nodes), "edges", len(wf.Definition.Edges))
}

// WithExecution annotates the logger with an execution id when available.
func WithExecution(log pslog.Logger, executionID schema.ExecutionID) pslog.Logger {
	if executionID != 0 {
		log = log.With("execution", int64(executionID))
	}
	return log
}

// ContextWithTab stores the tab marker on the context for log de-duplication.
func ContextWithTab(ctx context.Context, tabID schema.WorkflowID) context.Context {
	if ctx == nil || tabID == 0 {
		return ctx
	}
	return context.WithValue(ctx, tabKey, tabID)
}

// ContextWithTabLogger attaches the logger and tab marker to the context.
func ContextWithTabLogger(ctx context.Context, log pslog.Logger, tabID schema.WorkflowID) context.Context {
	ctx = pslog.ContextWithLogger(ctx, log)
	return ContextWithTab(ctx, tabID)
}
