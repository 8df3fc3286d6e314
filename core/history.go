package core

import "pkt.systems/flowdeck/schema"

// historyCache holds the execution history of the active tab. It is reset on
// every change of active tab; results fetched for an older generation are
// discarded by the session.
type historyCache struct {
	executions []schema.Execution
	logs       []schema.ExecutionLog
	logsFor    schema.ExecutionID
	visible    bool
	maxExec    int
	maxLogs    int
}

func newHistoryCache(cfg schema.SessionConfig) *historyCache {
	maxExec := cfg.HistoryLimit
	if maxExec <= 0 {
		maxExec = schema.DefaultHistoryLimit
	}
	maxLogs := cfg.LogLimit
	if maxLogs <= 0 {
		maxLogs = schema.DefaultLogLimit
	}
	return &historyCache{maxExec: maxExec, maxLogs: maxLogs}
}

func (h *historyCache) reset() {
	h.executions = nil
	h.logs = nil
	h.logsFor = 0
	h.visible = false
}

func (h *historyCache) setExecutions(execs []schema.Execution) {
	if len(execs) > h.maxExec {
		execs = execs[:h.maxExec]
	}
	h.executions = append([]schema.Execution(nil), execs...)
}

func (h *historyCache) setLogs(id schema.ExecutionID, logs []schema.ExecutionLog) {
	if len(logs) > h.maxLogs {
		logs = logs[:h.maxLogs]
	}
	h.logsFor = id
	h.logs = append([]schema.ExecutionLog(nil), logs...)
}

func (h *historyCache) Executions() []schema.Execution {
	return append([]schema.Execution(nil), h.executions...)
}

func (h *historyCache) Logs() []schema.ExecutionLog {
	return append([]schema.ExecutionLog(nil), h.logs...)
}
