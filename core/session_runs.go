package core

import (
	"context"

	"pkt.systems/flowdeck/internal/debugstream"
	"pkt.systems/flowdeck/internal/logx"
	"pkt.systems/flowdeck/schema"
)

// RunActiveWorkflow saves and executes the active workflow, then refreshes
// its execution history and shows it.
func (s *Session) RunActiveWorkflow(ctx context.Context) (schema.Execution, error) {
	repo, err := s.repository()
	if err != nil {
		return schema.Execution{}, err
	}
	s.mu.Lock()
	gen := s.gen
	s.mu.Unlock()

	id, _, err := s.saveActive(ctx)
	if err != nil {
		return schema.Execution{}, err
	}
	log := logx.WithTab(ctx, id)
	exec, err := repo.ExecuteWorkflow(ctx, id)
	if err != nil {
		log.Warn("session workflow run failed", "err", err)
		s.observe("run", err)
		return schema.Execution{}, err
	}
	s.observe("run", nil)
	logx.WithExecution(log, exec.ID).Info("session workflow run started", "status", exec.Status)
	if _, err := s.fetchExecutions(ctx, id, gen); err != nil {
		return exec, err
	}
	s.mu.Lock()
	if s.gen == gen {
		s.history.visible = true
	}
	s.mu.Unlock()
	return exec, nil
}

// StartDebugRun saves the active workflow and opens a debug stream for the
// workflow id captured at call time. The stream is not tied to the tab: it
// keeps running when the user navigates away.
func (s *Session) StartDebugRun(ctx context.Context) (*debugstream.Stream, error) {
	repo, err := s.repository()
	if err != nil {
		return nil, err
	}
	id, _, err := s.saveActive(ctx)
	if err != nil {
		return nil, err
	}
	log := logx.WithTab(ctx, id)
	opts := []debugstream.Option{
		debugstream.WithLogger(log),
		debugstream.WithObserver(s.streamMetrics),
	}
	if s.sink != nil {
		opts = append(opts, debugstream.WithPublisher(sinkPublisher{sink: s.sink}))
	}
	log.Info("session debug run start")
	s.observe("debug", nil)
	return debugstream.Open(ctx, repo, id, opts...), nil
}

// FetchExecutions refreshes the execution history of the active tab.
func (s *Session) FetchExecutions(ctx context.Context) ([]schema.Execution, error) {
	s.mu.Lock()
	id, gen := s.active, s.gen
	s.mu.Unlock()
	if id == 0 {
		return nil, schema.ErrNoActiveTab
	}
	return s.fetchExecutions(ctx, id, gen)
}

func (s *Session) fetchExecutions(ctx context.Context, id schema.WorkflowID, gen uint64) ([]schema.Execution, error) {
	repo, err := s.repository()
	if err != nil {
		return nil, err
	}
	log := logx.WithTab(ctx, id)
	execs, err := repo.ListExecutions(ctx, id)
	if err != nil {
		log.Warn("session history fetch failed", "err", err)
		s.observe("history", err)
		return nil, err
	}
	s.mu.Lock()
	applied := s.gen == gen && s.active == id
	if applied {
		s.history.setExecutions(execs)
	}
	s.mu.Unlock()
	s.observe("history", nil)
	log.Debug("session history fetched", "count", len(execs), "applied", applied)
	return execs, nil
}

// FetchExecutionLogs loads the per-node log of one execution of the active tab.
func (s *Session) FetchExecutionLogs(ctx context.Context, execID schema.ExecutionID) ([]schema.ExecutionLog, error) {
	repo, err := s.repository()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	id, gen := s.active, s.gen
	s.mu.Unlock()
	if id == 0 {
		return nil, schema.ErrNoActiveTab
	}
	log := logx.WithExecution(logx.WithTab(ctx, id), execID)
	logs, err := repo.ExecutionLogs(ctx, execID)
	if err != nil {
		log.Warn("session execution logs fetch failed", "err", err)
		return nil, err
	}
	s.mu.Lock()
	if s.gen == gen {
		s.history.setLogs(execID, logs)
	}
	s.mu.Unlock()
	log.Debug("session execution logs fetched", "count", len(logs))
	return logs, nil
}

// SetExecutionsVisible toggles the execution history view.
func (s *Session) SetExecutionsVisible(visible bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history.visible = visible
}
