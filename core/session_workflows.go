package core

import (
	"context"
	"encoding/json"

	"pkt.systems/flowdeck/internal/logx"
	"pkt.systems/flowdeck/schema"
)

// FetchWorkflows reloads the list of stored workflows.
func (s *Session) FetchWorkflows(ctx context.Context) ([]schema.Workflow, error) {
	repo, err := s.repository()
	if err != nil {
		return nil, err
	}
	log := logx.Ctx(ctx)
	workflows, err := repo.ListWorkflows(ctx)
	if err != nil {
		log.Warn("session workflows fetch failed", "err", err)
		s.observe("list", err)
		return nil, err
	}
	s.mu.Lock()
	s.workflows = append([]schema.Workflow(nil), workflows...)
	s.mu.Unlock()
	s.observe("list", nil)
	log.Debug("session workflows fetched", "count", len(workflows))
	return workflows, nil
}

// Workflows returns the last fetched workflow list.
func (s *Session) Workflows() []schema.Workflow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]schema.Workflow(nil), s.workflows...)
}

// RemoveWorkflow deletes a workflow on the server and closes its tab.
func (s *Session) RemoveWorkflow(ctx context.Context, id schema.WorkflowID) error {
	if err := schema.ValidateWorkflowID(id); err != nil {
		return err
	}
	repo, err := s.repository()
	if err != nil {
		return err
	}
	log := logx.WithTab(ctx, id)
	if err := repo.DeleteWorkflow(ctx, id); err != nil {
		log.Warn("session workflow delete failed", "err", err)
		s.observe("delete", err)
		return err
	}
	s.mu.Lock()
	kept := s.workflows[:0]
	for _, wf := range s.workflows {
		if wf.ID != id {
			kept = append(kept, wf)
		}
	}
	s.workflows = kept
	s.mu.Unlock()
	s.observe("delete", nil)
	log.Info("session workflow deleted")
	return s.CloseTab(ctx, id)
}

// ImportWorkflow uploads an exported document and opens the result.
func (s *Session) ImportWorkflow(ctx context.Context, document json.RawMessage) (schema.Workflow, error) {
	repo, err := s.repository()
	if err != nil {
		return schema.Workflow{}, err
	}
	log := logx.Ctx(ctx)
	wf, err := repo.ImportWorkflow(ctx, schema.ImportWorkflowRequest{Document: document})
	if err != nil {
		log.Warn("session workflow import failed", "err", err)
		s.observe("import", err)
		return schema.Workflow{}, err
	}
	s.observe("import", nil)
	s.mu.Lock()
	s.workflows = append(s.workflows, wf)
	s.mu.Unlock()
	log.Info("session workflow imported", "workflow", int64(wf.ID), "name", wf.Name)
	if err := s.OpenWorkflow(ctx, wf.ID); err != nil {
		return wf, err
	}
	return wf, nil
}
