package logx

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"pkt.systems/flowdeck/schema"
	"pkt.systems/pslog"
)

func TestWithWorkflowAddsFields(t *testing.T) {
	capture := &logCapture{}
	logger := newCaptureLogger(capture)
	log := WithWorkflow(logger, &schema.Workflow{
		Name: "demo",
		Definition: schema.WorkflowDef{
			Nodes: []schema.NodeDef{{ID: "n1"}, {ID: "n2"}},
		},
	})
	log.Info("hello")

	entry := capture.firstEntry(t)
	if entry["workflow"] != "demo" {
		t.Fatalf("expected workflow field, got %+v", entry)
	}
	if entry["nodes"] != float64(2) {
		t.Fatalf("expected nodes field, got %+v", entry)
	}
}

func TestWithWorkflowNilKeepsLogger(t *testing.T) {
	capture := &logCapture{}
	logger := newCaptureLogger(capture)
	WithWorkflow(logger, nil).Info("hello")

	entry := capture.firstEntry(t)
	if _, ok := entry["workflow"]; ok {
		t.Fatalf("did not expect workflow field for nil workflow")
	}
}

func TestWithTabAddsFieldOnce(t *testing.T) {
	capture := &logCapture{}
	logger := newCaptureLogger(capture)
	ctx := pslog.ContextWithLogger(context.Background(), logger)
	log := WithTab(ctx, 7)
	log.Info("hello")

	entry := capture.firstEntry(t)
	if entry["tab"] != float64(7) {
		t.Fatalf("expected tab field, got %+v", entry)
	}

	capture.buf.Reset()
	tabCtx := ContextWithTabLogger(ctx, log, 7)
	WithTab(tabCtx, 7).Info("again")
	line := bytes.TrimSpace(capture.buf.Bytes())
	if bytes.Count(line, []byte(`"tab"`)) != 1 {
		t.Fatalf("expected a single tab field, got %s", line)
	}
}

func TestWithExecutionSkipsZero(t *testing.T) {
	capture := &logCapture{}
	logger := newCaptureLogger(capture)
	WithExecution(logger, 0).Info("hello")

	entry := capture.firstEntry(t)
	if _, ok := entry["execution"]; ok {
		t.Fatalf("did not expect execution field, got %+v", entry)
	}
}

func newCaptureLogger(capture *logCapture) pslog.Logger {
	return pslog.NewWithOptions(capture, pslog.Options{
		Mode:          pslog.ModeStructured,
		NoColor:       true,
		MinLevel:      pslog.InfoLevel,
		VerboseFields: true,
	})
}

type logCapture struct {
	buf bytes.Buffer
}

func (c *logCapture) Write(p []byte) (int, error) {
	return c.buf.Write(p)
}

func (c *logCapture) firstEntry(t *testing.T) map[string]any {
	t.Helper()
	data := c.buf.Bytes()
	idx := bytes.IndexByte(data, '\n')
	if idx == -1 {
		idx = len(data)
	}
	line := bytes.TrimSpace(data[:idx])
	entry := map[string]any{}
	if err := json.Unmarshal(line, &entry); err != nil {
		t.Fatalf("parse log entry: %v", err)
	}
	return entry
}
