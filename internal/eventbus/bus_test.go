package eventbus

import (
	"testing"
	"time"

	"pkt.systems/flowdeck/schema"
)

func receive(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case got := <-ch:
		return got
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("timed out waiting for event")
	}
	return Event{}
}

func TestSubscribeAndPublishTabEvent(t *testing.T) {
	bus := New(nil)
	ch, cancel := bus.Subscribe(SessionTopic)
	defer cancel()

	active := schema.WorkflowID(3)
	event := schema.TabEvent{Type: schema.TabEventActivated, Tab: schema.Tab{ID: 3, Name: "ingest"}, ActiveTab: &active}
	bus.OnTabEvent(event)

	got := receive(t, ch)
	if got.Type != EventTab {
		t.Fatalf("expected tab event, got %v", got.Type)
	}
	if got.Tab.Tab.ID != 3 || got.Tab.Type != schema.TabEventActivated {
		t.Fatalf("unexpected payload: %+v", got.Tab)
	}
}

func TestDebugEventsRouteByWorkflow(t *testing.T) {
	bus := New(nil)
	wf1, cancel1 := bus.Subscribe(1)
	defer cancel1()
	wf2, cancel2 := bus.Subscribe(2)
	defer cancel2()
	session, cancelSession := bus.Subscribe(SessionTopic)
	defer cancelSession()

	bus.PublishDebug(schema.DebugStreamEvent{WorkflowID: 1, Event: schema.DebugEvent{Event: schema.DebugEventStarted}})

	if got := receive(t, wf1); got.Debug.WorkflowID != 1 || got.Type != EventDebug {
		t.Fatalf("unexpected event for workflow 1: %+v", got)
	}
	if got := receive(t, session); got.Debug.Event.Event != schema.DebugEventStarted {
		t.Fatalf("unexpected session event: %+v", got)
	}
	select {
	case got := <-wf2:
		t.Fatalf("workflow 2 received foreign event: %+v", got)
	default:
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := New(nil)
	ch, cancel := bus.Subscribe(SessionTopic)
	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Fatalf("expected channel to be closed")
	}
	bus.OnTabEvent(schema.TabEvent{Type: schema.TabEventCleared})
}

func TestPublishDoesNotBlockWhenFull(t *testing.T) {
	bus := New(nil)
	bus.depth = 1
	_, cancel := bus.Subscribe(SessionTopic)
	defer cancel()

	bus.OnTabEvent(schema.TabEvent{Type: schema.TabEventOpened})
	done := make(chan struct{})
	go func() {
		bus.OnTabEvent(schema.TabEvent{Type: schema.TabEventClosed})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("publish blocked on full subscriber")
	}
}

func TestNilBusIsSafe(t *testing.T) {
	var bus *Bus
	ch, cancel := bus.Subscribe(1)
	cancel()
	if ch != nil {
		t.Fatalf("expected nil channel")
	}
	bus.OnTabEvent(schema.TabEvent{})
}
