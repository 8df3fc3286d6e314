package eventbus

import (
	"context"
	"sync"

	"pkt.systems/flowdeck/schema"
	"pkt.systems/pslog"
)

// EventType identifies the event payload.
type EventType string

const (
	// EventTab carries tab lifecycle updates.
	EventTab EventType = "tab"
	// EventDebug carries one event of a debug run.
	EventDebug EventType = "debug"
)

// SessionTopic receives every tab event and every debug event.
const SessionTopic schema.WorkflowID = 0

// Event represents a UI-facing event emitted by the session.
type Event struct {
	Type  EventType
	Tab   schema.TabEvent
	Debug schema.DebugStreamEvent
}

// Bus fans events out to subscribers keyed by workflow id.
type Bus struct {
	mu    sync.Mutex
	subs  map[schema.WorkflowID]map[chan Event]struct{}
	log   pslog.Logger
	depth int
}

// New constructs a Bus.
func New(logger pslog.Logger) *Bus {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Bus{
		subs:  make(map[schema.WorkflowID]map[chan Event]struct{}),
		log:   logger,
		depth: 256,
	}
}

// Subscribe registers a subscriber for a workflow (or SessionTopic) and
// returns a channel + cancel.
func (b *Bus) Subscribe(topic schema.WorkflowID) (<-chan Event, func()) {
	if b == nil {
		return nil, func() {}
	}
	ch := make(chan Event, b.depth)
	b.mu.Lock()
	topicSubs := b.subs[topic]
	if topicSubs == nil {
		topicSubs = make(map[chan Event]struct{})
		b.subs[topic] = topicSubs
	}
	topicSubs[ch] = struct{}{}
	count := len(topicSubs)
	b.mu.Unlock()
	b.log.With("topic", int64(topic)).Debug("eventbus subscribe", "subs", count)
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			if subs := b.subs[topic]; subs != nil {
				delete(subs, ch)
				if len(subs) == 0 {
					delete(b.subs, topic)
				}
			}
			close(ch)
			b.mu.Unlock()
			b.log.With("topic", int64(topic)).Debug("eventbus unsubscribe")
		})
	}
}

// OnTabEvent publishes a tab event to session subscribers.
func (b *Bus) OnTabEvent(event schema.TabEvent) {
	b.publish(Event{Type: EventTab, Tab: event}, SessionTopic)
}

// OnDebugEvent publishes a debug event to subscribers of its workflow and to
// session subscribers.
func (b *Bus) OnDebugEvent(event schema.DebugStreamEvent) {
	b.publish(Event{Type: EventDebug, Debug: event}, event.WorkflowID, SessionTopic)
}

// PublishDebug lets the bus mirror a debug stream directly.
func (b *Bus) PublishDebug(event schema.DebugStreamEvent) {
	b.OnDebugEvent(event)
}

func (b *Bus) publish(event Event, topics ...schema.WorkflowID) {
	if b == nil {
		return
	}
	dropped := 0
	delivered := 0
	b.mu.Lock()
	seen := make(map[schema.WorkflowID]struct{}, len(topics))
	for _, topic := range topics {
		if _, ok := seen[topic]; ok {
			continue
		}
		seen[topic] = struct{}{}
		for sub := range b.subs[topic] {
			select {
			case sub <- event:
				delivered++
			default:
				dropped++
			}
		}
	}
	b.mu.Unlock()
	if dropped > 0 {
		b.log.Trace("eventbus dropped", "type", string(event.Type), "count", dropped, "delivered", delivered)
	}
}
