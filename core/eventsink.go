package core

import "pkt.systems/flowdeck/schema"

// EventSink receives tab and debug events from the session.
type EventSink interface {
	OnTabEvent(event schema.TabEvent)
	OnDebugEvent(event schema.DebugStreamEvent)
}

// StreamObserver receives debug stream counters.
type StreamObserver interface {
	StreamOpened()
	EventDelivered()
	LineDropped()
	StreamFailed()
}

type sinkPublisher struct {
	sink EventSink
}

func (p sinkPublisher) PublishDebug(event schema.DebugStreamEvent) {
	p.sink.OnDebugEvent(event)
}
