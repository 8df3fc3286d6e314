package debugstream

import (
	"context"
	"errors"
	"io"

	"pkt.systems/flowdeck/schema"
)

// Handlers receive the results of Consume. Any of them may be nil.
type Handlers struct {
	OnEvent func(schema.DebugEvent)
	OnError func(error)
	OnDone  func()
}

// Consume drains the stream into h. OnDone is called exactly once, after
// every OnEvent and at most one OnError. The stream is closed on return.
func Consume(ctx context.Context, stream *Stream, h Handlers) {
	defer func() {
		if h.OnDone != nil {
			h.OnDone()
		}
	}()
	if stream == nil {
		if h.OnError != nil {
			h.OnError(errors.New("debug stream is nil"))
		}
		return
	}
	defer func() { _ = stream.Close() }()
	for {
		event, err := stream.Next(ctx)
		if err != nil {
			if !errors.Is(err, io.EOF) && h.OnError != nil {
				h.OnError(err)
			}
			return
		}
		if h.OnEvent != nil {
			h.OnEvent(event)
		}
	}
}
