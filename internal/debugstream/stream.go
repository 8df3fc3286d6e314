package debugstream

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"pkt.systems/flowdeck/schema"
	"pkt.systems/pslog"
)

// Opener starts a debug run and returns the streaming response.
type Opener interface {
	OpenDebugRun(ctx context.Context, id schema.WorkflowID) (*http.Response, error)
}

// Observer receives stream counters.
type Observer interface {
	StreamOpened()
	EventDelivered()
	LineDropped()
	StreamFailed()
}

// Publisher mirrors delivered events, tagged with the originating workflow.
type Publisher interface {
	PublishDebug(event schema.DebugStreamEvent)
}

// Option configures a Stream.
type Option func(*Stream)

// WithLogger sets the stream logger.
func WithLogger(logger pslog.Logger) Option {
	return func(s *Stream) {
		if logger != nil {
			s.log = logger
		}
	}
}

// WithObserver attaches a metrics observer.
func WithObserver(observer Observer) Option {
	return func(s *Stream) {
		if observer != nil {
			s.observer = observer
		}
	}
}

// WithPublisher mirrors every delivered event to p.
func WithPublisher(p Publisher) Option {
	return func(s *Stream) {
		if p != nil {
			s.publisher = p
		}
	}
}

// Stream is a finite, non-restartable iterator over the events of one debug
// run. Next returns io.EOF once the run is over; any other error is reported
// exactly once and followed by io.EOF.
type Stream struct {
	workflowID schema.WorkflowID
	resp       *http.Response
	openErr    error
	reader     *bufio.Reader
	body       io.ReadCloser
	atEOF      bool
	started    bool
	done       bool
	delivered  int
	dropped    int

	log       pslog.Logger
	observer  Observer
	publisher Publisher
}

// Open starts a debug run through opener. Failures to start are not returned
// here; they surface as the first result of Next.
func Open(ctx context.Context, opener Opener, id schema.WorkflowID, opts ...Option) *Stream {
	if opener == nil {
		return FromResponse(id, nil, fmt.Errorf("%w: no repository", schema.ErrStreamTransport), opts...)
	}
	resp, err := opener.OpenDebugRun(ctx, id)
	return FromResponse(id, resp, err, opts...)
}

// FromResponse wraps an already issued request. A non-nil err is reported
// as the first result of Next.
func FromResponse(id schema.WorkflowID, resp *http.Response, err error, opts ...Option) *Stream {
	s := &Stream{
		workflowID: id,
		resp:       resp,
		openErr:    err,
		log:        pslog.Ctx(context.Background()),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("workflow", int64(id))
	if s.observer != nil {
		s.observer.StreamOpened()
	}
	return s
}

// WorkflowID reports the workflow this run belongs to.
func (s *Stream) WorkflowID() schema.WorkflowID {
	return s.workflowID
}

// Delivered reports how many events have been returned so far.
func (s *Stream) Delivered() int {
	return s.delivered
}

// Dropped reports how many payload lines failed to decode.
func (s *Stream) Dropped() int {
	return s.dropped
}

// Next returns the next event in server order.
func (s *Stream) Next(ctx context.Context) (schema.DebugEvent, error) {
	if s.done {
		return schema.DebugEvent{}, io.EOF
	}
	if !s.started {
		s.started = true
		if err := s.start(); err != nil {
			return schema.DebugEvent{}, s.fail(err)
		}
	}
	if s.atEOF {
		s.finish()
		return schema.DebugEvent{}, io.EOF
	}
	if err := ctx.Err(); err != nil {
		return schema.DebugEvent{}, s.fail(err)
	}
	stop := context.AfterFunc(ctx, func() {
		_ = s.body.Close()
	})
	defer stop()
	for {
		line, err := s.reader.ReadBytes('\n')
		if err != nil && ctx.Err() != nil {
			return schema.DebugEvent{}, s.fail(ctx.Err())
		}
		// A partial line is only complete when the body ended cleanly.
		if err != nil && !errors.Is(err, io.EOF) {
			return schema.DebugEvent{}, s.fail(fmt.Errorf("%w: %w", schema.ErrStreamTransport, err))
		}
		if len(line) > 0 {
			event, ok, parseErr := parseLine(line)
			if parseErr != nil {
				s.drop(parseErr)
			}
			if ok {
				s.atEOF = err != nil
				s.deliver(event)
				return event, nil
			}
		}
		if err != nil {
			s.finish()
			return schema.DebugEvent{}, io.EOF
		}
	}
}

// Close releases the response body. Next returns io.EOF afterwards.
func (s *Stream) Close() error {
	s.done = true
	return s.closeBody()
}

func (s *Stream) start() error {
	if s.openErr != nil {
		if errors.Is(s.openErr, context.Canceled) || errors.Is(s.openErr, context.DeadlineExceeded) {
			return s.openErr
		}
		return fmt.Errorf("%w: %w", schema.ErrStreamTransport, s.openErr)
	}
	if s.resp == nil {
		return fmt.Errorf("%w: no response", schema.ErrStreamTransport)
	}
	if s.resp.StatusCode < 200 || s.resp.StatusCode > 299 {
		_ = s.closeBody()
		return fmt.Errorf("%w: %s", schema.ErrStreamTransport, statusText(s.resp))
	}
	if s.resp.Body == nil || s.resp.Body == http.NoBody {
		return fmt.Errorf("%w: no response body", schema.ErrStreamTransport)
	}
	s.body = s.resp.Body
	s.reader = bufio.NewReader(transform.NewReader(s.body, unicode.UTF8.NewDecoder()))
	s.log.Debug("debug stream open", "status", s.resp.StatusCode)
	return nil
}

func (s *Stream) deliver(event schema.DebugEvent) {
	s.delivered++
	if s.observer != nil {
		s.observer.EventDelivered()
	}
	if s.publisher != nil {
		s.publisher.PublishDebug(schema.DebugStreamEvent{WorkflowID: s.workflowID, Event: event})
	}
}

func (s *Stream) drop(err error) {
	s.dropped++
	if s.observer != nil {
		s.observer.LineDropped()
	}
	var lineErr *lineError
	if errors.As(err, &lineErr) {
		line := strings.TrimSpace(string(lineErr.Line()))
		preview := previewText(line, 200)
		s.log.Debug("debug stream line dropped", "preview", preview, "truncated", len(preview) < len(line), "err", err)
	}
}

func (s *Stream) fail(err error) error {
	s.done = true
	_ = s.closeBody()
	if s.observer != nil {
		s.observer.StreamFailed()
	}
	s.log.Warn("debug stream failed", "events", s.delivered, "err", err)
	return err
}

func (s *Stream) finish() {
	s.done = true
	_ = s.closeBody()
	s.log.Debug("debug stream completed", "events", s.delivered, "dropped", s.dropped)
}

func (s *Stream) closeBody() error {
	if s.resp == nil || s.resp.Body == nil {
		return nil
	}
	body := s.resp.Body
	s.resp.Body = nil
	return body.Close()
}

func statusText(resp *http.Response) string {
	if text := strings.TrimSpace(resp.Status); text != "" {
		return text
	}
	if text := http.StatusText(resp.StatusCode); text != "" {
		return fmt.Sprintf("%d %s", resp.StatusCode, text)
	}
	return fmt.Sprintf("status %d", resp.StatusCode)
}

func previewText(value string, max int) string {
	if max <= 0 || len(value) <= max {
		return value
	}
	return value[:max]
}
