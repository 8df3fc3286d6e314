package debugstream

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"pkt.systems/flowdeck/schema"
)

var dataPrefix = []byte("data: ")

// lineError describes a payload that could not be decoded. It never leaves
// the package; the stream logs it and moves on.
type lineError struct {
	line []byte
	err  error
}

func (e *lineError) Error() string {
	if e == nil || e.err == nil {
		return "debug stream line decode error"
	}
	return e.err.Error()
}

func (e *lineError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.err
}

func (e *lineError) Line() []byte {
	if e == nil {
		return nil
	}
	return e.line
}

// parseLine extracts a debug event from one protocol line. ok is false for
// lines that carry no payload; err is set for payloads that fail to decode.
func parseLine(line []byte) (event schema.DebugEvent, ok bool, err error) {
	line = bytes.TrimSuffix(line, []byte("\n"))
	line = bytes.TrimSuffix(line, []byte("\r"))
	if !bytes.HasPrefix(line, dataPrefix) {
		return schema.DebugEvent{}, false, nil
	}
	payload := bytes.TrimSpace(line[len(dataPrefix):])
	if len(payload) == 0 {
		return schema.DebugEvent{}, false, nil
	}
	if payload[0] != '{' {
		return schema.DebugEvent{}, false, &lineError{
			line: append([]byte(nil), line...),
			err:  fmt.Errorf("%w: payload is not an object", schema.ErrStreamProtocol),
		}
	}
	if err := json.Unmarshal(payload, &event); err != nil {
		return schema.DebugEvent{}, false, &lineError{
			line: append([]byte(nil), line...),
			err:  errors.Join(schema.ErrStreamProtocol, err),
		}
	}
	return event, true, nil
}
