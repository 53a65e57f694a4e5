package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

var ErrShortWrite = errors.New("protocol: short transport write")

// Channel serializes outbound envelopes onto the shared transport sink.
// Responses, data messages, and event messages all pass through here; the
// single-loop execution model keeps writes from interleaving. Write
// failures are reported to the caller and never retried.
type Channel struct {
	w   io.Writer
	now func() int64
}

// NewChannel wires the sink and the timestamp source for unsolicited
// messages. now reports milliseconds since device start.
func NewChannel(w io.Writer, now func() int64) *Channel {
	return &Channel{w: w, now: now}
}

// WriteResponse emits one correlated response envelope.
func (c *Channel) WriteResponse(resp Response) error {
	return c.write(resp)
}

// WriteData emits an unsolicited data message for a stream type.
func (c *Channel) WriteData(dataType string, payload any) error {
	return c.write(DataMessage{Type: dataType, Timestamp: c.now(), Payload: payload})
}

// WriteEvent emits an unsolicited event message.
func (c *Channel) WriteEvent(eventType string, payload any) error {
	if payload == nil {
		payload = Body{}
	}
	return c.write(EventMessage{Event: true, Type: eventType, Timestamp: c.now(), Data: payload})
}

func (c *Channel) write(v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("protocol: encode failed: %w", err)
	}
	raw = append(raw, '\n')
	n, err := c.w.Write(raw)
	if err != nil {
		return fmt.Errorf("protocol: transport write failed: %w", err)
	}
	if n != len(raw) {
		return ErrShortWrite
	}
	return nil
}
