package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrNotJSON    = errors.New("protocol: line is not valid JSON")
	ErrNotCommand = errors.New("protocol: object has no command marker")
)

// Status is the integer status code carried by every response envelope.
type Status int

const (
	StatusSuccess Status = iota
	StatusInvalidCommand
	StatusInvalidParams
	StatusExecutionError
	StatusTimeout
	StatusBusy
	StatusNotImplemented
)

// Response type discriminators for the "resp" field.
const (
	RespAck   = "ack"
	RespData  = "data"
	RespError = "error"
)

// Params is the decoded "params" object of a command envelope.
type Params map[string]any

// Body is a mutable response payload built up by a command handler.
type Body map[string]any

// Command is one decoded command envelope. ID is caller-chosen and is
// echoed verbatim in the correlated response.
type Command struct {
	Name   string `json:"cmd"`
	ID     int64  `json:"id"`
	Params Params `json:"params"`
}

// Response is the correlated reply to one accepted command envelope.
type Response struct {
	Resp   string `json:"resp"`
	ID     int64  `json:"id"`
	Status Status `json:"status"`
	Data   any    `json:"data"`
}

// DataMessage is an unsolicited stream payload pushed by a producer.
type DataMessage struct {
	Type      string
	Timestamp int64
	Payload   any
}

// MarshalJSON emits the data-message wire shape, which carries both the
// boolean marker and the payload under the "data" key.
// JSON object keys are unique per encoder but not per grammar; readers
// that index the object see the payload, readers that scan see the marker.
func (m DataMessage) MarshalJSON() ([]byte, error) {
	payload := m.Payload
	if payload == nil {
		payload = Body{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	typ, err := json.Marshal(m.Type)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	fmt.Fprintf(&buf, `{"data":true,"type":%s,"timestamp":%d,"data":%s}`, typ, m.Timestamp, raw)
	return buf.Bytes(), nil
}

// EventMessage is an unsolicited notification, independent of any command.
type EventMessage struct {
	Event     bool   `json:"event"`
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data"`
}

// DecodeCommand parses one framed line into a command envelope.
// A syntactically invalid line yields ErrNotJSON; a valid JSON value that
// is not an object carrying a string "cmd" marker yields ErrNotCommand.
// Callers drop both cases without reply.
func DecodeCommand(line []byte) (Command, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(line, &fields); err != nil {
		if !json.Valid(line) {
			return Command{}, fmt.Errorf("%w: %s", ErrNotJSON, err)
		}
		return Command{}, ErrNotCommand
	}
	raw, ok := fields["cmd"]
	if !ok {
		return Command{}, ErrNotCommand
	}

	var cmd Command
	if err := json.Unmarshal(raw, &cmd.Name); err != nil {
		return Command{}, fmt.Errorf("%w: cmd is not a string", ErrNotCommand)
	}
	if raw, ok := fields["id"]; ok {
		// A malformed id still correlates as zero; extraction is
		// deliberately permissive.
		_ = json.Unmarshal(raw, &cmd.ID)
	}
	if raw, ok := fields["params"]; ok {
		_ = json.Unmarshal(raw, &cmd.Params)
	}
	if cmd.Params == nil {
		cmd.Params = Params{}
	}
	return cmd, nil
}
