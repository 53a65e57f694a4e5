package dispatch

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/spectroneph/nephd/internal/observability"
	"github.com/spectroneph/nephd/internal/protocol"
)

var ErrHandlerNil = errors.New("dispatch: handler is nil")

// Dispatcher routes decoded command envelopes to registered handlers and
// produces exactly one correlated response per envelope. Registration is
// expected to complete before the processing loop starts; the registry is
// read-only in the steady state.
type Dispatcher struct {
	handlers map[string]Handler
	log      zerolog.Logger
}

func NewDispatcher(log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		handlers: make(map[string]Handler),
		log:      log,
	}
}

// Register inserts or overwrites the handler for name.
func (d *Dispatcher) Register(name string, h Handler) error {
	if h == nil {
		return fmt.Errorf("%w: %s", ErrHandlerNil, name)
	}
	d.handlers[name] = h
	d.log.Debug().Str("command", name).Msg("registered command handler")
	return nil
}

// Exists reports whether a handler is registered for name.
func (d *Dispatcher) Exists(name string) bool {
	_, ok := d.handlers[name]
	return ok
}

// Dispatch executes the handler for cmd and returns the response envelope.
// An unknown name yields INVALID_COMMAND without invoking any handler. A
// handler fault, returned or panicked, yields EXECUTION_ERROR; faults never
// escape this boundary.
func (d *Dispatcher) Dispatch(cmd protocol.Command) protocol.Response {
	handler, ok := d.handlers[cmd.Name]
	if !ok {
		d.log.Warn().Str("command", cmd.Name).Int64("id", cmd.ID).Msg("unknown command")
		return d.finish(cmd, protocol.Response{
			Resp:   protocol.RespError,
			ID:     cmd.ID,
			Status: protocol.StatusInvalidCommand,
			Data:   "Unknown command: " + cmd.Name,
		})
	}

	body := protocol.Body{}
	err := d.execute(handler, cmd, body)
	if err != nil {
		msg := err.Error()
		if msg == "" {
			msg = "unknown error"
		}
		d.log.Error().Str("command", cmd.Name).Int64("id", cmd.ID).Err(err).
			Msg("command execution failed")
		return d.finish(cmd, protocol.Response{
			Resp:   protocol.RespError,
			ID:     cmd.ID,
			Status: protocol.StatusExecutionError,
			Data:   "Execution error: " + msg,
		})
	}

	return d.finish(cmd, protocol.Response{
		Resp:   protocol.RespData,
		ID:     cmd.ID,
		Status: protocol.StatusSuccess,
		Data:   body,
	})
}

// execute is the fault boundary: a panicking handler is converted into an
// ordinary execution error.
func (d *Dispatcher) execute(h Handler, cmd protocol.Command, body protocol.Body) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h.Execute(cmd.Params, body, cmd)
}

func (d *Dispatcher) finish(cmd protocol.Command, resp protocol.Response) protocol.Response {
	observability.RecordCommand(cmd.Name, int(resp.Status))
	return resp
}
