// Package engine runs the device's single processing loop: drain the
// transport for framed command lines, dispatch each one, and tick the
// stream scheduler. Handlers and producers all execute on this loop, so
// nothing here needs a lock.
package engine

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/spectroneph/nephd/internal/device"
	"github.com/spectroneph/nephd/internal/dispatch"
	"github.com/spectroneph/nephd/internal/observability"
	"github.com/spectroneph/nephd/internal/protocol"
	"github.com/spectroneph/nephd/internal/stream"
)

const (
	DefaultTickInterval = time.Millisecond
	// commandQueueDepth bounds lines framed ahead of dispatch.
	commandQueueDepth = 5
)

// Config tunes the engine loop.
type Config struct {
	TickInterval time.Duration
	MaxLineBytes int
}

// Deps are the collaborators the loop drives.
type Deps struct {
	Transport  io.Reader
	Channel    *protocol.Channel
	Dispatcher *dispatch.Dispatcher
	Streams    *stream.Manager
	Now        func() int64
	Sensor     device.Sensor
	Log        zerolog.Logger
}

type Engine struct {
	cfg  Config
	deps Deps

	lastActivityMs int64
}

func New(cfg Config, deps Deps) *Engine {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}
	if cfg.MaxLineBytes <= 0 {
		cfg.MaxLineBytes = protocol.DefaultMaxLineBytes
	}
	return &Engine{cfg: cfg, deps: deps}
}

// IdleMs reports milliseconds since the last accepted command. It is read
// from handlers, which run on the engine loop.
func (e *Engine) IdleMs() int64 {
	return e.deps.Now() - e.lastActivityMs
}

// Run processes the transport until ctx is canceled or the transport
// reaches EOF. Framing runs on a helper goroutine; decode, dispatch,
// response writes, and stream ticks all happen here, preserving strict
// arrival order.
func (e *Engine) Run(ctx context.Context) error {
	e.emitReadyEvent()

	lines := make(chan []byte, commandQueueDepth)
	readErr := make(chan error, 1)
	go e.readLines(lines, readErr)

	ticker := time.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.deps.Log.Info().Msg("engine stopping")
			return nil
		case line, ok := <-lines:
			if !ok {
				err := <-readErr
				if errors.Is(err, io.EOF) {
					e.deps.Log.Info().Msg("transport closed")
					return nil
				}
				return err
			}
			e.handleLine(line)
		case <-ticker.C:
			e.deps.Streams.Tick(e.deps.Now())
		}
	}
}

// readLines frames transport bytes into lines. Oversize lines are counted
// and dropped here; everything else is handed to the loop.
func (e *Engine) readLines(lines chan<- []byte, readErr chan<- error) {
	scanner := protocol.NewLineScanner(e.deps.Transport, e.cfg.MaxLineBytes)
	for {
		line, err := scanner.Next()
		switch {
		case err == nil:
			lines <- line
		case errors.Is(err, protocol.ErrLineTooLong):
			observability.RecordDroppedLine(observability.DropOversize)
			e.deps.Log.Warn().Msg("dropped oversize line")
		default:
			readErr <- err
			close(lines)
			return
		}
	}
}

// handleLine decodes one framed line and, if it is a command envelope,
// dispatches it and writes the correlated response. Undecodable lines are
// dropped without a reply; the sender detects silence by timeout.
func (e *Engine) handleLine(line []byte) {
	cmd, err := protocol.DecodeCommand(line)
	switch {
	case errors.Is(err, protocol.ErrNotJSON):
		observability.RecordDroppedLine(observability.DropNotJSON)
		e.deps.Log.Debug().Err(err).Msg("dropped unparseable line")
		return
	case errors.Is(err, protocol.ErrNotCommand):
		observability.RecordDroppedLine(observability.DropNotCommand)
		e.deps.Log.Debug().Msg("dropped non-command object")
		return
	case err != nil:
		observability.RecordDroppedLine(observability.DropNotJSON)
		return
	}

	e.lastActivityMs = e.deps.Now()
	e.deps.Log.Debug().Str("command", cmd.Name).Int64("id", cmd.ID).Msg("received command")

	resp := e.deps.Dispatcher.Dispatch(cmd)
	if err := e.deps.Channel.WriteResponse(resp); err != nil {
		observability.RecordWriteFailure()
		e.deps.Log.Error().Err(err).Int64("id", cmd.ID).Msg("response write failed")
	}
}

func (e *Engine) emitReadyEvent() {
	connected := false
	if e.deps.Sensor != nil {
		connected = e.deps.Sensor.IsConnected()
	}
	err := e.deps.Channel.WriteEvent("device_ready", protocol.Body{
		"uptime":           e.deps.Now(),
		"sensor_connected": connected,
	})
	if err != nil {
		observability.RecordWriteFailure()
		e.deps.Log.Error().Err(err).Msg("startup event write failed")
	}
}
