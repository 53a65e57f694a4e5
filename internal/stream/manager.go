package stream

import (
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/spectroneph/nephd/internal/observability"
	"github.com/spectroneph/nephd/internal/protocol"
)

// Stream table limits, from the device protocol settings.
const (
	DefaultMaxStreams = 3
	MinIntervalMs     = 10
	MaxIntervalMs     = 60000
	DefaultIntervalMs = 100
)

// lastUpdateNever forces a due producer run on the very next tick.
const lastUpdateNever = int64(-1)

var (
	ErrStreamNotFound = errors.New("stream: not found")
	ErrCapacity       = errors.New("stream: capacity reached")
	ErrProducerNil    = errors.New("stream: producer is nil")
)

// Info is the externally visible state of one stream.
type Info struct {
	Type       string
	IntervalMs int64
	Active     bool
}

type entry struct {
	info         Info
	params       protocol.Params
	lastUpdateMs int64
}

// Manager keeps the bounded table of named periodic streams and drives
// their producers. All methods run on the engine loop; there is no
// internal locking by design.
type Manager struct {
	producers map[string]Producer
	streams   map[string]*entry
	max       int
	log       zerolog.Logger
}

func NewManager(maxStreams int, log zerolog.Logger) *Manager {
	if maxStreams <= 0 {
		maxStreams = DefaultMaxStreams
	}
	return &Manager{
		producers: make(map[string]Producer),
		streams:   make(map[string]*entry),
		max:       maxStreams,
		log:       log,
	}
}

// RegisterProducer binds the producer invoked for streams of streamType.
func (m *Manager) RegisterProducer(streamType string, p Producer) error {
	if p == nil {
		return fmt.Errorf("%w: %s", ErrProducerNil, streamType)
	}
	m.producers[streamType] = p
	return nil
}

// HasProducer reports whether streamType has a registered producer.
func (m *Manager) HasProducer(streamType string) bool {
	_, ok := m.producers[streamType]
	return ok
}

// Start creates or replaces the stream for streamType and returns its
// applied state. The interval is clamped into [MinIntervalMs,
// MaxIntervalMs]. A new type beyond capacity fails without touching
// existing streams; restarting an existing type updates it in place and
// never counts against capacity.
func (m *Manager) Start(streamType string, params protocol.Params, intervalMs int64) (Info, error) {
	if intervalMs < MinIntervalMs {
		m.log.Debug().Str("type", streamType).Int64("interval_ms", intervalMs).
			Msgf("stream interval raised to minimum %d", MinIntervalMs)
		intervalMs = MinIntervalMs
	}
	if intervalMs > MaxIntervalMs {
		m.log.Debug().Str("type", streamType).Int64("interval_ms", intervalMs).
			Msgf("stream interval capped at maximum %d", MaxIntervalMs)
		intervalMs = MaxIntervalMs
	}

	if _, exists := m.streams[streamType]; !exists && len(m.streams) >= m.max {
		return Info{}, fmt.Errorf("%w: %d streams", ErrCapacity, m.max)
	}

	info := Info{Type: streamType, IntervalMs: intervalMs, Active: true}
	m.streams[streamType] = &entry{
		info:         info,
		params:       params,
		lastUpdateMs: lastUpdateNever,
	}
	m.log.Info().Str("type", streamType).Int64("interval_ms", intervalMs).Msg("stream started")
	return info, nil
}

// Stop removes the stream for streamType. Removal is immediate: a stopped
// stream is never ticked again.
func (m *Manager) Stop(streamType string) error {
	if _, ok := m.streams[streamType]; !ok {
		return fmt.Errorf("%w: %s", ErrStreamNotFound, streamType)
	}
	delete(m.streams, streamType)
	m.log.Info().Str("type", streamType).Msg("stream stopped")
	return nil
}

// StopAll removes every stream. Keys are snapshotted first so removal
// never mutates the table mid-iteration.
func (m *Manager) StopAll() {
	types := make([]string, 0, len(m.streams))
	for t := range m.streams {
		types = append(types, t)
	}
	for _, t := range types {
		_ = m.Stop(t)
	}
}

// Active reports whether a stream exists for streamType.
func (m *Manager) Active(streamType string) bool {
	e, ok := m.streams[streamType]
	return ok && e.info.Active
}

// Count returns the number of active streams.
func (m *Manager) Count() int {
	return len(m.streams)
}

// List returns stream states ordered by type.
func (m *Manager) List() []Info {
	out := make([]Info, 0, len(m.streams))
	for _, e := range m.streams {
		out = append(out, e.info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

// Tick runs every due producer at most once. now is milliseconds since
// device start. On success the stream's clock advances; on failure it does
// not, so the producer is retried on the next qualifying tick.
func (m *Manager) Tick(now int64) {
	for _, streamType := range m.tickOrder() {
		e, ok := m.streams[streamType]
		if !ok || !e.info.Active {
			continue
		}
		if e.lastUpdateMs != lastUpdateNever && now-e.lastUpdateMs < e.info.IntervalMs {
			continue
		}

		err := m.produce(streamType, e.params)
		observability.RecordProducerRun(streamType, err == nil)
		if err != nil {
			m.log.Debug().Str("type", streamType).Err(err).Msg("stream producer failed")
			continue
		}
		e.lastUpdateMs = now
	}
}

func (m *Manager) tickOrder() []string {
	types := make([]string, 0, len(m.streams))
	for t := range m.streams {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

func (m *Manager) produce(streamType string, params protocol.Params) error {
	p, ok := m.producers[streamType]
	if !ok {
		return fmt.Errorf("stream: no producer for type %q", streamType)
	}
	return p.Produce(streamType, params)
}
