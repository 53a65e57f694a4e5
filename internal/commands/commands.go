// Package commands implements the handler surface registered against the
// dispatcher at startup. Handlers follow the device's validation policy:
// out-of-range or missing numeric parameters are replaced with defaults
// and reported through a warning field, not failed; only a missing or
// unknown stream type is a hard in-body error.
package commands

import (
	"github.com/rs/zerolog"

	"github.com/spectroneph/nephd/internal/device"
	"github.com/spectroneph/nephd/internal/dispatch"
	"github.com/spectroneph/nephd/internal/protocol"
	"github.com/spectroneph/nephd/internal/stream"
)

// Deps carries the collaborators a handler may reach. Handlers hold no
// other state; everything mutable lives behind these capabilities.
type Deps struct {
	Name      string
	Version   string
	Sensor    device.Sensor
	Lifecycle device.Lifecycle
	Streams   *stream.Manager
	Clock     func() int64
	IdleMs    func() int64
	Log       zerolog.Logger
}

// RegisterAll installs every handler. Registration happens once, before
// the engine loop starts.
func RegisterAll(d *dispatch.Dispatcher, deps Deps) error {
	handlers := map[string]dispatch.Handler{
		"ping":          pingHandler(deps),
		"get_info":      getInfoHandler(deps),
		"sensor_init":   sensorInitHandler(deps),
		"sensor_config": sensorConfigHandler(deps),
		"sensor_read":   sensorReadHandler(deps),
		"sensor_led":    sensorLedHandler(deps),
		"stream_start":  streamStartHandler(deps),
		"stream_stop":   streamStopHandler(deps),
		"get_streams":   getStreamsHandler(deps),
		"reset":         resetHandler(deps),
		"diagnostics":   diagnosticsHandler(deps),
	}
	for name, h := range handlers {
		if err := d.Register(name, h); err != nil {
			return err
		}
	}
	deps.Log.Info().Int("count", len(handlers)).Msg("command handlers registered")
	return nil
}

// intParam extracts an integer parameter, falling back to def when the
// key is absent or not a number. JSON numbers arrive as float64.
func intParam(p protocol.Params, key string, def int) int {
	v, ok := p[key]
	if !ok {
		return def
	}
	f, ok := v.(float64)
	if !ok {
		return def
	}
	return int(f)
}

func int64Param(p protocol.Params, key string, def int64) int64 {
	v, ok := p[key]
	if !ok {
		return def
	}
	f, ok := v.(float64)
	if !ok {
		return def
	}
	return int64(f)
}

func boolParam(p protocol.Params, key string, def bool) bool {
	v, ok := p[key]
	if !ok {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		return def
	}
	return b
}

func stringParam(p protocol.Params, key string) (string, bool) {
	v, ok := p[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
