package commands

import (
	"bytes"
	"testing"

	"github.com/spectroneph/nephd/internal/device"
	"github.com/spectroneph/nephd/internal/dispatch"
	"github.com/spectroneph/nephd/internal/protocol"
	"github.com/spectroneph/nephd/internal/stream"
	"github.com/spectroneph/nephd/internal/testutil/testlog"
)

type fakeLifecycle struct {
	restarted bool
}

func (f *fakeLifecycle) Restart() { f.restarted = true }

func (f *fakeLifecycle) UptimeMs() int64 { return 1234 }

func (f *fakeLifecycle) DiagnosticSnapshot() device.Snapshot {
	return device.Snapshot{FreeHeapBytes: 1 << 20, NumCPU: 4}
}

type testEnv struct {
	disp      *dispatch.Dispatcher
	sensor    *device.SimSensor
	streams   *stream.Manager
	lifecycle *fakeLifecycle
	out       *bytes.Buffer
}

func newTestEnv(t *testing.T, connected bool) *testEnv {
	t.Helper()
	log := testlog.Start(t)

	out := &bytes.Buffer{}
	ch := protocol.NewChannel(out, func() int64 { return 100 })
	sensor := device.NewSimSensor(device.SimOptions{Connected: connected, HasExternalLed: false, Seed: 1})
	streams := stream.NewManager(stream.DefaultMaxStreams, log)
	if err := streams.RegisterProducer("as7341", stream.NewSensorProducer(sensor, ch)); err != nil {
		t.Fatalf("register producer: %v", err)
	}

	lifecycle := &fakeLifecycle{}
	disp := dispatch.NewDispatcher(log)
	err := RegisterAll(disp, Deps{
		Name:      "AS7341 Nephelometer",
		Version:   "0.1.0",
		Sensor:    sensor,
		Lifecycle: lifecycle,
		Streams:   streams,
		Clock:     func() int64 { return 100 },
		IdleMs:    func() int64 { return 7 },
		Log:       log,
	})
	if err != nil {
		t.Fatalf("register all: %v", err)
	}
	return &testEnv{disp: disp, sensor: sensor, streams: streams, lifecycle: lifecycle, out: out}
}

func dispatchBody(t *testing.T, env *testEnv, cmd protocol.Command) protocol.Body {
	t.Helper()
	resp := env.disp.Dispatch(cmd)
	if resp.Resp != protocol.RespData || resp.Status != protocol.StatusSuccess {
		t.Fatalf("expected success response, got %+v", resp)
	}
	if resp.ID != cmd.ID {
		t.Fatalf("id %d not echoed, got %d", cmd.ID, resp.ID)
	}
	body, ok := resp.Data.(protocol.Body)
	if !ok {
		t.Fatalf("response data is not a body: %T", resp.Data)
	}
	return body
}

func TestPing(t *testing.T) {
	env := newTestEnv(t, true)
	body := dispatchBody(t, env, protocol.Command{Name: "ping", ID: 7, Params: protocol.Params{}})
	if body["pong"] != true {
		t.Fatalf("missing pong: %+v", body)
	}
	if _, ok := body["time"].(int64); !ok {
		t.Fatalf("time is not an integer: %T", body["time"])
	}
}

func TestGetInfo(t *testing.T) {
	env := newTestEnv(t, true)
	body := dispatchBody(t, env, protocol.Command{Name: "get_info", ID: 1})
	if body["name"] != "AS7341 Nephelometer" || body["version"] != "0.1.0" {
		t.Fatalf("identity missing: %+v", body)
	}
	sensor := body["sensor"].(protocol.Body)
	if sensor["connected"] != true {
		t.Fatalf("sensor should be connected: %+v", sensor)
	}
	if _, ok := sensor["config"].(protocol.Body); !ok {
		t.Fatalf("connected sensor must report config")
	}
}

func TestSensorInitReportsFailure(t *testing.T) {
	env := newTestEnv(t, false)
	body := dispatchBody(t, env, protocol.Command{Name: "sensor_init", ID: 2})
	if body["initialized"] != false {
		t.Fatalf("disconnected init must report false: %+v", body)
	}
	if body["error"] != "Failed to initialize AS7341" {
		t.Fatalf("missing error field: %+v", body)
	}
}

func TestSensorConfigSubstitutesAndWarns(t *testing.T) {
	env := newTestEnv(t, true)
	body := dispatchBody(t, env, protocol.Command{
		Name:   "sensor_config",
		ID:     3,
		Params: protocol.Params{"gain": float64(99), "integration_time": float64(50)},
	})
	if body["warning"] != "Some configuration parameters were invalid" {
		t.Fatalf("expected warning: %+v", body)
	}
	if body["gain"] != device.DefaultGain {
		t.Fatalf("invalid gain must fall back to default: %v", body["gain"])
	}
	if body["integration_time"] != 50 {
		t.Fatalf("valid integration time must apply: %v", body["integration_time"])
	}
}

func TestSensorReadReturnsChannels(t *testing.T) {
	env := newTestEnv(t, true)
	body := dispatchBody(t, env, protocol.Command{Name: "sensor_read", ID: 4})
	for _, name := range device.SpectralChannels {
		if _, ok := body[name]; !ok {
			t.Fatalf("missing channel %s: %+v", name, body)
		}
	}
}

func TestSensorReadDisconnectedReportsInBody(t *testing.T) {
	env := newTestEnv(t, false)
	body := dispatchBody(t, env, protocol.Command{Name: "sensor_read", ID: 5})
	if body["error"] != "Failed to read spectral data" {
		t.Fatalf("expected read error in body: %+v", body)
	}
}

func TestSensorLedExternalNotWired(t *testing.T) {
	env := newTestEnv(t, true)
	body := dispatchBody(t, env, protocol.Command{
		Name:   "sensor_led",
		ID:     6,
		Params: protocol.Params{"enabled": true, "external": true},
	})
	if body["type"] != "external" {
		t.Fatalf("expected external type: %+v", body)
	}
	if body["error"] != "Failed to control LED" {
		t.Fatalf("unwired external LED must report failure: %+v", body)
	}
}

func TestSensorLedOnboardCapsCurrent(t *testing.T) {
	env := newTestEnv(t, true)
	body := dispatchBody(t, env, protocol.Command{
		Name:   "sensor_led",
		ID:     7,
		Params: protocol.Params{"enabled": true, "current": float64(50)},
	})
	if body["type"] != "onboard" || body["enabled"] != true {
		t.Fatalf("unexpected body: %+v", body)
	}
	if body["current"] != device.MaxLedCurrentMa {
		t.Fatalf("current must be capped at %d, got %v", device.MaxLedCurrentMa, body["current"])
	}
}

func TestStreamStartMissingTypeIsHardError(t *testing.T) {
	env := newTestEnv(t, true)
	body := dispatchBody(t, env, protocol.Command{Name: "stream_start", ID: 8, Params: protocol.Params{}})
	if body["error"] != "Missing stream type" {
		t.Fatalf("expected missing-type error: %+v", body)
	}
}

func TestStreamStartUnknownType(t *testing.T) {
	env := newTestEnv(t, true)
	body := dispatchBody(t, env, protocol.Command{
		Name:   "stream_start",
		ID:     9,
		Params: protocol.Params{"type": "thermal"},
	})
	if body["error"] != "Unknown stream type: thermal" {
		t.Fatalf("expected unknown-type error: %+v", body)
	}
	if env.streams.Count() != 0 {
		t.Fatalf("unknown type must not create a stream")
	}
}

func TestStreamStartClampsAndWarns(t *testing.T) {
	env := newTestEnv(t, true)
	body := dispatchBody(t, env, protocol.Command{
		Name:   "stream_start",
		ID:     10,
		Params: protocol.Params{"type": "as7341", "interval_ms": float64(1)},
	})
	if body["active"] != true {
		t.Fatalf("stream must start: %+v", body)
	}
	if body["interval_ms"] != int64(stream.MinIntervalMs) {
		t.Fatalf("interval must be clamped to %d, got %v", stream.MinIntervalMs, body["interval_ms"])
	}
	if body["warning"] == nil {
		t.Fatalf("clamped interval must carry a warning: %+v", body)
	}
}

func TestStreamStopAbsentStreamIsReportedFact(t *testing.T) {
	env := newTestEnv(t, true)
	body := dispatchBody(t, env, protocol.Command{
		Name:   "stream_stop",
		ID:     3,
		Params: protocol.Params{"type": "as7341"},
	})
	if body["was_active"] != false {
		t.Fatalf("absent stream must report was_active=false: %+v", body)
	}
}

func TestStreamStartStopRoundTrip(t *testing.T) {
	env := newTestEnv(t, true)
	_ = dispatchBody(t, env, protocol.Command{
		Name:   "stream_start",
		ID:     11,
		Params: protocol.Params{"type": "as7341", "interval_ms": float64(100)},
	})
	if !env.streams.Active("as7341") {
		t.Fatalf("stream not active after start")
	}

	body := dispatchBody(t, env, protocol.Command{
		Name:   "stream_stop",
		ID:     12,
		Params: protocol.Params{"type": "as7341"},
	})
	if body["was_active"] != true {
		t.Fatalf("expected was_active=true: %+v", body)
	}
	if env.streams.Active("as7341") {
		t.Fatalf("stream still active after stop")
	}
}

func TestGetStreams(t *testing.T) {
	env := newTestEnv(t, true)
	_ = dispatchBody(t, env, protocol.Command{
		Name:   "stream_start",
		ID:     13,
		Params: protocol.Params{"type": "as7341"},
	})

	body := dispatchBody(t, env, protocol.Command{Name: "get_streams", ID: 14})
	if body["count"] != 1 {
		t.Fatalf("count %v, want 1", body["count"])
	}
	streams := body["streams"].([]protocol.Body)
	if len(streams) != 1 || streams[0]["type"] != "as7341" {
		t.Fatalf("unexpected streams: %+v", streams)
	}
}

func TestResetQuiescesAndRestarts(t *testing.T) {
	env := newTestEnv(t, true)
	_ = dispatchBody(t, env, protocol.Command{
		Name:   "stream_start",
		ID:     15,
		Params: protocol.Params{"type": "as7341"},
	})

	body := dispatchBody(t, env, protocol.Command{Name: "reset", ID: 16})
	if body["reset"] != true {
		t.Fatalf("expected reset=true: %+v", body)
	}
	if env.streams.Count() != 0 {
		t.Fatalf("reset must stop all streams")
	}
	if !env.lifecycle.restarted {
		t.Fatalf("reset must invoke the lifecycle restart")
	}
	cfg := env.sensor.AppliedConfig()
	if cfg.LedEnabled || cfg.ExternalLedEnabled {
		t.Fatalf("reset must turn LEDs off: %+v", cfg)
	}
}

func TestDiagnostics(t *testing.T) {
	env := newTestEnv(t, true)
	body := dispatchBody(t, env, protocol.Command{Name: "diagnostics", ID: 17})
	if body["status"] != "running" || body["result"] != "pass" {
		t.Fatalf("unexpected diagnostics: %+v", body)
	}
	system := body["system"].(protocol.Body)
	if system["idle_ms"] != int64(7) {
		t.Fatalf("idle_ms missing: %+v", system)
	}
}
