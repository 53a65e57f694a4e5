// Package device defines the narrow capability interfaces through which
// the protocol engine reaches hardware collaborators, plus a simulated
// sensor backend for hosts without the instrument attached.
package device

// Sensor configuration limits, from the AS7341 wrapper.
const (
	DefaultGain          = 5 // 16x
	MaxGain              = 10
	DefaultIntegrationMs = 100
	MinIntegrationMs     = 1
	MaxIntegrationMs     = 1000
	DefaultLedCurrentMa  = 10
	MaxLedCurrentMa      = 20
)

// SpectralChannels lists the named channels of one full reading.
var SpectralChannels = []string{"F1", "F2", "F3", "F4", "F5", "F6", "F7", "F8", "Clear", "NIR"}

// Config is the applied sensor configuration.
type Config struct {
	Gain               int
	IntegrationTimeMs  int
	LedCurrentMa       int
	LedEnabled         bool
	ExternalLedEnabled bool
}

// Sensor is the capability set the engine consumes from the spectral
// sensor binding. Configure reports false when any input was clamped or
// replaced; the applied values are substituted either way.
type Sensor interface {
	Init() error
	IsConnected() bool
	Configure(gain, integrationTimeMs, ledCurrentMa int) bool
	ReadAllChannels() (map[string]int, error)
	SetOnboardLed(enabled bool, currentMa int) bool
	SetExternalLed(enabled bool) bool
	AppliedConfig() Config
}

// Snapshot is one diagnostic reading from the device lifecycle
// collaborator.
type Snapshot struct {
	FreeHeapBytes uint64
	CPUFreqMHz    int
	FlashSizeKB   int
	NumCPU        int
}

// Lifecycle is the device-lifecycle capability set consumed by
// informational and diagnostic handlers and by reset.
type Lifecycle interface {
	Restart()
	UptimeMs() int64
	DiagnosticSnapshot() Snapshot
}
