package device

import (
	"errors"
	"math/rand"
)

var ErrSensorNotFound = errors.New("device: sensor not found on bus")

// simBaseline is the per-channel baseline count for the simulated source,
// shaped like a blue-peaked spectrum at the default gain and integration.
var simBaseline = map[string]int{
	"F1": 210, "F2": 480, "F3": 1950, "F4": 1720,
	"F5": 620, "F6": 300, "F7": 180, "F8": 120,
	"Clear": 2600, "NIR": 90,
}

// SimSensor is an in-process stand-in for the AS7341 binding. It applies
// the same clamp-and-substitute configuration rules as the hardware
// wrapper and synthesizes channel counts that scale with gain and
// integration time.
type SimSensor struct {
	connected      bool
	hasExternalLed bool
	initialized    bool
	cfg            Config
	rng            *rand.Rand
}

// SimOptions controls the simulated hardware environment.
type SimOptions struct {
	Connected      bool
	HasExternalLed bool
	Seed           int64
}

func NewSimSensor(opts SimOptions) *SimSensor {
	return &SimSensor{
		connected:      opts.Connected,
		hasExternalLed: opts.HasExternalLed,
		rng:            rand.New(rand.NewSource(opts.Seed)),
	}
}

// Init probes the simulated bus and applies the default configuration.
func (s *SimSensor) Init() error {
	if !s.connected {
		s.initialized = false
		return ErrSensorNotFound
	}
	s.initialized = true
	s.Configure(DefaultGain, DefaultIntegrationMs, DefaultLedCurrentMa)
	return nil
}

// IsConnected probes the bus, initializing on first contact the way the
// hardware wrapper does.
func (s *SimSensor) IsConnected() bool {
	if !s.initialized && s.connected {
		_ = s.Init()
	}
	return s.initialized
}

// Configure applies gain, integration time, and LED current. Out-of-range
// gain or integration time falls back to the default; LED current is
// capped. The return value reports whether every input was applied as
// given.
func (s *SimSensor) Configure(gain, integrationTimeMs, ledCurrentMa int) bool {
	if !s.ensureInit() {
		return false
	}

	ok := true
	if gain < 0 || gain > MaxGain {
		gain = DefaultGain
		ok = false
	}
	if integrationTimeMs < MinIntegrationMs || integrationTimeMs > MaxIntegrationMs {
		integrationTimeMs = DefaultIntegrationMs
		ok = false
	}
	if ledCurrentMa < 0 {
		ledCurrentMa = DefaultLedCurrentMa
		ok = false
	} else if ledCurrentMa > MaxLedCurrentMa {
		ledCurrentMa = MaxLedCurrentMa
		ok = false
	}

	s.cfg.Gain = gain
	s.cfg.IntegrationTimeMs = integrationTimeMs
	s.cfg.LedCurrentMa = ledCurrentMa
	return ok
}

// ReadAllChannels synthesizes one full spectral reading. Counts scale with
// the gain multiplier and integration time and saturate at the 16-bit ADC
// ceiling.
func (s *SimSensor) ReadAllChannels() (map[string]int, error) {
	if !s.ensureInit() {
		return nil, ErrSensorNotFound
	}

	scale := gainMultiplier(s.cfg.Gain) * float64(s.cfg.IntegrationTimeMs) / float64(DefaultIntegrationMs)
	counts := make(map[string]int, len(SpectralChannels))
	for _, name := range SpectralChannels {
		base := float64(simBaseline[name])
		jitter := 1 + (s.rng.Float64()-0.5)*0.04
		v := int(base * scale * jitter)
		if v > 65535 {
			v = 65535
		}
		counts[name] = v
	}
	return counts, nil
}

func (s *SimSensor) SetOnboardLed(enabled bool, currentMa int) bool {
	if !s.ensureInit() {
		return false
	}
	if currentMa < 0 {
		currentMa = 0
	}
	if currentMa > MaxLedCurrentMa {
		currentMa = MaxLedCurrentMa
	}
	s.cfg.LedCurrentMa = currentMa
	s.cfg.LedEnabled = enabled
	return true
}

func (s *SimSensor) SetExternalLed(enabled bool) bool {
	if !s.hasExternalLed {
		return false
	}
	s.cfg.ExternalLedEnabled = enabled
	return true
}

func (s *SimSensor) AppliedConfig() Config {
	return s.cfg
}

func (s *SimSensor) ensureInit() bool {
	if s.initialized {
		return true
	}
	return s.Init() == nil
}

// gainMultiplier maps the gain index 0..10 onto the sensor's 0.5x..512x
// amplification ladder.
func gainMultiplier(gain int) float64 {
	m := 0.5
	for i := 0; i < gain; i++ {
		m *= 2
	}
	return m
}
