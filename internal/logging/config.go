package logging

import (
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

const EnvLogLevel = "NEPHD_LOG_LEVEL"

type Profile int

const (
	ProfileRuntime Profile = iota
	ProfileTest
)

var configureOnce sync.Once

func ConfigureRuntime() {
	Configure(ProfileRuntime)
}

func ConfigureTests() {
	Configure(ProfileTest)
}

// Configure sets the global zerolog level once per process. The
// environment override wins over the profile default.
func Configure(profile Profile) {
	configureOnce.Do(func() {
		level := defaultLevel(profile)
		if lvl, ok := ParseLevel(os.Getenv(EnvLogLevel)); ok {
			level = lvl
		}
		zerolog.SetGlobalLevel(level)
	})
}

func defaultLevel(profile Profile) zerolog.Level {
	if profile == ProfileTest {
		return zerolog.DebugLevel
	}
	return zerolog.InfoLevel
}

func ParseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return zerolog.InfoLevel, false
	case "trace", "diagnostics":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "disable", "off", "none":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}
