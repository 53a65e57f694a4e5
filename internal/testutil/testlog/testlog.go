package testlog

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/spectroneph/nephd/internal/logging"
)

// Start configures logging for tests and returns a logger tagged with the
// test name.
func Start(t *testing.T) zerolog.Logger {
	t.Helper()
	logging.ConfigureTests()
	return zerolog.Nop().With().Str("test", t.Name()).Logger()
}
