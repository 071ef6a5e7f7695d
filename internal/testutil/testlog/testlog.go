package testlog

import (
	"testing"

	"github.com/danmuck/seedbank/internal/logging"
	"github.com/rs/zerolog/log"
)

func Start(t *testing.T) {
	t.Helper()
	logging.ConfigureTests()
	log.Info().Msgf("test=%s", t.Name())
}

// Logf writes a test progress line through the shared logger.
func Logf(format string, args ...any) {
	log.Info().Msgf(format, args...)
}
