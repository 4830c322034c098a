// internal/testutil/testlog/testlog.go
package testlog

import (
	"testing"

	"github.com/rs/zerolog"
)

// Logger returns a debug logger that writes through t.Log.
func Logger(t testing.TB) *zerolog.Logger {
	t.Helper()
	l := zerolog.New(zerolog.NewTestWriter(t)).Level(zerolog.DebugLevel).With().Str("test", t.Name()).Logger()
	return &l
}
