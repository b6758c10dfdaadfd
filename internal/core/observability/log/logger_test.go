package log

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug": LevelDebug,
		"":      LevelInfo,
		"INFO":  LevelInfo,
		"warn":  LevelWarn,
		"error": LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	require.Error(t, err)
}

func TestLoggerLevels(t *testing.T) {
	l, err := New(Config{Level: "warn", Encoding: "console"})
	require.NoError(t, err)
	require.False(t, l.Enabled(LevelInfo))
	require.True(t, l.Enabled(LevelError))

	l.SetLevel(LevelDebug)
	require.True(t, l.Enabled(LevelDebug))

	child := l.With(String("system", "physics"), Error(errors.New("boom"))).Named("tick")
	child.Debug("child logger works", Int("entities", 3), Float64("dt", 0.033))
}

func TestNopLogger(t *testing.T) {
	l := NewNop()
	require.False(t, l.Enabled(LevelError))
	l.Error("discarded", Error(nil))
	require.NotNil(t, Provide(Config{Level: "nope"}))
}
