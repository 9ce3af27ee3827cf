package logger

import (
	"bytes"
	"log"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	for _, tc := range []struct {
		raw  string
		want Level
		ok   bool
	}{
		{"trace", LevelTrace, true},
		{"DEBUG", LevelDebug, true},
		{"", LevelInfo, true},
		{"warning", LevelWarn, true},
		{"verbose", LevelInfo, false},
	} {
		got, err := ParseLevel(tc.raw)
		if tc.ok {
			require.NoError(t, err, tc.raw)
		} else {
			require.Error(t, err, tc.raw)
		}
		require.Equal(t, tc.want, got, tc.raw)
	}
}

func TestThresholdFiltersOutput(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetFlags(0)
	SetLevel(LevelWarn)
	t.Cleanup(func() {
		SetOutput(os.Stderr)
		SetFlags(log.LstdFlags)
		SetLevel(LevelInfo)
	})

	Debugf("hidden %d", 1)
	Infof("hidden %d", 2)
	Warnf("shown %d", 3)
	Errorf("shown %d", 4)

	out := buf.String()
	require.NotContains(t, out, "hidden")
	require.Contains(t, out, "[WARN] shown 3")
	require.Contains(t, out, "[ERROR] shown 4")
	require.False(t, Enabled(LevelInfo))
	require.True(t, Enabled(LevelError))
	require.Equal(t, 2, strings.Count(out, "\n"))
}
