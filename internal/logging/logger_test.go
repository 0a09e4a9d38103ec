package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

// TestLoggerWritesToOutput verifies log lines land on the configured writer
// with their message intact.
func TestLoggerWritesToOutput(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	l.Infof("downloaded %d chapters", 3)
	if out := buf.String(); !strings.Contains(out, "downloaded 3 chapters") {
		t.Errorf("output = %q, want the formatted message", out)
	}
	if l.Output() != &buf {
		t.Error("Output() should return the configured writer")
	}
}

// TestLoggerHonorsGlobalLevel verifies debug messages are suppressed at the
// default level and shown once the level is lowered.
func TestLoggerHonorsGlobalLevel(t *testing.T) {
	defer SetGlobalLevel(zerolog.InfoLevel)

	var buf bytes.Buffer
	l := NewLogger(&buf)

	SetGlobalLevel(zerolog.InfoLevel)
	l.Debugf("hidden")
	if strings.Contains(buf.String(), "hidden") {
		t.Error("debug message shown at info level")
	}

	SetGlobalLevel(zerolog.DebugLevel)
	l.Debugf("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Error("debug message missing at debug level")
	}
}

// TestLoggerLevels verifies warn and error lines carry their level marker.
func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	l.Warnf("careful")
	l.Errorf("broken")
	out := buf.String()
	if !strings.Contains(out, "careful") || !strings.Contains(out, "broken") {
		t.Fatalf("output = %q, want both messages", out)
	}
	if !strings.Contains(out, "WRN") || !strings.Contains(out, "ERR") {
		t.Errorf("output = %q, want console level markers", out)
	}
}
