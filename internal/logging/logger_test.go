package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestNew_WritesToProvidedOutput(t *testing.T) {
	var buf bytes.Buffer
	lg := New(Config{Level: LevelInfo, Output: &buf})
	lg.Info("hello", "k", "v")

	if !strings.Contains(buf.String(), "hello") {
		t.Errorf("expected log output to contain message, got %q", buf.String())
	}
}

func TestNew_FailedSyslogDialDoesNotPreventLogging(t *testing.T) {
	var buf bytes.Buffer
	lg := New(Config{
		Level:  LevelInfo,
		Output: &buf,
		Syslog: &SyslogConfig{Enabled: true, Host: ""}, // invalid: dial must fail
	})
	lg.Info("still works")

	if !strings.Contains(buf.String(), "syslog forwarding disabled") {
		t.Errorf("expected a fallback notice in output, got %q", buf.String())
	}
	if !strings.Contains(buf.String(), "still works") {
		t.Errorf("expected the log entry to still be written, got %q", buf.String())
	}
}

func TestWithComponent_AttachesComponentField(t *testing.T) {
	var buf bytes.Buffer
	lg := New(Config{Level: LevelInfo, Output: &buf}).WithComponent("dpi")
	lg.Info("ready")

	if !strings.Contains(buf.String(), "dpi") {
		t.Errorf("expected component field in output, got %q", buf.String())
	}
}

func TestWithError_AttachesErrorField(t *testing.T) {
	var buf bytes.Buffer
	lg := New(Config{Level: LevelInfo, Output: &buf}).WithError(errExample)
	lg.Warn("failed")

	if !strings.Contains(buf.String(), "boom") {
		t.Errorf("expected error field in output, got %q", buf.String())
	}
}

var errExample = exampleErr("boom")

type exampleErr string

func (e exampleErr) Error() string { return string(e) }
