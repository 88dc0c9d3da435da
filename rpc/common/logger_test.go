package common

import (
	"bytes"
	"strings"
	"testing"

	"github.com/lni/dragonboat/v4/logger"
)

func TestCreateLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	old := logOutput
	logOutput = &buf
	t.Cleanup(func() { logOutput = old })

	l := CreateLogger("server")
	l.Infof("client %s connected", "Alice")
	l.Debugf("hidden")

	out := buf.String()
	if !strings.Contains(out, "INFO  | server     | client Alice connected") {
		t.Errorf("unexpected log line: %q", out)
	}
	if strings.Contains(out, "hidden") {
		t.Errorf("debug line written at info level: %q", out)
	}

	buf.Reset()
	l.SetLevel(logger.DEBUG)
	l.Debugf("visible")
	if !strings.Contains(out+buf.String(), "DEBUG | server     | visible") {
		t.Errorf("unexpected debug line: %q", buf.String())
	}
}

func TestInitLoggersRejectsUnknownLevel(t *testing.T) {
	if err := InitLoggers("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}
