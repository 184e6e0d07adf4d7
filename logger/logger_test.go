package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"keep-notes/config"
)

func TestNew(t *testing.T) {
	t.Run("Prod logs JSON at info", func(t *testing.T) {
		var buf bytes.Buffer
		log := newWithWriter(config.EnvProd, &buf)

		log.Debug("hidden")
		log.Info("user logged in", Err(errors.New("boom")))

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		if len(lines) != 1 {
			t.Fatalf("Expected 1 log line, got %d: %q", len(lines), buf.String())
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
			t.Fatalf("Log line is not JSON: %v", err)
		}
		if entry["msg"] != "user logged in" || entry["error"] != "boom" {
			t.Errorf("Unexpected log entry: %v", entry)
		}
	})

	t.Run("Local logs text at debug", func(t *testing.T) {
		var buf bytes.Buffer
		log := newWithWriter(config.EnvLocal, &buf)

		log.Debug("visible")

		if !strings.Contains(buf.String(), "msg=visible") {
			t.Errorf("Expected text debug line, got %q", buf.String())
		}
	})
}
