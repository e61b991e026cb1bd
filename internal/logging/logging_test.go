package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func readLines(t *testing.T, path string) []map[string]any {
	t.Helper()
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(string(raw)), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("decode %q: %v", line, err)
		}
		out = append(out, rec)
	}
	return out
}

func TestNewWritesConsoleAndRotatingFiles(t *testing.T) {
	dir := t.TempDir()
	var console bytes.Buffer

	logger, closer, err := New(Config{Dir: dir, Level: slog.LevelDebug, Console: &console})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger = logger.With("component", "test")
	logger.Debug("token expired", "identity", "u-1")
	logger.Error("session mismatch", "identity", "u-2")

	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if !strings.Contains(console.String(), "token expired") || !strings.Contains(console.String(), "component=test") {
		t.Fatalf("console missing records: %q", console.String())
	}

	app := readLines(t, filepath.Join(dir, appLogName))
	if len(app) != 2 || app[0]["msg"] != "token expired" || app[1]["component"] != "test" {
		t.Fatalf("unexpected app log %v", app)
	}

	errs := readLines(t, filepath.Join(dir, errorLogName))
	if len(errs) != 1 || errs[0]["msg"] != "session mismatch" || errs[0]["identity"] != "u-2" {
		t.Fatalf("unexpected error log %v", errs)
	}
}

func TestNoFilesSkipsDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "unused")
	var console bytes.Buffer

	logger, closer, err := New(Config{Dir: dir, Console: &console, NoFiles: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer closer.Close()

	logger.Debug("hidden")
	logger.Info("shown")

	if strings.Contains(console.String(), "hidden") || !strings.Contains(console.String(), "shown") {
		t.Fatalf("level not honoured: %q", console.String())
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("log dir must not be created, stat err=%v", err)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
		"loud":  slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
