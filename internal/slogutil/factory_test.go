package slogutil

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"flowbridge/internal/config"
)

func TestNew_ConsoleOnly(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.DefaultConfig().Logging

	logger, closer, err := New(cfg, Options{Console: &buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer closer.Close()

	logger.Debug("hidden")
	logger.Info("shown")

	if strings.Contains(buf.String(), "hidden") {
		t.Error("debug should be filtered at the default info level")
	}
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("expected info record, got: %s", buf.String())
	}
}

func TestNew_ConsoleLevel(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.DefaultConfig().Logging
	level := slog.LevelDebug

	logger, closer, err := New(cfg, Options{Console: &buf, ConsoleLevel: &level})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer closer.Close()

	logger.Debug("visible now")
	if !strings.Contains(buf.String(), "visible now") {
		t.Errorf("console level should enable debug, got: %s", buf.String())
	}
}

func TestNew_FileKeepsConfiguredLevel(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.DefaultConfig().Logging
	cfg.File = filepath.Join(t.TempDir(), "flowbridge.log")
	warn := slog.LevelWarn

	logger, closer, err := New(cfg, Options{Console: &buf, ConsoleLevel: &warn})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	logger.Info("Started worker", "root", "/src")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if buf.Len() != 0 {
		t.Errorf("console at warn should drop info, got: %s", buf.String())
	}
	data, err := os.ReadFile(cfg.File)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "Started worker") {
		t.Errorf("file at info should keep the record, got: %s", data)
	}
}

func TestNew_UnknownLevel(t *testing.T) {
	cfg := config.DefaultConfig().Logging
	cfg.Level = "loud"

	if _, _, err := New(cfg, Options{}); err == nil {
		t.Fatal("expected an error for an unknown level")
	}
}

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.DefaultConfig().Logging
	cfg.Format = "json"

	logger, closer, err := New(cfg, Options{Console: &buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer closer.Close()

	logger.Info("hello", "root", "/a")

	var rec map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("expected JSON record, got %q: %v", buf.String(), err)
	}
	if rec["root"] != "/a" {
		t.Errorf("root = %v, want /a", rec["root"])
	}
}

func TestNew_FileAndConsole(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.DefaultConfig().Logging
	cfg.File = filepath.Join(t.TempDir(), "logs", "flowbridge.log")

	logger, closer, err := New(cfg, Options{Console: &buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	logger.Warn("worker crashed", "root", "/src")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(cfg.File)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "worker crashed") {
		t.Errorf("file should contain the record, got: %s", data)
	}
	if !strings.Contains(buf.String(), "worker crashed") {
		t.Errorf("console should contain the record, got: %s", buf.String())
	}
}

func TestNew_NoSinks(t *testing.T) {
	logger, closer, err := New(config.DefaultConfig().Logging, Options{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer closer.Close()

	if logger.Enabled(t.Context(), slog.LevelError) {
		t.Error("logger without sinks should discard everything")
	}
}
