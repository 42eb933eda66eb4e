package logger

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bm.log")

	log, err := New(Options{Level: "debug", Pretty: false, File: path})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	log.With(String("user_id", "u1")).Info("bookmark added",
		String("id", "b1"), Int("count", 2), Bool("temp", false), Error(errors.New("boom")))
	_ = log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	out := string(data)
	for _, want := range []string{`"msg":"bookmark added"`, `"user_id":"u1"`, `"id":"b1"`, `"error":"boom"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %s: %s", want, out)
		}
	}
}

func TestLevelFilters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bm.log")

	log, err := New(Options{Level: "warn", File: path})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	log.Info("hidden")
	log.Warn("shown")
	_ = log.Sync()

	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "hidden") {
		t.Error("info line written at warn level")
	}
	if !strings.Contains(string(data), "shown") {
		t.Error("warn line missing")
	}
}

func TestParseLevelUnknown(t *testing.T) {
	if parseLevel("verbose") != nil {
		t.Error("parseLevel(verbose) should be nil")
	}
}
