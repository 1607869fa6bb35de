package server

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relay.log")
	log, err := NewLogger(LogConfig{File: path, Level: "info"})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	log.Debugf("hidden %d", 1)
	log.Infof("player %s joined", "abc")
	if err := SyncLogger(log); err != nil {
		t.Fatalf("sync: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	out := string(b)
	if !strings.Contains(out, "player abc joined") || !strings.Contains(out, "INFO") {
		t.Fatalf("log file = %q", out)
	}
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line written at info level")
	}
}

func TestNewLoggerBadLevel(t *testing.T) {
	if _, err := NewLogger(LogConfig{Level: "chatty"}); err == nil {
		t.Fatalf("invalid level accepted")
	}
}

func TestSyncLoggerNil(t *testing.T) {
	if err := SyncLogger(nil); err != nil {
		t.Fatalf("sync nil: %v", err)
	}
}
