package logging

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSetupWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "assay.log")
	closer := Setup(Options{File: path, MaxSizeMB: 1, MaxBackups: 1, MaxAgeDays: 1})
	t.Cleanup(func() { log.SetOutput(os.Stderr) })
	log.Printf("engine: hello %d", 7)
	if err := closer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), "engine: hello 7") {
		t.Fatalf("log file = %q", data)
	}
}

func TestSetupWithoutFile(t *testing.T) {
	closer := Setup(Options{})
	if err := closer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
