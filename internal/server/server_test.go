package server

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/HendryAvila/teampulse/internal/config"
	"github.com/HendryAvila/teampulse/internal/store"
)

func TestNew_OpensStoreAndRegisters(t *testing.T) {
	cfg := config.Default()
	cfg.DataDir = t.TempDir()

	s, cleanup, err := New(cfg, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer cleanup()

	if s == nil {
		t.Fatal("expected a server")
	}
	if _, err := os.Stat(filepath.Join(cfg.DataDir, store.DBFile)); err != nil {
		t.Errorf("database not created: %v", err)
	}
}

func TestNew_BadDataDirReturnsNoopCleanup(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := config.Default()
	cfg.DataDir = file

	_, cleanup, err := New(cfg, nil, nil)
	if err == nil {
		t.Fatal("expected error for a data dir that is a file")
	}
	cleanup()
}
