package envcheck

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	fresh := filepath.Join(dir, "fresh.jsonl")
	if err := os.WriteFile(fresh, []byte("data\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	empty := filepath.Join(dir, "empty.jsonl")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	stale := filepath.Join(dir, "stale.jsonl")
	if err := os.WriteFile(stale, []byte("data\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	old := time.Now().Add(-MaxStaleness - 24*time.Hour)
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	now := time.Now()
	tests := []struct {
		name    string
		checks  []Check
		wantErr bool
	}{
		{"directory ok", []Check{{Path: dir, Dir: true}}, false},
		{"fresh file ok", []Check{{Path: fresh}}, false},
		{"missing dir", []Check{{Path: filepath.Join(dir, "nope"), Dir: true}}, true},
		{"missing file", []Check{{Path: filepath.Join(dir, "nope.jsonl")}}, true},
		{"empty file", []Check{{Path: empty}}, true},
		{"stale file", []Check{{Path: stale}}, true},
		{"stale warn-only passes", []Check{{Path: stale, WarnOnly: true}}, false},
		{"missing warn-only passes", []Check{{Path: filepath.Join(dir, "nope"), Dir: true, WarnOnly: true}}, false},
		{"file where dir expected", []Check{{Path: fresh, Dir: true}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.checks, now)
			if tt.wantErr && err == nil {
				t.Fatal("expected error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
