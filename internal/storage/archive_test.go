package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestObjectName(t *testing.T) {
	got := ObjectName("Proficiency Bonus - Pharmacist", "abc-123")
	want := "Proficiency_Bonus_-_Pharmacist/abc-123.xlsx"
	if got != want {
		t.Errorf("ObjectName() = %q, want %q", got, want)
	}
}

func TestDirArchiver(t *testing.T) {
	dir := t.TempDir()
	a := NewDirArchiver(dir)

	path, err := a.Put(context.Background(), "Pharmacist/r1.xlsx", []byte("data"), XLSXContentType)
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if path != filepath.Join(dir, "Pharmacist", "r1.xlsx") {
		t.Errorf("unexpected path %q", path)
	}

	raw, err := os.ReadFile(path)
	if err != nil || string(raw) != "data" {
		t.Errorf("archived content = %q, err %v", raw, err)
	}
}
