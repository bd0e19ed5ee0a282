package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMoveFileReplaces(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a")
	dst := filepath.Join(dir, "b")
	os.WriteFile(src, []byte("new"), 0o644)
	os.WriteFile(dst, []byte("old"), 0o644)

	if err := MoveFile(src, dst); err != nil {
		t.Fatalf("MoveFile failed: %v", err)
	}
	data, _ := os.ReadFile(dst)
	if string(data) != "new" {
		t.Errorf("Expected replaced content, got %q", data)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Errorf("Expected source to be gone")
	}
}

func TestDeleteFileMissing(t *testing.T) {
	if err := DeleteFile(filepath.Join(t.TempDir(), "gone")); err != nil {
		t.Errorf("Expected nil for a missing file, got %v", err)
	}
}

func TestUUID(t *testing.T) {
	id := GenerateUUID()
	if !IsUUID(id) {
		t.Errorf("Expected %q to validate", id)
	}
	if IsUUID("not-a-uuid") {
		t.Error("Expected garbage to be rejected")
	}
}
