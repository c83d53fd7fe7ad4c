package osfilesystem

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileSystem_WriteAndReadFile(t *testing.T) {
	fs := New()
	path := filepath.Join(t.TempDir(), "a", "b", "frame_0000.ply")

	if err := fs.WriteFile(path, []byte("ply\n")); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	data, err := fs.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "ply\n" {
		t.Errorf("expected %q, got %q", "ply\n", data)
	}
}

func TestFileSystem_Exists(t *testing.T) {
	fs := New()
	dir := t.TempDir()
	present := filepath.Join(dir, "present.bin")
	os.WriteFile(present, []byte{1}, 0644)

	tests := []struct {
		path string
		want bool
	}{
		{present, true},
		{dir, true},
		{filepath.Join(dir, "missing.bin"), false},
	}
	for _, tt := range tests {
		got, err := fs.Exists(tt.path)
		if err != nil {
			t.Fatalf("Exists(%s) failed: %v", tt.path, err)
		}
		if got != tt.want {
			t.Errorf("Exists(%s) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestFileSystem_RemoveAndRemoveAll(t *testing.T) {
	fs := New()
	dir := t.TempDir()

	file := filepath.Join(dir, "unit.bin")
	os.WriteFile(file, []byte{1}, 0644)
	if err := fs.Remove(file); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if ok, _ := fs.Exists(file); ok {
		t.Error("expected file to be removed")
	}

	tree := filepath.Join(dir, "tree")
	fs.WriteFile(filepath.Join(tree, "x", "y.bin"), []byte{1})
	if err := fs.RemoveAll(tree); err != nil {
		t.Fatalf("RemoveAll failed: %v", err)
	}
	if ok, _ := fs.Exists(tree); ok {
		t.Error("expected tree to be removed")
	}
}

func TestFileSystem_CreateTempDir(t *testing.T) {
	fs := New()
	parent := filepath.Join(t.TempDir(), "work")

	dir, err := fs.CreateTempDir(parent, "vpccdec-*")
	if err != nil {
		t.Fatalf("CreateTempDir failed: %v", err)
	}
	if filepath.Dir(dir) != parent {
		t.Errorf("temp dir %s not under %s", dir, parent)
	}
	if !strings.HasPrefix(filepath.Base(dir), "vpccdec-") {
		t.Errorf("unexpected name %s", filepath.Base(dir))
	}
	if ok, _ := fs.Exists(dir); !ok {
		t.Error("temp dir does not exist")
	}
}
