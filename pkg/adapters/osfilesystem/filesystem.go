// Package osfilesystem implements ports.FileSystem on the local disk.
package osfilesystem

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/user/vpccdec/pkg/ports"
)

// FileSystem implements ports.FileSystem using the os package.
type FileSystem struct{}

// New creates a new FileSystem.
func New() *FileSystem {
	return &FileSystem{}
}

func (FileSystem) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// WriteFile writes data to a file, creating parent directories as needed.
func (FileSystem) WriteFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0644)
}

func (FileSystem) MkdirAll(path string) error {
	return os.MkdirAll(path, 0755)
}

// Exists reports whether path exists. Errors other than not-exist are returned.
func (FileSystem) Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

func (FileSystem) Remove(path string) error {
	return os.Remove(path)
}

func (FileSystem) RemoveAll(path string) error {
	return os.RemoveAll(path)
}

// CreateTempDir creates a new directory under dir, creating dir first if
// it does not exist yet.
func (FileSystem) CreateTempDir(dir, pattern string) (string, error) {
	if dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", err
		}
	}
	return os.MkdirTemp(dir, pattern)
}

var _ ports.FileSystem = (*FileSystem)(nil)
