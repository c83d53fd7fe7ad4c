package bitstream

import (
	"errors"
	"fmt"

	"github.com/user/vpccdec/pkg/ports"
)

// ErrEmptySource is returned when a bitstream file holds no bytes.
var ErrEmptySource = errors.New("bitstream: empty source")

// LoadSource reads a whole bitstream file through fs.
func LoadSource(fs ports.FileSystem, path string) ([]byte, error) {
	data, err := fs.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bitstream %s: %w", path, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptySource, path)
	}
	return data, nil
}
