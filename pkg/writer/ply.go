// Package writer serializes decoded point clouds as PLY files.
package writer

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/user/vpccdec/pkg/pipeline"
)

// Format selects the PLY body encoding.
type Format int

const (
	// FormatASCII writes one text line per point.
	FormatASCII Format = iota
	// FormatBinary writes little-endian binary records.
	FormatBinary
)

// ErrUnknownFormat is returned by ParseFormat for unrecognized names.
var ErrUnknownFormat = errors.New("writer: unknown format")

// String returns the name accepted by ParseFormat.
func (f Format) String() string {
	switch f {
	case FormatASCII:
		return "ascii"
	case FormatBinary:
		return "binary"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

// ParseFormat parses "ascii" or "binary".
func ParseFormat(s string) (Format, error) {
	switch s {
	case "ascii", "":
		return FormatASCII, nil
	case "binary", "binary_little_endian":
		return FormatBinary, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// Encode writes cloud as a PLY document. Positions are float properties;
// colors, when present, are uchar red/green/blue.
func Encode(w io.Writer, cloud pipeline.PointCloud, format Format) error {
	if err := cloud.Validate(); err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	if err := writeHeader(bw, cloud, format); err != nil {
		return err
	}

	var err error
	switch format {
	case FormatASCII:
		err = writeASCII(bw, cloud)
	case FormatBinary:
		err = writeBinary(bw, cloud)
	default:
		err = fmt.Errorf("%w: %d", ErrUnknownFormat, int(format))
	}
	if err != nil {
		return err
	}
	return bw.Flush()
}

// Marshal returns the PLY encoding of cloud.
func Marshal(cloud pipeline.PointCloud, format Format) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, cloud, format); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeHeader(w *bufio.Writer, cloud pipeline.PointCloud, format Format) error {
	body := "ascii"
	if format == FormatBinary {
		body = "binary_little_endian"
	}
	fmt.Fprintf(w, "ply\nformat %s 1.0\n", body)
	fmt.Fprintf(w, "element vertex %d\n", cloud.Len())
	fmt.Fprint(w, "property float x\nproperty float y\nproperty float z\n")
	if cloud.WithColors {
		fmt.Fprint(w, "property uchar red\nproperty uchar green\nproperty uchar blue\n")
	}
	_, err := fmt.Fprint(w, "end_header\n")
	return err
}

func writeASCII(w *bufio.Writer, cloud pipeline.PointCloud) error {
	line := make([]byte, 0, 64)
	for i, p := range cloud.Positions {
		line = line[:0]
		line = strconv.AppendFloat(line, float64(p.X), 'g', -1, 32)
		line = append(line, ' ')
		line = strconv.AppendFloat(line, float64(p.Y), 'g', -1, 32)
		line = append(line, ' ')
		line = strconv.AppendFloat(line, float64(p.Z), 'g', -1, 32)
		if cloud.WithColors {
			c := cloud.Colors[i]
			line = append(line, ' ')
			line = strconv.AppendUint(line, uint64(c.R), 10)
			line = append(line, ' ')
			line = strconv.AppendUint(line, uint64(c.G), 10)
			line = append(line, ' ')
			line = strconv.AppendUint(line, uint64(c.B), 10)
		}
		line = append(line, '\n')
		if _, err := w.Write(line); err != nil {
			return err
		}
	}
	return nil
}

func writeBinary(w *bufio.Writer, cloud pipeline.PointCloud) error {
	size := 12
	if cloud.WithColors {
		size += 3
	}
	rec := make([]byte, size)
	for i, p := range cloud.Positions {
		binary.LittleEndian.PutUint32(rec[0:], math.Float32bits(p.X))
		binary.LittleEndian.PutUint32(rec[4:], math.Float32bits(p.Y))
		binary.LittleEndian.PutUint32(rec[8:], math.Float32bits(p.Z))
		if cloud.WithColors {
			c := cloud.Colors[i]
			rec[12], rec[13], rec[14] = c.R, c.G, c.B
		}
		if _, err := w.Write(rec); err != nil {
			return err
		}
	}
	return nil
}
