package bitstream

import (
	"errors"
	"testing"

	"github.com/user/vpccdec/internal/streamtest"
	"github.com/user/vpccdec/pkg/mocks"
)

func TestReader_ReadBits(t *testing.T) {
	r := NewReader([]byte{0b1010_1100, 0xFF, 0x01})

	tests := []struct {
		n    int
		want uint64
	}{
		{1, 1},
		{3, 0b010},
		{4, 0b1100},
		{8, 0xFF},
		{0, 0},
		{8, 0x01},
	}

	for _, tt := range tests {
		got, err := r.ReadBits(tt.n)
		if err != nil {
			t.Fatalf("ReadBits(%d) error: %v", tt.n, err)
		}
		if got != tt.want {
			t.Errorf("ReadBits(%d) = %#x, want %#x", tt.n, got, tt.want)
		}
	}

	if r.RemainingBits() != 0 {
		t.Errorf("expected 0 remaining bits, got %d", r.RemainingBits())
	}
}

func TestReader_ReadBitsWide(t *testing.T) {
	data := []byte{0x01, 0x23, 0x45, 0x67, 0x89, 0xAB, 0xCD, 0xEF}
	r := NewReader(data)

	got, err := r.ReadBits(64)
	if err != nil {
		t.Fatalf("ReadBits(64) error: %v", err)
	}
	if got != 0x0123456789ABCDEF {
		t.Errorf("got %#x", got)
	}
}

func TestReader_OutOfData(t *testing.T) {
	r := NewReader([]byte{0xAA})

	if _, err := r.ReadBits(4); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := r.ReadBits(5)
	if !errors.Is(err, ErrOutOfData) {
		t.Fatalf("expected ErrOutOfData, got %v", err)
	}
	if r.Pos() != 4 {
		t.Errorf("failed read moved cursor to %d", r.Pos())
	}

	if _, err := r.ReadFlag(); err != nil {
		t.Fatalf("ReadFlag after failed read: %v", err)
	}
}

func TestReader_InvalidWidth(t *testing.T) {
	r := NewReader(make([]byte, 16))
	if _, err := r.ReadBits(65); !errors.Is(err, ErrInvalidWidth) {
		t.Errorf("expected ErrInvalidWidth, got %v", err)
	}
	if _, err := r.ReadUint(33); !errors.Is(err, ErrInvalidWidth) {
		t.Errorf("expected ErrInvalidWidth, got %v", err)
	}
}

func TestReader_ExpGolomb(t *testing.T) {
	unsigned := []uint32{0, 1, 2, 3, 7, 8, 255, 1000, 65535}
	signed := []int32{0, 1, -1, 2, -2, 100, -100}

	w := &streamtest.BitWriter{}
	for _, v := range unsigned {
		w.WriteUE(v)
	}
	for _, v := range signed {
		w.WriteSE(v)
	}

	r := NewReader(w.Bytes())
	for _, want := range unsigned {
		got, err := r.ReadUE()
		if err != nil {
			t.Fatalf("ReadUE error: %v", err)
		}
		if got != want {
			t.Errorf("ReadUE = %d, want %d", got, want)
		}
	}
	for _, want := range signed {
		got, err := r.ReadSE()
		if err != nil {
			t.Fatalf("ReadSE error: %v", err)
		}
		if got != want {
			t.Errorf("ReadSE = %d, want %d", got, want)
		}
	}
}

func TestReader_ExpGolombTruncated(t *testing.T) {
	// Leading zeros with no terminating one bit.
	r := NewReader([]byte{0x00})
	_, err := r.ReadUE()
	if !errors.Is(err, ErrOutOfData) {
		t.Fatalf("expected ErrOutOfData, got %v", err)
	}
	if r.Pos() != 0 {
		t.Errorf("failed ReadUE moved cursor to %d", r.Pos())
	}
}

func TestReader_ReadSigned(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		n    int
		want int64
	}{
		{"positive", []byte{0b0011_0000}, 4, 3},
		{"negative", []byte{0b1101_0000}, 4, -3},
		{"min", []byte{0x80}, 8, -128},
		{"minus one", []byte{0xFF}, 8, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewReader(tt.data).ReadSigned(tt.n)
			if err != nil {
				t.Fatalf("ReadSigned error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ReadSigned = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestReader_ReadBytes(t *testing.T) {
	r := NewReader([]byte{0xF0, 1, 2, 3, 4})

	if _, err := r.ReadBits(4); err != nil {
		t.Fatal(err)
	}
	if _, err := r.ReadBytes(1); !errors.Is(err, ErrNotAligned) {
		t.Fatalf("expected ErrNotAligned, got %v", err)
	}

	r.ByteAlign()
	if r.Remaining() != 4 {
		t.Fatalf("expected 4 remaining bytes, got %d", r.Remaining())
	}

	got, err := r.ReadBytes(2)
	if err != nil {
		t.Fatalf("ReadBytes error: %v", err)
	}
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("ReadBytes = %v", got)
	}

	if _, err := r.ReadBytes(3); !errors.Is(err, ErrOutOfData) {
		t.Fatalf("expected ErrOutOfData, got %v", err)
	}

	rest, err := r.Rest()
	if err != nil {
		t.Fatalf("Rest error: %v", err)
	}
	if len(rest) != 2 {
		t.Errorf("expected 2 rest bytes, got %d", len(rest))
	}
}

func TestReader_Skip(t *testing.T) {
	r := NewReader([]byte{0x0F})
	if err := r.Skip(4); err != nil {
		t.Fatal(err)
	}
	v, err := r.ReadBits(4)
	if err != nil || v != 0xF {
		t.Fatalf("ReadBits after Skip = %#x, %v", v, err)
	}
	if err := r.Skip(1); !errors.Is(err, ErrOutOfData) {
		t.Errorf("expected ErrOutOfData, got %v", err)
	}
}

func TestLoadSource(t *testing.T) {
	fs := mocks.NewFileSystem()
	fs.WriteFile("in.bin", []byte{0x40})
	fs.WriteFile("empty.bin", []byte{})

	data, err := LoadSource(fs, "in.bin")
	if err != nil || len(data) != 1 {
		t.Fatalf("LoadSource = %v, %v", data, err)
	}
	if _, err := LoadSource(fs, "empty.bin"); !errors.Is(err, ErrEmptySource) {
		t.Errorf("expected ErrEmptySource, got %v", err)
	}
	if _, err := LoadSource(fs, "missing.bin"); err == nil {
		t.Error("expected error for missing file")
	}
}
