package smartdecoder

import (
	"context"
	"errors"
	"testing"

	"github.com/user/vpccdec/pkg/adapters/logger"
	"github.com/user/vpccdec/pkg/mocks"
	"github.com/user/vpccdec/pkg/pipeline"
	"github.com/user/vpccdec/pkg/ports"
)

func TestSelect(t *testing.T) {
	tests := []struct {
		name    string
		stream  ports.VideoStream
		want    Backend
		wantErr bool
	}{
		{"raw codec", ports.VideoStream{Codec: ports.CodecRaw}, BackendRaw, false},
		{"raw header wins", ports.VideoStream{Codec: ports.CodecHEVC, Data: []byte("RAWV....")}, BackendRaw, false},
		{"hevc", ports.VideoStream{Codec: ports.CodecHEVC, Data: []byte{0, 0, 0, 1}}, BackendFFmpeg, false},
		{"avc", ports.VideoStream{Codec: ports.CodecAVC}, BackendFFmpeg, false},
		{"vvc", ports.VideoStream{Codec: ports.CodecVVC}, BackendFFmpeg, false},
		{"unknown", ports.VideoStream{Codec: "av1"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Select(tt.stream)
			if tt.wantErr {
				if !errors.Is(err, ErrUnsupportedCodec) {
					t.Fatalf("expected ErrUnsupportedCodec, got %v", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("Select = %s, %v; want %s", got, err, tt.want)
			}
		})
	}
}

func TestDecoder_Dispatch(t *testing.T) {
	raw := mocks.NewVideoDecoder()
	raw.Results["r"] = []pipeline.SampleBuffer{pipeline.NewSampleBuffer(1, 1, 1, 8)}
	external := mocks.NewVideoDecoder()

	d := NewWithBackends(raw, external, logger.NewNoop())

	bufs, err := d.Decode(context.Background(), ports.VideoStream{Codec: ports.CodecRaw, Label: "r"})
	if err != nil || len(bufs) != 1 {
		t.Fatalf("raw decode = %d buffers, %v", len(bufs), err)
	}
	if _, err := d.Decode(context.Background(), ports.VideoStream{Codec: ports.CodecHEVC, Label: "h"}); err != nil {
		t.Fatal(err)
	}
	if len(raw.Calls()) != 1 || len(external.Calls()) != 1 {
		t.Errorf("calls raw=%d external=%d, want 1/1", len(raw.Calls()), len(external.Calls()))
	}

	_, err = d.Decode(context.Background(), ports.VideoStream{Codec: "av1"})
	if !errors.Is(err, ports.ErrVideoDecode) {
		t.Errorf("expected ErrVideoDecode, got %v", err)
	}
}
