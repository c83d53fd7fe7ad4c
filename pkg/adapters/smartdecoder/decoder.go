// Package smartdecoder routes each video sub-stream to the decoder that
// can handle its codec.
package smartdecoder

import (
	"context"
	"errors"
	"fmt"

	"github.com/user/vpccdec/pkg/adapters/codecdetect"
	"github.com/user/vpccdec/pkg/adapters/ffmpegvideo"
	"github.com/user/vpccdec/pkg/adapters/rawvideo"
	"github.com/user/vpccdec/pkg/pipeline"
	"github.com/user/vpccdec/pkg/ports"
)

// Backend represents the decoding backend used for a stream.
type Backend string

const (
	BackendRaw    Backend = "raw"
	BackendFFmpeg Backend = "ffmpeg"
)

// ErrUnsupportedCodec is returned when no backend handles the codec.
var ErrUnsupportedCodec = errors.New("smartdecoder: unsupported codec")

// Options configures the smart decoder behavior.
type Options struct {
	FFmpeg ffmpegvideo.Options
}

// Decoder dispatches to a raw or an external decoder.
type Decoder struct {
	raw      ports.VideoDecoder
	external ports.VideoDecoder
	logger   ports.Logger
}

// New creates a decoder with the default backends.
func New(opts Options, fs ports.FileSystem, logger ports.Logger) *Decoder {
	return NewWithBackends(rawvideo.New(), ffmpegvideo.New(opts.FFmpeg, fs, logger), logger)
}

// NewWithBackends creates a decoder with explicit backends.
func NewWithBackends(raw, external ports.VideoDecoder, logger ports.Logger) *Decoder {
	return &Decoder{
		raw:      raw,
		external: external,
		logger:   logger.WithComponent("video"),
	}
}

// Select returns the backend for a stream. Streams that carry the raw
// header are decoded as raw whatever their declared codec.
func Select(stream ports.VideoStream) (Backend, error) {
	if codecdetect.DetectContainer(stream.Data) == codecdetect.ContainerRaw {
		return BackendRaw, nil
	}
	switch stream.Codec {
	case ports.CodecRaw:
		return BackendRaw, nil
	case ports.CodecAVC, ports.CodecHEVC, ports.CodecVVC:
		return BackendFFmpeg, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedCodec, stream.Codec)
	}
}

// Decode decodes a stream with the selected backend.
func (d *Decoder) Decode(ctx context.Context, stream ports.VideoStream) ([]pipeline.SampleBuffer, error) {
	backend, err := Select(stream)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ports.ErrVideoDecode, stream.Label, err)
	}
	d.logger.Debug("Decoding %s video with %s backend: %d bytes", stream.Label, backend, len(stream.Data))

	if backend == BackendRaw {
		return d.raw.Decode(ctx, stream)
	}
	return d.external.Decode(ctx, stream)
}

var _ ports.VideoDecoder = (*Decoder)(nil)
