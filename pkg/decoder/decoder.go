// Package decoder is the consumer API of the point-cloud decoder. A
// Decoder runs one decode pass on a worker goroutine and hands the
// reconstructed frames over one at a time, in order.
//
// A consumer creates a decoder, starts it and pulls frames:
//
//	d := decoder.New(decoder.DefaultParams(decoder.FileSource("in.bin")))
//	if err := d.Start(ctx); err != nil {
//		return err
//	}
//	defer d.Close()
//	for frame := range d.Frames() {
//		...
//	}
//	return d.Err()
//
// The handoff holds no frames: the worker blocks until the consumer takes
// the frame it has built, so at most one frame waits beyond those received.
// Close is mandatory once Start succeeded: a decoder dropped without Close
// or a cancelled context keeps its worker blocked in the handoff.
package decoder

import (
	"context"
	"errors"
	"iter"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/user/vpccdec/pkg/adapters/colorconvert"
	"github.com/user/vpccdec/pkg/adapters/ffmpegvideo"
	"github.com/user/vpccdec/pkg/adapters/logger"
	"github.com/user/vpccdec/pkg/adapters/nullsink"
	"github.com/user/vpccdec/pkg/adapters/osfilesystem"
	"github.com/user/vpccdec/pkg/adapters/smartdecoder"
	"github.com/user/vpccdec/pkg/orchestrator"
	"github.com/user/vpccdec/pkg/pipeline"
	"github.com/user/vpccdec/pkg/ports"
	"github.com/user/vpccdec/pkg/reconstruct"
)

var (
	// ErrAlreadyStarted is returned by a second call to Start.
	ErrAlreadyStarted = errors.New("decoder: already started")

	// ErrClosed is returned by Start on a decoder closed before it started.
	ErrClosed = errors.New("decoder: closed")

	errConsumerGone = errors.New("decoder: consumer closed the decoder")
)

// State is the lifecycle state of a Decoder.
type State int

const (
	Created State = iota
	Running
	Finished
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Finished:
		return "finished"
	default:
		return "created"
	}
}

// Option overrides a collaborator of the decoder.
type Option func(*Decoder)

// WithFileSystem sets the file system the source and intermediate files use.
func WithFileSystem(fs ports.FileSystem) Option {
	return func(d *Decoder) { d.fs = fs }
}

// WithVideoDecoder replaces the ffmpeg-backed video decoder.
func WithVideoDecoder(v ports.VideoDecoder) Option {
	return func(d *Decoder) { d.video = v }
}

// WithColorConverter sets the converter applied to 3-plane attribute video.
func WithColorConverter(c ports.ColorConverter) Option {
	return func(d *Decoder) { d.colors = c }
}

// WithDebugSink sets where intermediate results are written.
func WithDebugSink(sink ports.DebugSink, renderer ports.PreviewRenderer) Option {
	return func(d *Decoder) {
		d.sink = sink
		d.renderer = renderer
	}
}

// WithLogger sets the logger.
func WithLogger(l ports.Logger) Option {
	return func(d *Decoder) { d.logger = l }
}

// Decoder decodes one bitstream. Next, Frames, Close, Err and Stats are
// safe to call from any goroutine.
type Decoder struct {
	params    Params
	sessionID string

	fs       ports.FileSystem
	video    ports.VideoDecoder
	colors   ports.ColorConverter
	sink     ports.DebugSink
	renderer ports.PreviewRenderer
	logger   ports.Logger

	orch *orchestrator.Orchestrator

	frames    chan pipeline.Frame
	done      chan struct{}
	closeOnce sync.Once

	mu      sync.Mutex
	started bool
	state   State
	err     error
	cancel  context.CancelFunc
}

// New creates a decoder for params. Collaborators not given as options get
// the defaults: the OS file system, raw and ffmpeg video decoding, no debug
// output and no logging.
func New(params Params, opts ...Option) *Decoder {
	d := &Decoder{
		params:    params,
		sessionID: uuid.New().String(),
		frames:    make(chan pipeline.Frame),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}

	if d.logger == nil {
		d.logger = logger.NewNoop()
	}
	if d.fs == nil {
		d.fs = osfilesystem.New()
	}
	workDir := d.workDir()
	if d.video == nil {
		d.video = smartdecoder.New(smartdecoder.Options{FFmpeg: ffmpegvideo.Options{
			FFmpegPath:            params.VideoDecoderPath,
			WorkDir:               workDir,
			KeepIntermediateFiles: params.KeepIntermediateFiles,
			PreserveYUV:           params.convertsColor(),
		}}, d.fs, d.logger)
	}
	if d.colors == nil && params.convertsColor() {
		d.colors = colorconvert.New(colorconvert.Options{
			ToolPath:              params.ColorSpaceConversionPath,
			ConfigPath:            params.InverseColorSpaceConversionConfig,
			WorkDir:               workDir,
			KeepIntermediateFiles: params.KeepIntermediateFiles,
		}, d.fs, d.logger)
	}
	if d.sink == nil {
		d.sink = nullsink.New()
	}

	engine := reconstruct.New(params.engineOptions(), d.logger)
	d.orch = orchestrator.New(d.video, d.colors, engine, d.sink, d.renderer, d.logger.WithComponent("decode"), orchestrator.Config{
		FailurePolicy: params.FailurePolicy,
		Preview:       params.Preview,
	})
	return d
}

// FromMemory creates a decoder with default parameters for data.
func FromMemory(data []byte, opts ...Option) *Decoder {
	return New(DefaultParams(MemorySource(data)), opts...)
}

// workDir is the per-session directory for intermediate files. Empty means
// the adapters create temporary directories.
func (d *Decoder) workDir() string {
	if d.params.IntermediateDir == "" {
		return ""
	}
	return filepath.Join(d.params.IntermediateDir, "vpccdec-"+d.sessionID)
}

// SessionID identifies this decode in logs and intermediate file names.
func (d *Decoder) SessionID() string {
	return d.sessionID
}

// Params returns the parameters the decoder was created with.
func (d *Decoder) Params() Params {
	return d.params
}

// State returns the lifecycle state.
func (d *Decoder) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Start loads the source and launches the worker. It may be called once;
// later calls log an error and return ErrAlreadyStarted without touching
// the running worker. A second Start is a caller bug and its error must not
// be ignored. Cancelling ctx stops the worker at its next unit or frame
// handoff.
func (d *Decoder) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.started {
		d.logger.Error("Decoder already started")
		return ErrAlreadyStarted
	}
	if d.isClosed() {
		return ErrClosed
	}
	d.started = true

	if err := d.params.Validate(); err != nil {
		d.finishLocked(err)
		return err
	}
	data, err := d.params.Source.Load(d.fs)
	if err != nil {
		d.finishLocked(err)
		return err
	}

	d.logger.Info("Decoding %s", d.params.Source)
	if d.params.KeepIntermediateFiles && d.workDir() != "" {
		d.logger.Info("Keeping intermediate files in %s", d.workDir())
	}

	ctx, d.cancel = context.WithCancel(ctx)
	d.state = Running
	go d.run(ctx, data)
	return nil
}

func (d *Decoder) run(ctx context.Context, data []byte) {
	err := d.orch.Run(ctx, data, d.publish)
	if errors.Is(err, errConsumerGone) {
		err = nil
	}

	d.mu.Lock()
	d.cancel()
	d.finishLocked(err)
	d.mu.Unlock()
}

// finishLocked records the terminal error and closes the handoff.
func (d *Decoder) finishLocked(err error) {
	d.err = err
	d.state = Finished
	close(d.frames)
}

// publish hands a frame to the consumer, blocking until it is taken.
func (d *Decoder) publish(ctx context.Context, frame pipeline.Frame) error {
	if d.isClosed() {
		return errConsumerGone
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case d.frames <- frame:
		return nil
	case <-d.done:
		return errConsumerGone
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Next blocks until the next frame is available. It returns false once the
// decode has finished, and keeps returning false on later calls. Next on a
// decoder that was never started returns false immediately.
func (d *Decoder) Next() (pipeline.Frame, bool) {
	if d.State() == Created {
		return pipeline.Frame{}, false
	}
	f, ok := <-d.frames
	return f, ok
}

// Frames iterates over the remaining frames.
func (d *Decoder) Frames() iter.Seq[pipeline.Frame] {
	return func(yield func(pipeline.Frame) bool) {
		for {
			f, ok := d.Next()
			if !ok || !yield(f) {
				return
			}
		}
	}
}

// Close tells the worker to stop at its next frame handoff. Frames already
// built are discarded. Close does not wait for the worker.
func (d *Decoder) Close() error {
	d.closeOnce.Do(func() { close(d.done) })

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == Created {
		d.finishLocked(nil)
	}
	return nil
}

func (d *Decoder) isClosed() bool {
	select {
	case <-d.done:
		return true
	default:
		return false
	}
}

// Err returns the error that ended the decode, nil while it runs or when it
// ran to completion.
func (d *Decoder) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}

// Stats returns the counters of the decode pass.
func (d *Decoder) Stats() orchestrator.Stats {
	return d.orch.Stats()
}
