// Package main provides the CLI entry point for vpccdec.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"

	"github.com/user/vpccdec/pkg/adapters/filesink"
	"github.com/user/vpccdec/pkg/adapters/ggpreview"
	"github.com/user/vpccdec/pkg/adapters/logger"
	"github.com/user/vpccdec/pkg/adapters/nullsink"
	"github.com/user/vpccdec/pkg/adapters/osfilesystem"
	"github.com/user/vpccdec/pkg/bitstream"
	"github.com/user/vpccdec/pkg/config"
	"github.com/user/vpccdec/pkg/decoder"
	"github.com/user/vpccdec/pkg/ports"
	"github.com/user/vpccdec/pkg/summarizer"
	"github.com/user/vpccdec/pkg/v3c"
	"github.com/user/vpccdec/pkg/writer"
)

var version = "dev"

func main() {
	app := &cli.App{
		Name:  "vpccdec",
		Usage: l10n.T("Decode V-PCC point cloud bitstreams"),
		Commands: []*cli.Command{
			decodeCommand(),
			inspectCommand(),
			{
				Name:  "version",
				Usage: l10n.T("Show version information"),
				Action: func(c *cli.Context) error {
					fmt.Println(l10n.F("vpccdec version %s", version))
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "log-level", Aliases: []string{"l"}, Value: "info", Usage: l10n.T("Log level (debug, info, warn, error)"), Category: l10n.T("Logging")},
		&cli.StringFlag{Name: "log-file", Usage: l10n.T("Also write structured logs to this file (rotated)"), Category: l10n.T("Logging")},
		&cli.BoolFlag{Name: "quiet", Aliases: []string{"Q"}, Usage: l10n.T("Suppress all log output"), Category: l10n.T("Logging")},
	}
}

func decodeCommand() *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: l10n.T("YAML configuration file")},
		&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: l10n.T("Directory for the decoded PLY frames"), Category: l10n.T("Output")},
		&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: l10n.T("PLY encoding (ascii, binary)"), Category: l10n.T("Output")},
		&cli.StringFlag{Name: "summary", Usage: l10n.T("Output decode summary to file (Markdown format)"), Category: l10n.T("Output")},

		&cli.StringFlag{Name: "video-decoder-path", Usage: l10n.T("Path to the ffmpeg executable"), Category: l10n.T("Video")},
		&cli.BoolFlag{Name: "keep-intermediate-files", Usage: l10n.T("Keep extracted sub-streams and decoded pictures"), Category: l10n.T("Video")},
		&cli.StringFlag{Name: "intermediate-dir", Usage: l10n.T("Directory for intermediate files"), Category: l10n.T("Video")},

		&cli.BoolFlag{Name: "patch-color-subsampling", Usage: l10n.T("Accept attribute video smaller than geometry video"), Category: l10n.T("Color")},
		&cli.StringFlag{Name: "color-space-conversion-path", Usage: l10n.T("External color space conversion tool"), Category: l10n.T("Color")},
		&cli.StringFlag{Name: "inverse-color-space-conversion-config", Usage: l10n.T("Configuration for the inverse color space conversion"), Category: l10n.T("Color")},

		&cli.StringSliceFlag{Name: "reconstruct", Aliases: []string{"r"}, Usage: l10n.T("Enable a reconstruction pass (repeatable, or all)"), Category: l10n.T("Reconstruction")},
		&cli.StringFlag{Name: "failure-policy", Usage: l10n.T("What to do when a frame fails (skip-frame, abort)"), Category: l10n.T("Reconstruction")},

		&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}, Usage: l10n.T("Enable debug output"), Category: l10n.T("Debug")},
		&cli.StringFlag{Name: "debug-dir", Usage: l10n.T("Directory for debug output"), Category: l10n.T("Debug")},
		&cli.StringFlag{Name: "preview-format", Usage: l10n.T("Preview image format (png, jpeg, webp)"), Category: l10n.T("Debug")},
	}

	return &cli.Command{
		Name:      "decode",
		Usage:     l10n.T("Decode a bitstream into PLY frames"),
		ArgsUsage: "<bitstream>",
		Flags:     append(flags, loggingFlags()...),
		Action:    runDecode,
	}
}

func inspectCommand() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     l10n.T("List the units of a bitstream"),
		ArgsUsage: "<bitstream>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "summary", Usage: l10n.T("Output decode summary to file (Markdown format)"), Category: l10n.T("Output")},
		},
		Action: runInspect,
	}
}

func newLogger(c *cli.Context, cfg config.LoggingConfig) (ports.Logger, func()) {
	if c.Bool("quiet") {
		return logger.NewNoop(), func() {}
	}
	if cfg.File != "" {
		z := logger.NewZap(cfg.LogLevel(), cfg.FileConfig(), true)
		return z, func() { _ = z.Sync() }
	}
	return logger.NewConsole(cfg.LogLevel()), func() {}
}

// loadConfig reads the config file, then applies flags that were set.
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg := config.Defaults()
	if path := c.String("config"); path != "" {
		loaded, err := config.LoadFromFile(path)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	if c.Args().Present() {
		cfg.Input = c.Args().First()
	}
	setString := func(name string, dst *string) {
		if c.IsSet(name) {
			*dst = c.String(name)
		}
	}
	setBool := func(name string, dst *bool) {
		if c.IsSet(name) {
			*dst = c.Bool(name)
		}
	}

	setString("output", &cfg.OutputDir)
	setString("format", &cfg.OutputFormat)
	setString("video-decoder-path", &cfg.VideoDecoderPath)
	setBool("keep-intermediate-files", &cfg.KeepIntermediateFiles)
	setString("intermediate-dir", &cfg.IntermediateDir)
	setBool("patch-color-subsampling", &cfg.PatchColorSubsampling)
	setString("color-space-conversion-path", &cfg.ColorSpaceConversionPath)
	setString("inverse-color-space-conversion-config", &cfg.InverseColorSpaceConversionConfig)
	setString("failure-policy", &cfg.FailurePolicy)
	setBool("debug", &cfg.Debug)
	setString("debug-dir", &cfg.DebugDir)
	setString("preview-format", &cfg.Preview.Format)
	setString("log-level", &cfg.Logging.Level)
	setString("log-file", &cfg.Logging.File)

	if err := cfg.Reconstruction.Enable(c.StringSlice("reconstruct")...); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func runDecode(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if cfg.Input == "" {
		return errors.New(l10n.T("Bitstream argument is required"))
	}
	params, err := cfg.ToParams()
	if err != nil {
		return err
	}
	format, err := writer.ParseFormat(cfg.OutputFormat)
	if err != nil {
		return err
	}

	log, sync := newLogger(c, cfg.Logging)
	defer sync()

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			log.Warn("Interrupted, shutting down...")
			cancel()
		case <-ctx.Done():
		}
	}()

	fs := osfilesystem.New()
	renderer := ggpreview.New()

	var sink ports.DebugSink
	if cfg.Debug {
		if err := fs.MkdirAll(cfg.DebugDir); err != nil {
			return fmt.Errorf("create debug directory: %w", err)
		}
		previewFormat, err := cfg.Preview.ImageFormat()
		if err != nil {
			return err
		}
		sink = filesink.New(cfg.DebugDir, fs, renderer).WithFormat(format).WithPreviewFormat(previewFormat)
	} else {
		sink = nullsink.New()
	}

	if err := fs.MkdirAll(cfg.OutputDir); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	dec := decoder.New(params,
		decoder.WithFileSystem(fs),
		decoder.WithLogger(log),
		decoder.WithDebugSink(sink, renderer),
	)
	defer dec.Close()

	started := time.Now()
	if err := dec.Start(ctx); err != nil {
		return err
	}

	builder := summarizer.NewBuilder()
	for frame := range dec.Frames() {
		data, err := writer.Marshal(frame.Cloud, format)
		if err != nil {
			return fmt.Errorf("frame %d: %w", frame.Index, err)
		}
		path := filepath.Join(cfg.OutputDir, fmt.Sprintf("frame-%04d.ply", frame.Index))
		if err := fs.WriteFile(path, data); err != nil {
			return fmt.Errorf("frame %d: %w", frame.Index, err)
		}
		builder.AddFrame(frame.Cloud)
	}
	decodeErr := dec.Err()

	if path := c.String("summary"); path != "" {
		var size int64
		if info, err := os.Stat(cfg.Input); err == nil {
			size = info.Size()
		}
		summary := builder.
			WithSource(cfg.Input, size, dec.SessionID()).
			WithDuration(time.Since(started)).
			WithStats(dec.Stats()).
			WithSettings(summarizer.Settings{
				FailurePolicy:  params.FailurePolicy.String(),
				VideoDecoder:   videoDecoderName(params),
				OutputFormat:   format.String(),
				Reconstruction: cfg.Reconstruction.Enabled(),
			}).
			WithError(decodeErr).
			Build()
		if err := summarizer.NewWriter(summarizer.NewMarkdownFormatter(), fs).Write(path, summary); err != nil {
			log.Warn("Failed to write summary: %s", err)
		} else {
			log.Info("Summary saved to %s", path)
		}
	}

	if decodeErr != nil {
		return decodeErr
	}
	log.Info("Output saved to %s", cfg.OutputDir)
	return nil
}

func videoDecoderName(p decoder.Params) string {
	if p.VideoDecoderPath != "" {
		return p.VideoDecoderPath
	}
	return "ffmpeg"
}

func runInspect(c *cli.Context) error {
	if !c.Args().Present() {
		return errors.New(l10n.T("Bitstream argument is required"))
	}
	path := c.Args().First()
	fs := osfilesystem.New()

	data, err := bitstream.LoadSource(fs, path)
	if err != nil {
		return err
	}

	builder := summarizer.NewBuilder().WithSource(path, int64(len(data)), "")
	stream, streamErr := v3c.NewSampleStream(data)
	if streamErr != nil {
		builder.WithError(streamErr)
	} else {
		for {
			u, ok := stream.Next()
			if !ok {
				break
			}
			info := summarizer.UnitInfo{Index: u.Index, Type: u.Type().String(), Bytes: len(u.Data)}
			if h, err := u.Header(); err == nil {
				info.ParameterSetID = int(h.ParameterSetID)
				info.AtlasID = int(h.AtlasID)
			}
			builder.AddUnit(info)
		}
	}

	summary := builder.Build()
	summary.Stream.Units = int64(len(summary.Units))

	if out := c.String("summary"); out != "" {
		if err := summarizer.NewWriter(summarizer.NewMarkdownFormatter(), fs).Write(out, summary); err != nil {
			return err
		}
	} else {
		fmt.Print(summarizer.NewMarkdownFormatter().Format(summary))
	}
	return streamErr
}
