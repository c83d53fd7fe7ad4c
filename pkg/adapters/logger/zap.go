package logger

import (
	"os"

	"github.com/ideamans/go-l10n"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/user/vpccdec/pkg/ports"
)

// FileConfig holds file logging configuration.
type FileConfig struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// DefaultFileConfig returns default file logging settings.
func DefaultFileConfig(path string) FileConfig {
	return FileConfig{
		Path:       path,
		MaxSizeMB:  50,
		MaxBackups: 3,
		MaxAgeDays: 7,
		Compress:   true,
	}
}

// ZapLogger writes structured log entries through zap. Messages are
// translated the same way as ConsoleLogger; the component becomes a field.
type ZapLogger struct {
	log *zap.SugaredLogger
}

// NewZap builds a logger that tees a console core on stderr and, when
// fileCfg.Path is set, a rotating file core.
func NewZap(level ports.LogLevel, fileCfg FileConfig, console bool) *ZapLogger {
	lvl := zapLevel(level)
	var cores []zapcore.Core

	if console {
		enc := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
			TimeKey:          "time",
			LevelKey:         "level",
			MessageKey:       "msg",
			NameKey:          "component",
			EncodeTime:       zapcore.TimeEncoderOfLayout("15:04:05"),
			EncodeLevel:      zapcore.CapitalColorLevelEncoder,
			EncodeName:       zapcore.FullNameEncoder,
			ConsoleSeparator: " ",
		})
		cores = append(cores, zapcore.NewCore(enc, zapcore.AddSync(os.Stderr), lvl))
	}

	if fileCfg.Path != "" {
		w := &lumberjack.Logger{
			Filename:   fileCfg.Path,
			MaxSize:    fileCfg.MaxSizeMB,
			MaxBackups: fileCfg.MaxBackups,
			MaxAge:     fileCfg.MaxAgeDays,
			Compress:   fileCfg.Compress,
			LocalTime:  true,
		}
		enc := zapcore.NewJSONEncoder(zapcore.EncoderConfig{
			TimeKey:     "time",
			LevelKey:    "level",
			MessageKey:  "msg",
			NameKey:     "component",
			EncodeTime:  zapcore.ISO8601TimeEncoder,
			EncodeLevel: zapcore.LowercaseLevelEncoder,
			EncodeName:  zapcore.FullNameEncoder,
		})
		cores = append(cores, zapcore.NewCore(enc, zapcore.AddSync(w), lvl))
	}

	return NewZapFromCore(zapcore.NewTee(cores...))
}

// NewZapFromCore wraps an existing zap core.
func NewZapFromCore(core zapcore.Core) *ZapLogger {
	return &ZapLogger{log: zap.New(core).Sugar()}
}

// With returns a logger that adds key/value pairs to every entry.
func (l *ZapLogger) With(keysAndValues ...interface{}) *ZapLogger {
	return &ZapLogger{log: l.log.With(keysAndValues...)}
}

// Sync flushes any buffered log entries.
func (l *ZapLogger) Sync() error {
	return l.log.Sync()
}

func (l *ZapLogger) Debug(msg string, args ...interface{}) {
	l.log.Debug(l10n.F(msg, args...))
}

func (l *ZapLogger) Info(msg string, args ...interface{}) {
	l.log.Info(l10n.F(msg, args...))
}

func (l *ZapLogger) Warn(msg string, args ...interface{}) {
	l.log.Warn(l10n.F(msg, args...))
}

func (l *ZapLogger) Error(msg string, args ...interface{}) {
	l.log.Error(l10n.F(msg, args...))
}

// WithComponent returns a logger named after the component.
func (l *ZapLogger) WithComponent(component string) ports.Logger {
	return &ZapLogger{log: l.log.Named(component)}
}

func zapLevel(level ports.LogLevel) zapcore.Level {
	switch level {
	case ports.LevelDebug:
		return zapcore.DebugLevel
	case ports.LevelWarn:
		return zapcore.WarnLevel
	case ports.LevelError:
		return zapcore.ErrorLevel
	case ports.LevelQuiet:
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}
