package envelope

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.Logger with the fields every service in this pipeline
// attaches to every line: timestamp, level, service, message, plus
// whatever structured context the call site adds. Adapted from the
// teacher repo's common/libraries/go/iaros-core/logging.go.
type Logger struct {
	*zap.Logger
	service string
}

// LoggerConfig controls the minimum level and output format.
type LoggerConfig struct {
	Level   string // debug, info, warn, error
	Format  string // json or console
}

// NewLogger builds a Logger for the named service. Defaults to info-level
// JSON on stdout, matching the teacher's NewIAROSLogger defaults.
func NewLogger(service string, cfg LoggerConfig) *Logger {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	var encoder zapcore.Encoder
	if cfg.Format == "console" {
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), level)
	base := zap.New(core, zap.AddCaller()).With(zap.String("service", service))

	return &Logger{Logger: base, service: service}
}

// WithFields returns a derived logger carrying the given structured
// context on every subsequent line.
func (l *Logger) WithFields(fields ...zap.Field) *Logger {
	return &Logger{Logger: l.Logger.With(fields...), service: l.service}
}

// WithErrorKind tags a log line with one of the error Kind constants so
// downstream log search can group failures by category.
func (l *Logger) WithErrorKind(kind Kind, err error) *Logger {
	return &Logger{
		Logger:  l.Logger.With(zap.String("error_kind", string(kind)), zap.Error(err)),
		service: l.service,
	}
}
