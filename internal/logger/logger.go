package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config describes basic logger options.
type Config struct {
	Path    string `json:"path" yaml:"path" env:"PATH"`
	Level   string `json:"level" yaml:"level" env:"LEVEL"`
	Console bool   `json:"console" yaml:"console" env:"CONSOLE"`
	// Format is "json" (default) or "console".
	Format string `json:"format" yaml:"format" env:"FORMAT"`
}

var (
	globalLogger *zap.Logger
	loggerOnce   sync.Once
	loggerErr    error

	mu      sync.Mutex
	closers []io.Closer
)

// Init builds the global zap logger once and wires stdlib logging into it.
func Init(cfg Config) (*zap.Logger, error) {
	loggerOnce.Do(func() {
		var c []io.Closer
		var l *zap.Logger
		l, c, loggerErr = newLogger(cfg)
		if loggerErr != nil {
			return
		}
		globalLogger = l
		mu.Lock()
		closers = append(closers, c...)
		mu.Unlock()
		zap.ReplaceGlobals(globalLogger)
		_ = zap.RedirectStdLog(globalLogger)
	})
	return globalLogger, loggerErr
}

// L returns the global zap logger if initialised, otherwise zap.L().
func L() *zap.Logger {
	if globalLogger != nil {
		return globalLogger
	}
	return zap.L()
}

// Named returns a sugared logger annotated with the provided name.
func Named(name string) *zap.SugaredLogger {
	return L().Named(name).Sugar()
}

// Sync flushes the logger buffers and closes any opened sinks.
func Sync() {
	if globalLogger != nil {
		_ = globalLogger.Sync()
	}
	mu.Lock()
	defer mu.Unlock()
	for _, closer := range closers {
		_ = closer.Close()
	}
	closers = nil
}

// ParseLevel maps a level name to a zap level, falling back to info.
func ParseLevel(s string) zapcore.Level {
	text := strings.TrimSpace(strings.ToLower(s))
	if text == "" {
		return zap.InfoLevel
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(text)); err != nil {
		return zap.InfoLevel
	}
	return lvl
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stack",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

func newLogger(cfg Config) (*zap.Logger, []io.Closer, error) {
	var sinks []zapcore.WriteSyncer
	var closerList []io.Closer

	if cfg.Console {
		sinks = append(sinks, zapcore.Lock(os.Stdout))
	}

	if cfg.Path != "" {
		file, err := os.OpenFile(cfg.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		sinks = append(sinks, zapcore.AddSync(file))
		closerList = append(closerList, file)
	}

	if len(sinks) == 0 {
		sinks = append(sinks, zapcore.Lock(os.Stdout))
	}

	var enc zapcore.Encoder
	switch strings.ToLower(cfg.Format) {
	case "console":
		enc = zapcore.NewConsoleEncoder(encoderConfig())
	default:
		enc = zapcore.NewJSONEncoder(encoderConfig())
	}

	core := zapcore.NewCore(enc, zapcore.NewMultiWriteSyncer(sinks...), zap.NewAtomicLevelAt(ParseLevel(cfg.Level)))
	return zap.New(core, zap.AddCaller()), closerList, nil
}
