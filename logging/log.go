package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// A Level is a logging priority. Higher levels are more important.
type Level int8

// Logging levels (matching zap core internals).
const (
	// DebugLevel logs are typically voluminous, and are usually disabled in
	// production.
	DebugLevel Level = -1
	// InfoLevel is the default logging priority.
	InfoLevel Level = 0
	// WarnLevel logs are more important than Info, but don't need individual
	// human review.
	WarnLevel Level = 1
	// ErrorLevel logs are high-priority. If an application is running smoothly,
	// it shouldn't generate any error-level logs.
	ErrorLevel Level = 2
	// PanicLevel logs a message, then panics.
	PanicLevel Level = 4
	// FatalLevel logs a message, then calls os.Exit(1).
	FatalLevel Level = 5
)

func (l Level) String() string {
	return l.ZapLevel().String()
}

func (l Level) ZapLevel() zapcore.Level {
	return zapcore.Level(l)
}

// ParseLevel parses a level based on its name.
func ParseLevel(level string) (Level, error) {
	l := zapcore.InfoLevel
	err := l.UnmarshalText([]byte(level))
	return Level(l), err
}

type Logger struct {
	*zap.Logger
	config *zap.Config
	name   string
}

func (log *Logger) Clone() *Logger {
	newConfig := cloneConfig(log.config)
	newLogger, err := newConfig.Build()
	if err != nil {
		panic(err)
	}
	return &Logger{
		Logger: newLogger,
		config: newConfig,
		name:   log.name,
	}
}

func (log *Logger) GetLevel() Level {
	return (Level)(log.config.Level.Level())
}

func (log *Logger) GetName() string {
	return log.name
}

// IsDebug returns true if the logger level is at or below debug.
func (log *Logger) IsDebug() bool {
	return log.GetLevel() <= DebugLevel
}

func (log *Logger) Named(name string) *Logger {
	c := log.Clone()
	newName := name
	if log.name != "" {
		newName = fmt.Sprintf("%s.%s", log.name, name)
	}
	return &Logger{
		Logger: c.Logger.Named(newName),
		config: c.config,
		name:   newName,
	}
}

func (log *Logger) SetLevel(level Level) {
	lvl := (zapcore.Level)(level)
	if log.config.Level.Level() == lvl {
		return
	}
	log.config.Level.SetLevel(lvl)
}

func (log *Logger) With(fields ...zap.Field) *Logger {
	c := log.Clone()
	return &Logger{
		Logger: c.Logger.With(fields...),
		config: c.config,
		name:   log.name,
	}
}

// AtExit flushes the logs before exiting the process. Useful when an
// app shuts down so we store all logging possible. This is meant to be used
// with defer when initializing your logger.
func (log *Logger) AtExit() {
	if log.Logger != nil {
		_ = log.Logger.Sync()
	}
}

func cloneConfig(cfg *zap.Config) *zap.Config {
	c := zap.Config{
		Level:             zap.NewAtomicLevelAt(cfg.Level.Level()),
		Development:       cfg.Development,
		DisableCaller:     cfg.DisableCaller,
		DisableStacktrace: cfg.DisableStacktrace,
		Sampling:          nil,
		Encoding:          cfg.Encoding,
		EncoderConfig:     cfg.EncoderConfig,
		OutputPaths:       make([]string, len(cfg.OutputPaths)),
		ErrorOutputPaths:  make([]string, len(cfg.ErrorOutputPaths)),
		InitialFields:     make(map[string]interface{}, len(cfg.InitialFields)),
	}
	if cfg.Sampling != nil {
		sampling := *cfg.Sampling
		c.Sampling = &sampling
	}
	copy(c.OutputPaths, cfg.OutputPaths)
	copy(c.ErrorOutputPaths, cfg.ErrorOutputPaths)
	for k, v := range cfg.InitialFields {
		c.InitialFields[k] = v
	}
	return &c
}

func newLoggerFromZapConfig(cfg zap.Config) *Logger {
	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	return &Logger{
		Logger: logger,
		config: &cfg,
	}
}

// NewProdLogger creates a JSON console logger, the kind expected to run on
// a deployed node.
func NewProdLogger() *Logger {
	return newLoggerFromZapConfig(zap.NewProductionConfig())
}

// NewDevLogger creates a human readable console logger.
func NewDevLogger() *Logger {
	return newLoggerFromZapConfig(zap.NewDevelopmentConfig())
}

// NewTestLogger creates a logger suitable for unit tests, debug level so
// test output carries everything the engines say.
func NewTestLogger() *Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	return newLoggerFromZapConfig(cfg)
}

// NewLoggerFromConfig creates a logger according to the given configuration.
func NewLoggerFromConfig(cfg Config) *Logger {
	if cfg.Environment == "dev" {
		log := NewDevLogger()
		log.SetLevel(cfg.Level.Get())
		return log
	}
	log := NewProdLogger()
	log.SetLevel(cfg.Level.Get())
	return log
}
