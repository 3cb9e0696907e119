package logging

// Config contains the configurable items for this package.
type Config struct {
	Environment string
	Level       LevelConfig
}

// NewDefaultConfig creates an instance of the package-specific configuration.
func NewDefaultConfig() Config {
	return Config{
		Environment: "dev",
		Level:       LevelConfig{InfoLevel},
	}
}

// LevelConfig is a wrapper over the log level so it can be
// specified as a string in the toml configuration.
type LevelConfig struct {
	Level
}

// Get returns the stored level.
func (l *LevelConfig) Get() Level {
	return l.Level
}

// UnmarshalText unmarshals a level from bytes.
func (l *LevelConfig) UnmarshalText(text []byte) error {
	var err error
	l.Level, err = ParseLevel(string(text))
	return err
}

// MarshalText marshals a level into bytes.
func (l LevelConfig) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}
