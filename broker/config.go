package broker

import (
	"code.pismoprotocol.io/pismo/config/encoding"
	"code.pismoprotocol.io/pismo/logging"
)

const namedLogger = "broker"

type Config struct {
	Level encoding.LogLevel `long:"log-level"`
}

// NewDefaultConfig creates an instance of the package specific configuration.
func NewDefaultConfig() Config {
	return Config{
		Level: encoding.LogLevel{Level: logging.InfoLevel},
	}
}
