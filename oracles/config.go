package oracles

import (
	"time"

	"code.pismoprotocol.io/pismo/config/encoding"
	"code.pismoprotocol.io/pismo/logging"
)

const namedLogger = "oracles"

type Config struct {
	Level encoding.LogLevel `long:"log-level"`
	// MaxPriceAge is how old a feed publish may be before it is rejected
	MaxPriceAge encoding.Duration `long:"max-price-age"`
}

// NewDefaultConfig creates an instance of the package specific configuration.
func NewDefaultConfig() Config {
	return Config{
		Level:       encoding.LogLevel{Level: logging.InfoLevel},
		MaxPriceAge: encoding.Duration{Duration: 30 * time.Second},
	}
}
