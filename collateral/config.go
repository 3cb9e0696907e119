package collateral

import (
	"time"

	"code.pismoprotocol.io/pismo/config/encoding"
	"code.pismoprotocol.io/pismo/logging"
)

const namedLogger = "collateral"

type Config struct {
	Level encoding.LogLevel `long:"log-level"`
	// MaxValueAge is how old a marker valuation may be before it must not
	// feed margin or liquidation decisions
	MaxValueAge encoding.Duration `long:"max-value-age"`
}

// NewDefaultConfig creates an instance of the package specific configuration.
func NewDefaultConfig() Config {
	return Config{
		Level:       encoding.LogLevel{Level: logging.InfoLevel},
		MaxValueAge: encoding.Duration{Duration: time.Minute},
	}
}
