package config

import (
	"bytes"
	"os"
	"path/filepath"

	"code.pismoprotocol.io/pismo/accounts"
	"code.pismoprotocol.io/pismo/broker"
	"code.pismoprotocol.io/pismo/collateral"
	"code.pismoprotocol.io/pismo/logging"
	"code.pismoprotocol.io/pismo/oracles"
	"code.pismoprotocol.io/pismo/positions"
	"code.pismoprotocol.io/pismo/programs"
	"code.pismoprotocol.io/pismo/settlement"
	"code.pismoprotocol.io/pismo/vaults"

	"github.com/BurntSushi/toml"
)

const configFileName = "config.toml"

// Config ties together all other application configuration types.
type Config struct {
	Logging    logging.Config    `group:"Logging" namespace:"logging"`
	Broker     broker.Config     `group:"Broker" namespace:"broker"`
	Oracles    oracles.Config    `group:"Oracles" namespace:"oracles"`
	Programs   programs.Config   `group:"Programs" namespace:"programs"`
	Accounts   accounts.Config   `group:"Accounts" namespace:"accounts"`
	Collateral collateral.Config `group:"Collateral" namespace:"collateral"`
	Vaults     vaults.Config     `group:"Vaults" namespace:"vaults"`
	Positions  positions.Config  `group:"Positions" namespace:"positions"`
	Settlement settlement.Config `group:"Settlement" namespace:"settlement"`
}

// NewDefaultConfig returns the default configs of every package.
func NewDefaultConfig() Config {
	return Config{
		Logging:    logging.NewDefaultConfig(),
		Broker:     broker.NewDefaultConfig(),
		Oracles:    oracles.NewDefaultConfig(),
		Programs:   programs.NewDefaultConfig(),
		Accounts:   accounts.NewDefaultConfig(),
		Collateral: collateral.NewDefaultConfig(),
		Vaults:     vaults.NewDefaultConfig(),
		Positions:  positions.NewDefaultConfig(),
		Settlement: settlement.NewDefaultConfig(),
	}
}

// Read loads the configuration from rootPath, on top of the defaults so a
// partial file is fine.
func Read(rootPath string) (*Config, error) {
	buf, err := os.ReadFile(filepath.Join(rootPath, configFileName))
	if err != nil {
		return nil, err
	}
	cfg := NewDefaultConfig()
	if err := toml.Unmarshal(buf, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Write serializes the configuration into rootPath.
func Write(rootPath string, cfg *Config) error {
	if err := os.MkdirAll(rootPath, 0o700); err != nil {
		return err
	}
	buf := &bytes.Buffer{}
	if err := toml.NewEncoder(buf).Encode(cfg); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(rootPath, configFileName), buf.Bytes(), 0o600)
}
