package config

import "path/filepath"

// Config is ledgerd's complete configuration.
type Config struct {
	Server  ServerConfig  `toml:"server" mapstructure:"server"`
	Storage StorageConfig `toml:"storage" mapstructure:"storage"`
	Archive ArchiveConfig `toml:"archive" mapstructure:"archive"`
	Ledger  LedgerConfig  `toml:"ledger" mapstructure:"ledger"`
	Genesis GenesisConfig `toml:"genesis" mapstructure:"genesis"`

	// GenesisFile, if set, loads the initial controller/token set from a
	// JSON file instead of the inline [genesis] table.
	GenesisFile string `toml:"genesis_file" mapstructure:"genesis_file"`

	configPath string `toml:"-" mapstructure:"-"`
}

// LedgerConfig holds ledger-identity and operational-bound settings.
type LedgerConfig struct {
	// Principal seeds the ledger's own identity, used to derive token ids
	// (keys.DeriveTokenID) on create_token. Set once at genesis.
	Principal string `toml:"principal" mapstructure:"principal"`

	MaxMemoBytes     int `toml:"max_memo_bytes" mapstructure:"max_memo_bytes"`
	MaxFutureDriftMs int `toml:"max_future_drift_ms" mapstructure:"max_future_drift_ms"`
	MaxPastDriftMs   int `toml:"max_past_drift_ms" mapstructure:"max_past_drift_ms"`
}

// GetMaxMemoBytes returns the configured memo size cap, or the pipeline
// default (64KiB) when unset.
func (l *LedgerConfig) GetMaxMemoBytes() int {
	if l.MaxMemoBytes == 0 {
		return 64 * 1024
	}
	return l.MaxMemoBytes
}

// ConfigPaths holds the path to the main config file.
type ConfigPaths struct {
	Main string // Path to the main config file (ledgerd.toml)
}

// DefaultConfigPaths returns the conventional ledgerd.toml path.
func DefaultConfigPaths() ConfigPaths {
	return ConfigPaths{Main: "ledgerd.toml"}
}

// ConfigPathsFromDir returns config paths rooted at configDir.
func ConfigPathsFromDir(configDir string) ConfigPaths {
	return ConfigPaths{Main: filepath.Join(configDir, "ledgerd.toml")}
}

// GetConfigPath returns the path the config was loaded from, if any.
func (c *Config) GetConfigPath() string {
	return c.configPath
}
