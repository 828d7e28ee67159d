package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// LoadConfig loads configuration from multiple sources in priority order:
// 1. Default values
// 2. Configuration file (ledgerd.toml)
// 3. Environment variables (LEDGERD_ prefix)
// 4. Genesis file, if genesis_file is set (overrides the inline [genesis] table)
func LoadConfig(paths ConfigPaths) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if err := loadMainConfig(v, paths.Main); err != nil {
		return nil, fmt.Errorf("failed to load main config: %w", err)
	}

	v.SetEnvPrefix("LEDGERD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if config.GenesisFile != "" {
		genesis, err := loadGenesisFile(config.GenesisFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load genesis file: %w", err)
		}
		config.Genesis = *genesis
	}

	config.configPath = paths.Main

	if err := ValidateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func loadMainConfig(v *viper.Viper, configPath string) error {
	if configPath == "" {
		return fmt.Errorf("config path cannot be empty")
	}
	v.SetConfigFile(configPath)
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return fmt.Errorf("config file does not exist: %s", configPath)
	}
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}
	return nil
}

func loadGenesisFile(path string) (*GenesisConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read genesis file %s: %w", path, err)
	}
	var doc GenesisJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse genesis file %s: %w", path, err)
	}
	return doc.ToGenesisConfig()
}

// LoadConfigFromDir loads configuration from a directory containing ledgerd.toml.
func LoadConfigFromDir(configDir string) (*Config, error) {
	return LoadConfig(ConfigPathsFromDir(configDir))
}

// LoadDefaultConfig loads configuration from the default location.
func LoadDefaultConfig() (*Config, error) {
	return LoadConfig(DefaultConfigPaths())
}

// ReloadConfig reloads configuration from the same path an existing Config
// was loaded from.
func ReloadConfig(existing *Config) (*Config, error) {
	return LoadConfig(ConfigPaths{Main: existing.GetConfigPath()})
}

// SaveExampleConfig writes a fully-populated example ledgerd.toml to path.
func SaveExampleConfig(configPath string) error {
	v := viper.New()
	for key, value := range generateExampleConfig() {
		v.Set(key, value)
	}
	v.SetConfigFile(configPath)
	if err := v.WriteConfig(); err != nil {
		return fmt.Errorf("failed to write example config: %w", err)
	}
	return nil
}

func generateExampleConfig() map[string]interface{} {
	return map[string]interface{}{
		"server.ip":       "127.0.0.1",
		"server.port":     8535,
		"server.protocol": "http,ws",
		"server.admin":    []string{"127.0.0.1"},

		"storage.backend": "bbolt",
		"storage.path":    "/var/lib/ledgerd/db",

		"archive.driver": "",
		"archive.dsn":    "",

		"ledger.principal":            "",
		"ledger.max_memo_bytes":       65536,
		"ledger.max_future_drift_ms":  300000,
		"ledger.max_past_drift_ms":    600000,

		"genesis.controllers": []string{},
		"genesis.tokens":      []map[string]interface{}{},
	}
}
