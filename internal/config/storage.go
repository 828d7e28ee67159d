package config

import "fmt"

// StorageConfig is the [storage] section: selects and tunes the
// internal/storage/kv backend the ledger's regions are persisted in.
type StorageConfig struct {
	Backend   string `toml:"backend" mapstructure:"backend"` // "memory", "bbolt", "pebble", "leveldb"
	Path      string `toml:"path" mapstructure:"path"`
	CacheSize int    `toml:"cache_size" mapstructure:"cache_size"`

	// OnlineDelete and DeleteBatch are parsed and validated, but no code
	// acts on them: the transaction log is never pruned.
	OnlineDelete int `toml:"online_delete" mapstructure:"online_delete"`
	DeleteBatch  int `toml:"delete_batch" mapstructure:"delete_batch"`
}

// ArchiveConfig is the optional [archive] section: a secondary SQL-backed
// transaction index, kept alongside the primary kv-backed log and
// queryable by account (archive.Store.ForAccount); get_transactions reads
// the primary log. Empty Driver disables it.
type ArchiveConfig struct {
	Driver string `toml:"driver" mapstructure:"driver"` // "", "postgres", "sqlite"
	DSN    string `toml:"dsn" mapstructure:"dsn"`
}

// Validate checks the archive configuration.
func (a *ArchiveConfig) Validate() error {
	if a.Driver == "" {
		return nil
	}
	if a.Driver != "postgres" && a.Driver != "sqlite" {
		return fmt.Errorf("invalid archive.driver: %s (valid options: \"\", postgres, sqlite)", a.Driver)
	}
	if a.DSN == "" {
		return fmt.Errorf("archive.dsn is required when archive.driver is set")
	}
	return nil
}

// Enabled reports whether a secondary archive index is configured.
func (a *ArchiveConfig) Enabled() bool {
	return a.Driver != ""
}

// Validate checks the storage configuration.
func (s *StorageConfig) Validate() error {
	if s.Backend == "" {
		return fmt.Errorf("storage.backend is required")
	}
	validBackends := []string{"memory", "bbolt", "pebble", "leveldb"}
	if !containsString(validBackends, s.Backend) {
		return fmt.Errorf("invalid storage.backend: %s (valid options: memory, bbolt, pebble, leveldb)", s.Backend)
	}
	if s.Backend != "memory" && s.Path == "" {
		return fmt.Errorf("storage.path is required for backend %q", s.Backend)
	}
	if s.CacheSize < 0 {
		return fmt.Errorf("storage.cache_size must be non-negative, got %d", s.CacheSize)
	}
	if s.OnlineDelete < 0 {
		return fmt.Errorf("storage.online_delete must be non-negative, got %d", s.OnlineDelete)
	}
	if s.DeleteBatch < 0 {
		return fmt.Errorf("storage.delete_batch must be non-negative, got %d", s.DeleteBatch)
	}
	return nil
}

// GetCacheSize returns the configured cache size, or a default of 16384.
func (s *StorageConfig) GetCacheSize() int {
	if s.CacheSize == 0 {
		return 16384
	}
	return s.CacheSize
}

// IsOnlineDeleteEnabled reports whether online_delete is set above zero.
// Nothing prunes the transaction log either way.
func (s *StorageConfig) IsOnlineDeleteEnabled() bool {
	return s.OnlineDelete > 0
}

// GetDeleteBatch returns the configured prune batch size, or a default of 100.
func (s *StorageConfig) GetDeleteBatch() int {
	if s.DeleteBatch == 0 {
		return 100
	}
	return s.DeleteBatch
}

func containsString(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
