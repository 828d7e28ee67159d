package config

import "github.com/spf13/viper"

// setDefaults sets every default value LoadConfig falls back to absent a
// config file or environment override.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.ip", "127.0.0.1")
	v.SetDefault("server.port", 8535)
	v.SetDefault("server.protocol", "http,ws")
	v.SetDefault("server.limit", 0) // 0 means unlimited

	v.SetDefault("storage.backend", "memory")
	v.SetDefault("storage.path", "")
	v.SetDefault("storage.cache_size", 16384)
	v.SetDefault("storage.online_delete", 0)
	v.SetDefault("storage.delete_batch", 100)

	v.SetDefault("ledger.max_memo_bytes", 65536)
	v.SetDefault("ledger.max_future_drift_ms", 300000)
	v.SetDefault("ledger.max_past_drift_ms", 600000)

	v.SetDefault("genesis.controllers", []string{})
	v.SetDefault("genesis.tokens", []map[string]interface{}{})
}
