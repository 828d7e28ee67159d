package config

import "fmt"

// ValidateConfig performs comprehensive validation on the complete
// configuration before the server starts.
func ValidateConfig(config *Config) error {
	if err := config.Server.Validate(); err != nil {
		return fmt.Errorf("server config validation failed: %w", err)
	}
	if err := config.Storage.Validate(); err != nil {
		return fmt.Errorf("storage config validation failed: %w", err)
	}
	if err := config.Archive.Validate(); err != nil {
		return fmt.Errorf("archive config validation failed: %w", err)
	}
	if err := validateLedgerConfig(&config.Ledger); err != nil {
		return fmt.Errorf("ledger config validation failed: %w", err)
	}
	if err := config.Genesis.Validate(); err != nil {
		return fmt.Errorf("genesis config validation failed: %w", err)
	}
	return nil
}

func validateLedgerConfig(l *LedgerConfig) error {
	if l.MaxMemoBytes < 0 {
		return fmt.Errorf("ledger.max_memo_bytes must be non-negative, got %d", l.MaxMemoBytes)
	}
	if l.MaxFutureDriftMs < 0 {
		return fmt.Errorf("ledger.max_future_drift_ms must be non-negative, got %d", l.MaxFutureDriftMs)
	}
	if l.MaxPastDriftMs < 0 {
		return fmt.Errorf("ledger.max_past_drift_ms must be non-negative, got %d", l.MaxPastDriftMs)
	}
	return nil
}

// ValidateConfigPaths checks that a main config path was supplied.
func ValidateConfigPaths(paths ConfigPaths) error {
	if paths.Main == "" {
		return fmt.Errorf("main config path cannot be empty")
	}
	return nil
}
