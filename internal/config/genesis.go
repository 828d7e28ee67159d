package config

import (
	"encoding/hex"
	"fmt"
)

// GenesisConfig is the [genesis] section: the initial controller set and
// any tokens to create and mint on first start, evaluated once against an
// empty store (spec.md §3's bootstrap step, not named as such in the
// original spec but required for create_token to have a ledger principal
// and at least one controller to call it).
type GenesisConfig struct {
	Controllers []string       `toml:"controllers" mapstructure:"controllers"`
	Tokens      []GenesisToken `toml:"tokens" mapstructure:"tokens"`
}

// GenesisToken describes a token to create (and optionally mint an initial
// supply of) during genesis.
type GenesisToken struct {
	Name          string `toml:"name" mapstructure:"name"`
	Symbol        string `toml:"symbol" mapstructure:"symbol"`
	Decimals      uint8  `toml:"decimals" mapstructure:"decimals"`
	Fee           string `toml:"fee" mapstructure:"fee"` // decimal string, empty uses the ledger default
	InitialHolder string `toml:"initial_holder" mapstructure:"initial_holder"` // hex-encoded principal
	InitialSupply string `toml:"initial_supply" mapstructure:"initial_supply"` // decimal string, "0" or empty skips minting
}

// Validate checks the genesis section is well-formed. It does not decode
// principal/amount strings; that's left to the caller (internal/cli), which
// has access to the keys/amount packages this layer intentionally doesn't
// import.
func (g *GenesisConfig) Validate() error {
	for i, c := range g.Controllers {
		if c == "" {
			return fmt.Errorf("genesis.controllers[%d] is empty", i)
		}
	}
	for i, t := range g.Tokens {
		if t.Name == "" {
			return fmt.Errorf("genesis.tokens[%d].name is required", i)
		}
		if t.Symbol == "" {
			return fmt.Errorf("genesis.tokens[%d].symbol is required", i)
		}
		if t.Decimals > 18 {
			return fmt.Errorf("genesis.tokens[%d].decimals must be <= 18, got %d", i, t.Decimals)
		}
		if t.InitialSupply != "" && t.InitialSupply != "0" && t.InitialHolder == "" {
			return fmt.Errorf("genesis.tokens[%d] specifies initial_supply without initial_holder", i)
		}
	}
	return nil
}

// GenesisJSON is the on-disk JSON format accepted by genesis_file, an
// alternative to the inline TOML [genesis] table for deployments that
// generate genesis data programmatically.
type GenesisJSON struct {
	Controllers []string           `json:"controllers"`
	Tokens      []GenesisTokenJSON `json:"tokens"`
}

// GenesisTokenJSON mirrors GenesisToken with hex-encoded byte fields spelled
// out explicitly, matching the teacher's hex-string JSON ledger state dumps.
type GenesisTokenJSON struct {
	Name          string `json:"name"`
	Symbol        string `json:"symbol"`
	Decimals      uint8  `json:"decimals"`
	Fee           string `json:"fee,omitempty"`
	InitialHolder string `json:"initial_holder,omitempty"`
	InitialSupply string `json:"initial_supply,omitempty"`
}

// ToGenesisConfig converts the JSON document to a GenesisConfig, validating
// that any hex-encoded holder fields actually decode as hex.
func (g *GenesisJSON) ToGenesisConfig() (*GenesisConfig, error) {
	out := &GenesisConfig{Controllers: g.Controllers}
	for _, t := range g.Tokens {
		if t.InitialHolder != "" {
			if _, err := hex.DecodeString(t.InitialHolder); err != nil {
				return nil, fmt.Errorf("token %s: initial_holder is not valid hex: %w", t.Symbol, err)
			}
		}
		out.Tokens = append(out.Tokens, GenesisToken{
			Name:          t.Name,
			Symbol:        t.Symbol,
			Decimals:      t.Decimals,
			Fee:           t.Fee,
			InitialHolder: t.InitialHolder,
			InitialSupply: t.InitialSupply,
		})
	}
	return out, nil
}
