package config

import "fmt"

// ServerConfig is the [server] section: the single RPC listener ledgerd
// serves JSON-RPC 2.0 (spec.md §5) and the supplemented transaction-stream
// WebSocket on.
type ServerConfig struct {
	IP       string   `toml:"ip" mapstructure:"ip"`
	Port     int      `toml:"port" mapstructure:"port"`
	Protocol string   `toml:"protocol" mapstructure:"protocol"` // "http", "http,ws", "https,wss"
	Limit    int      `toml:"limit" mapstructure:"limit"`       // max concurrent connections, 0 = unlimited

	// Admin restricts admin-dialect RPC methods (mint_tokens, burn_tokens,
	// create_token, set_token_fee, add_controller, remove_controller) to the
	// listed CIDRs,
	// in addition to the controller-set check the pipeline itself performs.
	Admin []string `toml:"admin" mapstructure:"admin"`

	SSLCert string `toml:"ssl_cert" mapstructure:"ssl_cert"`
	SSLKey  string `toml:"ssl_key" mapstructure:"ssl_key"`
}

// GetBindAddress returns the IP:Port the server should listen on.
func (s *ServerConfig) GetBindAddress() string {
	if s.IP == "" {
		return ":0"
	}
	return fmt.Sprintf("%s:%d", s.IP, s.Port)
}

// IsSecure reports whether TLS is configured.
func (s *ServerConfig) IsSecure() bool {
	return s.SSLCert != "" && s.SSLKey != ""
}

// IsAdminRestricted reports whether admin methods are IP-restricted.
func (s *ServerConfig) IsAdminRestricted() bool {
	return len(s.Admin) > 0
}

// Validate checks the server section for obvious misconfiguration.
func (s *ServerConfig) Validate() error {
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", s.Port)
	}
	if s.IP == "" {
		return fmt.Errorf("server.ip is required")
	}
	if (s.SSLCert == "") != (s.SSLKey == "") {
		return fmt.Errorf("server.ssl_cert and server.ssl_key must both be set or both be empty")
	}
	return nil
}
