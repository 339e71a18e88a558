package extension

import "github.com/xraph/vesting/store/backend"

// Config holds the vesting extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.vesting" or "vesting" keys).
type Config struct {
	// DisableRoutes prevents the HTTP server from being provided.
	DisableRoutes bool `json:"disable_routes" mapstructure:"disable_routes" yaml:"disable_routes"`

	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// BasePath is the URL prefix for vesting routes (default: "/vesting").
	BasePath string `json:"base_path" mapstructure:"base_path" yaml:"base_path"`

	// AuthRule is "permissive" (owner or treasury) or "owner_only".
	AuthRule string `json:"auth_rule" mapstructure:"auth_rule" yaml:"auth_rule"`

	// AddressFormat selects the account identifier validator: hex, ton or any
	// (default: hex).
	AddressFormat string `json:"address_format" mapstructure:"address_format" yaml:"address_format"`

	// ContractAddress is the custody account holding contributed funds.
	ContractAddress string `json:"contract_address" mapstructure:"contract_address" yaml:"contract_address"`

	// Store selects the back end when no store is given with WithStore.
	Store backend.Options `json:"store" mapstructure:"store" yaml:"store"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		BasePath:      "/vesting",
		AuthRule:      "permissive",
		AddressFormat: "hex",
		Store:         backend.Options{Driver: backend.DriverMemory},
	}
}
