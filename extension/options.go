package extension

import (
	"github.com/xraph/vesting"
	"github.com/xraph/vesting/chain"
	"github.com/xraph/vesting/plugin"
	"github.com/xraph/vesting/store"
)

// Option configures the vesting Forge extension.
type Option func(*Extension)

// WithStore sets the store for the vesting engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithChain sets the token ledger and custody collaborators. Without it the
// extension runs against an in-memory chain.
func WithChain(tokens chain.TokenLedger, custody chain.Custody) Option {
	return func(e *Extension) {
		e.tokens = tokens
		e.custody = custody
	}
}

// WithEngineOption passes a vesting.Option through to the underlying engine.
func WithEngineOption(opt vesting.Option) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, opt)
	}
}

// WithPlugin registers a vesting plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, vesting.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableRoutes prevents the HTTP server from being provided.
func WithDisableRoutes() Option {
	return func(e *Extension) { e.config.DisableRoutes = true }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithBasePath sets the URL prefix for vesting routes.
func WithBasePath(path string) Option {
	return func(e *Extension) { e.config.BasePath = path }
}

// WithAuthRule sets the authorization rule by name.
func WithAuthRule(rule string) Option {
	return func(e *Extension) { e.config.AuthRule = rule }
}

// WithAddressFormat sets the account identifier format.
func WithAddressFormat(format string) Option {
	return func(e *Extension) { e.config.AddressFormat = format }
}

// WithContractAddress sets the custody account holding contributed funds.
func WithContractAddress(addr string) Option {
	return func(e *Extension) { e.config.ContractAddress = addr }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}
