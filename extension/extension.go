// Package extension provides the Forge extension adapter for the vesting
// engine.
//
// It implements the forge.Extension interface to integrate the engine
// into a Forge application with DI registration and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.vesting" or "vesting" keys.
package extension

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	"github.com/xraph/vesting"
	"github.com/xraph/vesting/address"
	"github.com/xraph/vesting/api"
	"github.com/xraph/vesting/auth"
	"github.com/xraph/vesting/chain"
	"github.com/xraph/vesting/chain/memchain"
	"github.com/xraph/vesting/store"
	"github.com/xraph/vesting/store/backend"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "vesting"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Token-sale vesting ledger"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts the vesting engine as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *vesting.Engine
	server     *api.Server
	store      store.Store
	tokens     chain.TokenLedger
	custody    chain.Custody
	engineOpts []vesting.Option
	memChain   bool
}

// New creates a new vesting Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying engine.
// This is nil until Register is called.
func (e *Extension) Engine() *vesting.Engine { return e.engine }

// Server returns the HTTP server, or nil when routes are disabled.
func (e *Extension) Server() *api.Server { return e.server }

// Register implements [forge.Extension]. It loads configuration,
// initializes the engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	if err := e.build(context.Background()); err != nil {
		return err
	}
	if e.memChain {
		e.Logger().Warn("vesting: no chain configured, using in-memory chain")
	}

	if err := vessel.Provide(fapp.Container(), func() (*vesting.Engine, error) {
		return e.engine, nil
	}); err != nil {
		return err
	}

	if e.server == nil {
		return nil
	}
	return vessel.Provide(fapp.Container(), func() (*api.Server, error) {
		return e.server, nil
	})
}

// build resolves the store and chain collaborators and constructs the
// engine and, unless disabled, its HTTP server.
func (e *Extension) build(ctx context.Context) error {
	if e.store == nil {
		s, err := backend.Open(ctx, e.config.Store)
		if err != nil {
			return fmt.Errorf("vesting: open store: %w", err)
		}
		e.store = s
	}

	if e.tokens == nil || e.custody == nil {
		mc := memchain.New()
		e.tokens, e.custody = mc, mc
		e.memChain = true
	}

	opts, err := e.buildEngineOpts()
	if err != nil {
		return err
	}
	e.engine = vesting.New(e.store, e.tokens, e.custody, opts...)

	if e.config.DisableRoutes {
		return nil
	}
	srv, err := api.New(e.engine, api.WithBasePath(e.config.BasePath))
	if err != nil {
		return fmt.Errorf("vesting: build api: %w", err)
	}
	e.server = srv
	return nil
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("vesting: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if err := e.engine.Start(ctx); err != nil {
			return err
		}
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("vesting: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildEngineOpts constructs vesting.Option values from the resolved config.
func (e *Extension) buildEngineOpts() ([]vesting.Option, error) {
	opts := make([]vesting.Option, 0, len(e.engineOpts)+3)

	rule, err := auth.ParseRule(e.config.AuthRule)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", vesting.ErrInvalidInput, err)
	}
	opts = append(opts, vesting.WithAuthRule(rule))

	v, err := address.ForFormat(address.Format(e.config.AddressFormat))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", vesting.ErrInvalidInput, err)
	}
	opts = append(opts, vesting.WithAddressValidator(v))

	if e.config.ContractAddress != "" {
		opts = append(opts, vesting.WithContractAddress(e.config.ContractAddress))
	}

	// Append any pass-through engine options.
	opts = append(opts, e.engineOpts...)

	return opts, nil
}

// --- Config Loading ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("vesting: configuration is required but not found in config files; " +
				"ensure 'extensions.vesting' or 'vesting' key exists in your config")
		}
		e.config = mergeWithDefaults(programmaticConfig)
	} else {
		e.config = mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("vesting: configuration loaded",
		forge.F("disable_routes", e.config.DisableRoutes),
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("base_path", e.config.BasePath),
		forge.F("auth_rule", e.config.AuthRule),
		forge.F("address_format", e.config.AddressFormat),
		forge.F("store_driver", e.config.Store.Driver),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()

	for _, key := range []string{"extensions.vesting", "vesting"} {
		if !cm.IsSet(key) {
			continue
		}
		var cfg Config
		if err := cm.Bind(key, &cfg); err != nil {
			e.Logger().Warn("vesting: failed to bind config",
				forge.F("key", key),
				forge.F("error", err.Error()),
			)
			continue
		}
		e.Logger().Debug("vesting: loaded config from file", forge.F("key", key))
		return cfg, true
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.BasePath == "" {
		cfg.BasePath = defaults.BasePath
	}
	if cfg.AuthRule == "" {
		cfg.AuthRule = defaults.AuthRule
	}
	if cfg.AddressFormat == "" {
		cfg.AddressFormat = defaults.AddressFormat
	}
	if cfg.Store.Driver == "" {
		cfg.Store.Driver = defaults.Store.Driver
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic values fill gaps.
func mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	if programmaticConfig.DisableRoutes {
		yamlConfig.DisableRoutes = true
	}
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}

	fill := func(dst *string, src string) {
		if *dst == "" {
			*dst = src
		}
	}
	fill(&yamlConfig.BasePath, programmaticConfig.BasePath)
	fill(&yamlConfig.AuthRule, programmaticConfig.AuthRule)
	fill(&yamlConfig.AddressFormat, programmaticConfig.AddressFormat)
	fill(&yamlConfig.ContractAddress, programmaticConfig.ContractAddress)

	if yamlConfig.Store.Driver == "" {
		yamlConfig.Store = programmaticConfig.Store
	}

	return mergeWithDefaults(yamlConfig)
}
