package vesting

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/xraph/vesting/address"
	"github.com/xraph/vesting/auth"
	"github.com/xraph/vesting/chain"
	"github.com/xraph/vesting/config"
	"github.com/xraph/vesting/curve"
	"github.com/xraph/vesting/id"
	"github.com/xraph/vesting/plugin"
	"github.com/xraph/vesting/price"
	"github.com/xraph/vesting/store"
	"github.com/xraph/vesting/types"
)

// DefaultContractAddress is the custody account swept by Withdraw when no
// address is configured.
const DefaultContractAddress = "vesting"

// Engine is the vesting ledger. It owns no state of its own: every command
// runs as one store transaction, and value transfers are issued as
// instructions through an Executor.
type Engine struct {
	store    store.Store
	tokens   chain.TokenLedger
	custody  chain.Custody
	executor chain.Executor
	plugins  *plugin.Registry
	logger   *slog.Logger

	guard    auth.Guard
	addrs    address.Validator
	contract string

	// writeMu admits one command at a time per process.
	writeMu sync.Mutex
}

// New creates an Engine over s. tokens and custody are the collaborators
// queried for balances; unless WithExecutor is given, instructions are also
// executed against them.
func New(s store.Store, tokens chain.TokenLedger, custody chain.Custody, opts ...Option) *Engine {
	e := &Engine{
		store:    s,
		tokens:   tokens,
		custody:  custody,
		plugins:  plugin.NewRegistry(),
		logger:   slog.Default(),
		guard:    auth.NewGuard(auth.RulePermissive),
		addrs:    address.Hex{},
		contract: DefaultContractAddress,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.executor == nil {
		e.executor = chain.NewDispatcher(tokens, custody)
	}

	return e
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
		e.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Engine) {
		_ = e.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithAuthRule selects who may run guarded commands. SetConfig is owner-only
// under every rule.
func WithAuthRule(rule auth.Rule) Option {
	return func(e *Engine) {
		e.guard = auth.NewGuard(rule)
	}
}

// WithAddressValidator sets the validator applied to administrator-supplied
// account identifiers.
func WithAddressValidator(v address.Validator) Option {
	return func(e *Engine) {
		e.addrs = v
	}
}

// WithExecutor sets where disbursement and sweep instructions are issued.
func WithExecutor(x chain.Executor) Option {
	return func(e *Engine) {
		e.executor = x
	}
}

// WithContractAddress sets the custody account holding contributed funds.
func WithContractAddress(addr string) Option {
	return func(e *Engine) {
		e.contract = addr
	}
}

// Start migrates the store and initializes plugins.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.store.Migrate(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrMigrationFailed, err)
	}

	e.plugins.EmitInit(ctx, e)

	e.logger.Info("vesting engine started",
		"auth_rule", e.guard.Rule,
		"contract", e.contract,
		"plugins", e.plugins.Count(),
	)

	return nil
}

// Stop shuts down plugins and closes the store.
func (e *Engine) Stop() error {
	e.plugins.EmitShutdown(context.Background())
	return e.store.Close()
}

// Plugins returns the plugin registry.
func (e *Engine) Plugins() *plugin.Registry {
	return e.plugins
}

// Store returns the underlying store.
func (e *Engine) Store() store.Store {
	return e.store
}

// ──────────────────────────────────────────────────
// Invocation context
// ──────────────────────────────────────────────────

// Env is supplied by the host once per command: who sent it and the block
// time it executes at. Handlers never consult a clock.
type Env struct {
	Sender string
	Now    uint64
}

// Attribute is a key/value pair describing what a command did.
type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Response is the result of a committed command.
type Response struct {
	CommandID    id.ID               `json:"command_id"`
	Action       string              `json:"action"`
	Attributes   []Attribute         `json:"attributes,omitempty"`
	Instructions []chain.Instruction `json:"instructions,omitempty"`
}

func newResponse(action string) *Response {
	return &Response{CommandID: id.NewCommandID(), Action: action}
}

func (r *Response) with(key, value string) *Response {
	r.Attributes = append(r.Attributes, Attribute{Key: key, Value: value})
	return r
}

// Attribute returns the value recorded under key.
func (r *Response) Attribute(key string) (string, bool) {
	for _, a := range r.Attributes {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

// ──────────────────────────────────────────────────
// Instantiation
// ──────────────────────────────────────────────────

// InstantiateParams seeds a fresh ledger. Admin defaults to the sender.
type InstantiateParams struct {
	Admin       string `json:"admin,omitempty"`
	Treasury    string `json:"treasury"`
	TargetToken string `json:"token_addr"`
}

// Instantiate writes the initial configuration and defaults: a stopped
// release clock, the default price table and curve, and a zero total.
func (e *Engine) Instantiate(ctx context.Context, env Env, p InstantiateParams) (*Response, error) {
	owner := p.Admin
	if owner == "" {
		owner = env.Sender
	}
	for _, f := range []struct{ field, value string }{
		{"admin", owner},
		{"treasury", p.Treasury},
		{"token_addr", p.TargetToken},
	} {
		if err := e.validateAddress(f.field, f.value); err != nil {
			return nil, err
		}
	}

	cfg := &config.Config{Owner: owner, Treasury: p.Treasury, TargetToken: p.TargetToken}

	err := e.update(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.GetConfig(ctx); err == nil {
			return ErrAlreadyInitialized
		} else if !IsNotFound(err) {
			return err
		}
		if err := tx.PutConfig(ctx, cfg); err != nil {
			return err
		}
		if err := tx.PutPrices(ctx, price.Default()); err != nil {
			return err
		}
		if err := tx.PutCurve(ctx, curve.Default()); err != nil {
			return err
		}
		return tx.PutTotal(ctx, types.Amount{})
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("vesting ledger instantiated",
		"owner", cfg.Owner,
		"treasury", cfg.Treasury,
		"token", cfg.TargetToken,
	)
	e.plugins.EmitInstantiated(ctx, cfg)

	return newResponse("instantiate").with("owner", owner), nil
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

// update runs fn as the single writer.
func (e *Engine) update(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	return e.store.Update(ctx, fn)
}

func (e *Engine) validateAddress(field, addr string) error {
	if err := e.addrs.Validate(addr); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidAddress, field, err)
	}
	return nil
}

// loadConfig maps a missing config record to ErrNotInitialized.
func loadConfig(ctx context.Context, r store.Reader) (*config.Config, error) {
	cfg, err := r.GetConfig(ctx)
	if IsNotFound(err) {
		return nil, ErrNotInitialized
	}
	return cfg, err
}

func loadCurve(ctx context.Context, r store.Reader) (*curve.Curve, error) {
	crv, err := r.GetCurve(ctx)
	if IsNotFound(err) {
		return nil, ErrNotInitialized
	}
	return crv, err
}

func loadPrices(ctx context.Context, r store.Reader) (*price.Table, error) {
	t, err := r.GetPrices(ctx)
	if IsNotFound(err) {
		return nil, ErrNotInitialized
	}
	return t, err
}
