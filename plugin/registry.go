package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/xraph/vesting/config"
	"github.com/xraph/vesting/curve"
	"github.com/xraph/vesting/id"
	"github.com/xraph/vesting/price"
	"github.com/xraph/vesting/types"
)

// DefaultHookTimeout bounds a single hook invocation.
const DefaultHookTimeout = 5 * time.Second

// Registry manages registered plugins. Hook implementations are discovered
// once at registration and cached per hook type.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	onInit            []OnInit
	onShutdown        []OnShutdown
	onInstantiated    []OnInstantiated
	onReleaseStarted  []OnReleaseStarted
	onConfigChanged   []OnConfigChanged
	onPricesChanged   []OnPricesChanged
	onCurveChanged    []OnCurveChanged
	onContribution    []OnContribution
	onGrant           []OnGrant
	onClaim           []OnClaim
	onWithdraw        []OnWithdraw
	onCommandRejected []OnCommandRejected
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultHookTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets the per-hook timeout.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	r.timeout = d
	return r
}

// Register adds a plugin to the registry and caches its hooks.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnInstantiated); ok {
		r.onInstantiated = append(r.onInstantiated, v)
	}
	if v, ok := p.(OnReleaseStarted); ok {
		r.onReleaseStarted = append(r.onReleaseStarted, v)
	}
	if v, ok := p.(OnConfigChanged); ok {
		r.onConfigChanged = append(r.onConfigChanged, v)
	}
	if v, ok := p.(OnPricesChanged); ok {
		r.onPricesChanged = append(r.onPricesChanged, v)
	}
	if v, ok := p.(OnCurveChanged); ok {
		r.onCurveChanged = append(r.onCurveChanged, v)
	}
	if v, ok := p.(OnContribution); ok {
		r.onContribution = append(r.onContribution, v)
	}
	if v, ok := p.(OnGrant); ok {
		r.onGrant = append(r.onGrant, v)
	}
	if v, ok := p.(OnClaim); ok {
		r.onClaim = append(r.onClaim, v)
	}
	if v, ok := p.(OnWithdraw); ok {
		r.onWithdraw = append(r.onWithdraw, v)
	}
	if v, ok := p.(OnCommandRejected); ok {
		r.onCommandRejected = append(r.onCommandRejected, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"hooks", implementedHooks(p),
	)

	return nil
}

var hookTypes = []struct {
	name string
	typ  reflect.Type
}{
	{"OnInit", reflect.TypeOf((*OnInit)(nil)).Elem()},
	{"OnShutdown", reflect.TypeOf((*OnShutdown)(nil)).Elem()},
	{"OnInstantiated", reflect.TypeOf((*OnInstantiated)(nil)).Elem()},
	{"OnReleaseStarted", reflect.TypeOf((*OnReleaseStarted)(nil)).Elem()},
	{"OnConfigChanged", reflect.TypeOf((*OnConfigChanged)(nil)).Elem()},
	{"OnPricesChanged", reflect.TypeOf((*OnPricesChanged)(nil)).Elem()},
	{"OnCurveChanged", reflect.TypeOf((*OnCurveChanged)(nil)).Elem()},
	{"OnContribution", reflect.TypeOf((*OnContribution)(nil)).Elem()},
	{"OnGrant", reflect.TypeOf((*OnGrant)(nil)).Elem()},
	{"OnClaim", reflect.TypeOf((*OnClaim)(nil)).Elem()},
	{"OnWithdraw", reflect.TypeOf((*OnWithdraw)(nil)).Elem()},
	{"OnCommandRejected", reflect.TypeOf((*OnCommandRejected)(nil)).Elem()},
}

// implementedHooks lists the hook interfaces p implements.
func implementedHooks(p Plugin) []string {
	var hooks []string
	v := reflect.TypeOf(p)
	for _, h := range hookTypes {
		if v.Implements(h.typ) {
			hooks = append(hooks, h.name)
		}
	}
	return hooks
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// snapshot copies a cached hook list under the read lock.
func snapshot[T any](r *Registry, list *[]T) []T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return *list
}

// emit invokes call for each hook, logging failures. Hook errors never
// propagate to the command that triggered them.
func emit[T Plugin](ctx context.Context, r *Registry, hook string, hooks []T, call func(T) error) {
	for _, p := range hooks {
		if err := r.callWithTimeout(ctx, p.Name(), func() error { return call(p) }); err != nil {
			r.logger.Warn("plugin "+hook+" failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, engine interface{}) {
	emit(ctx, r, "OnInit", snapshot(r, &r.onInit), func(p OnInit) error {
		return p.OnInit(ctx, engine)
	})
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	emit(ctx, r, "OnShutdown", snapshot(r, &r.onShutdown), func(p OnShutdown) error {
		return p.OnShutdown(ctx)
	})
}

// EmitInstantiated calls OnInstantiated for all plugins that implement it.
func (r *Registry) EmitInstantiated(ctx context.Context, cfg *config.Config) {
	emit(ctx, r, "OnInstantiated", snapshot(r, &r.onInstantiated), func(p OnInstantiated) error {
		return p.OnInstantiated(ctx, cfg)
	})
}

// EmitReleaseStarted calls OnReleaseStarted for all plugins that implement it.
func (r *Registry) EmitReleaseStarted(ctx context.Context, startTime uint64) {
	emit(ctx, r, "OnReleaseStarted", snapshot(r, &r.onReleaseStarted), func(p OnReleaseStarted) error {
		return p.OnReleaseStarted(ctx, startTime)
	})
}

// EmitConfigChanged calls OnConfigChanged for all plugins that implement it.
func (r *Registry) EmitConfigChanged(ctx context.Context, oldCfg, newCfg *config.Config) {
	emit(ctx, r, "OnConfigChanged", snapshot(r, &r.onConfigChanged), func(p OnConfigChanged) error {
		return p.OnConfigChanged(ctx, oldCfg, newCfg)
	})
}

// EmitPricesChanged calls OnPricesChanged for all plugins that implement it.
func (r *Registry) EmitPricesChanged(ctx context.Context, table *price.Table) {
	emit(ctx, r, "OnPricesChanged", snapshot(r, &r.onPricesChanged), func(p OnPricesChanged) error {
		return p.OnPricesChanged(ctx, table)
	})
}

// EmitCurveChanged calls OnCurveChanged for all plugins that implement it.
func (r *Registry) EmitCurveChanged(ctx context.Context, crv *curve.Curve) {
	emit(ctx, r, "OnCurveChanged", snapshot(r, &r.onCurveChanged), func(p OnCurveChanged) error {
		return p.OnCurveChanged(ctx, crv)
	})
}

// EmitContribution calls OnContribution for all plugins that implement it.
func (r *Registry) EmitContribution(ctx context.Context, wallet string, fund types.Coin, credited types.Amount) {
	emit(ctx, r, "OnContribution", snapshot(r, &r.onContribution), func(p OnContribution) error {
		return p.OnContribution(ctx, wallet, fund, credited)
	})
}

// EmitGrant calls OnGrant for all plugins that implement it.
func (r *Registry) EmitGrant(ctx context.Context, granter, wallet string, amount types.Amount) {
	emit(ctx, r, "OnGrant", snapshot(r, &r.onGrant), func(p OnGrant) error {
		return p.OnGrant(ctx, granter, wallet, amount)
	})
}

// EmitClaim calls OnClaim for all plugins that implement it.
func (r *Registry) EmitClaim(ctx context.Context, wallet string, amount types.Amount, instructionID id.ID) {
	emit(ctx, r, "OnClaim", snapshot(r, &r.onClaim), func(p OnClaim) error {
		return p.OnClaim(ctx, wallet, amount, instructionID)
	})
}

// EmitWithdraw calls OnWithdraw for all plugins that implement it.
func (r *Registry) EmitWithdraw(ctx context.Context, destination string, coins types.Coins) {
	emit(ctx, r, "OnWithdraw", snapshot(r, &r.onWithdraw), func(p OnWithdraw) error {
		return p.OnWithdraw(ctx, destination, coins)
	})
}

// EmitCommandRejected calls OnCommandRejected for all plugins that implement it.
func (r *Registry) EmitCommandRejected(ctx context.Context, command, sender string, cmdErr error) {
	emit(ctx, r, "OnCommandRejected", snapshot(r, &r.onCommandRejected), func(p OnCommandRejected) error {
		return p.OnCommandRejected(ctx, command, sender, cmdErr)
	})
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the command pipeline.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(r.timeout):
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
