// Command vestingd runs the vesting engine behind its HTTP API.
//
// There is no chain client: tokens and custody live in an in-memory chain,
// optionally seeded from the dev section of the config file.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"

	"github.com/xraph/vesting"
	"github.com/xraph/vesting/address"
	"github.com/xraph/vesting/api"
	audit_hook "github.com/xraph/vesting/audit_hook"
	"github.com/xraph/vesting/auth"
	"github.com/xraph/vesting/chain"
	"github.com/xraph/vesting/chain/memchain"
	"github.com/xraph/vesting/observability"
	"github.com/xraph/vesting/store/backend"
	"github.com/xraph/vesting/types"
)

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, "vestingd:", err)
		os.Exit(2)
	}

	logger, err := newLogger(cfg.Log, os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, "vestingd:", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("vestingd stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg Config, logger *slog.Logger) error {
	eng, reg, err := buildEngine(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if err := eng.Start(ctx); err != nil {
		_ = eng.Stop()
		return err
	}
	defer func() {
		if err := eng.Stop(); err != nil {
			logger.Warn("engine stop", "error", err)
		}
	}()

	srv, err := api.New(eng, api.WithLogger(logger), api.WithBasePath(cfg.BasePath))
	if err != nil {
		return err
	}
	if reg != nil {
		srv.App().Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Listen(cfg.Listen) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		return srv.Shutdown()
	}
}

// buildEngine opens the store and assembles the engine with its plugins. The
// returned registry is nil when metrics are disabled.
func buildEngine(ctx context.Context, cfg Config, logger *slog.Logger) (*vesting.Engine, *prometheus.Registry, error) {
	rule, err := auth.ParseRule(cfg.AuthRule)
	if err != nil {
		return nil, nil, err
	}
	addrs, err := address.ForFormat(address.Format(cfg.AddressFormat))
	if err != nil {
		return nil, nil, err
	}

	s, err := backend.Open(ctx, cfg.Store)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("store opened", "driver", cfg.Store.Driver)

	mc := memchain.New()
	if cfg.Dev.Token != "" {
		mc.CreateToken(cfg.Dev.Token, chain.TokenInfo{Name: cfg.Dev.TokenName, Symbol: cfg.Dev.TokenName, Decimals: 6},
			cfg.Dev.Treasury, types.NewAmount(cfg.Dev.Supply))
		logger.Info("dev token minted", "token", cfg.Dev.Token, "treasury", cfg.Dev.Treasury, "supply", cfg.Dev.Supply)
	}

	opts := []vesting.Option{
		vesting.WithLogger(logger),
		vesting.WithAuthRule(rule),
		vesting.WithAddressValidator(addrs),
	}
	if cfg.ContractAddress != "" {
		opts = append(opts, vesting.WithContractAddress(cfg.ContractAddress))
	}

	var reg *prometheus.Registry
	if cfg.Metrics {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		opts = append(opts, vesting.WithPlugin(observability.NewMetricsExtension(observability.NewPrometheusFactory(reg))))
	}
	if cfg.Audit {
		opts = append(opts, vesting.WithPlugin(audit_hook.New(auditLog(logger), audit_hook.WithLogger(logger))))
	}

	return vesting.New(s, mc, mc, opts...), reg, nil
}

// auditLog writes audit events to the daemon log.
func auditLog(logger *slog.Logger) audit_hook.Recorder {
	return audit_hook.RecorderFunc(func(ctx context.Context, ev *audit_hook.AuditEvent) error {
		logger.InfoContext(ctx, "audit",
			"action", ev.Action,
			"resource", ev.Resource,
			"resource_id", ev.ResourceID,
			"outcome", ev.Outcome,
			"severity", ev.Severity,
			"metadata", ev.Metadata,
		)
		return nil
	})
}
