// Package main is the entry point for the BRL arbitrage bot.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/fd1az/brl-arbitrage-bot/business/arbitrage"
	"github.com/fd1az/brl-arbitrage-bot/business/pricing"
	pricingApp "github.com/fd1az/brl-arbitrage-bot/business/pricing/app"
	pricingDI "github.com/fd1az/brl-arbitrage-bot/business/pricing/di"
	"github.com/fd1az/brl-arbitrage-bot/business/trading"
	"github.com/fd1az/brl-arbitrage-bot/internal/apm"
	"github.com/fd1az/brl-arbitrage-bot/internal/config"
	"github.com/fd1az/brl-arbitrage-bot/internal/health"
	"github.com/fd1az/brl-arbitrage-bot/internal/logger"
	"github.com/fd1az/brl-arbitrage-bot/internal/metrics"
	"github.com/fd1az/brl-arbitrage-bot/internal/monolith"
	"github.com/fd1az/brl-arbitrage-bot/pkg/ui"
	"github.com/fd1az/brl-arbitrage-bot/pkg/ui/components"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

// shutdowner is implemented by modules holding resources.
type shutdowner interface {
	Shutdown(monolith.Monolith) error
}

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	// Parse flags
	configPath := flag.String("config", "", "Path to configuration file")
	cliMode := flag.Bool("cli", false, "Run in CLI mode with logs (no TUI)")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("brl-arbitrage-bot %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// TUI is the default, CLI is for debugging
	tuiMode := !*cliMode

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath, tuiMode); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string, tuiMode bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Set TUI mode in config so modules know
	cfg.App.TUIMode = tuiMode

	var out io.Writer = os.Stderr
	if tuiMode {
		// The TUI owns the terminal
		out = io.Discard
	}
	log := logger.New(out, logger.ParseLevel(cfg.App.LogLevel), cfg.App.Name, apm.TraceID)
	log.Info(ctx, "starting BRL arbitrage bot",
		"version", version,
		"environment", cfg.App.Environment,
		"symbols", cfg.Trading.Symbols,
	)

	stopTelemetry, err := setupTelemetry(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer stopTelemetry()

	healthServer := health.NewServer(cfg.Health.Port, version, log)
	if err := healthServer.Start(); err != nil {
		log.Warn(ctx, "failed to start health server", "error", err)
	} else {
		log.Info(ctx, "health server started", "port", cfg.Health.Port)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		healthServer.Stop(shutdownCtx)
	}()

	mono := monolith.New(cfg, log, healthServer)

	// Define modules in dependency order
	modules := []monolith.Module{
		&pricing.Module{},   // Venue quotes
		&trading.Module{},   // Ledger and execution engine
		&arbitrage.Module{}, // Depends on pricing and trading
	}

	if err := mono.RegisterModules(modules...); err != nil {
		return fmt.Errorf("failed to register modules: %w", err)
	}

	shutdown := func() {
		// Reverse order: stop the scheduler before closing what it uses
		for i := len(modules) - 1; i >= 0; i-- {
			if s, ok := modules[i].(shutdowner); ok {
				if err := s.Shutdown(mono); err != nil {
					log.Error(context.Background(), "module shutdown failed", "error", err)
				}
			}
		}
	}

	if tuiMode {
		startFunc := func() error {
			ui.Send(ui.StartupMsg{Step: "config", Status: "done"})
			ui.Send(ui.StartupMsg{Step: "bitpreco", Status: "connecting"})
			ui.Send(ui.StartupMsg{Step: "binance", Status: "connecting"})
			if err := mono.StartModules(ctx, modules...); err != nil {
				return fmt.Errorf("failed to start modules: %w", err)
			}
			reportVenues(pricingDI.GetQuoteService(mono.Services()).Providers())
			return nil
		}
		return runTUI(ctx, startFunc, shutdown)
	}

	// CLI mode: Start modules synchronously
	if err := mono.StartModules(ctx, modules...); err != nil {
		return fmt.Errorf("failed to start modules: %w", err)
	}
	return runCLI(ctx, shutdown, log)
}

func setupTelemetry(ctx context.Context, cfg *config.Config, log logger.LoggerInterface) (func(), error) {
	if !cfg.Telemetry.Enabled {
		return func() {}, nil
	}

	serviceName := cfg.Telemetry.ServiceName
	if serviceName == "" {
		serviceName = cfg.App.Name
	}

	traceProvider, err := apm.NewTraceProvider(log,
		apm.WithProvider(apm.ParseProvider(cfg.Telemetry.TraceProvider)),
		apm.WithServiceName(serviceName),
		apm.WithEndpoint(cfg.Telemetry.OTLPEndpoint),
		apm.WithHeaders(cfg.Telemetry.OTLPHeaders),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to init tracing: %w", err)
	}
	log.Info(ctx, "tracing initialized", "provider", cfg.Telemetry.TraceProvider)

	opts := []metrics.OptionFn{
		metrics.WithServiceName(serviceName),
		metrics.WithProviderConfig(metrics.ProviderCfg{Provider: metrics.PrometheusProvider}),
	}
	if apm.ParseProvider(cfg.Telemetry.TraceProvider) == apm.OTLPGRPCProvider && cfg.Telemetry.OTLPEndpoint != "" {
		opts = append(opts, metrics.WithProviderConfig(metrics.NewOtelCollectorConfig(
			cfg.Telemetry.OTLPEndpoint, apm.ParseHeaders(cfg.Telemetry.OTLPHeaders), true)))
	}
	meterProvider, err := metrics.NewMetricProvider(opts...)
	if err != nil {
		traceProvider.Stop()
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}

	port := cfg.Telemetry.PrometheusPort
	if port == 0 {
		port = 9090
	}
	promServer := metrics.ServePrometheusMetrics(func(err error) {
		log.Error(context.Background(), "prometheus server failed", "error", err)
	}, metrics.WithPort(strconv.Itoa(port)))
	log.Info(ctx, "prometheus metrics server started", "port", port)

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		promServer.Stop(shutdownCtx)
		meterProvider.Shutdown(shutdownCtx)
		traceProvider.Stop()
	}, nil
}

// reportVenues pushes each provider's health to the startup screen and the status bar.
func reportVenues(providers []pricingApp.MarketDataProvider) {
	for _, p := range providers {
		healthy, detail := true, "ok"
		if hr, ok := p.(pricingApp.HealthReporter); ok {
			healthy, detail = hr.Healthy()
		}
		status := "connected"
		if !healthy {
			status = "failed"
		}
		ui.Send(ui.StartupMsg{Step: p.Venue().String(), Status: status, Message: detail})
		ui.Send(ui.VenueStatusMsg{Status: components.VenueStatus{
			Name:    p.Venue().String(),
			Healthy: healthy,
			Detail:  detail,
		}})
	}
}

func runCLI(ctx context.Context, shutdown func(), log *logger.Logger) error {
	log.Info(ctx, "all modules started, checking for opportunities")

	// Wait for shutdown
	<-ctx.Done()

	log.Info(context.Background(), "shutting down")
	shutdown()
	return nil
}

func runTUI(ctx context.Context, startFunc func() error, shutdown func()) error {
	// Channel to receive StartModulesMsg signal
	startSignal := make(chan struct{}, 1)
	ui.OnStartModules = func() {
		select {
		case startSignal <- struct{}{}:
		default:
		}
	}

	// Create and start the TUI program IMMEDIATELY (shows welcome screen)
	p := tea.NewProgram(ui.New(), tea.WithAltScreen())
	ui.Program = p

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Run bot logic in background (non-blocking)
	errCh := make(chan error, 1)
	go func() {
		// Wait for welcome screen to complete (StartModulesMsg signal)
		select {
		case <-startSignal:
		case <-runCtx.Done():
			errCh <- nil
			return
		}

		if err := startFunc(); err != nil {
			ui.Send(ui.ErrorMsg{Error: err})
			errCh <- err
			return
		}

		<-runCtx.Done()
		shutdown()
		errCh <- nil
	}()

	// A signal closes the TUI as if the operator pressed q
	go func() {
		<-ctx.Done()
		p.Quit()
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	// Quit from the TUI: stop the bot and wait for it
	cancel()
	select {
	case err := <-errCh:
		return err
	case <-time.After(10 * time.Second):
		return fmt.Errorf("timed out waiting for shutdown")
	}
}
