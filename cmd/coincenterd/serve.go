package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"coincenter-core/internal/app"
	"coincenter-core/internal/config"
	"coincenter-core/internal/exchange"
	"coincenter-core/internal/logging"
	"coincenter-core/internal/money"
	"coincenter-core/internal/orchestrator"
)

var scriptPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the orchestrator continuously against the configured exchanges",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&scriptPath, "script", "s", "", "Path to a JSON orchestrator script (defaults to a single market-data-recording pass over every configured exchange)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	var logger *zap.Logger
	if cfg.Logging.LogFile != "" {
		logger, err = logging.NewWithFile(cfg.Logging.Level, cfg.Logging.LogFile)
	} else {
		logger, err = logging.New(cfg.Logging.Level)
	}
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	adapters, err := buildAdapters(cfg)
	if err != nil {
		return fmt.Errorf("build exchange adapters: %w", err)
	}
	for _, a := range adapters {
		if feed, ok := a.(interface{ StartBookFeed(context.Context) }); ok {
			feed.StartBookFeed(cmd.Context())
		}
	}

	exec := app.NewExecutor(adapters, logger)
	orch := orchestrator.New(orchestrator.Config{
		Workers:             cfg.Orchestrator.Workers,
		Repeats:             cfg.Orchestrator.Repeats,
		MinInterCyclePeriod: cfg.Orchestrator.MinInterCyclePeriod,
	}, exec, logger)

	script := defaultScript(adapters)
	if scriptPath != "" {
		script, err = loadScript(scriptPath)
		if err != nil {
			return fmt.Errorf("load script: %w", err)
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok\n"))
	})
	mux.Handle("/metrics", promhttp.Handler())
	handler := cors.New(cors.Options{
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		AllowedMethods: []string{"GET"},
	}).Handler(mux)

	srv := &http.Server{Addr: cfg.HTTP.ListenAddr, Handler: handler}
	go func() {
		logger.Info("serving metrics", zap.String("addr", cfg.HTTP.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server", zap.Error(err))
		}
	}()

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	runErr := orch.Run(ctx, script)
	for _, a := range adapters {
		if feed, ok := a.(interface{ StopBookFeed() }); ok {
			feed.StopBookFeed()
		}
	}

	shutdownCtx, c := context.WithTimeout(context.Background(), 2*time.Second)
	defer c()
	_ = srv.Shutdown(shutdownCtx)

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return fmt.Errorf("orchestrator run: %w", runErr)
	}
	logger.Info("shutdown complete")
	return nil
}

// buildAdapters wires one exchange.Adapter per configured exchange: a
// BridgeAdapter talking to the exchange's REST/WS endpoints, signed with
// a JWTSigner when a private key is configured, or a PaperAdapter when
// the exchange's base_url is the literal "paper" — mirroring the
// teacher's main.go broker switch (BROKER env var, falling back to
// NewPaperBroker when no bridge URL is set).
func buildAdapters(cfg *config.Config) (map[string]exchange.Adapter, error) {
	out := make(map[string]exchange.Adapter, len(cfg.Exchanges))
	for name, ex := range cfg.Exchanges {
		if ex.BaseURL == "paper" {
			usdt := money.MustCurrencyCode("USDT")
			out[name] = exchange.NewPaperAdapter(map[money.CurrencyCode]money.Amount{
				usdt: money.New(10000_00, usdt, 2),
			}, 20, money.New(5_00000000, money.MustCurrencyCode("BTC"), 8))
			continue
		}

		var signer *exchange.JWTSigner
		if ex.PrivateKeyPEM != "" {
			s, err := exchange.NewJWTSigner(ex.KeyName, ex.BaseURL, ex.PrivateKeyPEM)
			if err != nil {
				return nil, fmt.Errorf("jwt signer for %s: %w", name, err)
			}
			signer = s
		}
		out[name] = exchange.NewBridgeAdapter(name, ex.BaseURL, ex.WSURL, signer)
	}
	return out, nil
}

// defaultScript is a single market-data-recording pass over every
// configured exchange when no --script is given, so `serve` is useful
// out of the box.
func defaultScript(adapters map[string]exchange.Adapter) []orchestrator.Command {
	names := make([]string, 0, len(adapters))
	for name := range adapters {
		names = append(names, name)
	}
	return []orchestrator.Command{{Type: orchestrator.MarketDataRecording, ExchangeNames: names}}
}
