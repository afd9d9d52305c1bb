package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/animus-labs/tfbridge/internal/bridge"
	"github.com/animus-labs/tfbridge/internal/config"
	"github.com/animus-labs/tfbridge/internal/gateway"
	"github.com/animus-labs/tfbridge/internal/inventory"
	"github.com/animus-labs/tfbridge/internal/platform/auth"
	"github.com/animus-labs/tfbridge/internal/platform/env"
	"github.com/animus-labs/tfbridge/internal/platform/httpserver"
	"github.com/animus-labs/tfbridge/internal/platform/k8s"
)

const serviceName = "tfbridge"

func newServeCmd(logger *slog.Logger) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the Test API routes",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, logger, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides HTTP_ADDR)")
	return cmd
}

func serve(ctx context.Context, logger *slog.Logger, addr string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error("invalid config", "error", err)
		return err
	}
	if addr != "" {
		cfg.HTTPAddr = addr
	}

	authCfg, err := auth.ConfigFromEnv()
	if err != nil {
		logger.Error("invalid auth config", "error", err)
		return err
	}
	var authenticator auth.Authenticator
	if authCfg.Mode == auth.ModeOIDC {
		oidcAuth, err := auth.NewOIDCAuthenticator(ctx, authCfg)
		if err != nil {
			logger.Error("oidc init failed", "error", err)
			return err
		}
		authenticator = oidcAuth
	}

	reg, db, err := openRegistry(ctx, cfg)
	if err != nil {
		logger.Error("registry unavailable", "backend", cfg.Registry, "error", err)
		return err
	}
	if db != nil {
		defer func() { _ = db.Close() }()
	}

	kube, err := k8s.NewInClusterClient()
	if err != nil {
		if cfg.Engine == config.EngineTekton {
			logger.Error("kubernetes client unavailable", "error", err)
			return err
		}
		logger.Warn("kubernetes client unavailable, inventory disabled", "error", err)
		kube = nil
	}
	if cfg.Namespace == "" && kube != nil {
		cfg.Namespace = kube.Namespace()
	}

	eng, err := newEngine(cfg, kube, logger)
	if err != nil {
		logger.Error("engine init failed", "engine", cfg.Engine, "error", err)
		return err
	}
	reconciler, err := newReconciler(cfg, reg, eng, logger)
	if err != nil {
		return err
	}
	source, err := newReportSource(ctx, cfg)
	if err != nil {
		logger.Error("report source unavailable", "backend", cfg.Reports, "error", err)
		return err
	}

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := bridge.NewMetrics(promRegistry)
	if err != nil {
		return err
	}

	svc, err := bridge.New(bridge.Options{
		Registry:   reg,
		Engine:     eng,
		Reconciler: reconciler,
		Defaults:   cfg.Translate,
		Links:      cfg.Links,
		Reports:    source,
		Metrics:    metrics,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	handler := &gateway.Handler{
		Logger:    logger,
		Bridge:    svc,
		PublicURL: env.String("PUBLIC_URL", ""),
	}
	if kube != nil {
		lister, err := inventory.NewLister(kube, cfg.ExportersNamespace, cfg.Translate.Boards, cfg.InventoryBoardTypes)
		if err != nil {
			return err
		}
		handler.Inventory = lister
	}
	if cfg.UpstreamURL != "" {
		proxy, err := gateway.NewUpstreamProxy(logger, cfg.UpstreamURL, authCfg.Mode == auth.ModeOIDC)
		if err != nil {
			logger.Error("proxy init failed", "upstream", cfg.UpstreamURL, "error", err)
			return err
		}
		handler.Upstream = proxy
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", httpserver.Healthz(serviceName))
	mux.HandleFunc("/readyz", httpserver.Readyz(serviceName, readinessChecks(db)))
	mux.Handle("/metrics", promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}))
	mux.Handle("/", auth.Middleware{
		Logger:        logger,
		Authenticator: authenticator,
		SkipPrefixes:  []string{"/testing-farm/"},
	}.Wrap(handler))

	serverCfg := httpserver.Config{
		Service:         serviceName,
		Addr:            cfg.HTTPAddr,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}
	logger.Info("bridge configured",
		"engine", cfg.Engine,
		"registry", cfg.Registry,
		"reports", cfg.Reports,
		"pipeline", cfg.Translate.Pipeline,
		"upstream", cfg.UpstreamURL != "",
		"auth_mode", authCfg.Mode,
	)
	if err := httpserver.Run(ctx, logger, serverCfg, httpserver.Wrap(logger, serviceName, mux)); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server failed", "error", err)
		return err
	}
	return nil
}

func readinessChecks(db *sql.DB) map[string]httpserver.Check {
	if db == nil {
		return nil
	}
	return map[string]httpserver.Check{"registry": db.PingContext}
}
