package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/rahulsinghal1904/cart-advisor-agent/internal/alternatives"
	"github.com/rahulsinghal1904/cart-advisor-agent/internal/api"
	"github.com/rahulsinghal1904/cart-advisor-agent/internal/browser"
	"github.com/rahulsinghal1904/cart-advisor-agent/internal/cache"
	"github.com/rahulsinghal1904/cart-advisor-agent/internal/config"
	"github.com/rahulsinghal1904/cart-advisor-agent/internal/fetch"
	"github.com/rahulsinghal1904/cart-advisor-agent/internal/provider"
	"github.com/rahulsinghal1904/cart-advisor-agent/internal/ranker"
	"github.com/rahulsinghal1904/cart-advisor-agent/internal/stealth"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	p := buildProvider(cfg)

	handlers := api.NewHandlers(p, logger)
	router := api.NewRouter(handlers, cfg.Server.RequestsPerSecond)

	server := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.WriteTimeout,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", "error", err)
		}
	}()

	logger.Info("server starting", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func buildProvider(cfg *config.Config) *provider.Provider {
	structured := fetch.NewStructuredFetcher(fetch.StructuredOptions{
		Timeout:    cfg.Fetch.StructuredTimeout,
		UserAgents: cfg.Fetch.UserAgents,
	})
	rendering := browser.NewRenderingFetcher(&browser.Options{
		Headless:       cfg.Browser.Headless,
		Timeout:        cfg.Browser.Timeout,
		UserAgents:     cfg.Fetch.UserAgents,
		ViewportWidth:  cfg.Browser.ViewportWidth,
		ViewportHeight: cfg.Browser.ViewportHeight,
		AcceptLanguage: cfg.Browser.AcceptLanguage,
		TimezoneID:     cfg.Browser.TimezoneID,
		Locale:         cfg.Browser.Locale,
	}, cfg.Fetch.MaxRetries)
	hardened := stealth.NewFetcher(cfg.Fetch.StealthTimeout, cfg.Fetch.MaxRetries)

	finder := alternatives.NewFinder(alternatives.Options{
		Searcher:         structured,
		Budget:           cfg.Alternatives.Budget,
		PerSearchTimeout: cfg.Alternatives.PerSearchTimeout,
		MaxResults:       cfg.Alternatives.MaxResults,
	})

	return provider.New(provider.Options{
		Tiers:      []fetch.Fetcher{structured, rendering, hardened},
		LastResort: structured,
		Cache:      cache.New(cfg.Cache.TTL),
		Limiter:    cache.NewRateLimiter(cfg.RateLimit.Window),
		Ranker:     ranker.New(fetch.DefaultTierOrder),
		Finder:     finder,
		TierLimits: map[string]int{
			fetch.TierStructured: cfg.RateLimit.StructuredLimit,
			fetch.TierRendering:  cfg.RateLimit.RenderingLimit,
			fetch.TierStealth:    cfg.RateLimit.StealthLimit,
		},
		TierTimeouts: map[string]time.Duration{
			fetch.TierStructured: cfg.Fetch.StructuredTimeout,
			fetch.TierRendering:  cfg.Fetch.RenderingTimeout,
			fetch.TierStealth:    cfg.Fetch.StealthTimeout,
		},
	})
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
