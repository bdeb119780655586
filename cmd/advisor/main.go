// Command advisor evaluates product URLs from the command line and prints
// the full result bundle as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/rahulsinghal1904/cart-advisor-agent/internal/alternatives"
	"github.com/rahulsinghal1904/cart-advisor-agent/internal/browser"
	"github.com/rahulsinghal1904/cart-advisor-agent/internal/cache"
	"github.com/rahulsinghal1904/cart-advisor-agent/internal/config"
	"github.com/rahulsinghal1904/cart-advisor-agent/internal/fetch"
	"github.com/rahulsinghal1904/cart-advisor-agent/internal/provider"
	"github.com/rahulsinghal1904/cart-advisor-agent/internal/ranker"
	"github.com/rahulsinghal1904/cart-advisor-agent/internal/stealth"
)

func main() {
	_ = godotenv.Load()

	timeout := flag.Duration("timeout", 5*time.Minute, "overall evaluation deadline")
	skipAlternatives := flag.Bool("no-alternatives", false, "skip the alternatives search")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: advisor [flags] <product-url> [more-urls...]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	p := buildProvider(cfg, *skipAlternatives)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := p.Evaluate(ctx, strings.Join(flag.Args(), " "))
	if err != nil {
		fmt.Fprintf(os.Stderr, "evaluate: %v\n", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		fmt.Fprintf(os.Stderr, "encode: %v\n", err)
		os.Exit(1)
	}
}

func buildProvider(cfg *config.Config, skipAlternatives bool) *provider.Provider {
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

	var finder provider.AlternativeFinder
	if !skipAlternatives {
		finder = alternatives.NewFinder(alternatives.Options{
			Searcher:         structured,
			Budget:           cfg.Alternatives.Budget,
			PerSearchTimeout: cfg.Alternatives.PerSearchTimeout,
			MaxResults:       cfg.Alternatives.MaxResults,
		})
	}

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
