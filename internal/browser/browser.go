// Package browser wraps playwright-go for the rendering fetch tier. A
// session is launched per fetch call and never reused, so no state leaks
// between lookups and blocked sessions cannot poison later ones.
package browser

import (
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/playwright-community/playwright-go"
)

type Options struct {
	Headless       bool
	Timeout        time.Duration
	UserAgents     []string
	ViewportWidth  int
	ViewportHeight int
	AcceptLanguage string
	TimezoneID     string
	Locale         string
	ExtraHeaders   map[string]string
}

func DefaultOptions() *Options {
	return &Options{
		Headless:       true,
		Timeout:        45 * time.Second,
		ViewportWidth:  1920,
		ViewportHeight: 1080,
		AcceptLanguage: "en-US,en;q=0.9",
		TimezoneID:     "America/New_York",
		Locale:         "en-US",
		ExtraHeaders: map[string]string{
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
			"Accept-Encoding": "gzip, deflate, br",
			"DNT":             "1",
		},
	}
}

// Session owns one isolated browser context. Close must run on every exit
// path; leaking sessions under sustained load is a correctness bug.
type Session struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	timeout time.Duration
	logger  *slog.Logger
}

func NewSession(opts *Options) (*Session, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	userAgent := pickUserAgent(opts.UserAgents)

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: &opts.Headless,
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--disable-dev-shm-usage",
			"--no-sandbox",
			"--disable-setuid-sandbox",
			"--user-agent=" + userAgent,
		},
	}

	b, err := pw.Chromium.Launch(launchOpts)
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	contextOpts := playwright.BrowserNewContextOptions{
		UserAgent:         &userAgent,
		AcceptDownloads:   playwright.Bool(false),
		JavaScriptEnabled: playwright.Bool(true),
		Locale:            &opts.Locale,
		TimezoneId:        &opts.TimezoneID,
		Viewport: &playwright.Size{
			Width:  opts.ViewportWidth,
			Height: opts.ViewportHeight,
		},
		ExtraHttpHeaders: opts.ExtraHeaders,
	}

	context, err := b.NewContext(contextOpts)
	if err != nil {
		b.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	return &Session{
		pw:      pw,
		browser: b,
		context: context,
		timeout: opts.Timeout,
		logger:  slog.Default().With("component", "browser"),
	}, nil
}

func pickUserAgent(pool []string) string {
	if len(pool) == 0 {
		return "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	}
	return pool[rand.Intn(len(pool))]
}

func (s *Session) NewPage() (playwright.Page, error) {
	page, err := s.context.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	page.SetDefaultTimeout(float64(s.timeout.Milliseconds()))
	return page, nil
}

// NavigateWithRetry retries transient navigation failures with a short
// growing backoff before giving up.
func (s *Session) NavigateWithRetry(page playwright.Page, url string, maxRetries int) error {
	var lastErr error
	for i := 0; i < maxRetries; i++ {
		if i > 0 {
			s.logger.Info("retrying navigation", "attempt", i+1, "url", url)
			time.Sleep(time.Duration(i+1) * time.Second)
		}

		_, err := page.Goto(url, playwright.PageGotoOptions{
			WaitUntil: playwright.WaitUntilStateDomcontentloaded,
			Timeout:   playwright.Float(float64(s.timeout.Milliseconds())),
		})
		if err == nil {
			return nil
		}
		lastErr = err
		s.logger.Warn("navigation failed", "error", err, "attempt", i+1)
	}
	return fmt.Errorf("failed after %d retries: %w", maxRetries, lastErr)
}

func (s *Session) Close() error {
	var errs []error

	if s.context != nil {
		if err := s.context.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close context: %w", err))
		}
	}
	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close browser: %w", err))
		}
	}
	if s.pw != nil {
		if err := s.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during close: %v", errs)
	}
	return nil
}
