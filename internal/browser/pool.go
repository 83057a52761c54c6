// Package browser implements the bounded browser-context pool (spec
// component C2) that dynamic/faculty fetcher strategies render through. It
// adapts theRebelliousNerd-codenerd's SessionManager lifecycle pattern
// (lazy launch, incognito-per-session, explicit shutdown) into a single
// render-and-release pool rather than a tracked multi-session manager,
// since the crawler only ever needs one short-lived context per fetch.
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// Config controls the pool's launch options and default timeouts.
type Config struct {
	// MaxContexts bounds concurrently open incognito browser contexts.
	// Default: 3 (PLAYWRIGHT_MAX_CONTEXTS in spec §4.2).
	MaxContexts int

	// Headless controls whether the underlying Chrome instance runs headless.
	Headless bool

	// WaitTimeout bounds how long a wait_condition may take to satisfy.
	// Default: 15s.
	WaitTimeout time.Duration

	// DetailTimeout bounds each per-item detail render inside
	// RenderAndFetchDetails. Default: 10s.
	DetailTimeout time.Duration

	// DebuggerURL, when set, connects to an already-running Chrome instead
	// of launching one.
	DebuggerURL string
}

// DefaultConfig mirrors spec §4.2's stated defaults.
func DefaultConfig() Config {
	return Config{
		MaxContexts:   3,
		Headless:      true,
		WaitTimeout:   15 * time.Second,
		DetailTimeout: 10 * time.Second,
	}
}

// Pool owns a single process-wide Chrome instance, started lazily on first
// use, and a semaphore bounding concurrently open incognito contexts.
type Pool struct {
	cfg Config

	mu      sync.Mutex
	browser *rod.Browser

	sem chan struct{}
}

// New constructs a Pool. The underlying browser process is not launched
// until the first Render call.
func New(cfg Config) *Pool {
	if cfg.MaxContexts <= 0 {
		cfg.MaxContexts = 3
	}
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = 15 * time.Second
	}
	if cfg.DetailTimeout <= 0 {
		cfg.DetailTimeout = 10 * time.Second
	}
	return &Pool{
		cfg: cfg,
		sem: make(chan struct{}, cfg.MaxContexts),
	}
}

func (p *Pool) ensureStarted() (*rod.Browser, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.browser != nil {
		return p.browser, nil
	}

	controlURL := p.cfg.DebuggerURL
	if controlURL == "" {
		u, err := launcher.New().Headless(p.cfg.Headless).Launch()
		if err != nil {
			return nil, fmt.Errorf("launch chrome: %w", err)
		}
		controlURL = u
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}
	p.browser = browser
	return browser, nil
}

// acquire blocks until a context slot is free, returning a release func
// that MUST be called on every exit path.
func (p *Pool) acquire(ctx context.Context) (func(), error) {
	select {
	case p.sem <- struct{}{}:
		return func() { <-p.sem }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Render opens an incognito context, navigates to url, waits for
// waitCondition, and returns the resulting HTML.
func (p *Pool) Render(ctx context.Context, url, waitCondition string, timeout time.Duration) (string, error) {
	release, err := p.acquire(ctx)
	if err != nil {
		return "", err
	}
	defer release()

	browser, err := p.ensureStarted()
	if err != nil {
		return "", err
	}

	incognito, err := browser.Incognito()
	if err != nil {
		return "", fmt.Errorf("incognito context: %w", err)
	}
	defer func() { _ = incognito.Close() }()

	if timeout <= 0 {
		timeout = p.cfg.WaitTimeout
	}

	page, err := incognito.Page(proto.TargetCreateTarget{URL: url})
	if err != nil {
		return "", fmt.Errorf("open page: %w", err)
	}
	defer func() { _ = page.Close() }()

	pctx := page.Context(ctx).Timeout(timeout)
	if err := pctx.Navigate(url); err != nil {
		return "", fmt.Errorf("navigate: %w", err)
	}
	if err := waitFor(pctx, waitCondition); err != nil {
		return "", fmt.Errorf("wait condition %q: %w", waitCondition, err)
	}

	html, err := pctx.HTML()
	if err != nil {
		return "", fmt.Errorf("extract html: %w", err)
	}
	return html, nil
}

// RenderAndFetchDetails renders the list page, then visits each item URL
// reusing the same incognito context so cookies/session state carry over
// (spec §4.2). detailFetcher, when non-nil, is used instead of the shared
// context for each item URL — the detail_via_plain_http escape hatch,
// wired by the caller to internal/httpclient when a source sets it.
func (p *Pool) RenderAndFetchDetails(
	ctx context.Context,
	listURL, waitCondition string,
	itemURLs []string,
	detailTimeout time.Duration,
	detailFetcher func(ctx context.Context, url string) (string, error),
) (listHTML string, details map[string]string, err error) {
	if detailFetcher != nil {
		listHTML, err = p.Render(ctx, listURL, waitCondition, 0)
		if err != nil {
			return "", nil, err
		}
		details = make(map[string]string, len(itemURLs))
		for _, u := range itemURLs {
			html, ferr := detailFetcher(ctx, u)
			if ferr != nil {
				continue // per-item failures degrade gracefully (spec §4.5)
			}
			details[u] = html
		}
		return listHTML, details, nil
	}

	release, err := p.acquire(ctx)
	if err != nil {
		return "", nil, err
	}
	defer release()

	browser, err := p.ensureStarted()
	if err != nil {
		return "", nil, err
	}

	incognito, err := browser.Incognito()
	if err != nil {
		return "", nil, fmt.Errorf("incognito context: %w", err)
	}
	defer func() { _ = incognito.Close() }()

	if detailTimeout <= 0 {
		detailTimeout = p.cfg.DetailTimeout
	}

	page, err := incognito.Page(proto.TargetCreateTarget{URL: listURL})
	if err != nil {
		return "", nil, fmt.Errorf("open list page: %w", err)
	}
	defer func() { _ = page.Close() }()

	pctx := page.Context(ctx).Timeout(p.cfg.WaitTimeout)
	if err := pctx.Navigate(listURL); err != nil {
		return "", nil, fmt.Errorf("navigate list page: %w", err)
	}
	if err := waitFor(pctx, waitCondition); err != nil {
		return "", nil, fmt.Errorf("wait condition %q: %w", waitCondition, err)
	}
	listHTML, err = pctx.HTML()
	if err != nil {
		return "", nil, fmt.Errorf("extract list html: %w", err)
	}

	details = make(map[string]string, len(itemURLs))
	for _, u := range itemURLs {
		dctx := page.Context(ctx).Timeout(detailTimeout)
		if err := dctx.Navigate(u); err != nil {
			continue
		}
		html, err := dctx.HTML()
		if err != nil {
			continue
		}
		details[u] = html
	}

	return listHTML, details, nil
}

// waitFor honors the two forms spec §4.2 allows: the symbolic states
// "load"/"networkidle" (already implied by Navigate + rod's default
// stabilization) or a CSS selector the page must match.
func waitFor(page *rod.Page, condition string) error {
	condition = strings.TrimSpace(condition)
	switch condition {
	case "", "load":
		return page.WaitLoad()
	case "networkidle":
		return page.WaitIdle(5 * time.Second)
	default:
		el, err := page.Element(condition)
		if err != nil {
			return err
		}
		return el.WaitVisible()
	}
}

// Close shuts down the underlying browser instance. Close errors are
// logged by the caller but never mask the primary shutdown, per spec §4.2.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.browser == nil {
		return nil
	}
	err := p.browser.Close()
	p.browser = nil
	if err != nil && errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
