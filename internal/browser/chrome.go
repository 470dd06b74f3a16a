package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"

	"github.com/jonesrussell/north-cloud/event-sync/internal/domain"
)

const (
	scrollStep  = 800
	scrollPause = 500 * time.Millisecond
)

// ChromeLauncher starts headless Chrome sessions through the DevTools protocol.
func ChromeLauncher(opts Options) Launcher {
	return func(ctx context.Context) (Session, error) {
		allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.UserAgent(opts.UserAgent),
			chromedp.Flag("headless", !opts.Headful),
			chromedp.NoSandbox,
			chromedp.DisableGPU,
			chromedp.Flag("disable-dev-shm-usage", true),
		)
		if opts.ExecPath != "" {
			allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
		}

		// The browser outlives individual requests; it is bound to the session, not ctx.
		allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.WithoutCancel(ctx), allocOpts...)
		browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

		if err := chromedp.Run(browserCtx); err != nil {
			cancelBrowser()
			cancelAlloc()
			return nil, fmt.Errorf("start chrome: %w", err)
		}

		return &ChromeSession{ctx: browserCtx, actionTimeout: opts.actionTimeout(), cancel: func() {
			cancelBrowser()
			cancelAlloc()
		}}, nil
	}
}

// ChromeSession is one running Chrome process.
type ChromeSession struct {
	ctx           context.Context
	cancel        context.CancelFunc
	actionTimeout time.Duration

	mu     sync.Mutex
	closed bool
}

// NewPage opens a new tab. The tab lives until the page or the session is closed.
func (s *ChromeSession) NewPage(_ context.Context) (Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSessionClosed
	}

	// The first Run attaches the tab and ties its event loop to the context it is given,
	// so it must not carry a per-action timeout.
	tabCtx, cancel := chromedp.NewContext(s.ctx)
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("open tab: %w", err)
	}

	return &chromePage{ctx: tabCtx, cancel: cancel, actionTimeout: s.actionTimeout}, nil
}

// Close shuts the browser down. It is safe to call more than once.
func (s *ChromeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	err := chromedp.Cancel(s.ctx)
	s.cancel()
	if err != nil {
		return fmt.Errorf("close chrome: %w", err)
	}
	return nil
}

type chromePage struct {
	ctx           context.Context
	cancel        context.CancelFunc
	actionTimeout time.Duration
}

// run executes actions on the tab, bounded by timeout and by the caller's ctx.
// A zero timeout selects the session's action timeout.
func (p *chromePage) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if timeout <= 0 {
		timeout = p.actionTimeout
	}
	runCtx, cancel := withTimeout(p.ctx, timeout)
	defer cancel()

	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

func (p *chromePage) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	if err := p.run(ctx, timeout, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

func (p *chromePage) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error {
	if err := p.run(ctx, timeout, chromedp.WaitVisible(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("wait for %q: %w", selector, err)
	}
	return nil
}

func (p *chromePage) Scroll(ctx context.Context, maxDistance int) error {
	var lastY float64 = -1
	for scrolled := 0; scrolled < maxDistance; scrolled += scrollStep {
		var y float64
		err := p.run(ctx, 0,
			chromedp.Evaluate(fmt.Sprintf("window.scrollBy(0, %d); window.scrollY", scrollStep), &y),
			chromedp.Sleep(scrollPause),
		)
		if err != nil {
			return fmt.Errorf("scroll: %w", err)
		}
		if y == lastY {
			return nil
		}
		lastY = y
	}
	return nil
}

func (p *chromePage) Evaluate(ctx context.Context, fn Extractor) ([]domain.RawCandidate, error) {
	var html string
	if err := p.run(ctx, 0, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return nil, fmt.Errorf("read page html: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse page html: %w", err)
	}

	return fn(doc), nil
}

func (p *chromePage) Close() error {
	p.cancel()
	return nil
}
