// Package browser provides scoped page rendering sessions for source adapters.
package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonesrussell/north-cloud/event-sync/internal/domain"
	"github.com/jonesrussell/north-cloud/event-sync/internal/logger"
)

// ErrSessionClosed is returned when a page is requested from a released session.
var ErrSessionClosed = errors.New("browser session closed")

// Extractor turns a rendered document into raw candidates.
type Extractor func(doc *goquery.Document) []domain.RawCandidate

// Page is one open tab.
type Page interface {
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error
	// Scroll moves down the page in steps until maxDistance pixels or the end of the page.
	Scroll(ctx context.Context, maxDistance int) error
	Evaluate(ctx context.Context, fn Extractor) ([]domain.RawCandidate, error)
	Close() error
}

// Session is a browser instance shared by the adapters of one city.
type Session interface {
	NewPage(ctx context.Context) (Page, error)
	Close() error
}

// Launcher starts a new session.
type Launcher func(ctx context.Context) (Session, error)

// Pool hands out sessions with guaranteed release.
type Pool struct {
	launch Launcher
	log    logger.Logger
}

// NewPool creates a pool backed by launch.
func NewPool(launch Launcher, log logger.Logger) *Pool {
	return &Pool{launch: launch, log: log}
}

// With launches a session, runs fn with it and releases the session when fn returns,
// errors or panics. A panic is propagated after the release.
func (p *Pool) With(ctx context.Context, fn func(Session) error) error {
	session, err := p.launch(ctx)
	if err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}

	defer func() {
		if closeErr := session.Close(); closeErr != nil {
			p.log.Warn("Failed to close browser session", logger.Error(closeErr))
		}
	}()

	return fn(session)
}

// NewLauncher returns the launcher for the named driver.
func NewLauncher(driver string, opts Options) (Launcher, error) {
	switch driver {
	case DriverChrome:
		return ChromeLauncher(opts), nil
	case DriverStatic:
		return StaticLauncher(opts), nil
	default:
		return nil, fmt.Errorf("unknown browser driver %q", driver)
	}
}

// Drivers.
const (
	DriverChrome = "chrome"
	DriverStatic = "static"
)

// Options configure a session.
type Options struct {
	UserAgent string
	Headful   bool
	ExecPath  string
	// ActionTimeout bounds page actions that take no explicit timeout, such as scrolling
	// and reading the rendered HTML.
	ActionTimeout time.Duration
}

const defaultActionTimeout = 60 * time.Second

func (o Options) actionTimeout() time.Duration {
	if o.ActionTimeout <= 0 {
		return defaultActionTimeout
	}
	return o.ActionTimeout
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
