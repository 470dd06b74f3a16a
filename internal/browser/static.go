package browser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"github.com/jonesrussell/north-cloud/event-sync/internal/domain"
)

var errNotNavigated = errors.New("page has not been navigated")

// StaticLauncher returns sessions that fetch raw HTML without running scripts.
// Pages that render their listings client-side come back empty.
func StaticLauncher(opts Options) Launcher {
	return func(_ context.Context) (Session, error) {
		return &StaticSession{userAgent: opts.UserAgent}, nil
	}
}

// StaticSession fetches pages with colly.
type StaticSession struct {
	userAgent string
	// Transport overrides the HTTP transport; used by tests.
	Transport http.RoundTripper
	closed    bool
}

// NewPage returns a page backed by a fresh collector.
func (s *StaticSession) NewPage(_ context.Context) (Page, error) {
	if s.closed {
		return nil, ErrSessionClosed
	}
	return &staticPage{session: s}, nil
}

// Close marks the session released.
func (s *StaticSession) Close() error {
	s.closed = true
	return nil
}

type staticPage struct {
	session *StaticSession
	doc     *goquery.Document
}

func (p *staticPage) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	opts := []colly.CollectorOption{
		colly.StdlibContext(ctx),
		colly.AllowURLRevisit(),
	}
	if p.session.userAgent != "" {
		opts = append(opts, colly.UserAgent(p.session.userAgent))
	}

	c := colly.NewCollector(opts...)
	if timeout > 0 {
		c.SetRequestTimeout(timeout)
	}
	if p.session.Transport != nil {
		c.WithTransport(p.session.Transport)
	}

	var body []byte
	c.OnResponse(func(r *colly.Response) {
		body = r.Body
	})

	if err := c.Visit(url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("parse %s: %w", url, err)
	}
	p.doc = doc
	return nil
}

// WaitForSelector checks the fetched document once; there is nothing to wait for.
func (p *staticPage) WaitForSelector(_ context.Context, selector string, _ time.Duration) error {
	if p.doc == nil {
		return errNotNavigated
	}
	if p.doc.Find(selector).Length() == 0 {
		return fmt.Errorf("selector %q not found", selector)
	}
	return nil
}

func (p *staticPage) Scroll(context.Context, int) error {
	return nil
}

func (p *staticPage) Evaluate(_ context.Context, fn Extractor) ([]domain.RawCandidate, error) {
	if p.doc == nil {
		return nil, errNotNavigated
	}
	return fn(p.doc), nil
}

func (p *staticPage) Close() error {
	p.doc = nil
	return nil
}
