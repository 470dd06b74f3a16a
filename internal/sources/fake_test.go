package sources_test

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonesrussell/north-cloud/event-sync/internal/browser"
	"github.com/jonesrussell/north-cloud/event-sync/internal/domain"
)

// fakeSession serves fixture HTML keyed by URL.
type fakeSession struct {
	pages   map[string]string
	visited []string
	opened  int
	closed  int
}

func (s *fakeSession) NewPage(context.Context) (browser.Page, error) {
	s.opened++
	return &fakePage{session: s}, nil
}

func (s *fakeSession) Close() error { return nil }

type fakePage struct {
	session *fakeSession
	html    string
}

func (p *fakePage) Navigate(_ context.Context, url string, _ time.Duration) error {
	p.session.visited = append(p.session.visited, url)
	html, ok := p.session.pages[url]
	if !ok {
		return errors.New("403 forbidden")
	}
	p.html = html
	return nil
}

func (p *fakePage) WaitForSelector(context.Context, string, time.Duration) error { return nil }

func (p *fakePage) Scroll(context.Context, int) error { return nil }

func (p *fakePage) Evaluate(_ context.Context, fn browser.Extractor) ([]domain.RawCandidate, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(p.html))
	if err != nil {
		return nil, err
	}
	return fn(doc), nil
}

func (p *fakePage) Close() error {
	p.session.closed++
	return nil
}

// fixedNow is a Tuesday.
var fixedNow = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

func nowFunc() time.Time { return fixedNow }

// stallingSession serves pages that load but hang on scroll and extraction until their
// context ends.
type stallingSession struct {
	opened int
	closed int
}

func (s *stallingSession) NewPage(context.Context) (browser.Page, error) {
	s.opened++
	return &stallingPage{session: s}, nil
}

func (s *stallingSession) Close() error { return nil }

type stallingPage struct {
	session *stallingSession
}

func (p *stallingPage) Navigate(context.Context, string, time.Duration) error { return nil }

func (p *stallingPage) WaitForSelector(context.Context, string, time.Duration) error { return nil }

func (p *stallingPage) Scroll(ctx context.Context, _ int) error {
	<-ctx.Done()
	return ctx.Err()
}

func (p *stallingPage) Evaluate(ctx context.Context, _ browser.Extractor) ([]domain.RawCandidate, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (p *stallingPage) Close() error {
	p.session.closed++
	return nil
}

// attachingSession mimics a tab whose lifetime follows the context it was opened with:
// once that context ends, every later page action fails.
type attachingSession struct {
	fakeSession
}

func (s *attachingSession) NewPage(ctx context.Context) (browser.Page, error) {
	page, err := s.fakeSession.NewPage(ctx)
	if err != nil {
		return nil, err
	}
	return &attachedPage{Page: page, tab: ctx}, nil
}

type attachedPage struct {
	browser.Page
	tab context.Context
}

var errTabDetached = errors.New("tab detached")

func (p *attachedPage) alive() error {
	if p.tab.Err() != nil {
		return errTabDetached
	}
	return nil
}

func (p *attachedPage) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	if err := p.alive(); err != nil {
		return err
	}
	return p.Page.Navigate(ctx, url, timeout)
}

func (p *attachedPage) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error {
	if err := p.alive(); err != nil {
		return err
	}
	return p.Page.WaitForSelector(ctx, selector, timeout)
}

func (p *attachedPage) Scroll(ctx context.Context, maxDistance int) error {
	if err := p.alive(); err != nil {
		return err
	}
	return p.Page.Scroll(ctx, maxDistance)
}

func (p *attachedPage) Evaluate(ctx context.Context, fn browser.Extractor) ([]domain.RawCandidate, error) {
	if err := p.alive(); err != nil {
		return nil, err
	}
	return p.Page.Evaluate(ctx, fn)
}
