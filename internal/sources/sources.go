// Package sources extracts raw event candidates from third-party listing sites.
package sources

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonesrussell/north-cloud/event-sync/internal/browser"
	"github.com/jonesrussell/north-cloud/event-sync/internal/domain"
	"github.com/jonesrussell/north-cloud/event-sync/internal/logger"
)

// Source names.
const (
	SourceBookMyShow = "bookmyshow"
	SourceDistrict   = "district"
	SourceEventbrite = "eventbrite"
	SourceTenTimes   = "tentimes"
)

// ErrUnsupportedCity is logged when a source has no listing page for a city.
var ErrUnsupportedCity = errors.New("city not supported by source")

const (
	defaultNavTimeout  = 60 * time.Second
	defaultWaitTimeout = 15 * time.Second
)

// Adapter fetches the listings of one source for one city. Fetch never fails: problems are
// logged and yield an empty result.
type Adapter interface {
	Name() string
	Fetch(ctx context.Context, city string, session browser.Session) []domain.RawCandidate
}

// Options are shared by all adapters.
type Options struct {
	NavTimeout  time.Duration
	WaitTimeout time.Duration
	// Now anchors relative date parsing. Defaults to time.Now.
	Now func() time.Time
	Log logger.Logger
}

func (o Options) withDefaults() Options {
	if o.NavTimeout <= 0 {
		o.NavTimeout = defaultNavTimeout
	}
	if o.WaitTimeout <= 0 {
		o.WaitTimeout = defaultWaitTimeout
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Log == nil {
		o.Log = logger.NewNop()
	}
	return o
}

// All lists every source name in merge order.
func All() []string {
	return []string{SourceBookMyShow, SourceDistrict, SourceEventbrite, SourceTenTimes}
}

// Build returns the adapters for names in merge order. An empty list selects all sources.
// api may be nil, in which case Eventbrite only renders pages.
func Build(names []string, opts Options, api *EventbriteAPI) ([]Adapter, error) {
	if len(names) == 0 {
		names = All()
	}

	enabled := make(map[string]bool, len(names))
	for _, n := range names {
		switch n {
		case SourceBookMyShow, SourceDistrict, SourceEventbrite, SourceTenTimes:
			enabled[n] = true
		default:
			return nil, fmt.Errorf("unknown source %q", n)
		}
	}

	var adapters []Adapter
	if enabled[SourceBookMyShow] {
		adapters = append(adapters, NewBookMyShow(opts))
	}
	if enabled[SourceDistrict] {
		adapters = append(adapters, NewDistrict(opts))
	}
	if enabled[SourceEventbrite] {
		adapters = append(adapters, NewEventbrite(opts, api))
	}
	if enabled[SourceTenTimes] {
		adapters = append(adapters, NewTenTimes(opts))
	}
	return adapters, nil
}

// target describes one listing page to render.
type target struct {
	url       string
	waitFor   string
	maxScroll int
	extract   browser.Extractor
}

// render opens a page, loads t and runs its extractor. A missing content selector is not
// fatal: extraction still runs on whatever rendered. Every step is bounded by a timeout;
// the page itself is opened on ctx and outlives the individual steps.
func render(ctx context.Context, session browser.Session, opts Options, t target) ([]domain.RawCandidate, error) {
	page, err := session.NewPage(ctx)
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	defer func() { _ = page.Close() }()

	if navErr := page.Navigate(ctx, t.url, opts.NavTimeout); navErr != nil {
		return nil, navErr
	}

	if t.waitFor != "" {
		if waitErr := page.WaitForSelector(ctx, t.waitFor, opts.WaitTimeout); waitErr != nil {
			opts.Log.Debug("Content selector not found",
				logger.String("url", t.url),
				logger.Error(waitErr),
			)
		}
	}

	if t.maxScroll > 0 {
		scrollCtx, cancel := context.WithTimeout(ctx, opts.NavTimeout)
		scrollErr := page.Scroll(scrollCtx, t.maxScroll)
		cancel()
		if scrollErr != nil {
			opts.Log.Debug("Scroll failed", logger.String("url", t.url), logger.Error(scrollErr))
		}
	}

	evalCtx, cancel := context.WithTimeout(ctx, opts.NavTimeout)
	defer cancel()

	return page.Evaluate(evalCtx, t.extract)
}
