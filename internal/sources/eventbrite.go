package sources

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonesrussell/north-cloud/event-sync/internal/browser"
	"github.com/jonesrussell/north-cloud/event-sync/internal/domain"
	"github.com/jonesrussell/north-cloud/event-sync/internal/logger"
)

const (
	eventbriteBase      = "https://www.eventbrite.com"
	eventbriteMaxScroll = 2000
)

var eventbriteCities = map[string]string{
	"mumbai":    "mumbai",
	"delhi":     "new-delhi",
	"bangalore": "bengaluru",
	"hyderabad": "hyderabad",
	"chennai":   "chennai",
	"kolkata":   "kolkata",
	"pune":      "pune",
	"gurugram":  "gurugram",
	"noida":     "noida",
}

var (
	eventbriteTitle    = Text(`h2, h3, [data-testid="event-card-title"]`)
	eventbriteLink     = Attr(`a.event-card-link, a[href*="/e/"]`, "href")
	eventbriteDate     = Text(`[data-testid="event-card-date"], .Typography_body-md__4be26`)
	eventbriteLocation = FirstOf(Text(`[data-testid="event-card-location"]`), Const("Eventbrite Venue"))
	eventbritePrice    = Text(`[data-testid="event-card-price"]`)
	eventbriteImage    = Attr("img", "src")
)

// Eventbrite combines the structured API, when configured, with the rendered search page.
type Eventbrite struct {
	opts Options
	api  *EventbriteAPI
}

// NewEventbrite creates the Eventbrite adapter. api may be nil.
func NewEventbrite(opts Options, api *EventbriteAPI) *Eventbrite {
	return &Eventbrite{opts: opts.withDefaults(), api: api}
}

// Name returns the source name.
func (e *Eventbrite) Name() string { return SourceEventbrite }

// Fetch returns API records followed by rendered page records. A failing API never blocks
// the page path.
func (e *Eventbrite) Fetch(ctx context.Context, city string, session browser.Session) []domain.RawCandidate {
	log := e.opts.Log.With(logger.String("source", SourceEventbrite), logger.String("city", city))

	slug, ok := eventbriteCities[city]
	if !ok {
		log.Debug("Skipping source", logger.Error(ErrUnsupportedCity))
		return nil
	}

	var out []domain.RawCandidate

	if e.api != nil {
		records, err := e.api.Search(ctx, city)
		switch {
		case errors.Is(err, ErrMissingToken):
			log.Debug("Eventbrite API not configured")
		case err != nil:
			log.Warn("Eventbrite API request failed", logger.Error(err))
		default:
			out = append(out, records...)
		}
	}

	url := fmt.Sprintf("%s/d/india--%s/events/", eventbriteBase, slug)
	page, err := render(ctx, session, e.opts, target{
		url:       url,
		waitFor:   "section.event-card-details, .event-card, article",
		maxScroll: eventbriteMaxScroll,
		extract:   e.extract(city),
	})
	if err != nil {
		log.Warn("Failed to render listing page", logger.String("url", url), logger.Error(err))
		return out
	}

	for i := range page {
		page[i].URL = e.api.Affiliate(page[i].URL)
	}
	return append(out, page...)
}

func (e *Eventbrite) extract(city string) browser.Extractor {
	now := e.opts.Now()

	return func(doc *goquery.Document) []domain.RawCandidate {
		var out []domain.RawCandidate
		seen := make(map[string]bool)

		cards := doc.Find(`section[data-testid="event-card"], article.ids-event-card, div.search-event-card-wrapper`)
		cards.Each(func(_ int, card *goquery.Selection) {
			title := eventbriteTitle(card)
			href := absoluteURL(eventbriteBase, eventbriteLink(card))
			if title == "" || href == "" || seen[href] {
				return
			}
			seen[href] = true

			dateText := eventbriteDate(card)
			venue := strings.TrimSpace(strings.Split(eventbriteLocation(card), "•")[0])
			priceText := eventbritePrice(card)

			image := eventbriteImage(card)
			if strings.Contains(strings.ToLower(image), "placeholder") {
				image = ""
			}

			c := domain.RawCandidate{
				Title:       title,
				Description: fmt.Sprintf("%s at %s", dateText, venue),
				Category:    "Events",
				City:        city,
				Venue:       venue,
				Address:     city,
				Time:        ParseTime(dateText),
				ImageURL:    image,
				IsFree:      IsFree(priceText),
				URL:         href,
				Source:      SourceEventbrite,
				SourceID:    eventbriteID(href),
			}
			c.Date, c.DateKnown = ParseDate(dateText, now)
			if !c.IsFree {
				if price, ok := ParsePrice(priceText); ok {
					c.PriceMin, c.PriceMax = price, price
				}
			}

			out = append(out, c)
		})
		return out
	}
}

// eventbriteID returns the numeric id Eventbrite appends to event slugs.
func eventbriteID(href string) string {
	seg := lastSegment(href)
	if i := strings.LastIndex(seg, "-"); i >= 0 {
		return seg[i+1:]
	}
	return seg
}
