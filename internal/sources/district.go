package sources

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonesrussell/north-cloud/event-sync/internal/browser"
	"github.com/jonesrussell/north-cloud/event-sync/internal/domain"
	"github.com/jonesrussell/north-cloud/event-sync/internal/logger"
)

const districtBase = "https://www.district.in"

var districtCities = map[string]string{
	"mumbai":    "mumbai",
	"delhi":     "delhi-ncr",
	"bangalore": "bengaluru",
	"hyderabad": "hyderabad",
	"chennai":   "chennai",
	"kolkata":   "kolkata",
	"pune":      "pune",
	"gurugram":  "delhi-ncr",
	"noida":     "delhi-ncr",
}

var (
	districtTitle = Text(`h1, h2, h3, h4, [class*="title"], [class*="name"]`)
	districtPrice = Text(`[class*="price"], [class*="Price"]`)
	districtDate  = Text(`[class*="date"], [class*="Date"]`)
	districtVenue = FirstOf(Text(`[class*="venue"], [class*="Venue"], [class*="location"]`), Const("District Venue"))
	districtImage = FirstOf(Attr("img", "src"), Attr("img", "data-src"))
)

// District renders the district.in (formerly Insider) events page.
type District struct {
	opts Options
}

// NewDistrict creates the District adapter.
func NewDistrict(opts Options) *District {
	return &District{opts: opts.withDefaults()}
}

// Name returns the source name.
func (d *District) Name() string { return SourceDistrict }

// Fetch renders the city events page.
func (d *District) Fetch(ctx context.Context, city string, session browser.Session) []domain.RawCandidate {
	log := d.opts.Log.With(logger.String("source", SourceDistrict), logger.String("city", city))

	slug, ok := districtCities[city]
	if !ok {
		log.Debug("Skipping source", logger.Error(ErrUnsupportedCity))
		return nil
	}

	url := fmt.Sprintf("%s/%s/events", districtBase, slug)
	out, err := render(ctx, session, d.opts, target{
		url:     url,
		waitFor: `a[href*="/event/"]`,
		extract: d.extract(city),
	})
	if err != nil {
		log.Warn("Failed to render listing page", logger.String("url", url), logger.Error(err))
		return nil
	}
	return out
}

func (d *District) extract(city string) browser.Extractor {
	now := d.opts.Now()

	return func(doc *goquery.Document) []domain.RawCandidate {
		var out []domain.RawCandidate
		seen := make(map[string]bool)

		doc.Find(`a[href*="/event/"]`).Each(func(_ int, link *goquery.Selection) {
			href, _ := link.Attr("href")
			href = absoluteURL(districtBase, href)
			if href == "" || seen[href] || strings.Contains(href, "/all-events") {
				return
			}

			card := link.Closest("div")
			if card.Length() == 0 {
				card = link
			}

			title := FirstOf(districtTitle, Line(0))(card)
			if title == "" {
				return
			}
			seen[href] = true

			dateText := districtDate(card)
			priceText := districtPrice(card)
			venue := districtVenue(card)

			c := domain.RawCandidate{
				Title:       title,
				Description: districtDescription(dateText, venue),
				Category:    "Events",
				City:        city,
				Venue:       venue,
				Address:     city,
				Time:        ParseTime(dateText),
				ImageURL:    absoluteURL(districtBase, districtImage(card)),
				IsFree:      IsFree(priceText),
				URL:         href,
				Source:      SourceDistrict,
				SourceID:    lastSegment(href),
			}
			c.Date, c.DateKnown = ParseDate(dateText, now)

			price, ok := ParsePrice(priceText)
			if !ok {
				price = digitsPrice(priceText)
			}
			c.PriceMin, c.PriceMax = price, price

			out = append(out, c)
		})
		return out
	}
}

func districtDescription(dateText, venue string) string {
	if dateText == "" {
		return "New event on District.in"
	}
	return dateText + " at " + venue + " on District.in"
}
