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

const tenTimesBase = "https://10times.com"

var tenTimesCities = map[string]string{
	"mumbai":    "mumbai",
	"delhi":     "new-delhi",
	"bangalore": "bengaluru",
	"hyderabad": "hyderabad",
	"chennai":   "chennai",
	"kolkata":   "kolkata",
	"pune":      "pune",
	"gurugram":  "gurgaon",
	"noida":     "noida",
}

const tenTimesTitleSelector = `a[itemprop="url"], h2 a, h3 a, .event-name`

var (
	tenTimesDate  = FirstOf(Attr("span[content]", "content"), Text("span[content], .date, td:first-child"))
	tenTimesVenue = FirstOf(Text(".venue, td:nth-child(2)"), Const("Exhibition Centre"))
	tenTimesImage = Attr("img", "src")
)

// TenTimes renders the 10times.com city listing of trade shows and conferences.
type TenTimes struct {
	opts Options
}

// NewTenTimes creates the 10Times adapter.
func NewTenTimes(opts Options) *TenTimes {
	return &TenTimes{opts: opts.withDefaults()}
}

// Name returns the source name.
func (t *TenTimes) Name() string { return SourceTenTimes }

// Fetch renders the city listing. The site often answers bots with 403, which yields nothing.
func (t *TenTimes) Fetch(ctx context.Context, city string, session browser.Session) []domain.RawCandidate {
	log := t.opts.Log.With(logger.String("source", SourceTenTimes), logger.String("city", city))

	slug, ok := tenTimesCities[city]
	if !ok {
		log.Debug("Skipping source", logger.Error(ErrUnsupportedCity))
		return nil
	}

	url := fmt.Sprintf("%s/%s", tenTimesBase, slug)
	out, err := render(ctx, session, t.opts, target{
		url:     url,
		waitFor: "#content, #event-table, .event-card, tr.event-row",
		extract: t.extract(city),
	})
	if err != nil {
		log.Warn("Failed to render listing page", logger.String("url", url), logger.Error(err))
		return nil
	}
	return out
}

func (t *TenTimes) extract(city string) browser.Extractor {
	now := t.opts.Now()

	return func(doc *goquery.Document) []domain.RawCandidate {
		var out []domain.RawCandidate

		rows := doc.Find(`tr[itemtype="http://schema.org/Event"], tr.row, div.event-card`)
		rows.Each(func(_ int, row *goquery.Selection) {
			titleEl := row.Find(tenTimesTitleSelector).First()
			title := collapse(titleEl.Text())
			href, _ := titleEl.Attr("href")
			if href == "" {
				href, _ = titleEl.Find("a").First().Attr("href")
			}
			href = absoluteURL(tenTimesBase, href)
			if title == "" || href == "" {
				return
			}

			dateText := tenTimesDate(row)
			venue := tenTimesVenue(row)

			image := tenTimesImage(row)
			if lower := strings.ToLower(image); strings.Contains(lower, "blank") || strings.Contains(lower, "placeholder") {
				image = ""
			}

			c := domain.RawCandidate{
				Title:       title,
				Description: fmt.Sprintf("Exhibition/Conference at %s. %s", venue, dateText),
				Category:    "Exhibitions",
				City:        city,
				Venue:       venue,
				Address:     city,
				ImageURL:    absoluteURL(tenTimesBase, image),
				URL:         href,
				Source:      SourceTenTimes,
				SourceID:    lastSegment(href),
			}
			c.Date, c.DateKnown = ParseDate(dateText, now)

			out = append(out, c)
		})
		return out
	}
}
