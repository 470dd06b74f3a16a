package sources

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonesrussell/north-cloud/event-sync/internal/browser"
	"github.com/jonesrussell/north-cloud/event-sync/internal/domain"
	"github.com/jonesrussell/north-cloud/event-sync/internal/logger"
)

const (
	bookMyShowBase      = "https://in.bookmyshow.com"
	bookMyShowMaxScroll = 60000
)

var bookMyShowCities = map[string]string{
	"mumbai":    "mumbai",
	"delhi":     "national-capital-region-ncr",
	"bangalore": "bengaluru",
	"hyderabad": "hyderabad",
	"chennai":   "chennai",
	"kolkata":   "kolkata",
	"pune":      "pune",
	"gurugram":  "national-capital-region-ncr",
	"noida":     "national-capital-region-ncr",
}

var (
	bmsLanguages = []string{"Hindi", "English", "Marathi", "Tamil", "Telugu", "Kannada", "Malayalam"}
	clockPattern = regexp.MustCompile(`\d{1,2}:\d{2}`)
	bmsRerelease = regexp.MustCompile(`(?i)re-?release`)
	bmsTitle     = FirstOf(Text("h3"), Text(`div[font-size="18"]`), Text(`div[class*="sc-7o7nez-0"]`), Line(0))
	bmsRawImage  = FirstOf(Attr("img", "data-src"), Attr("img", "data-lazy-src"), Attr("img", "data-original"), Attr("img", "src"))
	bmsSrcset    = Attr("img", "srcset")
)

// listing kinds on BookMyShow.
const (
	bmsEvents = "Events"
	bmsMovies = "Movies"
)

// BookMyShow renders the events and movies explore pages.
type BookMyShow struct {
	opts Options
}

// NewBookMyShow creates the BookMyShow adapter.
func NewBookMyShow(opts Options) *BookMyShow {
	return &BookMyShow{opts: opts.withDefaults()}
}

// Name returns the source name.
func (b *BookMyShow) Name() string { return SourceBookMyShow }

// Fetch renders both explore pages for city. A failing page is logged and skipped.
func (b *BookMyShow) Fetch(ctx context.Context, city string, session browser.Session) []domain.RawCandidate {
	log := b.opts.Log.With(logger.String("source", SourceBookMyShow), logger.String("city", city))

	slug, ok := bookMyShowCities[city]
	if !ok {
		log.Debug("Skipping source", logger.Error(ErrUnsupportedCity))
		return nil
	}

	var out []domain.RawCandidate
	for _, kind := range []string{bmsEvents, bmsMovies} {
		url := fmt.Sprintf("%s/explore/%s-%s", bookMyShowBase, strings.ToLower(kind), slug)
		found, err := render(ctx, session, b.opts, target{
			url:       url,
			maxScroll: bookMyShowMaxScroll,
			extract:   b.extract(city, kind),
		})
		if err != nil {
			log.Warn("Failed to render listing page", logger.String("url", url), logger.Error(err))
			continue
		}
		out = append(out, found...)
	}
	return out
}

func (b *BookMyShow) extract(city, kind string) browser.Extractor {
	selector := `a[href*="/events/"]`
	if kind == bmsMovies {
		selector = `a[href*="/movies/"]`
	}
	now := b.opts.Now()

	return func(doc *goquery.Document) []domain.RawCandidate {
		var out []domain.RawCandidate
		seen := make(map[string]bool)

		doc.Find(selector).Each(func(_ int, card *goquery.Selection) {
			href, _ := card.Attr("href")
			href = absoluteURL(bookMyShowBase, href)
			if href == "" || seen[href] || isBookMyShowIndex(href) {
				return
			}

			title := bmsTitle(card)
			if title == "" {
				return
			}
			if kind == bmsMovies && bmsRerelease.MatchString(title) {
				return
			}
			seen[href] = true

			lines := textLines(card)
			all := strings.Join(lines, " ")

			c := domain.RawCandidate{
				Title:       title,
				Description: bookMyShowDescription(lines),
				Category:    kind,
				City:        city,
				Venue:       bookMyShowVenue(card, kind, title),
				Address:     city,
				Time:        ParseTime(all),
				ImageURL:    bookMyShowImage(card),
				IsFree:      IsFree(all),
				URL:         href,
				Source:      SourceBookMyShow,
				SourceID:    lastSegment(href),
			}
			c.Date, c.DateKnown = ParseDate(all, now)
			if price, ok := ParsePrice(all); ok {
				c.PriceMin, c.PriceMax = price, price
			}

			out = append(out, c)
		})
		return out
	}
}

func isBookMyShowIndex(href string) bool {
	return strings.Contains(href, "explore/") || strings.HasSuffix(href, "/events/") || strings.HasSuffix(href, "/movies/")
}

func bookMyShowDescription(lines []string) string {
	desc := strings.Join(lines, " ")
	for _, l := range lines {
		for _, lang := range bmsLanguages {
			if strings.Contains(l, lang) {
				return l + " • " + desc
			}
		}
	}
	return desc
}

func bookMyShowVenue(card *goquery.Selection, kind, title string) string {
	if kind == bmsMovies {
		return "Multiple Cinemas"
	}
	venue := FirstOf(
		LineWhere(func(l string) bool {
			return l != title && len(l) > 5 && len(l) < 50 && !strings.Contains(l, "₹") &&
				!clockPattern.MatchString(l) && !looksLikeDate(l)
		}),
		Const("Multiple Venues"),
	)
	return venue(card)
}

// bookMyShowImage prefers lazy-load attributes and falls back to the largest srcset entry
// when the primary source is a loading spinner.
func bookMyShowImage(card *goquery.Selection) string {
	img := bmsRawImage(card)
	lower := strings.ToLower(img)
	if img == "" || strings.Contains(lower, "loading.gif") || strings.Contains(lower, "placeholder") ||
		strings.HasPrefix(lower, "data:image") {
		if srcset := bmsSrcset(card); srcset != "" {
			entries := strings.Split(srcset, ",")
			if fields := strings.Fields(entries[len(entries)-1]); len(fields) > 0 {
				img = fields[0]
			}
		}
	}
	if strings.HasPrefix(img, "//") {
		img = "https:" + img
	}
	return img
}
