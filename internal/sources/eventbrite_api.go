package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/time/rate"

	"github.com/jonesrussell/north-cloud/event-sync/internal/domain"
	"github.com/jonesrussell/north-cloud/event-sync/internal/retry"
)

const (
	eventbriteAPITimeout = 20 * time.Second
	eventbriteSearchArea = "50km"
	eventbriteLocalTime  = "2006-01-02T15:04:05"
)

// ErrMissingToken is returned when no Eventbrite API token is configured.
var ErrMissingToken = errors.New("eventbrite token missing")

// EventbriteAPIConfig configures the Eventbrite API client.
type EventbriteAPIConfig struct {
	BaseURL     string
	Token       string
	AffiliateID string
	// RatePerSec bounds request throughput. Zero disables limiting.
	RatePerSec float64
	HTTPClient *http.Client
	Retry      retry.Config
}

// EventbriteAPI queries the Eventbrite v3 search endpoint.
type EventbriteAPI struct {
	baseURL     string
	token       string
	affiliateID string
	httpClient  *http.Client
	limiter     *rate.Limiter
	retry       retry.Config
}

// NewEventbriteAPI creates an Eventbrite API client.
func NewEventbriteAPI(cfg EventbriteAPIConfig) *EventbriteAPI {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: eventbriteAPITimeout}
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RatePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), 1)
	}

	retryCfg := cfg.Retry
	if retryCfg.MaxAttempts == 0 {
		retryCfg = retry.DefaultConfig()
	}

	return &EventbriteAPI{
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		token:       cfg.Token,
		affiliateID: cfg.AffiliateID,
		httpClient:  client,
		limiter:     limiter,
		retry:       retryCfg,
	}
}

type eventbriteText struct {
	Text string `json:"text"`
}

type eventbriteMoney struct {
	MajorValue string `json:"major_value"`
}

type eventbriteEvent struct {
	ID          string         `json:"id"`
	Name        eventbriteText `json:"name"`
	Description eventbriteText `json:"description"`
	Summary     string         `json:"summary"`
	URL         string         `json:"url"`
	Start       struct {
		Local string `json:"local"`
	} `json:"start"`
	IsFree bool `json:"is_free"`
	Logo   *struct {
		URL string `json:"url"`
	} `json:"logo"`
	Venue *struct {
		Name    string `json:"name"`
		Address struct {
			Display string `json:"localized_address_display"`
		} `json:"address"`
	} `json:"venue"`
	Category *struct {
		Name string `json:"name"`
	} `json:"category"`
	TicketAvailability *struct {
		Minimum *eventbriteMoney `json:"minimum_ticket_price"`
		Maximum *eventbriteMoney `json:"maximum_ticket_price"`
	} `json:"ticket_availability"`
}

type eventbriteSearchResponse struct {
	Events []eventbriteEvent `json:"events"`
}

// Search returns the events near city. city is an internal slug.
func (a *EventbriteAPI) Search(ctx context.Context, city string) ([]domain.RawCandidate, error) {
	if a.token == "" {
		return nil, ErrMissingToken
	}

	cityName := cases.Title(language.English).String(city)
	q := url.Values{}
	q.Set("location.address", cityName+", India")
	q.Set("location.within", eventbriteSearchArea)
	q.Set("expand", "venue,category,ticket_availability")
	endpoint := a.baseURL + "/events/search/?" + q.Encode()

	var result eventbriteSearchResponse
	err := retry.Do(ctx, a.retry, func(ctx context.Context) error {
		if waitErr := a.limiter.Wait(ctx); waitErr != nil {
			return fmt.Errorf("rate limit wait: %w", waitErr)
		}
		return a.get(ctx, endpoint, &result)
	})
	if err != nil {
		return nil, err
	}

	out := make([]domain.RawCandidate, 0, len(result.Events))
	for i := range result.Events {
		out = append(out, a.toCandidate(&result.Events[i], city, cityName))
	}
	return out, nil
}

func (a *EventbriteAPI) get(ctx context.Context, endpoint string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+a.token)
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("eventbrite request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
		return &retry.TransientError{Err: fmt.Errorf("eventbrite returned %d", resp.StatusCode)}
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("eventbrite returned %d", resp.StatusCode)
	}

	if decodeErr := json.NewDecoder(resp.Body).Decode(v); decodeErr != nil {
		return fmt.Errorf("decode response: %w", decodeErr)
	}
	return nil
}

func (a *EventbriteAPI) toCandidate(ev *eventbriteEvent, city, cityName string) domain.RawCandidate {
	c := domain.RawCandidate{
		Title:       strings.TrimSpace(ev.Name.Text),
		Description: strings.TrimSpace(ev.Description.Text),
		Category:    "Events",
		City:        city,
		Venue:       "Various Venues",
		Address:     cityName,
		IsFree:      ev.IsFree,
		URL:         a.Affiliate(ev.URL),
		Source:      SourceEventbrite,
		SourceID:    ev.ID,
		FromAPI:     true,
	}

	if c.Description == "" {
		c.Description = strings.TrimSpace(ev.Summary)
	}
	if ev.Category != nil && ev.Category.Name != "" {
		c.Category = ev.Category.Name
	}
	if ev.Venue != nil {
		if ev.Venue.Name != "" {
			c.Venue = ev.Venue.Name
		}
		if ev.Venue.Address.Display != "" {
			c.Address = ev.Venue.Address.Display
		}
	}
	if ev.Logo != nil {
		c.ImageURL = ev.Logo.URL
	}
	if start, err := time.ParseInLocation(eventbriteLocalTime, ev.Start.Local, IST); err == nil {
		c.Date = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, IST)
		c.DateKnown = true
		c.Time = start.Format(time.TimeOnly)
	}
	if ta := ev.TicketAvailability; ta != nil {
		c.PriceMin = money(ta.Minimum)
		c.PriceMax = money(ta.Maximum)
	}

	return c
}

func money(m *eventbriteMoney) float64 {
	if m == nil {
		return 0
	}
	v, ok := ParsePrice("₹" + m.MajorValue)
	if !ok {
		return 0
	}
	return v
}

// Affiliate appends the affiliate id to url. It is a no-op without an id or on a nil client.
func (a *EventbriteAPI) Affiliate(raw string) string {
	if a == nil || a.affiliateID == "" || raw == "" {
		return raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	q.Set("aff", a.affiliateID)
	u.RawQuery = q.Encode()
	return u.String()
}
