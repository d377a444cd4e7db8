package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"desmoines-weekly-events/internal/extraction"
	"desmoines-weekly-events/internal/models"
)

// Coordinates locate the region being searched
type Coordinates struct {
	Lat         float64
	Lng         float64
	RadiusMiles int
}

// DesMoines is the default search area
var DesMoines = Coordinates{Lat: 41.5868, Lng: -93.6250, RadiusMiles: 50}

const ticketmasterBaseURL = "https://app.ticketmaster.com/discovery/v2/events.json"

// TicketmasterClient fetches listed events from the Discovery API
type TicketmasterClient struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	area       Coordinates
	location   *time.Location
	sentinels  extraction.Sentinels
}

// NewTicketmasterClient creates a new Ticketmaster client. Dates are
// rendered in loc.
func NewTicketmasterClient(apiKey string, area Coordinates, loc *time.Location) *TicketmasterClient {
	if loc == nil {
		loc = time.Local
	}
	return &TicketmasterClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		apiKey:     apiKey,
		baseURL:    ticketmasterBaseURL,
		area:       area,
		location:   loc,
		sentinels:  extraction.DefaultSentinels(),
	}
}

// SetBaseURL overrides the API endpoint
func (c *TicketmasterClient) SetBaseURL(baseURL string) {
	c.baseURL = baseURL
}

// SetSentinels sets the placeholders used for missing date, time, venue and price
func (c *TicketmasterClient) SetSentinels(s extraction.Sentinels) {
	c.sentinels = s
}

type ticketmasterResponse struct {
	Embedded *struct {
		Events []ticketmasterEvent `json:"events"`
	} `json:"_embedded"`
}

type ticketmasterEvent struct {
	Name  string `json:"name"`
	URL   string `json:"url"`
	Info  string `json:"info"`
	Dates struct {
		Start struct {
			DateTime  string `json:"dateTime"`
			LocalDate string `json:"localDate"`
			LocalTime string `json:"localTime"`
		} `json:"start"`
	} `json:"dates"`
	Embedded *struct {
		Venues []struct {
			Name string `json:"name"`
		} `json:"venues"`
	} `json:"_embedded"`
	PriceRanges []struct {
		Min float64 `json:"min"`
		Max float64 `json:"max"`
	} `json:"priceRanges"`
	Classifications []struct {
		Segment *struct {
			Name string `json:"name"`
		} `json:"segment"`
	} `json:"classifications"`
}

// CategorizedEvent is an event with the category it should be filed under
type CategorizedEvent struct {
	Category string
	Event    models.Event
}

// FetchEvents returns the events listed for the week
func (c *TicketmasterClient) FetchEvents(ctx context.Context, week models.WeekRange) ([]CategorizedEvent, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("ticketmaster api key is required")
	}

	params := url.Values{}
	params.Set("apikey", c.apiKey)
	params.Set("latlong", fmt.Sprintf("%g,%g", c.area.Lat, c.area.Lng))
	params.Set("radius", strconv.Itoa(c.area.RadiusMiles))
	params.Set("unit", "miles")
	params.Set("startDateTime", formatTicketmasterTime(week.Start))
	params.Set("endDateTime", formatTicketmasterTime(week.End))
	params.Set("size", "100")
	params.Set("sort", "date,asc")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build ticketmaster request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ticketmaster request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read ticketmaster response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ticketmaster returned status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var data ticketmasterResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("failed to parse ticketmaster response: %w", err)
	}
	if data.Embedded == nil || len(data.Embedded.Events) == 0 {
		log.Printf("[TICKETMASTER] No events found for week of %s", week.Key())
		return nil, nil
	}

	events := make([]CategorizedEvent, 0, len(data.Embedded.Events))
	for _, e := range data.Embedded.Events {
		events = append(events, c.convertEvent(e))
	}
	log.Printf("[TICKETMASTER] Found %d events", len(events))
	return events, nil
}

func (c *TicketmasterClient) convertEvent(e ticketmasterEvent) CategorizedEvent {
	event := models.Event{
		Name:        e.Name,
		Date:        c.sentinels.Date,
		Time:        c.sentinels.Time,
		Venue:       c.sentinels.Venue,
		TicketPrice: c.sentinels.TicketPrice,
		TicketLink:  e.URL,
		Description: e.Info,
	}
	if event.Description == "" {
		event.Description = e.Name
	}

	if t, err := time.Parse(time.RFC3339, e.Dates.Start.DateTime); err == nil {
		event.Date = t.In(c.location).Format("Monday, January 2")
	}
	if t, err := time.Parse("15:04:05", e.Dates.Start.LocalTime); err == nil {
		event.Time = t.Format("3:04 PM")
	}
	if e.Embedded != nil && len(e.Embedded.Venues) > 0 && e.Embedded.Venues[0].Name != "" {
		event.Venue = e.Embedded.Venues[0].Name
	}
	if len(e.PriceRanges) > 0 {
		pr := e.PriceRanges[0]
		if pr.Min == pr.Max {
			event.TicketPrice = fmt.Sprintf("$%.2f", pr.Min)
		} else {
			event.TicketPrice = fmt.Sprintf("$%.2f - $%.2f", pr.Min, pr.Max)
		}
	}

	category := models.CategoryFestivalsEvents
	if len(e.Classifications) > 0 && e.Classifications[0].Segment != nil && e.Classifications[0].Segment.Name == "Music" {
		category = models.CategoryLiveMusic
	}
	return CategorizedEvent{Category: category, Event: event}
}

// formatTicketmasterTime renders an instant as UTC without fractional seconds
func formatTicketmasterTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05") + "Z"
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
