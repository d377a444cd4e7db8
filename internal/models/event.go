package models

import (
	"strings"
	"time"
)

// Event is a single weekly listing. Every field is a display string; unknown
// required values carry a placeholder such as "TBD" rather than being empty.
type Event struct {
	Name        string `json:"name" dynamodbav:"name"`
	Date        string `json:"date" dynamodbav:"date"`
	Time        string `json:"time" dynamodbav:"time"`
	Venue       string `json:"venue" dynamodbav:"venue"`
	TicketPrice string `json:"ticketPrice" dynamodbav:"ticket_price"`
	TicketLink  string `json:"ticketLink" dynamodbav:"ticket_link"`
	Description string `json:"description" dynamodbav:"description"`
}

// Category groups events under a display heading
type Category struct {
	Name   string  `json:"name" dynamodbav:"name"`
	Events []Event `json:"events" dynamodbav:"events"`
}

// ExtractionResult is the structured form of one generated response
type ExtractionResult struct {
	Categories   []Category `json:"categories"`
	PlanningTips []string   `json:"planningTips"`
}

// TotalEvents counts events across all categories
func (r ExtractionResult) TotalEvents() int {
	total := 0
	for _, c := range r.Categories {
		total += len(c.Events)
	}
	return total
}

// Category returns the named category, matching case-insensitively
func (r ExtractionResult) Category(name string) (Category, bool) {
	for _, c := range r.Categories {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return Category{}, false
}

// Category names
const (
	CategoryLiveMusic       = "Live Music"
	CategoryFestivalsEvents = "Festivals & Events"
	CategoryLocalActivities = "Local Activities"
	CategoryOtherEvents     = "Other Events"
)

// Temperature is a daily low/high in degrees Fahrenheit
type Temperature struct {
	Min int `json:"min" dynamodbav:"min"`
	Max int `json:"max" dynamodbav:"max"`
}

// WeatherDay is one day of the weekly forecast
type WeatherDay struct {
	Date          string      `json:"date" dynamodbav:"date"` // e.g. "Monday, June 10"
	Temp          Temperature `json:"temp" dynamodbav:"temp"`
	Weather       string      `json:"weather" dynamodbav:"weather"`
	Description   string      `json:"description" dynamodbav:"description"`
	Precipitation float64     `json:"precipitation" dynamodbav:"precipitation"` // chance in percent
}

// WeeklySnapshot is the persisted result of a refresh for one calendar week
type WeeklySnapshot struct {
	PK string `json:"-" dynamodbav:"PK"`
	SK string `json:"-" dynamodbav:"SK"`

	WeekStartDate   time.Time    `json:"weekStartDate" dynamodbav:"week_start_date"`
	WeekEndDate     time.Time    `json:"weekEndDate" dynamodbav:"week_end_date"`
	FormattedRange  string       `json:"formattedRange" dynamodbav:"formatted_range"`
	FetchedAt       time.Time    `json:"fetchedAt" dynamodbav:"fetched_at"`
	Categories      []Category   `json:"categories" dynamodbav:"categories"`
	PlanningTips    []string     `json:"planningTips" dynamodbav:"planning_tips"`
	WeatherForecast []WeatherDay `json:"weatherForecast,omitempty" dynamodbav:"weather_forecast,omitempty"`
	Sources         []string     `json:"sources,omitempty" dynamodbav:"sources,omitempty"`
	TotalEvents     int          `json:"totalEvents" dynamodbav:"total_events"`

	RawResponse string `json:"-" dynamodbav:"raw_response,omitempty"`
	RunID       string `json:"runId,omitempty" dynamodbav:"run_id,omitempty"`
}

// Result views the snapshot as an extraction result
func (s *WeeklySnapshot) Result() ExtractionResult {
	return ExtractionResult{Categories: s.Categories, PlanningTips: s.PlanningTips}
}
