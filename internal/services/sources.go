package services

import (
	"context"
	"errors"

	"github.com/samber/lo"

	"desmoines-weekly-events/internal/extraction"
	"desmoines-weekly-events/internal/models"
)

// Source names reported in refresh runs and metrics
const (
	SourceGeneratedListings = "chatgpt"
	SourceTicketmaster      = "ticketmaster"
	SourceWeather           = "openweather"
	SourceLocalActivities   = "gemini"
)

// SourceContribution is what one source adds to a weekly snapshot
type SourceContribution struct {
	Categories   []models.Category
	PlanningTips []string
	Forecast     []models.WeatherDay
	RawResponse  string
	Attempts     int
	Rejected     int
}

// EventCount returns the number of events across all categories
func (c SourceContribution) EventCount() int {
	return lo.SumBy(c.Categories, func(cat models.Category) int { return len(cat.Events) })
}

// ActivitySource is one upstream feed consulted during a refresh
type ActivitySource interface {
	Name() string
	Fetch(ctx context.Context, week models.WeekRange) (SourceContribution, error)
}

// GeneratedListingsSource runs the generation retry controller for the week
type GeneratedListingsSource struct {
	controller *extraction.Controller
	maxRetries int
}

// NewGeneratedListingsSource wraps controller as an ActivitySource
func NewGeneratedListingsSource(controller *extraction.Controller, maxRetries int) *GeneratedListingsSource {
	return &GeneratedListingsSource{controller: controller, maxRetries: maxRetries}
}

func (s *GeneratedListingsSource) Name() string { return SourceGeneratedListings }

func (s *GeneratedListingsSource) Fetch(ctx context.Context, week models.WeekRange) (SourceContribution, error) {
	outcome, err := s.controller.RunWithRetry(ctx, week, s.maxRetries)
	if err != nil {
		var runErr *extraction.RunError
		if errors.As(err, &runErr) {
			return SourceContribution{
				RawResponse: runErr.RawResponse,
				Attempts:    runErr.Attempts,
				Rejected:    len(runErr.Rejected),
			}, err
		}
		return SourceContribution{}, err
	}
	return SourceContribution{
		Categories:   outcome.Result.Categories,
		PlanningTips: outcome.Result.PlanningTips,
		RawResponse:  outcome.RawResponse,
		Attempts:     outcome.Attempts,
		Rejected:     len(outcome.Rejected),
	}, nil
}

// EventFetcher lists categorized events for a week
type EventFetcher interface {
	FetchEvents(ctx context.Context, week models.WeekRange) ([]CategorizedEvent, error)
}

// TicketmasterSource files Ticketmaster events under their categories
type TicketmasterSource struct {
	client EventFetcher
}

// NewTicketmasterSource wraps client as an ActivitySource
func NewTicketmasterSource(client EventFetcher) *TicketmasterSource {
	return &TicketmasterSource{client: client}
}

func (s *TicketmasterSource) Name() string { return SourceTicketmaster }

func (s *TicketmasterSource) Fetch(ctx context.Context, week models.WeekRange) (SourceContribution, error) {
	events, err := s.client.FetchEvents(ctx, week)
	if err != nil {
		return SourceContribution{}, err
	}

	var categories []models.Category
	index := make(map[string]int)
	for _, e := range events {
		i, ok := index[e.Category]
		if !ok {
			i = len(categories)
			index[e.Category] = i
			categories = append(categories, models.Category{Name: e.Category})
		}
		categories[i].Events = append(categories[i].Events, e.Event)
	}
	return SourceContribution{Categories: categories, Attempts: 1}, nil
}

// ForecastFetcher returns the weekly weather forecast
type ForecastFetcher interface {
	FetchForecast(ctx context.Context) ([]models.WeatherDay, error)
}

// WeatherSource contributes the forecast; it adds no events
type WeatherSource struct {
	client ForecastFetcher
}

// NewWeatherSource wraps client as an ActivitySource
func NewWeatherSource(client ForecastFetcher) *WeatherSource {
	return &WeatherSource{client: client}
}

func (s *WeatherSource) Name() string { return SourceWeather }

func (s *WeatherSource) Fetch(ctx context.Context, _ models.WeekRange) (SourceContribution, error) {
	forecast, err := s.client.FetchForecast(ctx)
	if err != nil {
		return SourceContribution{}, err
	}
	return SourceContribution{Forecast: forecast, Attempts: 1}, nil
}

// ActivityFetcher lists generated local activities for a week
type ActivityFetcher interface {
	FetchActivities(ctx context.Context, week models.WeekRange) ([]models.Event, error)
}

// LocalActivitiesSource files generated activities under Local Activities
type LocalActivitiesSource struct {
	client ActivityFetcher
}

// NewLocalActivitiesSource wraps client as an ActivitySource
func NewLocalActivitiesSource(client ActivityFetcher) *LocalActivitiesSource {
	return &LocalActivitiesSource{client: client}
}

func (s *LocalActivitiesSource) Name() string { return SourceLocalActivities }

func (s *LocalActivitiesSource) Fetch(ctx context.Context, week models.WeekRange) (SourceContribution, error) {
	events, err := s.client.FetchActivities(ctx, week)
	if err != nil {
		return SourceContribution{}, err
	}
	if len(events) == 0 {
		return SourceContribution{Attempts: 1}, nil
	}
	return SourceContribution{
		Categories: []models.Category{{Name: models.CategoryLocalActivities, Events: events}},
		Attempts:   1,
	}, nil
}
