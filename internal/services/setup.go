package services

import (
	"context"
	"fmt"
	"log"

	"desmoines-weekly-events/internal/config"
	"desmoines-weekly-events/internal/extraction"
)

// NewControllerFromConfig creates the generation retry controller for gen
func NewControllerFromConfig(cfg *config.Config, gen extraction.Generator, observers ...extraction.Observer) *extraction.Controller {
	opts := []extraction.ControllerOption{
		extraction.WithConfig(cfg.ExtractionSettings()),
		extraction.WithPromptBuilder(cfg.PromptBuilder()),
		extraction.WithMinValidEvents(cfg.Extraction.MinValidEvents),
		extraction.WithAttemptTimeout(cfg.Extraction.AttemptTimeout),
		extraction.WithObserver(extraction.NewLogObserver()),
	}
	for _, o := range observers {
		opts = append(opts, extraction.WithObserver(o))
	}
	return extraction.NewController(gen, opts...)
}

// BuildSources creates a source for every upstream whose API key is set
func BuildSources(ctx context.Context, cfg *config.Config, observers ...extraction.Observer) ([]ActivitySource, error) {
	var sources []ActivitySource
	area := Coordinates{Lat: cfg.Region.Latitude, Lng: cfg.Region.Longitude, RadiusMiles: cfg.Region.RadiusMiles}
	loc := cfg.Location()

	if cfg.OpenAI.APIKey != "" {
		client, err := NewOpenAIClient(OpenAIConfig{
			APIKey:      cfg.OpenAI.APIKey,
			BaseURL:     cfg.OpenAI.BaseURL,
			Model:       cfg.OpenAI.Model,
			Temperature: cfg.OpenAI.Temperature,
			MaxTokens:   cfg.OpenAI.MaxTokens,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create openai client: %w", err)
		}
		controller := NewControllerFromConfig(cfg, client, observers...)
		sources = append(sources, NewGeneratedListingsSource(controller, cfg.Extraction.MaxRetries))
	} else {
		log.Printf("[SETUP] OPENAI_API_KEY not set, skipping generated listings")
	}

	if cfg.Ticketmaster.APIKey != "" {
		client := NewTicketmasterClient(cfg.Ticketmaster.APIKey, area, loc)
		client.SetSentinels(cfg.Extraction.Sentinels)
		sources = append(sources, NewTicketmasterSource(client))
	} else {
		log.Printf("[SETUP] TICKETMASTER_API_KEY not set, skipping Ticketmaster")
	}

	if cfg.OpenWeather.APIKey != "" {
		sources = append(sources, NewWeatherSource(NewOpenWeatherClient(cfg.OpenWeather.APIKey, area, loc)))
	} else {
		log.Printf("[SETUP] OPENWEATHER_API_KEY not set, skipping weather forecast")
	}

	if cfg.Gemini.APIKey != "" {
		client, err := NewGeminiClient(ctx, GeminiConfig{
			APIKey:          cfg.Gemini.APIKey,
			Model:           cfg.Gemini.Model,
			Temperature:     cfg.Gemini.Temperature,
			MaxOutputTokens: cfg.Gemini.MaxOutputTokens,
			Region:          cfg.Region.Area(),
			RadiusMiles:     cfg.Region.RadiusMiles,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create gemini client: %w", err)
		}
		sources = append(sources, NewLocalActivitiesSource(client))
	} else {
		log.Printf("[SETUP] GEMINI_API_KEY not set, skipping local activities")
	}

	if len(sources) == 0 {
		return nil, fmt.Errorf("no activity sources configured")
	}
	return sources, nil
}
