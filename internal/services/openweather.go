package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"desmoines-weekly-events/internal/models"
)

const (
	openWeatherOneCallURL = "https://api.openweathermap.org/data/3.0/onecall"
	openWeatherCurrentURL = "https://api.openweathermap.org/data/2.5/weather"

	forecastDays = 7
)

// errOneCallSubscription marks a One Call 3.0 response refused for lack of a subscription
var errOneCallSubscription = errors.New("one call 3.0 requires a separate subscription")

// OpenWeatherClient fetches the weekly forecast
type OpenWeatherClient struct {
	httpClient *http.Client
	apiKey     string
	oneCallURL string
	currentURL string
	area       Coordinates
	location   *time.Location
	now        func() time.Time
}

// NewOpenWeatherClient creates a new OpenWeather client
func NewOpenWeatherClient(apiKey string, area Coordinates, loc *time.Location) *OpenWeatherClient {
	if loc == nil {
		loc = time.Local
	}
	return &OpenWeatherClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		apiKey:     apiKey,
		oneCallURL: openWeatherOneCallURL,
		currentURL: openWeatherCurrentURL,
		area:       area,
		location:   loc,
		now:        time.Now,
	}
}

// SetBaseURLs overrides the forecast and current-conditions endpoints
func (c *OpenWeatherClient) SetBaseURLs(oneCallURL, currentURL string) {
	c.oneCallURL = oneCallURL
	c.currentURL = currentURL
}

type weatherCondition struct {
	Main        string `json:"main"`
	Description string `json:"description"`
}

type oneCallResponse struct {
	Daily []struct {
		Dt   int64 `json:"dt"`
		Temp struct {
			Min float64 `json:"min"`
			Max float64 `json:"max"`
		} `json:"temp"`
		Weather []weatherCondition `json:"weather"`
		Pop     float64            `json:"pop"`
	} `json:"daily"`
}

type currentWeatherResponse struct {
	Main *struct {
		TempMin float64 `json:"temp_min"`
		TempMax float64 `json:"temp_max"`
	} `json:"main"`
	Weather []weatherCondition `json:"weather"`
}

// FetchForecast returns up to seven days of forecast. Without a One Call
// subscription it falls back to a single day of current conditions.
func (c *OpenWeatherClient) FetchForecast(ctx context.Context) ([]models.WeatherDay, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("openweather api key is required")
	}

	forecast, err := c.fetchOneCall(ctx)
	if errors.Is(err, errOneCallSubscription) {
		log.Printf("[WEATHER] One Call 3.0 not available on this key, falling back to current conditions")
		return c.fetchCurrent(ctx)
	}
	return forecast, err
}

func (c *OpenWeatherClient) fetchOneCall(ctx context.Context) ([]models.WeatherDay, error) {
	params := c.baseParams()
	params.Set("exclude", "current,minutely,hourly,alerts")

	status, body, err := c.get(ctx, c.oneCallURL, params)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized && strings.Contains(string(body), "One Call 3.0 requires a separate subscription") {
		return nil, errOneCallSubscription
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("openweather returned status %d: %s", status, truncate(string(body), 200))
	}

	var data oneCallResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("failed to parse openweather forecast: %w", err)
	}

	days := data.Daily
	if len(days) > forecastDays {
		days = days[:forecastDays]
	}
	forecast := make([]models.WeatherDay, 0, len(days))
	for _, d := range days {
		day := models.WeatherDay{
			Date:          time.Unix(d.Dt, 0).In(c.location).Format("Monday, January 2"),
			Temp:          models.Temperature{Min: int(math.Round(d.Temp.Min)), Max: int(math.Round(d.Temp.Max))},
			Precipitation: math.Round(d.Pop * 100),
		}
		if len(d.Weather) > 0 {
			day.Weather = d.Weather[0].Main
			day.Description = d.Weather[0].Description
		}
		forecast = append(forecast, day)
	}
	log.Printf("[WEATHER] Found %d days of forecast", len(forecast))
	return forecast, nil
}

func (c *OpenWeatherClient) fetchCurrent(ctx context.Context) ([]models.WeatherDay, error) {
	status, body, err := c.get(ctx, c.currentURL, c.baseParams())
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("openweather current conditions returned status %d: %s", status, truncate(string(body), 200))
	}

	var data currentWeatherResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("failed to parse openweather current conditions: %w", err)
	}
	if data.Main == nil || len(data.Weather) == 0 {
		return nil, fmt.Errorf("openweather current conditions missing main or weather")
	}

	return []models.WeatherDay{{
		Date:        c.now().In(c.location).Format("Monday, January 2"),
		Temp:        models.Temperature{Min: int(math.Round(data.Main.TempMin)), Max: int(math.Round(data.Main.TempMax))},
		Weather:     data.Weather[0].Main,
		Description: data.Weather[0].Description,
	}}, nil
}

func (c *OpenWeatherClient) baseParams() url.Values {
	params := url.Values{}
	params.Set("lat", fmt.Sprintf("%g", c.area.Lat))
	params.Set("lon", fmt.Sprintf("%g", c.area.Lng))
	params.Set("units", "imperial")
	params.Set("appid", c.apiKey)
	return params
}

func (c *OpenWeatherClient) get(ctx context.Context, endpoint string, params url.Values) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to build openweather request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("openweather request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read openweather response: %w", err)
	}
	return resp.StatusCode, body, nil
}
