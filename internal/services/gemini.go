package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/samber/lo"
	"google.golang.org/genai"

	"desmoines-weekly-events/internal/models"
)

// geminiModels is the subset of the genai client used here
type geminiModels interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiConfig configures the Gemini client
type GeminiConfig struct {
	APIKey          string
	Model           string
	Temperature     float32
	MaxOutputTokens int32
	Region          string
	RadiusMiles     int
}

// GeminiClient suggests standing local activities for a week
type GeminiClient struct {
	models          geminiModels
	model           string
	temperature     float32
	maxOutputTokens int32
	region          string
	radiusMiles     int
}

// GeminiActivity is one entry of the JSON array Gemini is asked for
type GeminiActivity struct {
	Name        string `json:"name"`
	Location    string `json:"location"`
	Description string `json:"description"`
	Type        string `json:"type"`
	Cost        string `json:"cost"`
}

// NewGeminiClient creates a new Gemini client
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return newGeminiClient(client.Models, cfg), nil
}

func newGeminiClient(m geminiModels, cfg GeminiConfig) *GeminiClient {
	g := &GeminiClient{
		models:          m,
		model:           lo.Ternary(cfg.Model != "", cfg.Model, "gemini-2.5-flash"),
		temperature:     lo.Ternary(cfg.Temperature > 0, cfg.Temperature, 0.2),
		maxOutputTokens: lo.Ternary(cfg.MaxOutputTokens > 0, cfg.MaxOutputTokens, 2048),
		region:          lo.Ternary(cfg.Region != "", cfg.Region, "Des Moines, Iowa"),
		radiusMiles:     lo.Ternary(cfg.RadiusMiles > 0, cfg.RadiusMiles, 50),
	}
	return g
}

// FetchActivities asks Gemini for activities and maps them to events
func (g *GeminiClient) FetchActivities(ctx context.Context, week models.WeekRange) ([]models.Event, error) {
	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(g.buildPrompt(week)), &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(g.temperature),
		MaxOutputTokens: g.maxOutputTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}

	text := responseText(resp)
	if text == "" {
		return nil, fmt.Errorf("no text content in gemini response")
	}

	activities, err := parseGeminiActivities(text)
	if err != nil {
		return nil, err
	}
	log.Printf("[GEMINI] Found %d activities", len(activities))

	events := lo.FilterMap(activities, func(a GeminiActivity, _ int) (models.Event, bool) {
		if strings.TrimSpace(a.Name) == "" {
			return models.Event{}, false
		}
		return models.Event{
			Name:        strings.TrimSpace(a.Name),
			Date:        "Available all week",
			Time:        "Various times",
			Venue:       strings.TrimSpace(a.Location),
			TicketPrice: strings.TrimSpace(a.Cost),
			Description: strings.TrimSpace(a.Description),
		}, true
	})
	return events, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var sb strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part != nil && part.Text != "" {
				sb.WriteString(part.Text)
			}
		}
		if sb.Len() > 0 {
			break
		}
	}
	return sb.String()
}

var jsonArrayPattern = regexp.MustCompile(`(?s)\[\s*\{.*\}\s*\]`)

// parseGeminiActivities finds and decodes the JSON array in a reply
func parseGeminiActivities(text string) ([]GeminiActivity, error) {
	match := jsonArrayPattern.FindString(cleanJSONResponse(text))
	if match == "" {
		return nil, fmt.Errorf("could not find JSON array in gemini response")
	}
	var activities []GeminiActivity
	if err := json.Unmarshal([]byte(match), &activities); err != nil {
		return nil, fmt.Errorf("failed to parse gemini response JSON: %w", err)
	}
	return activities, nil
}

// cleanJSONResponse removes markdown code fences around a JSON reply
func cleanJSONResponse(response string) string {
	cleaned := strings.TrimSpace(response)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	return strings.TrimSpace(cleaned)
}

func (g *GeminiClient) buildPrompt(week models.WeekRange) string {
	return fmt.Sprintf(`Generate a list of activities within a %d-mile radius of %s for the week of %s to %s.

Include a mix of:
- Outdoor activities and parks
- Family-friendly attractions
- Cultural and historical sites
- Local restaurants and food experiences
- Shopping destinations

For each activity, provide:
- Name
- Location/Address
- Brief description (1-2 sentences)
- Type of activity (e.g., outdoor, family, cultural)
- Cost estimate (free, $, $$, $$$)

IMPORTANT: Your response must be a valid JSON array with the following structure and nothing else:
[
  {
    "name": "Activity name",
    "location": "Address or venue",
    "description": "Brief description",
    "type": "Activity type",
    "cost": "Cost estimate"
  }
]

Do not include any explanatory text, markdown formatting, or code blocks. Return only the raw JSON array.`,
		g.radiusMiles, g.region, week.Start.Format("January 2, 2006"), week.End.Format("January 2, 2006"))
}
