package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"desmoines-weekly-events/internal/extraction"
	"desmoines-weekly-events/internal/models"
)

const ticketmasterFixture = `{
  "_embedded": {
    "events": [
      {
        "name": "Zach Bryan",
        "url": "https://www.ticketmaster.com/event/1",
        "info": "The Quittin Time Tour.",
        "dates": {"start": {"dateTime": "2024-06-15T00:30:00Z", "localDate": "2024-06-14", "localTime": "19:30:00"}},
        "_embedded": {"venues": [{"name": "Wells Fargo Arena"}]},
        "priceRanges": [{"min": 49.5, "max": 149.5}],
        "classifications": [{"segment": {"name": "Music"}}]
      },
      {
        "name": "Iowa Cubs vs. Omaha Storm Chasers",
        "url": "https://www.ticketmaster.com/event/2",
        "dates": {"start": {"localDate": "2024-06-16"}},
        "priceRanges": [{"min": 12, "max": 12}],
        "classifications": [{"segment": {"name": "Sports"}}]
      }
    ]
  }
}`

func TestTicketmasterClient_FetchEvents(t *testing.T) {
	chicago, err := time.LoadLocation("America/Chicago")
	if err != nil {
		t.Skipf("timezone data unavailable: %v", err)
	}
	week := models.CurrentWeek(time.Date(2024, 6, 12, 12, 0, 0, 0, chicago))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		expected := map[string]string{
			"apikey":        "tm-key",
			"latlong":       "41.5868,-93.625",
			"radius":        "50",
			"unit":          "miles",
			"startDateTime": "2024-06-10T05:00:00Z",
			"endDateTime":   "2024-06-17T04:59:59Z",
			"size":          "100",
			"sort":          "date,asc",
		}
		for k, v := range expected {
			if q.Get(k) != v {
				t.Errorf("Expected %s=%s, got %s", k, v, q.Get(k))
			}
		}
		w.Write([]byte(ticketmasterFixture))
	}))
	defer server.Close()

	client := NewTicketmasterClient("tm-key", DesMoines, chicago)
	client.SetBaseURL(server.URL)

	events, err := client.FetchEvents(context.Background(), week)
	if err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(events))
	}

	music := events[0]
	if music.Category != models.CategoryLiveMusic {
		t.Errorf("Expected Live Music, got %s", music.Category)
	}
	expected := models.Event{
		Name:        "Zach Bryan",
		Date:        "Friday, June 14",
		Time:        "7:30 PM",
		Venue:       "Wells Fargo Arena",
		TicketPrice: "$49.50 - $149.50",
		TicketLink:  "https://www.ticketmaster.com/event/1",
		Description: "The Quittin Time Tour.",
	}
	if music.Event != expected {
		t.Errorf("Expected %+v, got %+v", expected, music.Event)
	}

	game := events[1]
	if game.Category != models.CategoryFestivalsEvents {
		t.Errorf("Expected Festivals & Events, got %s", game.Category)
	}
	if game.Event.Date != "TBD" || game.Event.Time != "TBD" || game.Event.Venue != "TBD" {
		t.Errorf("Expected placeholders for missing data, got %+v", game.Event)
	}
	if game.Event.TicketPrice != "$12.00" {
		t.Errorf("Expected single price, got %q", game.Event.TicketPrice)
	}
	if game.Event.Description != game.Event.Name {
		t.Errorf("Expected name as description fallback, got %q", game.Event.Description)
	}
}

func TestTicketmasterClient_Sentinels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"_embedded": {"events": [{"name": "Mystery Show", "dates": {"start": {}}}]}}`))
	}))
	defer server.Close()

	client := NewTicketmasterClient("tm-key", DesMoines, time.UTC)
	client.SetBaseURL(server.URL)
	client.SetSentinels(extraction.Sentinels{Date: "To be announced", Time: "To be announced", Venue: "To be announced", TicketPrice: "To be announced"})

	events, err := client.FetchEvents(context.Background(), models.CurrentWeek(time.Date(2024, 6, 12, 12, 0, 0, 0, time.UTC)))
	if err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(events))
	}

	e := events[0].Event
	if e.Date != "To be announced" || e.Time != "To be announced" || e.Venue != "To be announced" || e.TicketPrice != "To be announced" {
		t.Errorf("Expected configured placeholders, got %+v", e)
	}
	if extraction.NewValidator(extraction.Config{Sentinels: extraction.Sentinels{Date: "To be announced", Time: "To be announced", Venue: "To be announced"}}).Accepts(e) {
		t.Error("Expected an event with only a name to be rejected")
	}
}

func TestTicketmasterClient_FetchEventsEdgeCases(t *testing.T) {
	week := models.CurrentWeek(time.Date(2024, 6, 12, 12, 0, 0, 0, time.UTC))

	testCases := []struct {
		name        string
		status      int
		body        string
		expectError bool
		expectCount int
	}{
		{"No embedded events", http.StatusOK, `{"page": {"totalElements": 0}}`, false, 0},
		{"Server error", http.StatusInternalServerError, `oops`, true, 0},
		{"Invalid JSON", http.StatusOK, `{`, true, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer server.Close()

			client := NewTicketmasterClient("tm-key", DesMoines, time.UTC)
			client.SetBaseURL(server.URL)

			events, err := client.FetchEvents(context.Background(), week)
			if tc.expectError && err == nil {
				t.Error("Expected an error")
			}
			if !tc.expectError && err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
			if len(events) != tc.expectCount {
				t.Errorf("Expected %d events, got %d", tc.expectCount, len(events))
			}
		})
	}
}

func TestTicketmasterClient_RequiresKey(t *testing.T) {
	client := NewTicketmasterClient("", DesMoines, time.UTC)
	if _, err := client.FetchEvents(context.Background(), models.CurrentWeek(time.Now())); err == nil {
		t.Error("Expected error without an API key")
	}
}
