package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"desmoines-weekly-events/internal/extraction"
	"desmoines-weekly-events/internal/models"
)

type staticSource struct {
	name         string
	contribution SourceContribution
	err          error
	before       func()
}

func (s *staticSource) Name() string { return s.name }

func (s *staticSource) Fetch(ctx context.Context, week models.WeekRange) (SourceContribution, error) {
	if s.before != nil {
		s.before()
	}
	return s.contribution, s.err
}

type recordingWriter struct {
	snapshots []*models.WeeklySnapshot
	err       error
}

func (w *recordingWriter) PutSnapshot(ctx context.Context, snapshot *models.WeeklySnapshot) error {
	if w.err != nil {
		return w.err
	}
	w.snapshots = append(w.snapshots, snapshot)
	return nil
}

type recordingPublisher struct {
	mu      sync.Mutex
	latest  []*models.WeeklySnapshot
	backups []*models.WeeklySnapshot
	runs    []*models.RefreshRun
	err     error
}

func (p *recordingPublisher) UploadLatestSnapshot(ctx context.Context, snapshot *models.WeeklySnapshot) (*S3UploadResult, error) {
	if p.err != nil {
		return nil, p.err
	}
	p.latest = append(p.latest, snapshot)
	return &S3UploadResult{Key: LatestSnapshotKey}, nil
}

func (p *recordingPublisher) BackupSnapshot(ctx context.Context, snapshot *models.WeeklySnapshot) (*S3UploadResult, error) {
	if p.err != nil {
		return nil, p.err
	}
	p.backups = append(p.backups, snapshot)
	return &S3UploadResult{}, nil
}

func (p *recordingPublisher) UploadRefreshRun(ctx context.Context, run *models.RefreshRun) (*S3UploadResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.runs = append(p.runs, run)
	return &S3UploadResult{}, nil
}

type recordingSourceRecorder struct {
	mu      sync.Mutex
	results []models.SourceResult
}

func (r *recordingSourceRecorder) RecordSource(result models.SourceResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, result)
}

func event(name, date, venue string) models.Event {
	return models.Event{Name: name, Date: date, Time: "7:00 PM", Venue: venue}
}

func fixedClock() func() time.Time {
	return func() time.Time { return time.Date(2024, time.June, 12, 9, 0, 0, 0, time.UTC) }
}

func newTestRefresher(sources []ActivitySource, opts ...RefresherOption) *WeeklyRefresher {
	opts = append([]RefresherOption{WithClock(fixedClock()), WithLocation(time.UTC)}, opts...)
	return NewWeeklyRefresher(sources, opts...)
}

func TestWeeklyRefresher_MergesAndOrdersCategories(t *testing.T) {
	local := &staticSource{name: SourceLocalActivities, contribution: SourceContribution{
		Categories: []models.Category{{Name: models.CategoryLocalActivities, Events: []models.Event{
			{Name: "Farmers Market", Date: "Available all week", Time: "Various times", Venue: "Court Avenue"},
		}}},
	}}
	tickets := &staticSource{name: SourceTicketmaster, contribution: SourceContribution{
		Categories: []models.Category{
			{Name: models.CategoryFestivalsEvents, Events: []models.Event{event("Arts Festival", "June 14", "Western Gateway Park")}},
			{Name: "live music", Events: []models.Event{event("The Nadas", "June 14", "Wooly's")}},
		},
	}}

	publisher := &recordingPublisher{}
	writer := &recordingWriter{}
	refresher := newTestRefresher([]ActivitySource{local, tickets},
		WithSnapshotWriter(writer), WithSnapshotPublisher(publisher))

	report, err := refresher.Refresh(context.Background(), models.TriggerScheduled)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	expected := []string{models.CategoryLiveMusic, models.CategoryFestivalsEvents, models.CategoryLocalActivities}
	categories := report.Snapshot.Categories
	if len(categories) != len(expected) {
		t.Fatalf("Expected %d categories, got %d", len(expected), len(categories))
	}
	for i, name := range expected {
		if categories[i].Name != name {
			t.Errorf("Expected category %d to be %s, got %s", i, name, categories[i].Name)
		}
	}

	if report.Snapshot.TotalEvents != 3 {
		t.Errorf("Expected 3 events, got %d", report.Snapshot.TotalEvents)
	}
	if report.Snapshot.FormattedRange != "June 10, 2024 - June 16, 2024" {
		t.Errorf("Expected June 10-16 range, got %s", report.Snapshot.FormattedRange)
	}
	if report.Run.Status != models.RefreshStatusCompleted {
		t.Errorf("Expected completed status, got %s", report.Run.Status)
	}
	if len(writer.snapshots) != 1 || len(publisher.latest) != 1 || len(publisher.backups) != 1 {
		t.Errorf("Expected one write, publish and backup, got %d, %d, %d",
			len(writer.snapshots), len(publisher.latest), len(publisher.backups))
	}
	if len(publisher.runs) != 1 || publisher.runs[0].ID != report.Run.ID {
		t.Error("Expected refresh run to be uploaded")
	}
	if report.Snapshot.RunID != report.Run.ID {
		t.Errorf("Expected snapshot run ID %s, got %s", report.Run.ID, report.Snapshot.RunID)
	}
}

func TestWeeklyRefresher_RemovesDuplicates(t *testing.T) {
	first := &staticSource{name: SourceGeneratedListings, contribution: SourceContribution{
		Categories: []models.Category{{Name: models.CategoryLiveMusic, Events: []models.Event{
			event("The Nadas", "Friday, June 14", "Wooly's"),
			event("Slipknot Tribute", "Saturday, June 15", "Vaudeville Mews"),
		}}},
	}}
	second := &staticSource{name: SourceTicketmaster, contribution: SourceContribution{
		Categories: []models.Category{{Name: models.CategoryLiveMusic, Events: []models.Event{
			event("the nadas", "Friday,  June 14", "WOOLY'S"),
			event("Hoyt Sherman Jazz", "Sunday, June 16", "Hoyt Sherman Place"),
		}}},
	}}

	report, err := newTestRefresher([]ActivitySource{first, second}).Refresh(context.Background(), models.TriggerManual)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if report.Run.DuplicatesRemoved != 1 {
		t.Errorf("Expected 1 duplicate removed, got %d", report.Run.DuplicatesRemoved)
	}
	music := report.Snapshot.Categories[0]
	if len(music.Events) != 3 {
		t.Fatalf("Expected 3 music events, got %d", len(music.Events))
	}
	if music.Events[0].Name != "The Nadas" {
		t.Errorf("Expected first-seen copy to be kept, got %s", music.Events[0].Name)
	}
	if report.Run.TriggerType != models.TriggerManual {
		t.Errorf("Expected manual trigger, got %s", report.Run.TriggerType)
	}
}

func TestWeeklyRefresher_FailingSourceDegrades(t *testing.T) {
	good := &staticSource{name: SourceTicketmaster, contribution: SourceContribution{
		Categories: []models.Category{{Name: models.CategoryLiveMusic, Events: []models.Event{
			event("The Nadas", "June 14", "Wooly's"),
		}}},
	}}
	bad := &staticSource{
		name: SourceLocalActivities,
		err:  errors.New("quota exceeded"),
		contribution: SourceContribution{
			Categories: []models.Category{{Name: models.CategoryLocalActivities, Events: []models.Event{
				event("Should Not Appear", "June 14", "Nowhere"),
			}}},
		},
	}
	recorder := &recordingSourceRecorder{}

	report, err := newTestRefresher([]ActivitySource{good, bad}, WithSourceRecorder(recorder)).
		Refresh(context.Background(), models.TriggerScheduled)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	if report.Run.Status != models.RefreshStatusPartial {
		t.Errorf("Expected partial status, got %s", report.Run.Status)
	}
	if len(report.Snapshot.Categories) != 1 {
		t.Errorf("Expected only the good source's category, got %d", len(report.Snapshot.Categories))
	}
	if len(report.Snapshot.Sources) != 1 || report.Snapshot.Sources[0] != SourceTicketmaster {
		t.Errorf("Expected sources [ticketmaster], got %v", report.Snapshot.Sources)
	}
	if len(report.Run.Warnings) != 1 || !strings.Contains(report.Run.Warnings[0], "quota exceeded") {
		t.Errorf("Expected a warning for the failed source, got %v", report.Run.Warnings)
	}
	if len(recorder.results) != 2 {
		t.Errorf("Expected 2 recorded source results, got %d", len(recorder.results))
	}
}

func TestWeeklyRefresher_NoActivities(t *testing.T) {
	weather := &staticSource{name: SourceWeather, contribution: SourceContribution{
		Forecast: []models.WeatherDay{{Date: "Monday, June 10", Temp: models.Temperature{Min: 60, Max: 80}, Weather: "Clear"}},
	}}
	invalid := &staticSource{name: SourceTicketmaster, contribution: SourceContribution{
		Categories: []models.Category{{Name: models.CategoryLiveMusic, Events: []models.Event{
			{Name: "Event 1", Date: "TBD", Time: "TBD", Venue: "TBD"},
		}}},
	}}
	publisher := &recordingPublisher{}

	report, err := newTestRefresher([]ActivitySource{weather, invalid}, WithSnapshotPublisher(publisher)).
		Refresh(context.Background(), models.TriggerScheduled)
	if !errors.Is(err, ErrNoActivities) {
		t.Fatalf("Expected ErrNoActivities, got %v", err)
	}
	if report.Snapshot != nil {
		t.Error("Expected no snapshot")
	}
	if report.Run.Status != models.RefreshStatusFailed {
		t.Errorf("Expected failed status, got %s", report.Run.Status)
	}
	if report.Run.RejectedEvents != 1 {
		t.Errorf("Expected 1 rejected event, got %d", report.Run.RejectedEvents)
	}
	if len(publisher.latest) != 0 {
		t.Error("Expected nothing to be published")
	}
	if len(publisher.runs) != 1 {
		t.Error("Expected the failed run to be uploaded")
	}
}

func TestWeeklyRefresher_PlanningTips(t *testing.T) {
	listings := &staticSource{name: SourceGeneratedListings, contribution: SourceContribution{
		Categories: []models.Category{{Name: models.CategoryLiveMusic, Events: []models.Event{
			event("The Nadas", "June 14", "Wooly's"),
		}}},
		PlanningTips: []string{"Parking: Downtown parking is free on weekends.", "  "},
	}}
	weather := &staticSource{name: SourceWeather, contribution: SourceContribution{
		Forecast: []models.WeatherDay{
			{Date: "Monday, June 10", Temp: models.Temperature{Min: 65, Max: 90}, Weather: "Clear"},
			{Date: "Tuesday, June 11", Temp: models.Temperature{Min: 63, Max: 78}, Weather: "Rain", Precipitation: 70},
		},
	}}

	report, err := newTestRefresher([]ActivitySource{listings, weather},
		WithStaticTips([]string{"**Parking**: static", "**Parking**: static"})).
		Refresh(context.Background(), models.TriggerScheduled)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	tips := report.Snapshot.PlanningTips
	if len(tips) != 5 {
		t.Fatalf("Expected 5 tips, got %d: %v", len(tips), tips)
	}
	if tips[0] != "Parking: Downtown parking is free on weekends." {
		t.Errorf("Expected generated tip first, got %s", tips[0])
	}
	if !strings.HasPrefix(tips[1], "**Heat Advisory**") || !strings.Contains(tips[1], "on Monday.") {
		t.Errorf("Expected heat advisory second, got %s", tips[1])
	}
	if !strings.HasPrefix(tips[2], "**Rain Alert**") {
		t.Errorf("Expected rain alert third, got %s", tips[2])
	}
	if !strings.HasPrefix(tips[3], "**Weekly Weather**") {
		t.Errorf("Expected weekly weather fourth, got %s", tips[3])
	}
	if tips[4] != "**Parking**: static" {
		t.Errorf("Expected static tip last, got %s", tips[4])
	}
	if len(report.Snapshot.WeatherForecast) != 2 {
		t.Errorf("Expected forecast to be carried, got %d days", len(report.Snapshot.WeatherForecast))
	}
}

func TestWeeklyRefresher_Persistence(t *testing.T) {
	source := &staticSource{name: SourceTicketmaster, contribution: SourceContribution{
		Categories: []models.Category{{Name: models.CategoryLiveMusic, Events: []models.Event{
			event("The Nadas", "June 14", "Wooly's"),
		}}},
	}}

	t.Run("one store fails", func(t *testing.T) {
		writer := &recordingWriter{err: errors.New("table missing")}
		publisher := &recordingPublisher{}
		report, err := newTestRefresher([]ActivitySource{source},
			WithSnapshotWriter(writer), WithSnapshotPublisher(publisher)).
			Refresh(context.Background(), models.TriggerScheduled)
		if err != nil {
			t.Fatalf("Expected success while S3 works, got %v", err)
		}
		if report.Run.Status != models.RefreshStatusPartial {
			t.Errorf("Expected partial status, got %s", report.Run.Status)
		}
		if len(report.Run.Errors) != 1 {
			t.Errorf("Expected 1 run error, got %v", report.Run.Errors)
		}
	})

	t.Run("all stores fail", func(t *testing.T) {
		storeErr := errors.New("access denied")
		writer := &recordingWriter{err: storeErr}
		publisher := &recordingPublisher{err: storeErr}
		report, err := newTestRefresher([]ActivitySource{source},
			WithSnapshotWriter(writer), WithSnapshotPublisher(publisher)).
			Refresh(context.Background(), models.TriggerScheduled)
		if !errors.Is(err, storeErr) {
			t.Fatalf("Expected wrapped store error, got %v", err)
		}
		if report.Run.Status != models.RefreshStatusFailed {
			t.Errorf("Expected failed status, got %s", report.Run.Status)
		}
		if report.Snapshot == nil {
			t.Error("Expected snapshot to be returned for diagnostics")
		}
	})
}

func TestWeeklyRefresher_RunsSourcesConcurrently(t *testing.T) {
	var started sync.WaitGroup
	started.Add(2)
	release := make(chan struct{})
	go func() {
		started.Wait()
		close(release)
	}()

	wait := func() {
		started.Done()
		select {
		case <-release:
		case <-time.After(2 * time.Second):
		}
	}
	a := &staticSource{name: "a", before: wait, contribution: SourceContribution{
		Categories: []models.Category{{Name: models.CategoryLiveMusic, Events: []models.Event{event("A", "June 14", "Wooly's")}}},
	}}
	b := &staticSource{name: "b", before: wait, contribution: SourceContribution{
		Categories: []models.Category{{Name: models.CategoryLiveMusic, Events: []models.Event{event("B", "June 15", "Wooly's")}}},
	}}

	start := time.Now()
	if _, err := newTestRefresher([]ActivitySource{a, b}).Refresh(context.Background(), models.TriggerScheduled); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed >= 2*time.Second {
		t.Errorf("Expected sources to run concurrently, took %v", elapsed)
	}
}

func TestGeneratedListingsSource(t *testing.T) {
	gen := extraction.GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		return weeklyNewsletter, nil
	})
	source := NewGeneratedListingsSource(extraction.NewController(gen), 2)

	contribution, err := source.Fetch(context.Background(), refreshWeek())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if contribution.EventCount() != 3 {
		t.Errorf("Expected 3 events, got %d", contribution.EventCount())
	}
	if contribution.Attempts != 1 {
		t.Errorf("Expected 1 attempt, got %d", contribution.Attempts)
	}
	if len(contribution.PlanningTips) != 1 || contribution.PlanningTips[0] != "Parking: Downtown parking is free on weekends." {
		t.Errorf("Expected parsed planning tip, got %v", contribution.PlanningTips)
	}
	if contribution.RawResponse != weeklyNewsletter {
		t.Error("Expected raw response to be kept")
	}
}

func TestGeneratedListingsSource_InsufficientYield(t *testing.T) {
	gen := extraction.GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		return sparseNewsletter, nil
	})
	source := NewGeneratedListingsSource(extraction.NewController(gen), 1)

	contribution, err := source.Fetch(context.Background(), refreshWeek())
	if !errors.Is(err, extraction.ErrInsufficientYield) {
		t.Fatalf("Expected ErrInsufficientYield, got %v", err)
	}
	if contribution.Attempts != 2 {
		t.Errorf("Expected 2 attempts, got %d", contribution.Attempts)
	}
	if contribution.Rejected != 1 {
		t.Errorf("Expected 1 rejected event, got %d", contribution.Rejected)
	}
}

type fakeEventFetcher struct {
	events []CategorizedEvent
}

func (f fakeEventFetcher) FetchEvents(ctx context.Context, week models.WeekRange) ([]CategorizedEvent, error) {
	return f.events, nil
}

func TestTicketmasterSource_GroupsByCategory(t *testing.T) {
	source := NewTicketmasterSource(fakeEventFetcher{events: []CategorizedEvent{
		{Category: models.CategoryFestivalsEvents, Event: event("Iowa Cubs", "June 14", "Principal Park")},
		{Category: models.CategoryLiveMusic, Event: event("The Nadas", "June 14", "Wooly's")},
		{Category: models.CategoryFestivalsEvents, Event: event("Arts Festival", "June 15", "Western Gateway Park")},
	}})

	contribution, err := source.Fetch(context.Background(), refreshWeek())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(contribution.Categories) != 2 {
		t.Fatalf("Expected 2 categories, got %d", len(contribution.Categories))
	}
	if contribution.Categories[0].Name != models.CategoryFestivalsEvents || len(contribution.Categories[0].Events) != 2 {
		t.Errorf("Expected 2 festival events first, got %+v", contribution.Categories[0])
	}
}
