package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"

	"desmoines-weekly-events/internal/extraction"
	"desmoines-weekly-events/internal/models"
)

// DefaultStaticTips are appended to every snapshot's planning tips
var DefaultStaticTips = []string{
	"**Parking**: Downtown parking is free on weekends. For the Arts Festival, consider using the free shuttle service from downtown parking garages. Principal Park has paid parking lots nearby for $10.",
	"**Family-Friendly Notes**: The Arts Festival has a dedicated kids' zone with activities throughout the day. The Farmers Market can get crowded with strollers, so consider baby carriers for small children. Ankeny SummerFest has a family day on Saturday with special activities for children.",
}

// SnapshotWriter stores the current week's snapshot
type SnapshotWriter interface {
	PutSnapshot(ctx context.Context, snapshot *models.WeeklySnapshot) error
}

// SnapshotPublisher publishes snapshots and refresh run records
type SnapshotPublisher interface {
	UploadLatestSnapshot(ctx context.Context, snapshot *models.WeeklySnapshot) (*S3UploadResult, error)
	BackupSnapshot(ctx context.Context, snapshot *models.WeeklySnapshot) (*S3UploadResult, error)
	UploadRefreshRun(ctx context.Context, run *models.RefreshRun) (*S3UploadResult, error)
}

// SourceRecorder receives per-source refresh results
type SourceRecorder interface {
	RecordSource(result models.SourceResult)
}

// WeeklyRefresher gathers every source for the current week, merges and
// validates the events and persists the resulting snapshot.
type WeeklyRefresher struct {
	sources    []ActivitySource
	validator  *extraction.Validator
	writer     SnapshotWriter
	publisher  SnapshotPublisher
	recorder   SourceRecorder
	staticTips []string
	location   *time.Location
	now        func() time.Time
}

// RefresherOption configures a WeeklyRefresher
type RefresherOption func(*WeeklyRefresher)

// WithSnapshotWriter stores snapshots in w (typically DynamoDB)
func WithSnapshotWriter(w SnapshotWriter) RefresherOption {
	return func(r *WeeklyRefresher) { r.writer = w }
}

// WithSnapshotPublisher publishes snapshots through p (typically S3)
func WithSnapshotPublisher(p SnapshotPublisher) RefresherOption {
	return func(r *WeeklyRefresher) { r.publisher = p }
}

// WithSourceRecorder reports each source result to rec
func WithSourceRecorder(rec SourceRecorder) RefresherOption {
	return func(r *WeeklyRefresher) { r.recorder = rec }
}

// WithValidatorConfig validates merged events with cfg
func WithValidatorConfig(cfg extraction.Config) RefresherOption {
	return func(r *WeeklyRefresher) { r.validator = extraction.NewValidator(cfg) }
}

// WithStaticTips replaces the static planning tips
func WithStaticTips(tips []string) RefresherOption {
	return func(r *WeeklyRefresher) { r.staticTips = tips }
}

// WithLocation computes the week in loc
func WithLocation(loc *time.Location) RefresherOption {
	return func(r *WeeklyRefresher) {
		if loc != nil {
			r.location = loc
		}
	}
}

// WithClock overrides the current time
func WithClock(now func() time.Time) RefresherOption {
	return func(r *WeeklyRefresher) { r.now = now }
}

// NewWeeklyRefresher creates a refresher over sources
func NewWeeklyRefresher(sources []ActivitySource, opts ...RefresherOption) *WeeklyRefresher {
	r := &WeeklyRefresher{
		sources:    sources,
		validator:  extraction.NewValidator(extraction.DefaultConfig()),
		staticTips: DefaultStaticTips,
		location:   time.Local,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RefreshReport is the result of one refresh. Run is always set.
type RefreshReport struct {
	Snapshot *models.WeeklySnapshot
	Run      *models.RefreshRun
}

type sourceOutcome struct {
	contribution SourceContribution
	result       models.SourceResult
}

// Refresh runs one weekly refresh
func (r *WeeklyRefresher) Refresh(ctx context.Context, triggerType string) (*RefreshReport, error) {
	startTime := r.now().In(r.location)
	week := models.CurrentWeek(startTime)

	run := &models.RefreshRun{
		ID:          models.GenerateRefreshRunID(startTime),
		StartedAt:   startTime,
		Status:      models.RefreshStatusRunning,
		TriggerType: triggerType,
		WeekStart:   week.Key(),
	}
	report := &RefreshReport{Run: run}

	log.Printf("[REFRESH] Starting %s refresh %s for %s", triggerType, run.ID, week.FormattedRange())

	outcomes := r.fetchAll(ctx, week)
	for _, o := range outcomes {
		run.Sources = append(run.Sources, o.result)
		if !o.result.Success {
			run.Warnings = append(run.Warnings, fmt.Sprintf("%s: %s", o.result.Name, o.result.Error))
		}
		if r.recorder != nil {
			r.recorder.RecordSource(o.result)
		}
	}

	merged, duplicates := mergeContributions(outcomes)
	result, rejected := r.validator.Validate(merged)
	run.DuplicatesRemoved = duplicates
	run.RejectedEvents = len(rejected)
	run.TotalEvents = result.TotalEvents()
	for _, rej := range rejected {
		log.Printf("[VALIDATE] Rejected %q in %s (missing %s)", rej.Event.Name, rej.Category, strings.Join(rej.Missing, ", "))
	}

	if run.TotalEvents == 0 {
		run.Errors = append(run.Errors, ErrNoActivities.Error())
		r.finish(ctx, run, models.RefreshStatusFailed)
		return report, ErrNoActivities
	}

	forecast := firstForecast(outcomes)
	snapshot := &models.WeeklySnapshot{
		WeekStartDate:   week.Start,
		WeekEndDate:     week.End,
		FormattedRange:  week.FormattedRange(),
		FetchedAt:       r.now().UTC(),
		Categories:      result.Categories,
		PlanningTips:    r.planningTips(outcomes, forecast),
		WeatherForecast: forecast,
		Sources: lo.FilterMap(outcomes, func(o sourceOutcome, _ int) (string, bool) {
			return o.result.Name, o.result.Success
		}),
		TotalEvents: run.TotalEvents,
		RawResponse: generatedRawResponse(outcomes),
		RunID:       run.ID,
	}
	report.Snapshot = snapshot

	persistErr := r.persist(ctx, snapshot, run)

	status := models.RefreshStatusCompleted
	if len(run.Warnings) > 0 || len(run.Errors) > 0 {
		status = models.RefreshStatusPartial
	}
	if persistErr != nil {
		status = models.RefreshStatusFailed
	}
	r.finish(ctx, run, status)

	if persistErr != nil {
		return report, persistErr
	}
	log.Printf("[REFRESH] Completed %s: %d events in %d categories, %d duplicates removed, %d rejected",
		run.ID, run.TotalEvents, len(snapshot.Categories), run.DuplicatesRemoved, run.RejectedEvents)
	return report, nil
}

// fetchAll runs every source concurrently. A failing source contributes nothing.
func (r *WeeklyRefresher) fetchAll(ctx context.Context, week models.WeekRange) []sourceOutcome {
	outcomes := make([]sourceOutcome, len(r.sources))

	var wg sync.WaitGroup
	for i, src := range r.sources {
		wg.Add(1)
		go func(i int, src ActivitySource) {
			defer wg.Done()

			start := time.Now()
			contribution, err := src.Fetch(ctx, week)
			result := models.SourceResult{
				Name:     src.Name(),
				Duration: time.Since(start).Milliseconds(),
				Attempts: contribution.Attempts,
				Rejected: contribution.Rejected,
			}
			if err != nil {
				log.Printf("[REFRESH] Source %s failed: %v", src.Name(), err)
				result.Error = err.Error()
				// keep diagnostics but drop any partial data
				contribution = SourceContribution{RawResponse: contribution.RawResponse}
			} else {
				result.Success = true
				result.EventsFound = contribution.EventCount()
				log.Printf("[REFRESH] Source %s returned %d events in %dms", src.Name(), result.EventsFound, result.Duration)
			}
			outcomes[i] = sourceOutcome{contribution: contribution, result: result}
		}(i, src)
	}
	wg.Wait()

	return outcomes
}

// persist writes the snapshot to every configured store. It fails only when
// all configured stores fail.
func (r *WeeklyRefresher) persist(ctx context.Context, snapshot *models.WeeklySnapshot, run *models.RefreshRun) error {
	var errs []error
	stores := 0

	if r.writer != nil {
		stores++
		if err := r.writer.PutSnapshot(ctx, snapshot); err != nil {
			errs = append(errs, fmt.Errorf("failed to store snapshot: %w", err))
		}
	}

	if r.publisher != nil {
		stores++
		if _, err := r.publisher.UploadLatestSnapshot(ctx, snapshot); err != nil {
			errs = append(errs, fmt.Errorf("failed to publish latest snapshot: %w", err))
		} else if _, err := r.publisher.BackupSnapshot(ctx, snapshot); err != nil {
			// latest is already published, so a failed backup only warns
			run.Warnings = append(run.Warnings, fmt.Sprintf("backup: %v", err))
		}
	}

	for _, err := range errs {
		log.Printf("[REFRESH] %v", err)
		run.Errors = append(run.Errors, err.Error())
	}
	if stores > 0 && len(errs) == stores {
		return errors.Join(errs...)
	}
	if stores == 0 {
		log.Printf("[REFRESH] No snapshot store configured, snapshot not persisted")
	}
	return nil
}

func (r *WeeklyRefresher) finish(ctx context.Context, run *models.RefreshRun, status string) {
	run.Status = status
	run.CompletedAt = r.now().In(r.location)
	run.Duration = run.CompletedAt.Sub(run.StartedAt).Milliseconds()

	if r.publisher == nil {
		return
	}
	if _, err := r.publisher.UploadRefreshRun(ctx, run); err != nil {
		log.Printf("[REFRESH] Failed to upload refresh run %s: %v", run.ID, err)
	}
}

// planningTips combines generated tips, weather tips and the static tips,
// dropping exact repeats.
func (r *WeeklyRefresher) planningTips(outcomes []sourceOutcome, forecast []models.WeatherDay) []string {
	var tips []string
	for _, o := range outcomes {
		tips = append(tips, o.contribution.PlanningTips...)
	}
	tips = append(tips, extraction.WeatherTips(forecast)...)
	tips = append(tips, r.staticTips...)

	tips = lo.FilterMap(tips, func(tip string, _ int) (string, bool) {
		tip = strings.TrimSpace(tip)
		return tip, tip != ""
	})
	return lo.Uniq(tips)
}

// mergeContributions merges categories from every source. Live Music and
// Festivals & Events come first, other categories follow in first-seen order.
// Events repeated by name, date and venue are kept once.
func mergeContributions(outcomes []sourceOutcome) (models.ExtractionResult, int) {
	order := []string{models.CategoryLiveMusic, models.CategoryFestivalsEvents}
	events := make(map[string][]models.Event)
	for _, o := range outcomes {
		for _, cat := range o.contribution.Categories {
			name := canonicalCategory(cat.Name)
			if !lo.Contains(order, name) {
				order = append(order, name)
			}
			events[name] = append(events[name], cat.Events...)
		}
	}

	seen := make(map[string]bool)
	duplicates := 0
	var merged models.ExtractionResult
	for _, name := range order {
		var kept []models.Event
		for _, e := range events[name] {
			key := models.GenerateEventKey(e.Name, e.Date, e.Venue)
			if seen[key] {
				duplicates++
				continue
			}
			seen[key] = true
			kept = append(kept, e)
		}
		if len(kept) > 0 {
			merged.Categories = append(merged.Categories, models.Category{Name: name, Events: kept})
		}
	}
	return merged, duplicates
}

// canonicalCategory folds case variants onto the known category names
func canonicalCategory(name string) string {
	known := []string{
		models.CategoryLiveMusic,
		models.CategoryFestivalsEvents,
		models.CategoryLocalActivities,
		models.CategoryOtherEvents,
	}
	if match, ok := lo.Find(known, func(k string) bool { return strings.EqualFold(k, strings.TrimSpace(name)) }); ok {
		return match
	}
	return strings.TrimSpace(name)
}

func firstForecast(outcomes []sourceOutcome) []models.WeatherDay {
	for _, o := range outcomes {
		if len(o.contribution.Forecast) > 0 {
			return o.contribution.Forecast
		}
	}
	return nil
}

func generatedRawResponse(outcomes []sourceOutcome) string {
	for _, o := range outcomes {
		if o.result.Name == SourceGeneratedListings {
			return o.contribution.RawResponse
		}
	}
	return ""
}
