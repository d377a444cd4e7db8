package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"desmoines-weekly-events/internal/models"
)

// memoryS3 is an in-memory S3API
type memoryS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	meta    map[string]*s3.PutObjectInput
	putErr  error
}

func newMemoryS3() *memoryS3 {
	return &memoryS3{objects: map[string][]byte{}, meta: map[string]*s3.PutObjectInput{}}
}

func (m *memoryS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.putErr != nil {
		return nil, m.putErr
	}
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[*params.Key] = data
	m.meta[*params.Key] = params
	return &s3.PutObjectOutput{ETag: aws.String(`"abc123"`)}, nil
}

func (m *memoryS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[*params.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (m *memoryS3) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for k := range m.objects {
		keys = append(keys, k)
	}
	return keys
}

func testSnapshot() *models.WeeklySnapshot {
	week := models.CurrentWeek(time.Date(2024, 6, 12, 12, 0, 0, 0, time.UTC))
	return &models.WeeklySnapshot{
		WeekStartDate:  week.Start,
		WeekEndDate:    week.End,
		FormattedRange: week.FormattedRange(),
		FetchedAt:      time.Date(2024, 6, 10, 6, 0, 0, 0, time.UTC),
		Categories: []models.Category{{
			Name:   models.CategoryLiveMusic,
			Events: []models.Event{{Name: "The Nadas", Date: "Friday, June 14", Time: "8 PM", Venue: "Wooly's"}},
		}},
		PlanningTips: []string{"Parking: Free on weekends."},
		TotalEvents:  1,
		RawResponse:  "raw text",
	}
}

func TestS3Client_SnapshotRoundTrip(t *testing.T) {
	store := newMemoryS3()
	client := NewS3ClientWithAPI(store, "events-bucket", "us-east-2")
	ctx := context.Background()

	result, err := client.UploadLatestSnapshot(ctx, testSnapshot())
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if result.Key != LatestSnapshotKey || result.ETag != "abc123" {
		t.Errorf("Unexpected upload result %+v", result)
	}
	if result.PublicURL != "https://events-bucket.s3.us-east-2.amazonaws.com/activities/latest.json" {
		t.Errorf("Unexpected public URL %s", result.PublicURL)
	}
	if *store.meta[LatestSnapshotKey].CacheControl != "public, max-age=300" {
		t.Errorf("Expected short cache on latest snapshot, got %s", *store.meta[LatestSnapshotKey].CacheControl)
	}

	var raw map[string]interface{}
	json.Unmarshal(store.objects[LatestSnapshotKey], &raw)
	if _, ok := raw["RawResponse"]; ok {
		t.Error("Expected raw response to be left out of the published JSON")
	}

	snapshot, err := client.DownloadLatestSnapshot(ctx)
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	if snapshot.FormattedRange != "June 10, 2024 - June 16, 2024" || len(snapshot.Categories) != 1 {
		t.Errorf("Unexpected snapshot %+v", snapshot)
	}
	if snapshot.Categories[0].Events[0].Venue != "Wooly's" {
		t.Errorf("Expected event to survive round trip, got %+v", snapshot.Categories[0].Events[0])
	}
}

func TestS3Client_BackupAndRunKeys(t *testing.T) {
	store := newMemoryS3()
	client := NewS3ClientWithAPI(store, "events-bucket", "us-east-2")
	ctx := context.Background()

	backup, err := client.BackupSnapshot(ctx, testSnapshot())
	if err != nil {
		t.Fatalf("Backup failed: %v", err)
	}
	if backup.Key != "activities/backups/2024-06-10T06-00-00Z.json" {
		t.Errorf("Unexpected backup key %s", backup.Key)
	}

	run := &models.RefreshRun{ID: "run_1", StartedAt: time.Date(2024, 6, 10, 6, 0, 5, 0, time.UTC), Status: models.RefreshStatusCompleted}
	uploaded, err := client.UploadRefreshRun(ctx, run)
	if err != nil {
		t.Fatalf("Run upload failed: %v", err)
	}
	if uploaded.Key != "refresh-runs/2024-06-10T06-00-05Z.json" {
		t.Errorf("Unexpected run key %s", uploaded.Key)
	}
	if len(store.keys()) != 2 {
		t.Errorf("Expected 2 objects, got %v", store.keys())
	}
}

func TestS3Client_Errors(t *testing.T) {
	store := newMemoryS3()
	client := NewS3ClientWithAPI(store, "events-bucket", "us-east-2")

	if _, err := client.DownloadLatestSnapshot(context.Background()); !errors.Is(err, ErrSnapshotNotFound) {
		t.Errorf("Expected ErrSnapshotNotFound, got %v", err)
	}

	store.putErr = errors.New("access denied")
	if _, err := client.UploadLatestSnapshot(context.Background(), testSnapshot()); err == nil {
		t.Error("Expected upload error")
	}
}
