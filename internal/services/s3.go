package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"desmoines-weekly-events/internal/models"
)

// S3 object keys
const (
	LatestSnapshotKey = "activities/latest.json"
	backupPrefix      = "activities/backups/"
	refreshRunPrefix  = "refresh-runs/"
)

// S3API is the subset of the S3 client used here
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Client publishes weekly snapshots and refresh runs as JSON
type S3Client struct {
	client     S3API
	bucketName string
	region     string
}

// S3UploadResult represents the result of an S3 upload operation
type S3UploadResult struct {
	Key         string    `json:"key"`
	ETag        string    `json:"etag"`
	Size        int64     `json:"size"`
	UploadedAt  time.Time `json:"uploaded_at"`
	ContentType string    `json:"content_type"`
	PublicURL   string    `json:"public_url"`
}

// NewS3Client creates an S3 client from an AWS config
func NewS3Client(cfg aws.Config, bucketName string) *S3Client {
	return NewS3ClientWithAPI(s3.NewFromConfig(cfg), bucketName, cfg.Region)
}

// NewS3ClientWithAPI wraps an existing S3 API implementation
func NewS3ClientWithAPI(api S3API, bucketName, region string) *S3Client {
	return &S3Client{client: api, bucketName: bucketName, region: region}
}

// UploadLatestSnapshot replaces the snapshot the front end reads
func (s *S3Client) UploadLatestSnapshot(ctx context.Context, snapshot *models.WeeklySnapshot) (*S3UploadResult, error) {
	return s.uploadJSON(ctx, LatestSnapshotKey, snapshot, "public, max-age=300")
}

// BackupSnapshot stores a timestamped copy of a snapshot
func (s *S3Client) BackupSnapshot(ctx context.Context, snapshot *models.WeeklySnapshot) (*S3UploadResult, error) {
	key := backupPrefix + timestampKey(snapshot.FetchedAt) + ".json"
	return s.uploadJSON(ctx, key, snapshot, "no-cache")
}

// UploadRefreshRun stores the summary of a refresh run
func (s *S3Client) UploadRefreshRun(ctx context.Context, run *models.RefreshRun) (*S3UploadResult, error) {
	key := refreshRunPrefix + timestampKey(run.StartedAt) + ".json"
	return s.uploadJSON(ctx, key, run, "no-cache")
}

// DownloadLatestSnapshot reads the published snapshot
func (s *S3Client) DownloadLatestSnapshot(ctx context.Context) (*models.WeeklySnapshot, error) {
	data, err := s.downloadJSON(ctx, LatestSnapshotKey)
	if err != nil {
		return nil, err
	}

	var snapshot models.WeeklySnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot JSON: %w", err)
	}
	return &snapshot, nil
}

// GetPublicURL returns the public URL for a key
func (s *S3Client) GetPublicURL(key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucketName, s.region, strings.TrimPrefix(key, "/"))
}

func (s *S3Client) uploadJSON(ctx context.Context, key string, v interface{}, cacheControl string) (*S3UploadResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s to JSON: %w", key, err)
	}

	const contentType = "application/json"
	result, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.bucketName),
		Key:          aws.String(key),
		Body:         bytes.NewReader(data),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String(cacheControl),
		Metadata: map[string]string{
			"uploaded-by": "desmoines-weekly-events",
			"upload-time": time.Now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload %s to S3: %w", key, err)
	}

	etag := ""
	if result.ETag != nil {
		etag = strings.Trim(*result.ETag, `"`)
	}
	return &S3UploadResult{
		Key:         key,
		ETag:        etag,
		Size:        int64(len(data)),
		UploadedAt:  time.Now(),
		ContentType: contentType,
		PublicURL:   s.GetPublicURL(key),
	}, nil
}

func (s *S3Client) downloadJSON(ctx context.Context, key string) ([]byte, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, fmt.Errorf("%s: %w", key, ErrSnapshotNotFound)
		}
		return nil, fmt.Errorf("failed to download %s from S3: %w", key, err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read S3 object body: %w", err)
	}
	return data, nil
}

func timestampKey(t time.Time) string {
	return t.UTC().Format("2006-01-02T15-04-05Z")
}
