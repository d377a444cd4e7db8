package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/jessevdk/go-flags"

	"desmoines-weekly-events/internal/config"
	"desmoines-weekly-events/internal/models"
	"desmoines-weekly-events/internal/services"
)

// RefreshResponse represents the function response
type RefreshResponse struct {
	Success           bool                  `json:"success"`
	Message           string                `json:"message"`
	RefreshRunID      string                `json:"refresh_run_id"`
	Status            string                `json:"status"`
	TotalEvents       int                   `json:"total_events"`
	DuplicatesRemoved int                   `json:"duplicates_removed"`
	RejectedEvents    int                   `json:"rejected_events"`
	ProcessingTime    int64                 `json:"processing_time_ms"`
	Sources           []models.SourceResult `json:"sources"`
	Errors            []string              `json:"errors,omitempty"`
}

var (
	refresher *services.WeeklyRefresher
	metrics   *services.ExtractionMetrics
)

func setup(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	metrics = services.NewExtractionMetrics(nil)
	sources, err := services.BuildSources(ctx, cfg, metrics)
	if err != nil {
		return err
	}

	opts := []services.RefresherOption{
		services.WithValidatorConfig(cfg.ExtractionSettings()),
		services.WithLocation(cfg.Location()),
		services.WithSourceRecorder(metrics),
	}

	if cfg.Storage.Bucket != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Storage.Region))
		if err != nil {
			return fmt.Errorf("failed to load AWS config: %w", err)
		}
		opts = append(opts,
			services.WithSnapshotPublisher(services.NewS3Client(awsCfg, cfg.Storage.Bucket)),
			services.WithSnapshotWriter(services.NewDynamoDBService(
				dynamodb.NewFromConfig(awsCfg),
				cfg.Storage.SnapshotsTable,
				cfg.Storage.SubscriptionsTable,
			)),
		)
	} else {
		log.Printf("[REFRESH] S3_BUCKET_NAME not set, snapshots will not be persisted")
	}

	refresher = services.NewWeeklyRefresher(sources, opts...)
	return nil
}

// HandleRefreshEvent runs one weekly refresh
func HandleRefreshEvent(ctx context.Context, event models.RefreshEvent) (RefreshResponse, error) {
	report, err := refresher.Refresh(ctx, event.Trigger())
	run := report.Run

	response := RefreshResponse{
		Success:           err == nil,
		RefreshRunID:      run.ID,
		Status:            run.Status,
		TotalEvents:       run.TotalEvents,
		DuplicatesRemoved: run.DuplicatesRemoved,
		RejectedEvents:    run.RejectedEvents,
		ProcessingTime:    run.Duration,
		Sources:           run.Sources,
		Errors:            run.Errors,
	}

	summary := metrics.Summary()
	log.Printf("[METRICS] attempts=%d accepted=%d retries=%d failed=%d rejected=%d",
		summary.Attempts, summary.Accepted, summary.Retries, summary.Failed, summary.Rejected)

	if err != nil {
		response.Message = fmt.Sprintf("Weekly refresh failed: %v", err)
		return response, err
	}
	response.Message = fmt.Sprintf("Refreshed %d events for %s", run.TotalEvents, report.Snapshot.FormattedRange)
	return response, nil
}

// Options are the command line flags for local runs
type Options struct {
	Out string `short:"o" long:"out" description:"Write the snapshot JSON to this file instead of stdout"`
}

func parseOptions(args []string) (Options, error) {
	var opts Options
	_, err := flags.ParseArgs(&opts, args)
	return opts, err
}

func main() {
	opts, err := parseOptions(os.Args[1:])
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	ctx := context.Background()
	if err := setup(ctx); err != nil {
		log.Fatalf("Failed to initialize weekly refresh: %v", err)
	}

	if os.Getenv("AWS_LAMBDA_RUNTIME_API") != "" {
		lambda.Start(HandleRefreshEvent)
		return
	}

	// Local run
	ctx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()

	report, err := refresher.Refresh(ctx, models.TriggerManual)
	if err != nil {
		log.Fatalf("Weekly refresh failed: %v", err)
	}

	data, err := json.MarshalIndent(report.Snapshot, "", "  ")
	if err != nil {
		log.Fatalf("Failed to marshal snapshot: %v", err)
	}
	if opts.Out == "" {
		fmt.Println(string(data))
		return
	}
	if err := os.WriteFile(opts.Out, data, 0o644); err != nil {
		log.Fatalf("Failed to write %s: %v", opts.Out, err)
	}
	log.Printf("Snapshot written to %s", opts.Out)
}
