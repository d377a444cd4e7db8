package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	lambdaclient "github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"desmoines-weekly-events/internal/api"
	"desmoines-weekly-events/internal/config"
	"desmoines-weekly-events/internal/services"
)

// Options are the command line flags
type Options struct {
	Local bool `short:"l" long:"local" description:"Serve without AWS, keeping subscriptions in memory"`
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

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps := api.Dependencies{Location: cfg.Location()}
	if !opts.Local {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Storage.Region))
		if err != nil {
			log.Fatalf("Failed to load AWS config: %v", err)
		}
		dynamoService := services.NewDynamoDBService(
			dynamodb.NewFromConfig(awsCfg),
			cfg.Storage.SnapshotsTable,
			cfg.Storage.SubscriptionsTable,
		)
		deps.Snapshots = dynamoService
		deps.Subscriptions = services.NewSubscriptionService(dynamoService)
		if cfg.Storage.Bucket != "" {
			deps.Live = services.NewS3Client(awsCfg, cfg.Storage.Bucket)
		}
		if cfg.Lambda.RefreshFunctionName != "" {
			deps.Refresh = services.NewLambdaRefreshTrigger(lambdaclient.NewFromConfig(awsCfg), cfg.Lambda.RefreshFunctionName)
		}
	} else {
		log.Printf("[SERVER] AWS disabled, subscriptions are kept in memory")
		deps.Subscriptions = services.NewSubscriptionService(services.NewMemorySubscriptionStore())
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	router := api.NewRouter(api.NewHandler(deps), promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: router,
	}

	go func() {
		log.Printf("[SERVER] Listening on %s", cfg.HTTP.Address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("[SERVER] Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[SERVER] Graceful shutdown failed: %v", err)
	}
}
