package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	lambdaclient "github.com/aws/aws-sdk-go-v2/service/lambda"

	"desmoines-weekly-events/internal/api"
	"desmoines-weekly-events/internal/config"
	"desmoines-weekly-events/internal/services"
)

var handler *api.Handler

func init() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.TODO(), awsconfig.WithRegion(cfg.Storage.Region))
	if err != nil {
		log.Fatalf("Failed to load AWS config: %v", err)
	}

	dynamoService := services.NewDynamoDBService(
		dynamodb.NewFromConfig(awsCfg),
		cfg.Storage.SnapshotsTable,
		cfg.Storage.SubscriptionsTable,
	)

	deps := api.Dependencies{
		Snapshots:     dynamoService,
		Subscriptions: services.NewSubscriptionService(dynamoService),
		Location:      cfg.Location(),
	}
	if cfg.Storage.Bucket != "" {
		deps.Live = services.NewS3Client(awsCfg, cfg.Storage.Bucket)
	} else {
		log.Printf("[API] S3_BUCKET_NAME not set, live data disabled")
	}
	if cfg.Lambda.RefreshFunctionName != "" {
		deps.Refresh = services.NewLambdaRefreshTrigger(lambdaclient.NewFromConfig(awsCfg), cfg.Lambda.RefreshFunctionName)
	}

	handler = api.NewHandler(deps)
	log.Printf("API initialized for %s", cfg.Region.Area())
}

func main() {
	lambda.Start(handler.HandleGatewayRequest)
}
