package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"desmoines-weekly-events/internal/models"
)

// DynamoDBAPI is the subset of the DynamoDB client used here
type DynamoDBAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

// DynamoDBService stores weekly snapshots and newsletter subscriptions
type DynamoDBService struct {
	client             DynamoDBAPI
	snapshotsTable     string
	subscriptionsTable string
}

// NewDynamoDBService creates a new DynamoDB service instance
func NewDynamoDBService(client DynamoDBAPI, snapshotsTable, subscriptionsTable string) *DynamoDBService {
	return &DynamoDBService{
		client:             client,
		snapshotsTable:     snapshotsTable,
		subscriptionsTable: subscriptionsTable,
	}
}

// Weekly snapshot operations

// PutSnapshot stores the snapshot for its week, replacing any earlier one
func (s *DynamoDBService) PutSnapshot(ctx context.Context, snapshot *models.WeeklySnapshot) error {
	week := models.WeekRange{Start: snapshot.WeekStartDate, End: snapshot.WeekEndDate}
	snapshot.PK = models.WeekPK(week)
	snapshot.SK = models.SnapshotSK

	item, err := attributevalue.MarshalMap(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.snapshotsTable),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to store snapshot: %w", err)
	}
	return nil
}

// GetSnapshotForWeek retrieves the snapshot stored for a week
func (s *DynamoDBService) GetSnapshotForWeek(ctx context.Context, week models.WeekRange) (*models.WeeklySnapshot, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.snapshotsTable),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: models.WeekPK(week)},
			"SK": &types.AttributeValueMemberS{Value: models.SnapshotSK},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}
	if result.Item == nil {
		return nil, fmt.Errorf("week %s: %w", week.Key(), ErrSnapshotNotFound)
	}

	var snapshot models.WeeklySnapshot
	if err := attributevalue.UnmarshalMap(result.Item, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &snapshot, nil
}

// Subscription operations

// CreateSubscription stores a subscription unless the email already exists
func (s *DynamoDBService) CreateSubscription(ctx context.Context, sub *models.Subscription) error {
	sub.PK = models.SubscriptionPK(sub.Email)
	sub.SK = models.SubscriptionSK
	if sub.SubscribedAt.IsZero() {
		sub.SubscribedAt = time.Now()
	}

	item, err := attributevalue.MarshalMap(sub)
	if err != nil {
		return fmt.Errorf("failed to marshal subscription: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.subscriptionsTable),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			return ErrAlreadySubscribed
		}
		return fmt.Errorf("failed to create subscription: %w", err)
	}
	return nil
}

// GetSubscription retrieves a subscription by email
func (s *DynamoDBService) GetSubscription(ctx context.Context, email string) (*models.Subscription, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.subscriptionsTable),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: models.SubscriptionPK(email)},
			"SK": &types.AttributeValueMemberS{Value: models.SubscriptionSK},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	if result.Item == nil {
		return nil, fmt.Errorf("subscription for %s not found", strings.ToLower(email))
	}

	var sub models.Subscription
	if err := attributevalue.UnmarshalMap(result.Item, &sub); err != nil {
		return nil, fmt.Errorf("failed to unmarshal subscription: %w", err)
	}
	return &sub, nil
}
