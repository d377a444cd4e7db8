package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"desmoines-weekly-events/internal/models"
)

// memoryDynamoDB is an in-memory DynamoDBAPI keyed by table, PK and SK
type memoryDynamoDB struct {
	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue
	err   error
}

func newMemoryDynamoDB() *memoryDynamoDB {
	return &memoryDynamoDB{items: map[string]map[string]types.AttributeValue{}}
}

func itemKey(table string, item map[string]types.AttributeValue) string {
	pk := item["PK"].(*types.AttributeValueMemberS).Value
	sk := item["SK"].(*types.AttributeValueMemberS).Value
	return table + "|" + pk + "|" + sk
}

func (m *memoryDynamoDB) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := itemKey(*params.TableName, params.Item)
	if params.ConditionExpression != nil && *params.ConditionExpression == "attribute_not_exists(PK)" {
		if _, exists := m.items[key]; exists {
			return nil, &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
		}
	}
	m.items[key] = params.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (m *memoryDynamoDB) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return &dynamodb.GetItemOutput{Item: m.items[itemKey(*params.TableName, params.Key)]}, nil
}

func TestDynamoDBService_SnapshotRoundTrip(t *testing.T) {
	db := NewDynamoDBService(newMemoryDynamoDB(), "snapshots", "subscriptions")
	ctx := context.Background()
	snapshot := testSnapshot()

	if err := db.PutSnapshot(ctx, snapshot); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if snapshot.PK != "WEEK#2024-06-10" || snapshot.SK != models.SnapshotSK {
		t.Errorf("Expected keys to be populated, got %s / %s", snapshot.PK, snapshot.SK)
	}

	week := models.CurrentWeek(time.Date(2024, 6, 14, 9, 0, 0, 0, time.UTC))
	stored, err := db.GetSnapshotForWeek(ctx, week)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if stored.RawResponse != "raw text" {
		t.Errorf("Expected raw response stored, got %q", stored.RawResponse)
	}
	if len(stored.Categories) != 1 || stored.Categories[0].Events[0].Name != "The Nadas" {
		t.Errorf("Unexpected categories %+v", stored.Categories)
	}
	if !stored.WeekStartDate.Equal(snapshot.WeekStartDate) {
		t.Errorf("Expected week start %v, got %v", snapshot.WeekStartDate, stored.WeekStartDate)
	}

	nextWeek := models.CurrentWeek(time.Date(2024, 6, 18, 9, 0, 0, 0, time.UTC))
	if _, err := db.GetSnapshotForWeek(ctx, nextWeek); !errors.Is(err, ErrSnapshotNotFound) {
		t.Errorf("Expected ErrSnapshotNotFound, got %v", err)
	}
}

func TestDynamoDBService_Subscriptions(t *testing.T) {
	db := NewDynamoDBService(newMemoryDynamoDB(), "snapshots", "subscriptions")
	ctx := context.Background()

	sub := &models.Subscription{ID: "sub_1", Email: "reader@example.com"}
	if err := db.CreateSubscription(ctx, sub); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if sub.SubscribedAt.IsZero() {
		t.Error("Expected subscription time to be set")
	}

	dup := &models.Subscription{ID: "sub_2", Email: "Reader@Example.com"}
	if err := db.CreateSubscription(ctx, dup); !errors.Is(err, ErrAlreadySubscribed) {
		t.Errorf("Expected ErrAlreadySubscribed, got %v", err)
	}

	stored, err := db.GetSubscription(ctx, "READER@example.com")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if stored.ID != "sub_1" {
		t.Errorf("Expected original subscription kept, got %s", stored.ID)
	}
}

func TestDynamoDBService_Errors(t *testing.T) {
	store := newMemoryDynamoDB()
	store.err = errors.New("throttled")
	db := NewDynamoDBService(store, "snapshots", "subscriptions")

	if err := db.PutSnapshot(context.Background(), testSnapshot()); err == nil {
		t.Error("Expected put error")
	}
	if err := db.CreateSubscription(context.Background(), &models.Subscription{Email: "a@b.co"}); err == nil || errors.Is(err, ErrAlreadySubscribed) {
		t.Errorf("Expected wrapped storage error, got %v", err)
	}
}
