package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	lambdaclient "github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"

	"desmoines-weekly-events/internal/models"
)

// ErrRefreshNotConfigured means no refresh function name was provided
var ErrRefreshNotConfigured = errors.New("refresh function not configured")

// LambdaInvoker is the subset of the Lambda API used to start a refresh
type LambdaInvoker interface {
	Invoke(ctx context.Context, params *lambdaclient.InvokeInput, optFns ...func(*lambdaclient.Options)) (*lambdaclient.InvokeOutput, error)
}

// LambdaRefreshTrigger starts the weekly refresh function asynchronously
type LambdaRefreshTrigger struct {
	client       LambdaInvoker
	functionName string
}

// NewLambdaRefreshTrigger creates a trigger for the named function
func NewLambdaRefreshTrigger(client LambdaInvoker, functionName string) *LambdaRefreshTrigger {
	return &LambdaRefreshTrigger{client: client, functionName: functionName}
}

// TriggerRefresh invokes the refresh function with a manual trigger event
func (t *LambdaRefreshTrigger) TriggerRefresh(ctx context.Context) error {
	if t.functionName == "" {
		return ErrRefreshNotConfigured
	}

	payload, err := json.Marshal(models.RefreshEvent{TriggerType: models.TriggerManual})
	if err != nil {
		return fmt.Errorf("failed to marshal refresh event: %w", err)
	}

	_, err = t.client.Invoke(ctx, &lambdaclient.InvokeInput{
		FunctionName:   aws.String(t.functionName),
		InvocationType: lambdatypes.InvocationTypeEvent,
		Payload:        payload,
	})
	if err != nil {
		return fmt.Errorf("failed to invoke refresh function: %w", err)
	}

	log.Printf("[REFRESH] Triggered %s asynchronously", t.functionName)
	return nil
}
