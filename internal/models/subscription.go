package models

import "time"

// Subscription is a newsletter signup
type Subscription struct {
	PK string `json:"-" dynamodbav:"PK"`
	SK string `json:"-" dynamodbav:"SK"`

	ID           string    `json:"id" dynamodbav:"id"`
	Email        string    `json:"email" dynamodbav:"email"`
	Source       string    `json:"source,omitempty" dynamodbav:"source,omitempty"`
	SubscribedAt time.Time `json:"subscribedAt" dynamodbav:"subscribed_at"`
}
