package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"strings"
	"sync"
	"time"

	"desmoines-weekly-events/internal/models"
)

// SubscriptionStore persists newsletter signups. CreateSubscription returns
// ErrAlreadySubscribed when the email is already stored.
type SubscriptionStore interface {
	CreateSubscription(ctx context.Context, sub *models.Subscription) error
}

// SubscriptionService captures newsletter signups
type SubscriptionService struct {
	store SubscriptionStore
	now   func() time.Time
}

// SubscribeResult reports the outcome of a signup
type SubscribeResult struct {
	Subscription      *models.Subscription
	AlreadySubscribed bool
}

// NewSubscriptionService creates a service backed by store
func NewSubscriptionService(store SubscriptionStore) *SubscriptionService {
	return &SubscriptionService{store: store, now: time.Now}
}

// NormalizeEmail trims and lowercases an address and checks that it parses
// as a bare address.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@")+1:], ".") {
		return "", ErrInvalidEmail
	}
	return email, nil
}

// Subscribe records a signup. Signing up twice is not an error; the result
// reports AlreadySubscribed instead.
func (s *SubscriptionService) Subscribe(ctx context.Context, email, source string) (*SubscribeResult, error) {
	normalized, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}

	sub := &models.Subscription{
		ID:           models.GenerateSubscriptionID(),
		Email:        normalized,
		Source:       strings.TrimSpace(source),
		SubscribedAt: s.now().UTC(),
	}

	if err := s.store.CreateSubscription(ctx, sub); err != nil {
		if errors.Is(err, ErrAlreadySubscribed) {
			log.Printf("[SUBSCRIBE] %s is already subscribed", normalized)
			return &SubscribeResult{Subscription: sub, AlreadySubscribed: true}, nil
		}
		return nil, fmt.Errorf("failed to store subscription: %w", err)
	}

	log.Printf("[SUBSCRIBE] New subscription %s (source=%s)", sub.ID, sub.Source)
	return &SubscribeResult{Subscription: sub}, nil
}

// MemorySubscriptionStore keeps subscriptions in process memory for local development
type MemorySubscriptionStore struct {
	mu   sync.Mutex
	subs map[string]models.Subscription
}

// NewMemorySubscriptionStore creates an empty store
func NewMemorySubscriptionStore() *MemorySubscriptionStore {
	return &MemorySubscriptionStore{subs: make(map[string]models.Subscription)}
}

func (m *MemorySubscriptionStore) CreateSubscription(ctx context.Context, sub *models.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := models.SubscriptionPK(sub.Email)
	if _, exists := m.subs[key]; exists {
		return ErrAlreadySubscribed
	}
	sub.PK = key
	sub.SK = models.SubscriptionSK
	m.subs[key] = *sub
	return nil
}

// Count returns the number of stored subscriptions
func (m *MemorySubscriptionStore) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}
