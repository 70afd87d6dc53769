// Package service provides business logic for the subscription registry
// and push broadcasting, delegating persistence to repository interfaces.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/avdushin/pushdeck/internal/models"
)

// ErrInvalidSubscription is returned when a registration request carries
// no usable subscription.
var ErrInvalidSubscription = errors.New("invalid subscription")

// SubscriptionRepository defines the persistence operations needed by the
// subscription service.
type SubscriptionRepository interface {
	// Create stores a new subscription registration.
	Create(ctx context.Context, rec models.SubscriptionRecord) error
	// GetByEndpoint fetches the registration for an endpoint, or (nil, nil).
	GetByEndpoint(ctx context.Context, endpoint string) (*models.SubscriptionRecord, error)
	// Delete removes the registration with the given identifier.
	Delete(ctx context.Context, id string) error
	// List fetches all registrations.
	List(ctx context.Context) ([]models.SubscriptionRecord, error)
	// Touch updates the last_seen timestamp of a registration.
	Touch(ctx context.Context, id string, seen time.Time) error
}

// SubscriptionService implements subscription registration and removal.
type SubscriptionService struct {
	repo SubscriptionRepository
	log  *zap.Logger

	// now is the clock, overridable in tests.
	now func() time.Time
}

// NewSubscriptionService constructs a SubscriptionService.
func NewSubscriptionService(repo SubscriptionRepository, log *zap.Logger) *SubscriptionService {
	if log == nil {
		log = zap.NewNop()
	}
	return &SubscriptionService{repo: repo, log: log, now: time.Now}
}

// Register stores a subscription and returns its server-issued
// identifier. Re-registering a known endpoint refreshes it and returns
// the existing identifier.
func (s *SubscriptionService) Register(ctx context.Context, sub *models.Subscription, userID string) (string, error) {
	if sub == nil || sub.Endpoint == "" {
		return "", ErrInvalidSubscription
	}

	existing, err := s.repo.GetByEndpoint(ctx, sub.Endpoint)
	if err != nil {
		return "", fmt.Errorf("register: %w", err)
	}
	if existing != nil {
		if err := s.repo.Touch(ctx, existing.ID, s.now()); err != nil {
			return "", fmt.Errorf("register: %w", err)
		}
		return existing.ID, nil
	}

	now := s.now()
	rec := models.SubscriptionRecord{
		ID:        uuid.NewString(),
		UserID:    userID,
		Endpoint:  sub.Endpoint,
		P256dh:    sub.Keys.P256dh,
		Auth:      sub.Keys.Auth,
		CreatedAt: now,
		LastSeen:  now,
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		return "", fmt.Errorf("register: %w", err)
	}
	s.log.Info("subscription registered", zap.String("id", rec.ID), zap.String("user_id", userID))
	return rec.ID, nil
}

// Remove deletes a subscription registration by its identifier.
func (s *SubscriptionService) Remove(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("remove: %w", err)
	}
	s.log.Info("subscription removed", zap.String("id", id))
	return nil
}
