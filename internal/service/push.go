package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"

	"github.com/avdushin/pushdeck/internal/models"
)

// Sender delivers a payload to one subscription endpoint and returns the
// push service's status code.
type Sender interface {
	Send(ctx context.Context, rec models.SubscriptionRecord, payload []byte) (int, error)
}

// WebPushSender delivers payloads over the Web Push protocol with VAPID
// authorization.
type WebPushSender struct {
	// Subscriber is the contact (mailto or URL) claimed in the VAPID JWT.
	Subscriber string
	// PublicKey and PrivateKey are the VAPID key pair.
	PublicKey  string
	PrivateKey string
	// TTL is how long, in seconds, the push service may hold the message.
	TTL int
}

// Send implements Sender.
func (s *WebPushSender) Send(ctx context.Context, rec models.SubscriptionRecord, payload []byte) (int, error) {
	sub := &webpush.Subscription{
		Endpoint: rec.Endpoint,
		Keys: webpush.Keys{
			P256dh: rec.P256dh,
			Auth:   rec.Auth,
		},
	}
	resp, err := webpush.SendNotificationWithContext(ctx, payload, sub, &webpush.Options{
		Subscriber:      s.Subscriber,
		VAPIDPublicKey:  s.PublicKey,
		VAPIDPrivateKey: s.PrivateKey,
		TTL:             s.TTL,
	})
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}

// PushService broadcasts notifications to registered subscriptions.
type PushService struct {
	repo   SubscriptionRepository
	sender Sender
	log    *zap.Logger
}

// NewPushService constructs a PushService.
func NewPushService(repo SubscriptionRepository, sender Sender, log *zap.Logger) *PushService {
	if log == nil {
		log = zap.NewNop()
	}
	return &PushService{repo: repo, sender: sender, log: log}
}

// Broadcast sends the notification to every registered subscription and
// returns how many deliveries the push services accepted. Registrations
// the push service reports gone are dropped; individual delivery failures
// are logged and skipped.
func (s *PushService) Broadcast(ctx context.Context, n models.Notification) (int, error) {
	payload, err := json.Marshal(n)
	if err != nil {
		return 0, fmt.Errorf("broadcast: marshal: %w", err)
	}
	recs, err := s.repo.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("broadcast: %w", err)
	}

	sent := 0
	for _, rec := range recs {
		status, err := s.sender.Send(ctx, rec, payload)
		if err != nil {
			s.log.Error("push delivery failed", zap.String("id", rec.ID), zap.Error(err))
			continue
		}
		if status == http.StatusGone || status == http.StatusNotFound {
			if err := s.repo.Delete(ctx, rec.ID); err != nil {
				s.log.Error("failed to drop gone subscription", zap.String("id", rec.ID), zap.Error(err))
			} else {
				s.log.Info("dropped gone subscription", zap.String("id", rec.ID), zap.Int("status", status))
			}
			continue
		}
		if status >= 400 {
			s.log.Warn("push service rejected delivery", zap.String("id", rec.ID), zap.Int("status", status))
			continue
		}
		sent++
	}
	return sent, nil
}
