package service

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/avdushin/pushdeck/internal/models"
)

// fakeSender maps endpoints to status codes or errors.
type fakeSender struct {
	statuses map[string]int
	errs     map[string]error

	sent []string
}

func (s *fakeSender) Send(_ context.Context, rec models.SubscriptionRecord, _ []byte) (int, error) {
	s.sent = append(s.sent, rec.Endpoint)
	if err := s.errs[rec.Endpoint]; err != nil {
		return 0, err
	}
	if status, ok := s.statuses[rec.Endpoint]; ok {
		return status, nil
	}
	return http.StatusCreated, nil
}

func seedRepo(endpoints ...string) *fakeRepo {
	repo := newFakeRepo()
	for i, e := range endpoints {
		id := string(rune('a' + i))
		repo.records[id] = models.SubscriptionRecord{ID: id, Endpoint: e}
	}
	return repo
}

func TestBroadcast_CountsAcceptedDeliveries(t *testing.T) {
	repo := seedRepo("e1", "e2", "e3")
	sender := &fakeSender{}
	svc := NewPushService(repo, sender, nil)

	sent, err := svc.Broadcast(context.Background(), models.DefaultNotification())
	if err != nil {
		t.Fatalf("Broadcast failed: %v", err)
	}
	if sent != 3 {
		t.Errorf("expected 3 accepted deliveries, got %d", sent)
	}
	if len(sender.sent) != 3 {
		t.Errorf("expected 3 send attempts, got %d", len(sender.sent))
	}
}

func TestBroadcast_DropsGoneSubscriptions(t *testing.T) {
	repo := seedRepo("gone", "missing", "alive")
	sender := &fakeSender{statuses: map[string]int{
		"gone":    http.StatusGone,
		"missing": http.StatusNotFound,
	}}
	svc := NewPushService(repo, sender, nil)

	sent, err := svc.Broadcast(context.Background(), models.DefaultNotification())
	if err != nil {
		t.Fatalf("Broadcast failed: %v", err)
	}
	if sent != 1 {
		t.Errorf("expected 1 accepted delivery, got %d", sent)
	}
	if len(repo.deleted) != 2 {
		t.Errorf("expected 2 dropped registrations, got %v", repo.deleted)
	}
	if len(repo.records) != 1 {
		t.Errorf("expected 1 surviving record, got %d", len(repo.records))
	}
}

func TestBroadcast_SkipsFailedAndRejectedDeliveries(t *testing.T) {
	repo := seedRepo("down", "rejected", "alive")
	sender := &fakeSender{
		errs:     map[string]error{"down": errors.New("connection refused")},
		statuses: map[string]int{"rejected": http.StatusBadRequest},
	}
	svc := NewPushService(repo, sender, nil)

	sent, err := svc.Broadcast(context.Background(), models.DefaultNotification())
	if err != nil {
		t.Fatalf("Broadcast failed: %v", err)
	}
	if sent != 1 {
		t.Errorf("expected 1 accepted delivery, got %d", sent)
	}
	// Failures short of gone do not drop the registration.
	if len(repo.deleted) != 0 {
		t.Errorf("expected no drops, got %v", repo.deleted)
	}
}

func TestBroadcast_ListFailure(t *testing.T) {
	repo := newFakeRepo()
	repo.listErr = errors.New("db down")
	svc := NewPushService(repo, &fakeSender{}, nil)

	if _, err := svc.Broadcast(context.Background(), models.DefaultNotification()); err == nil {
		t.Fatal("expected Broadcast to fail")
	}
}
