package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/avdushin/pushdeck/internal/models"
)

// fakeRepo is an in-memory SubscriptionRepository with call counters.
type fakeRepo struct {
	records map[string]models.SubscriptionRecord

	createErr error
	listErr   error

	deleted []string
	touched []string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{records: make(map[string]models.SubscriptionRecord)}
}

func (r *fakeRepo) Create(_ context.Context, rec models.SubscriptionRecord) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.records[rec.ID] = rec
	return nil
}

func (r *fakeRepo) GetByEndpoint(_ context.Context, endpoint string) (*models.SubscriptionRecord, error) {
	for _, rec := range r.records {
		if rec.Endpoint == endpoint {
			rec := rec
			return &rec, nil
		}
	}
	return nil, nil
}

func (r *fakeRepo) Delete(_ context.Context, id string) error {
	delete(r.records, id)
	r.deleted = append(r.deleted, id)
	return nil
}

func (r *fakeRepo) List(_ context.Context) ([]models.SubscriptionRecord, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	var recs []models.SubscriptionRecord
	for _, rec := range r.records {
		recs = append(recs, rec)
	}
	return recs, nil
}

func (r *fakeRepo) Touch(_ context.Context, id string, seen time.Time) error {
	rec, ok := r.records[id]
	if ok {
		rec.LastSeen = seen
		r.records[id] = rec
	}
	r.touched = append(r.touched, id)
	return nil
}

func TestRegister_NewSubscription(t *testing.T) {
	repo := newFakeRepo()
	svc := NewSubscriptionService(repo, nil)

	sub := &models.Subscription{
		Endpoint: "https://push.example.net/send/abc",
		Keys:     models.SubscriptionKeys{P256dh: "p", Auth: "a"},
	}
	id, err := svc.Register(context.Background(), sub, "user-1")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if id == "" {
		t.Fatal("expected a server-issued identifier")
	}
	rec, ok := repo.records[id]
	if !ok {
		t.Fatal("expected record to be persisted")
	}
	if rec.UserID != "user-1" || rec.Endpoint != sub.Endpoint || rec.P256dh != "p" || rec.Auth != "a" {
		t.Errorf("unexpected record: %+v", rec)
	}
	if rec.CreatedAt.IsZero() || rec.LastSeen.IsZero() {
		t.Error("expected timestamps to be set")
	}
}

func TestRegister_ExistingEndpointIsRefreshed(t *testing.T) {
	repo := newFakeRepo()
	svc := NewSubscriptionService(repo, nil)
	later := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

	sub := &models.Subscription{Endpoint: "https://push.example.net/send/abc"}
	first, err := svc.Register(context.Background(), sub, "user-1")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	svc.now = func() time.Time { return later }
	second, err := svc.Register(context.Background(), sub, "user-1")
	if err != nil {
		t.Fatalf("re-Register failed: %v", err)
	}

	if second != first {
		t.Errorf("expected stable identifier, got %q then %q", first, second)
	}
	if len(repo.records) != 1 {
		t.Errorf("expected 1 record, got %d", len(repo.records))
	}
	if len(repo.touched) != 1 || repo.touched[0] != first {
		t.Errorf("expected one refresh of %q, got %v", first, repo.touched)
	}
	if got := repo.records[first].LastSeen; !got.Equal(later) {
		t.Errorf("expected last_seen %v, got %v", later, got)
	}
}

func TestRegister_InvalidSubscription(t *testing.T) {
	svc := NewSubscriptionService(newFakeRepo(), nil)

	for _, sub := range []*models.Subscription{nil, {Endpoint: ""}} {
		if _, err := svc.Register(context.Background(), sub, "user-1"); !errors.Is(err, ErrInvalidSubscription) {
			t.Errorf("expected ErrInvalidSubscription for %+v, got %v", sub, err)
		}
	}
}

func TestRegister_CreateFailure(t *testing.T) {
	repo := newFakeRepo()
	repo.createErr = errors.New("db down")
	svc := NewSubscriptionService(repo, nil)

	_, err := svc.Register(context.Background(), &models.Subscription{Endpoint: "e"}, "u")
	if err == nil {
		t.Fatal("expected Register to fail")
	}
}

func TestRemove(t *testing.T) {
	repo := newFakeRepo()
	repo.records["sub-1"] = models.SubscriptionRecord{ID: "sub-1"}
	svc := NewSubscriptionService(repo, nil)

	if err := svc.Remove(context.Background(), "sub-1"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if len(repo.records) != 0 {
		t.Errorf("expected record removed, %d left", len(repo.records))
	}
}
