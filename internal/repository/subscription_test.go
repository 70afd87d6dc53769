package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/avdushin/pushdeck/internal/models"
)

func setupMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *PostgresSubscriptionRepository) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock, NewPostgresSubscriptionRepository(db)
}

func sampleRecord() models.SubscriptionRecord {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return models.SubscriptionRecord{
		ID:        "sub-1",
		UserID:    "user-1",
		Endpoint:  "https://push.example.net/send/abc",
		P256dh:    "p256dh-key",
		Auth:      "auth-secret",
		CreatedAt: now,
		LastSeen:  now,
	}
}

func TestCreate(t *testing.T) {
	_, mock, repo := setupMock(t)
	rec := sampleRecord()

	mock.ExpectExec(regexp.QuoteMeta(`
			INSERT INTO subscriptions (id, user_id, endpoint, p256dh, auth, created_at, last_seen)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`)).
		WithArgs(rec.ID, rec.UserID, rec.Endpoint, rec.P256dh, rec.Auth, rec.CreatedAt, rec.LastSeen).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Create(context.Background(), rec); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestGetByEndpoint(t *testing.T) {
	_, mock, repo := setupMock(t)
	rec := sampleRecord()

	rows := sqlmock.NewRows([]string{"id", "user_id", "endpoint", "p256dh", "auth", "created_at", "last_seen"}).
		AddRow(rec.ID, rec.UserID, rec.Endpoint, rec.P256dh, rec.Auth, rec.CreatedAt, rec.LastSeen)
	mock.ExpectQuery(regexp.QuoteMeta(`
			SELECT id, user_id, endpoint, p256dh, auth, created_at, last_seen FROM subscriptions
			WHERE endpoint = $1
		`)).
		WithArgs(rec.Endpoint).
		WillReturnRows(rows)

	got, err := repo.GetByEndpoint(context.Background(), rec.Endpoint)
	if err != nil {
		t.Fatalf("GetByEndpoint failed: %v", err)
	}
	if got == nil || got.ID != rec.ID || got.Endpoint != rec.Endpoint {
		t.Errorf("unexpected record: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestGetByEndpoint_NotFound(t *testing.T) {
	_, mock, repo := setupMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, user_id, endpoint, p256dh, auth, created_at, last_seen FROM subscriptions`)).
		WithArgs("https://push.example.net/send/unknown").
		WillReturnError(sql.ErrNoRows)

	got, err := repo.GetByEndpoint(context.Background(), "https://push.example.net/send/unknown")
	if err != nil {
		t.Fatalf("expected nil error for missing endpoint, got %v", err)
	}
	if got != nil {
		t.Errorf("expected nil record, got %+v", got)
	}
}

func TestDelete(t *testing.T) {
	_, mock, repo := setupMock(t)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM subscriptions WHERE id = $1`)).
		WithArgs("sub-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Delete(context.Background(), "sub-1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestList(t *testing.T) {
	_, mock, repo := setupMock(t)
	rec := sampleRecord()

	rows := sqlmock.NewRows([]string{"id", "user_id", "endpoint", "p256dh", "auth", "created_at", "last_seen"}).
		AddRow(rec.ID, rec.UserID, rec.Endpoint, rec.P256dh, rec.Auth, rec.CreatedAt, rec.LastSeen).
		AddRow("sub-2", "user-2", "https://push.example.net/send/def", "p2", "a2", rec.CreatedAt, rec.LastSeen)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, user_id, endpoint, p256dh, auth, created_at, last_seen FROM subscriptions`)).
		WillReturnRows(rows)

	recs, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if recs[1].ID != "sub-2" {
		t.Errorf("unexpected second record: %+v", recs[1])
	}
}

func TestTouch(t *testing.T) {
	_, mock, repo := setupMock(t)
	seen := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE subscriptions SET last_seen = $2 WHERE id = $1`)).
		WithArgs("sub-1", seen).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Touch(context.Background(), "sub-1", seen); err != nil {
		t.Fatalf("Touch failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
