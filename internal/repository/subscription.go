// Package repository provides persistence implementations for the
// subscription registry using a PostgreSQL database.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/avdushin/pushdeck/internal/models"
)

// PostgresSubscriptionRepository implements subscription registry
// operations against a PostgreSQL database.
type PostgresSubscriptionRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresSubscriptionRepository creates a repository using the
// provided *sql.DB. db must be a valid connection to a PostgreSQL
// instance.
func NewPostgresSubscriptionRepository(db *sql.DB) *PostgresSubscriptionRepository {
	return &PostgresSubscriptionRepository{DB: db}
}

// Create stores a new subscription registration.
func (r *PostgresSubscriptionRepository) Create(ctx context.Context, rec models.SubscriptionRecord) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO subscriptions (id, user_id, endpoint, p256dh, auth, created_at, last_seen)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, rec.ID, rec.UserID, rec.Endpoint, rec.P256dh, rec.Auth, rec.CreatedAt, rec.LastSeen)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

// GetByEndpoint fetches the registration for an endpoint. A missing
// endpoint returns (nil, nil).
func (r *PostgresSubscriptionRepository) GetByEndpoint(ctx context.Context, endpoint string) (*models.SubscriptionRecord, error) {
	var rec models.SubscriptionRecord
	err := r.DB.QueryRowContext(ctx, `
		SELECT id, user_id, endpoint, p256dh, auth, created_at, last_seen FROM subscriptions
		WHERE endpoint = $1
	`, endpoint).Scan(&rec.ID, &rec.UserID, &rec.Endpoint, &rec.P256dh, &rec.Auth, &rec.CreatedAt, &rec.LastSeen)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetByEndpoint: %w", err)
	}
	return &rec, nil
}

// Delete removes the registration with the given server-issued
// identifier. Deleting an unknown identifier is not an error.
func (r *PostgresSubscriptionRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.DB.ExecContext(ctx, `DELETE FROM subscriptions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	return nil
}

// List fetches all registrations.
func (r *PostgresSubscriptionRepository) List(ctx context.Context) ([]models.SubscriptionRecord, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, user_id, endpoint, p256dh, auth, created_at, last_seen FROM subscriptions
	`)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer rows.Close()

	var recs []models.SubscriptionRecord
	for rows.Next() {
		var rec models.SubscriptionRecord
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Endpoint, &rec.P256dh, &rec.Auth, &rec.CreatedAt, &rec.LastSeen); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// Touch updates the last_seen timestamp of a registration, marking the
// endpoint as re-registered.
func (r *PostgresSubscriptionRepository) Touch(ctx context.Context, id string, seen time.Time) error {
	if _, err := r.DB.ExecContext(ctx, `UPDATE subscriptions SET last_seen = $2 WHERE id = $1`, id, seen); err != nil {
		return fmt.Errorf("Touch: %w", err)
	}
	return nil
}
