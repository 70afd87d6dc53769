// Package http provides HTTP handlers for the subscription registry.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/avdushin/pushdeck/internal/models"
	"github.com/avdushin/pushdeck/internal/service"
)

// SubscriptionRegistry defines the interface for subscription operations
// required by the SubscriptionHandler.
type SubscriptionRegistry interface {
	// Register stores a subscription for userID and returns the
	// server-issued identifier.
	Register(ctx context.Context, sub *models.Subscription, userID string) (string, error)
	// Remove deletes a subscription registration by its identifier.
	Remove(ctx context.Context, id string) error
}

// SubscriptionHandler handles HTTP requests for the subscription
// endpoints and the VAPID public key.
type SubscriptionHandler struct {
	// Registry performs the underlying subscription operations.
	Registry SubscriptionRegistry
	// VAPIDPublicKey is the server's public signing key handed to clients.
	VAPIDPublicKey string
}

// PublicKey handles GET /api/vapid-public-key requests.
func (h *SubscriptionHandler) PublicKey(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"publicKey": h.VAPIDPublicKey})
}

// SubscribeRequest represents the JSON payload for registering a
// subscription.
type SubscribeRequest struct {
	// Subscription is the platform subscription JSON.
	Subscription *models.Subscription `json:"subscription"`
	// UserID is the client's locally generated opaque identifier.
	UserID string `json:"userId"`
}

// Subscribe handles POST /api/subscribe requests.
// It expects a JSON body with "subscription" and "userId" and responds
// with the server-issued "subscriptionId".
func (h *SubscriptionHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req SubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	id, err := h.Registry.Register(r.Context(), req.Subscription, req.UserID)
	if err != nil {
		if errors.Is(err, service.ErrInvalidSubscription) {
			http.Error(w, "invalid subscription", http.StatusBadRequest)
			return
		}
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"subscriptionId": id})
}

// Unsubscribe handles DELETE /api/subscribe/{subscriptionID} requests.
func (h *SubscriptionHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "subscriptionID")
	if id == "" {
		http.Error(w, "missing subscription id", http.StatusBadRequest)
		return
	}
	if err := h.Registry.Remove(r.Context(), id); err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
