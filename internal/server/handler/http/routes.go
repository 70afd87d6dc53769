// Package http provides HTTP routing and middleware configuration for the
// pushdeck server.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/avdushin/pushdeck/internal/middleware"
)

// NewRouter constructs the HTTP handler serving the pushdeck API.
//
// Routes:
//
//	GET    /api/vapid-public-key        → subscription.PublicKey
//	POST   /api/subscribe               → subscription.Subscribe
//	DELETE /api/subscribe/{subscriptionID} → subscription.Unsubscribe
//	POST   /api/push                    → push.Broadcast (bearer token)
//
// Middleware chain (applied in order):
//  1. AllowContentType("application/json") — rejects non-JSON bodies
//  2. WithRequestLogging(logger)           — logs incoming requests
func NewRouter(
	subscription *SubscriptionHandler,
	push *PushHandler,
	adminToken string,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Only allow requests with Content-Type: application/json;
	// body-less requests pass through.
	r.Use(chiMiddleware.AllowContentType("application/json"))

	// Log each request and its metadata
	r.Use(middleware.WithRequestLogging(logger))

	// Mount API routes
	r.Route("/api", func(r chi.Router) {
		// Public endpoints consumed by the foreground controller
		r.Get("/vapid-public-key", subscription.PublicKey)
		r.Post("/subscribe", subscription.Subscribe)
		r.Delete("/subscribe/{subscriptionID}", subscription.Unsubscribe)

		// Protected group: operator push broadcast
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireToken(adminToken))
			r.Post("/push", push.Broadcast)
		})
	})

	return r
}
