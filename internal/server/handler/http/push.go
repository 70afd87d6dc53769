package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/avdushin/pushdeck/internal/models"
)

// PushBroadcaster defines the interface for push delivery required by the
// PushHandler.
type PushBroadcaster interface {
	// Broadcast sends the notification to every registered subscription
	// and returns how many deliveries were accepted.
	Broadcast(ctx context.Context, n models.Notification) (int, error)
}

// PushHandler handles HTTP requests for operator push broadcasts.
type PushHandler struct {
	// Broadcaster performs the underlying push delivery.
	Broadcaster PushBroadcaster
}

// Broadcast handles POST /api/push requests.
// It decodes a notification descriptor and responds with the number of
// accepted deliveries.
func (h *PushHandler) Broadcast(w http.ResponseWriter, r *http.Request) {
	var n models.Notification
	if err := json.NewDecoder(r.Body).Decode(&n); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if n.Title == "" {
		http.Error(w, "missing title", http.StatusBadRequest)
		return
	}

	sent, err := h.Broadcaster.Broadcast(r.Context(), n)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]int{"sent": sent})
}
