// Package models defines the core data structures shared by the worker,
// the controller, and the server: push subscriptions, notification
// descriptors, permission states, and control messages.
package models

import "time"

// Permission represents the platform notification permission state.
type Permission string

const (
	// PermissionDefault means the user has not been asked yet, or has
	// dismissed the prompt without answering.
	PermissionDefault Permission = "default"
	// PermissionGranted means notifications may be displayed.
	PermissionGranted Permission = "granted"
	// PermissionDenied means the user refused notifications.
	PermissionDenied Permission = "denied"
)

// SubscriptionKeys holds the client encryption keys of a push subscription.
type SubscriptionKeys struct {
	// P256dh is the client's public ECDH key on the P-256 curve.
	P256dh string `json:"p256dh"`
	// Auth is the client's authentication secret.
	Auth string `json:"auth"`
}

// Subscription is the opaque platform-issued push credential, tied 1:1 to
// the current installation. At most one exists per installation at a time.
type Subscription struct {
	// Endpoint is the push-service URI messages are delivered through.
	Endpoint string `json:"endpoint"`
	// Keys are the encryption keys the server needs to address this client.
	Keys SubscriptionKeys `json:"keys"`
}

// NotificationAction is a button attached to a displayed notification.
type NotificationAction struct {
	Action string `json:"action"`
	Title  string `json:"title"`
}

// Notification is the structured descriptor carried in a push payload.
type Notification struct {
	Title   string               `json:"title"`
	Body    string               `json:"body"`
	Icon    string               `json:"icon,omitempty"`
	URL     string               `json:"url,omitempty"`
	Tag     string               `json:"tag,omitempty"`
	Actions []NotificationAction `json:"actions,omitempty"`
}

// Fallback notification content used when a push payload cannot be parsed.
const (
	DefaultTitle = "Pushdeck"
	DefaultBody  = "You have a new notification."
	DefaultIcon  = "/icons/icon-192.png"
	DefaultURL   = "/"
)

// DefaultNotification returns the fixed descriptor displayed for malformed
// or absent push payloads.
func DefaultNotification() Notification {
	return Notification{
		Title: DefaultTitle,
		Body:  DefaultBody,
		Icon:  DefaultIcon,
		URL:   DefaultURL,
	}
}

// MessageSkipWaiting is the only recognized cross-context control message
// type. It forces the waiting worker generation to activate immediately.
const MessageSkipWaiting = "SKIP_WAITING"

// Message is a control message sent from the foreground to the worker.
type Message struct {
	Type string `json:"type"`
}

// SubscriptionRecord is the server-side registration of a push
// subscription, keyed by a server-issued identifier.
type SubscriptionRecord struct {
	// ID is the server-issued identifier the client caches for deletion.
	ID string
	// UserID is the locally generated opaque identifier of the installation.
	UserID string
	// Endpoint is the push-service URI of the subscription.
	Endpoint string
	// P256dh is the client's public encryption key.
	P256dh string
	// Auth is the client's authentication secret.
	Auth string
	// CreatedAt is when the registration was first stored.
	CreatedAt time.Time
	// LastSeen is the last time the client re-registered this endpoint.
	LastSeen time.Time
}
