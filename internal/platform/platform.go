// Package platform abstracts the host capabilities the worker and the
// controller depend on: cache storage, asset fetching, push messaging,
// notification display, window clients, and worker registration. The
// in-memory implementations in this package back the REPL application
// and the tests.
package platform

import (
	"context"
	"errors"

	"github.com/avdushin/pushdeck/internal/models"
)

// ErrPermissionDenied is returned by PushService.Subscribe when
// notification permission has not been granted.
var ErrPermissionDenied = errors.New("platform: notification permission not granted")

// ErrNoRegistration is returned by Registrar.Ready when no worker has
// reached an active, controlling state.
var ErrNoRegistration = errors.New("platform: no active worker registration")

// Response is the body served for an intercepted fetch.
type Response struct {
	// Path is the request path the response was produced for.
	Path string
	// Body is the raw response body.
	Body []byte
	// ContentType is the media type of the body, if known.
	ContentType string
}

// AssetFetcher retrieves an asset over the network.
type AssetFetcher interface {
	Fetch(ctx context.Context, path string) (Response, error)
}

// Cache is one cache generation: a named, write-once set of asset entries.
type Cache interface {
	// AddAll fetches every path and stores the results atomically: if any
	// fetch fails, no entry is added and the error is returned.
	AddAll(ctx context.Context, paths []string) error
	// Match returns the cached entry for path, if present.
	Match(path string) (Response, bool)
	// Paths lists the paths currently cached, sorted.
	Paths() []string
}

// CacheStorage owns the set of cache generations.
type CacheStorage interface {
	// Open returns the cache with the given name, creating it if absent.
	Open(name string) (Cache, error)
	// Keys lists the names of all existing cache generations, sorted.
	Keys() ([]string, error)
	// Delete removes the named cache. It reports whether a cache existed.
	Delete(name string) (bool, error)
}

// PushService manages the platform-owned push subscription.
type PushService interface {
	// Subscription returns the current subscription, or nil if none exists.
	Subscription() (*models.Subscription, error)
	// Subscribe creates a subscription using the given application server
	// key. If one already exists it is returned unchanged.
	Subscribe(ctx context.Context, vapidPublicKey string) (*models.Subscription, error)
	// Unsubscribe revokes the current subscription. It reports whether a
	// subscription existed.
	Unsubscribe(ctx context.Context) (bool, error)
}

// NotificationOptions carries the display attributes of a notification.
type NotificationOptions struct {
	Body    string
	Icon    string
	Badge   string
	Tag     string
	Vibrate []int
	// Data is the notification's target URL. It is attached to the
	// notification but never shown to the user.
	Data    string
	Actions []models.NotificationAction
}

// ShownNotification is a notification currently displayed by the platform.
type ShownNotification struct {
	ID      int
	Title   string
	Options NotificationOptions
}

// NotificationCenter exposes the platform notification permission and
// display surface.
type NotificationCenter interface {
	// Permission returns the current permission state.
	Permission() models.Permission
	// RequestPermission shows the single platform prompt and returns the
	// resulting state. A dismissed prompt leaves the state at default.
	RequestPermission(ctx context.Context) (models.Permission, error)
	// Show displays a notification.
	Show(ctx context.Context, title string, opts NotificationOptions) error
	// Close removes a displayed notification by ID.
	Close(id int)
	// Displayed lists the currently displayed notifications.
	Displayed() []ShownNotification
}

// WindowClient is one open application instance.
type WindowClient interface {
	URL() string
	Focus() error
}

// WindowClients enumerates and opens application instances.
type WindowClients interface {
	List() []WindowClient
	OpenWindow(ctx context.Context, url string) (WindowClient, error)
}

// WorkerHost is the lifecycle control surface available to the worker
// itself: skipping the waiting phase and claiming open clients.
type WorkerHost interface {
	SkipWaiting()
	Claim() error
}

// Registration is the foreground's handle on a registered worker.
type Registration interface {
	// Active reports whether the worker is active and controlling.
	Active() bool
	// PostMessage delivers a control message to the worker context.
	PostMessage(msg models.Message)
}

// Registrar registers the background worker script and reports readiness.
type Registrar interface {
	// Register installs the worker script and runs its lifecycle.
	Register(ctx context.Context, script string) (Registration, error)
	// Ready returns the registration once the worker is active and
	// controlling, or ErrNoRegistration.
	Ready(ctx context.Context) (Registration, error)
}
