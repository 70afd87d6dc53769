// Package controller implements the foreground half of the application:
// capability probing, installation detection, worker registration,
// notification permission negotiation, the push subscription lifecycle,
// and presentation sync.
package controller

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/avdushin/pushdeck/internal/models"
	"github.com/avdushin/pushdeck/internal/platform"
	"github.com/avdushin/pushdeck/internal/store"
)

// workerScript is the path the background worker is registered from.
const workerScript = "/sw.js"

// Errors mapping to the failure taxonomy surfaced to the user.
var (
	// ErrUnsupported means a required capability is missing; terminal for
	// the session.
	ErrUnsupported = errors.New("push notifications are not supported in this environment")
	// ErrPermissionDenied means the user refused notification permission.
	ErrPermissionDenied = errors.New("notification permission denied")
	// ErrPermissionDismissed means the prompt was closed without an answer.
	ErrPermissionDismissed = errors.New("notification permission prompt dismissed")
	// ErrInstallRequired means this platform family only allows prompting
	// from an installed application.
	ErrInstallRequired = errors.New("application must be installed before enabling notifications")
	// ErrNotRegistered means the worker has not reached an active state.
	ErrNotRegistered = errors.New("background worker is not registered")
)

// API is the remote endpoint consumed for key issuance and subscription
// registration. *client.Client implements it.
type API interface {
	VAPIDPublicKey(ctx context.Context) (string, error)
	Subscribe(ctx context.Context, sub *models.Subscription, userID string) (string, error)
	Unsubscribe(ctx context.Context, subscriptionID string) error
}

// State is the controller's owned application state, re-derived from the
// platform on every presentation sync.
type State struct {
	Installed    bool
	Permission   models.Permission
	Subscription *models.Subscription

	// vapidKey caches the fetched signing key for the session.
	vapidKey string
}

// Controller orchestrates the installation, permission, and subscription
// lifecycle against the platform and the remote API.
type Controller struct {
	registrar platform.Registrar
	push      platform.PushService
	notifs    platform.NotificationCenter
	detector  Detector
	api       API
	store     *store.Store
	presenter Presenter
	log       *zap.Logger

	registration platform.Registration
	state        State
}

// Deps are the collaborators a Controller is built from. Registrar, Push,
// or Notifications left nil mean the capability is absent from the host
// environment.
type Deps struct {
	Registrar     platform.Registrar
	Push          platform.PushService
	Notifications platform.NotificationCenter
	Detector      Detector
	API           API
	Store         *store.Store
	Presenter     Presenter
	Log           *zap.Logger
}

// New constructs a Controller.
func New(deps Deps) *Controller {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	presenter := deps.Presenter
	if presenter == nil {
		presenter = NopPresenter{}
	}
	return &Controller{
		registrar: deps.Registrar,
		push:      deps.Push,
		notifs:    deps.Notifications,
		detector:  deps.Detector,
		api:       deps.API,
		store:     deps.Store,
		presenter: presenter,
		log:       log,
	}
}

// State returns a copy of the controller's current state.
func (c *Controller) State() State {
	return c.state
}

// Probe verifies that worker registration, push messaging, and
// notification display are all available. A missing capability is
// terminal for the session and surfaced to the user.
func (c *Controller) Probe() error {
	if c.registrar == nil || c.push == nil || c.notifs == nil {
		c.presenter.Flash("Push notifications are not supported in this browser.")
		c.log.Warn("capability probe failed",
			zap.Bool("registrar", c.registrar != nil),
			zap.Bool("push", c.push != nil),
			zap.Bool("notifications", c.notifs != nil),
		)
		return ErrUnsupported
	}
	return nil
}

// Register registers the background worker script and waits until it is
// active and controlling. Failure is terminal for the session.
func (c *Controller) Register(ctx context.Context) error {
	if _, err := c.registrar.Register(ctx, workerScript); err != nil {
		c.presenter.Flash("Failed to set up background notifications.")
		return fmt.Errorf("controller.Register: %w", err)
	}
	reg, err := c.registrar.Ready(ctx)
	if err != nil {
		c.presenter.Flash("Background worker did not become ready.")
		return fmt.Errorf("controller.Register: wait ready: %w", err)
	}
	c.registration = reg
	c.log.Info("worker registered and active", zap.String("script", workerScript))
	return nil
}

// RequestWorkerUpdate asks a waiting worker generation to activate
// immediately.
func (c *Controller) RequestWorkerUpdate() error {
	if c.registration == nil {
		return ErrNotRegistered
	}
	c.registration.PostMessage(models.Message{Type: models.MessageSkipWaiting})
	return nil
}

// EnsurePermission negotiates notification permission. Already-granted
// permission short-circuits; on the platform family requiring
// installation, a non-installed context refuses to prompt at all.
// Otherwise the single platform prompt runs exactly once; denial and
// dismissal are not retried.
func (c *Controller) EnsurePermission(ctx context.Context) (bool, error) {
	if c.notifs.Permission() == models.PermissionGranted {
		return true, nil
	}
	if c.detector.RequiresInstall() && !c.detector.Installed() {
		c.presenter.Flash("Install the app first: open the share menu and choose Add to Home Screen.")
		return false, ErrInstallRequired
	}
	result, err := c.notifs.RequestPermission(ctx)
	if err != nil {
		c.presenter.Flash("Could not request notification permission.")
		return false, fmt.Errorf("controller.EnsurePermission: %w", err)
	}
	switch result {
	case models.PermissionGranted:
		c.presenter.Flash("Notifications enabled.")
		return true, nil
	case models.PermissionDenied:
		c.presenter.Flash("Notifications are blocked. Allow them in your browser settings to enable.")
		return false, ErrPermissionDenied
	default:
		c.presenter.Flash("Notification permission was not granted.")
		return false, ErrPermissionDismissed
	}
}

// vapidPublicKey returns the signing key, fetching it from the server on
// first use and caching it in memory for the session. A failed fetch is
// not retried here; the error propagates to the caller.
func (c *Controller) vapidPublicKey(ctx context.Context) (string, error) {
	if c.state.vapidKey != "" {
		return c.state.vapidKey, nil
	}
	key, err := c.api.VAPIDPublicKey(ctx)
	if err != nil {
		return "", fmt.Errorf("fetch signing key: %w", err)
	}
	c.state.vapidKey = key
	return key, nil
}

// Subscribe ensures a push subscription exists and is registered with the
// server. An existing platform subscription is reused verbatim and
// reported as success without a second server registration.
func (c *Controller) Subscribe(ctx context.Context) (*models.Subscription, error) {
	if c.registration == nil {
		return nil, ErrNotRegistered
	}

	existing, err := c.push.Subscription()
	if err != nil {
		return nil, fmt.Errorf("controller.Subscribe: %w", err)
	}
	if existing != nil {
		c.state.Subscription = existing
		c.log.Info("reusing existing subscription", zap.String("endpoint", existing.Endpoint))
		return existing, nil
	}

	key, err := c.vapidPublicKey(ctx)
	if err != nil {
		c.presenter.Flash("Could not reach the notification server. Try again later.")
		return nil, fmt.Errorf("controller.Subscribe: %w", err)
	}

	sub, err := c.push.Subscribe(ctx, key)
	if err != nil {
		if errors.Is(err, platform.ErrPermissionDenied) {
			c.presenter.Flash("Notifications are blocked. Allow them in your browser settings to enable.")
		} else {
			c.presenter.Flash("Could not create a push subscription.")
		}
		return nil, fmt.Errorf("controller.Subscribe: %w", err)
	}

	userID, err := c.store.EnsureUserID()
	if err != nil {
		c.presenter.Flash("Could not enable notifications.")
		return nil, fmt.Errorf("controller.Subscribe: %w", err)
	}

	id, err := c.api.Subscribe(ctx, sub, userID)
	if err != nil {
		c.presenter.Flash("Could not register with the notification server. Try again later.")
		return nil, fmt.Errorf("controller.Subscribe: %w", err)
	}
	if err := c.store.SetSubscriptionID(id); err != nil {
		// The server registration exists either way; losing the local
		// identifier only prevents a later server-side deletion.
		c.log.Error("failed to persist subscription id", zap.String("subscription_id", id), zap.Error(err))
	}

	c.state.Subscription = sub
	c.log.Info("subscribed", zap.String("endpoint", sub.Endpoint), zap.String("subscription_id", id))
	return sub, nil
}

// Unsubscribe revokes the platform subscription and, when a server
// identifier is cached locally, deletes the server registration and
// clears the identifier. With no subscription it is a no-op issuing zero
// network calls. Partial failure is logged and local state keeps whatever
// already changed.
func (c *Controller) Unsubscribe(ctx context.Context) error {
	existing, err := c.push.Subscription()
	if err != nil {
		return fmt.Errorf("controller.Unsubscribe: %w", err)
	}
	if existing == nil {
		c.state.Subscription = nil
		return nil
	}

	if _, err := c.push.Unsubscribe(ctx); err != nil {
		c.presenter.Flash("Could not disable notifications.")
		return fmt.Errorf("controller.Unsubscribe: %w", err)
	}
	c.state.Subscription = nil

	if id := c.store.SubscriptionID(); id != "" {
		if err := c.api.Unsubscribe(ctx, id); err != nil {
			// The orphaned server record is not reconciled; it ages out
			// server-side.
			c.log.Error("server unsubscribe failed", zap.String("subscription_id", id), zap.Error(err))
		}
		if err := c.store.ClearSubscriptionID(); err != nil {
			c.log.Error("failed to clear subscription id", zap.Error(err))
		}
	}
	c.presenter.Flash("Notifications disabled.")
	return nil
}

// EnableNotifications runs the full enable sequence behind the single UI
// action: registration, permission, subscription, presentation sync. It
// is not reentrant-guarded; the triggering control is hidden only after
// the sequence starts.
func (c *Controller) EnableNotifications(ctx context.Context) error {
	c.presenter.Hide(RegionEnable)
	if err := c.Probe(); err != nil {
		return err
	}
	if c.registration == nil {
		if err := c.Register(ctx); err != nil {
			c.SyncPresentation()
			return err
		}
	}
	ok, err := c.EnsurePermission(ctx)
	if err != nil || !ok {
		c.SyncPresentation()
		return err
	}
	if _, err := c.Subscribe(ctx); err != nil {
		c.SyncPresentation()
		return err
	}
	c.SyncPresentation()
	return nil
}

// DisableNotifications runs the unsubscribe sequence and re-syncs the
// presentation.
func (c *Controller) DisableNotifications(ctx context.Context) error {
	err := c.Unsubscribe(ctx)
	c.SyncPresentation()
	return err
}
