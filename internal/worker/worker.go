// Package worker implements the background half of the application: the
// static asset cache lifecycle and the handlers for push delivery,
// notification interaction, and the foreground control channel.
package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/avdushin/pushdeck/internal/models"
	"github.com/avdushin/pushdeck/internal/platform"
)

// cachePrefix namespaces the cache generations owned by this worker.
const cachePrefix = "static-"

// badgeIcon is the fixed monochrome badge shown on every notification.
const badgeIcon = "/icons/badge-72.png"

// vibratePattern is the fixed vibration pattern for every notification.
var vibratePattern = []int{100, 50, 100}

// Worker handles the background events of one worker generation,
// identified by its version string.
type Worker struct {
	version string
	assets  []string

	caches  platform.CacheStorage
	fetcher platform.AssetFetcher
	notifs  platform.NotificationCenter
	windows platform.WindowClients
	host    platform.WorkerHost
	log     *zap.Logger
}

// Deps are the platform capabilities the worker runs against.
type Deps struct {
	Caches        platform.CacheStorage
	Fetcher       platform.AssetFetcher
	Notifications platform.NotificationCenter
	Windows       platform.WindowClients
	Host          platform.WorkerHost
	Log           *zap.Logger
}

// New returns a Worker for the given version that caches the given asset
// list on install.
func New(version string, assets []string, deps Deps) *Worker {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Worker{
		version: version,
		assets:  assets,
		caches:  deps.Caches,
		fetcher: deps.Fetcher,
		notifs:  deps.Notifications,
		windows: deps.Windows,
		host:    deps.Host,
		log:     log,
	}
}

// CacheName returns the name of this worker generation's cache.
func (w *Worker) CacheName() string {
	return cachePrefix + w.version
}

// Install opens this generation's cache and populates it with the full
// asset list, all-or-nothing, then signals that the waiting instance may
// be superseded immediately. On failure the previous generation stays
// active.
func (w *Worker) Install(ctx context.Context) error {
	cache, err := w.caches.Open(w.CacheName())
	if err != nil {
		w.log.Error("install: open cache failed", zap.String("cache", w.CacheName()), zap.Error(err))
		return fmt.Errorf("install: open cache: %w", err)
	}
	if err := cache.AddAll(ctx, w.assets); err != nil {
		w.log.Error("install: caching assets failed", zap.String("cache", w.CacheName()), zap.Error(err))
		return fmt.Errorf("install: %w", err)
	}
	w.host.SkipWaiting()
	w.log.Info("install complete", zap.String("cache", w.CacheName()), zap.Int("assets", len(w.assets)))
	return nil
}

// Activate deletes every cache generation other than this one, then takes
// control of all open application instances. A failure mid-deletion can
// leave stale generations until the next activation.
func (w *Worker) Activate(ctx context.Context) error {
	names, err := w.caches.Keys()
	if err != nil {
		return fmt.Errorf("activate: list caches: %w", err)
	}
	for _, name := range names {
		if name == w.CacheName() {
			continue
		}
		if _, err := w.caches.Delete(name); err != nil {
			return fmt.Errorf("activate: delete cache %s: %w", name, err)
		}
		w.log.Info("deleted stale cache", zap.String("cache", name))
	}
	if err := w.host.Claim(); err != nil {
		return fmt.Errorf("activate: claim clients: %w", err)
	}
	w.log.Info("activate complete", zap.String("cache", w.CacheName()))
	return nil
}

// HandleFetch serves the cached entry for path if present, otherwise
// passes through to the network. The cache is never populated here; a
// network failure with no cached match propagates to the caller.
func (w *Worker) HandleFetch(ctx context.Context, path string) (platform.Response, error) {
	cache, err := w.caches.Open(w.CacheName())
	if err == nil {
		if resp, ok := cache.Match(path); ok {
			return resp, nil
		}
	}
	resp, err := w.fetcher.Fetch(ctx, path)
	if err != nil {
		return platform.Response{}, fmt.Errorf("fetch %s: %w", path, err)
	}
	return resp, nil
}

// HandlePush parses the payload as a notification descriptor and displays
// it. A malformed or absent payload falls back to the fixed default
// descriptor. A display failure is logged and the notification dropped.
func (w *Worker) HandlePush(ctx context.Context, payload []byte) {
	n := models.DefaultNotification()
	if len(payload) > 0 {
		var parsed models.Notification
		if err := json.Unmarshal(payload, &parsed); err != nil || parsed.Title == "" {
			w.log.Warn("malformed push payload, showing default notification", zap.Error(err))
		} else {
			n = parsed
		}
	}
	if n.URL == "" {
		n.URL = models.DefaultURL
	}
	opts := platform.NotificationOptions{
		Body:    n.Body,
		Icon:    n.Icon,
		Badge:   badgeIcon,
		Tag:     n.Tag,
		Vibrate: vibratePattern,
		Data:    n.URL,
		Actions: n.Actions,
	}
	if err := w.notifs.Show(ctx, n.Title, opts); err != nil {
		w.log.Error("failed to display notification", zap.String("title", n.Title), zap.Error(err))
	}
}

// HandleNotificationClick closes the notification, focuses an open
// application instance already at the notification's target URL, or opens
// a new one there.
func (w *Worker) HandleNotificationClick(ctx context.Context, n platform.ShownNotification) error {
	w.notifs.Close(n.ID)
	target := n.Options.Data
	if target == "" {
		target = models.DefaultURL
	}
	for _, c := range w.windows.List() {
		if c.URL() == target {
			if err := c.Focus(); err != nil {
				return fmt.Errorf("notification click: focus: %w", err)
			}
			return nil
		}
	}
	if _, err := w.windows.OpenWindow(ctx, target); err != nil {
		return fmt.Errorf("notification click: open window: %w", err)
	}
	return nil
}

// HandleNotificationClose only records the event.
func (w *Worker) HandleNotificationClose(n platform.ShownNotification) {
	w.log.Info("notification closed without click", zap.String("title", n.Title), zap.String("tag", n.Options.Tag))
}

// HandleMessage processes a foreground control message. The only
// recognized kind forces the waiting generation to activate immediately;
// everything else is ignored.
func (w *Worker) HandleMessage(msg models.Message) {
	if msg.Type != models.MessageSkipWaiting {
		return
	}
	w.host.SkipWaiting()
	w.log.Info("skip waiting requested by foreground")
}
