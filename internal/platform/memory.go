package platform

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/avdushin/pushdeck/internal/models"
)

// Memory bundles in-memory implementations of every platform capability.
type Memory struct {
	Fetcher       *MemoryFetcher
	Caches        *MemoryCacheStorage
	Push          *MemoryPushService
	Notifications *MemoryNotificationCenter
	Windows       *MemoryWindowClients
	Host          *MemoryWorkerHost
	Registrar     *MemoryRegistrar
}

// NewMemory returns a fully wired in-memory platform. The push service
// consults the notification center for permission, as the host platform
// does.
func NewMemory() *Memory {
	fetcher := NewMemoryFetcher(nil)
	notifs := NewMemoryNotificationCenter()
	return &Memory{
		Fetcher:       fetcher,
		Caches:        NewMemoryCacheStorage(fetcher),
		Push:          NewMemoryPushService(notifs),
		Notifications: notifs,
		Windows:       &MemoryWindowClients{},
		Host:          &MemoryWorkerHost{},
		Registrar:     &MemoryRegistrar{},
	}
}

// MemoryFetcher serves assets from a map and can be told to fail paths.
type MemoryFetcher struct {
	mu      sync.Mutex
	assets  map[string][]byte
	failing map[string]bool

	// Calls counts every Fetch invocation.
	Calls int
}

// NewMemoryFetcher returns a fetcher seeded with the given assets.
func NewMemoryFetcher(assets map[string][]byte) *MemoryFetcher {
	if assets == nil {
		assets = make(map[string][]byte)
	}
	return &MemoryFetcher{assets: assets, failing: make(map[string]bool)}
}

// Set adds or replaces an asset.
func (f *MemoryFetcher) Set(path string, body []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.assets[path] = body
}

// Fail makes every fetch of path return a network error.
func (f *MemoryFetcher) Fail(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing[path] = true
}

// Fetch implements AssetFetcher.
func (f *MemoryFetcher) Fetch(_ context.Context, path string) (Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls++
	if f.failing[path] {
		return Response{}, fmt.Errorf("fetch %s: network unreachable", path)
	}
	body, ok := f.assets[path]
	if !ok {
		return Response{}, fmt.Errorf("fetch %s: not found", path)
	}
	return Response{Path: path, Body: body}, nil
}

// MemoryCacheStorage keeps cache generations in a map.
type MemoryCacheStorage struct {
	mu      sync.Mutex
	fetcher AssetFetcher
	caches  map[string]*MemoryCache
}

// NewMemoryCacheStorage returns cache storage whose caches populate
// themselves through fetcher.
func NewMemoryCacheStorage(fetcher AssetFetcher) *MemoryCacheStorage {
	return &MemoryCacheStorage{fetcher: fetcher, caches: make(map[string]*MemoryCache)}
}

// Open implements CacheStorage.
func (s *MemoryCacheStorage) Open(name string) (Cache, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.caches[name]
	if !ok {
		c = &MemoryCache{fetcher: s.fetcher, entries: make(map[string]Response)}
		s.caches[name] = c
	}
	return c, nil
}

// Keys implements CacheStorage.
func (s *MemoryCacheStorage) Keys() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.caches))
	for name := range s.caches {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Delete implements CacheStorage.
func (s *MemoryCacheStorage) Delete(name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.caches[name]
	delete(s.caches, name)
	return ok, nil
}

// MemoryCache is one in-memory cache generation.
type MemoryCache struct {
	mu      sync.Mutex
	fetcher AssetFetcher
	entries map[string]Response
}

// AddAll implements Cache. All paths are fetched before any entry is
// stored, so a failed fetch leaves the cache untouched.
func (c *MemoryCache) AddAll(ctx context.Context, paths []string) error {
	fetched := make(map[string]Response, len(paths))
	for _, p := range paths {
		resp, err := c.fetcher.Fetch(ctx, p)
		if err != nil {
			return fmt.Errorf("add %s: %w", p, err)
		}
		fetched[p] = resp
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for p, resp := range fetched {
		c.entries[p] = resp
	}
	return nil
}

// Match implements Cache.
func (c *MemoryCache) Match(path string) (Response, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	resp, ok := c.entries[path]
	return resp, ok
}

// Paths implements Cache.
func (c *MemoryCache) Paths() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	paths := make([]string, 0, len(c.entries))
	for p := range c.entries {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// MemoryPushService issues fake push subscriptions gated on notification
// permission, as the host push service is.
type MemoryPushService struct {
	mu     sync.Mutex
	notifs *MemoryNotificationCenter
	sub    *models.Subscription

	// SubscribeCalls and UnsubscribeCalls count the respective operations.
	SubscribeCalls   int
	UnsubscribeCalls int
}

// NewMemoryPushService returns a push service gated on notifs.
func NewMemoryPushService(notifs *MemoryNotificationCenter) *MemoryPushService {
	return &MemoryPushService{notifs: notifs}
}

// Subscription implements PushService.
func (p *MemoryPushService) Subscription() (*models.Subscription, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sub == nil {
		return nil, nil
	}
	sub := *p.sub
	return &sub, nil
}

// Subscribe implements PushService. Re-subscribing returns the existing
// subscription unchanged.
func (p *MemoryPushService) Subscribe(_ context.Context, vapidPublicKey string) (*models.Subscription, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.SubscribeCalls++
	if p.sub != nil {
		sub := *p.sub
		return &sub, nil
	}
	if p.notifs.Permission() != models.PermissionGranted {
		return nil, ErrPermissionDenied
	}
	if vapidPublicKey == "" {
		return nil, errors.New("platform: missing application server key")
	}
	p.sub = &models.Subscription{
		Endpoint: "https://push.example.net/send/" + uuid.NewString(),
		Keys: models.SubscriptionKeys{
			P256dh: randomToken(65),
			Auth:   randomToken(16),
		},
	}
	sub := *p.sub
	return &sub, nil
}

// Unsubscribe implements PushService.
func (p *MemoryPushService) Unsubscribe(_ context.Context) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.UnsubscribeCalls++
	if p.sub == nil {
		return false, nil
	}
	p.sub = nil
	return true, nil
}

func randomToken(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

// MemoryNotificationCenter tracks permission state and displayed
// notifications.
type MemoryNotificationCenter struct {
	mu         sync.Mutex
	permission models.Permission
	shown      []ShownNotification
	nextID     int

	// PromptAnswer is what the simulated user answers to the permission
	// prompt. PermissionDefault means the prompt is dismissed.
	PromptAnswer models.Permission
	// PromptCount counts RequestPermission invocations.
	PromptCount int
	// ShowErr, when set, makes Show fail.
	ShowErr error
}

// NewMemoryNotificationCenter returns a center in the default (not yet
// requested) state whose simulated user grants the prompt.
func NewMemoryNotificationCenter() *MemoryNotificationCenter {
	return &MemoryNotificationCenter{
		permission:   models.PermissionDefault,
		PromptAnswer: models.PermissionGranted,
	}
}

// Permission implements NotificationCenter.
func (n *MemoryNotificationCenter) Permission() models.Permission {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.permission
}

// SetPermission forces the permission state, bypassing the prompt.
func (n *MemoryNotificationCenter) SetPermission(p models.Permission) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.permission = p
}

// RequestPermission implements NotificationCenter. A granted or denied
// state is sticky; a dismissal leaves the state at default.
func (n *MemoryNotificationCenter) RequestPermission(_ context.Context) (models.Permission, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.PromptCount++
	if n.permission == models.PermissionDefault && n.PromptAnswer != models.PermissionDefault {
		n.permission = n.PromptAnswer
	}
	return n.permission, nil
}

// Show implements NotificationCenter.
func (n *MemoryNotificationCenter) Show(_ context.Context, title string, opts NotificationOptions) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.ShowErr != nil {
		return n.ShowErr
	}
	if n.permission != models.PermissionGranted {
		return ErrPermissionDenied
	}
	n.shown = append(n.shown, ShownNotification{ID: n.nextID, Title: title, Options: opts})
	n.nextID++
	return nil
}

// Close implements NotificationCenter.
func (n *MemoryNotificationCenter) Close(id int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i, s := range n.shown {
		if s.ID == id {
			n.shown = append(n.shown[:i], n.shown[i+1:]...)
			return
		}
	}
}

// Displayed implements NotificationCenter.
func (n *MemoryNotificationCenter) Displayed() []ShownNotification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]ShownNotification, len(n.shown))
	copy(out, n.shown)
	return out
}

// MemoryWindow is one simulated open application instance.
type MemoryWindow struct {
	mu      sync.Mutex
	url     string
	focused bool
}

// URL implements WindowClient.
func (w *MemoryWindow) URL() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.url
}

// Focus implements WindowClient.
func (w *MemoryWindow) Focus() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.focused = true
	return nil
}

// Focused reports whether Focus has been called.
func (w *MemoryWindow) Focused() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.focused
}

// MemoryWindowClients tracks simulated open application instances.
type MemoryWindowClients struct {
	mu      sync.Mutex
	windows []*MemoryWindow

	// Opened counts OpenWindow invocations.
	Opened int
}

// Add seeds an already open window at url.
func (c *MemoryWindowClients) Add(url string) *MemoryWindow {
	c.mu.Lock()
	defer c.mu.Unlock()
	w := &MemoryWindow{url: url}
	c.windows = append(c.windows, w)
	return w
}

// List implements WindowClients.
func (c *MemoryWindowClients) List() []WindowClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]WindowClient, len(c.windows))
	for i, w := range c.windows {
		out[i] = w
	}
	return out
}

// OpenWindow implements WindowClients. The new window opens focused.
func (c *MemoryWindowClients) OpenWindow(_ context.Context, url string) (WindowClient, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	w := &MemoryWindow{url: url, focused: true}
	c.windows = append(c.windows, w)
	c.Opened++
	return w, nil
}

// MemoryWorkerHost records worker lifecycle control calls.
type MemoryWorkerHost struct {
	mu sync.Mutex

	// SkipWaitingCalls counts SkipWaiting invocations.
	SkipWaitingCalls int
	// Claimed reports whether Claim has been called.
	Claimed bool
}

// SkipWaiting implements WorkerHost.
func (h *MemoryWorkerHost) SkipWaiting() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.SkipWaitingCalls++
}

// Claim implements WorkerHost.
func (h *MemoryWorkerHost) Claim() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Claimed = true
	return nil
}

// MemoryRegistration is the in-memory worker registration handle.
type MemoryRegistration struct {
	mu        sync.Mutex
	active    bool
	onMessage func(models.Message)
}

// Active implements Registration.
func (r *MemoryRegistration) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// PostMessage implements Registration.
func (r *MemoryRegistration) PostMessage(msg models.Message) {
	r.mu.Lock()
	handler := r.onMessage
	r.mu.Unlock()
	if handler != nil {
		handler(msg)
	}
}

// MemoryRegistrar registers the worker and runs its install/activate
// lifecycle synchronously.
type MemoryRegistrar struct {
	mu  sync.Mutex
	reg *MemoryRegistration

	// Lifecycle, when set, runs on first registration (the worker's
	// install and activate phases). A failed lifecycle fails Register.
	Lifecycle func(ctx context.Context) error
	// OnMessage receives control messages posted to the registration.
	OnMessage func(models.Message)
	// RegisterErr, when set, makes Register fail.
	RegisterErr error
}

// Register implements Registrar.
func (m *MemoryRegistrar) Register(ctx context.Context, _ string) (Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RegisterErr != nil {
		return nil, m.RegisterErr
	}
	if m.reg != nil {
		return m.reg, nil
	}
	if m.Lifecycle != nil {
		if err := m.Lifecycle(ctx); err != nil {
			return nil, err
		}
	}
	m.reg = &MemoryRegistration{active: true, onMessage: m.OnMessage}
	return m.reg, nil
}

// Ready implements Registrar.
func (m *MemoryRegistrar) Ready(_ context.Context) (Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.reg == nil || !m.reg.Active() {
		return nil, ErrNoRegistration
	}
	return m.reg, nil
}
