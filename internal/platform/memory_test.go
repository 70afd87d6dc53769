package platform

import (
	"context"
	"errors"
	"testing"

	"github.com/avdushin/pushdeck/internal/models"
)

func TestMemoryNotificationCenter_PromptIsSticky(t *testing.T) {
	n := NewMemoryNotificationCenter()
	n.PromptAnswer = models.PermissionDenied

	if got := n.Permission(); got != models.PermissionDefault {
		t.Fatalf("expected default permission before prompting, got %s", got)
	}
	if got, _ := n.RequestPermission(context.Background()); got != models.PermissionDenied {
		t.Fatalf("expected denied, got %s", got)
	}

	// Once answered, later prompts return the settled state regardless of
	// the configured answer.
	n.PromptAnswer = models.PermissionGranted
	if got, _ := n.RequestPermission(context.Background()); got != models.PermissionDenied {
		t.Errorf("expected denial to stick, got %s", got)
	}
	if n.PromptCount != 2 {
		t.Errorf("expected 2 prompts counted, got %d", n.PromptCount)
	}
}

func TestMemoryNotificationCenter_DismissalLeavesDefault(t *testing.T) {
	n := NewMemoryNotificationCenter()
	n.PromptAnswer = models.PermissionDefault

	if got, _ := n.RequestPermission(context.Background()); got != models.PermissionDefault {
		t.Fatalf("expected default after dismissal, got %s", got)
	}

	// A later prompt can still settle the state.
	n.PromptAnswer = models.PermissionGranted
	if got, _ := n.RequestPermission(context.Background()); got != models.PermissionGranted {
		t.Errorf("expected granted after re-prompt, got %s", got)
	}
}

func TestMemoryNotificationCenter_ShowRequiresGrant(t *testing.T) {
	n := NewMemoryNotificationCenter()

	if err := n.Show(context.Background(), "Hi", NotificationOptions{}); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}

	n.SetPermission(models.PermissionGranted)
	if err := n.Show(context.Background(), "Hi", NotificationOptions{}); err != nil {
		t.Fatalf("Show failed: %v", err)
	}

	shown := n.Displayed()
	if len(shown) != 1 || shown[0].Title != "Hi" {
		t.Fatalf("unexpected displayed set: %+v", shown)
	}
	n.Close(shown[0].ID)
	if got := n.Displayed(); len(got) != 0 {
		t.Errorf("expected empty displayed set after close, got %+v", got)
	}
}

func TestMemoryPushService_PermissionGating(t *testing.T) {
	notifs := NewMemoryNotificationCenter()
	p := NewMemoryPushService(notifs)

	if _, err := p.Subscribe(context.Background(), "key"); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied without grant, got %v", err)
	}

	notifs.SetPermission(models.PermissionGranted)
	if _, err := p.Subscribe(context.Background(), ""); err == nil {
		t.Fatal("expected error for missing application server key")
	}

	sub, err := p.Subscribe(context.Background(), "key")
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	if sub.Endpoint == "" || sub.Keys.P256dh == "" || sub.Keys.Auth == "" {
		t.Errorf("expected populated subscription, got %+v", sub)
	}
}

func TestMemoryPushService_ResubscribeReturnsSame(t *testing.T) {
	notifs := NewMemoryNotificationCenter()
	notifs.SetPermission(models.PermissionGranted)
	p := NewMemoryPushService(notifs)

	first, err := p.Subscribe(context.Background(), "key")
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	second, err := p.Subscribe(context.Background(), "key")
	if err != nil {
		t.Fatalf("re-Subscribe failed: %v", err)
	}
	if first.Endpoint != second.Endpoint {
		t.Errorf("expected identical subscription, got %q and %q", first.Endpoint, second.Endpoint)
	}

	revoked, err := p.Unsubscribe(context.Background())
	if err != nil || !revoked {
		t.Fatalf("expected revocation, got revoked=%v err=%v", revoked, err)
	}
	if again, _ := p.Unsubscribe(context.Background()); again {
		t.Error("expected second unsubscribe to report nothing revoked")
	}
	if sub, _ := p.Subscription(); sub != nil {
		t.Errorf("expected no subscription after revoke, got %+v", sub)
	}
}

func TestMemoryRegistrar_Lifecycle(t *testing.T) {
	m := &MemoryRegistrar{}
	runs := 0
	m.Lifecycle = func(context.Context) error {
		runs++
		return nil
	}

	if _, err := m.Ready(context.Background()); !errors.Is(err, ErrNoRegistration) {
		t.Fatalf("expected ErrNoRegistration before registering, got %v", err)
	}

	reg, err := m.Register(context.Background(), "/sw.js")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if !reg.Active() {
		t.Error("expected active registration")
	}
	if _, err := m.Register(context.Background(), "/sw.js"); err != nil {
		t.Fatalf("re-Register failed: %v", err)
	}
	if runs != 1 {
		t.Errorf("expected lifecycle to run once, ran %d times", runs)
	}
	if _, err := m.Ready(context.Background()); err != nil {
		t.Errorf("Ready failed: %v", err)
	}
}

func TestMemoryRegistrar_FailedLifecycleFailsRegister(t *testing.T) {
	m := &MemoryRegistrar{}
	m.Lifecycle = func(context.Context) error { return errors.New("install failed") }

	if _, err := m.Register(context.Background(), "/sw.js"); err == nil {
		t.Fatal("expected Register to fail")
	}
	if _, err := m.Ready(context.Background()); !errors.Is(err, ErrNoRegistration) {
		t.Errorf("expected no registration after failed lifecycle, got %v", err)
	}
}

func TestMemoryCache_AddAllIsAtomic(t *testing.T) {
	fetcher := NewMemoryFetcher(map[string][]byte{"/a": []byte("a")})
	fetcher.Fail("/b")
	storage := NewMemoryCacheStorage(fetcher)

	cache, err := storage.Open("static-v1")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := cache.AddAll(context.Background(), []string{"/a", "/b"}); err == nil {
		t.Fatal("expected AddAll to fail")
	}
	if paths := cache.Paths(); len(paths) != 0 {
		t.Errorf("expected untouched cache, got %v", paths)
	}
}
