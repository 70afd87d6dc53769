// Package main runs the foreground application as an interactive shell
// against the in-memory platform, driving the controller and the
// background worker end to end against a real server.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/avdushin/pushdeck/internal/client"
	"github.com/avdushin/pushdeck/internal/controller"
	"github.com/avdushin/pushdeck/internal/logger"
	"github.com/avdushin/pushdeck/internal/models"
	"github.com/avdushin/pushdeck/internal/platform"
	"github.com/avdushin/pushdeck/internal/store"
	"github.com/avdushin/pushdeck/internal/worker"
	"go.uber.org/zap"
)

// appVersion names the worker generation and its cache.
const appVersion = "v1"

// staticAssets is the fixed asset list cached on install.
var staticAssets = []string{
	"/",
	"/index.html",
	"/app.js",
	"/style.css",
	"/manifest.json",
	"/icons/icon-192.png",
	"/icons/badge-72.png",
}

var (
	version   string
	buildDate string
)

// terminalPresenter renders region toggles and transient messages to
// stdout.
type terminalPresenter struct{}

func (terminalPresenter) Show(region string)          { fmt.Printf("[ui] show %s\n", region) }
func (terminalPresenter) Hide(region string)          { fmt.Printf("[ui] hide %s\n", region) }
func (terminalPresenter) SetText(region, text string) { fmt.Printf("[ui] %s: %q\n", region, text) }
func (terminalPresenter) Flash(text string)           { fmt.Printf("[flash] %s\n", text) }

// repl runs the interactive loop, accepting commands that exercise the
// notification lifecycle.
func repl(ctx context.Context, ctrl *controller.Controller, w *worker.Worker, mem *platform.Memory, st *store.Store) {
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("pushdeck> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		args := strings.Fields(line)
		if len(args) == 0 {
			continue
		}
		switch args[0] {
		case "help":
			fmt.Println("Available commands: help, status, enable, disable, answer <granted|denied|dismissed>, push <json>, click, sync, exit")
		case "status":
			state := ctrl.State()
			userID, _ := st.EnsureUserID()
			fmt.Printf("installed:    %v\n", state.Installed)
			fmt.Printf("permission:   %s\n", mem.Notifications.Permission())
			if sub := state.Subscription; sub != nil {
				fmt.Printf("subscription: %s\n", sub.Endpoint)
			} else {
				fmt.Println("subscription: none")
			}
			fmt.Printf("user id:      %s\n", userID)
		case "enable":
			if err := ctrl.EnableNotifications(ctx); err != nil {
				fmt.Println("enable failed:", err)
			}
		case "disable":
			if err := ctrl.DisableNotifications(ctx); err != nil {
				fmt.Println("disable failed:", err)
			}
		case "answer":
			if len(args) < 2 {
				fmt.Println("Usage: answer <granted|denied|dismissed>")
				continue
			}
			switch args[1] {
			case "granted":
				mem.Notifications.PromptAnswer = models.PermissionGranted
			case "denied":
				mem.Notifications.PromptAnswer = models.PermissionDenied
			case "dismissed":
				mem.Notifications.PromptAnswer = models.PermissionDefault
			default:
				fmt.Println("Usage: answer <granted|denied|dismissed>")
				continue
			}
			fmt.Println("Prompt answer set to", args[1])
		case "push":
			payload := strings.TrimSpace(strings.TrimPrefix(line, "push"))
			w.HandlePush(ctx, []byte(payload))
			for _, n := range mem.Notifications.Displayed() {
				fmt.Printf("[notification %d] %s — %s (→ %s)\n", n.ID, n.Title, n.Options.Body, n.Options.Data)
			}
		case "click":
			shown := mem.Notifications.Displayed()
			if len(shown) == 0 {
				fmt.Println("No displayed notifications")
				continue
			}
			n := shown[len(shown)-1]
			if err := w.HandleNotificationClick(ctx, n); err != nil {
				fmt.Println("click failed:", err)
				continue
			}
			for _, c := range mem.Windows.List() {
				fmt.Printf("[window] %s\n", c.URL())
			}
		case "sync":
			ctrl.SyncPresentation()
		case "exit":
			fmt.Println("Bye")
			return
		default:
			fmt.Println("Unknown command. Type 'help' for a list of commands.")
		}
	}
}

// main parses flags, assembles the in-memory platform, worker, and
// controller, and starts the shell.
func main() {
	var (
		baseURL    string
		statePath  string
		platFamily string
		standalone bool
		showVer    bool
	)

	flag.StringVar(&baseURL, "url", "http://localhost:8080", "server base URL")
	flag.StringVar(&statePath, "state", "state.json", "path to local state file")
	flag.StringVar(&platFamily, "platform", "other", "platform family: ios | other")
	flag.BoolVar(&standalone, "standalone", false, "run as installed (standalone) app")
	flag.BoolVar(&showVer, "version", false, "show build version and date")
	flag.Parse()

	if showVer {
		fmt.Printf("Pushdeck App\nVersion: %s\nBuild Date: %s\n", version, buildDate)
		return
	}

	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init("Warn"); err != nil {
		fmt.Fprintln(os.Stderr, "failed to init logger:", err)
		os.Exit(1)
	}

	mem := platform.NewMemory()
	for _, path := range staticAssets {
		mem.Fetcher.Set(path, []byte("asset:"+path))
	}

	w := worker.New(appVersion, staticAssets, worker.Deps{
		Caches:        mem.Caches,
		Fetcher:       mem.Fetcher,
		Notifications: mem.Notifications,
		Windows:       mem.Windows,
		Host:          mem.Host,
		Log:           log.Log,
	})

	// Registration runs the worker's install and activate phases;
	// foreground control messages land in the worker's message handler.
	ctx := context.Background()
	mem.Registrar.Lifecycle = func(ctx context.Context) error {
		if err := w.Install(ctx); err != nil {
			return err
		}
		return w.Activate(ctx)
	}
	mem.Registrar.OnMessage = w.HandleMessage

	st, err := store.Open(statePath)
	if err != nil {
		log.Log.Fatal("failed to open local state", zap.Error(err))
	}

	var detector controller.Detector
	if platFamily == "ios" {
		detector = controller.StandaloneFlagDetector{Standalone: standalone}
	} else {
		detector = controller.DisplayModeDetector{Matches: func(mode string) bool {
			return mode == "standalone" && standalone
		}}
	}

	ctrl := controller.New(controller.Deps{
		Registrar:     mem.Registrar,
		Push:          mem.Push,
		Notifications: mem.Notifications,
		Detector:      detector,
		API:           client.New(baseURL),
		Store:         st,
		Presenter:     terminalPresenter{},
		Log:           log.Log,
	})

	if err := ctrl.Probe(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	ctrl.SyncPresentation()
	repl(ctx, ctrl, w, mem, st)
}
