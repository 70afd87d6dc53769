package worker

import (
	"context"
	"fmt"

	"github.com/avdushin/pushdeck/internal/models"
	"github.com/avdushin/pushdeck/internal/platform"
)

// EventKind enumerates the platform events the worker handles.
type EventKind int

const (
	EventInstall EventKind = iota
	EventActivate
	EventFetch
	EventPush
	EventNotificationClick
	EventNotificationClose
	EventMessage
)

// String returns the event kind name used in logs.
func (k EventKind) String() string {
	switch k {
	case EventInstall:
		return "install"
	case EventActivate:
		return "activate"
	case EventFetch:
		return "fetch"
	case EventPush:
		return "push"
	case EventNotificationClick:
		return "notificationclick"
	case EventNotificationClose:
		return "notificationclose"
	case EventMessage:
		return "message"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Event is one platform event dispatched to the worker. Only the fields
// relevant to its kind are set.
type Event struct {
	Kind         EventKind
	Path         string                     // EventFetch
	Payload      []byte                     // EventPush
	Notification platform.ShownNotification // EventNotificationClick, EventNotificationClose
	Message      models.Message             // EventMessage
}

// Outcome is the result of handling one event.
type Outcome struct {
	Kind     EventKind
	Response platform.Response // set for EventFetch
}

// Handle dispatches an event to its handler and returns the outcome.
func (w *Worker) Handle(ctx context.Context, ev Event) (Outcome, error) {
	out := Outcome{Kind: ev.Kind}
	switch ev.Kind {
	case EventInstall:
		return out, w.Install(ctx)
	case EventActivate:
		return out, w.Activate(ctx)
	case EventFetch:
		resp, err := w.HandleFetch(ctx, ev.Path)
		out.Response = resp
		return out, err
	case EventPush:
		w.HandlePush(ctx, ev.Payload)
		return out, nil
	case EventNotificationClick:
		return out, w.HandleNotificationClick(ctx, ev.Notification)
	case EventNotificationClose:
		w.HandleNotificationClose(ev.Notification)
		return out, nil
	case EventMessage:
		w.HandleMessage(ev.Message)
		return out, nil
	default:
		return out, fmt.Errorf("unhandled event kind %v", ev.Kind)
	}
}
