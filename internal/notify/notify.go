// Package notify dispatches user-facing notifications for
// reservation lifecycle events. Dispatch is fire-and-forget from the
// state machine's perspective: failures are logged and never roll
// back the reservation transaction that triggered them.
package notify

import (
    "context"
    "log"

    q "github.com/greenbite/surplus-market/internal/queue"
    queue_publisher "github.com/greenbite/surplus-market/internal/service"
)

// Event kinds emitted by the reservation state machine.
const (
    KindReservationCreated = "reservation.created"
    KindPaymentConfirmed   = "payment.confirmed"
    KindPickupConfirmed    = "pickup.confirmed"
    KindStatusChanged      = "status.changed"
)

// Preferences gates delivery channels per event. The policy object
// is consulted exactly once when an event is dispatched; downstream
// consumers receive the resolved channel list and never re-decide.
type Preferences struct {
    Push  bool
    Email bool
    SMS   bool
}

// Channels returns the enabled channel names.
func (p Preferences) Channels() []string {
    out := make([]string, 0, 3)
    if p.Push {
        out = append(out, "push")
    }
    if p.Email {
        out = append(out, "email")
    }
    if p.SMS {
        out = append(out, "sms")
    }
    return out
}

// Dispatcher is the collaborator interface the reservation state
// machine notifies through. Implementations must never panic;
// callers ignore the returned error beyond logging.
type Dispatcher interface {
    Notify(ctx context.Context, event q.ReservationEvent) error
}

// QueueDispatcher publishes events to the message broker with the
// channel list resolved from a single Preferences policy. It is
// constructed once at process start and passed explicitly to the
// handlers, replacing any shared global notifier.
type QueueDispatcher struct {
    Prefs Preferences
}

// NewQueueDispatcher returns a Dispatcher backed by the broker.
func NewQueueDispatcher(prefs Preferences) *QueueDispatcher {
    return &QueueDispatcher{Prefs: prefs}
}

// Notify implements Dispatcher. Events with no enabled channel are
// dropped silently; everything else is published with the resolved
// channel list attached.
func (d *QueueDispatcher) Notify(ctx context.Context, event q.ReservationEvent) error {
    channels := d.Prefs.Channels()
    if len(channels) == 0 {
        return nil
    }
    event.Channels = channels
    if err := queue_publisher.PublishReservationEvent(ctx, event); err != nil {
        log.Printf("notify: publish %s for reservation %d failed: %v", event.Kind, event.ReservationID, err)
        return err
    }
    return nil
}
