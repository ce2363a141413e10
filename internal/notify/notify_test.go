package notify

import (
    "context"
    "reflect"
    "testing"

    q "github.com/greenbite/surplus-market/internal/queue"
)

func TestPreferencesChannels(t *testing.T) {
    cases := []struct {
        name  string
        prefs Preferences
        want  []string
    }{
        {"all disabled", Preferences{}, []string{}},
        {"push only", Preferences{Push: true}, []string{"push"}},
        {"push and email", Preferences{Push: true, Email: true}, []string{"push", "email"}},
        {"everything", Preferences{Push: true, Email: true, SMS: true}, []string{"push", "email", "sms"}},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            got := tc.prefs.Channels()
            if !reflect.DeepEqual(got, tc.want) {
                t.Errorf("Channels() = %v, want %v", got, tc.want)
            }
        })
    }
}

func TestQueueDispatcherDropsWithoutChannels(t *testing.T) {
    d := NewQueueDispatcher(Preferences{})
    ev := q.ReservationEvent{Kind: KindReservationCreated, ReservationID: 1}
    if err := d.Notify(context.Background(), ev); err != nil {
        t.Fatalf("Notify with no enabled channels should be a silent drop, got %v", err)
    }
}
