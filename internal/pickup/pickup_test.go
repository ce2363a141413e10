package pickup

import (
    "testing"
    "time"
)

func TestClassify(t *testing.T) {
    now := time.Date(2025, 8, 31, 12, 0, 0, 0, time.UTC)
    cases := []struct {
        name string
        end  time.Time
        want string
    }{
        {"already past", now.Add(-time.Minute), StatusExpired},
        {"exactly now", now, StatusExpired},
        {"one hour left", now.Add(time.Hour), StatusUrgent},
        {"exactly two hours", now.Add(2 * time.Hour), StatusUrgent},
        {"three hours left", now.Add(3 * time.Hour), StatusWarning},
        {"exactly four hours", now.Add(4 * time.Hour), StatusWarning},
        {"next day", now.Add(26 * time.Hour), StatusNormal},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            if got := Classify(tc.end, now); got != tc.want {
                t.Fatalf("Classify(%v) = %q, want %q", tc.end, got, tc.want)
            }
        })
    }
}

func TestClassifyDeterministic(t *testing.T) {
    now := time.Now().UTC()
    end := now.Add(90 * time.Minute)
    first := Classify(end, now)
    for i := 0; i < 10; i++ {
        if got := Classify(end, now); got != first {
            t.Fatalf("Classify not deterministic: %q then %q", first, got)
        }
    }
}
