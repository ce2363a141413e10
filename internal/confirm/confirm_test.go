package confirm

import (
    "strings"
    "testing"
    "time"
)

func TestNewCodeShape(t *testing.T) {
    now := time.Now().UTC()
    code, err := NewCode(42, now)
    if err != nil {
        t.Fatalf("NewCode: %v", err)
    }
    if len(code) != CodeLength {
        t.Fatalf("code length = %d, want %d", len(code), CodeLength)
    }
    for _, r := range code {
        if !strings.ContainsRune(codeAlphabet, r) {
            t.Fatalf("code %q contains %q outside the uppercase alphanumeric alphabet", code, r)
        }
    }
}

func TestNewCodeVariesWithSalt(t *testing.T) {
    // Same reservation and timestamp must still produce fresh codes,
    // otherwise refresh would hand back the code being replaced.
    now := time.Now().UTC()
    seen := make(map[string]bool)
    for i := 0; i < 32; i++ {
        code, err := NewCode(7, now)
        if err != nil {
            t.Fatalf("NewCode: %v", err)
        }
        seen[code] = true
    }
    if len(seen) < 2 {
        t.Fatalf("expected salted codes to differ, got %d distinct of 32", len(seen))
    }
}

func TestExpired(t *testing.T) {
    pickup := time.Date(2025, 8, 31, 18, 0, 0, 0, time.UTC)
    cases := []struct {
        name string
        now  time.Time
        want bool
    }{
        {"before pickup", pickup.Add(-time.Hour), false},
        {"at pickup", pickup, false},
        {"within window", pickup.Add(Window - time.Minute), false},
        {"window boundary", pickup.Add(Window), false},
        {"three hours after", pickup.Add(3 * time.Hour), true},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            if got := Expired(pickup, tc.now); got != tc.want {
                t.Fatalf("Expired(%v) = %v, want %v", tc.now, got, tc.want)
            }
        })
    }
}

func TestNewQRPayload(t *testing.T) {
    now := time.Now().UTC()
    groups := []QRGroup{{
        BusinessName: "Green Cafe",
        BranchName:   "Downtown",
        BranchCode:   "DT1",
        Items:        []QRItem{{Title: "Pastry box", Quantity: 2, Status: "PENDING"}},
    }}
    p := NewQRPayload("GRNCAFE-20250831-00001", "AB12CD34", now.Add(time.Hour), "CONFIRMED", groups, now)
    if p.Nonce == "" {
        t.Fatal("expected a nonce")
    }
    if p.ReservationNumber != "GRNCAFE-20250831-00001" || p.ConfirmationCode != "AB12CD34" {
        t.Fatalf("unexpected payload identity: %+v", p)
    }
    if len(p.Groups) != 1 || len(p.Groups[0].Items) != 1 {
        t.Fatalf("unexpected groups: %+v", p.Groups)
    }
    q := NewQRPayload("GRNCAFE-20250831-00001", "AB12CD34", now.Add(time.Hour), "CONFIRMED", groups, now)
    if q.Nonce == p.Nonce {
        t.Fatal("re-issued payloads must carry distinct nonces")
    }
}
