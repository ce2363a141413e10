package repository

import (
    "testing"
    "time"
)

func TestFormatReservationNumber(t *testing.T) {
    day := time.Date(2025, 8, 31, 23, 59, 0, 0, time.UTC)
    got := FormatReservationNumber("grncafe", day, 1)
    if got != "GRNCAFE-20250831-00001" {
        t.Fatalf("FormatReservationNumber = %q", got)
    }
    got = FormatReservationNumber("GRNCAFE", day, 12345)
    if got != "GRNCAFE-20250831-12345" {
        t.Fatalf("FormatReservationNumber = %q", got)
    }
}

func TestNextSequence(t *testing.T) {
    cases := []struct {
        name    string
        last    string
        want    int
        wantErr bool
    }{
        {"first of the day", "", 1, false},
        {"increments", "GRNCAFE-20250831-00001", 2, false},
        {"large sequence", "GRNCAFE-20250831-09999", 10000, false},
        {"no separator", "GRNCAFE20250831", 0, true},
        {"short tail", "GRNCAFE-20250831-1", 0, true},
        {"non numeric tail", "GRNCAFE-20250831-ABCDE", 0, true},
        {"trailing dash", "GRNCAFE-20250831-", 0, true},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            got, err := NextSequence(tc.last)
            if tc.wantErr {
                if err == nil {
                    t.Fatalf("NextSequence(%q) expected error, got %d", tc.last, got)
                }
                return
            }
            if err != nil {
                t.Fatalf("NextSequence(%q): %v", tc.last, err)
            }
            if got != tc.want {
                t.Fatalf("NextSequence(%q) = %d, want %d", tc.last, got, tc.want)
            }
        })
    }
}
