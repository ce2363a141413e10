package repository

import (
    "fmt"
    "strconv"
    "strings"
    "time"
)

// Reservation numbers have the form {BUSINESSCODE}-{YYYYMMDD}-{00001}.
// The sequence restarts at 00001 every day per business and is
// computed from the lexicographically last existing number inside the
// same transaction as the reservation insert, so concurrent creates
// either serialize on the row or collide on the unique constraint and
// retry.

// reservationNumberPrefix returns the "{CODE}-{YYYYMMDD}-" prefix for
// a business code on the given day.
func reservationNumberPrefix(businessCode string, day time.Time) string {
    return fmt.Sprintf("%s-%s-", strings.ToUpper(businessCode), day.UTC().Format("20060102"))
}

// FormatReservationNumber renders a full reservation number for the
// given business code, day and sequence.
func FormatReservationNumber(businessCode string, day time.Time, seq int) string {
    return fmt.Sprintf("%s%05d", reservationNumberPrefix(businessCode, day), seq)
}

// NextSequence parses the trailing 5-digit sequence of the last
// issued number and returns its successor. An empty last number
// starts the day at 1. Malformed numbers are rejected so a corrupt
// row cannot silently reset the sequence.
func NextSequence(lastNumber string) (int, error) {
    if lastNumber == "" {
        return 1, nil
    }
    i := strings.LastIndex(lastNumber, "-")
    if i < 0 || i == len(lastNumber)-1 {
        return 0, fmt.Errorf("malformed reservation number %q", lastNumber)
    }
    tail := lastNumber[i+1:]
    if len(tail) != 5 {
        return 0, fmt.Errorf("malformed reservation number %q", lastNumber)
    }
    n, err := strconv.Atoi(tail)
    if err != nil {
        return 0, fmt.Errorf("malformed reservation number %q", lastNumber)
    }
    return n + 1, nil
}
