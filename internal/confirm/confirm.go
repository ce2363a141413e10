// Package confirm mints and checks the pickup verification artifacts
// of a paid reservation: the short confirmation code entered or
// scanned by staff and the QR payload document shown offline by the
// customer.
package confirm

import (
    "crypto/rand"
    "crypto/sha256"
    "encoding/hex"
    "fmt"
    "strings"
    "time"

    "github.com/google/uuid"
)

// CodeLength is the number of characters in a confirmation code.
// Collisions at this length are accepted as negligible for the
// expected reservation volume; verification is always scoped by
// reservation, never by code alone.
const CodeLength = 8

// Window is how long after the agreed pickup time a confirmation
// code stays valid.  Verification attempts past the window fail
// deterministically rather than being purged.
const Window = 2 * time.Hour

// codeAlphabet spans the uppercase alphanumeric characters a code may
// contain.  Staff type these by hand, so lowercase is excluded.
const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewCode derives a confirmation code from the reservation ID, the
// current timestamp and a random salt.  The sha256 digest is mapped
// onto the uppercase alphanumeric alphabet and truncated to
// CodeLength characters.  No uniqueness check across reservations is
// performed.
func NewCode(reservationID uint64, now time.Time) (string, error) {
    salt := make([]byte, 16)
    if _, err := rand.Read(salt); err != nil {
        return "", err
    }
    sum := sha256.Sum256([]byte(fmt.Sprintf("%d:%d:%s", reservationID, now.UnixNano(), hex.EncodeToString(salt))))
    var b strings.Builder
    b.Grow(CodeLength)
    for i := 0; i < CodeLength; i++ {
        b.WriteByte(codeAlphabet[int(sum[i])%len(codeAlphabet)])
    }
    return b.String(), nil
}

// Expired reports whether the verification window for a reservation
// picked up at pickupTime has elapsed at now.
func Expired(pickupTime, now time.Time) bool {
    return now.After(pickupTime.Add(Window))
}

// QRItem is one reserved listing line inside a QR payload group.
type QRItem struct {
    Title    string `json:"title"`
    Quantity uint32 `json:"quantity"`
    Status   string `json:"status"`
}

// QRGroup collects the items of one business/branch together with
// enough contact information for pickup staff to act on the document
// without further API calls.
type QRGroup struct {
    BusinessName string `json:"business_name"`
    BranchName   string `json:"branch_name,omitempty"`
    BranchCode   string `json:"branch_code,omitempty"`
    ManagerPhone string `json:"manager_phone,omitempty"`
    Items        []QRItem `json:"items"`
}

// QRPayload is the structured document embedded in the reservation
// QR code.  It is self-contained: reservation number, confirmation
// code, pickup time, status and the reserved items grouped by
// business/branch.
type QRPayload struct {
    Nonce             string    `json:"nonce"`
    ReservationNumber string    `json:"reservation_number"`
    ConfirmationCode  string    `json:"confirmation_code"`
    PickupTime        time.Time `json:"pickup_time"`
    Status            string    `json:"status"`
    Groups            []QRGroup `json:"groups"`
    IssuedAt          time.Time `json:"issued_at"`
}

// NewQRPayload assembles the payload for a reservation.  The caller
// supplies the groups already joined against business and branch
// records.  A random nonce distinguishes re-issued documents for the
// same reservation.
func NewQRPayload(number, code string, pickupTime time.Time, status string, groups []QRGroup, now time.Time) QRPayload {
    return QRPayload{
        Nonce:             uuid.NewString(),
        ReservationNumber: number,
        ConfirmationCode:  code,
        PickupTime:        pickupTime,
        Status:            status,
        Groups:            groups,
        IssuedAt:          now,
    }
}
