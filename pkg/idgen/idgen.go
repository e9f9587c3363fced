package idgen

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Order ids are a short prefix tag plus a random hex suffix, e.g.
// ORD-1a2b3c4d5e. Uniqueness is guaranteed by the unique index on
// transactions.external_id, not by this generator; a collision is caught
// at insert time.
const (
	orderPrefix = "ORD-"
	starsPrefix = "STR-"
)

func randomSuffix(n int) string {
	u := uuid.New()
	return hex.EncodeToString(u[:])[:n]
}

// NewOrderID generates an order id for card top-ups.
func NewOrderID() string {
	return orderPrefix + randomSuffix(10)
}

// NewStarsOrderID generates an order id for stars top-ups.
func NewStarsOrderID() string {
	return starsPrefix + randomSuffix(10)
}

// NewTransactionNo generates a journal row number.
// Format: TXN + yyyymmddhhmmss + 8 hex chars, e.g. TXN20240115143052a1b2c3d4.
func NewTransactionNo() string {
	return fmt.Sprintf("TXN%s%s", time.Now().Format("20060102150405"), randomSuffix(8))
}

const referralAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewReferralCode samples an 8-character code from A-Z0-9. Uniqueness is
// enforced by the accounts.referral_code index; the account manager
// retries on collision.
func NewReferralCode() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms; fall back to a
		// uuid-derived code rather than panicking.
		return randomSuffix(8)
	}
	for i, b := range buf {
		buf[i] = referralAlphabet[int(b)%len(referralAlphabet)]
	}
	return string(buf)
}
