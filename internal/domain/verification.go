package domain

import "time"

// Purpose names the account action a verification code authorizes.
type Purpose string

const (
	PurposeSignup Purpose = "signup"
	PurposeReset  Purpose = "reset"
)

// Valid reports whether p is one of the known purposes.
func (p Purpose) Valid() bool {
	return p == PurposeSignup || p == PurposeReset
}

// VerificationCode is a one-time code stored per (email, purpose).
// PK: email, SK: purpose. Writing a new code for the pair overwrites the previous one.
// ClaimID / ClaimedUntil hold the consumption lease taken while the gated account
// mutation runs; they are empty on a freshly issued code.
type VerificationCode struct {
	Email        string    `json:"email" dynamodbav:"email"`
	Purpose      Purpose   `json:"type" dynamodbav:"purpose"`
	ID           string    `json:"id" dynamodbav:"id"`
	Code         string    `json:"code" dynamodbav:"code"`
	ExpiresAt    time.Time `json:"expires_at" dynamodbav:"expires_at,unixtime"`
	CreatedAt    time.Time `json:"created_at" dynamodbav:"created_at"`
	ClaimID      string    `json:"-" dynamodbav:"claim_id,omitempty"`
	ClaimedUntil int64     `json:"-" dynamodbav:"claimed_until,omitempty"` // Unix seconds
}

// Expired reports whether the code is no longer usable at now.
// A code is valid strictly before ExpiresAt.
func (v *VerificationCode) Expired(now time.Time) bool {
	return !now.Before(v.ExpiresAt)
}
