package verification

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/auth-actions/internal/domain"
	"github.com/auth-actions/internal/pkg/id"
)

// Verifier checks codes and, for the consuming operations, drives the gated
// account mutation before deleting the code.
type Verifier struct {
	codes    codeStore
	identity identityProvider
	lease    time.Duration
	now      func() time.Time
}

func NewVerifier(deps Deps) *Verifier {
	return &Verifier{
		codes:    deps.Codes,
		identity: deps.Identity,
		lease:    deps.ClaimLease,
		now:      deps.clock(),
	}
}

// Peek reports the purpose of the live code matching (email, code) without
// consuming it. Any purpose matches; an ambiguous match is rejected.
func (v *Verifier) Peek(ctx context.Context, email, code string) (domain.Purpose, error) {
	if email == "" {
		return "", domain.ErrEmailRequired
	}
	if code == "" {
		return "", domain.ErrCodeRequired
	}
	rows, err := v.codes.ListByEmail(ctx, email)
	if err != nil {
		return "", dependencyErr("Could not verify code", err)
	}
	var match *domain.VerificationCode
	n := 0
	for k := range rows {
		if rows[k].Code == code {
			match = &rows[k]
			n++
		}
	}
	if n != 1 {
		return "", domain.ErrInvalidCode
	}
	if match.Expired(v.now()) {
		return "", domain.ErrCodeExpired
	}
	return match.Purpose, nil
}

// CompleteSignup consumes a signup code and confirms the account's email.
func (v *Verifier) CompleteSignup(ctx context.Context, email, code string) error {
	if email == "" {
		return domain.ErrEmailRequired
	}
	if code == "" {
		return domain.ErrCodeRequired
	}
	return v.consume(ctx, email, code, domain.PurposeSignup, domain.ErrUserNotFound,
		func(ctx context.Context, userID string) error {
			return v.identity.ConfirmEmail(ctx, userID)
		})
}

// CompleteReset consumes a reset code and sets the account's password.
func (v *Verifier) CompleteReset(ctx context.Context, email, code, newPassword string) error {
	if email == "" {
		return domain.ErrEmailRequired
	}
	if code == "" || newPassword == "" {
		return domain.ErrCodeAndPassword
	}
	return v.consume(ctx, email, code, domain.PurposeReset, domain.ErrUserAccountNotFound,
		func(ctx context.Context, userID string) error {
			return v.identity.SetPassword(ctx, userID, newPassword)
		})
}

// consume leases the (email, purpose) code, runs mutate for the account and
// deletes the code only once mutate succeeded. A failed mutation releases the
// lease so the same code can be retried.
func (v *Verifier) consume(ctx context.Context, email, code string, purpose domain.Purpose,
	noAccount error, mutate func(ctx context.Context, userID string) error) error {
	row, err := v.codes.Get(ctx, email, purpose)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ErrInvalidCode
	}
	if err != nil {
		return dependencyErr("Could not verify code", err)
	}
	if row.Code != code {
		return domain.ErrInvalidCode
	}
	now := v.now()
	if row.Expired(now) {
		return domain.ErrCodeExpired
	}

	if err := v.codes.Claim(ctx, row, id.New(), now, now.Add(v.lease)); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrInvalidCode
		}
		return dependencyErr("Could not verify code", err)
	}

	userID, err := v.identity.LookupUserID(ctx, email)
	if err != nil {
		v.release(ctx, row)
		if errors.Is(err, domain.ErrNotFound) {
			return noAccount
		}
		return dependencyErr("Could not look up account", err)
	}
	if err := mutate(ctx, userID); err != nil {
		v.release(ctx, row)
		return dependencyErr("Could not update account", err)
	}

	if err := v.codes.Delete(ctx, row); err != nil {
		slog.Warn("account updated but consumed code not deleted",
			"email", email, "purpose", purpose, "code_id", row.ID, "err", err)
	}
	return nil
}

func (v *Verifier) release(ctx context.Context, row *domain.VerificationCode) {
	if err := v.codes.Release(ctx, row); err != nil {
		slog.Warn("could not release verification code lease",
			"email", row.Email, "purpose", row.Purpose, "code_id", row.ID, "err", err)
	}
}
