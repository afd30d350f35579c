package verification

import (
	"context"
	"errors"
	"time"

	"github.com/auth-actions/internal/domain"
)

type codeStore interface {
	Replace(ctx context.Context, v *domain.VerificationCode) error
	Get(ctx context.Context, email string, purpose domain.Purpose) (*domain.VerificationCode, error)
	ListByEmail(ctx context.Context, email string) ([]domain.VerificationCode, error)
	Claim(ctx context.Context, v *domain.VerificationCode, claimID string, now, until time.Time) error
	Release(ctx context.Context, v *domain.VerificationCode) error
	Delete(ctx context.Context, v *domain.VerificationCode) error
}

// identityProvider is the user-account system. LookupUserID returns an error
// wrapping domain.ErrNotFound when no account has the email.
type identityProvider interface {
	CreateUser(ctx context.Context, p domain.CreateUserParams) (*domain.User, error)
	LookupUserID(ctx context.Context, email string) (string, error)
	ConfirmEmail(ctx context.Context, userID string) error
	SetPassword(ctx context.Context, userID, password string) error
}

type mailer interface {
	SendEmail(ctx context.Context, to, subject, html string) error
}

// Deps wires the issuer and the verifier.
type Deps struct {
	Codes      codeStore
	Identity   identityProvider
	Mailer     mailer
	AppName    string
	CodeTTL    time.Duration
	ClaimLease time.Duration
	Now        func() time.Time // defaults to time.Now
}

func (d Deps) clock() func() time.Time {
	if d.Now != nil {
		return d.Now
	}
	return time.Now
}

// dependencyErr keeps a collaborator's user-facing error as is and wraps
// anything else under msg.
func dependencyErr(msg string, err error) error {
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	return domain.Wrap(domain.ErrDependency, msg, err)
}
