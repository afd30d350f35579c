package verification

import (
	"context"
	"log/slog"
	"time"

	"github.com/auth-actions/internal/domain"
	"github.com/auth-actions/internal/pkg/otp"
)

// SignupRequest carries the account to create before its signup code is issued.
type SignupRequest struct {
	Email    string
	Password string
	Data     map[string]any
}

// Issuer generates codes, keeps one live code per (email, purpose) and mails them.
type Issuer struct {
	codes    codeStore
	identity identityProvider
	mailer   mailer
	appName  string
	ttl      time.Duration
	now      func() time.Time
}

func NewIssuer(deps Deps) *Issuer {
	return &Issuer{
		codes:    deps.Codes,
		identity: deps.Identity,
		mailer:   deps.Mailer,
		appName:  deps.AppName,
		ttl:      deps.CodeTTL,
		now:      deps.clock(),
	}
}

// Issue replaces the live code for (email, purpose) with a fresh one and emails it.
// The code stays stored when delivery fails; the next Issue supersedes it.
func (i *Issuer) Issue(ctx context.Context, email string, purpose domain.Purpose) (*domain.VerificationCode, error) {
	if email == "" {
		return nil, domain.ErrEmailRequired
	}
	if !purpose.Valid() {
		return nil, domain.NewError(domain.ErrValidation, "Unknown code purpose")
	}
	code, err := otp.New()
	if err != nil {
		return nil, err
	}
	now := i.now()
	// The store keeps whole Unix seconds; the returned record must match it.
	expiresAt := now.Add(i.ttl).Truncate(time.Second)
	v := &domain.VerificationCode{
		Email:     email,
		Purpose:   purpose,
		Code:      code,
		ExpiresAt: expiresAt,
		CreatedAt: now,
	}
	if err := i.codes.Replace(ctx, v); err != nil {
		return nil, dependencyErr("Could not save verification code", err)
	}

	html, err := renderEmail(i.appName, code, i.ttl, now)
	if err != nil {
		return nil, err
	}
	if err := i.mailer.SendEmail(ctx, email, subjectFor(i.appName, purpose), html); err != nil {
		slog.Warn("verification code stored but not delivered", "email", email, "purpose", purpose, "err", err)
		return nil, dependencyErr("Failed to send verification email", err)
	}
	slog.Info("verification code issued", "email", email, "purpose", purpose, "expires_at", v.ExpiresAt)
	return v, nil
}

// RequestReset issues a password-reset code. It does not reveal whether an
// account exists for email.
func (i *Issuer) RequestReset(ctx context.Context, email string) error {
	_, err := i.Issue(ctx, email, domain.PurposeReset)
	return err
}

// Signup creates an unconfirmed account and issues its signup code. Account
// creation failure aborts before any code is generated.
func (i *Issuer) Signup(ctx context.Context, req SignupRequest) (*domain.User, error) {
	if req.Email == "" {
		return nil, domain.ErrEmailRequired
	}
	u, err := i.identity.CreateUser(ctx, domain.CreateUserParams{
		Email:    req.Email,
		Password: req.Password,
		Data:     req.Data,
	})
	if err != nil {
		return nil, dependencyErr("Failed to create user", err)
	}
	if u == nil {
		return nil, domain.NewError(domain.ErrDependency, "Failed to create user")
	}
	if _, err := i.Issue(ctx, req.Email, domain.PurposeSignup); err != nil {
		return nil, err
	}
	return u, nil
}
