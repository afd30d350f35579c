package supabase

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/auth-actions/internal/domain"
	"github.com/google/uuid"
	"github.com/supabase-community/auth-go/types"
)

func toDomainUser(u types.User) *domain.User {
	return &domain.User{
		UserID:           u.ID.String(),
		Email:            u.Email,
		EmailConfirmed:   u.EmailConfirmedAt != nil,
		EmailConfirmedAt: u.EmailConfirmedAt,
		UserMetadata:     u.UserMetadata,
		CreatedAt:        u.CreatedAt,
		UpdatedAt:        u.UpdatedAt,
	}
}

// CreateUser creates an account whose email is not yet confirmed.
func (c *Client) CreateUser(ctx context.Context, p domain.CreateUserParams) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	password := p.Password
	resp, err := c.admin.AdminCreateUser(types.AdminCreateUserRequest{
		Email:        p.Email,
		Password:     &password,
		EmailConfirm: false,
		UserMetadata: p.Data,
	})
	if err != nil {
		return nil, providerError("Failed to create user", err)
	}
	if resp == nil || resp.ID == uuid.Nil {
		return nil, domain.NewError(domain.ErrDependency, "Failed to create user")
	}
	return toDomainUser(resp.User), nil
}

// LookupUserID resolves an account id by exact email: first through the
// get_user_id_by_email RPC, then by querying auth.users directly.
func (c *Client) LookupUserID(ctx context.Context, email string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if id, ok := c.lookupByRPC(email); ok {
		return id, nil
	}

	var rows []struct {
		ID string `json:"id"`
	}
	_, err := c.rest("auth").From("users").Select("id", "", false).Eq("email", email).ExecuteTo(&rows)
	if err != nil {
		slog.Warn("auth.users lookup failed", "err", err)
		return "", notFound(email)
	}
	if len(rows) != 1 || rows[0].ID == "" {
		return "", notFound(email)
	}
	return rows[0].ID, nil
}

func (c *Client) lookupByRPC(email string) (string, bool) {
	rest := c.rest("public")
	raw := rest.Rpc("get_user_id_by_email", "", map[string]string{"email_arg": email})
	if rest.ClientError != nil {
		slog.Warn("get_user_id_by_email failed, querying auth.users", "err", rest.ClientError)
		return "", false
	}
	var id *string
	if err := json.Unmarshal([]byte(raw), &id); err != nil {
		slog.Warn("get_user_id_by_email returned no id, querying auth.users", "body", raw)
		return "", false
	}
	if id == nil || *id == "" {
		return "", false
	}
	return *id, true
}

// ConfirmEmail marks the account's email as confirmed.
func (c *Client) ConfirmEmail(ctx context.Context, userID string) error {
	return c.updateUser(ctx, userID, types.AdminUpdateUserRequest{EmailConfirm: true})
}

// SetPassword replaces the account's password.
func (c *Client) SetPassword(ctx context.Context, userID, password string) error {
	return c.updateUser(ctx, userID, types.AdminUpdateUserRequest{Password: password})
}

func (c *Client) updateUser(ctx context.Context, userID string, req types.AdminUpdateUserRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	id, err := uuid.Parse(userID)
	if err != nil {
		return domain.Wrap(domain.ErrNotFound, "User not found", err)
	}
	req.UserID = id
	if _, err := c.admin.AdminUpdateUser(req); err != nil {
		return providerError("Could not update account", err)
	}
	return nil
}
