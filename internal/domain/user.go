package domain

import "time"

// User is the identity-provider account record returned to signup callers.
type User struct {
	UserID           string         `json:"id" dynamodbav:"user_id"`
	Email            string         `json:"email" dynamodbav:"email"`
	PasswordHash     string         `json:"-" dynamodbav:"password_hash"`
	EmailConfirmed   bool           `json:"email_confirmed" dynamodbav:"email_confirmed"`
	EmailConfirmedAt *time.Time     `json:"email_confirmed_at,omitempty" dynamodbav:"email_confirmed_at,omitempty"`
	UserMetadata     map[string]any `json:"user_metadata,omitempty" dynamodbav:"user_metadata,omitempty"`
	CreatedAt        time.Time      `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at" dynamodbav:"updated_at"`
}

// CreateUserParams describes an unconfirmed account to create at signup.
type CreateUserParams struct {
	Email    string
	Password string
	Data     map[string]any
}
