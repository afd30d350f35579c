package supabase

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/auth-actions/internal/config"
	"github.com/auth-actions/internal/domain"
	auth "github.com/supabase-community/auth-go"
	"github.com/supabase-community/auth-go/types"
	postgrest "github.com/supabase-community/postgrest-go"
)

// adminAPI is the part of the GoTrue admin API the identity provider uses.
type adminAPI interface {
	AdminCreateUser(req types.AdminCreateUserRequest) (*types.AdminCreateUserResponse, error)
	AdminUpdateUser(req types.AdminUpdateUserRequest) (*types.AdminUpdateUserResponse, error)
}

// Client is the Supabase identity provider: account writes go through the
// GoTrue admin API, email lookups through PostgREST. Both use the service-role key.
type Client struct {
	admin adminAPI
	rest  func(schema string) *postgrest.Client
}

// NewClient rejects a JWT-format key that is expired or not a service_role key;
// admin calls made with it would all fail.
func NewClient(cfg *config.Config) (*Client, error) {
	if err := checkServiceKey(cfg.SupabaseServiceRoleKey); err != nil {
		return nil, err
	}
	admin := auth.New("", cfg.SupabaseServiceRoleKey).
		WithCustomAuthURL(cfg.SupabaseURL + "/auth/v1").
		WithToken(cfg.SupabaseServiceRoleKey).
		WithClient(http.Client{Timeout: cfg.IDPTimeout})
	return &Client{
		admin: admin,
		rest:  restClients(cfg.SupabaseURL+"/rest/v1", cfg.SupabaseServiceRoleKey),
	}, nil
}

// restClients returns a PostgREST client factory. postgrest.Client keeps the
// first error it sees, so every lookup starts from a fresh one.
func restClients(restURL, key string) func(schema string) *postgrest.Client {
	return func(schema string) *postgrest.Client {
		return postgrest.NewClient(restURL, schema, map[string]string{
			"apikey":        key,
			"Authorization": "Bearer " + key,
		})
	}
}

// providerError wraps a failed admin call, keeping GoTrue's message when the
// error carries its JSON body.
func providerError(fallback string, err error) error {
	return domain.Wrap(domain.ErrDependency, providerMessage(err, fallback), err)
}

// providerMessage extracts msg from errors shaped "response status code N: {json}".
func providerMessage(err error, fallback string) string {
	s := err.Error()
	i := strings.Index(s, "{")
	if i < 0 {
		return fallback
	}
	var body struct {
		Msg              string `json:"msg"`
		Message          string `json:"message"`
		ErrorDescription string `json:"error_description"`
		Error            string `json:"error"`
	}
	if json.Unmarshal([]byte(s[i:]), &body) != nil {
		return fallback
	}
	for _, m := range []string{body.Msg, body.Message, body.ErrorDescription, body.Error} {
		if m != "" {
			return m
		}
	}
	return fallback
}

func notFound(email string) error {
	return fmt.Errorf("user %q: %w", email, domain.ErrNotFound)
}
