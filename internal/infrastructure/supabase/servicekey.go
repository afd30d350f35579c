package supabase

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const serviceRole = "service_role"

// checkServiceKey validates the claims of a legacy JWT-format Supabase key. The
// signature is not checked; Supabase verifies the key on every call. Opaque
// secret keys (sb_secret_...) are not JWTs and pass unchecked.
func checkServiceKey(key string) error {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(key, claims); err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return nil
		}
		return fmt.Errorf("parse supabase key: %w", err)
	}
	if role, _ := claims["role"].(string); role != serviceRole {
		return fmt.Errorf("supabase key has role %q, want %s", role, serviceRole)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return fmt.Errorf("supabase key exp claim: %w", err)
	}
	if exp != nil && !time.Now().Before(exp.Time) {
		return fmt.Errorf("supabase key expired at %s", exp.Time.UTC().Format(time.RFC3339))
	}
	return nil
}
