package http

import "github.com/auth-actions/internal/transport/http/handler"

// Deps holds the application services the router exposes.
type Deps struct {
	Issuer   handler.CodeIssuer
	Verifier handler.CodeVerifier
}
