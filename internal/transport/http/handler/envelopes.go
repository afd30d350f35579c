package handler

import (
	"encoding/json"
	"net/http"

	"github.com/auth-actions/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// UserEnvelope wraps the account created by signup.
type UserEnvelope struct {
	User *domain.User `json:"user"`
}

// SuccessEnvelope acknowledges a consumed code.
type SuccessEnvelope struct {
	Success bool `json:"success"`
}

// ValidEnvelope reports a peeked code's purpose.
type ValidEnvelope struct {
	Valid bool           `json:"valid"`
	Type  domain.Purpose `json:"type"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}
