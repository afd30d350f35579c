package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/auth-actions/internal/application/verification"
	"github.com/auth-actions/internal/domain"
	"github.com/auth-actions/internal/pkg/validate"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// Actions accepted by POST /auth-actions.
const (
	ActionRequestReset  = "request_reset"
	ActionSignup        = "signup"
	ActionVerifySignup  = "verify_signup"
	ActionVerifyCode    = "verify_code"
	ActionCompleteReset = "complete_reset"
)

// CodeIssuer issues verification codes.
type CodeIssuer interface {
	RequestReset(ctx context.Context, email string) error
	Signup(ctx context.Context, req verification.SignupRequest) (*domain.User, error)
}

// CodeVerifier checks and consumes verification codes.
type CodeVerifier interface {
	Peek(ctx context.Context, email, code string) (domain.Purpose, error)
	CompleteSignup(ctx context.Context, email, code string) error
	CompleteReset(ctx context.Context, email, code, newPassword string) error
}

// AuthActionRequest is the body of POST /auth-actions. Which optional fields
// matter depends on Action.
type AuthActionRequest struct {
	Email       string         `json:"email" validate:"required"`
	Action      string         `json:"action" validate:"required,oneof=request_reset signup verify_signup verify_code complete_reset"`
	Code        string         `json:"code,omitempty"`
	Password    string         `json:"password,omitempty"`
	NewPassword string         `json:"newPassword,omitempty"`
	Data        map[string]any `json:"data,omitempty"`
}

// AuthActionsHandler dispatches the signup and password-reset actions.
type AuthActionsHandler struct {
	issuer   CodeIssuer
	verifier CodeVerifier
}

func NewAuthActionsHandler(issuer CodeIssuer, verifier CodeVerifier) *AuthActionsHandler {
	return &AuthActionsHandler{issuer: issuer, verifier: verifier}
}

// Preflight answers CORS preflight requests that carry no Origin header.
func (h *AuthActionsHandler) Preflight(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (h *AuthActionsHandler) Action(w http.ResponseWriter, r *http.Request) {
	var req AuthActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		if validate.Failed(err, "Email") {
			writeError(w, http.StatusBadRequest, domain.ErrEmailRequired.Msg)
			return
		}
		writeError(w, http.StatusBadRequest, domain.ErrInvalidAction.Msg)
		return
	}

	ctx := r.Context()
	switch req.Action {
	case ActionRequestReset:
		if err := h.issuer.RequestReset(ctx, req.Email); err != nil {
			h.fail(w, r, req.Action, err)
			return
		}
		writeJSON(w, http.StatusOK, MessageEnvelope{Message: "Code sent successfully"})
	case ActionSignup:
		u, err := h.issuer.Signup(ctx, verification.SignupRequest{
			Email: req.Email, Password: req.Password, Data: req.Data,
		})
		if err != nil {
			h.fail(w, r, req.Action, err)
			return
		}
		writeJSON(w, http.StatusOK, UserEnvelope{User: u})
	case ActionVerifySignup:
		if err := h.verifier.CompleteSignup(ctx, req.Email, req.Code); err != nil {
			h.fail(w, r, req.Action, err)
			return
		}
		writeJSON(w, http.StatusOK, SuccessEnvelope{Success: true})
	case ActionVerifyCode:
		purpose, err := h.verifier.Peek(ctx, req.Email, req.Code)
		if err != nil {
			h.fail(w, r, req.Action, err)
			return
		}
		writeJSON(w, http.StatusOK, ValidEnvelope{Valid: true, Type: purpose})
	case ActionCompleteReset:
		if err := h.verifier.CompleteReset(ctx, req.Email, req.Code, req.NewPassword); err != nil {
			h.fail(w, r, req.Action, err)
			return
		}
		writeJSON(w, http.StatusOK, SuccessEnvelope{Success: true})
	}
}

// fail reports every action failure as 400 with the user-facing message.
func (h *AuthActionsHandler) fail(w http.ResponseWriter, r *http.Request, action string, err error) {
	slog.Warn("auth action failed",
		"request_id", chimiddleware.GetReqID(r.Context()), "action", action, "err", err)
	writeError(w, http.StatusBadRequest, domain.Message(err))
}
