package accounts

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/registration-demo/registration/internal/platform/httpx"
)

// BasicRealm is advertised on 401 responses from the activation endpoint.
const BasicRealm = "registration"

const (
	messageRegistered    = "Thanks, you will receive an email with the activation code"
	messageActivated     = "Your account has been successfully activated"
	messageAlreadyActive = "Your account is already activated"
)

// Engine is the behaviour the HTTP layer needs from Service.
type Engine interface {
	Register(ctx context.Context, in RegisterInput) (RegisterResult, error)
	Activate(ctx context.Context, in ActivateInput) (ActivateResult, error)
}

// Handler exposes registration and activation over JSON.
type Handler struct {
	logger  *slog.Logger
	service Engine
}

// NewHandler builds a Handler.
func NewHandler(logger *slog.Logger, service Engine) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers account routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/register", h.handleRegister)
	r.Post("/activate", h.handleActivate)
}

var errorMappings = []httpx.ErrorMapping{
	{Err: ErrInvalidRequest, Status: http.StatusBadRequest, Code: "InvalidRequest", Title: "Invalid Request"},
	{Err: ErrInvalidEmail, Status: http.StatusBadRequest, Code: "InvalidEmail", Title: "Invalid Email"},
	{Err: ErrInvalidPassword, Status: http.StatusBadRequest, Code: "InvalidPassword", Title: "Invalid Password"},
	{Err: ErrInvalidActivationCode, Status: http.StatusBadRequest, Code: "InvalidActivationCode", Title: "Invalid Activation Code"},
	{Err: ErrActivationExpired, Status: http.StatusBadRequest, Code: "ActivationExpired", Title: "Activation Expired"},
	{Err: ErrUnauthorized, Status: http.StatusUnauthorized, Code: "Unauthorized", Title: "Unauthorized"},
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type activateRequest struct {
	ActivationCode *string `json:"activation_code"`
}

type messageResponse struct {
	Status  string `json:"status,omitempty"`
	Message string `json:"message"`
}

// decodeObject decodes a non-empty JSON object into target. Empty bodies,
// null, {} and values of the wrong shape are rejected.
func decodeObject(r *http.Request, target any) error {
	var raw json.RawMessage
	if err := httpx.DecodeJSON(r, &raw); err != nil {
		return err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return err
	}
	if len(fields) == 0 {
		return ErrInvalidRequest
	}
	return json.Unmarshal(raw, target)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeObject(r, &req); err != nil {
		h.fail(w, r, ErrInvalidRequest)
		return
	}
	if _, err := h.service.Register(r.Context(), RegisterInput{Email: req.Email, Password: req.Password}); err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, messageResponse{Message: messageRegistered})
}

func (h *Handler) handleActivate(w http.ResponseWriter, r *http.Request) {
	var req activateRequest
	if err := decodeObject(r, &req); err != nil || req.ActivationCode == nil {
		h.fail(w, r, ErrInvalidRequest)
		return
	}
	email, password, _ := r.BasicAuth()
	result, err := h.service.Activate(r.Context(), ActivateInput{
		Email:          email,
		Password:       password,
		ActivationCode: *req.ActivationCode,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	message := messageActivated
	if result == AlreadyActive {
		message = messageAlreadyActive
	}
	httpx.JSON(w, http.StatusOK, messageResponse{Status: string(result), Message: message})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if !httpx.IsMapped(err, errorMappings) {
		h.logger.Error("account request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	if errors.Is(err, ErrUnauthorized) {
		w.Header().Set("WWW-Authenticate", `Basic realm="`+BasicRealm+`"`)
	}
	httpx.RespondError(w, err, errorMappings)
}
