package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/asaskevich/govalidator"
	"github.com/go-chi/chi/v5"

	"credvault/internal/http/shared"
	"credvault/internal/platform/middleware"
	dErrors "credvault/pkg/domain-errors"
)

// Handler exposes the demo login flow.
type Handler struct {
	service   *Service
	logger    *slog.Logger
	validator middleware.SessionValidator
}

func NewHandler(service *Service, logger *slog.Logger, validator middleware.SessionValidator) *Handler {
	return &Handler{service: service, logger: logger, validator: validator}
}

func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		r.Post("/auth/login/otp", h.handleRequestOTP)
		r.Post("/auth/login", h.handleLogin)
		r.With(middleware.RequireAuth(h.validator, h.logger)).
			Post("/auth/logout", h.handleLogout)
	})
}

type otpRequest struct {
	Email string `json:"email"`
}

func (h *Handler) handleRequestOTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req otpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if !govalidator.IsEmail(req.Email) {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "email is not valid"))
		return
	}

	code, err := h.service.RequestOTP(ctx, req.Email)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	// Demo only: with no mail transport the code goes back in the response.
	shared.WriteJSON(w, http.StatusOK, map[string]string{"code": code})
}

type loginRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
	Role  string `json:"role"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	session, err := h.service.Login(ctx, req.Email, req.Code, req.Role)
	if err != nil {
		h.logger.WarnContext(ctx, "login failed",
			"request_id", middleware.GetRequestID(ctx),
			"email", req.Email,
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, session)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	h.service.Logout(ctx, middleware.GetSubject(ctx))
	w.WriteHeader(http.StatusNoContent)
}
