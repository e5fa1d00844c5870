package verify

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"credvault/internal/http/shared"
	"credvault/internal/ratelimit"
	"credvault/internal/token"
	dErrors "credvault/pkg/domain-errors"
)

// Handler exposes the public verification surface. Verifiers are anonymous,
// so these routes carry a rate limit instead of auth.
type Handler struct {
	verifier *Verifier
	logger   *slog.Logger
	limiter  *ratelimit.Limiter
}

func NewHandler(verifier *Verifier, logger *slog.Logger, limiter *ratelimit.Limiter) *Handler {
	return &Handler{verifier: verifier, logger: logger, limiter: limiter}
}

func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		if h.limiter != nil {
			r.Use(ratelimit.Middleware(h.limiter, h.logger))
		}
		r.Post("/api/verify", h.handleVerifyToken)
		r.Get("/api/verify/{holderID}", h.handleVerifyHolder)
	})
}

type verifyRequest struct {
	Token string `json:"token"`
	Link  string `json:"link"`
}

func (h *Handler) handleVerifyToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	serialized := req.Token
	if serialized == "" && req.Link != "" {
		var err error
		if serialized, err = token.TokenFromLink(req.Link); err != nil {
			shared.WriteError(w, err)
			return
		}
	}

	result, err := h.verifier.VerifyToken(ctx, serialized)
	if err != nil {
		h.logger.ErrorContext(ctx, "verification failed", "error", err.Error())
		shared.WriteError(w, dErrors.Wrap(dErrors.CodeInternal, "verify token", err))
		return
	}
	shared.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleVerifyHolder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	result, err := h.verifier.VerifyHolder(ctx, chi.URLParam(r, "holderID"))
	if err != nil {
		h.logger.ErrorContext(ctx, "holder lookup failed", "error", err.Error())
		shared.WriteError(w, dErrors.Wrap(dErrors.CodeInternal, "verify holder", err))
		return
	}
	shared.WriteJSON(w, http.StatusOK, result)
}
