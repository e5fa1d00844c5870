package token

import (
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"credvault/internal/http/shared"
	"credvault/internal/platform/middleware"
	"credvault/pkg/domain"
	dErrors "credvault/pkg/domain-errors"
)

const qrSize = 512

// Handler exposes share token generation. Only holders may mint tokens.
type Handler struct {
	service      *Service
	logger       *slog.Logger
	validator    middleware.SessionValidator
	shareBaseURL string
}

func NewHandler(service *Service, logger *slog.Logger, validator middleware.SessionValidator, shareBaseURL string) *Handler {
	return &Handler{service: service, logger: logger, validator: validator, shareBaseURL: shareBaseURL}
}

func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.RequireAuth(h.validator, h.logger))
		r.Use(middleware.RequireRole(h.logger, domain.RoleHolder))
		r.Post("/api/share", h.handleShare)
	})
}

type shareRequest struct {
	HolderID   string `json:"holderId"`
	TTLMinutes int    `json:"ttlMinutes"`
	IncludeQR  bool   `json:"includeQr"`
}

type shareResponse struct {
	Token     Token  `json:"token"`
	Encoded   string `json:"encoded"`
	ShareLink string `json:"shareLink"`
	QRPNG     string `json:"qrPng,omitempty"`
}

func (h *Handler) handleShare(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req shareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.HolderID == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "holderId is required"))
		return
	}

	tok, encoded, err := h.service.Share(ctx, req.HolderID, time.Duration(req.TTLMinutes)*time.Minute)
	if err != nil {
		h.logger.WarnContext(ctx, "share token generation failed",
			"request_id", middleware.GetRequestID(ctx),
			"holder_id", req.HolderID,
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	link, err := BuildShareLink(h.shareBaseURL, encoded)
	if err != nil {
		shared.WriteError(w, dErrors.Wrap(dErrors.CodeInternal, "build share link", err))
		return
	}

	resp := shareResponse{Token: tok, Encoded: encoded, ShareLink: link}
	if req.IncludeQR {
		qr, err := QRPNG(encoded, qrSize)
		if err != nil {
			shared.WriteError(w, dErrors.Wrap(dErrors.CodeInternal, "render QR code", err))
			return
		}
		resp.QRPNG = base64.StdEncoding.EncodeToString(qr)
	}
	shared.WriteJSON(w, http.StatusOK, resp)
}
