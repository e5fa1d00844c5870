package bulk

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"credvault/internal/http/shared"
	"credvault/internal/platform/middleware"
	"credvault/pkg/domain"
	dErrors "credvault/pkg/domain-errors"
)

// Handler exposes batch issuance and batch verification. The issue endpoint
// takes the CSV directly as the request body, so it skips the JSON content
// type gate the rest of the API uses.
type Handler struct {
	importer  *Importer
	exporter  *Exporter
	logger    *slog.Logger
	validator middleware.SessionValidator
}

func NewHandler(importer *Importer, exporter *Exporter, logger *slog.Logger, validator middleware.SessionValidator) *Handler {
	return &Handler{importer: importer, exporter: exporter, logger: logger, validator: validator}
}

func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.validator, h.logger))

		r.With(middleware.RequireRole(h.logger, domain.RoleIssuer)).
			Post("/api/bulk/issue", h.handleBulkIssue)
		r.With(middleware.ContentTypeJSON, middleware.RequireRole(h.logger, domain.RoleIssuer, domain.RoleVerifier)).
			Post("/api/bulk/verify", h.handleBulkVerify)
	})
}

func (h *Handler) handleBulkIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	issuer := r.URL.Query().Get("issuer")
	if issuer == "" {
		issuer = middleware.GetSubject(ctx)
	}

	report, err := h.importer.Import(ctx, r.Body, issuer, nil)
	if err != nil {
		h.logger.WarnContext(ctx, "bulk issue failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, report)
}

type bulkVerifyRequest struct {
	Identifiers []string `json:"identifiers"`
}

func (h *Handler) handleBulkVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req bulkVerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if len(req.Identifiers) == 0 {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "identifiers must not be empty"))
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="verification.csv"`)
	if err := h.exporter.Export(ctx, w, req.Identifiers, nil); err != nil {
		// Headers are already out; all we can do is log.
		h.logger.ErrorContext(ctx, "bulk verify failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
	}
}
