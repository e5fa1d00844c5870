package audit

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"credvault/internal/http/shared"
	"credvault/internal/platform/middleware"
	"credvault/pkg/domain"
	dErrors "credvault/pkg/domain-errors"
)

// Handler exposes the audit trail, newest first. Issuer only.
type Handler struct {
	store     Store
	logger    *slog.Logger
	validator middleware.SessionValidator
}

func NewHandler(store Store, logger *slog.Logger, validator middleware.SessionValidator) *Handler {
	return &Handler{store: store, logger: logger, validator: validator}
}

func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.validator, h.logger))
		r.Use(middleware.RequireRole(h.logger, domain.RoleIssuer))
		r.Get("/api/audit", h.handleList)
	})
}

type entryResponse struct {
	Action    string `json:"action"`
	Category  string `json:"category"`
	Metadata  string `json:"metadata"`
	Timestamp string `json:"timestamp"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	entries, err := h.store.List(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "list audit entries failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.Wrap(dErrors.CodeInternal, "list audit entries", err))
		return
	}

	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryResponse{
			Action:    string(e.Action),
			Category:  string(e.Action.Category()),
			Metadata:  e.Metadata,
			Timestamp: e.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		})
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"entries": out})
}
