// Package handler exposes the claim lifecycle over HTTP. It delegates to the
// lifecycle engine and keeps transport concerns out of business code.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/go-chi/chi/v5"

	"credvault/internal/claim/models"
	"credvault/internal/claim/service"
	"credvault/internal/http/shared"
	"credvault/internal/platform/metrics"
	"credvault/internal/platform/middleware"
	"credvault/pkg/domain"
	dErrors "credvault/pkg/domain-errors"
)

// Handler handles claim lifecycle endpoints.
type Handler struct {
	engine    *service.Service
	logger    *slog.Logger
	metrics   *metrics.Metrics
	validator middleware.SessionValidator
}

func New(engine *service.Service, logger *slog.Logger, m *metrics.Metrics, validator middleware.SessionValidator) *Handler {
	return &Handler{engine: engine, logger: logger, metrics: m, validator: validator}
}

// Register mounts the claim routes with their middleware chain.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.LatencyMiddleware(h.metrics))
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.RequireAuth(h.validator, h.logger))

		r.Get("/api/claims/{holderID}", h.handleListByHolder)
		r.Get("/api/claims/chain/{id}", h.handleVersionChain)

		issuerOnly := middleware.RequireRole(h.logger, domain.RoleIssuer)
		r.With(issuerOnly).Post("/api/claims", h.handleIssue)
		r.With(issuerOnly).Post("/api/claims/revoke", h.handleRevoke)
		r.With(issuerOnly).Post("/api/claims/supersede", h.handleSupersede)
		r.With(issuerOnly).Post("/api/holders", h.handleRegisterHolder)

		r.With(middleware.RequireRole(h.logger, domain.RoleHolder)).
			Post("/api/claims/visibility", h.handleSetVisibility)
	})
}

// claimResponse flattens a claim for the wire.
type claimResponse struct {
	ID                string `json:"id"`
	HolderID          string `json:"holderId"`
	Kind              string `json:"kind"`
	Value             string `json:"value"`
	Issuer            string `json:"issuer"`
	IssuedOn          string `json:"issuedOn"`
	Status            string `json:"status"`
	Visible           bool   `json:"visible"`
	RevocationReason  string `json:"revocationReason,omitempty"`
	PreviousVersionID string `json:"previousVersionId,omitempty"`
	NextVersionID     string `json:"nextVersionId,omitempty"`
	ExternalAnchorID  string `json:"externalAnchorId,omitempty"`
	RecordHash        string `json:"recordHash,omitempty"`
}

func toClaimResponse(c models.Claim) claimResponse {
	return claimResponse{
		ID:                c.ID,
		HolderID:          c.HolderID,
		Kind:              string(c.Kind),
		Value:             c.Value,
		Issuer:            c.Issuer,
		IssuedOn:          c.IssuedOn.Format("2006-01-02"),
		Status:            string(c.Status),
		Visible:           c.Visible,
		RevocationReason:  c.RevocationReason,
		PreviousVersionID: c.PreviousVersionID,
		NextVersionID:     c.NextVersionID,
		ExternalAnchorID:  c.ExternalAnchorID,
		RecordHash:        c.RecordHash,
	}
}

func toClaimResponses(claims []models.Claim) []claimResponse {
	out := make([]claimResponse, 0, len(claims))
	for _, c := range claims {
		out = append(out, toClaimResponse(c))
	}
	return out
}

func (h *Handler) handleListByHolder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	holderID := chi.URLParam(r, "holderID")

	if _, err := h.engine.GetHolder(ctx, holderID); err != nil {
		shared.WriteError(w, err)
		return
	}
	claims, err := h.engine.ListByHolder(ctx, holderID)
	if err != nil {
		h.logger.ErrorContext(ctx, "list claims failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"claims": toClaimResponses(claims)})
}

func (h *Handler) handleVersionChain(w http.ResponseWriter, r *http.Request) {
	chain, err := h.engine.VersionChain(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"chain": toClaimResponses(chain)})
}

type issueRequest struct {
	HolderID          string `json:"holderId"`
	Kind              string `json:"kind"`
	Value             string `json:"value"`
	Issuer            string `json:"issuer"`
	IssuedOn          string `json:"issuedOn"`
	PreviousVersionID string `json:"previousVersionId"`
	FileHash          string `json:"fileHash"`
}

func (req issueRequest) toService() (service.IssueRequest, error) {
	if !govalidator.StringLength(req.HolderID, "1", "100") {
		return service.IssueRequest{}, dErrors.New(dErrors.CodeBadRequest, "holderId must be 1-100 characters")
	}
	if !govalidator.StringLength(req.Value, "1", "2000") {
		return service.IssueRequest{}, dErrors.New(dErrors.CodeBadRequest, "value must be 1-2000 characters")
	}
	out := service.IssueRequest{
		HolderID:          req.HolderID,
		Kind:              models.Kind(req.Kind),
		Value:             req.Value,
		Issuer:            req.Issuer,
		PreviousVersionID: req.PreviousVersionID,
		FileHash:          req.FileHash,
	}
	if req.IssuedOn != "" {
		issuedOn, err := time.Parse("2006-01-02", req.IssuedOn)
		if err != nil {
			return service.IssueRequest{}, dErrors.New(dErrors.CodeBadRequest, "issuedOn must be YYYY-MM-DD")
		}
		out.IssuedOn = issuedOn
	}
	return out, nil
}

func (h *Handler) handleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req issueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	svcReq, err := req.toService()
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if svcReq.Issuer == "" {
		svcReq.Issuer = middleware.GetSubject(ctx)
	}

	claim, err := h.engine.Issue(ctx, svcReq)
	if err != nil {
		h.logger.WarnContext(ctx, "issue claim failed",
			"request_id", middleware.GetRequestID(ctx),
			"holder_id", req.HolderID,
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, toClaimResponse(claim))
}

type revokeRequest struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

func (h *Handler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req revokeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if !govalidator.StringLength(req.Reason, "1", "500") {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "reason must be 1-500 characters"))
		return
	}

	claim, err := h.engine.Revoke(ctx, req.ID, req.Reason)
	if err != nil {
		h.logger.WarnContext(ctx, "revoke claim failed",
			"request_id", middleware.GetRequestID(ctx),
			"claim_id", req.ID,
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toClaimResponse(claim))
}

type supersedeRequest struct {
	PreviousVersionID string `json:"previousVersionId"`
	Value             string `json:"value"`
	Kind              string `json:"kind"`
	IssuedOn          string `json:"issuedOn"`
	FileHash          string `json:"fileHash"`
}

// handleSupersede issues a replacement version linked to an existing active
// claim. Holder and kind default to the predecessor's.
func (h *Handler) handleSupersede(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req supersedeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.PreviousVersionID == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "previousVersionId is required"))
		return
	}

	prev, err := h.engine.Get(ctx, req.PreviousVersionID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	issue := issueRequest{
		HolderID:          prev.HolderID,
		Kind:              string(prev.Kind),
		Value:             req.Value,
		Issuer:            prev.Issuer,
		IssuedOn:          req.IssuedOn,
		PreviousVersionID: prev.ID,
		FileHash:          req.FileHash,
	}
	if req.Kind != "" {
		issue.Kind = req.Kind
	}
	svcReq, err := issue.toService()
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	claim, err := h.engine.Issue(ctx, svcReq)
	if err != nil {
		h.logger.WarnContext(ctx, "supersede claim failed",
			"request_id", middleware.GetRequestID(ctx),
			"previous_version_id", req.PreviousVersionID,
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, toClaimResponse(claim))
}

type visibilityRequest struct {
	ID      string `json:"id"`
	Visible *bool  `json:"visible"`
}

func (h *Handler) handleSetVisibility(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req visibilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.Visible == nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "visible is required"))
		return
	}

	claim, err := h.engine.SetVisibility(ctx, req.ID, *req.Visible)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toClaimResponse(claim))
}

type registerHolderRequest struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Batch string `json:"batch"`
	Dept  string `json:"dept"`
}

func (h *Handler) handleRegisterHolder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req registerHolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.Email != "" && !govalidator.IsEmail(req.Email) {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "email is not valid"))
		return
	}

	if err := h.engine.RegisterHolder(ctx, models.Holder{
		ID:    req.ID,
		Name:  req.Name,
		Email: req.Email,
		Batch: req.Batch,
		Dept:  req.Dept,
	}); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
