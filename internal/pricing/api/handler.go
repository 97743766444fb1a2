package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"pricecompare/internal/common/logging"
	"pricecompare/internal/common/types"
	"pricecompare/internal/pricing/application"
	"pricecompare/internal/pricing/domain"
)

const (
	headerActorID    = "X-Actor-ID"
	headerActorRoles = "X-Actor-Roles"
)

// Handler implements the HTTP handlers for the pricing ledger.
type Handler struct {
	service *application.LedgerService
}

// NewHandler creates a new Handler.
func NewHandler(service *application.LedgerService) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the ledger routes on the given mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /items", h.CreateItem)
	mux.HandleFunc("GET /items/{code}", h.GetItem)
	mux.HandleFunc("DELETE /items/{code}", h.DeleteItem)
	mux.HandleFunc("POST /suppliers", h.CreateSupplier)
	mux.HandleFunc("GET /suppliers/{name}", h.GetSupplier)
	mux.HandleFunc("DELETE /suppliers/{name}", h.DeleteSupplier)
	mux.HandleFunc("PUT /items/{code}/suppliers/{name}", h.Link)
	mux.HandleFunc("PATCH /items/{code}/suppliers/{name}", h.UpdatePrice)
	mux.HandleFunc("DELETE /items/{code}/suppliers/{name}", h.Unlink)
	mux.HandleFunc("DELETE /items/{code}/suppliers/{name}/rebates/{index}", h.RemoveRebate)
	mux.HandleFunc("GET /audit", h.Audit)
}

// CreateItemRequest is the JSON request body for registering an item.
type CreateItemRequest struct {
	Standard string `json:"standard"`
	Code     string `json:"code"`
	Name     string `json:"name"`
}

// CreateItem handles POST /items.
func (h *Handler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req CreateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	item, err := h.service.CreateItem(r.Context(), application.CreateItemRequest{
		Standard: req.Standard,
		Code:     req.Code,
		Name:     req.Name,
	})
	if err != nil {
		h.handleDomainError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, toItemResponse(item))
}

// GetItem handles GET /items/{code}.
func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.service.GetItem(r.Context(), r.PathValue("code"))
	if err != nil {
		h.handleDomainError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toItemResponse(item))
}

// CreateSupplierRequest is the JSON request body for registering a supplier.
type CreateSupplierRequest struct {
	Name string `json:"name"`
}

// CreateSupplier handles POST /suppliers.
func (h *Handler) CreateSupplier(w http.ResponseWriter, r *http.Request) {
	var req CreateSupplierRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	supplier, err := h.service.CreateSupplier(r.Context(), application.CreateSupplierRequest{Name: req.Name})
	if err != nil {
		h.handleDomainError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, toSupplierResponse(supplier))
}

// GetSupplier handles GET /suppliers/{name}.
func (h *Handler) GetSupplier(w http.ResponseWriter, r *http.Request) {
	supplier, err := h.service.GetSupplier(r.Context(), r.PathValue("name"))
	if err != nil {
		h.handleDomainError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toSupplierResponse(supplier))
}

// SecretsRequest carries the role-scoped secrets every mutation needs.
type SecretsRequest struct {
	Secrets map[string]string `json:"secrets"`
}

// DeleteItem handles DELETE /items/{code}.
func (h *Handler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req SecretsRequest
	if !h.decodeOptional(w, r, &req) {
		return
	}

	err := h.service.DeleteItem(r.Context(), application.DeleteItemRequest{
		Actor:    actor,
		Secrets:  req.Secrets,
		ItemCode: r.PathValue("code"),
	})
	if err != nil {
		h.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteSupplier handles DELETE /suppliers/{name}.
func (h *Handler) DeleteSupplier(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req SecretsRequest
	if !h.decodeOptional(w, r, &req) {
		return
	}

	err := h.service.DeleteSupplier(r.Context(), application.DeleteSupplierRequest{
		Actor:        actor,
		Secrets:      req.Secrets,
		SupplierName: r.PathValue("name"),
	})
	if err != nil {
		h.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LinkRequest is the JSON request body for PUT /items/{code}/suppliers/{name}.
type LinkRequest struct {
	SecretsRequest
	Normal *decimal.Decimal    `json:"normal"`
	Method string              `json:"method"`
	Rebate *domain.RebateInput `json:"rebate,omitempty"`
}

// Link handles PUT /items/{code}/suppliers/{name}.
func (h *Handler) Link(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req LinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	result, err := h.service.Link(r.Context(), application.LinkRequest{
		Actor:        actor,
		Secrets:      req.Secrets,
		ItemCode:     r.PathValue("code"),
		SupplierName: r.PathValue("name"),
		Normal:       req.Normal,
		Method:       domain.PricingMethod(req.Method),
		Rebate:       req.Rebate,
	})
	if err != nil {
		h.handleDomainError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toLedgerResponse(result))
}

// UpdatePriceRequest is the JSON request body for PATCH /items/{code}/suppliers/{name}.
type UpdatePriceRequest struct {
	SecretsRequest
	Normal *decimal.Decimal    `json:"normal,omitempty"`
	Method *string             `json:"method,omitempty"`
	Rebate *domain.RebateInput `json:"rebate,omitempty"`
}

// UpdatePrice handles PATCH /items/{code}/suppliers/{name}.
func (h *Handler) UpdatePrice(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req UpdatePriceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	var method *domain.PricingMethod
	if req.Method != nil {
		m := domain.PricingMethod(*req.Method)
		method = &m
	}

	result, err := h.service.UpdatePrice(r.Context(), application.UpdatePriceRequest{
		Actor:        actor,
		Secrets:      req.Secrets,
		ItemCode:     r.PathValue("code"),
		SupplierName: r.PathValue("name"),
		Normal:       req.Normal,
		Method:       method,
		Rebate:       req.Rebate,
	})
	if err != nil {
		h.handleDomainError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toLedgerResponse(result))
}

// Unlink handles DELETE /items/{code}/suppliers/{name}.
func (h *Handler) Unlink(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req SecretsRequest
	if !h.decodeOptional(w, r, &req) {
		return
	}

	result, err := h.service.Unlink(r.Context(), application.UnlinkRequest{
		Actor:        actor,
		Secrets:      req.Secrets,
		ItemCode:     r.PathValue("code"),
		SupplierName: r.PathValue("name"),
	})
	if err != nil {
		h.handleDomainError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toLedgerResponse(result))
}

// RemoveRebate handles DELETE /items/{code}/suppliers/{name}/rebates/{index}.
func (h *Handler) RemoveRebate(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil || index < 0 {
		h.writeError(w, http.StatusBadRequest, "index must be a non-negative integer", nil)
		return
	}
	var req SecretsRequest
	if !h.decodeOptional(w, r, &req) {
		return
	}

	result, err := h.service.RemoveRebate(r.Context(), application.RemoveRebateRequest{
		Actor:        actor,
		Secrets:      req.Secrets,
		ItemCode:     r.PathValue("code"),
		SupplierName: r.PathValue("name"),
		Index:        index,
	})
	if err != nil {
		h.handleDomainError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toLedgerResponse(result))
}

// Audit handles GET /audit.
func (h *Handler) Audit(w http.ResponseWriter, r *http.Request) {
	divergences, err := h.service.AuditMirrors(r.Context())
	if err != nil {
		h.handleDomainError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toAuditResponse(divergences))
}

// actor reads the caller identity from the request headers.
func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (domain.Actor, bool) {
	id := types.ActorID(strings.TrimSpace(r.Header.Get(headerActorID)))
	if id.IsEmpty() {
		h.writeError(w, http.StatusUnauthorized, headerActorID+" header is required", nil)
		return domain.Actor{}, false
	}

	actor := domain.Actor{ID: id}
	for _, raw := range strings.Split(r.Header.Get(headerActorRoles), ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		role, ok := domain.ParseRole(raw)
		if !ok {
			h.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown role %q", raw), nil)
			return domain.Actor{}, false
		}
		actor.Roles = append(actor.Roles, role)
	}

	return actor, true
}

// decodeOptional decodes a JSON body that may be absent.
func (h *Handler) decodeOptional(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err != nil && !errors.Is(err, io.EOF) {
		h.writeError(w, http.StatusBadRequest, "invalid request body", err)
		return false
	}
	return true
}

// handleDomainError maps ledger errors to HTTP responses.
func (h *Handler) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		fatal      *domain.FatalInconsistencyError
		validation *domain.ValidationError
		authz      *domain.AuthorizationError
		notFound   *domain.NotFoundError
		conflict   *domain.ConflictError
		save       *domain.SaveError
	)
	switch {
	case errors.As(err, &fatal):
		h.writeError(w, http.StatusInternalServerError,
			"pricing data for this item and supplier may be inconsistent, please contact support", nil)
	case errors.As(err, &validation):
		h.writeError(w, http.StatusBadRequest, validation.Error(), nil)
	case errors.As(err, &authz):
		h.writeError(w, http.StatusForbidden, authz.Error(), nil)
	case errors.As(err, &notFound):
		h.writeError(w, http.StatusNotFound, notFound.Error(), nil)
	case errors.As(err, &conflict):
		h.writeError(w, http.StatusConflict, "concurrent modification detected, please retry", nil)
	case errors.As(err, &save):
		h.writeError(w, http.StatusServiceUnavailable, "temporary storage failure, please try again", nil)
	default:
		logging.ErrorContext(r.Context(), "Unhandled error", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error", nil)
	}
}

// writeJSON writes a JSON response.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// writeError writes an error response.
func (h *Handler) writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Message = err.Error()
	}
	h.writeJSON(w, status, resp)
}
