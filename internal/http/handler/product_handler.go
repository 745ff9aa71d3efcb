package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/pedalacom/catalog-api/internal/domain"
	"github.com/pedalacom/catalog-api/internal/http/response"
	"github.com/pedalacom/catalog-api/internal/observability"
	"github.com/pedalacom/catalog-api/internal/repository"
	"github.com/pedalacom/catalog-api/internal/service"
)

type ProductHandler struct {
	svc service.ProductService
}

func NewProductHandler(svc service.ProductService) *ProductHandler {
	return &ProductHandler{svc: svc}
}

func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.svc.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "failed to list products")
		return
	}
	if products == nil {
		products = []domain.Product{}
	}
	response.JSON(w, r, http.StatusOK, products)
}

func (h *ProductHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	productID, err := parsePathID(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid product id", nil)
		return
	}
	product, err := h.svc.GetByID(r.Context(), productID)
	if err != nil {
		writeServiceError(w, r, err, "failed to load product")
		return
	}
	response.JSON(w, r, http.StatusOK, product)
}

// Search serves the category aware search with a page size of 6.
func (h *ProductHandler) Search(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Categories []string `json:"categories"`
		SearchData string   `json:"search_data"`
		PageNumber *int     `json:"page_number"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	page := repository.DefaultPage
	if body.PageNumber != nil {
		page = *body.PageNumber
	}
	h.search(w, r, service.SearchQuery{
		Categories: body.Categories,
		Name:       body.SearchData,
		PageNumber: page,
		PageSize:   service.CategorySearchPageSize,
	})
}

// QuickSearch serves the name only search with a page size of 12.
func (h *ProductHandler) QuickSearch(w http.ResponseWriter, r *http.Request) {
	page := repository.DefaultPage
	if raw := strings.TrimSpace(r.URL.Query().Get("pageNumber")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "pageNumber must be an integer", nil)
			return
		}
		page = v
	}
	h.search(w, r, service.SearchQuery{
		Name:       r.URL.Query().Get("searchData"),
		PageNumber: page,
		PageSize:   service.NameSearchPageSize,
	})
}

func (h *ProductHandler) search(w http.ResponseWriter, r *http.Request, q service.SearchQuery) {
	res, err := h.svc.Search(r.Context(), q)
	if err != nil {
		writeServiceError(w, r, err, "failed to search products")
		return
	}
	response.JSON(w, r, http.StatusOK, res)
}

func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body domain.Product
	if !decodeJSON(w, r, &body) {
		return
	}
	created, err := h.svc.Create(r.Context(), &body)
	if err != nil {
		h.auditFailure(r, "product.create", "create", "", err)
		writeServiceError(w, r, err, "failed to create product")
		return
	}

	productID := strconv.FormatUint(uint64(created.ID), 10)
	observability.EmitAudit(r, observability.AuditInput{
		EventName:   "product.create",
		ActorUserID: actorID(r),
		TargetType:  "product",
		TargetID:    productID,
		Action:      "create",
		Outcome:     "success",
		Reason:      "product_created",
	}, "name", created.Name)
	w.Header().Set("Location", fmt.Sprintf("/api/v1/products/%d", created.ID))
	response.JSON(w, r, http.StatusCreated, created)
}

func (h *ProductHandler) Replace(w http.ResponseWriter, r *http.Request) {
	rawID := chi.URLParam(r, "id")
	productID, err := parsePathID(rawID)
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid product id", nil)
		return
	}
	var body domain.Product
	if !decodeJSON(w, r, &body) {
		return
	}
	if err := h.svc.Replace(r.Context(), productID, &body); err != nil {
		h.auditFailure(r, "product.replace", "replace", rawID, err)
		writeServiceError(w, r, err, "failed to update product")
		return
	}

	observability.EmitAudit(r, observability.AuditInput{
		EventName:   "product.replace",
		ActorUserID: actorID(r),
		TargetType:  "product",
		TargetID:    rawID,
		Action:      "replace",
		Outcome:     "success",
		Reason:      "product_replaced",
	}, "row_version", body.RowVersion)
	w.WriteHeader(http.StatusNoContent)
}

func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	rawID := chi.URLParam(r, "id")
	productID, err := parsePathID(rawID)
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid product id", nil)
		return
	}
	if err := h.svc.Delete(r.Context(), productID); err != nil {
		h.auditFailure(r, "product.delete", "delete", rawID, err)
		writeServiceError(w, r, err, "failed to delete product")
		return
	}

	observability.EmitAudit(r, observability.AuditInput{
		EventName:   "product.delete",
		ActorUserID: actorID(r),
		TargetType:  "product",
		TargetID:    rawID,
		Action:      "delete",
		Outcome:     "success",
		Reason:      "product_deleted",
	})
	w.WriteHeader(http.StatusNoContent)
}

func (h *ProductHandler) Thumbnail(w http.ResponseWriter, r *http.Request) {
	productID, err := parsePathID(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid product id", nil)
		return
	}
	thumb, err := h.svc.Thumbnail(r.Context(), productID)
	if err != nil {
		writeServiceError(w, r, err, "failed to load thumbnail")
		return
	}
	if thumb.RedirectURL != "" {
		http.Redirect(w, r, thumb.RedirectURL, http.StatusTemporaryRedirect)
		return
	}
	w.Header().Set("Content-Type", thumb.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(thumb.Data)))
	w.Header().Set("Cache-Control", "private, max-age=300")
	if thumb.FileName != "" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", thumb.FileName))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(thumb.Data)
}

func (h *ProductHandler) auditFailure(r *http.Request, event, action, targetID string, err error) {
	observability.EmitAudit(r, observability.AuditInput{
		EventName:   event,
		ActorUserID: actorID(r),
		TargetType:  "product",
		TargetID:    targetID,
		Action:      action,
		Outcome:     "failure",
		Reason:      auditReason(err),
	})
}

func auditReason(err error) string {
	switch {
	case errors.Is(err, repository.ErrUnknownReference):
		return "unknown_reference"
	case isValidationError(err):
		return "validation_failed"
	case errors.Is(err, repository.ErrProductNotFound):
		return "not_found"
	case errors.Is(err, repository.ErrProductConflict):
		return "version_conflict"
	case errors.Is(err, repository.ErrDuplicateProduct):
		return "duplicate"
	case errors.Is(err, repository.ErrStoreUnavailable):
		return "store_unavailable"
	default:
		return "internal_error"
	}
}
