package handler

import (
	"net/http"

	"github.com/pedalacom/catalog-api/internal/domain"
	"github.com/pedalacom/catalog-api/internal/http/response"
	"github.com/pedalacom/catalog-api/internal/service"
)

type CategoryHandler struct {
	svc service.ProductService
}

func NewCategoryHandler(svc service.ProductService) *CategoryHandler {
	return &CategoryHandler{svc: svc}
}

func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	categories, err := h.svc.ListCategories(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "failed to list categories")
		return
	}
	if categories == nil {
		categories = []domain.ProductCategory{}
	}
	response.JSON(w, r, http.StatusOK, categories)
}
