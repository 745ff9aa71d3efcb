package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/pedalacom/catalog-api/internal/http/middleware"
	"github.com/pedalacom/catalog-api/internal/http/response"
	"github.com/pedalacom/catalog-api/internal/repository"
	"github.com/pedalacom/catalog-api/internal/service"
)

var errInvalidID = errors.New("id must be a positive integer")

func parsePathID(input string) (uint, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(input), 10, 64)
	if err != nil || n == 0 {
		return 0, errInvalidID
	}
	return uint(n), nil
}

// decodeJSON reads a single JSON document from the request body.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			response.Error(w, r, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", fmt.Sprintf("request body exceeds %d bytes", maxBytesErr.Limit), nil)
			return false
		}
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return false
	}
	return true
}

// writeServiceError maps service and repository sentinels onto the API error taxonomy.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, internalMessage string) {
	switch {
	case errors.Is(err, repository.ErrProductNotFound):
		response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "product not found", nil)
	case errors.Is(err, service.ErrPageNotFound):
		response.Error(w, r, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, service.ErrThumbnailNotFound):
		response.Error(w, r, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, repository.ErrUnknownReference):
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", repository.ErrUnknownReference.Error(), nil)
	case isValidationError(err):
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	case errors.Is(err, repository.ErrProductConflict):
		response.Error(w, r, http.StatusConflict, "CONFLICT", "product was modified by another request", nil)
	case errors.Is(err, repository.ErrDuplicateProduct):
		response.Error(w, r, http.StatusConflict, "CONFLICT", "product already exists", nil)
	case errors.Is(err, repository.ErrStoreUnavailable):
		w.Header().Set("Retry-After", "5")
		response.Error(w, r, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "catalog store is unavailable", nil)
	default:
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", internalMessage, nil)
	}
}

func isValidationError(err error) bool {
	for _, target := range []error{
		service.ErrProductIDMismatch,
		service.ErrProductNameRequired,
		service.ErrProductNumberRequired,
		service.ErrProductInvalidPrice,
		service.ErrProductInvalidWeight,
		service.ErrProductInvalidSellDates,
		service.ErrProductRowVersion,
		service.ErrInvalidPageSize,
		service.ErrThumbnailEncoding,
		service.ErrThumbnailType,
		service.ErrThumbnailTooLarge,
		service.ErrThumbnailFileName,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func actorID(r *http.Request) string {
	if claims, ok := middleware.ClaimsFromContext(r.Context()); ok {
		return claims.Subject
	}
	return ""
}
