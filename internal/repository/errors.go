package repository

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"gorm.io/gorm"
)

var (
	ErrProductNotFound  = errors.New("product not found")
	ErrProductConflict  = errors.New("product was modified by another request")
	ErrDuplicateProduct = errors.New("product name or number already exists")
	ErrStoreUnavailable = errors.New("catalog store unavailable")
	ErrUnknownReference = errors.New("product_category_id or product_model_id does not exist")
)

// translateError maps driver level failures onto repository sentinels.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case isUniqueViolation(err):
		return fmt.Errorf("%w: %v", ErrDuplicateProduct, err)
	case isForeignKeyViolation(err):
		return fmt.Errorf("%w: %v", ErrUnknownReference, err)
	case isStoreUnavailable(err):
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	default:
		return err
	}
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}

func isForeignKeyViolation(err error) bool {
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "foreign key constraint")
}

func isStoreUnavailable(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"database is closed", "connection refused", "failed to connect", "no such host"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrProductNotFound):
		return "not_found"
	case errors.Is(err, ErrProductConflict), errors.Is(err, ErrDuplicateProduct):
		return "conflict"
	case errors.Is(err, ErrStoreUnavailable):
		return "unavailable"
	case errors.Is(err, ErrUnknownReference):
		return "bad_request"
	default:
		return "error"
	}
}
