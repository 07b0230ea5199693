package utils

import (
	"errors"
	"net/http"
)

var ErrorRecordNotFound = errors.New("record not found")

// authorization
var (
	ErrorNoShopAssigned = errors.New("no shop assigned to this account")
	ErrorNotAllowed     = errors.New("not allowed")
)

// validation
var (
	ErrorMissingWarehouse = errors.New("warehouse is required")
	ErrorDuplicateLine    = errors.New("product already added to this order")
)

// stock / money rejections
var (
	ErrorInsufficientStock          = errors.New("insufficient product stock")
	ErrorInsufficientShopStock      = errors.New("insufficient shop stock")
	ErrorInsufficientWarehouseStock = errors.New("insufficient warehouse stock")
	ErrorInsufficientFunds          = errors.New("insufficient shop balance")
	ErrorOverPaid                   = errors.New("over paid")
)

// ErrorStatusCode maps a domain rejection to the HTTP status returned at the
// gin boundary. Anything unrecognized is treated as an internal failure.
func ErrorStatusCode(err error) int {
	switch {
	case errors.Is(err, ErrorRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrorNoShopAssigned), errors.Is(err, ErrorNotAllowed):
		return http.StatusForbidden
	case errors.Is(err, ErrorMissingWarehouse):
		return http.StatusBadRequest
	case errors.Is(err, ErrorDuplicateLine):
		return http.StatusConflict
	case errors.Is(err, ErrorInsufficientStock),
		errors.Is(err, ErrorInsufficientShopStock),
		errors.Is(err, ErrorInsufficientWarehouseStock),
		errors.Is(err, ErrorInsufficientFunds),
		errors.Is(err, ErrorOverPaid):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// IsDomainError reports whether err is one of the structured rejections above
// (as opposed to an unexpected storage failure).
func IsDomainError(err error) bool {
	return ErrorStatusCode(err) != http.StatusInternalServerError
}
