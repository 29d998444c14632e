package model

import (
	"errors"
	"fmt"
)

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Field         string `json:"field,omitempty"`
	ProductID     string `json:"productId,omitempty"`
	CorrelationID string `json:"correlationId,omitempty"`
}

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON          = "INVALID_JSON"
	ErrCodeInvalidArgument      = "INVALID_ARGUMENT"
	ErrCodeDuplicateIdentifier  = "DUPLICATE_IDENTIFIER"
	ErrCodeNotFound             = "NOT_FOUND"
	ErrCodeSelfTransferRejected = "SELF_TRANSFER_REJECTED"
	ErrCodePriceMismatch        = "PRICE_MISMATCH"
	ErrCodeStaleOwner           = "STALE_OWNER"
	ErrCodePermissionDenied     = "PERMISSION_DENIED"
	ErrCodeCommitFailed         = "COMMIT_FAILED"
	ErrCodeRequestInProgress    = "REQUEST_IN_PROGRESS"
	ErrCodeUnauthorised         = "UNAUTHORIZED"
	ErrCodeInternalError        = "INTERNAL_ERROR"
)

// DomainError is a registry error carrying its kind and the offending field or product.
type DomainError struct {
	Code      string
	Message   string
	Field     string
	ProductID string
	Err       error
}

func (e *DomainError) Error() string {
	msg := e.Message
	if e.ProductID != "" {
		msg = fmt.Sprintf("%s (product %s)", msg, e.ProductID)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause, if any.
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches any DomainError with the same code, so errors.Is(err, ErrNotFound)
// holds for every not-found error regardless of the product involved.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrInvalidArgument      = NewDomainError(ErrCodeInvalidArgument, "invalid argument")
	ErrDuplicateIdentifier  = NewDomainError(ErrCodeDuplicateIdentifier, "product ID already registered")
	ErrNotFound             = NewDomainError(ErrCodeNotFound, "product not found")
	ErrSelfTransferRejected = NewDomainError(ErrCodeSelfTransferRejected, "buyer already owns the product")
	ErrPriceMismatch        = NewDomainError(ErrCodePriceMismatch, "paid amount does not match the product price")
	ErrStaleOwner           = NewDomainError(ErrCodeStaleOwner, "product owner changed since it was read")
	ErrPermissionDenied     = NewDomainError(ErrCodePermissionDenied, "identity is not allowed to perform this operation")
	ErrCommitFailed         = NewDomainError(ErrCodeCommitFailed, "ledger commit failed")
)

// InvalidArgument reports a missing or malformed field.
func InvalidArgument(field, message string) *DomainError {
	return &DomainError{Code: ErrCodeInvalidArgument, Message: message, Field: field}
}

// NotFound reports an unknown product ID.
func NotFound(productID string) *DomainError {
	return &DomainError{Code: ErrCodeNotFound, Message: ErrNotFound.Message, ProductID: productID}
}

// DuplicateIdentifier reports a registration for an ID that already exists.
func DuplicateIdentifier(productID string) *DomainError {
	return &DomainError{Code: ErrCodeDuplicateIdentifier, Message: ErrDuplicateIdentifier.Message, ProductID: productID, Field: "productId"}
}

// SelfTransferRejected reports a purchase by the current owner.
func SelfTransferRejected(productID string) *DomainError {
	return &DomainError{Code: ErrCodeSelfTransferRejected, Message: ErrSelfTransferRejected.Message, ProductID: productID, Field: "buyer"}
}

// PriceMismatch reports a paid amount different from the product price.
func PriceMismatch(productID string, price, paid int64) *DomainError {
	return &DomainError{
		Code:      ErrCodePriceMismatch,
		Message:   fmt.Sprintf("paid amount %d does not match price %d", paid, price),
		ProductID: productID,
		Field:     "paidAmount",
	}
}

// StaleOwner reports a purchase based on an outdated view of the owner.
func StaleOwner(productID string) *DomainError {
	return &DomainError{Code: ErrCodeStaleOwner, Message: ErrStaleOwner.Message, ProductID: productID, Field: "expectedOwner"}
}

// PermissionDenied reports a policy rejection.
func PermissionDenied(productID string, identity Identity) *DomainError {
	return &DomainError{
		Code:      ErrCodePermissionDenied,
		Message:   fmt.Sprintf("identity %q is not allowed to perform this operation", identity),
		ProductID: productID,
	}
}

// CommitFailed wraps a commit transport failure. Retrying is always safe.
func CommitFailed(productID string, cause error) *DomainError {
	return &DomainError{Code: ErrCodeCommitFailed, Message: ErrCommitFailed.Message, ProductID: productID, Err: cause}
}

// ErrorCode returns the code of a DomainError in err's chain, or ErrCodeInternalError.
func ErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ErrCodeInternalError
}
