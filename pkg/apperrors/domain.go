package apperrors

import (
	"net/http"
)

// Factories and predefined errors for the payment domain.

// ErrNotFound converts a repository miss (e.g. gorm.ErrRecordNotFound)
// into a 404.
func ErrNotFound(err error) *AppError {
	return Wrap(err, CodeNotFound, "resource", "Resource not found", http.StatusNotFound)
}

func ErrAlreadyExists(err error) *AppError {
	return Wrap(err, CodeAlreadyExists, "resource", "Resource already exists", http.StatusConflict)
}

// ErrInvalidStatus rejects an action that is not valid for the record's
// current status (retry on non-failed, receipt on non-completed).
func ErrInvalidStatus(domain, message string) *AppError {
	return New(CodeInvalidStatus, domain, message, http.StatusBadRequest)
}

func ErrInvalidOperation(domain, message string) *AppError {
	return New(CodeInvalidOperation, domain, message, http.StatusBadRequest)
}

// ErrPropertyNotFound - the property referenced by an initiation request
// does not exist.
func ErrPropertyNotFound(err error) *AppError {
	return Wrap(err, CodeNotFound, "property", "Property not found", http.StatusNotFound)
}

// ErrPaymentNotFound - the payment referenced by a status/admin request
// does not exist, or the caller is not allowed to see it.
func ErrPaymentNotFound(err error) *AppError {
	return Wrap(err, CodeNotFound, "payment", "Payment not found", http.StatusNotFound)
}

// ErrGatewayUnavailable - the gateway client could not be constructed
// (missing credentials, client disabled). Deliberately 501, never 200.
func ErrGatewayUnavailable(err error) *AppError {
	return Wrap(err, CodeExternalServiceError, "gateway", "Mpesa client not available", http.StatusNotImplemented)
}

// ErrGatewayRequestFailed - the gateway client was constructed but the
// call itself failed.
func ErrGatewayRequestFailed(err error) *AppError {
	return Wrap(err, CodeExternalServiceError, "gateway", "Failed to send STK push", http.StatusBadGateway)
}

// ErrInsufficientPermissions - a non-admin attempted an admin-only action.
var ErrInsufficientPermissions = New(
	CodeForbidden,
	"auth",
	"Insufficient permissions",
	http.StatusForbidden,
)
