package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"greenzone/internal/middleware"
	"greenzone/internal/model"

	"github.com/rs/zerolog"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but don't expose it to the client
		return
	}
}

// writeError writes an error response with the given status code and message.
func writeError(w http.ResponseWriter, r *http.Request, status int, resp model.ErrorResponse, logger zerolog.Logger) {
	resp.CorrelationID = middleware.RequestIDFrom(r.Context())

	event := logger.Warn()
	if status >= http.StatusInternalServerError {
		event = logger.Error()
	}
	event.Str("error", resp.Error).
		Str("message", resp.Message).
		Int("status", status).
		Str("request_id", resp.CorrelationID).
		Msg("handler error")

	writeJSON(w, status, resp)
}

// writeServiceError maps err onto a status code and error body. Errors that
// are not domain errors are reported without their details.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, logger zerolog.Logger) {
	var de *model.DomainError
	if !errors.As(err, &de) {
		logger.Error().Err(err).Str("path", r.URL.Path).Msg("unexpected service error")
		writeError(w, r, http.StatusInternalServerError, model.ErrorResponse{
			Error:   model.ErrCodeInternalError,
			Message: "internal server error",
		}, logger)
		return
	}

	writeError(w, r, statusFor(de.Code), model.ErrorResponse{
		Error:     de.Code,
		Message:   de.Message,
		Field:     de.Field,
		ProductID: de.ProductID,
	}, logger)
}

// statusFor returns the HTTP status of a domain error code.
func statusFor(code string) int {
	switch code {
	case model.ErrCodeInvalidArgument, model.ErrCodeInvalidJSON:
		return http.StatusBadRequest
	case model.ErrCodeUnauthorised:
		return http.StatusUnauthorized
	case model.ErrCodePermissionDenied:
		return http.StatusForbidden
	case model.ErrCodeNotFound:
		return http.StatusNotFound
	case model.ErrCodeDuplicateIdentifier, model.ErrCodeSelfTransferRejected,
		model.ErrCodeStaleOwner, model.ErrCodeRequestInProgress:
		return http.StatusConflict
	case model.ErrCodePriceMismatch:
		return http.StatusUnprocessableEntity
	case model.ErrCodeCommitFailed:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads a bounded JSON body into v, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any, logger zerolog.Logger) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrorResponse{
			Error:   model.ErrCodeInvalidJSON,
			Message: "invalid request body",
		}, logger)
		return false
	}
	return true
}

// callerIdentity returns the X-Account identity, writing a 401 when absent.
func callerIdentity(w http.ResponseWriter, r *http.Request, logger zerolog.Logger) (model.Identity, bool) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, model.ErrorResponse{
			Error:   model.ErrCodeUnauthorised,
			Message: "caller identity is required (" + middleware.HeaderAccount + " header)",
		}, logger)
		return "", false
	}
	return id, true
}
