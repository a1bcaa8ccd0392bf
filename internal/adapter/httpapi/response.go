package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"chainforge/internal/domain/entity"
)

const (
	errorCodeInvalidRequest = "invalid_request"
	errorCodeNotFound       = "not_found"
	errorCodeTimeout        = "timeout"
	errorCodeUnavailable    = "unavailable"
	errorCodeRuntime        = "runtime_error"
)

const maxRequestBodyBytes = 4 << 20

var (
	errInvalidRequest = errors.New("invalid request")
	errUnavailable    = errors.New("feature not configured")
)

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type apiErrorResponse struct {
	Error apiError `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeMappedError(w http.ResponseWriter, err error) {
	status, code := mapError(err)
	writeJSON(w, status, apiErrorResponse{Error: apiError{Code: code, Message: err.Error()}})
}

func mapError(err error) (int, string) {
	switch {
	case errors.Is(err, entity.ErrChainNotFound),
		errors.Is(err, entity.ErrProviderNotFound),
		errors.Is(err, entity.ErrSessionNotFound):
		return http.StatusNotFound, errorCodeNotFound
	case errors.Is(err, errInvalidRequest),
		errors.Is(err, entity.ErrMissingVariable),
		errors.Is(err, entity.ErrUnknownTool),
		errors.Is(err, entity.ErrInvalidInput):
		return http.StatusBadRequest, errorCodeInvalidRequest
	case errors.Is(err, entity.ErrTimeout):
		return http.StatusGatewayTimeout, errorCodeTimeout
	case errors.Is(err, errUnavailable):
		return http.StatusServiceUnavailable, errorCodeUnavailable
	default:
		return http.StatusInternalServerError, errorCodeRuntime
	}
}

func invalidRequestError(message string) error {
	return fmt.Errorf("%w: %s", errInvalidRequest, message)
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) error {
	if r.Body == nil {
		return invalidRequestError("request body is required")
	}

	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return invalidRequestError("request body is required")
		}
		return invalidRequestError(fmt.Sprintf("invalid JSON body: %v", err))
	}
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return invalidRequestError("request body must contain exactly one JSON object")
	}
	return nil
}
