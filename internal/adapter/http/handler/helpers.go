package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/iho/spareledger/internal/adapter/http/dto"
	"github.com/iho/spareledger/internal/domain"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(dto.ErrorResponse{
		Error:   message,
		Message: details,
	})
}

// decodeOptionalJSON decodes the request body into v. An empty body leaves v untouched.
func decodeOptionalJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// mapDomainError maps domain errors to HTTP status codes.
func mapDomainError(err error) int {
	switch {
	case errors.Is(err, domain.ErrAccountNotFound),
		errors.Is(err, domain.ErrCredentialNotFound),
		errors.Is(err, domain.ErrGoalNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidTransactionKind),
		errors.Is(err, domain.ErrInvalidAccountName),
		errors.Is(err, domain.ErrInvalidCurrency),
		errors.Is(err, domain.ErrAmountTooLarge),
		errors.Is(err, domain.ErrInvalidDescription),
		errors.Is(err, domain.ErrInvalidPublicToken):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrSyncInProgress),
		errors.Is(err, domain.ErrCategorizationRunning):
		return http.StatusConflict
	case errors.Is(err, domain.ErrQuotaExceeded),
		errors.Is(err, domain.ErrProviderRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrProviderUnavailable),
		errors.Is(err, domain.ErrCategorizationAborted):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// filterFromQuery reads the account and institution query parameters.
func filterFromQuery(r *http.Request) domain.AccountFilter {
	q := r.URL.Query()
	return domain.AccountFilter{
		AccountID:     q.Get("account"),
		InstitutionID: q.Get("institution"),
	}
}
