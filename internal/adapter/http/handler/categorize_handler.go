package handler

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/iho/spareledger/internal/adapter/http/dto"
	"github.com/iho/spareledger/internal/domain"
	"github.com/iho/spareledger/internal/usecase"
)

// CategorizationService defines the behavior needed by CategorizeHandler.
type CategorizationService interface {
	CategorizePending(ctx context.Context, input usecase.CategorizeInput) (*usecase.CategorizationReport, error)
}

// CategorizeHandler triggers categorization of pending transactions.
type CategorizeHandler struct {
	categorizeUC CategorizationService
	defaults     usecase.CategorizeInput
	logger       zerolog.Logger
}

// NewCategorizeHandler creates a new CategorizeHandler.
func NewCategorizeHandler(categorizeUC CategorizationService, defaults usecase.CategorizeInput, logger zerolog.Logger) *CategorizeHandler {
	return &CategorizeHandler{categorizeUC: categorizeUC, defaults: defaults, logger: logger}
}

// Categorize runs one categorization pass. Quota exhaustion maps to 429 with a
// Retry-After header when the service reported a wait.
func (h *CategorizeHandler) Categorize(w http.ResponseWriter, r *http.Request) {
	var req dto.CategorizeRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	report, err := h.categorizeUC.CategorizePending(r.Context(), req.ToUseCaseInput(h.defaults))
	if err != nil {
		var quota *domain.QuotaError
		if errors.As(err, &quota) && quota.RetryAfter > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(quota.RetryAfter.Seconds()))))
		}
		h.logger.Warn().Err(err).Msg("categorization failed")
		writeError(w, mapDomainError(err), "categorization failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.CategorizationFromReport(report))
}
