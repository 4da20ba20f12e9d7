package handler

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/iho/spareledger/internal/adapter/http/dto"
	"github.com/iho/spareledger/internal/usecase"
)

// SyncService defines the behavior needed by SyncHandler.
type SyncService interface {
	Sync(ctx context.Context, input usecase.SyncInput) (*usecase.SyncReport, error)
}

// SyncHandler triggers provider syncs.
type SyncHandler struct {
	syncUC SyncService
	logger zerolog.Logger
}

// NewSyncHandler creates a new SyncHandler.
func NewSyncHandler(syncUC SyncService, logger zerolog.Logger) *SyncHandler {
	return &SyncHandler{syncUC: syncUC, logger: logger}
}

// Sync runs one sync pass. The status reflects the pass outcome: 200 when every
// credential synced (or nothing was due), 207 when some failed, 502 when all failed.
func (h *SyncHandler) Sync(w http.ResponseWriter, r *http.Request) {
	var req dto.SyncRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	report, err := h.syncUC.Sync(r.Context(), req.ToUseCaseInput())
	if err != nil {
		h.logger.Error().Err(err).Msg("sync failed")
		writeError(w, mapDomainError(err), "sync failed", err.Error())
		return
	}

	writeJSON(w, syncStatus(report.Outcome()), dto.SyncFromReport(report))
}

func syncStatus(outcome string) int {
	switch outcome {
	case usecase.OutcomePartial:
		return http.StatusMultiStatus
	case usecase.OutcomeFailed:
		return http.StatusBadGateway
	default:
		return http.StatusOK
	}
}
