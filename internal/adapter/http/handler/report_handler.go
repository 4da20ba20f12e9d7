package handler

import (
	"context"
	"net/http"

	"github.com/iho/spareledger/internal/adapter/http/dto"
	"github.com/iho/spareledger/internal/domain"
)

// NetWorthService defines the behavior needed for net worth reports.
type NetWorthService interface {
	ComputeNetWorth(ctx context.Context, filter domain.AccountFilter) (*domain.NetWorth, error)
}

// SubscriptionService defines the behavior needed for subscription reports.
type SubscriptionService interface {
	Summarize(ctx context.Context, filter domain.AccountFilter) (*domain.SubscriptionSummary, error)
}

// ReportHandler serves read-only reports over the ledger.
type ReportHandler struct {
	balanceUC      NetWorthService
	subscriptionUC SubscriptionService
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(balanceUC NetWorthService, subscriptionUC SubscriptionService) *ReportHandler {
	return &ReportHandler{balanceUC: balanceUC, subscriptionUC: subscriptionUC}
}

// NetWorth reports net worth, optionally restricted by ?account= and ?institution=.
func (h *ReportHandler) NetWorth(w http.ResponseWriter, r *http.Request) {
	nw, err := h.balanceUC.ComputeNetWorth(r.Context(), filterFromQuery(r))
	if err != nil {
		writeError(w, mapDomainError(err), "failed to compute net worth", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.NetWorthFromDomain(nw))
}

// Subscriptions lists detected subscriptions with their monthly total.
func (h *ReportHandler) Subscriptions(w http.ResponseWriter, r *http.Request) {
	summary, err := h.subscriptionUC.Summarize(r.Context(), filterFromQuery(r))
	if err != nil {
		writeError(w, mapDomainError(err), "failed to list subscriptions", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.SubscriptionsFromDomain(summary))
}
