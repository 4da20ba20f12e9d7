package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/spareledger/internal/adapter/http/dto"
	"github.com/iho/spareledger/internal/domain"
	"github.com/iho/spareledger/internal/usecase"
)

// AccountService defines the behavior needed by AccountHandler.
type AccountService interface {
	LinkCredential(ctx context.Context, input usecase.LinkCredentialInput) (*domain.Credential, []*domain.Account, error)
	RefreshBalances(ctx context.Context, credentialID string) ([]*domain.Account, error)
	DisconnectCredential(ctx context.Context, credentialID string) error
	DisconnectAccount(ctx context.Context, accountID string) error
	CreateManualAccount(ctx context.Context, input usecase.CreateManualAccountInput) (*domain.Account, error)
	RecordTransaction(ctx context.Context, input usecase.RecordTransactionInput) (*domain.Transaction, error)
}

// AccountHandler handles credential and account requests.
type AccountHandler struct {
	accountUC AccountService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountUC AccountService) *AccountHandler {
	return &AccountHandler{accountUC: accountUC}
}

// LinkCredential exchanges a public token and stores the resulting credential.
func (h *AccountHandler) LinkCredential(w http.ResponseWriter, r *http.Request) {
	var req dto.LinkCredentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	cred, accounts, err := h.accountUC.LinkCredential(r.Context(), req.ToUseCaseInput())
	if err != nil {
		writeError(w, mapDomainError(err), "failed to link credential", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, dto.LinkCredentialResponse{
		Credential: dto.CredentialFromDomain(cred),
		Accounts:   dto.AccountsFromDomain(accounts),
	})
}

// RefreshBalances pulls current balances for every account of a credential.
func (h *AccountHandler) RefreshBalances(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing credential ID", "")
		return
	}

	accounts, err := h.accountUC.RefreshBalances(r.Context(), id)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to refresh balances", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountsFromDomain(accounts))
}

// DeleteCredential revokes a credential and removes its accounts.
func (h *AccountHandler) DeleteCredential(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing credential ID", "")
		return
	}

	if err := h.accountUC.DisconnectCredential(r.Context(), id); err != nil {
		writeError(w, mapDomainError(err), "failed to delete credential", err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Create creates a manual account.
func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	account, err := h.accountUC.CreateManualAccount(r.Context(), req.ToUseCaseInput())
	if err != nil {
		writeError(w, mapDomainError(err), "failed to create account", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, dto.AccountFromDomain(account))
}

// Delete removes one account. Removing the last account of a credential
// disconnects the credential too.
func (h *AccountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing account ID", "")
		return
	}

	if err := h.accountUC.DisconnectAccount(r.Context(), id); err != nil {
		writeError(w, mapDomainError(err), "failed to delete account", err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RecordTransaction stores a manual transaction on an account.
func (h *AccountHandler) RecordTransaction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing account ID", "")
		return
	}

	var req dto.CreateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	txn, err := h.accountUC.RecordTransaction(r.Context(), req.ToUseCaseInput(id))
	if err != nil {
		writeError(w, mapDomainError(err), "failed to record transaction", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, dto.TransactionFromDomain(txn))
}
