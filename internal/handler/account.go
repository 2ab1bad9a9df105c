package handler

import (
	"context"
	"net/http"

	"github.com/josh-kwaku/bank-ledger/internal/logging"
	"github.com/josh-kwaku/bank-ledger/internal/service/directory"
)

type directoryService interface {
	ListAccounts(ctx context.Context) (*directory.Directory, error)
}

type AccountHandler struct {
	directory directoryService
}

func NewAccountHandler(directory directoryService) *AccountHandler {
	return &AccountHandler{directory: directory}
}

type directoryResponse struct {
	TotalCount int          `json:"total_count"`
	Accounts   []accountDTO `json:"accounts"`
}

func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	dir, err := h.directory.ListAccounts(r.Context())
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to list accounts", "error", err)
		RespondDomainError(w, err)
		return
	}

	dtos := make([]accountDTO, len(dir.Accounts))
	for i := range dir.Accounts {
		dtos[i] = toAccountDTO(&dir.Accounts[i].Account, dir.Accounts[i].OwnerName)
	}

	RespondSuccess(w, http.StatusOK, directoryResponse{
		TotalCount: dir.TotalCount,
		Accounts:   dtos,
	})
}
