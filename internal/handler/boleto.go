package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/josh-kwaku/bank-ledger/internal/auth"
	"github.com/josh-kwaku/bank-ledger/internal/domain"
	"github.com/josh-kwaku/bank-ledger/internal/logging"
	"github.com/josh-kwaku/bank-ledger/internal/money"
	"github.com/josh-kwaku/bank-ledger/internal/service/ledger"
)

type boletoService interface {
	CreateBoleto(ctx context.Context, value money.Money, issuerID uuid.UUID) (*domain.Boleto, error)
	PayBoleto(ctx context.Context, payerID uuid.UUID, documentNumber string) (*ledger.PayBoletoResult, error)
}

type BoletoHandler struct {
	boletos boletoService
}

func NewBoletoHandler(boletos boletoService) *BoletoHandler {
	return &BoletoHandler{boletos: boletos}
}

type createBoletoRequest struct {
	Value money.Money `json:"value"`
}

func (r createBoletoRequest) Validate() []FieldError {
	return appendAmountError(nil, "value", r.Value)
}

// Create issues a boleto payable to the authenticated user.
func (h *BoletoHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	var req createBoletoRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	b, err := h.boletos.CreateBoleto(r.Context(), req.Value, userID)
	if err != nil {
		logging.FromContext(r.Context()).Warn("boleto creation failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/v1/boletos/%s", b.DocumentNumber))
	RespondSuccess(w, http.StatusCreated, toBoletoDTO(b))
}

// Pay settles the boleto in the path on behalf of the authenticated user.
func (h *BoletoHandler) Pay(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	res, err := h.boletos.PayBoleto(r.Context(), userID, r.PathValue("documentNumber"))
	if err != nil {
		logging.FromContext(r.Context()).Warn("boleto payment failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, map[string]any{
		"message": res.Message,
		"boleto":  toBoletoDTO(&res.Boleto),
	})
}
