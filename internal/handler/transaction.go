package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/josh-kwaku/bank-ledger/internal/domain"
	"github.com/josh-kwaku/bank-ledger/internal/logging"
	"github.com/josh-kwaku/bank-ledger/internal/money"
	"github.com/josh-kwaku/bank-ledger/internal/service/history"
	"github.com/josh-kwaku/bank-ledger/internal/service/ledger"
)

type ledgerService interface {
	Deposit(ctx context.Context, accountNumber string, amount money.Money, credential string) (*ledger.BalanceResult, error)
	Withdraw(ctx context.Context, accountNumber string, amount money.Money, credential string) (*ledger.BalanceResult, error)
	CheckBalance(ctx context.Context, accountNumber, credential string) (*ledger.BalanceInquiry, error)
	Transfer(ctx context.Context, req ledger.TransferRequest) (*ledger.TransferResult, error)
}

type historyService interface {
	TransferDetails(ctx context.Context, accountNumber string, f history.Filter) (*history.Page, error)
	LastTransfer(ctx context.Context, accountNumber string) (*domain.TransferView, error)
}

type TransactionHandler struct {
	ledger  ledgerService
	history historyService
}

func NewTransactionHandler(ledger ledgerService, history historyService) *TransactionHandler {
	return &TransactionHandler{ledger: ledger, history: history}
}

type movementRequest struct {
	AccountNumber string      `json:"account_number"`
	Amount        money.Money `json:"amount"`
	Password      string      `json:"password"`
}

func (r movementRequest) Validate() []FieldError {
	var errs []FieldError
	if r.AccountNumber == "" {
		errs = append(errs, FieldError{Field: "account_number", Message: "required"})
	}
	errs = appendAmountError(errs, "amount", r.Amount)
	if r.Password == "" {
		errs = append(errs, FieldError{Field: "password", Message: "required"})
	}
	return errs
}

type balanceRequest struct {
	AccountNumber string `json:"account_number"`
	Password      string `json:"password"`
}

func (r balanceRequest) Validate() []FieldError {
	var errs []FieldError
	if r.AccountNumber == "" {
		errs = append(errs, FieldError{Field: "account_number", Message: "required"})
	}
	if r.Password == "" {
		errs = append(errs, FieldError{Field: "password", Message: "required"})
	}
	return errs
}

type transferRequest struct {
	FromAccountNumber string      `json:"from_account_number"`
	ToAccountNumber   string      `json:"to_account_number"`
	Amount            money.Money `json:"amount"`
	Password          string      `json:"password"`
}

func (r transferRequest) Validate() []FieldError {
	var errs []FieldError
	if r.FromAccountNumber == "" {
		errs = append(errs, FieldError{Field: "from_account_number", Message: "required"})
	}
	if r.ToAccountNumber == "" {
		errs = append(errs, FieldError{Field: "to_account_number", Message: "required"})
	}
	errs = appendAmountError(errs, "amount", r.Amount)
	if r.Password == "" {
		errs = append(errs, FieldError{Field: "password", Message: "required"})
	}
	return errs
}

func appendAmountError(errs []FieldError, field string, m money.Money) []FieldError {
	switch money.ValidateAmount(m) {
	case nil:
		return errs
	case money.ErrTooPrecise:
		return append(errs, FieldError{Field: field, Message: "must have at most two decimal places"})
	default:
		return append(errs, FieldError{Field: field, Message: "must be greater than 0"})
	}
}

type movementResponse struct {
	Message       string `json:"message"`
	AccountNumber string `json:"account_number"`
	AgencyNumber  string `json:"agency_number"`
	OwnerName     string `json:"owner_name"`
	Balance       string `json:"balance"`
}

func toMovementResponse(res *ledger.BalanceResult) movementResponse {
	return movementResponse{
		Message:       res.Message,
		AccountNumber: res.AccountNumber,
		AgencyNumber:  string(res.AgencyNumber),
		OwnerName:     res.OwnerName,
		Balance:       money.FormatUSD(res.Balance),
	}
}

type accountBalanceDTO struct {
	AccountNumber string `json:"account_number"`
	Balance       string `json:"balance"`
}

type transferResponse struct {
	Message  string            `json:"message"`
	Transfer transferDTO       `json:"transfer"`
	From     accountBalanceDTO `json:"from"`
	To       accountBalanceDTO `json:"to"`
}

type historyResponse struct {
	Total     int           `json:"total"`
	Limit     int           `json:"limit"`
	Offset    int           `json:"offset"`
	Balance   string        `json:"balance"`
	Transfers []transferDTO `json:"transfers"`
}

func (h *TransactionHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	var req movementRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	res, err := h.ledger.Deposit(r.Context(), req.AccountNumber, req.Amount, req.Password)
	if err != nil {
		logging.FromContext(r.Context()).Warn("deposit failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toMovementResponse(res))
}

func (h *TransactionHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	var req movementRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	res, err := h.ledger.Withdraw(r.Context(), req.AccountNumber, req.Amount, req.Password)
	if err != nil {
		logging.FromContext(r.Context()).Warn("withdrawal failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toMovementResponse(res))
}

func (h *TransactionHandler) Balance(w http.ResponseWriter, r *http.Request) {
	var req balanceRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	res, err := h.ledger.CheckBalance(r.Context(), req.AccountNumber, req.Password)
	if err != nil {
		logging.FromContext(r.Context()).Warn("balance inquiry failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, map[string]string{
		"message":    res.Message,
		"owner_name": res.OwnerName,
		"balance":    money.FormatUSD(res.Balance),
	})
}

func (h *TransactionHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	res, err := h.ledger.Transfer(r.Context(), ledger.TransferRequest{
		FromAccountNumber: req.FromAccountNumber,
		ToAccountNumber:   req.ToAccountNumber,
		Amount:            req.Amount,
		Credential:        req.Password,
	})
	if err != nil {
		logging.FromContext(r.Context()).Warn("transfer failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, transferResponse{
		Message:  res.Message,
		Transfer: toTransferDTO(res.Transfer),
		From:     accountBalanceDTO{AccountNumber: res.From.AccountNumber, Balance: money.FormatUSD(res.From.Balance)},
		To:       accountBalanceDTO{AccountNumber: res.To.AccountNumber, Balance: money.FormatUSD(res.To.Balance)},
	})
}

func (h *TransactionHandler) TransferHistory(w http.ResponseWriter, r *http.Request) {
	filter, fields := parseHistoryFilter(r)
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	page, err := h.history.TransferDetails(r.Context(), r.PathValue("accountNumber"), filter)
	if err != nil {
		logging.FromContext(r.Context()).Warn("transfer history failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	transfers := make([]transferDTO, len(page.Transfers))
	for i, v := range page.Transfers {
		transfers[i] = toTransferViewDTO(v)
	}

	RespondSuccess(w, http.StatusOK, historyResponse{
		Total:     page.Total,
		Limit:     page.Limit,
		Offset:    page.Offset,
		Balance:   money.FormatUSD(page.Balance),
		Transfers: transfers,
	})
}

func (h *TransactionHandler) LastTransfer(w http.ResponseWriter, r *http.Request) {
	v, err := h.history.LastTransfer(r.Context(), r.PathValue("accountNumber"))
	if err != nil {
		logging.FromContext(r.Context()).Warn("last transfer lookup failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toTransferViewDTO(*v))
}

func parseHistoryFilter(r *http.Request) (history.Filter, []FieldError) {
	q := r.URL.Query()
	var (
		f    history.Filter
		errs []FieldError
	)

	if d := q.Get("direction"); d != "" {
		f.Direction = domain.TransferDirection(d)
		if !f.Direction.IsValid() {
			errs = append(errs, FieldError{Field: "direction", Message: "must be all, sent, or received"})
		}
	}

	for _, p := range []struct {
		name string
		dst  **time.Time
	}{{"since", &f.Since}, {"until", &f.Until}} {
		raw := q.Get(p.name)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			errs = append(errs, FieldError{Field: p.name, Message: "must be an RFC 3339 timestamp"})
			continue
		}
		*p.dst = &t
	}

	for _, p := range []struct {
		name string
		dst  *int
	}{{"limit", &f.Limit}, {"offset", &f.Offset}} {
		raw := q.Get(p.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			errs = append(errs, FieldError{Field: p.name, Message: "must be a non-negative integer"})
			continue
		}
		*p.dst = n
	}

	return f, errs
}

type validatable interface {
	Validate() []FieldError
}

// decodeAndValidate writes the error response itself and reports whether
// the handler should continue.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, req validatable) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return false
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return false
	}
	return true
}
