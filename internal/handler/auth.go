package handler

import (
	"context"
	"net/http"

	"github.com/josh-kwaku/bank-ledger/internal/logging"
	"github.com/josh-kwaku/bank-ledger/internal/service"
)

type loginService interface {
	Login(ctx context.Context, cpf, password string) (*service.LoginResult, error)
}

type AuthHandler struct {
	users loginService
}

func NewAuthHandler(users loginService) *AuthHandler {
	return &AuthHandler{users: users}
}

type loginRequest struct {
	CPF      string `json:"cpf"`
	Password string `json:"password"`
}

func (r loginRequest) Validate() []FieldError {
	var errs []FieldError
	if r.CPF == "" {
		errs = append(errs, FieldError{Field: "cpf", Message: "required"})
	}
	if r.Password == "" {
		errs = append(errs, FieldError{Field: "password", Message: "required"})
	}
	return errs
}

type loginResponse struct {
	Token string  `json:"token"`
	User  userDTO `json:"user"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	res, err := h.users.Login(r.Context(), req.CPF, req.Password)
	if err != nil {
		logging.FromContext(r.Context()).Info("login rejected", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, loginResponse{
		Token: res.Token,
		User:  toUserDTO(&res.User),
	})
}
