package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/bank-ledger/internal/domain"
	"github.com/josh-kwaku/bank-ledger/internal/logging"
	"github.com/josh-kwaku/bank-ledger/internal/service"
)

type userService interface {
	CreateUser(ctx context.Context, in service.CreateUserInput) (*domain.User, *domain.Account, error)
	GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetAccountByUser(ctx context.Context, userID uuid.UUID) (*domain.AccountOwner, error)
	UpdateUser(ctx context.Context, id uuid.UUID, in service.UpdateUserInput) error
	DeleteUser(ctx context.Context, id uuid.UUID) error
}

type UserHandler struct {
	users userService
}

func NewUserHandler(users userService) *UserHandler {
	return &UserHandler{users: users}
}

type createUserRequest struct {
	Name        string `json:"name"`
	CPF         string `json:"cpf"`
	Password    string `json:"password"`
	PhoneNumber string `json:"phone_number"`
	DateOfBirth string `json:"date_of_birth"`
	AccountType string `json:"account_type"`
}

func (r createUserRequest) Validate() []FieldError {
	var errs []FieldError
	for _, f := range []struct{ name, value string }{
		{"name", r.Name},
		{"cpf", r.CPF},
		{"password", r.Password},
		{"phone_number", r.PhoneNumber},
	} {
		if f.value == "" {
			errs = append(errs, FieldError{Field: f.name, Message: "required"})
		}
	}
	if r.DateOfBirth == "" {
		errs = append(errs, FieldError{Field: "date_of_birth", Message: "required"})
	} else if _, err := time.Parse(dateLayout, r.DateOfBirth); err != nil {
		errs = append(errs, FieldError{Field: "date_of_birth", Message: "must be YYYY-MM-DD"})
	}
	if !domain.AccountType(r.AccountType).IsValid() {
		errs = append(errs, FieldError{Field: "account_type", Message: "must be checking or savings"})
	}
	return errs
}

type updateUserRequest struct {
	PhoneNumber *string `json:"phone_number"`
	OldPassword *string `json:"old_password"`
	NewPassword *string `json:"new_password"`
}

func (r updateUserRequest) Validate() []FieldError {
	if r.PhoneNumber == nil && r.OldPassword == nil && r.NewPassword == nil {
		return []FieldError{{Field: "body", Message: "provide phone_number or old_password and new_password"}}
	}
	if (r.OldPassword == nil) != (r.NewPassword == nil) {
		return []FieldError{{Field: "password", Message: "old_password and new_password must be provided together"}}
	}
	return nil
}

type createUserResponse struct {
	User    userDTO    `json:"user"`
	Account accountDTO `json:"account"`
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	dob, _ := time.Parse(dateLayout, req.DateOfBirth)

	user, account, err := h.users.CreateUser(r.Context(), service.CreateUserInput{
		Name:        req.Name,
		CPF:         req.CPF,
		Password:    req.Password,
		PhoneNumber: req.PhoneNumber,
		DateOfBirth: dob,
		AccountType: domain.AccountType(req.AccountType),
	})
	if err != nil {
		logging.FromContext(r.Context()).Warn("user creation failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/v1/users/%s", user.ID))
	RespondSuccess(w, http.StatusCreated, createUserResponse{
		User:    toUserDTO(user),
		Account: toAccountDTO(account, user.Name),
	})
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, appErr := userFromPath(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	user, err := h.users.GetUser(r.Context(), userID)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to get user", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toUserDTO(user))
}

func (h *UserHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	userID, appErr := userFromPath(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	acct, err := h.users.GetAccountByUser(r.Context(), userID)
	if err != nil {
		logging.FromContext(r.Context()).Warn("failed to get account", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toAccountDTO(&acct.Account, acct.OwnerName))
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, appErr := userFromPath(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req updateUserRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	err := h.users.UpdateUser(r.Context(), userID, service.UpdateUserInput{
		PhoneNumber: req.PhoneNumber,
		OldPassword: req.OldPassword,
		NewPassword: req.NewPassword,
	})
	if err != nil {
		logging.FromContext(r.Context()).Warn("user update failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, map[string]string{"message": "User updated successfully"})
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, appErr := userFromPath(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	if err := h.users.DeleteUser(r.Context(), userID); err != nil {
		logging.FromContext(r.Context()).Warn("user deletion failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, map[string]string{"message": "User and associated account deleted successfully"})
}
