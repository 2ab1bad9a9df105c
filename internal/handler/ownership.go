package handler

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/josh-kwaku/bank-ledger/internal/auth"
)

// userFromPath returns the {id} path value when it names the authenticated
// user. Any other id is reported as not found.
func userFromPath(r *http.Request) (uuid.UUID, *AppError) {
	authUserID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		return uuid.Nil, ErrMissingToken
	}

	userID, err := uuid.Parse(r.PathValue("id"))
	if err != nil || userID != authUserID {
		return uuid.Nil, ErrUserNotFound
	}

	return userID, nil
}
