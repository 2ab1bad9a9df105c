package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/bank-ledger/internal/auth"
	"github.com/josh-kwaku/bank-ledger/internal/handler"
	"github.com/josh-kwaku/bank-ledger/internal/logging"
	"github.com/josh-kwaku/bank-ledger/internal/repository"
)

const (
	idempotencyHeader = "Idempotency-Key"
	replayedHeader    = "X-Idempotent-Replayed"
	maxKeyLength      = 255

	// reservationLease bounds how long a crashed request can hold its key.
	reservationLease = time.Minute
)

type idempotencyStore interface {
	Get(ctx context.Context, key string, userID uuid.UUID) (*repository.IdempotencyEntry, error)
	Reserve(ctx context.Context, key string, userID uuid.UUID, requestHash string, expiresAt time.Time) (bool, error)
	Complete(ctx context.Context, e *repository.IdempotencyEntry) error
	Release(ctx context.Context, key string, userID uuid.UUID) error
}

// Idempotency replays the stored response when a request repeats an
// Idempotency-Key the same user sent within ttl. Requests without the
// header pass through untouched.
//
// The key is reserved before the handler runs, so a concurrent retry gets
// 409 instead of executing twice. Only 2xx responses are kept; any other
// outcome releases the reservation and the key can be retried.
func Idempotency(store idempotencyStore, ttl time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(idempotencyHeader)
			if key == "" || r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			if len(key) > maxKeyLength {
				handler.RespondValidationError(w, []handler.FieldError{{Field: idempotencyHeader, Message: "must be at most 255 characters"}})
				return
			}

			userID, ok := auth.UserIDFromContext(r.Context())
			if !ok {
				handler.RespondAppError(w, handler.ErrMissingToken, nil)
				return
			}

			log := logging.FromContext(r.Context()).With("idempotency_key", key)

			body, err := io.ReadAll(r.Body)
			if err != nil {
				handler.RespondAppError(w, handler.ErrInvalidRequest, nil)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			reqHash := computeHash(r.Method, r.URL.Path, body)

			cached, err := store.Get(r.Context(), key, userID)
			if err != nil {
				log.Error("idempotency cache lookup failed", "error", err)
				handler.RespondAppError(w, handler.ErrInternalError, nil)
				return
			}
			if cached != nil {
				respondCached(w, cached, reqHash, log)
				return
			}

			reserved, err := store.Reserve(r.Context(), key, userID, reqHash, time.Now().UTC().Add(reservationLease))
			if err != nil {
				log.Error("idempotency reservation failed", "error", err)
				handler.RespondAppError(w, handler.ErrInternalError, nil)
				return
			}
			if !reserved {
				// Another request claimed the key between Get and Reserve.
				cached, err := store.Get(r.Context(), key, userID)
				if err != nil || cached == nil {
					handler.RespondAppError(w, handler.ErrIdempotencyInProgress, nil)
					return
				}
				respondCached(w, cached, reqHash, log)
				return
			}

			// The outcome is recorded even if the client has gone away.
			storeCtx := context.WithoutCancel(r.Context())
			completed := false
			defer func() {
				if completed {
					return
				}
				if err := store.Release(storeCtx, key, userID); err != nil {
					log.Error("idempotency release failed", "error", err)
				}
			}()

			rec := &responseRecorder{ResponseWriter: w, body: &bytes.Buffer{}, statusCode: http.StatusOK}
			next.ServeHTTP(rec, r)

			if rec.statusCode < 200 || rec.statusCode >= 300 {
				return
			}

			entry := &repository.IdempotencyEntry{
				Key:          key,
				UserID:       userID,
				RequestHash:  reqHash,
				StatusCode:   rec.statusCode,
				ResponseBody: rec.body.Bytes(),
				ExpiresAt:    time.Now().UTC().Add(ttl),
			}
			if err := store.Complete(storeCtx, entry); err != nil {
				log.Error("idempotency cache store failed", "error", err)
				return
			}
			completed = true
		})
	}
}

func respondCached(w http.ResponseWriter, cached *repository.IdempotencyEntry, reqHash string, log *slog.Logger) {
	if cached.RequestHash != reqHash {
		handler.RespondAppError(w, handler.ErrIdempotencyConflict, nil)
		return
	}
	if cached.Pending() {
		handler.RespondAppError(w, handler.ErrIdempotencyInProgress, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(replayedHeader, "true")
	w.WriteHeader(cached.StatusCode)
	if _, err := w.Write(cached.ResponseBody); err != nil {
		log.Error("failed to write idempotent replay", "error", err)
	}
}

func computeHash(method, path string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte(path))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
}

func (r *responseRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}
