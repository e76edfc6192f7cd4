// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielhkuo/campus-vote/models"
	"github.com/danielhkuo/campus-vote/txsubmit"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/rs/cors"
)

// RequestIDHeader carries the request ID in both directions
const RequestIDHeader = "X-Request-ID"

type ctxKey struct{}

// RequestID returns the ID WithLogging assigned to the request
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// statusRecorder remembers the status code written by the handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// WithLogging wraps a handler with request logging. Every request gets an
// ID: a valid UUID in X-Request-ID is kept, otherwise a new one is made.
func WithLogging(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		id := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		r = r.WithContext(context.WithValue(r.Context(), ctxKey{}, id))

		// Log request
		slog.Info("request started",
			"request_id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"remote", GetClientIP(r),
		)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)

		// Log completion
		duration := time.Since(start)
		slog.Info("request completed",
			"request_id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", duration.Milliseconds(),
		)
	}
}

// JSONResponse writes a JSON response
func JSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	err := json.NewEncoder(w).Encode(data)
	if err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// ErrorResponse writes a JSON error response
func ErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	JSONResponse(w, statusCode, models.ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
	})
}

// ledgerStatus is the HTTP status for each ledger failure kind
var ledgerStatus = map[txsubmit.Kind]int{
	txsubmit.KindUserRejected:      http.StatusServiceUnavailable,
	txsubmit.KindInsufficientFunds: http.StatusPaymentRequired,
	txsubmit.KindNetwork:           http.StatusBadGateway,
	txsubmit.KindNotFound:          http.StatusNotFound,
	txsubmit.KindInvalidState:      http.StatusConflict,
	txsubmit.KindDuplicateVote:     http.StatusConflict,
	txsubmit.KindUnauthorized:      http.StatusForbidden,
	txsubmit.KindReverted:          http.StatusUnprocessableEntity,
	txsubmit.KindUnknown:           http.StatusBadGateway,
}

// LedgerErrorResponse writes a classified ledger failure. Only the fixed
// message for its kind reaches the client; the cause is logged.
func LedgerErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	txErr := txsubmit.Classify(err)
	status, ok := ledgerStatus[txErr.Kind]
	if !ok {
		status = http.StatusBadGateway
	}

	attrs := []any{"request_id", RequestID(r.Context()), "kind", txErr.Kind, "error", err}
	if txErr.Reason != "" {
		attrs = append(attrs, "reason", txErr.Reason)
	}
	if txErr.TxHash != (common.Hash{}) {
		attrs = append(attrs, "tx_hash", txErr.TxHash.Hex())
	}
	slog.Warn("ledger call failed", attrs...)

	JSONResponse(w, status, models.ErrorResponse{
		Error:   http.StatusText(status),
		Message: txErr.Message,
		Kind:    string(txErr.Kind),
	})
}

// IsLedgerError reports whether err came from the ledger path
func IsLedgerError(err error) bool {
	var txErr *txsubmit.Error
	return errors.As(err, &txErr)
}

// ParseJSONBody parses the request body into the given struct
func ParseJSONBody(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return err
	}
	return nil
}

// CORS middleware allows cross-origin requests from the frontend
func CORS(next http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:       []string{"*"},
		AllowedMethods:       []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:       []string{"Content-Type", "Authorization", "X-Admin-Key", RequestIDHeader},
		ExposedHeaders:       []string{RequestIDHeader},
		OptionsSuccessStatus: http.StatusNoContent,
	}).Handler(next)
}

// GetClientIP extracts the client IP address
// Checks X-Forwarded-For, X-Real-IP, then falls back to RemoteAddr
func GetClientIP(r *http.Request) string {
	// Check X-Forwarded-For (load balancers)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// Take first IP in chain
		for i := 0; i < len(xff); i++ {
			if xff[i] == ',' || xff[i] == ' ' {
				return xff[:i]
			}
		}
		return xff
	}

	// Check X-Real-IP (nginx)
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	// Fall back to RemoteAddr
	// Strip port if present
	addr := r.RemoteAddr
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == ':' {
			return addr[:i]
		}
	}
	return addr
}
