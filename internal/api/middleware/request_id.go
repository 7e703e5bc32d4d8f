package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type contextKey string

// RequestIDKey carries the correlation ID for one API call. The access log
// and Sentry middleware both read it, so RequestID must sit first in the
// chain.
const RequestIDKey contextKey = "request_id"

const requestIDHeader = "X-Request-ID"

// maxInboundRequestIDLen caps caller-supplied IDs before they reach the
// access log.
const maxInboundRequestIDLen = 64

// RequestID assigns a correlation ID to the request. Study clients may pass
// their own X-Request-ID to tie a multi-call flow together (ingest, poll
// status, ask); blank or oversized values are replaced with a fresh UUID.
// The resolved ID is echoed back on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if requestID == "" || len(requestID) > maxInboundRequestIDLen {
			requestID = uuid.NewString()
		}

		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		w.Header().Set(requestIDHeader, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID returns the correlation ID, or empty when RequestID never ran.
func GetRequestID(ctx context.Context) string {
	requestID, _ := ctx.Value(RequestIDKey).(string)
	return requestID
}
