package middleware

import (
	"fmt"
	"net/http"

	"github.com/preplab/catprep/internal/api"
)

// MaxBodyBytes rejects request bodies larger than limit. Document ingestion
// sends the full extracted text of a PDF in one JSON payload, so the router
// sizes the limit for whole study materials, not typical API bodies.
func MaxBodyBytes(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limit <= 0 || r.Body == nil {
				next.ServeHTTP(w, r)
				return
			}

			// A declared oversize fails before any bytes are read. Chunked
			// uploads carry no length and fail at read time instead.
			if r.ContentLength != -1 && r.ContentLength > limit {
				api.Error(w, http.StatusRequestEntityTooLarge,
					fmt.Sprintf("request body exceeds the %d byte limit", limit))
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}
