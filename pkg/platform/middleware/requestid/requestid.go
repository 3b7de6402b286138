// Package requestid assigns each request a correlation ID.
package requestid

import (
	"net/http"

	"github.com/google/uuid"

	"custodia/pkg/requestcontext"
)

const headerName = "X-Request-ID"

// Middleware takes the caller-supplied X-Request-ID or generates one, stores
// it in the context, and echoes it on the response.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(headerName)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(headerName, requestID)

		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
