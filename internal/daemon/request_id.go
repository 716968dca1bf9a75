package daemon

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"bleep/internal/services"
)

const requestIDHeader = "X-Request-ID"

// withRequestID tags each request with a correlation id, reusing the
// caller's X-Request-ID when present, and echoes it in the response.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(services.WithRequestID(r.Context(), id)))
	})
}
