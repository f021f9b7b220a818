package middleware

import (
	"mime"
	"net/http"

	"github.com/healthbridge/healthbridge/internal/api/models"
)

// RequireJSON rejects request bodies that are not declared as JSON. Requests
// without a body or a Content-Type pass through.
func RequireJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ct := r.Header.Get("Content-Type")
		if ct == "" || r.ContentLength == 0 {
			next.ServeHTTP(w, r)
			return
		}
		mediaType, _, err := mime.ParseMediaType(ct)
		if err != nil || mediaType != "application/json" {
			writeProblem(w, r, models.NewUnsupportedMediaType(GetRequestID(r.Context()), "Content-Type must be application/json"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
