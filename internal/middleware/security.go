package middleware

import (
	"net/http"
)

// SecurityHeaders sets conservative response headers. The widget is
// embedded cross-origin, so frame options stay off the public chat path
// responses and are handled by CORS configuration instead.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}
