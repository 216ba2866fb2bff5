package middleware

import (
	"hackathon_portal/internal/common"
	"log"
	"net/http"
	"strings"
)

// CSRF rejects state-changing requests whose Origin is not allow-listed.
// Outside production a request without an Origin header (curl, tests) is let
// through; a wrong Origin never is.
func CSRF(allowedOrigins []string, production bool) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[strings.TrimRight(strings.ToLower(o), "/")] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			origin := strings.TrimRight(strings.ToLower(r.Header.Get("Origin")), "/")
			if origin == "" && !production {
				next.ServeHTTP(w, r)
				return
			}
			if !allowed[origin] {
				log.Printf("WARN: CSRF check failed for %s %s (origin %q)", r.Method, r.URL.Path, origin)
				common.RespondWithError(w, http.StatusForbidden, common.CodeCSRFFailed, "Request origin is not allowed")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
