package middleware

import (
	"net/http"

	goSession "github.com/MrEthical07/goSession"
)

// RequireAuthenticated admits requests whose session the engine allows and
// redirects every other request to redirectTo with 302. It must run after
// LoadSession.
func RequireAuthenticated(engine *goSession.Engine, redirectTo string) func(http.Handler) http.Handler {
	if redirectTo == "" {
		redirectTo = "/"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, ok := goSession.SessionFromContext(r.Context())
			if !ok || engine.Authorize(sess) != goSession.Allow {
				http.Redirect(w, r, redirectTo, http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
