package middleware

import (
	"net/http"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/session"
	"go.uber.org/zap"
)

// LoadSession resolves the session cookie into a handle, stores it in the
// request context (see goSession.SessionFromContext) and writes the cookie
// back when the handler changed the session.
//
// A session store outage answers 500; every other cookie problem just
// yields a fresh anonymous session.
func LoadSession(engine *goSession.Engine, logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "internal server error", http.StatusInternalServerError)
				return
			}

			var value string
			c, err := r.Cookie(engine.CookieName())
			hadCookie := err == nil
			if hadCookie {
				value = c.Value
			}

			sess, err := engine.LoadSession(r.Context(), value)
			if err != nil {
				logger.Error("load session", zap.Error(err))
				http.Error(w, "internal server error", http.StatusInternalServerError)
				return
			}

			sw := &sessionWriter{
				ResponseWriter: w,
				engine:         engine,
				logger:         logger,
				sess:           sess,
				hadCookie:      hadCookie,
			}
			if sess.Stored() {
				sw.loadedToken = sess.Token()
				sw.loadedKind = sess.State().Kind()
				sw.loadedExpiry = expiryOf(sess)
			}

			next.ServeHTTP(sw, r.WithContext(goSession.WithSession(r.Context(), sess)))
			sw.commit()
		})
	}
}

// sessionWriter sets the session cookie just before the response headers
// go out.
type sessionWriter struct {
	http.ResponseWriter
	engine *goSession.Engine
	logger *zap.Logger
	sess   *session.Session

	hadCookie    bool
	loadedToken  string
	loadedKind   session.Kind
	loadedExpiry time.Time
	committed    bool
}

func (w *sessionWriter) WriteHeader(code int) {
	w.commit()
	w.ResponseWriter.WriteHeader(code)
}

func (w *sessionWriter) Write(b []byte) (int, error) {
	w.commit()
	return w.ResponseWriter.Write(b)
}

func (w *sessionWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func (w *sessionWriter) commit() {
	if w.committed {
		return
	}
	w.committed = true

	switch {
	case w.sess.Stored():
		if w.sess.Token() == w.loadedToken && w.sess.State().Kind() == w.loadedKind &&
			expiryOf(w.sess).Equal(w.loadedExpiry) {
			return
		}
		c, err := w.engine.Cookie(w.sess)
		if err != nil {
			w.logger.Error("sign session cookie", zap.Error(err))
			return
		}
		http.SetCookie(w.ResponseWriter, c)
	case w.hadCookie:
		http.SetCookie(w.ResponseWriter, w.engine.ExpiredCookie())
	}
}

// expiryOf is the cookie expiry for sess, zero for a browser-session cookie.
func expiryOf(sess *session.Session) time.Time {
	if a, ok := sess.Authenticated(); ok {
		return a.ExpiresAt
	}
	return time.Time{}
}
