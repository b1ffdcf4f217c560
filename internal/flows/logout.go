package flows

import (
	"context"

	"github.com/MrEthical07/goSession/session"
)

// RunLogout deletes the session record and resets the handle to a fresh,
// unsaved anonymous session with a new token.
func RunLogout(ctx context.Context, sess *session.Session, deps Deps) error {
	normalizeDeps(&deps)
	if sess == nil || deps.DeleteSession == nil {
		return deps.Errors.EngineNotReady
	}

	if sess.Stored() {
		if err := deps.DeleteSession(ctx, sess.Token()); err != nil {
			return err
		}
		deps.MetricInc(deps.Metrics.SessionInvalidated)
	}
	if err := sess.Reset(deps.Now()); err != nil {
		return err
	}

	deps.MetricInc(deps.Metrics.Logout)
	return nil
}
