package flows

import (
	"context"

	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/validate"
	"go.uber.org/zap"
)

// RunRecoveryStart verifies email and security answer and stages the
// account for a secret reset. It grants no access; a session that was
// authenticated loses its authentication.
//
// An unknown email and a wrong answer both return RecoveryFailed after the
// same amount of hashing work, and leave the session untouched.
func RunRecoveryStart(ctx context.Context, sess *session.Session, email, answer string, deps Deps) error {
	normalizeDeps(&deps)
	if sess == nil || !deps.ready() {
		return deps.Errors.EngineNotReady
	}

	values, err := validate.RecoveryStart.Validate(map[string]string{
		validate.FieldEmail:          email,
		validate.FieldSecurityAnswer: answer,
	})
	if err != nil {
		deps.MetricInc(deps.Metrics.RecoveryStartFailure)
		return err
	}
	email, answer = values[validate.FieldEmail], values[validate.FieldSecurityAnswer]

	users, err := deps.FindByEmail(ctx, email)
	if err != nil {
		return err
	}

	matched := false
	if len(users) == 1 {
		matched, err = deps.VerifySecret(ctx, answer, users[0].SecurityAnswerHash)
	} else {
		err = deps.VerifyDummy(ctx, answer)
	}
	if err != nil {
		return err
	}
	if !matched {
		deps.MetricInc(deps.Metrics.RecoveryStartFailure)
		return deps.Errors.RecoveryFailed
	}

	// A session leaving Authenticated gets a new token so its old record
	// and user index entry go away with it.
	if _, wasAuth := sess.Authenticated(); wasAuth {
		if err := rotate(ctx, sess, deps); err != nil {
			return err
		}
	}

	if err := commit(ctx, sess, session.RecoveryPending{Email: users[0].Email}, deps.PendingTTL, deps); err != nil {
		return err
	}

	deps.MetricInc(deps.Metrics.RecoveryStartSuccess)
	deps.Logger.Info("recovery started", zap.String("user_id", users[0].ID))
	return nil
}

// RunRecoveryComplete sets a new secret for the staged account, revokes
// every session of that account and returns sess to Anonymous. The caller
// must log in again.
func RunRecoveryComplete(ctx context.Context, sess *session.Session, newSecret, confirmSecret string, deps Deps) error {
	normalizeDeps(&deps)
	if sess == nil || !deps.ready() {
		return deps.Errors.EngineNotReady
	}

	pending, ok := sess.RecoveryPending()
	if !ok {
		deps.MetricInc(deps.Metrics.RecoveryCompleteFailure)
		return deps.Errors.NoRecoveryInProgress
	}

	values, err := validate.RecoveryComplete.Validate(map[string]string{
		validate.FieldNewSecret: newSecret,
	})
	if err != nil {
		deps.MetricInc(deps.Metrics.RecoveryCompleteFailure)
		return err
	}
	if values[validate.FieldNewSecret] != confirmSecret {
		deps.MetricInc(deps.Metrics.RecoveryCompleteFailure)
		return deps.Errors.SecretMismatch
	}

	hash, err := deps.HashSecret(ctx, newSecret)
	if err != nil {
		return err
	}
	userID, err := deps.UpdatePasswordHash(ctx, pending.Email, hash)
	if err != nil {
		return err
	}

	revoked, err := deps.DeleteAllForUser(ctx, userID)
	if err != nil {
		deps.Logger.Error("secret changed but session revocation failed",
			zap.String("user_id", userID), zap.Error(err))
		return err
	}
	for i := 0; i < revoked; i++ {
		deps.MetricInc(deps.Metrics.SessionInvalidated)
	}

	if err := commit(ctx, sess, session.Anonymous{}, deps.PendingTTL, deps); err != nil {
		return err
	}

	deps.MetricInc(deps.Metrics.RecoveryCompleteSuccess)
	deps.Logger.Info("recovery completed", zap.String("user_id", userID), zap.Int("revoked_sessions", revoked))
	return nil
}
