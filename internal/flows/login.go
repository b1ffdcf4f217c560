package flows

import (
	"context"

	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/validate"
	"go.uber.org/zap"
)

// RunLogin authenticates sess with an email and secret.
//
// Zero or more than one matching account is UserNotFound; a dummy
// verification still runs so the miss costs the same as a wrong secret.
func RunLogin(ctx context.Context, sess *session.Session, email, secret string, deps Deps) error {
	normalizeDeps(&deps)
	if sess == nil || !deps.ready() {
		return deps.Errors.EngineNotReady
	}

	values, err := validate.Login.Validate(map[string]string{
		validate.FieldEmail:  email,
		validate.FieldSecret: secret,
	})
	if err != nil {
		deps.MetricInc(deps.Metrics.LoginFailure)
		return err
	}
	email, secret = values[validate.FieldEmail], values[validate.FieldSecret]

	users, err := deps.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if len(users) != 1 {
		if err := deps.VerifyDummy(ctx, secret); err != nil {
			return err
		}
		if len(users) > 1 {
			deps.Logger.Error("multiple accounts share one email", zap.Int("matches", len(users)))
		}
		deps.MetricInc(deps.Metrics.LoginFailure)
		return deps.Errors.UserNotFound
	}
	user := users[0]

	ok, err := deps.VerifySecret(ctx, secret, user.PasswordHash)
	if err != nil {
		return err
	}
	if !ok {
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.Logger.Info("login rejected", zap.String("user_id", user.ID))
		return deps.Errors.InvalidCredentials
	}

	if err := authenticate(ctx, sess, user, deps); err != nil {
		return err
	}
	deps.MetricInc(deps.Metrics.LoginSuccess)
	deps.Logger.Info("login", zap.String("user_id", user.ID))

	if deps.UpgradeOnLogin && deps.NeedsUpgrade(user.PasswordHash) {
		upgradeHash(ctx, user, secret, deps)
	}
	return nil
}

// upgradeHash re-hashes with current parameters. Failures are logged and
// never fail the login.
func upgradeHash(ctx context.Context, user UserRecord, secret string, deps Deps) {
	newHash, err := deps.HashSecret(ctx, secret)
	if err != nil {
		deps.Logger.Warn("password hash upgrade failed", zap.String("user_id", user.ID), zap.Error(err))
		return
	}
	if _, err := deps.UpdatePasswordHash(ctx, user.Email, newHash); err != nil {
		deps.Logger.Warn("password hash upgrade failed", zap.String("user_id", user.ID), zap.Error(err))
		return
	}
	deps.MetricInc(deps.Metrics.PasswordUpgrade)
}
