package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/validate"
	"go.uber.org/zap"
)

// SignupInput carries raw signup values.
type SignupInput struct {
	Identity       string
	Email          string
	Secret         string
	SecurityAnswer string
}

// RunSignup registers a new account and authenticates sess as it.
//
// The duplicate-email check and the insert are separate operations. Two
// concurrent signups for one email can both pass the check; the store's
// unique constraint then rejects the loser with DuplicateEmail.
//
// If the session write fails after the insert, the account exists but the
// caller is not logged in; the error is returned and a later login works.
func RunSignup(ctx context.Context, sess *session.Session, in SignupInput, deps Deps) error {
	normalizeDeps(&deps)
	if sess == nil || !deps.ready() || deps.NewID == nil {
		return deps.Errors.EngineNotReady
	}

	values, err := validate.Signup.Validate(map[string]string{
		validate.FieldIdentity:       in.Identity,
		validate.FieldEmail:          in.Email,
		validate.FieldSecret:         in.Secret,
		validate.FieldSecurityAnswer: in.SecurityAnswer,
	})
	if err != nil {
		deps.MetricInc(deps.Metrics.SignupFailure)
		return err
	}
	identity := values[validate.FieldIdentity]
	email := values[validate.FieldEmail]

	existing, err := deps.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		deps.MetricInc(deps.Metrics.SignupDuplicate)
		return deps.Errors.DuplicateEmail
	}

	existing, err = deps.FindByIdentity(ctx, identity)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		deps.MetricInc(deps.Metrics.SignupDuplicate)
		return deps.Errors.DuplicateIdentity
	}

	secretHash, err := deps.HashSecret(ctx, values[validate.FieldSecret])
	if err != nil {
		return err
	}
	answerHash, err := deps.HashSecret(ctx, values[validate.FieldSecurityAnswer])
	if err != nil {
		return err
	}

	user := UserRecord{
		ID:                 deps.NewID(),
		Identity:           identity,
		Email:              email,
		PasswordHash:       secretHash,
		SecurityAnswerHash: answerHash,
	}
	if err := deps.InsertUser(ctx, user); err != nil {
		if errors.Is(err, deps.Errors.DuplicateEmail) || errors.Is(err, deps.Errors.DuplicateIdentity) {
			deps.MetricInc(deps.Metrics.SignupDuplicate)
			deps.Logger.Warn("signup lost duplicate race", zap.Error(err))
		}
		return err
	}

	if err := authenticate(ctx, sess, user, deps); err != nil {
		deps.Logger.Error("account created but session write failed",
			zap.String("user_id", user.ID), zap.Error(err))
		return err
	}

	deps.MetricInc(deps.Metrics.SignupSuccess)
	deps.Logger.Info("signup", zap.String("user_id", user.ID))
	return nil
}
