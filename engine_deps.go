package goSession

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goSession/internal/flows"
	"github.com/MrEthical07/goSession/session"
)

// flowDeps binds the engine's stores and hasher to the flow functions.
// Every backend error is classified here so the flows only ever see
// business sentinels or classified backend errors.
func (e *Engine) flowDeps(newID func() string) flows.Deps {
	return flows.Deps{
		SessionLifetime:     e.config.Session.Lifetime,
		PendingTTL:          e.config.Session.PendingTTL,
		RenewOnAuthenticate: e.config.Session.RenewOnAuthenticate,
		UpgradeOnLogin:      e.config.Password.UpgradeOnLogin,

		Now:    e.now,
		NewID:  newID,
		Logger: e.logger.Named("flows"),

		FindByEmail: func(ctx context.Context, email string) ([]flows.UserRecord, error) {
			users, err := e.users.FindByEmail(ctx, email)
			if err != nil {
				return nil, credentialStoreError("find_by_email", err)
			}
			return toRecords(users), nil
		},
		FindByIdentity: func(ctx context.Context, identity string) ([]flows.UserRecord, error) {
			users, err := e.users.FindByIdentity(ctx, identity)
			if err != nil {
				return nil, credentialStoreError("find_by_identity", err)
			}
			return toRecords(users), nil
		},
		InsertUser: func(ctx context.Context, r flows.UserRecord) error {
			now := e.now()
			err := e.users.Insert(ctx, User{
				ID:                 r.ID,
				Identity:           r.Identity,
				Email:              r.Email,
				PasswordHash:       r.PasswordHash,
				SecurityAnswerHash: r.SecurityAnswerHash,
				Role:               DefaultRole,
				QuizAnswers:        map[string]string{},
				CreatedAt:          now,
				UpdatedAt:          now,
			})
			if err == nil || errors.Is(err, ErrDuplicateEmail) || errors.Is(err, ErrDuplicateIdentity) {
				return err
			}
			return credentialStoreError("insert", err)
		},
		UpdatePasswordHash: func(ctx context.Context, email, hash string) (string, error) {
			id, err := e.users.UpdatePasswordHash(ctx, email, hash)
			if err == nil || errors.Is(err, ErrUserNotFound) {
				return id, err
			}
			return "", credentialStoreError("update_password_hash", err)
		},

		HashSecret: func(ctx context.Context, secret string) (string, error) {
			h, err := e.hasher.Hash(ctx, secret)
			if err != nil {
				return "", hashingError("hash", err)
			}
			return h, nil
		},
		VerifySecret: func(ctx context.Context, secret, hash string) (bool, error) {
			ok, err := e.hasher.Verify(ctx, secret, hash)
			if err != nil {
				return false, hashingError("verify", err)
			}
			return ok, nil
		},
		VerifyDummy: func(ctx context.Context, secret string) error {
			return hashingError("verify_dummy", e.hasher.VerifyDummy(ctx, secret))
		},
		NeedsUpgrade: func(hash string) bool {
			upgrade, err := e.hasher.NeedsUpgrade(hash)
			return err == nil && upgrade
		},

		SaveSession: func(ctx context.Context, sess *session.Session, ttl time.Duration) error {
			return sessionStoreError("save", e.sessions.Save(ctx, sess, ttl))
		},
		DeleteSession: func(ctx context.Context, token string) error {
			return sessionStoreError("delete", e.sessions.Delete(ctx, token))
		},
		DeleteAllForUser: func(ctx context.Context, userID string) (int, error) {
			n, err := e.sessions.DeleteAllForUser(ctx, userID)
			if err != nil {
				return 0, sessionStoreError("delete_all_for_user", err)
			}
			return n, nil
		},

		MetricInc: func(id int) { e.metricInc(MetricID(id)) },
		Metrics: flows.Metrics{
			SignupSuccess:           int(MetricSignupSuccess),
			SignupDuplicate:         int(MetricSignupDuplicate),
			SignupFailure:           int(MetricSignupFailure),
			LoginSuccess:            int(MetricLoginSuccess),
			LoginFailure:            int(MetricLoginFailure),
			RecoveryStartSuccess:    int(MetricRecoveryStartSuccess),
			RecoveryStartFailure:    int(MetricRecoveryStartFailure),
			RecoveryCompleteSuccess: int(MetricRecoveryCompleteSuccess),
			RecoveryCompleteFailure: int(MetricRecoveryCompleteFailure),
			Logout:                  int(MetricLogout),
			SessionCreated:          int(MetricSessionCreated),
			SessionInvalidated:      int(MetricSessionInvalidated),
			PasswordUpgrade:         int(MetricPasswordUpgrade),
		},
		Errors: flows.Errors{
			EngineNotReady:       ErrEngineNotReady,
			DuplicateEmail:       ErrDuplicateEmail,
			DuplicateIdentity:    ErrDuplicateIdentity,
			UserNotFound:         ErrUserNotFound,
			InvalidCredentials:   ErrInvalidCredentials,
			RecoveryFailed:       ErrRecoveryFailed,
			NoRecoveryInProgress: ErrNoRecoveryInProgress,
			SecretMismatch:       ErrSecretMismatch,
		},
	}
}

func toRecords(users []User) []flows.UserRecord {
	out := make([]flows.UserRecord, len(users))
	for i, u := range users {
		out[i] = flows.UserRecord{
			ID:                 u.ID,
			Identity:           u.Identity,
			Email:              u.Email,
			PasswordHash:       u.PasswordHash,
			SecurityAnswerHash: u.SecurityAnswerHash,
		}
	}
	return out
}
