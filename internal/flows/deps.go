package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/goSession/session"
	"go.uber.org/zap"
)

// UserRecord is the flow-local view of a credential record.
type UserRecord struct {
	ID                 string
	Identity           string
	Email              string
	PasswordHash       string
	SecurityAnswerHash string
}

// Metrics carries the metric IDs the flows increment.
type Metrics struct {
	SignupSuccess           int
	SignupDuplicate         int
	SignupFailure           int
	LoginSuccess            int
	LoginFailure            int
	RecoveryStartSuccess    int
	RecoveryStartFailure    int
	RecoveryCompleteSuccess int
	RecoveryCompleteFailure int
	Logout                  int
	SessionCreated          int
	SessionInvalidated      int
	PasswordUpgrade         int
}

// Errors carries host-level sentinel errors returned by the flows.
type Errors struct {
	EngineNotReady       error
	DuplicateEmail       error
	DuplicateIdentity    error
	UserNotFound         error
	InvalidCredentials   error
	RecoveryFailed       error
	NoRecoveryInProgress error
	SecretMismatch       error
}

// Deps captures every dependency of the auth flows. Store and hash funcs
// return errors already classified by the host.
type Deps struct {
	SessionLifetime     time.Duration
	PendingTTL          time.Duration
	RenewOnAuthenticate bool
	UpgradeOnLogin      bool

	Now    func() time.Time
	NewID  func() string
	Logger *zap.Logger

	FindByEmail        func(context.Context, string) ([]UserRecord, error)
	FindByIdentity     func(context.Context, string) ([]UserRecord, error)
	InsertUser         func(context.Context, UserRecord) error
	UpdatePasswordHash func(context.Context, string, string) (string, error)

	HashSecret   func(context.Context, string) (string, error)
	VerifySecret func(context.Context, string, string) (bool, error)
	VerifyDummy  func(context.Context, string) error
	NeedsUpgrade func(string) bool

	SaveSession      func(context.Context, *session.Session, time.Duration) error
	DeleteSession    func(context.Context, string) error
	DeleteAllForUser func(context.Context, string) (int, error)

	MetricInc func(int)

	Metrics Metrics
	Errors  Errors
}

func (d *Deps) ready() bool {
	return d.FindByEmail != nil && d.FindByIdentity != nil && d.InsertUser != nil &&
		d.UpdatePasswordHash != nil && d.HashSecret != nil && d.VerifySecret != nil &&
		d.VerifyDummy != nil && d.SaveSession != nil && d.DeleteSession != nil &&
		d.DeleteAllForUser != nil
}

func normalizeDeps(d *Deps) {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.MetricInc == nil {
		d.MetricInc = func(int) {}
	}
	if d.NeedsUpgrade == nil {
		d.NeedsUpgrade = func(string) bool { return false }
	}
}

// authenticate moves sess to Authenticated and persists it with a TTL equal
// to the session lifetime.
func authenticate(ctx context.Context, sess *session.Session, u UserRecord, deps Deps) error {
	if deps.RenewOnAuthenticate {
		if err := rotate(ctx, sess, deps); err != nil {
			return err
		}
	}

	err := commit(ctx, sess, session.Authenticated{
		UserID:    u.ID,
		Identity:  u.Identity,
		Email:     u.Email,
		ExpiresAt: deps.Now().Add(deps.SessionLifetime),
	}, deps.SessionLifetime, deps)
	if err != nil {
		return err
	}
	deps.MetricInc(deps.Metrics.SessionCreated)
	return nil
}

// commit moves sess to next and saves it. When the save fails the handle
// goes back to what the store still holds for its token: the previous state
// if it was saved, Anonymous otherwise.
func commit(ctx context.Context, sess *session.Session, next session.State, ttl time.Duration, deps Deps) error {
	prev, wasDirty := sess.State(), sess.Dirty()
	if !sess.Stored() {
		prev = session.Anonymous{}
	}
	sess.Transition(next)
	if err := deps.SaveSession(ctx, sess, ttl); err != nil {
		sess.Revert(prev, wasDirty)
		return err
	}
	return nil
}

// rotate gives sess a new token and deletes the record of the old one.
func rotate(ctx context.Context, sess *session.Session, deps Deps) error {
	wasStored := sess.Stored()
	prev, err := sess.Rotate()
	if err != nil {
		return err
	}
	if !wasStored {
		return nil
	}
	return deps.DeleteSession(ctx, prev)
}
