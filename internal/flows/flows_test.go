package flows

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/validate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	errNotReady     = errors.New("not ready")
	errDupEmail     = errors.New("dup email")
	errDupIdentity  = errors.New("dup identity")
	errNotFound     = errors.New("not found")
	errBadCreds     = errors.New("bad creds")
	errRecovery     = errors.New("recovery failed")
	errNoRecovery   = errors.New("no recovery")
	errMismatch     = errors.New("mismatch")
	errStoreOffline = errors.New("store offline")
)

// harness is an in-memory backend for the flows. Hashes are "h:" + secret
// so tests can read them back.
type harness struct {
	now      time.Time
	users    []UserRecord
	sessions map[string]session.State
	byUser   map[string]map[string]bool
	ttls     map[string]time.Duration
	counts   map[int]int
	dummies  int
	verifies int
	nextID   int
	saveErr  error
}

func newHarness() *harness {
	return &harness{
		now:      time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
		sessions: map[string]session.State{},
		byUser:   map[string]map[string]bool{},
		ttls:     map[string]time.Duration{},
		counts:   map[int]int{},
	}
}

func (h *harness) find(match func(UserRecord) bool) []UserRecord {
	var out []UserRecord
	for _, u := range h.users {
		if match(u) {
			out = append(out, u)
		}
	}
	return out
}

func (h *harness) deps() Deps {
	return Deps{
		SessionLifetime: 2 * time.Hour,
		PendingTTL:      30 * time.Minute,
		UpgradeOnLogin:  true,
		Now:             func() time.Time { return h.now },
		NewID: func() string {
			h.nextID++
			return "user-" + strconv.Itoa(h.nextID)
		},
		FindByEmail: func(_ context.Context, email string) ([]UserRecord, error) {
			return h.find(func(u UserRecord) bool { return u.Email == email }), nil
		},
		FindByIdentity: func(_ context.Context, identity string) ([]UserRecord, error) {
			return h.find(func(u UserRecord) bool { return u.Identity == identity }), nil
		},
		InsertUser: func(_ context.Context, u UserRecord) error {
			h.users = append(h.users, u)
			return nil
		},
		UpdatePasswordHash: func(_ context.Context, email, hash string) (string, error) {
			for i := range h.users {
				if h.users[i].Email == email {
					h.users[i].PasswordHash = hash
					return h.users[i].ID, nil
				}
			}
			return "", errNotFound
		},
		HashSecret: func(_ context.Context, s string) (string, error) {
			return "h:" + s, nil
		},
		VerifySecret: func(_ context.Context, s, hash string) (bool, error) {
			h.verifies++
			return hash == "h:"+s || hash == "old:"+s, nil
		},
		VerifyDummy: func(context.Context, string) error {
			h.dummies++
			return nil
		},
		NeedsUpgrade: func(hash string) bool { return strings.HasPrefix(hash, "old:") },
		SaveSession: func(_ context.Context, s *session.Session, ttl time.Duration) error {
			if h.saveErr != nil {
				return h.saveErr
			}
			h.sessions[s.Token()] = s.State()
			h.ttls[s.Token()] = ttl
			if a, ok := s.Authenticated(); ok {
				if h.byUser[a.UserID] == nil {
					h.byUser[a.UserID] = map[string]bool{}
				}
				h.byUser[a.UserID][s.Token()] = true
			}
			return nil
		},
		DeleteSession: func(_ context.Context, token string) error {
			delete(h.sessions, token)
			for _, set := range h.byUser {
				delete(set, token)
			}
			return nil
		},
		DeleteAllForUser: func(_ context.Context, userID string) (int, error) {
			n := 0
			for token := range h.byUser[userID] {
				if _, ok := h.sessions[token]; ok {
					delete(h.sessions, token)
					n++
				}
			}
			delete(h.byUser, userID)
			return n, nil
		},
		MetricInc: func(id int) { h.counts[id]++ },
		Metrics: Metrics{
			SignupSuccess:           1,
			SignupDuplicate:         2,
			SignupFailure:           3,
			LoginSuccess:            4,
			LoginFailure:            5,
			RecoveryStartSuccess:    6,
			RecoveryStartFailure:    7,
			RecoveryCompleteSuccess: 8,
			RecoveryCompleteFailure: 9,
			Logout:                  10,
			SessionCreated:          11,
			SessionInvalidated:      12,
			PasswordUpgrade:         13,
		},
		Errors: Errors{
			EngineNotReady:       errNotReady,
			DuplicateEmail:       errDupEmail,
			DuplicateIdentity:    errDupIdentity,
			UserNotFound:         errNotFound,
			InvalidCredentials:   errBadCreds,
			RecoveryFailed:       errRecovery,
			NoRecoveryInProgress: errNoRecovery,
			SecretMismatch:       errMismatch,
		},
	}
}

func (h *harness) session(t *testing.T) *session.Session {
	t.Helper()
	s, err := session.New(h.now)
	require.NoError(t, err)
	return s
}

func (h *harness) signup(t *testing.T, identity, email string) *session.Session {
	t.Helper()
	s := h.session(t)
	require.NoError(t, RunSignup(context.Background(), s, SignupInput{
		Identity:       identity,
		Email:          email,
		Secret:         "hunter22",
		SecurityAnswer: "Blue",
	}, h.deps()))
	return s
}

func TestSignupAuthenticatesAndNormalizes(t *testing.T) {
	h := newHarness()
	s := h.signup(t, "alice", "  Alice@Example.COM ")

	require.Len(t, h.users, 1)
	u := h.users[0]
	assert.Equal(t, "alice@example.com", u.Email)
	assert.Equal(t, "h:hunter22", u.PasswordHash)
	assert.Equal(t, "h:blue", u.SecurityAnswerHash)

	auth, ok := s.Authenticated()
	require.True(t, ok)
	assert.Equal(t, u.ID, auth.UserID)
	assert.Equal(t, h.now.Add(2*time.Hour), auth.ExpiresAt)
	assert.Equal(t, 2*time.Hour, h.ttls[s.Token()])
	assert.Equal(t, 1, h.counts[1])
}

func TestSignupDuplicates(t *testing.T) {
	h := newHarness()
	h.signup(t, "alice", "alice@example.com")

	s := h.session(t)
	err := RunSignup(context.Background(), s, SignupInput{
		Identity: "bob", Email: "ALICE@example.com", Secret: "x", SecurityAnswer: "y",
	}, h.deps())
	assert.ErrorIs(t, err, errDupEmail)

	err = RunSignup(context.Background(), s, SignupInput{
		Identity: "alice", Email: "bob@example.com", Secret: "x", SecurityAnswer: "y",
	}, h.deps())
	assert.ErrorIs(t, err, errDupIdentity)

	assert.Len(t, h.users, 1)
	assert.Equal(t, session.KindAnonymous, s.State().Kind())
	assert.Equal(t, 2, h.counts[2])
}

func TestSignupValidationNamesField(t *testing.T) {
	h := newHarness()
	s := h.session(t)
	err := RunSignup(context.Background(), s, SignupInput{
		Identity: "alice", Email: "", Secret: "x", SecurityAnswer: "y",
	}, h.deps())

	var verr *validate.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, validate.FieldEmail, verr.Field)
	assert.Empty(t, h.users)
	assert.False(t, s.Stored())
}

func TestLoginOutcomes(t *testing.T) {
	h := newHarness()
	h.signup(t, "alice", "alice@example.com")
	ctx := context.Background()

	s := h.session(t)
	assert.ErrorIs(t, RunLogin(ctx, s, "nobody@example.com", "hunter22", h.deps()), errNotFound)
	assert.Equal(t, 1, h.dummies)

	assert.ErrorIs(t, RunLogin(ctx, s, "alice@example.com", "wrong", h.deps()), errBadCreds)
	assert.Equal(t, session.KindAnonymous, s.State().Kind())

	require.NoError(t, RunLogin(ctx, s, "Alice@Example.com", "hunter22", h.deps()))
	auth, ok := s.Authenticated()
	require.True(t, ok)
	assert.Equal(t, "alice", auth.Identity)
	assert.Equal(t, 2, h.counts[5])
	assert.Equal(t, 1, h.counts[4])
}

func TestLoginAmbiguousEmailIsNotFound(t *testing.T) {
	h := newHarness()
	h.users = []UserRecord{
		{ID: "a", Identity: "a", Email: "x@example.com", PasswordHash: "h:pw"},
		{ID: "b", Identity: "b", Email: "x@example.com", PasswordHash: "h:pw"},
	}
	s := h.session(t)
	err := RunLogin(context.Background(), s, "x@example.com", "pw", h.deps())
	assert.ErrorIs(t, err, errNotFound)
	assert.Equal(t, 1, h.dummies)
	assert.Equal(t, 0, h.verifies)
}

func TestLoginUpgradesLegacyHash(t *testing.T) {
	h := newHarness()
	h.users = []UserRecord{{ID: "a", Identity: "a", Email: "a@example.com", PasswordHash: "old:pw"}}

	s := h.session(t)
	require.NoError(t, RunLogin(context.Background(), s, "a@example.com", "pw", h.deps()))
	assert.Equal(t, "h:pw", h.users[0].PasswordHash)
	assert.Equal(t, 1, h.counts[13])
}

func TestLoginRenewRotatesToken(t *testing.T) {
	h := newHarness()
	h.signup(t, "alice", "alice@example.com")

	deps := h.deps()
	deps.RenewOnAuthenticate = true
	s := h.session(t)
	require.NoError(t, deps.SaveSession(context.Background(), s, time.Minute))
	before := s.Token()

	require.NoError(t, RunLogin(context.Background(), s, "alice@example.com", "hunter22", deps))
	assert.NotEqual(t, before, s.Token())
	_, stillThere := h.sessions[before]
	assert.False(t, stillThere)
}

func TestRecoveryStartGenericFailure(t *testing.T) {
	h := newHarness()
	h.signup(t, "alice", "alice@example.com")
	ctx := context.Background()

	s := h.session(t)
	errUnknown := RunRecoveryStart(ctx, s, "nobody@example.com", "blue", h.deps())
	errWrong := RunRecoveryStart(ctx, s, "alice@example.com", "red", h.deps())

	assert.ErrorIs(t, errUnknown, errRecovery)
	assert.ErrorIs(t, errWrong, errRecovery)
	assert.Equal(t, errUnknown.Error(), errWrong.Error())
	assert.Equal(t, session.KindAnonymous, s.State().Kind())
	assert.False(t, s.Stored())
}

func TestRecoveryFullCycle(t *testing.T) {
	h := newHarness()
	other := h.signup(t, "alice", "alice@example.com")
	ctx := context.Background()

	s := h.session(t)
	require.NoError(t, RunRecoveryStart(ctx, s, "alice@example.com", "  BLUE ", h.deps()))
	pending, ok := s.RecoveryPending()
	require.True(t, ok)
	assert.Equal(t, "alice@example.com", pending.Email)
	assert.Equal(t, 30*time.Minute, h.ttls[s.Token()])

	assert.ErrorIs(t, RunRecoveryComplete(ctx, s, "newpass1", "newpass2", h.deps()), errMismatch)
	_, ok = s.RecoveryPending()
	assert.True(t, ok)

	require.NoError(t, RunRecoveryComplete(ctx, s, "newpass1", "newpass1", h.deps()))
	assert.Equal(t, session.KindAnonymous, s.State().Kind())
	assert.Equal(t, "h:newpass1", h.users[0].PasswordHash)

	_, otherAlive := h.sessions[other.Token()]
	assert.False(t, otherAlive)

	assert.ErrorIs(t, RunLogin(ctx, s, "alice@example.com", "hunter22", h.deps()), errBadCreds)
	require.NoError(t, RunLogin(ctx, s, "alice@example.com", "newpass1", h.deps()))
}

func TestRecoveryCompleteRequiresPending(t *testing.T) {
	h := newHarness()
	s := h.signup(t, "alice", "alice@example.com")
	err := RunRecoveryComplete(context.Background(), s, "a", "a", h.deps())
	assert.ErrorIs(t, err, errNoRecovery)
	assert.Equal(t, "h:hunter22", h.users[0].PasswordHash)
}

func TestRecoveryStartDropsAuthentication(t *testing.T) {
	h := newHarness()
	s := h.signup(t, "alice", "alice@example.com")
	before := s.Token()

	require.NoError(t, RunRecoveryStart(context.Background(), s, "alice@example.com", "blue", h.deps()))
	_, authed := s.Authenticated()
	assert.False(t, authed)
	assert.NotEqual(t, before, s.Token())
	_, oldAlive := h.sessions[before]
	assert.False(t, oldAlive)
}

func TestLogoutResetsHandle(t *testing.T) {
	h := newHarness()
	s := h.signup(t, "alice", "alice@example.com")
	before := s.Token()

	require.NoError(t, RunLogout(context.Background(), s, h.deps()))
	assert.NotEqual(t, before, s.Token())
	assert.False(t, s.Stored())
	assert.Equal(t, session.KindAnonymous, s.State().Kind())
	_, alive := h.sessions[before]
	assert.False(t, alive)

	// Logging out an anonymous handle is harmless.
	require.NoError(t, RunLogout(context.Background(), s, h.deps()))
}

func TestSessionWriteFailureSurfaces(t *testing.T) {
	h := newHarness()
	h.saveErr = errStoreOffline
	s := h.session(t)
	err := RunSignup(context.Background(), s, SignupInput{
		Identity: "alice", Email: "alice@example.com", Secret: "pw", SecurityAnswer: "blue",
	}, h.deps())
	assert.ErrorIs(t, err, errStoreOffline)
	assert.Equal(t, 0, h.counts[1])
	assert.Equal(t, session.KindAnonymous, s.State().Kind())
	assert.False(t, s.Dirty())

	err = RunLogin(context.Background(), s, "alice@example.com", "pw", h.deps())
	assert.ErrorIs(t, err, errStoreOffline)
	_, authed := s.Authenticated()
	assert.False(t, authed)
}

func TestRecoveryStartWriteFailureStagesNothing(t *testing.T) {
	h := newHarness()
	h.signup(t, "alice", "alice@example.com")
	h.saveErr = errStoreOffline

	s := h.session(t)
	err := RunRecoveryStart(context.Background(), s, "alice@example.com", "blue", h.deps())
	assert.ErrorIs(t, err, errStoreOffline)
	_, pending := s.RecoveryPending()
	assert.False(t, pending)
	assert.Equal(t, 0, h.counts[6])
}

func TestMissingDepsReportNotReady(t *testing.T) {
	s, err := session.New(time.Now())
	require.NoError(t, err)
	deps := Deps{Errors: Errors{EngineNotReady: errNotReady}}
	assert.ErrorIs(t, RunLogin(context.Background(), s, "a@b.c", "x", deps), errNotReady)
	assert.ErrorIs(t, RunLogout(context.Background(), s, deps), errNotReady)
}
