package goSession

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/MrEthical07/goSession/internal/flows"
	"github.com/MrEthical07/goSession/password"
	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/validate"
	"go.uber.org/zap"
)

// Engine runs the session state machine. It is safe for concurrent use once
// built; per-request [session.Session] handles are not.
type Engine struct {
	config   Config
	users    CredentialStore
	sessions *session.Store
	signer   *session.Signer
	hasher   *password.Pool
	metrics  *Metrics
	logger   *zap.Logger
	now      func() time.Time

	deps flows.Deps
}

// MetricsSnapshot returns a copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) ready() bool {
	return e != nil && e.users != nil && e.sessions != nil && e.signer != nil && e.hasher != nil
}

/*
====================================
SESSION LIFECYCLE
====================================
*/

// NewSession returns an anonymous handle that is not stored until a state
// change saves it.
func (e *Engine) NewSession() (*session.Session, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	return session.New(e.now())
}

// LoadSession resolves a signed cookie value to its session. A missing,
// forged, expired or corrupt cookie yields a fresh anonymous handle, never an
// error. Only a session store outage is reported.
func (e *Engine) LoadSession(ctx context.Context, cookieValue string) (*session.Session, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	if cookieValue == "" {
		return e.NewSession()
	}

	token, err := e.signer.Unsign(cookieValue)
	if err != nil {
		e.logger.Debug("rejected session cookie", zap.Error(err))
		return e.NewSession()
	}

	sess, err := e.sessions.Get(ctx, token)
	switch {
	case err == nil:
	case errors.Is(err, session.ErrNotFound):
		return e.NewSession()
	default:
		return nil, sessionStoreError("load_session", err)
	}

	if auth, ok := sess.Authenticated(); ok && !e.now().Before(auth.ExpiresAt) {
		if err := e.sessions.Delete(ctx, token); err != nil {
			return nil, sessionStoreError("expire_session", err)
		}
		return e.NewSession()
	}
	return sess, nil
}

// Cookie builds the Set-Cookie value for sess. Authenticated sessions carry
// an Expires equal to their absolute expiry; other states use a browser
// session cookie backed by the store TTL.
func (e *Engine) Cookie(sess *session.Session) (*http.Cookie, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	value, err := e.signer.Sign(sess.Token())
	if err != nil {
		return nil, err
	}
	c := e.baseCookie()
	c.Value = value
	if auth, ok := sess.Authenticated(); ok {
		c.Expires = auth.ExpiresAt
	}
	return c, nil
}

// ExpiredCookie returns a cookie that makes the client drop the session.
func (e *Engine) ExpiredCookie() *http.Cookie {
	c := e.baseCookie()
	c.MaxAge = -1
	c.Expires = time.Unix(0, 0)
	return c
}

// CookieName is the name of the session cookie.
func (e *Engine) CookieName() string {
	return e.config.Cookie.Name
}

func (e *Engine) baseCookie() *http.Cookie {
	cc := e.config.Cookie
	return &http.Cookie{
		Name:     cc.Name,
		Path:     cc.Path,
		Domain:   cc.Domain,
		Secure:   cc.Secure,
		HttpOnly: cc.HTTPOnly,
		SameSite: cc.SameSite,
	}
}

/*
====================================
STATE TRANSITIONS
====================================
*/

// Signup creates an account and authenticates sess as it.
//
// Returns a *ValidationError, ErrDuplicateEmail, ErrDuplicateIdentity, or a
// backend error (see IsBackendError).
func (e *Engine) Signup(ctx context.Context, sess *session.Session, req SignupRequest) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	return flows.RunSignup(ctx, sess, flows.SignupInput{
		Identity:       req.Identity,
		Email:          req.Email,
		Secret:         req.Secret,
		SecurityAnswer: req.SecurityAnswer,
	}, e.deps)
}

// Login authenticates sess with email and secret.
//
// Returns a *ValidationError, ErrUserNotFound, ErrInvalidCredentials, or a
// backend error. The HTTP layer shows one message for both login failures.
func (e *Engine) Login(ctx context.Context, sess *session.Session, email, secret string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	start := time.Now()
	err := flows.RunLogin(ctx, sess, email, secret, e.deps)
	e.metrics.Observe(MetricLoginLatency, time.Since(start))
	return err
}

// RecoveryStart stages a secret reset after checking the security answer.
// It returns ErrRecoveryFailed for an unknown email and for a wrong answer
// alike.
func (e *Engine) RecoveryStart(ctx context.Context, sess *session.Session, email, answer string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	return flows.RunRecoveryStart(ctx, sess, email, answer, e.deps)
}

// RecoveryComplete sets the new secret of the staged account, revokes all
// of its sessions and returns sess to Anonymous.
//
// Returns ErrNoRecoveryInProgress, a *ValidationError, ErrSecretMismatch, or
// a backend error.
func (e *Engine) RecoveryComplete(ctx context.Context, sess *session.Session, newSecret, confirmSecret string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	return flows.RunRecoveryComplete(ctx, sess, newSecret, confirmSecret, e.deps)
}

// Logout destroys the stored session and resets sess to a fresh anonymous
// handle with a new token.
func (e *Engine) Logout(ctx context.Context, sess *session.Session) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	return flows.RunLogout(ctx, sess, e.deps)
}

/*
====================================
ACCESS GATE
====================================
*/

// Authorize allows exactly the sessions that are Authenticated and not past
// their expiry. Anonymous and RecoveryPending sessions are denied.
func (e *Engine) Authorize(sess *session.Session) Decision {
	if e == nil || sess == nil {
		return Deny
	}
	auth, ok := sess.Authenticated()
	if !ok || auth.UserID == "" || !e.now().Before(auth.ExpiresAt) {
		e.metricInc(MetricAuthorizeDeny)
		return Deny
	}
	e.metricInc(MetricAuthorizeAllow)
	return Allow
}

/*
====================================
PROTECTED OPERATIONS
====================================
*/

// Profile returns the account bound to an authenticated session.
func (e *Engine) Profile(ctx context.Context, sess *session.Session) (Profile, error) {
	if !e.ready() {
		return Profile{}, ErrEngineNotReady
	}
	if e.Authorize(sess) != Allow {
		return Profile{}, ErrUnauthorized
	}
	auth, _ := sess.Authenticated()

	u, err := e.users.FindByID(ctx, auth.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return Profile{}, ErrUnauthorized
		}
		return Profile{}, credentialStoreError("find_by_id", err)
	}
	return u.profile(), nil
}

// SaveQuizAnswers stores the quiz answers of the authenticated account.
// Unknown form fields are ignored.
func (e *Engine) SaveQuizAnswers(ctx context.Context, sess *session.Session, answers map[string]string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	if e.Authorize(sess) != Allow {
		return ErrUnauthorized
	}
	auth, _ := sess.Authenticated()

	values, err := validate.Quiz.Validate(answers)
	if err != nil {
		return err
	}
	if err := e.users.UpdateQuizAnswers(ctx, auth.UserID, values); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrUnauthorized
		}
		return credentialStoreError("update_quiz_answers", err)
	}

	e.metricInc(MetricQuizSaved)
	return nil
}

/*
====================================
HEALTH
====================================
*/

// HealthStatus reports backend availability.
type HealthStatus struct {
	SessionStore    bool
	CredentialStore bool
	SessionLatency  time.Duration
}

// Health pings both stores. The error is the first failure seen.
func (e *Engine) Health(ctx context.Context) (HealthStatus, error) {
	if !e.ready() {
		return HealthStatus{}, ErrEngineNotReady
	}
	var status HealthStatus
	var firstErr error

	latency, err := e.sessions.Ping(ctx)
	status.SessionLatency = latency
	if err != nil {
		firstErr = sessionStoreError("ping", err)
	} else {
		status.SessionStore = true
	}

	if err := e.users.Ping(ctx); err != nil {
		if firstErr == nil {
			firstErr = credentialStoreError("ping", err)
		}
	} else {
		status.CredentialStore = true
	}
	return status, firstErr
}
