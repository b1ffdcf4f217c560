package internaldefs

import (
	goSession "github.com/MrEthical07/goSession"
)

// CounterDef names one engine counter for exporters.
type CounterDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for exporters.
type HistogramDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: goSession.MetricSignupSuccess, Name: "gosession_signup_success_total", Help: "Accounts created."},
	{ID: goSession.MetricSignupDuplicate, Name: "gosession_signup_duplicate_total", Help: "Signups rejected for a taken email or identity."},
	{ID: goSession.MetricSignupFailure, Name: "gosession_signup_failure_total", Help: "Signups rejected by input validation."},
	{ID: goSession.MetricLoginSuccess, Name: "gosession_login_success_total", Help: "Successful logins."},
	{ID: goSession.MetricLoginFailure, Name: "gosession_login_failure_total", Help: "Failed logins."},
	{ID: goSession.MetricRecoveryStartSuccess, Name: "gosession_recovery_start_success_total", Help: "Recoveries staged after a correct security answer."},
	{ID: goSession.MetricRecoveryStartFailure, Name: "gosession_recovery_start_failure_total", Help: "Rejected recovery attempts."},
	{ID: goSession.MetricRecoveryCompleteSuccess, Name: "gosession_recovery_complete_success_total", Help: "Secrets changed through recovery."},
	{ID: goSession.MetricRecoveryCompleteFailure, Name: "gosession_recovery_complete_failure_total", Help: "Rejected recovery completions."},
	{ID: goSession.MetricLogout, Name: "gosession_logout_total", Help: "Logouts."},
	{ID: goSession.MetricSessionCreated, Name: "gosession_session_created_total", Help: "Sessions authenticated."},
	{ID: goSession.MetricSessionInvalidated, Name: "gosession_session_invalidated_total", Help: "Session records deleted by logout or recovery."},
	{ID: goSession.MetricAuthorizeAllow, Name: "gosession_authorize_allow_total", Help: "Access gate decisions that allowed the request."},
	{ID: goSession.MetricAuthorizeDeny, Name: "gosession_authorize_deny_total", Help: "Access gate decisions that denied the request."},
	{ID: goSession.MetricPasswordUpgrade, Name: "gosession_password_upgrade_total", Help: "Secret hashes re-encoded with current parameters on login."},
	{ID: goSession.MetricQuizSaved, Name: "gosession_quiz_saved_total", Help: "Quiz submissions stored."},
}

var HistogramDefs = []HistogramDef{
	{ID: goSession.MetricLoginLatency, Name: "gosession_login_latency_seconds", Help: "Login latency, including secret verification."},
}

// BucketCount is the number of histogram buckets including +Inf.
const BucketCount = len(goSession.HistogramBounds) + 1

// NormalizeBuckets pads or truncates raw to BucketCount entries.
func NormalizeBuckets(raw []uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into "less or equal" counts.
func CumulativeBuckets(raw [BucketCount]uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
