package validate

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signupValues() map[string]string {
	return map[string]string{
		FieldIdentity:       "alice",
		FieldEmail:          "a@x.com",
		FieldSecret:         "pw1",
		FieldSecurityAnswer: "Blue",
	}
}

func requireFieldError(t *testing.T, err error, field string, reason Reason) {
	t.Helper()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "expected *ValidationError, got %v", err)
	assert.Equal(t, field, verr.Field)
	assert.Equal(t, reason, verr.Reason)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestSignupAcceptsValidInput(t *testing.T) {
	out, err := Signup.Validate(signupValues())
	require.NoError(t, err)
	assert.Equal(t, "alice", out[FieldIdentity])
	assert.Equal(t, "blue", out[FieldSecurityAnswer])
}

func TestSignupFirstFailingFieldInOrder(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(map[string]string)
		field  string
		reason Reason
	}{
		{
			name:   "all missing reports identity",
			mutate: func(v map[string]string) { clear(v) },
			field:  FieldIdentity,
			reason: ReasonRequired,
		},
		{
			name: "email and secret missing reports email",
			mutate: func(v map[string]string) {
				v[FieldEmail] = ""
				v[FieldSecret] = ""
			},
			field:  FieldEmail,
			reason: ReasonRequired,
		},
		{
			name:   "secret missing",
			mutate: func(v map[string]string) { v[FieldSecret] = "" },
			field:  FieldSecret,
			reason: ReasonRequired,
		},
		{
			name:   "identity not alphanumeric",
			mutate: func(v map[string]string) { v[FieldIdentity] = "al ice!" },
			field:  FieldIdentity,
			reason: ReasonFormat,
		},
		{
			name:   "identity too long",
			mutate: func(v map[string]string) { v[FieldIdentity] = strings.Repeat("a", 21) },
			field:  FieldIdentity,
			reason: ReasonTooLong,
		},
		{
			name:   "secret over bcrypt limit",
			mutate: func(v map[string]string) { v[FieldSecret] = strings.Repeat("s", SecretMaxBytes+1) },
			field:  FieldSecret,
			reason: ReasonTooLong,
		},
		{
			name:   "email without at sign",
			mutate: func(v map[string]string) { v[FieldEmail] = "not-an-email" },
			field:  FieldEmail,
			reason: ReasonFormat,
		},
		{
			name:   "answer missing",
			mutate: func(v map[string]string) { v[FieldSecurityAnswer] = "   " },
			field:  FieldSecurityAnswer,
			reason: ReasonRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values := signupValues()
			tt.mutate(values)
			_, err := Signup.Validate(values)
			requireFieldError(t, err, tt.field, tt.reason)
		})
	}
}

func TestIdentityAtMaxLengthAccepted(t *testing.T) {
	values := signupValues()
	values[FieldIdentity] = strings.Repeat("a", 20)
	_, err := Signup.Validate(values)
	require.NoError(t, err)
}

func TestByteLimitsFollowStorage(t *testing.T) {
	atLimit := strings.Repeat("é", 121) + "@example.com"
	require.Len(t, atLimit, EmailMaxBytes)

	tests := []struct {
		name  string
		field string
		value string
		ok    bool
	}{
		{"multi-byte email at byte limit", FieldEmail, atLimit, true},
		{"multi-byte email over byte limit", FieldEmail, "é" + atLimit, false},
		{"short multi-byte email over byte limit", FieldEmail, strings.Repeat("é", 150) + "@example.com", false},
		{"answer at byte limit", FieldSecurityAnswer, strings.Repeat("b", SecretMaxBytes), true},
		{"answer over byte limit", FieldSecurityAnswer, strings.Repeat("b", 100), false},
		{"multi-byte answer over byte limit", FieldSecurityAnswer, strings.Repeat("ü", 40), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values := signupValues()
			values[tt.field] = tt.value
			_, err := Signup.Validate(values)
			if tt.ok {
				require.NoError(t, err)
				return
			}
			requireFieldError(t, err, tt.field, ReasonTooLong)

			_, err = RecoveryStart.Validate(map[string]string{
				FieldEmail:          values[FieldEmail],
				FieldSecurityAnswer: values[FieldSecurityAnswer],
			})
			requireFieldError(t, err, tt.field, ReasonTooLong)
		})
	}
}

func TestLoginValidatesBothFields(t *testing.T) {
	_, err := Login.Validate(map[string]string{FieldEmail: "a@x.com"})
	requireFieldError(t, err, FieldSecret, ReasonRequired)

	_, err = Login.Validate(map[string]string{FieldSecret: "pw"})
	requireFieldError(t, err, FieldEmail, ReasonRequired)
}

func TestEmailIsNormalised(t *testing.T) {
	out, err := Login.Validate(map[string]string{FieldEmail: "  A@X.com ", FieldSecret: " pw "})
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", out[FieldEmail])
	assert.Equal(t, " pw ", out[FieldSecret], "secrets are never trimmed")
}

func TestQuizFieldsAreOptional(t *testing.T) {
	out, err := Quiz.Validate(map[string]string{"question2": " b "})
	require.NoError(t, err)
	assert.Equal(t, "", out["question1"])
	assert.Equal(t, "b", out["question2"])

	_, err = Quiz.Validate(map[string]string{"question3": strings.Repeat("q", 201)})
	requireFieldError(t, err, "question3", ReasonTooLong)
}

func TestValidateDropsUndeclaredFields(t *testing.T) {
	out, err := RecoveryComplete.Validate(map[string]string{FieldNewSecret: "n", "role": "admin"})
	require.NoError(t, err)
	_, present := out["role"]
	assert.False(t, present)
}

func TestNewSchemaRejectsBadPattern(t *testing.T) {
	_, err := NewSchema("bad", Field{Name: "x", Pattern: "("})
	assert.Error(t, err)
}

func TestSchemaFieldsOrder(t *testing.T) {
	assert.Equal(t, []string{FieldIdentity, FieldEmail, FieldSecret, FieldSecurityAnswer}, Signup.Fields())
}
