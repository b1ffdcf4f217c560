package goSession

import (
	"errors"
	"fmt"

	"github.com/MrEthical07/goSession/validate"
	"github.com/samber/oops"
)

// ValidationError names the first malformed input field. Match it with
// errors.As, or match any validation failure with errors.Is(err, ErrValidation).
type ValidationError = validate.ValidationError

var (
	// ErrValidation matches every *ValidationError.
	ErrValidation = validate.ErrInvalid
	// ErrDuplicateEmail is returned by Signup when the email is taken.
	ErrDuplicateEmail = errors.New("email already in use")
	// ErrDuplicateIdentity is returned by Signup when the identity is taken.
	ErrDuplicateIdentity = errors.New("identity already in use")
	// ErrUserNotFound is returned by Login when zero or several accounts
	// match the email.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidCredentials is returned by Login on a secret mismatch.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrRecoveryFailed is returned by RecoveryStart when the email and
	// answer do not identify an account. It never says which part was wrong.
	ErrRecoveryFailed = errors.New("recovery failed")
	// ErrNoRecoveryInProgress is returned by RecoveryComplete when the
	// session has no staged recovery.
	ErrNoRecoveryInProgress = errors.New("no recovery in progress")
	// ErrSecretMismatch is returned by RecoveryComplete when the new secret
	// and its confirmation differ.
	ErrSecretMismatch = errors.New("secrets do not match")
	// ErrUnauthorized is returned by operations that require an
	// authenticated session.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrEngineNotReady is returned when a nil or unbuilt Engine is used.
	ErrEngineNotReady = errors.New("engine not initialized")

	ErrCredentialStore = errors.New("credential store unavailable")
	ErrSessionStore    = errors.New("session store unavailable")
	ErrHashing         = errors.New("secret hashing failed")
)

// IsBackendError reports whether err is an infrastructure failure (store or
// hashing) rather than a business or validation outcome. Such errors are not
// recoverable by the caller and map to a 5xx response.
func IsBackendError(err error) bool {
	return errors.Is(err, ErrCredentialStore) ||
		errors.Is(err, ErrSessionStore) ||
		errors.Is(err, ErrHashing) ||
		errors.Is(err, ErrEngineNotReady)
}

func backendError(class error, code, op string, err error) error {
	if err == nil {
		return nil
	}
	return oops.
		Code(code).
		With("operation", op).
		Wrap(fmt.Errorf("%w: %w", class, err))
}

func credentialStoreError(op string, err error) error {
	return backendError(ErrCredentialStore, "STORE_UNAVAILABLE", op, err)
}

func sessionStoreError(op string, err error) error {
	return backendError(ErrSessionStore, "SESSION_UNAVAILABLE", op, err)
}

func hashingError(op string, err error) error {
	return backendError(ErrHashing, "HASH_FAILED", op, err)
}
