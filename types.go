package goSession

import (
	"context"
	"time"
)

// DefaultRole is assigned to new accounts.
const DefaultRole = "member"

// User is a credential record. Hash fields are never exposed through
// Profile.
type User struct {
	ID                 string
	Identity           string
	Email              string
	PasswordHash       string
	SecurityAnswerHash string
	Role               string
	QuizAnswers        map[string]string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Profile is the public view of a User.
type Profile struct {
	ID          string
	Identity    string
	Email       string
	Role        string
	QuizAnswers map[string]string
	CreatedAt   time.Time
}

func (u User) profile() Profile {
	return Profile{
		ID:          u.ID,
		Identity:    u.Identity,
		Email:       u.Email,
		Role:        u.Role,
		QuizAnswers: copyAnswers(u.QuizAnswers),
		CreatedAt:   u.CreatedAt,
	}
}

// CredentialStore persists user records. Implementations must be safe for
// concurrent use and perform each method as a single atomic operation.
//
// Lookups return every matching record; callers decide what more than one
// match means. Insert reports unique-constraint violations as
// ErrDuplicateEmail or ErrDuplicateIdentity. Updates that match no record
// return ErrUserNotFound.
type CredentialStore interface {
	FindByEmail(ctx context.Context, email string) ([]User, error)
	FindByIdentity(ctx context.Context, identity string) ([]User, error)
	FindByID(ctx context.Context, id string) (User, error)
	Insert(ctx context.Context, u User) error
	// UpdatePasswordHash replaces the secret hash of the account with email
	// and returns its ID.
	UpdatePasswordHash(ctx context.Context, email, hash string) (string, error)
	UpdateQuizAnswers(ctx context.Context, id string, answers map[string]string) error
	Ping(ctx context.Context) error
}

// SignupRequest carries raw signup form values.
type SignupRequest struct {
	Identity       string
	Email          string
	Secret         string
	SecurityAnswer string
}

// Decision is the outcome of the access gate.
type Decision uint8

const (
	Deny Decision = iota
	Allow
)

func (d Decision) String() string {
	if d == Allow {
		return "allow"
	}
	return "deny"
}
