package goSession

import (
	"context"
	"sync"
	"time"
)

// MemoryCredentialStore is an in-process CredentialStore for development
// servers and tests. Data is lost on restart.
type MemoryCredentialStore struct {
	mu    sync.RWMutex
	users []User
	now   func() time.Time
}

func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{now: time.Now}
}

func (m *MemoryCredentialStore) FindByEmail(_ context.Context, email string) ([]User, error) {
	return m.find(func(u *User) bool { return u.Email == email }), nil
}

func (m *MemoryCredentialStore) FindByIdentity(_ context.Context, identity string) ([]User, error) {
	return m.find(func(u *User) bool { return u.Identity == identity }), nil
}

func (m *MemoryCredentialStore) FindByID(_ context.Context, id string) (User, error) {
	found := m.find(func(u *User) bool { return u.ID == id })
	if len(found) == 0 {
		return User{}, ErrUserNotFound
	}
	return found[0], nil
}

// Insert enforces the same uniqueness the SQL schema does.
func (m *MemoryCredentialStore) Insert(_ context.Context, u User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.users {
		if m.users[i].Email == u.Email {
			return ErrDuplicateEmail
		}
		if m.users[i].Identity == u.Identity {
			return ErrDuplicateIdentity
		}
	}
	m.users = append(m.users, copyUser(u))
	return nil
}

func (m *MemoryCredentialStore) UpdatePasswordHash(_ context.Context, email, hash string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.users {
		if m.users[i].Email == email {
			m.users[i].PasswordHash = hash
			m.users[i].UpdatedAt = m.now()
			return m.users[i].ID, nil
		}
	}
	return "", ErrUserNotFound
}

func (m *MemoryCredentialStore) UpdateQuizAnswers(_ context.Context, id string, answers map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.users {
		if m.users[i].ID == id {
			m.users[i].QuizAnswers = copyAnswers(answers)
			m.users[i].UpdatedAt = m.now()
			return nil
		}
	}
	return ErrUserNotFound
}

func (m *MemoryCredentialStore) Ping(context.Context) error {
	return nil
}

func (m *MemoryCredentialStore) find(match func(*User) bool) []User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []User
	for i := range m.users {
		if match(&m.users[i]) {
			out = append(out, copyUser(m.users[i]))
		}
	}
	return out
}

func copyUser(u User) User {
	u.QuizAnswers = copyAnswers(u.QuizAnswers)
	return u
}

func copyAnswers(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
