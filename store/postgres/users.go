package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
)

const (
	emailConstraint    = "users_email_key"
	identityConstraint = "users_identity_key"

	userColumns = `id::text, identity, email, password_hash, security_answer_hash, role, quiz_answers, created_at, updated_at`
)

// poolIface is the subset of *pgxpool.Pool the store uses. pgxmock
// implements it for unit tests.
type poolIface interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
}

// UserStore implements goSession.CredentialStore.
type UserStore struct {
	pool poolIface
}

var _ goSession.CredentialStore = (*UserStore)(nil)

// NewUserStore wraps an existing pool.
func NewUserStore(pool poolIface) *UserStore {
	return &UserStore{pool: pool}
}

// Open connects a pool to databaseURL and verifies it with a ping. The
// returned close func releases the pool.
func Open(ctx context.Context, databaseURL string) (*UserStore, func(), error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, nil, oops.Code("DB_CONNECT_FAILED").With("operation", "create pool").Wrap(err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, oops.Code("DB_CONNECT_FAILED").With("operation", "ping").Wrap(err)
	}
	return NewUserStore(pool), pool.Close, nil
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) ([]goSession.User, error) {
	return s.findMany(ctx, "find users by email",
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (s *UserStore) FindByIdentity(ctx context.Context, identity string) ([]goSession.User, error) {
	return s.findMany(ctx, "find users by identity",
		`SELECT `+userColumns+` FROM users WHERE identity = $1`, identity)
}

// FindByID returns ErrUserNotFound for unknown and non-UUID ids.
func (s *UserStore) FindByID(ctx context.Context, id string) (goSession.User, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return goSession.User{}, goSession.ErrUserNotFound
	}

	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, uid)
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return goSession.User{}, goSession.ErrUserNotFound
	}
	if err != nil {
		return goSession.User{}, oops.With("operation", "find user by id").With("user_id", id).Wrap(err)
	}
	return u, nil
}

func (s *UserStore) Insert(ctx context.Context, u goSession.User) error {
	uid, err := uuid.Parse(u.ID)
	if err != nil {
		return oops.Code("INVALID_USER_ID").With("user_id", u.ID).Wrap(err)
	}
	answers, err := marshalAnswers(u.QuizAnswers)
	if err != nil {
		return err
	}
	role := u.Role
	if role == "" {
		role = goSession.DefaultRole
	}
	created := u.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	updated := u.UpdatedAt
	if updated.IsZero() {
		updated = created
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO users (id, identity, email, password_hash, security_answer_hash, role, quiz_answers, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		uid, u.Identity, u.Email, u.PasswordHash, u.SecurityAnswerHash, role, answers, created, updated)
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		switch pgErr.ConstraintName {
		case emailConstraint:
			return goSession.ErrDuplicateEmail
		case identityConstraint:
			return goSession.ErrDuplicateIdentity
		}
	}
	return oops.With("operation", "insert user").Wrap(err)
}

// UpdatePasswordHash targets the account by email, the key recovery knows.
func (s *UserStore) UpdatePasswordHash(ctx context.Context, email, hash string) (string, error) {
	var id string
	err := s.pool.QueryRow(ctx,
		`UPDATE users SET password_hash = $2, updated_at = now() WHERE email = $1 RETURNING id::text`,
		email, hash).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", goSession.ErrUserNotFound
	}
	if err != nil {
		return "", oops.With("operation", "update password hash").Wrap(err)
	}
	return id, nil
}

func (s *UserStore) UpdateQuizAnswers(ctx context.Context, id string, answers map[string]string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return goSession.ErrUserNotFound
	}
	data, err := marshalAnswers(answers)
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET quiz_answers = $2, updated_at = now() WHERE id = $1`,
		uid, data)
	if err != nil {
		return oops.With("operation", "update quiz answers").With("user_id", id).Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return goSession.ErrUserNotFound
	}
	return nil
}

func (s *UserStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return oops.With("operation", "ping").Wrap(err)
	}
	return nil
}

func (s *UserStore) findMany(ctx context.Context, op, query string, arg string) ([]goSession.User, error) {
	rows, err := s.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, oops.With("operation", op).Wrap(err)
	}
	defer rows.Close()

	var users []goSession.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, oops.With("operation", op).Wrap(err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.With("operation", op).Wrap(err)
	}
	return users, nil
}

func scanUser(row pgx.Row) (goSession.User, error) {
	var (
		u       goSession.User
		answers []byte
	)
	err := row.Scan(
		&u.ID,
		&u.Identity,
		&u.Email,
		&u.PasswordHash,
		&u.SecurityAnswerHash,
		&u.Role,
		&answers,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return goSession.User{}, err
	}

	u.QuizAnswers = map[string]string{}
	if len(answers) > 0 {
		if err := json.Unmarshal(answers, &u.QuizAnswers); err != nil {
			return goSession.User{}, oops.Code("CORRUPT_QUIZ_ANSWERS").With("user_id", u.ID).Wrap(err)
		}
	}
	return u, nil
}

func marshalAnswers(answers map[string]string) (string, error) {
	if answers == nil {
		answers = map[string]string{}
	}
	data, err := json.Marshal(answers)
	if err != nil {
		return "", oops.With("operation", "encode quiz answers").Wrap(err)
	}
	return string(data), nil
}
