//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/store/postgres"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("gosession"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return connStr
}

func TestMigrateAndStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	connStr := startPostgres(t)

	migrator, err := postgres.NewMigrator(connStr)
	require.NoError(t, err)
	defer migrator.Close()

	require.NoError(t, migrator.Up())
	version, dirty, err := migrator.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)
	require.NoError(t, migrator.Up(), "second Up must be a no-op")

	store, closeFn, err := postgres.Open(ctx, connStr)
	require.NoError(t, err)
	defer closeFn()

	id := uuid.NewString()
	user := goSession.User{
		ID:                 id,
		Identity:           "alice",
		Email:              "alice@example.com",
		PasswordHash:       "hash",
		SecurityAnswerHash: "answer",
	}
	require.NoError(t, store.Insert(ctx, user))

	dup := user
	dup.ID = uuid.NewString()
	dup.Identity = "bob"
	assert.ErrorIs(t, store.Insert(ctx, dup), goSession.ErrDuplicateEmail)

	dup.Email = "bob@example.com"
	dup.Identity = "alice"
	assert.ErrorIs(t, store.Insert(ctx, dup), goSession.ErrDuplicateIdentity)

	got, err := store.FindByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, id, got[0].ID)
	assert.Equal(t, goSession.DefaultRole, got[0].Role)

	updatedID, err := store.UpdatePasswordHash(ctx, "alice@example.com", "newhash")
	require.NoError(t, err)
	assert.Equal(t, id, updatedID)

	require.NoError(t, store.UpdateQuizAnswers(ctx, id, map[string]string{"question1": "Paris"}))
	byID, err := store.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "newhash", byID.PasswordHash)
	assert.Equal(t, "Paris", byID.QuizAnswers["question1"])

	require.NoError(t, migrator.Down())
	version, _, err = migrator.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(0), version)
}
