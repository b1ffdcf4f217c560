package session

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newSessionStoreTest(t *testing.T) (*Store, *miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return NewStore(rdb, "gs"), mr, rdb
}

func authenticatedSession(t *testing.T, userID string) *Session {
	t.Helper()
	now := time.Now()
	sess, err := New(now)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	sess.Transition(Authenticated{
		UserID:    userID,
		Identity:  "alice",
		Email:     "a@x.com",
		ExpiresAt: now.Add(2 * time.Hour),
	})
	return sess
}

func TestSaveAndGetRoundTrip(t *testing.T) {
	store, _, _ := newSessionStoreTest(t)
	ctx := context.Background()
	sess := authenticatedSession(t, "u-1")

	if err := store.Save(ctx, sess, time.Hour); err != nil {
		t.Fatalf("save: %v", err)
	}
	if sess.Dirty() || !sess.Stored() {
		t.Fatalf("expected clean stored handle, dirty=%v stored=%v", sess.Dirty(), sess.Stored())
	}

	got, err := store.Get(ctx, sess.Token())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	auth, ok := got.Authenticated()
	if !ok {
		t.Fatalf("expected authenticated state, got %v", got.State().Kind())
	}
	want, _ := sess.Authenticated()
	if auth.UserID != want.UserID || auth.Email != want.Email || auth.Identity != want.Identity {
		t.Fatalf("state mismatch: got %+v want %+v", auth, want)
	}
	if auth.ExpiresAt.UnixMilli() != want.ExpiresAt.UnixMilli() {
		t.Fatalf("expiry mismatch: got %v want %v", auth.ExpiresAt, want.ExpiresAt)
	}
	if got.Token() != sess.Token() {
		t.Fatal("loaded session must carry the lookup token")
	}
}

func TestRawTokenNeverStored(t *testing.T) {
	store, mr, _ := newSessionStoreTest(t)
	sess := authenticatedSession(t, "u-1")
	if err := store.Save(context.Background(), sess, time.Hour); err != nil {
		t.Fatalf("save: %v", err)
	}

	keys := mr.Keys()
	if len(keys) == 0 {
		t.Fatal("expected stored keys")
	}
	for _, k := range keys {
		if strings.Contains(k, sess.Token()) {
			t.Fatalf("raw token leaked into key %q", k)
		}
	}
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	store, _, _ := newSessionStoreTest(t)
	token, _ := NewToken()

	_, err := store.Get(context.Background(), token)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetAfterTTLReturnsNotFound(t *testing.T) {
	store, mr, _ := newSessionStoreTest(t)
	ctx := context.Background()
	sess := authenticatedSession(t, "u-1")
	if err := store.Save(ctx, sess, time.Minute); err != nil {
		t.Fatalf("save: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	if _, err := store.Get(ctx, sess.Token()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after ttl, got %v", err)
	}
}

func TestGetCorruptRecordIsDropped(t *testing.T) {
	store, mr, rdb := newSessionStoreTest(t)
	ctx := context.Background()
	token, _ := NewToken()
	key := store.key(hashToken(token))
	if err := rdb.Set(ctx, key, []byte{9, 9}, time.Hour).Err(); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if _, err := store.Get(ctx, token); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for corrupt record, got %v", err)
	}
	if mr.Exists(key) {
		t.Fatal("corrupt record should be deleted")
	}
}

func TestDeleteIsIdempotentAndCleansIndex(t *testing.T) {
	store, _, rdb := newSessionStoreTest(t)
	ctx := context.Background()
	sess := authenticatedSession(t, "u-1")
	if err := store.Save(ctx, sess, time.Hour); err != nil {
		t.Fatalf("save: %v", err)
	}

	if err := store.Delete(ctx, sess.Token()); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	if err := store.Delete(ctx, sess.Token()); err != nil {
		t.Fatalf("second delete: %v", err)
	}

	if _, err := store.Get(ctx, sess.Token()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected deleted session to be gone, got %v", err)
	}
	members, err := rdb.SMembers(ctx, store.userKey("u-1")).Result()
	if err != nil {
		t.Fatalf("smembers: %v", err)
	}
	if len(members) != 0 {
		t.Fatalf("expected empty user index, got %v", members)
	}
}

func TestDeleteAllForUser(t *testing.T) {
	store, _, _ := newSessionStoreTest(t)
	ctx := context.Background()

	a := authenticatedSession(t, "u-1")
	b := authenticatedSession(t, "u-1")
	other := authenticatedSession(t, "u-2")
	for _, s := range []*Session{a, b, other} {
		if err := store.Save(ctx, s, time.Hour); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	count, err := store.ActiveSessionCount(ctx, "u-1")
	if err != nil || count != 2 {
		t.Fatalf("expected 2 active sessions, got %d (%v)", count, err)
	}

	n, err := store.DeleteAllForUser(ctx, "u-1")
	if err != nil {
		t.Fatalf("delete all: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 deleted, got %d", n)
	}

	for _, s := range []*Session{a, b} {
		if _, err := store.Get(ctx, s.Token()); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected revoked session, got %v", err)
		}
	}
	if _, err := store.Get(ctx, other.Token()); err != nil {
		t.Fatalf("other user's session must survive: %v", err)
	}
}

func TestSaveRejectsNonPositiveTTL(t *testing.T) {
	store, _, _ := newSessionStoreTest(t)
	sess := authenticatedSession(t, "u-1")
	if err := store.Save(context.Background(), sess, 0); err == nil {
		t.Fatal("expected error for zero ttl")
	}
}

func TestRedisDownIsWrapped(t *testing.T) {
	store, mr, _ := newSessionStoreTest(t)
	mr.Close()

	sess := authenticatedSession(t, "u-1")
	if err := store.Save(context.Background(), sess, time.Hour); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
	if _, err := store.Get(context.Background(), sess.Token()); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
	if _, err := store.Ping(context.Background()); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable from ping, got %v", err)
	}
}
