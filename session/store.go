package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps every Redis transport or server failure.
var ErrRedisUnavailable = errors.New("redis unavailable")

// ErrNotFound is returned when no live record exists for a token.
var ErrNotFound = errors.New("session not found")

const deleteSessionScript = `
local existed = redis.call("DEL", KEYS[1])
redis.call("SREM", KEYS[2], ARGV[1])
return existed
`

var deleteSessionLua = redis.NewScript(deleteSessionScript)

// Store is a Redis-backed session store. Records are keyed by the SHA-256
// of the session token and expire through Redis TTLs. Authenticated
// sessions are also indexed per user so they can be revoked together.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// NewStore creates a session [Store]. prefix namespaces every key.
func NewStore(rdb redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "gs"
	}
	return &Store{redis: rdb, prefix: prefix}
}

func (s *Store) key(tokenHash string) string {
	return s.prefix + ":s:" + tokenHash
}

func (s *Store) userKey(userID string) string {
	return s.prefix + ":u:" + userID
}

// Save writes the session with the given TTL in one MULTI/EXEC. For an
// authenticated session the user index is updated in the same transaction.
func (s *Store) Save(ctx context.Context, sess *Session, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("session ttl must be > 0, got %s", ttl)
	}
	data, err := Encode(sess)
	if err != nil {
		return err
	}

	id := hashToken(sess.token)
	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(id), data, ttl)
		if auth, ok := sess.state.(Authenticated); ok {
			userKey := s.userKey(auth.UserID)
			pipe.SAdd(ctx, userKey, id)
			pipe.Expire(ctx, userKey, ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sess.stored = true
	sess.dirty = false
	return nil
}

// Get loads the session for token. A missing or expired record returns
// ErrNotFound; an undecodable record is deleted and also reported as
// ErrNotFound so the caller starts over with a fresh session.
func (s *Store) Get(ctx context.Context, token string) (*Session, error) {
	id := hashToken(token)
	data, err := s.redis.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sess, err := Decode(data)
	if err != nil {
		if delErr := s.redis.Del(ctx, s.key(id)).Err(); delErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, delErr)
		}
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}

	sess.token = token
	sess.stored = true
	return sess, nil
}

// Delete removes the record for token and its user index entry. Deleting a
// missing record is not an error.
func (s *Store) Delete(ctx context.Context, token string) error {
	id := hashToken(token)
	key := s.key(id)

	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	var userID string
	if sess, decErr := Decode(data); decErr == nil {
		if auth, ok := sess.state.(Authenticated); ok {
			userID = auth.UserID
		}
	}

	if userID == "" {
		err = s.redis.Del(ctx, key).Err()
	} else {
		err = deleteSessionLua.Run(ctx, s.redis, []string{key, s.userKey(userID)}, id).Err()
	}
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// DeleteAllForUser removes every indexed session of userID and returns how
// many records existed.
//
// Not fully atomic: a session saved between the SMEMBERS read and the
// delete survives until its own TTL.
func (s *Store) DeleteAllForUser(ctx context.Context, userID string) (int, error) {
	userKey := s.userKey(userID)
	ids, err := s.redis.SMembers(ctx, userKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, s.key(id))
	}

	var deleted *redis.IntCmd
	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(keys) > 0 {
			deleted = pipe.Del(ctx, keys...)
		}
		pipe.Del(ctx, userKey)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if deleted == nil {
		return 0, nil
	}
	return int(deleted.Val()), nil
}

// ActiveSessionCount returns the number of indexed sessions for a user.
// Entries whose record already expired are counted until the index itself
// expires.
func (s *Store) ActiveSessionCount(ctx context.Context, userID string) (int, error) {
	n, err := s.redis.SCard(ctx, s.userKey(userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return int(n), nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}
