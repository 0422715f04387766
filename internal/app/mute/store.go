/*
Package mute tracks temporary and permanent chat mutes.

A mute is represented purely as presence or absence of the key mute:<userId>
in an expiring key-value store (Redis): a key with a TTL is a temporary mute,
a key without expiry is permanent, no key means not muted. Re-muting
overwrites, so at most one mute record exists per user.
*/
package mute

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Permanent is the sentinel CheckMuted returns for a mute without expiry.
const Permanent = -1

// Cmds is the slice of the Redis API the store needs. *redis.Client
// satisfies it; tests supply a fake.
type Cmds interface {
	TTL(ctx context.Context, key string) *redis.DurationCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Store wraps the expiring key-value store holding mute records.
type Store struct {
	rdb Cmds
}

// NewStore creates a Store over a Redis client.
func NewStore(rdb Cmds) *Store {
	return &Store{rdb: rdb}
}

func muteKey(userID int64) string {
	return fmt.Sprintf("mute:%d", userID)
}

// CheckMuted returns the remaining mute time of a user in seconds: Permanent
// (-1) for a mute without expiry, a positive value for a temporary mute, and
// 0 when the user is not muted. Store failures propagate; callers must not
// treat them as "not muted".
func (s *Store) CheckMuted(ctx context.Context, userID int64) (int64, error) {
	ttl, err := s.rdb.TTL(ctx, muteKey(userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("mute ttl for user %d: %w", userID, err)
	}

	// go-redis passes the -1 (no expiry) and -2 (no key) replies through
	// as raw negative durations.
	switch {
	case ttl == -2:
		return 0, nil
	case ttl < 0:
		return Permanent, nil
	}

	seconds := int64(ttl / time.Second)
	if seconds == 0 && ttl > 0 {
		seconds = 1
	}
	return seconds, nil
}

// Mute mutes a user for the given number of minutes, or permanently when
// minutes is 0. An existing mute record is overwritten.
func (s *Store) Mute(ctx context.Context, userID int64, minutes int) error {
	var expiry time.Duration
	if minutes > 0 {
		expiry = time.Duration(minutes) * time.Minute
	}

	if err := s.rdb.Set(ctx, muteKey(userID), "", expiry).Err(); err != nil {
		return fmt.Errorf("mute user %d: %w", userID, err)
	}
	return nil
}

// Unmute removes a user's mute record. It reports whether a record was
// actually removed; false means the user was not muted.
func (s *Store) Unmute(ctx context.Context, userID int64) (bool, error) {
	deleted, err := s.rdb.Del(ctx, muteKey(userID)).Result()
	if err != nil {
		return false, fmt.Errorf("unmute user %d: %w", userID, err)
	}
	return deleted == 1, nil
}
