// Package redis stores auth sessions as Redis hashes keyed by session id.
package redis

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/oksasatya/go-ddd-diary/internal/domain/repository"
	"github.com/oksasatya/go-ddd-diary/internal/infrastructure/authbackend"
)

const keyPrefix = "diary:session:"

type SessionStore struct {
	rdb *goredis.Client
}

func NewSessionStore(rdb *goredis.Client) *SessionStore {
	return &SessionStore{rdb: rdb}
}

var _ authbackend.SessionStore = (*SessionStore)(nil)

func sessionKey(id string) string { return keyPrefix + id }

// Save writes the record and resets its expiry in one round trip.
func (s *SessionStore) Save(ctx context.Context, rec authbackend.SessionRecord, ttl time.Duration) error {
	key := sessionKey(rec.ID)
	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, key, map[string]any{
		"sid":             rec.ID,
		"user_id":         rec.UserID,
		"email":           rec.Email,
		"refresh_id":      rec.RefreshID,
		"prev_refresh_id": rec.PrevRefreshID,
		"rotated_at":      formatTime(rec.RotatedAt),
		"created_at":      formatTime(rec.CreatedAt),
		"updated_at":      formatTime(time.Now()),
	})
	pipe.Expire(ctx, key, ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *SessionStore) Get(ctx context.Context, id string) (*authbackend.SessionRecord, error) {
	data, err := s.rdb.HGetAll(ctx, sessionKey(id)).Result()
	if err != nil {
		return nil, err
	}
	if len(data) == 0 || data["sid"] != id {
		return nil, repository.ErrNotFound
	}
	rec := &authbackend.SessionRecord{
		ID:            id,
		UserID:        data["user_id"],
		Email:         data["email"],
		RefreshID:     data["refresh_id"],
		PrevRefreshID: data["prev_refresh_id"],
		RotatedAt:     parseTime(data["rotated_at"]),
		CreatedAt:     parseTime(data["created_at"]),
	}
	return rec, nil
}

// KEYS[1] session hash. ARGV: from, to, rotated_at, ttl ms. Returns 1 when
// refresh_id was from and is now to.
var rotateScript = goredis.NewScript(`
if redis.call("HGET", KEYS[1], "refresh_id") ~= ARGV[1] then
  return 0
end
redis.call("HSET", KEYS[1], "refresh_id", ARGV[2], "prev_refresh_id", ARGV[1], "rotated_at", ARGV[3], "updated_at", ARGV[3])
redis.call("PEXPIRE", KEYS[1], ARGV[4])
return 1
`)

func (s *SessionStore) Rotate(ctx context.Context, id, from, to string, at time.Time, ttl time.Duration) (bool, error) {
	n, err := rotateScript.Run(ctx, s.rdb, []string{sessionKey(id)}, from, to, formatTime(at), ttl.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(v string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return t
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	return s.rdb.Del(ctx, sessionKey(id)).Err()
}
