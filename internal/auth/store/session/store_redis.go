package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"schoolbridge/internal/auth/models"
	id "schoolbridge/pkg/domain"
	"schoolbridge/pkg/platform/sentinel"
)

const (
	// Redis key prefixes for session data
	sessionKeyPrefix     = "session:"
	sessionHashKeyPrefix = "session_hash:"
	userSessionKeyPrefix = "user_sessions:"
)

// rotateScript swaps token_hash only when it still equals ARGV[1].
// Returns 1 on success, 0 on a stale hash and -1 when the session is gone.
var rotateScript = redis.NewScript(`
local current = redis.call('HGET', KEYS[1], 'token_hash')
if not current then
	return -1
end
if current ~= ARGV[1] then
	return 0
end
redis.call('HSET', KEYS[1], 'token_hash', ARGV[2], 'last_used_at', ARGV[3], 'expires_at', ARGV[4])
redis.call('PEXPIREAT', KEYS[1], ARGV[5])
redis.call('DEL', KEYS[2])
redis.call('SET', KEYS[3], ARGV[6], 'PXAT', ARGV[5])
return 1
`)

// RedisStore keeps each session as a hash with a reverse index from token hash to
// session ID and a per-user set. Keys expire with the session.
type RedisStore struct {
	client *redis.Client
}

// NewRedis constructs a Redis-backed session store.
func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func sessionKey(sid id.SessionID) string { return sessionKeyPrefix + sid.String() }
func hashKey(hash string) string          { return sessionHashKeyPrefix + hash }
func userKey(uid id.UserID) string        { return userSessionKeyPrefix + uid.String() }

func (s *RedisStore) Create(ctx context.Context, session *models.Session) error {
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("create session: %w", sentinel.ErrExpired)
	}
	ok, err := s.client.SetNX(ctx, hashKey(session.TokenHash), session.ID.String(), ttl).Result()
	if err != nil {
		return fmt.Errorf("create session index: %w", err)
	}
	if !ok {
		return fmt.Errorf("create session: %w", &sentinel.ConflictError{Field: "token"})
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, sessionKey(session.ID), sessionFields(session))
		pipe.PExpireAt(ctx, sessionKey(session.ID), session.ExpiresAt)
		pipe.SAdd(ctx, userKey(session.UserID), session.ID.String())
		return nil
	})
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (s *RedisStore) FindByID(ctx context.Context, sessionID id.SessionID) (*models.Session, error) {
	fields, err := s.client.HGetAll(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
	}
	return sessionFromFields(fields)
}

func (s *RedisStore) Rotate(ctx context.Context, sessionID id.SessionID, oldHash, newHash string, usedAt, expiresAt time.Time) error {
	res, err := rotateScript.Run(ctx, s.client,
		[]string{sessionKey(sessionID), hashKey(oldHash), hashKey(newHash)},
		oldHash, newHash, usedAt.UnixNano(), expiresAt.UnixNano(), expiresAt.UnixMilli(), sessionID.String(),
	).Int()
	if err != nil {
		return fmt.Errorf("rotate session: %w", err)
	}
	switch res {
	case 1:
		return nil
	case 0:
		return fmt.Errorf("rotate session: %w", sentinel.ErrStale)
	default:
		return fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
	}
}

func (s *RedisStore) DeleteByTokenHash(ctx context.Context, hash string) error {
	raw, err := s.client.Get(ctx, hashKey(hash)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
		}
		return fmt.Errorf("lookup session by hash: %w", err)
	}
	sid, err := uuid.Parse(raw)
	if err != nil {
		return fmt.Errorf("decode session id: %w", err)
	}
	session, err := s.FindByID(ctx, id.SessionID(sid))
	if err != nil {
		return err
	}
	return s.remove(ctx, session)
}

func (s *RedisStore) DeleteByUser(ctx context.Context, userID id.UserID) (int, error) {
	sessions, err := s.ListByUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	for _, session := range sessions {
		if err := s.remove(ctx, session); err != nil {
			return 0, err
		}
	}
	if err := s.client.Del(ctx, userKey(userID)).Err(); err != nil {
		return 0, fmt.Errorf("delete user session index: %w", err)
	}
	return len(sessions), nil
}

// ListByUser loads the user's sessions and prunes index entries whose hash already expired.
func (s *RedisStore) ListByUser(ctx context.Context, userID id.UserID) ([]*models.Session, error) {
	members, err := s.client.SMembers(ctx, userKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list user sessions: %w", err)
	}
	out := make([]*models.Session, 0, len(members))
	var stale []any
	for _, member := range members {
		sid, err := uuid.Parse(member)
		if err != nil {
			stale = append(stale, member)
			continue
		}
		session, err := s.FindByID(ctx, id.SessionID(sid))
		if errors.Is(err, sentinel.ErrNotFound) {
			stale = append(stale, member)
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, session)
	}
	if len(stale) > 0 {
		if err := s.client.SRem(ctx, userKey(userID), stale...).Err(); err != nil {
			return nil, fmt.Errorf("prune user sessions: %w", err)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastUsedAt.After(out[j].LastUsedAt) })
	return out, nil
}

// DeleteExpired is a no-op: session keys carry PEXPIREAT and vanish on their own.
func (s *RedisStore) DeleteExpired(_ context.Context, _ time.Time) (int, error) {
	return 0, nil
}

func (s *RedisStore) remove(ctx context.Context, session *models.Session) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, sessionKey(session.ID), hashKey(session.TokenHash))
		pipe.SRem(ctx, userKey(session.UserID), session.ID.String())
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func sessionFields(s *models.Session) map[string]any {
	return map[string]any{
		"id":           s.ID.String(),
		"user_id":      s.UserID.String(),
		"token_hash":   s.TokenHash,
		"device_name":  s.DeviceName,
		"created_at":   s.CreatedAt.UnixNano(),
		"last_used_at": s.LastUsedAt.UnixNano(),
		"expires_at":   s.ExpiresAt.UnixNano(),
	}
}

func sessionFromFields(f map[string]string) (*models.Session, error) {
	sid, err := uuid.Parse(f["id"])
	if err != nil {
		return nil, fmt.Errorf("decode session id: %w", err)
	}
	uid, err := uuid.Parse(f["user_id"])
	if err != nil {
		return nil, fmt.Errorf("decode user id: %w", err)
	}
	created, err := parseNano(f["created_at"])
	if err != nil {
		return nil, err
	}
	lastUsed, err := parseNano(f["last_used_at"])
	if err != nil {
		return nil, err
	}
	expires, err := parseNano(f["expires_at"])
	if err != nil {
		return nil, err
	}
	return &models.Session{
		ID:         id.SessionID(sid),
		UserID:     id.UserID(uid),
		TokenHash:  f["token_hash"],
		DeviceName: f["device_name"],
		CreatedAt:  created,
		LastUsedAt: lastUsed,
		ExpiresAt:  expires,
	}, nil
}

func parseNano(v string) (time.Time, error) {
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("decode timestamp: %w", err)
	}
	return time.Unix(0, n).UTC(), nil
}
