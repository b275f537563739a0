package refreshtokens

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	tokenKeyPrefix = "refresh_token:"
	userKeyPrefix  = "refresh_tokens:user:"
)

// RedisRepository keeps each record in a hash that expires with the token,
// plus a per-user set of record ids used by DeleteByUser. Set members whose
// hash has already expired are pruned by DeleteExpired.
type RedisRepository struct {
	client redis.UniversalClient
	now    func() time.Time
	newID  func() string
}

func NewRedisRepository(client redis.UniversalClient) *RedisRepository {
	return &RedisRepository{client: client, now: time.Now, newID: uuid.NewString}
}

func tokenKey(id string) string    { return tokenKeyPrefix + id }
func userKey(userID string) string { return userKeyPrefix + userID }

func (r *RedisRepository) Create(ctx context.Context, userID string, expiresAt time.Time) (*models.RefreshToken, error) {
	rt := &models.RefreshToken{
		ID:        r.newID(),
		UserID:    userID,
		ExpiresAt: expiresAt,
		CreatedAt: r.now(),
	}

	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		key := tokenKey(rt.ID)
		p.HSet(ctx, key,
			"user_id", rt.UserID,
			"expires_at", rt.ExpiresAt.UnixNano(),
			"created_at", rt.CreatedAt.UnixNano(),
		)
		p.ExpireAt(ctx, key, rt.ExpiresAt)
		p.SAdd(ctx, userKey(rt.UserID), rt.ID)
		return nil
	})
	if err != nil {
		return nil, wrapRedisError("create refresh token", err)
	}
	return rt, nil
}

func (r *RedisRepository) Find(ctx context.Context, id string) (*models.RefreshToken, error) {
	vals, err := r.client.HGetAll(ctx, tokenKey(id)).Result()
	if err != nil {
		return nil, wrapRedisError("find refresh token", err)
	}
	if len(vals) == 0 {
		return nil, common.ErrorNotFound
	}

	expiresAt, err1 := parseUnixNano(vals["expires_at"])
	createdAt, err2 := parseUnixNano(vals["created_at"])
	if err := errors.Join(err1, err2); err != nil || vals["user_id"] == "" {
		return nil, fmt.Errorf("find refresh token: malformed record %s: %w", id, common.ErrStoreInvariant)
	}

	rt := &models.RefreshToken{ID: id, UserID: vals["user_id"], ExpiresAt: expiresAt, CreatedAt: createdAt}
	if rt.Expired(r.now()) {
		return nil, common.ErrorNotFound
	}
	return rt, nil
}

func (r *RedisRepository) Delete(ctx context.Context, id string) error {
	key := tokenKey(id)
	userID, err := r.client.HGet(ctx, key, "user_id").Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return wrapRedisError("delete refresh token", err)
	}

	_, err = r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, key)
		p.SRem(ctx, userKey(userID), id)
		return nil
	})
	if err != nil {
		return wrapRedisError("delete refresh token", err)
	}
	return nil
}

func (r *RedisRepository) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	ids, err := r.client.SMembers(ctx, userKey(userID)).Result()
	if err != nil {
		return 0, wrapRedisError("delete refresh tokens by user", err)
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, tokenKey(id))
	}

	var deleted *redis.IntCmd
	_, err = r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		if len(keys) > 0 {
			deleted = p.Del(ctx, keys...)
		}
		p.Del(ctx, userKey(userID))
		return nil
	})
	if err != nil {
		return 0, wrapRedisError("delete refresh tokens by user", err)
	}
	if deleted == nil {
		return 0, nil
	}
	return deleted.Val(), nil
}

// DeleteExpired removes index entries for records Redis has already expired.
// The hashes themselves carry a TTL, so now is only used for records whose
// TTL was lost.
func (r *RedisRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	var (
		pruned int64
		cursor uint64
	)
	for {
		userKeys, next, err := r.client.Scan(ctx, cursor, userKeyPrefix+"*", 100).Result()
		if err != nil {
			return pruned, wrapRedisError("delete expired refresh tokens", err)
		}
		for _, uk := range userKeys {
			n, err := r.pruneUser(ctx, uk, now)
			pruned += n
			if err != nil {
				return pruned, err
			}
		}
		cursor = next
		if cursor == 0 {
			return pruned, nil
		}
	}
}

func (r *RedisRepository) pruneUser(ctx context.Context, uk string, now time.Time) (int64, error) {
	ids, err := r.client.SMembers(ctx, uk).Result()
	if err != nil {
		return 0, wrapRedisError("delete expired refresh tokens", err)
	}

	var pruned int64
	for _, id := range ids {
		raw, err := r.client.HGet(ctx, tokenKey(id), "expires_at").Result()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return pruned, wrapRedisError("delete expired refresh tokens", err)
		default:
			exp, perr := parseUnixNano(raw)
			if perr == nil && now.Before(exp) {
				continue
			}
			if err := r.client.Del(ctx, tokenKey(id)).Err(); err != nil {
				return pruned, wrapRedisError("delete expired refresh tokens", err)
			}
		}
		if err := r.client.SRem(ctx, uk, id).Err(); err != nil {
			return pruned, wrapRedisError("delete expired refresh tokens", err)
		}
		pruned++
	}
	return pruned, nil
}

func parseUnixNano(s string) (time.Time, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(0, n), nil
}

// wrapRedisError treats every client error as transient: a reply error from
// Redis here means the server is unhealthy, not that the token is bad.
func wrapRedisError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, common.ErrStoreTransient, err)
}
