package auth

import (
	"context"
	"time"

	rediskey "shop_admin/pkg/redis"

	rd "github.com/redis/go-redis/v9"
)

// RedisRevocations 以 jti 为键的登出黑名单，TTL 与 token 剩余有效期一致。
type RedisRevocations struct {
	rdb *rd.Client
}

func NewRedisRevocations(rdb *rd.Client) *RedisRevocations {
	return &RedisRevocations{rdb: rdb}
}

func (r *RedisRevocations) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	return r.rdb.Set(ctx, rediskey.RevokedTokenKey(jti), "1", ttl).Err()
}

func (r *RedisRevocations) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := r.rdb.Exists(ctx, rediskey.RevokedTokenKey(jti)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
