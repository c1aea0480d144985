package service

import (
	"context"
	"time"

	"shop_admin/internal/model"
)

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) bool
}

type Claims struct {
	UserID    uint
	Role      model.Role
	ID        string // jti
	ExpiresAt time.Time
}

type TokenProvider interface {
	Sign(userID uint, role model.Role) (token string, claims Claims, err error)
	Parse(token string) (*Claims, error)
}

// Revocations 记录已登出的 jti，nil 表示未启用（仅依赖过期时间）。
type Revocations interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}
