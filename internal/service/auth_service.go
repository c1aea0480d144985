package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"shop_admin/internal/model"
	"shop_admin/internal/repository"

	"go.uber.org/zap"
)

type LoginResult struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      *model.User `json:"user"`
}

type AuthService struct {
	users   repository.UserRepo
	hasher  PasswordHasher
	tokens  TokenProvider
	revoked Revocations
	log     *zap.Logger
	now     func() time.Time
}

func NewAuthService(users repository.UserRepo, hasher PasswordHasher, tokens TokenProvider, revoked Revocations, log *zap.Logger) *AuthService {
	return &AuthService{
		users:   users,
		hasher:  hasher,
		tokens:  tokens,
		revoked: revoked,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Login 邮箱 + 密码登录；非 active 账号拒绝，成功后记录 last_login_at。
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, classify(err)
	}
	if u == nil || !s.hasher.Compare(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	if u.Status != model.UserActive {
		return nil, fmt.Errorf("%w (%s)", ErrAccountInactive, u.Status)
	}

	now := s.now()
	if err := s.users.TouchLogin(ctx, u.ID, now); err != nil {
		return nil, classify(err)
	}
	u.LastLoginAt = &now

	token, claims, err := s.tokens.Sign(u.ID, u.Role)
	if err != nil {
		return nil, fmt.Errorf("%w: sign token: %v", ErrPersistence, err)
	}
	s.log.Info("user logged in", zap.Uint("user_id", u.ID), zap.String("role", string(u.Role)))
	return &LoginResult{Token: token, ExpiresAt: claims.ExpiresAt, User: u}, nil
}

// Authenticate 解析 token，检查是否已登出，以及账号仍为 active。
func (s *AuthService) Authenticate(ctx context.Context, token string) (Actor, *Claims, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return Actor{}, nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if s.revoked != nil && claims.ID != "" {
		revoked, err := s.revoked.IsRevoked(ctx, claims.ID)
		if err != nil {
			// Redis 不可用时放行，与限流降级一致
			s.log.Warn("revocation check failed", zap.Error(err))
		} else if revoked {
			return Actor{}, nil, fmt.Errorf("%w: token revoked", ErrUnauthorized)
		}
	}
	u, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return Actor{}, nil, classify(err)
	}
	if u == nil || u.Status != model.UserActive {
		return Actor{}, nil, fmt.Errorf("%w: account unavailable", ErrUnauthorized)
	}
	// 角色以库里为准，管理员改角色后立即生效
	return Actor{UserID: u.ID, Role: u.Role}, claims, nil
}

// Logout 将 jti 拉黑到 token 过期为止。
func (s *AuthService) Logout(ctx context.Context, claims *Claims) error {
	if s.revoked == nil || claims == nil || claims.ID == "" {
		return nil
	}
	ttl := claims.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	if err := s.revoked.Revoke(ctx, claims.ID, ttl); err != nil {
		return fmt.Errorf("%w: revoke token: %v", ErrPersistence, err)
	}
	return nil
}
