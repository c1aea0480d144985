package auth

import (
	"errors"
	"strconv"
	"time"

	"shop_admin/internal/model"
	"shop_admin/internal/service"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "shop_admin"

// HSProvider HS256 签发与校验访问令牌。
type HSProvider struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewHSProvider(secret string, ttl time.Duration) *HSProvider {
	return &HSProvider{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

type customClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func (p *HSProvider) Sign(userID uint, role model.Role) (string, service.Claims, error) {
	now := p.now()
	exp := now.Add(p.ttl)
	jti := uuid.NewString()

	claims := customClaims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    issuer,
			Subject:   strconv.FormatUint(uint64(userID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return "", service.Claims{}, err
	}
	return signed, service.Claims{UserID: userID, Role: role, ID: jti, ExpiresAt: exp}, nil
}

func (p *HSProvider) Parse(token string) (*service.Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &customClaims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return p.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(p.now))
	if err != nil {
		return nil, err
	}
	cc, ok := parsed.Claims.(*customClaims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	uid, err := strconv.ParseUint(cc.Subject, 10, 64)
	if err != nil || uid == 0 {
		return nil, errors.New("invalid subject")
	}
	out := &service.Claims{UserID: uint(uid), Role: model.Role(cc.Role), ID: cc.ID}
	if cc.ExpiresAt != nil {
		out.ExpiresAt = cc.ExpiresAt.Time
	}
	return out, nil
}
