package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"shop_admin/internal/model"
	"shop_admin/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	ctxActor  = "actor"
	ctxClaims = "claims"
)

// Authenticator 由 service.AuthService 实现。
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (service.Actor, *service.Claims, error)
}

// AuthRequired 校验 Bearer token，并把 Actor 与 Claims 放入 gin 上下文。
func AuthRequired(auth Authenticator, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := ExtractBearerToken(c.GetHeader("Authorization"))
		if !ok || token == "" {
			abort(c, http.StatusUnauthorized, "missing or malformed Authorization header")
			return
		}

		actor, claims, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, service.ErrForbidden) {
				abort(c, http.StatusForbidden, err.Error())
				return
			}
			if !errors.Is(err, service.ErrUnauthorized) {
				log.Warn("authenticate failed", zap.Error(err))
			}
			abort(c, http.StatusUnauthorized, "invalid token")
			return
		}

		c.Set(ctxActor, actor)
		c.Set(ctxClaims, claims)
		c.Next()
	}
}

// RequireRole 只允许指定角色访问，需放在 AuthRequired 之后。
func RequireRole(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := ActorFrom(c)
		if !ok {
			abort(c, http.StatusUnauthorized, "authentication required")
			return
		}
		for _, r := range roles {
			if actor.Role == r {
				c.Next()
				return
			}
		}
		abort(c, http.StatusForbidden, "insufficient role")
	}
}

func ActorFrom(c *gin.Context) (service.Actor, bool) {
	v, ok := c.Get(ctxActor)
	if !ok {
		return service.Actor{}, false
	}
	a, ok := v.(service.Actor)
	return a, ok
}

func ClaimsFrom(c *gin.Context) (*service.Claims, bool) {
	v, ok := c.Get(ctxClaims)
	if !ok {
		return nil, false
	}
	cl, ok := v.(*service.Claims)
	return cl, ok && cl != nil
}

// ExtractBearerToken 解析 "Bearer <token>"，容忍多余的引号与空白。
func ExtractBearerToken(authz string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(authz), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	t := strings.Trim(strings.TrimSpace(parts[1]), "\"'")
	if i := strings.IndexByte(t, ' '); i >= 0 {
		t = t[:i]
	}
	return t, true
}

func abort(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"code": status, "msg": msg})
}
