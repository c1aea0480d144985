package redis

import "fmt"

// RateLimitUserKey 已登录请求按用户限流。
func RateLimitUserKey(userID uint) string {
	return fmt.Sprintf("shop_admin:rate_limit:user:%d", userID)
}

// RateLimitIPKey 匿名请求按 IP 限流。
func RateLimitIPKey(ip string) string {
	return fmt.Sprintf("shop_admin:rate_limit:ip:%s", ip)
}

// RevokedTokenKey 已登出 token 的 jti 黑名单。
func RevokedTokenKey(jti string) string {
	return fmt.Sprintf("shop_admin:auth:revoked:%s", jti)
}
