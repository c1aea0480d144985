package middleware

import (
	"fmt"
	"net/http"
	"time"

	rediskey "shop_admin/pkg/redis"

	"github.com/gin-gonic/gin"
	rd "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// luaRateLimit：Redis 滑动窗口限流 Lua 脚本（原子操作）
// KEYS[1]=限流key，ARGV[1]=当前时间戳，ARGV[2]=窗口开始时间戳，ARGV[3]=窗口秒数
// 返回：当前窗口内的请求数（如果 >= limit 则返回 -1 表示限流）
const luaRateLimit = `
local key = KEYS[1]
local now = tonumber(ARGV[1])
local windowStart = tonumber(ARGV[2])
local windowSec = tonumber(ARGV[3])
local member = ARGV[4]

redis.call('ZREMRANGEBYSCORE', key, '0', windowStart)

local count = redis.call('ZCARD', key)

if count < tonumber(ARGV[5]) then
  redis.call('ZADD', key, now, member)
  redis.call('EXPIRE', key, windowSec)
  return count + 1
else
  return -1
end
`

var rateLimitScript = rd.NewScript(luaRateLimit)

// RedisRateLimit Redis 分布式限流。
// 已认证请求按用户计数，匿名请求按 IP；rdb 为 nil 时直接放行。
func RedisRateLimit(rdb *rd.Client, limit int, window time.Duration, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rdb == nil {
			c.Next()
			return
		}

		key := rediskey.RateLimitIPKey(c.ClientIP())
		if actor, ok := ActorFrom(c); ok {
			key = rediskey.RateLimitUserKey(actor.UserID)
		}

		now := time.Now()
		windowSec := int64(window.Seconds())
		member := fmt.Sprintf("%d-%d", now.Unix(), now.UnixNano())

		res, err := rateLimitScript.Run(c.Request.Context(), rdb, []string{key},
			now.Unix(), now.Unix()-windowSec, windowSec, member, limit).Int()
		if err != nil {
			// Redis 出错时放行（降级策略）
			log.Warn("rate limit degraded", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}

		if res < 0 {
			c.Header("Retry-After", fmt.Sprintf("%d", windowSec))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code": http.StatusTooManyRequests,
				"msg":  "too many requests, please try again later",
			})
			return
		}
		c.Next()
	}
}
