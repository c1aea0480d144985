package router

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"shop_admin/internal/config"
	"shop_admin/internal/middleware"
	"shop_admin/internal/model"
	"shop_admin/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	rd "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Deps 路由层依赖。Redis 可为 nil，此时不限流。
type Deps struct {
	DB      *gorm.DB
	Redis   *rd.Client
	Auth    *service.AuthService
	Users   *service.UserService
	Catalog *service.CatalogService
	Orders  *service.OrderService
	Reports *service.ReportService
	Config  config.AppConfig
	Log     *zap.Logger
}

// Setup 注册全部 HTTP 路由。
func Setup(r *gin.Engine, d Deps) {
	r.Use(
		middleware.Prometheus(),
		middleware.AccessLog(d.Log),
		cors.New(cors.Config{
			AllowAllOrigins: true,
			AllowMethods:    []string{"GET", "POST", "PUT", "OPTIONS"},
			AllowHeaders:    []string{"Origin", "Content-Type", "Authorization"},
			MaxAge:          12 * time.Hour,
		}),
	)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"msg": "pong"})
	})
	r.GET("/health", health(d.DB))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	limit := middleware.RedisRateLimit(d.Redis, d.Config.APIRateLimit, d.Config.APIRateWindow, d.Log)
	staff := middleware.RequireRole(model.RoleAdmin, model.RoleManager)
	admin := middleware.RequireRole(model.RoleAdmin)

	// 登录按 IP 限流
	r.POST("/api/auth/login", limit, login(d.Auth, d.Log))

	api := r.Group("/api", middleware.AuthRequired(d.Auth, d.Log), limit)
	{
		api.POST("/auth/logout", logout(d.Auth, d.Log))

		api.GET("/me", me(d.Users, d.Log))
		api.PUT("/me", updateMe(d.Users, d.Log))
		api.POST("/me/password", changePassword(d.Users, d.Log))

		api.POST("/users", admin, createUser(d.Users, d.Log))
		api.GET("/users/:id", staff, getUser(d.Users, d.Log))
		api.PUT("/users/:id", admin, updateUser(d.Users, d.Log))
		api.DELETE("/users/:id", admin, deleteUser(d.Users, d.Log))
		api.POST("/users/:id/password", admin, resetPassword(d.Users, d.Log))

		api.POST("/categories", staff, createCategory(d.Catalog, d.Log))

		api.POST("/products", staff, createProduct(d.Catalog, d.Log))
		api.GET("/products/low-stock", staff, lowStock(d.Reports, d.Log))
		api.GET("/products/:id", getProduct(d.Catalog, d.Log))
		api.PUT("/products/:id", staff, updateProduct(d.Catalog, d.Log))
		api.DELETE("/products/:id", admin, deleteProduct(d.Catalog, d.Log))
		api.POST("/products/:id/stock", staff, adjustStock(d.Catalog, d.Log))

		api.POST("/orders", placeOrder(d.Orders, d.Log))
		api.GET("/orders", listOrders(d.Orders, d.Log))
		api.GET("/orders/:id", getOrder(d.Orders, d.Log))
		api.POST("/orders/:id/status", staff, updateOrderStatus(d.Orders, d.Log))
		api.POST("/orders/:id/cancel", staff, cancelOrder(d.Orders, d.Log))

		api.GET("/dashboard", dashboard(d.Reports, d.Log))
		api.GET("/dashboard/stats", staff, stats(d.Reports, d.Log))

		reports := api.Group("/reports", staff)
		reports.GET("/revenue", revenueReport(d.Reports, d.Log))
		reports.GET("/status-counts", statusCounts(d.Reports, d.Log))
		reports.GET("/monthly", monthlyRevenue(d.Reports, d.Log))
		reports.GET("/top-products", topProducts(d.Reports, d.Log))
	}
}

func health(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"code": http.StatusServiceUnavailable, "msg": "database unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "msg": "ok"})
	}
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"code": 0, "msg": "ok", "data": data})
}

func created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, gin.H{"code": 0, "msg": "created", "data": data})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "msg": msg})
}

// fail 把服务层错误映射为 HTTP 状态码；持久化错误不向外暴露细节。
func fail(c *gin.Context, log *zap.Logger, err error) {
	status := statusOf(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		msg = "internal server error"
	}
	_ = c.Error(err)
	c.JSON(status, gin.H{"code": status, "msg": msg})
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrInsufficientStock),
		errors.Is(err, service.ErrAlreadyCancelled),
		errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

func actorOf(c *gin.Context) service.Actor {
	a, _ := middleware.ActorFrom(c)
	return a
}

// idParam 解析路径上的正整数 id。
func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		badRequest(c, name+" must be a positive integer")
		return 0, false
	}
	return uint(id), true
}

// intQuery 读取整数查询参数，缺省时返回 fallback。
func intQuery(c *gin.Context, name string, fallback int) (int, bool) {
	v := c.Query(name)
	if v == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		badRequest(c, name+" must be an integer")
		return 0, false
	}
	return n, true
}

// timeQuery 接受 RFC3339 或 YYYY-MM-DD。
func timeQuery(c *gin.Context, name string) (time.Time, bool) {
	t, _, valid := parseTimeQuery(c, name)
	return t, valid
}

// endTimeQuery 读取区间右端。区间是 [from, to)，只给日期时包含当天，即顺延到次日零点。
func endTimeQuery(c *gin.Context, name string) (time.Time, bool) {
	t, dateOnly, valid := parseTimeQuery(c, name)
	if valid && dateOnly {
		t = t.AddDate(0, 0, 1)
	}
	return t, valid
}

func parseTimeQuery(c *gin.Context, name string) (t time.Time, dateOnly, valid bool) {
	v := c.Query(name)
	if v == "" {
		return time.Time{}, false, true
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.UTC(), false, true
	}
	if t, err := time.Parse(time.DateOnly, v); err == nil {
		return t, true, true
	}
	badRequest(c, name+" must be RFC3339 or YYYY-MM-DD")
	return time.Time{}, false, false
}
