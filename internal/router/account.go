package router

import (
	"shop_admin/internal/middleware"
	"shop_admin/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func login(auth *service.AuthService, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Email    string `json:"email" binding:"required"`
			Password string `json:"password" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		res, err := auth.Login(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			fail(c, log, err)
			return
		}
		ok(c, res)
	}
}

func logout(auth *service.AuthService, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, _ := middleware.ClaimsFrom(c)
		if err := auth.Logout(c.Request.Context(), claims); err != nil {
			fail(c, log, err)
			return
		}
		ok(c, nil)
	}
}

func me(users *service.UserService, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := actorOf(c)
		u, err := users.GetUser(c.Request.Context(), actor, actor.UserID)
		if err != nil {
			fail(c, log, err)
			return
		}
		ok(c, u)
	}
}

func updateMe(users *service.UserService, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			FullName string `json:"full_name" binding:"required"`
			Phone    string `json:"phone"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		u, err := users.UpdateProfile(c.Request.Context(), actorOf(c), req.FullName, req.Phone)
		if err != nil {
			fail(c, log, err)
			return
		}
		ok(c, u)
	}
}

func changePassword(users *service.UserService, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			CurrentPassword string `json:"current_password" binding:"required"`
			NewPassword     string `json:"new_password" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		if err := users.ChangePassword(c.Request.Context(), actorOf(c), req.CurrentPassword, req.NewPassword); err != nil {
			fail(c, log, err)
			return
		}
		ok(c, nil)
	}
}

func createUser(users *service.UserService, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in service.CreateUserInput
		if err := c.ShouldBindJSON(&in); err != nil {
			badRequest(c, err.Error())
			return
		}
		u, err := users.CreateUser(c.Request.Context(), actorOf(c), in)
		if err != nil {
			fail(c, log, err)
			return
		}
		created(c, u)
	}
}

func getUser(users *service.UserService, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, valid := idParam(c, "id")
		if !valid {
			return
		}
		u, err := users.GetUser(c.Request.Context(), actorOf(c), id)
		if err != nil {
			fail(c, log, err)
			return
		}
		ok(c, u)
	}
}

func updateUser(users *service.UserService, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, valid := idParam(c, "id")
		if !valid {
			return
		}
		var in service.UpdateUserInput
		if err := c.ShouldBindJSON(&in); err != nil {
			badRequest(c, err.Error())
			return
		}
		u, err := users.UpdateUser(c.Request.Context(), actorOf(c), id, in)
		if err != nil {
			fail(c, log, err)
			return
		}
		ok(c, u)
	}
}

func deleteUser(users *service.UserService, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, valid := idParam(c, "id")
		if !valid {
			return
		}
		if err := users.DeleteUser(c.Request.Context(), actorOf(c), id); err != nil {
			fail(c, log, err)
			return
		}
		ok(c, nil)
	}
}

// resetPassword admin 重置他人密码，本人改密走 /me/password。
func resetPassword(users *service.UserService, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, valid := idParam(c, "id")
		if !valid {
			return
		}
		var req struct {
			NewPassword string `json:"new_password" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		if err := users.ResetPassword(c.Request.Context(), actorOf(c), id, req.NewPassword); err != nil {
			fail(c, log, err)
			return
		}
		ok(c, nil)
	}
}
