package service

import "shop_admin/internal/model"

// Actor 当前请求的身份，由鉴权中间件解析后显式传入。
type Actor struct {
	UserID uint       `json:"user_id"`
	Role   model.Role `json:"role"`
}

func (a Actor) Staff() bool { return a.Role.Staff() }

func requireStaff(a Actor) error {
	if !a.Staff() {
		return ErrForbidden
	}
	return nil
}

func requireAdmin(a Actor) error {
	if a.Role != model.RoleAdmin {
		return ErrForbidden
	}
	return nil
}
