package service

import (
	"context"
	"net/mail"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"shop_admin/internal/model"
	"shop_admin/internal/repository"

	"go.uber.org/zap"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{3,50}$`)

type CreateUserInput struct {
	Username string           `json:"username"`
	Email    string           `json:"email"`
	Password string           `json:"password"`
	FullName string           `json:"full_name"`
	Phone    string           `json:"phone"`
	Role     model.Role       `json:"role"`
	Status   model.UserStatus `json:"status"`
}

type UpdateUserInput struct {
	FullName string           `json:"full_name"`
	Phone    string           `json:"phone"`
	Role     model.Role       `json:"role"`
	Status   model.UserStatus `json:"status"`
}

type UserService struct {
	users  repository.UserRepo
	hasher PasswordHasher
	log    *zap.Logger
}

func NewUserService(users repository.UserRepo, hasher PasswordHasher, log *zap.Logger) *UserService {
	return &UserService{users: users, hasher: hasher, log: log}
}

// 至少 6 位且含数字
func validatePassword(pw string) error {
	if len(pw) < 6 {
		return validation("password must be at least 6 characters")
	}
	if !strings.ContainsFunc(pw, unicode.IsDigit) {
		return validation("password must contain at least one number")
	}
	return nil
}

func validateProfile(fullName, phone string) error {
	if n := utf8.RuneCountInString(fullName); n < 2 || n > 100 {
		return validation("full name must be between 2 and 100 characters")
	}
	if len(phone) > 20 {
		return validation("phone number too long")
	}
	return nil
}

// CreateUser 仅 admin 可建号。
func (s *UserService) CreateUser(ctx context.Context, actor Actor, in CreateUserInput) (*model.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	u, err := s.create(ctx, in)
	if err != nil {
		return nil, err
	}
	s.log.Info("user created", zap.Uint("user_id", u.ID), zap.Uint("by", actor.UserID))
	return u, nil
}

// Register 供初始化脚本使用，不做角色检查。
func (s *UserService) Register(ctx context.Context, in CreateUserInput) (*model.User, error) {
	return s.create(ctx, in)
}

func (s *UserService) create(ctx context.Context, in CreateUserInput) (*model.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.FullName = strings.TrimSpace(in.FullName)
	in.Phone = strings.TrimSpace(in.Phone)
	if in.Role == "" {
		in.Role = model.RoleUser
	}
	if in.Status == "" {
		in.Status = model.UserActive
	}

	if !usernamePattern.MatchString(in.Username) {
		return nil, validation("username must be 3-50 letters, numbers or underscores")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return nil, validation("invalid email address")
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}
	if err := validateProfile(in.FullName, in.Phone); err != nil {
		return nil, err
	}
	if !in.Role.Valid() {
		return nil, validation("invalid role %q", in.Role)
	}
	if !in.Status.Valid() {
		return nil, validation("invalid status %q", in.Status)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, classify(err)
	}
	u := &model.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		FullName:     in.FullName,
		Phone:        in.Phone,
		Role:         in.Role,
		Status:       in.Status,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, classify(err)
	}
	return u, nil
}

// GetUser staff 可看任意账号，普通用户只能看自己。
func (s *UserService) GetUser(ctx context.Context, actor Actor, id uint) (*model.User, error) {
	if !actor.Staff() && actor.UserID != id {
		return nil, ErrForbidden
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, classify(err)
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

// UpdateUser admin 修改资料、角色与状态。
func (s *UserService) UpdateUser(ctx context.Context, actor Actor, id uint, in UpdateUserInput) (*model.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	in.FullName = strings.TrimSpace(in.FullName)
	in.Phone = strings.TrimSpace(in.Phone)
	if err := validateProfile(in.FullName, in.Phone); err != nil {
		return nil, err
	}
	if !in.Role.Valid() {
		return nil, validation("invalid role %q", in.Role)
	}
	if !in.Status.Valid() {
		return nil, validation("invalid status %q", in.Status)
	}
	if _, err := s.GetUser(ctx, actor, id); err != nil {
		return nil, err
	}
	if err := s.users.UpdateProfile(ctx, id, in.FullName, in.Phone); err != nil {
		return nil, classify(err)
	}
	if err := s.users.UpdateAdmin(ctx, id, in.Role, in.Status); err != nil {
		return nil, classify(err)
	}
	s.log.Info("user updated", zap.Uint("user_id", id), zap.Uint("by", actor.UserID),
		zap.String("role", string(in.Role)), zap.String("status", string(in.Status)))
	return s.GetUser(ctx, actor, id)
}

func (s *UserService) UpdateProfile(ctx context.Context, actor Actor, fullName, phone string) (*model.User, error) {
	fullName = strings.TrimSpace(fullName)
	phone = strings.TrimSpace(phone)
	if err := validateProfile(fullName, phone); err != nil {
		return nil, err
	}
	if err := s.users.UpdateProfile(ctx, actor.UserID, fullName, phone); err != nil {
		return nil, classify(err)
	}
	return s.GetUser(ctx, actor, actor.UserID)
}

func (s *UserService) ChangePassword(ctx context.Context, actor Actor, current, next string) error {
	u, err := s.GetUser(ctx, actor, actor.UserID)
	if err != nil {
		return err
	}
	if !s.hasher.Compare(u.PasswordHash, current) {
		return ErrWrongPassword
	}
	if err := validatePassword(next); err != nil {
		return err
	}
	hash, err := s.hasher.Hash(next)
	if err != nil {
		return classify(err)
	}
	if err := s.users.UpdatePassword(ctx, u.ID, hash); err != nil {
		return classify(err)
	}
	s.log.Info("password changed", zap.Uint("user_id", u.ID))
	return nil
}

// ResetPassword admin 直接为任意账号设置新密码，不校验旧密码。
func (s *UserService) ResetPassword(ctx context.Context, actor Actor, id uint, next string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if err := validatePassword(next); err != nil {
		return err
	}
	if _, err := s.GetUser(ctx, actor, id); err != nil {
		return err
	}
	hash, err := s.hasher.Hash(next)
	if err != nil {
		return classify(err)
	}
	if err := s.users.UpdatePassword(ctx, id, hash); err != nil {
		return classify(err)
	}
	s.log.Info("password reset", zap.Uint("user_id", id), zap.Uint("by", actor.UserID))
	return nil
}

// DeleteUser 仅 admin，不能删自己；有订单的账号由外键拒绝，返回 ErrConflict。
func (s *UserService) DeleteUser(ctx context.Context, actor Actor, id uint) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if id == actor.UserID {
		return ErrDeleteSelf
	}
	ok, err := s.users.Delete(ctx, id)
	if err != nil {
		return classify(err)
	}
	if !ok {
		return ErrUserNotFound
	}
	s.log.Info("user deleted", zap.Uint("user_id", id), zap.Uint("by", actor.UserID))
	return nil
}
