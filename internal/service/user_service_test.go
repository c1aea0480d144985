package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"shop_admin/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeTokens struct {
	SignFunc  func(userID uint, role model.Role) (string, Claims, error)
	ParseFunc func(token string) (*Claims, error)
}

func (f *fakeTokens) Sign(userID uint, role model.Role) (string, Claims, error) {
	return f.SignFunc(userID, role)
}

func (f *fakeTokens) Parse(token string) (*Claims, error) { return f.ParseFunc(token) }

type memRevocations struct {
	revoked map[string]time.Duration
	err     error
}

func (m *memRevocations) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	m.revoked[jti] = ttl
	return nil
}

func (m *memRevocations) IsRevoked(_ context.Context, jti string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	_, ok := m.revoked[jti]
	return ok, nil
}

func newAuthFixture(t *testing.T) (*fixture, *AuthService, *memRevocations) {
	f := newFixture(t)
	exp := time.Now().Add(time.Hour)
	tokens := &fakeTokens{
		SignFunc: func(userID uint, role model.Role) (string, Claims, error) {
			return "tok", Claims{UserID: userID, Role: role, ID: "jti-1", ExpiresAt: exp}, nil
		},
	}
	rev := &memRevocations{revoked: map[string]time.Duration{}}
	svc := NewAuthService(f.repo.Users, fakeHasher{}, tokens, rev, zap.NewNop())
	return f, svc, rev
}

func TestLogin(t *testing.T) {
	f, svc, _ := newAuthFixture(t)
	u := f.user(model.RoleManager)

	res, err := svc.Login(f.ctx, "  "+u.Email+" ", "password1")
	require.NoError(t, err)
	assert.Equal(t, "tok", res.Token)
	assert.Equal(t, u.ID, res.User.ID)

	got, err := f.repo.Users.GetByID(f.ctx, u.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.LastLoginAt)

	_, err = svc.Login(f.ctx, u.Email, "wrong1")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(f.ctx, "nobody@example.com", "password1")
	require.ErrorIs(t, err, ErrUnauthorized)

	require.NoError(t, f.repo.Users.UpdateAdmin(f.ctx, u.ID, u.Role, model.UserSuspended))
	_, err = svc.Login(f.ctx, u.Email, "password1")
	require.ErrorIs(t, err, ErrAccountInactive)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestAuthenticateAndLogout(t *testing.T) {
	f, svc, rev := newAuthFixture(t)
	u := f.user(model.RoleAdmin)
	claims := &Claims{UserID: u.ID, Role: model.RoleUser, ID: "jti-9", ExpiresAt: time.Now().Add(time.Hour)}
	svc.tokens.(*fakeTokens).ParseFunc = func(token string) (*Claims, error) {
		if token != "good" {
			return nil, errors.New("bad token")
		}
		return claims, nil
	}

	actor, _, err := svc.Authenticate(f.ctx, "good")
	require.NoError(t, err)
	// 角色以库里为准
	assert.Equal(t, Actor{UserID: u.ID, Role: model.RoleAdmin}, actor)

	_, _, err = svc.Authenticate(f.ctx, "bad")
	require.ErrorIs(t, err, ErrUnauthorized)

	require.NoError(t, svc.Logout(f.ctx, claims))
	assert.Contains(t, rev.revoked, "jti-9")
	_, _, err = svc.Authenticate(f.ctx, "good")
	require.ErrorIs(t, err, ErrUnauthorized)

	// 黑名单不可用时降级放行
	rev.err = errors.New("redis down")
	_, _, err = svc.Authenticate(f.ctx, "good")
	require.NoError(t, err)
}

func TestCreateUser(t *testing.T) {
	f := newFixture(t)
	admin := f.user(model.RoleAdmin)
	manager := f.user(model.RoleManager)

	in := CreateUserInput{
		Username: "new_user",
		Email:    "New.User@Example.com",
		Password: "secret1",
		FullName: "New User",
		Role:     model.RoleUser,
	}
	u, err := f.users.CreateUser(f.ctx, staff(admin), in)
	require.NoError(t, err)
	assert.Equal(t, "new.user@example.com", u.Email)
	assert.Equal(t, "hashed:secret1", u.PasswordHash)
	assert.Equal(t, model.UserActive, u.Status)

	_, err = f.users.CreateUser(f.ctx, staff(admin), in)
	require.ErrorIs(t, err, ErrConflict)

	_, err = f.users.CreateUser(f.ctx, staff(manager), in)
	require.ErrorIs(t, err, ErrForbidden)

	bad := []func(*CreateUserInput){
		func(in *CreateUserInput) { in.Username = "a b" },
		func(in *CreateUserInput) { in.Email = "not-an-email" },
		func(in *CreateUserInput) { in.Password = "nodigit" },
		func(in *CreateUserInput) { in.Password = "a1" },
		func(in *CreateUserInput) { in.FullName = "X" },
		func(in *CreateUserInput) { in.Role = "root" },
	}
	for i, mutate := range bad {
		c := in
		c.Username = "other_user"
		c.Email = "other@example.com"
		mutate(&c)
		_, err := f.users.CreateUser(f.ctx, staff(admin), c)
		assert.ErrorIs(t, err, ErrValidation, "case %d", i)
	}
}

func TestProfileAndPassword(t *testing.T) {
	f := newFixture(t)
	u := f.user(model.RoleUser)
	other := f.user(model.RoleUser)
	me := staff(u)

	got, err := f.users.UpdateProfile(f.ctx, me, " Jane Doe ", "0700000000")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", got.FullName)

	_, err = f.users.GetUser(f.ctx, me, other.ID)
	require.ErrorIs(t, err, ErrForbidden)

	require.ErrorIs(t, f.users.ChangePassword(f.ctx, me, "wrong", "newpass2"), ErrWrongPassword)
	require.ErrorIs(t, f.users.ChangePassword(f.ctx, me, "password1", "short"), ErrValidation)
	require.NoError(t, f.users.ChangePassword(f.ctx, me, "password1", "newpass2"))

	got, err = f.users.GetUser(f.ctx, me, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "hashed:newpass2", got.PasswordHash)
}

func TestUpdateUser_AdminOnly(t *testing.T) {
	f := newFixture(t)
	admin := f.user(model.RoleAdmin)
	manager := f.user(model.RoleManager)
	u := f.user(model.RoleUser)

	in := UpdateUserInput{FullName: "Promoted", Role: model.RoleManager, Status: model.UserActive}
	_, err := f.users.UpdateUser(f.ctx, staff(manager), u.ID, in)
	require.ErrorIs(t, err, ErrForbidden)

	got, err := f.users.UpdateUser(f.ctx, staff(admin), u.ID, in)
	require.NoError(t, err)
	assert.Equal(t, model.RoleManager, got.Role)
	assert.Equal(t, "Promoted", got.FullName)

	_, err = f.users.UpdateUser(f.ctx, staff(admin), 9999, in)
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestResetPassword_AdminOnly(t *testing.T) {
	f := newFixture(t)
	admin := f.user(model.RoleAdmin)
	manager := f.user(model.RoleManager)
	u := f.user(model.RoleUser)

	require.ErrorIs(t, f.users.ResetPassword(f.ctx, staff(manager), u.ID, "newpass1"), ErrForbidden)
	require.ErrorIs(t, f.users.ResetPassword(f.ctx, staff(admin), u.ID, "short"), ErrValidation)
	require.ErrorIs(t, f.users.ResetPassword(f.ctx, staff(admin), 9999, "newpass1"), ErrUserNotFound)

	require.NoError(t, f.users.ResetPassword(f.ctx, staff(admin), u.ID, "newpass1"))
	got, err := f.repo.Users.GetByID(f.ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "hashed:newpass1", got.PasswordHash)
}

func TestDeleteUser(t *testing.T) {
	f := newFixture(t)
	admin := f.user(model.RoleAdmin)
	manager := f.user(model.RoleManager)
	buyer := f.user(model.RoleUser)
	idle := f.user(model.RoleUser)
	f.rawOrder(buyer.ID, model.OrderPending, model.PaymentPending, "10.00", time.Now().UTC())

	require.ErrorIs(t, f.users.DeleteUser(f.ctx, staff(manager), idle.ID), ErrForbidden)
	require.ErrorIs(t, f.users.DeleteUser(f.ctx, staff(admin), admin.ID), ErrDeleteSelf)
	// 有订单的客户不能删
	require.ErrorIs(t, f.users.DeleteUser(f.ctx, staff(admin), buyer.ID), ErrConflict)

	require.NoError(t, f.users.DeleteUser(f.ctx, staff(admin), idle.ID))
	_, err := f.users.GetUser(f.ctx, staff(admin), idle.ID)
	require.ErrorIs(t, err, ErrUserNotFound)
	require.ErrorIs(t, f.users.DeleteUser(f.ctx, staff(admin), idle.ID), ErrUserNotFound)
}
