package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// 基础错误类别，调用方用 errors.Is 判断。
var (
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("validation failed")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrAlreadyCancelled  = errors.New("order already cancelled")
	ErrPersistence       = errors.New("persistence failure")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrConflict          = errors.New("conflict")
)

var (
	ErrProductNotFound  = fmt.Errorf("product %w", ErrNotFound)
	ErrOrderNotFound    = fmt.Errorf("order %w", ErrNotFound)
	ErrUserNotFound     = fmt.Errorf("user %w", ErrNotFound)
	ErrCategoryNotFound = fmt.Errorf("category %w", ErrNotFound)
)

var (
	ErrEmptyItems          = fmt.Errorf("%w: order must contain at least one item", ErrValidation)
	ErrQuantityInvalid     = fmt.Errorf("%w: quantity must be >= 1", ErrValidation)
	ErrAmountNegative      = fmt.Errorf("%w: discount and tax must be >= 0", ErrValidation)
	ErrGrandTotalNegative  = fmt.Errorf("%w: grand total must be >= 0", ErrValidation)
	ErrPaymentMethod       = fmt.Errorf("%w: unknown payment method", ErrValidation)
	ErrShippingAddress     = fmt.Errorf("%w: shipping address must be 10-500 characters", ErrValidation)
	ErrOrderNumber         = fmt.Errorf("%w: order number must be 5-50 characters", ErrValidation)
	ErrCustomerRequired    = fmt.Errorf("%w: customer is required", ErrValidation)
	ErrInvalidStatus       = fmt.Errorf("%w: invalid status", ErrValidation)
	ErrIllegalTransition   = fmt.Errorf("%w: status transition not allowed", ErrValidation)
	ErrCancelViaStatus     = fmt.Errorf("%w: use cancel to cancel an order", ErrValidation)
	ErrInvalidCredentials  = fmt.Errorf("%w: invalid email or password", ErrUnauthorized)
	ErrAccountInactive     = fmt.Errorf("%w: account is not active", ErrForbidden)
	ErrWrongPassword       = fmt.Errorf("%w: current password is incorrect", ErrValidation)
	ErrInvalidStockAction  = fmt.Errorf("%w: stock action must be add, subtract or set", ErrValidation)
	ErrInvalidReportPeriod = fmt.Errorf("%w: unknown report period", ErrValidation)
	ErrDeleteSelf          = fmt.Errorf("%w: you cannot delete your own account", ErrValidation)
)

// validation 构造带字段信息的校验错误。
func validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// classify 把存储层错误归一：已分类的原样返回，唯一键冲突与外键拒绝归为 ErrConflict，其余包成 ErrPersistence。
func classify(err error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{
		ErrNotFound, ErrValidation, ErrInsufficientStock, ErrAlreadyCancelled,
		ErrPersistence, ErrUnauthorized, ErrForbidden, ErrConflict,
	} {
		if errors.Is(err, known) {
			return err
		}
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || errors.Is(err, gorm.ErrForeignKeyViolated) {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return fmt.Errorf("%w: %v", ErrPersistence, err)
}
