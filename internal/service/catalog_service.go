package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"shop_admin/internal/model"
	"shop_admin/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type CreateCategoryInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type ProductInput struct {
	Name        string              `json:"name"`
	SKU         string              `json:"sku"` // 为空时自动生成，仅创建时生效
	Description string              `json:"description"`
	Price       decimal.Decimal     `json:"price"`
	CostPrice   decimal.Decimal     `json:"cost_price"`
	Quantity    int                 `json:"quantity"` // 仅创建时生效，之后走库存调整
	CategoryID  uint                `json:"category_id"`
	Status      model.ProductStatus `json:"status"`
	Featured    bool                `json:"featured"`
}

type StockAction string

const (
	StockAdd      StockAction = "add"
	StockSubtract StockAction = "subtract"
	StockSet      StockAction = "set"
)

type CatalogService struct {
	repo   *repository.Repository
	ledger *InventoryLedger
	log    *zap.Logger
}

func NewCatalogService(repo *repository.Repository, ledger *InventoryLedger, log *zap.Logger) *CatalogService {
	return &CatalogService{repo: repo, ledger: ledger, log: log}
}

func (s *CatalogService) CreateCategory(ctx context.Context, actor Actor, in CreateCategoryInput) (*model.Category, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	in.Name = strings.TrimSpace(in.Name)
	if n := utf8.RuneCountInString(in.Name); n < 2 || n > 100 {
		return nil, validation("category name must be between 2 and 100 characters")
	}
	c := &model.Category{
		Name:        in.Name,
		Description: strings.TrimSpace(in.Description),
		Icon:        strings.TrimSpace(in.Icon),
		Status:      model.CategoryActive,
	}
	if err := s.repo.Categories.Create(ctx, c); err != nil {
		return nil, classify(err)
	}
	return c, nil
}

func (in *ProductInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.SKU = strings.TrimSpace(in.SKU)
	in.Description = strings.TrimSpace(in.Description)
	in.Price = in.Price.Round(2)
	in.CostPrice = in.CostPrice.Round(2)
	if in.Status == "" {
		in.Status = model.ProductActive
	}
}

func (in ProductInput) validate() error {
	if n := utf8.RuneCountInString(in.Name); n < 3 || n > 200 {
		return validation("product name must be between 3 and 200 characters")
	}
	if len(in.SKU) > 50 {
		return validation("sku must be at most 50 characters")
	}
	if utf8.RuneCountInString(in.Description) > 1000 {
		return validation("description too long")
	}
	if in.Price.IsNegative() || in.CostPrice.IsNegative() {
		return validation("price and cost price must be >= 0")
	}
	if in.Quantity < 0 {
		return validation("quantity must be >= 0")
	}
	if in.CategoryID == 0 {
		return validation("category is required")
	}
	if !in.Status.Valid() {
		return validation("invalid product status %q", in.Status)
	}
	return nil
}

func (s *CatalogService) ensureCategory(ctx context.Context, id uint) error {
	c, err := s.repo.Categories.GetByID(ctx, id)
	if err != nil {
		return classify(err)
	}
	if c == nil {
		return ErrCategoryNotFound
	}
	return nil
}

func (s *CatalogService) CreateProduct(ctx context.Context, actor Actor, in ProductInput) (*model.Product, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	in.normalize()
	if err := in.validate(); err != nil {
		return nil, err
	}
	if err := s.ensureCategory(ctx, in.CategoryID); err != nil {
		return nil, err
	}
	if in.SKU == "" {
		in.SKU = "PROD-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
	}
	p := &model.Product{
		Name:        in.Name,
		SKU:         in.SKU,
		Description: in.Description,
		Price:       in.Price,
		CostPrice:   in.CostPrice,
		Quantity:    in.Quantity,
		CategoryID:  in.CategoryID,
		Status:      in.Status,
		Featured:    in.Featured,
	}
	if err := s.repo.Products.Create(ctx, p); err != nil {
		return nil, classify(err)
	}
	s.log.Info("product created", zap.Uint("product_id", p.ID), zap.String("sku", p.SKU))
	return s.GetProduct(ctx, p.ID)
}

// UpdateProduct 修改商品资料；SKU 与库存不在此处修改。
func (s *CatalogService) UpdateProduct(ctx context.Context, actor Actor, id uint, in ProductInput) (*model.Product, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	in.normalize()
	in.Quantity = 0
	if err := in.validate(); err != nil {
		return nil, err
	}
	cur, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureCategory(ctx, in.CategoryID); err != nil {
		return nil, err
	}
	cur.Name = in.Name
	cur.Description = in.Description
	cur.Price = in.Price
	cur.CostPrice = in.CostPrice
	cur.CategoryID = in.CategoryID
	cur.Status = in.Status
	cur.Featured = in.Featured
	if err := s.repo.Products.UpdateDetails(ctx, cur); err != nil {
		return nil, classify(err)
	}
	return s.GetProduct(ctx, id)
}

func (s *CatalogService) GetProduct(ctx context.Context, id uint) (*model.Product, error) {
	p, err := s.repo.Products.GetByID(ctx, id)
	if err != nil {
		return nil, classify(err)
	}
	if p == nil {
		return nil, ErrProductNotFound
	}
	return p, nil
}

// DeleteProduct 仅 admin。已被订单引用的商品由外键拒绝，返回 ErrConflict，需改为下架。
func (s *CatalogService) DeleteProduct(ctx context.Context, actor Actor, id uint) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	ok, err := s.repo.Products.Delete(ctx, id)
	if err != nil {
		return classify(err)
	}
	if !ok {
		return ErrProductNotFound
	}
	s.log.Info("product deleted", zap.Uint("product_id", id), zap.Uint("by", actor.UserID))
	return nil
}

// AdjustStock 手工调整库存：add / subtract / set，均经由库存台账。
// subtract 超过现有库存时返回 ErrInsufficientStock，不截断到 0。
func (s *CatalogService) AdjustStock(ctx context.Context, actor Actor, id uint, action StockAction, qty int) (*model.Product, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	switch action {
	case StockAdd, StockSubtract:
		if qty < 1 {
			return nil, ErrQuantityInvalid
		}
	case StockSet:
		if qty < 0 {
			return nil, validation("quantity must be >= 0")
		}
	default:
		return nil, ErrInvalidStockAction
	}

	err := s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		switch action {
		case StockAdd:
			return s.ledger.Release(ctx, tx, id, qty)
		case StockSubtract:
			return s.ledger.Reserve(ctx, tx, id, qty)
		default:
			return s.ledger.Set(ctx, tx, id, qty)
		}
	})
	if err != nil {
		return nil, err
	}
	p, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	s.log.Info("stock adjusted", zap.Uint("product_id", id), zap.String("action", string(action)),
		zap.Int("quantity", qty), zap.Int("on_hand", p.Quantity), zap.Uint("by", actor.UserID))
	return p, nil
}

// ParseStockAction 校验外部传入的动作名。
func ParseStockAction(v string) (StockAction, error) {
	a := StockAction(strings.ToLower(strings.TrimSpace(v)))
	switch a {
	case StockAdd, StockSubtract, StockSet:
		return a, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStockAction, v)
}
