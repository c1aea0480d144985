package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type CategoryStatus string

const (
	CategoryActive   CategoryStatus = "active"
	CategoryInactive CategoryStatus = "inactive"
)

// Category 商品分类
type Category struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name        string         `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	Icon        string         `gorm:"size:50" json:"icon"`
	Status      CategoryStatus `gorm:"size:16;not null;default:active;check:chk_categories_status,status IN ('active','inactive')" json:"status"`
}

func (Category) TableName() string { return "categories" }

type ProductStatus string

const (
	ProductActive       ProductStatus = "active"
	ProductInactive     ProductStatus = "inactive"
	ProductOutOfStock   ProductStatus = "out_of_stock"
	ProductDiscontinued ProductStatus = "discontinued"
)

func (s ProductStatus) Valid() bool {
	switch s {
	case ProductActive, ProductInactive, ProductOutOfStock, ProductDiscontinued:
		return true
	}
	return false
}

// Product 商品：价格、成本价、库存。
// Quantity 只通过库存台账的条件更新修改，数据库层 CHECK 兜底非负。
type Product struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name        string          `gorm:"size:200;not null" json:"name"`
	SKU         string          `gorm:"column:sku;size:50;uniqueIndex;not null" json:"sku"`
	Description string          `gorm:"type:text" json:"description"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2);not null;check:chk_products_price,price >= 0" json:"price"`
	CostPrice   decimal.Decimal `gorm:"type:decimal(12,2);not null;check:chk_products_cost_price,cost_price >= 0" json:"cost_price"`
	Quantity    int             `gorm:"not null;default:0;index;check:chk_products_quantity,quantity >= 0" json:"quantity"`
	CategoryID  uint            `gorm:"not null;index" json:"category_id"`
	Category    *Category       `gorm:"foreignKey:CategoryID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"category,omitempty"`
	Status      ProductStatus   `gorm:"size:16;not null;default:active;index;check:chk_products_status,status IN ('active','inactive','out_of_stock','discontinued')" json:"status"`
	Featured    bool            `gorm:"not null;default:false" json:"featured"`
}

func (Product) TableName() string { return "products" }
