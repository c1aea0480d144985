package router

import (
	"shop_admin/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func createCategory(catalog *service.CatalogService, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in service.CreateCategoryInput
		if err := c.ShouldBindJSON(&in); err != nil {
			badRequest(c, err.Error())
			return
		}
		cat, err := catalog.CreateCategory(c.Request.Context(), actorOf(c), in)
		if err != nil {
			fail(c, log, err)
			return
		}
		created(c, cat)
	}
}

func createProduct(catalog *service.CatalogService, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in service.ProductInput
		if err := c.ShouldBindJSON(&in); err != nil {
			badRequest(c, err.Error())
			return
		}
		p, err := catalog.CreateProduct(c.Request.Context(), actorOf(c), in)
		if err != nil {
			fail(c, log, err)
			return
		}
		created(c, p)
	}
}

// updateProduct 不改库存，库存只能走 /stock。
func updateProduct(catalog *service.CatalogService, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, valid := idParam(c, "id")
		if !valid {
			return
		}
		var in service.ProductInput
		if err := c.ShouldBindJSON(&in); err != nil {
			badRequest(c, err.Error())
			return
		}
		p, err := catalog.UpdateProduct(c.Request.Context(), actorOf(c), id, in)
		if err != nil {
			fail(c, log, err)
			return
		}
		ok(c, p)
	}
}

func getProduct(catalog *service.CatalogService, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, valid := idParam(c, "id")
		if !valid {
			return
		}
		p, err := catalog.GetProduct(c.Request.Context(), id)
		if err != nil {
			fail(c, log, err)
			return
		}
		ok(c, p)
	}
}

// deleteProduct 已有订单的商品返回 409，应改为下架。
func deleteProduct(catalog *service.CatalogService, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, valid := idParam(c, "id")
		if !valid {
			return
		}
		if err := catalog.DeleteProduct(c.Request.Context(), actorOf(c), id); err != nil {
			fail(c, log, err)
			return
		}
		ok(c, nil)
	}
}

func adjustStock(catalog *service.CatalogService, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, valid := idParam(c, "id")
		if !valid {
			return
		}
		var req struct {
			Action   string `json:"action" binding:"required"`
			Quantity *int   `json:"quantity" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		action, err := service.ParseStockAction(req.Action)
		if err != nil {
			fail(c, log, err)
			return
		}
		p, err := catalog.AdjustStock(c.Request.Context(), actorOf(c), id, action, *req.Quantity)
		if err != nil {
			fail(c, log, err)
			return
		}
		ok(c, p)
	}
}

func lowStock(reports *service.ReportService, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		threshold, valid := intQuery(c, "threshold", reports.LowStockThreshold())
		if !valid {
			return
		}
		limit, valid := intQuery(c, "limit", 50)
		if !valid {
			return
		}
		list, err := reports.LowStock(c.Request.Context(), actorOf(c), threshold, limit)
		if err != nil {
			fail(c, log, err)
			return
		}
		ok(c, list)
	}
}
