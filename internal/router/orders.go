package router

import (
	"strings"

	"shop_admin/internal/model"
	"shop_admin/internal/repository"
	"shop_admin/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultPageSize = 20

// placeOrder 同步下单：校验、扣库存、写订单在同一事务内完成，返回完整订单。
func placeOrder(orders *service.OrderService, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in service.PlaceOrderInput
		if err := c.ShouldBindJSON(&in); err != nil {
			badRequest(c, err.Error())
			return
		}
		o, err := orders.PlaceOrder(c.Request.Context(), actorOf(c), in)
		if err != nil {
			fail(c, log, err)
			return
		}
		created(c, o)
	}
}

func listOrders(orders *service.OrderService, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, valid := intQuery(c, "page", 1)
		if !valid {
			return
		}
		limit, valid := intQuery(c, "limit", defaultPageSize)
		if !valid {
			return
		}
		if page < 1 {
			page = 1
		}
		if limit < 1 {
			limit = defaultPageSize
		}
		from, valid := timeQuery(c, "from")
		if !valid {
			return
		}
		to, valid := endTimeQuery(c, "to")
		if !valid {
			return
		}

		f := repository.OrderFilter{
			Status:        model.OrderStatus(c.Query("status")),
			PaymentStatus: model.PaymentStatus(c.Query("payment_status")),
			Search:        strings.TrimSpace(c.Query("search")),
			From:          from,
			To:            to,
			Limit:         limit,
			Offset:        (page - 1) * limit,
		}
		list, total, err := orders.ListOrders(c.Request.Context(), actorOf(c), f)
		if err != nil {
			fail(c, log, err)
			return
		}
		ok(c, gin.H{
			"items": list,
			"total": total,
			"page":  page,
			"limit": limit,
		})
	}
}

func getOrder(orders *service.OrderService, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, valid := idParam(c, "id")
		if !valid {
			return
		}
		o, err := orders.GetOrder(c.Request.Context(), actorOf(c), id)
		if err != nil {
			fail(c, log, err)
			return
		}
		ok(c, o)
	}
}

func updateOrderStatus(orders *service.OrderService, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, valid := idParam(c, "id")
		if !valid {
			return
		}
		var in service.UpdateStatusInput
		if err := c.ShouldBindJSON(&in); err != nil {
			badRequest(c, err.Error())
			return
		}
		o, err := orders.UpdateStatus(c.Request.Context(), actorOf(c), id, in)
		if err != nil {
			fail(c, log, err)
			return
		}
		ok(c, o)
	}
}

func cancelOrder(orders *service.OrderService, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, valid := idParam(c, "id")
		if !valid {
			return
		}
		o, err := orders.CancelOrder(c.Request.Context(), actorOf(c), id)
		if err != nil {
			fail(c, log, err)
			return
		}
		ok(c, o)
	}
}
