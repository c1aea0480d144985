package router

import (
	"shop_admin/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func dashboard(reports *service.ReportService, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		d, err := reports.Dashboard(c.Request.Context(), actorOf(c))
		if err != nil {
			fail(c, log, err)
			return
		}
		ok(c, d)
	}
}

func stats(reports *service.ReportService, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, err := reports.Stats(c.Request.Context(), actorOf(c))
		if err != nil {
			fail(c, log, err)
			return
		}
		ok(c, s)
	}
}

// revenueReport period=day|week|month|custom，custom 需带 from/to。
func revenueReport(reports *service.ReportService, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		from, valid := timeQuery(c, "from")
		if !valid {
			return
		}
		to, valid := endTimeQuery(c, "to")
		if !valid {
			return
		}
		period := service.ReportPeriod(c.DefaultQuery("period", string(service.PeriodMonth)))
		rep, err := reports.RevenueFor(c.Request.Context(), actorOf(c), period, from, to)
		if err != nil {
			fail(c, log, err)
			return
		}
		ok(c, rep)
	}
}

func statusCounts(reports *service.ReportService, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := reports.StatusCounts(c.Request.Context(), actorOf(c))
		if err != nil {
			fail(c, log, err)
			return
		}
		ok(c, rows)
	}
}

func monthlyRevenue(reports *service.ReportService, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		months, valid := intQuery(c, "months", 12)
		if !valid {
			return
		}
		rows, err := reports.MonthlyRevenue(c.Request.Context(), actorOf(c), months)
		if err != nil {
			fail(c, log, err)
			return
		}
		ok(c, rows)
	}
}

func topProducts(reports *service.ReportService, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, valid := intQuery(c, "limit", 10)
		if !valid {
			return
		}
		rows, err := reports.TopProducts(c.Request.Context(), actorOf(c), limit)
		if err != nil {
			fail(c, log, err)
			return
		}
		ok(c, rows)
	}
}
