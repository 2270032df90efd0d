// Package http exposes the ledger over a JSON REST API.
package http

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/simaogato/ledgerflow-backend/internal/usecase/ledger"
	"github.com/simaogato/ledgerflow-backend/internal/usecase/report"
)

// RouterConfig carries the transport settings of the REST API
type RouterConfig struct {
	Mode           string // gin mode: debug, release or test
	APIToken       string
	AllowedOrigins []string // empty allows every origin
}

// NewRouter configures the gin engine with middleware and every route
func NewRouter(cfg RouterConfig, ledgerService *ledger.LedgerService, reportService *report.ReportService, logger logrus.FieldLogger) (*gin.Engine, error) {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	if err := RegisterValidators(); err != nil {
		return nil, err
	}

	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(logger), cors.New(corsConfig(cfg.AllowedOrigins)))

	r.GET("/healthz", healthz)

	h := NewHandler(ledgerService, reportService)
	api := r.Group("/", AuthMiddleware(cfg.APIToken))
	{
		tx := api.Group("/transactions")
		tx.POST("", h.CreateEntry)
		tx.GET("", h.ListRecentEntries)
		tx.GET("/paginated", h.ListEntries)
		tx.POST("/recompute", h.RecomputeBalances)
		tx.GET("/:id", h.GetEntry)
		tx.PATCH("/:id", h.UpdateEntry)
		tx.DELETE("/:id", h.DeleteEntry)

		api.GET("/balance", h.CurrentBalance)
		api.GET("/monthly-summary", h.CurrentMonthOverview)
		api.GET("/yearly-summary", h.CurrentYearOverview)

		reports := api.Group("/reports")
		reports.GET("/range", h.SummarizeRange)
		reports.GET("/daily", h.Daily)
		reports.GET("/weekly", h.Weekly)
		reports.GET("/monthly", h.Monthly)
		reports.GET("/yearly", h.Yearly)
		reports.GET("/total", h.Total)
		reports.GET("/monthly/paginated", h.PaginatedMonthly)
		reports.GET("/yearly/paginated", h.PaginatedYearly)
		reports.GET("/monthly/export", h.ExportMonthly)
		reports.GET("/yearly/export", h.ExportYearly)
	}

	return r, nil
}

func corsConfig(origins []string) cors.Config {
	c := cors.DefaultConfig()
	if len(origins) == 0 {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
	}
	c.AddAllowMethods("PATCH")
	c.AddAllowHeaders("Authorization")
	c.AddExposeHeaders("Content-Disposition")
	return c
}
