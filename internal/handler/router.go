package handler

import (
	"net/http"

	"tokenledger/internal/service"
	"tokenledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter builds the HTTP surface. Webhook endpoints are split per
// provider even though both settle through the same gateway; providers
// get distinct URLs to point at.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(Logger(), Recovery(), CORS(), Metrics())
	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c, "route not found")
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	{
		account := v1.Group("/account")
		{
			account.POST("/start", h.Start)
			account.GET("/balance", h.Balance)
			account.POST("/tier", h.SetTier)
			account.POST("/preset", h.SetPreset)
			account.GET("/referrals", h.Referrals)
			account.GET("/find", h.Find)
			account.GET("/transactions", h.Transactions)
		}

		topup := v1.Group("/topup")
		{
			topup.POST("/create", h.CreateTopup)
			topup.GET("/packages", listPackages)
		}

		payments := v1.Group("/payments")
		{
			payments.POST("/card/webhook", h.PaymentWebhook)
			payments.POST("/stars/webhook", h.PaymentWebhook)
		}

		admin := v1.Group("/admin")
		{
			admin.POST("/adjust", h.AdminAdjust)
			admin.GET("/logs", h.AdminLogs)
		}

		generations := v1.Group("/generations")
		{
			generations.POST("", h.StartGeneration)
			generations.GET("", h.GetGeneration)
			generations.POST("/complete", h.CompleteGeneration)
			generations.POST("/fail", h.FailGeneration)
		}
	}

	return r
}

func listPackages(c *gin.Context) {
	response.Success(c, gin.H{
		"card":  service.ListCardPackages(),
		"stars": service.ListStarsPackages(),
	})
}
