package restapi

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// SetupRouter builds the gin engine with all API v1 routes and /metrics.
func SetupRouter(networks *NetworkHandler, portfolios *PortfolioHandler, z *zap.Logger) *gin.Engine {
	router := gin.New()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", requestIDHeader}
	corsConfig.ExposeHeaders = []string{requestIDHeader}
	router.Use(cors.New(corsConfig))
	router.Use(RequestID())
	router.Use(ZapLogger(z))
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/networks", networks.ListNetworks)

		n := v1.Group("/networks/:network")
		n.GET("/wallets/:address", networks.GetWallet)
		n.GET("/wallets/:address/tokens", networks.GetTokens)
		n.GET("/wallets/:address/token-transfers", networks.GetTokenTransfers)
		n.GET("/wallets/:address/transactions", networks.GetTransactions)
		n.GET("/transactions/:hash", networks.GetTransaction)
		n.GET("/cache/stats", networks.CacheStats)
		n.POST("/cache/sweep", networks.SweepCache)
		n.DELETE("/cache", networks.ClearCache)

		v1.GET("/wallets/:address/portfolio", portfolios.GetPortfolio)
		v1.GET("/portfolios", portfolios.GetPortfolios)
		v1.GET("/portfolios/failed", portfolios.GetFailedWallets)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, APIResponse{Error: &APIError{Kind: "NotFound", Message: "route not found"}})
	})
	return router
}
