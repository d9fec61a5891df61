package restapi

import (
	"strings"

	"wallet_tracker/internal/app/port"
	"wallet_tracker/internal/domain/entity"

	"github.com/gin-gonic/gin"
)

// PortfoliosResponse is the payload of GET /portfolios.
type PortfoliosResponse struct {
	Portfolios    []entity.Portfolio      `json:"portfolios"`
	ServiceErrors []entity.PortfolioError `json:"serviceErrors,omitempty"`
	FailedWallets []string                `json:"failedWallets,omitempty"`
	StatusMessage string                  `json:"statusMessage"`
}

// PortfolioHandler handles portfolio HTTP requests.
type PortfolioHandler struct {
	portfolioService port.PortfolioService
	trackedNetworks  []string
}

// NewPortfolioHandler creates a new instance of PortfolioHandler.
func NewPortfolioHandler(ps port.PortfolioService, trackedNetworks []string) *PortfolioHandler {
	return &PortfolioHandler{portfolioService: ps, trackedNetworks: trackedNetworks}
}

// GetPortfolio answers GET /wallets/:address/portfolio?networks=a,b.
func (h *PortfolioHandler) GetPortfolio(c *gin.Context) {
	var networks []string
	if raw := c.Query("networks"); raw != "" {
		networks = strings.Split(raw, ",")
	}
	p, err := h.portfolioService.GetPortfolio(c.Request.Context(), c.Param("address"), networks)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, p)
}

// GetPortfolios answers GET /portfolios for every tracked wallet.
func (h *PortfolioHandler) GetPortfolios(c *gin.Context) {
	portfolios, serviceErrors := h.portfolioService.FetchAllWalletsPortfolio(c.Request.Context(), h.trackedNetworks)

	response := PortfoliosResponse{
		Portfolios:    portfolios,
		ServiceErrors: serviceErrors,
		FailedWallets: h.portfolioService.GetFailedWallets(),
	}
	switch {
	case len(serviceErrors) > 0 && len(portfolios) == 0:
		response.StatusMessage = "Failed to retrieve any portfolios due to service errors."
	case len(serviceErrors) > 0:
		response.StatusMessage = "Portfolios retrieved. Some wallets or networks encountered errors."
	case len(portfolios) == 0:
		response.StatusMessage = "No portfolio data found. Check the wallet list and network configuration."
	default:
		response.StatusMessage = "Portfolios retrieved successfully."
	}
	respondOK(c, response)
}

// GetFailedWallets answers GET /portfolios/failed with the wallets that errored in the last full run.
func (h *PortfolioHandler) GetFailedWallets(c *gin.Context) {
	failed := h.portfolioService.GetFailedWallets()
	if failed == nil {
		failed = []string{}
	}
	respondOK(c, gin.H{"failedWallets": failed})
}
