package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"walletwise-api/internal/service"
)

type DashboardController struct {
	dashboard service.DashboardService
}

func NewDashboardController(dashboard service.DashboardService) *DashboardController {
	return &DashboardController{dashboard: dashboard}
}

func (c *DashboardController) GetSummary(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}

	summary, err := c.dashboard.GetSummary(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, summary)
}
