package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"walletwise-api/internal/service"
)

// AdminController exposes the operational reconciliation endpoints, guarded
// by the admin API key.
type AdminController struct {
	reconcile service.ReconcileService
}

func NewAdminController(reconcile service.ReconcileService) *AdminController {
	return &AdminController{reconcile: reconcile}
}

// RunSweep triggers a full reconciliation pass over all users.
func (c *AdminController) RunSweep(ctx *gin.Context) {
	batch, err := c.reconcile.RunSweep(ctx.Request.Context())
	if err != nil {
		ctx.JSON(http.StatusConflict, ErrorResponse{
			Error:   "Reconciliation sweep not started",
			Message: err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusOK, batch)
}

// ReconcileUser recomputes and corrects a single user's balance.
func (c *AdminController) ReconcileUser(ctx *gin.Context) {
	userID, ok := objectIDParam(ctx, "userId")
	if !ok {
		return
	}

	report, err := c.reconcile.ReconcileUser(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, report)
}

// DriftReport reports a user's drift without correcting it.
func (c *AdminController) DriftReport(ctx *gin.Context) {
	userID, ok := objectIDParam(ctx, "userId")
	if !ok {
		return
	}

	report, err := c.reconcile.DriftReport(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, report)
}
