package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"walletwise-api/internal/service"
)

type BudgetController struct {
	budgets service.BudgetService
}

func NewBudgetController(budgets service.BudgetService) *BudgetController {
	return &BudgetController{budgets: budgets}
}

func (c *BudgetController) Save(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}

	var req service.SaveBudgetRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request format",
			Message: err.Error(),
		})
		return
	}

	budget, err := c.budgets.Save(ctx.Request.Context(), userID, &req)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, budget)
}

func (c *BudgetController) Get(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}

	status, err := c.budgets.Get(ctx.Request.Context(), userID, ctx.Param("month"))
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, status)
}

func (c *BudgetController) Delete(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}

	if err := c.budgets.Delete(ctx.Request.Context(), userID, ctx.Param("month")); err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Budget deleted"})
}
