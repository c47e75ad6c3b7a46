package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"walletwise-api/internal/service"
)

type GoalController struct {
	goals service.GoalService
}

func NewGoalController(goals service.GoalService) *GoalController {
	return &GoalController{goals: goals}
}

type ContributeRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
}

func (c *GoalController) Create(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}

	var req service.CreateGoalRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request format",
			Message: err.Error(),
		})
		return
	}

	goal, err := c.goals.Create(ctx.Request.Context(), userID, &req)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, goal)
}

func (c *GoalController) List(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}

	goals, err := c.goals.List(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"goals": goals})
}

func (c *GoalController) Contribute(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}

	goalID, ok := objectIDParam(ctx, "id")
	if !ok {
		return
	}

	var req ContributeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request format",
			Message: err.Error(),
		})
		return
	}

	goal, err := c.goals.Contribute(ctx.Request.Context(), userID, goalID, req.Amount)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, goal)
}

func (c *GoalController) Delete(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}

	goalID, ok := objectIDParam(ctx, "id")
	if !ok {
		return
	}

	if err := c.goals.Delete(ctx.Request.Context(), userID, goalID); err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Goal deleted"})
}
