package controller

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"walletwise-api/internal/ledger"
	"walletwise-api/internal/models"
	"walletwise-api/internal/repository"
	"walletwise-api/internal/service"
)

type TransactionController struct {
	transactions service.TransactionService
}

func NewTransactionController(transactions service.TransactionService) *TransactionController {
	return &TransactionController{
		transactions: transactions,
	}
}

type CreateTransactionRequest struct {
	Kind          string          `json:"kind" binding:"required"`
	Amount        decimal.Decimal `json:"amount" binding:"required"`
	Category      string          `json:"category" binding:"required"`
	Description   string          `json:"description"`
	PaymentMethod string          `json:"payment_method"`
	Mood          string          `json:"mood"`
	Date          time.Time       `json:"date"`
}

type UpdateTransactionRequest struct {
	Kind          *string          `json:"kind"`
	Amount        *decimal.Decimal `json:"amount"`
	Category      *string          `json:"category"`
	Description   *string          `json:"description"`
	PaymentMethod *string          `json:"payment_method"`
	Mood          *string          `json:"mood"`
	Date          *time.Time       `json:"date"`
}

type ListTransactionsResponse struct {
	Transactions []*models.Transaction `json:"transactions"`
	Total        int64                 `json:"total"`
	Page         int                   `json:"page"`
	PerPage      int                   `json:"per_page"`
}

func (c *TransactionController) Create(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}

	var req CreateTransactionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request format",
			Message: err.Error(),
		})
		return
	}

	tx, err := c.transactions.Create(ctx.Request.Context(), userID, &ledger.CreateInput{
		Kind:          models.TransactionKind(req.Kind),
		Amount:        req.Amount,
		Category:      req.Category,
		Description:   req.Description,
		PaymentMethod: req.PaymentMethod,
		Mood:          req.Mood,
		Date:          req.Date,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, tx)
}

func (c *TransactionController) List(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}

	filter := repository.TransactionFilter{
		Kind:     ctx.Query("kind"),
		Category: ctx.Query("category"),
	}
	if page, err := strconv.Atoi(ctx.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if perPage, err := strconv.Atoi(ctx.DefaultQuery("per_page", "20")); err == nil {
		filter.PerPage = perPage
	}
	if from, err := time.Parse(time.RFC3339, ctx.Query("from")); err == nil {
		filter.From = from
	}
	if to, err := time.Parse(time.RFC3339, ctx.Query("to")); err == nil {
		filter.To = to
	}

	transactions, total, err := c.transactions.List(ctx.Request.Context(), userID, filter)
	if err != nil {
		respondError(ctx, err)
		return
	}

	if transactions == nil {
		transactions = []*models.Transaction{}
	}

	ctx.JSON(http.StatusOK, ListTransactionsResponse{
		Transactions: transactions,
		Total:        total,
		Page:         filter.Page,
		PerPage:      filter.PerPage,
	})
}

func (c *TransactionController) Get(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}

	txID, ok := objectIDParam(ctx, "id")
	if !ok {
		return
	}

	tx, err := c.transactions.Get(ctx.Request.Context(), userID, txID)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, tx)
}

func (c *TransactionController) Update(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}

	txID, ok := objectIDParam(ctx, "id")
	if !ok {
		return
	}

	var req UpdateTransactionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request format",
			Message: err.Error(),
		})
		return
	}

	changes := &ledger.UpdateInput{
		Amount:        req.Amount,
		Category:      req.Category,
		Description:   req.Description,
		PaymentMethod: req.PaymentMethod,
		Mood:          req.Mood,
		Date:          req.Date,
	}
	if req.Kind != nil {
		kind := models.TransactionKind(*req.Kind)
		changes.Kind = &kind
	}

	tx, err := c.transactions.Update(ctx.Request.Context(), userID, txID, changes)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, tx)
}

func (c *TransactionController) Delete(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}

	txID, ok := objectIDParam(ctx, "id")
	if !ok {
		return
	}

	if err := c.transactions.Delete(ctx.Request.Context(), userID, txID); err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Transaction deleted"})
}
