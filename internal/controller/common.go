package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"walletwise-api/internal/ledger"
	"walletwise-api/internal/middleware"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// respondError maps ledger error types onto HTTP statuses. A partial
// application is reported as 500 with an explicit code: the record was
// written, the balance was not, and the client must not blindly retry.
func respondError(ctx *gin.Context, err error) {
	var validationErr *ledger.ValidationError
	if errors.As(err, &validationErr) {
		ctx.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Validation failed",
			Message: validationErr.Reason,
			Code:    "validation_error",
		})
		return
	}

	var notFound *ledger.NotFoundError
	if errors.As(err, &notFound) {
		ctx.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "Not found",
			Message: notFound.Error(),
			Code:    "not_found",
		})
		return
	}

	var partial *ledger.PartialApplicationError
	if errors.As(err, &partial) {
		ctx.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Operation partially applied",
			Message: "The transaction was recorded but the wallet balance update failed; it will be corrected by reconciliation",
			Code:    "partial_application",
		})
		return
	}

	var unavailable *ledger.StoreUnavailableError
	if errors.As(err, &unavailable) {
		ctx.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error:   "Service temporarily unavailable",
			Message: "The data store is unreachable, please retry",
			Code:    "store_unavailable",
		})
		return
	}

	ctx.JSON(http.StatusInternalServerError, ErrorResponse{
		Error:   "Internal server error",
		Message: err.Error(),
	})
}

// requireUser pulls the authenticated user ID or aborts with 401.
func requireUser(ctx *gin.Context) (primitive.ObjectID, bool) {
	userID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "Unauthorized",
			Message: "Authentication required",
		})
		return primitive.NilObjectID, false
	}
	return userID, true
}

// objectIDParam parses an ObjectID path parameter or aborts with 400.
func objectIDParam(ctx *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(ctx.Param(name))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid identifier",
			Message: "Path parameter " + name + " must be a valid object ID",
		})
		return primitive.NilObjectID, false
	}
	return id, true
}
