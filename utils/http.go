package utils

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/steamtrust/backend/types"
	"github.com/steamtrust/backend/utils/logger"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 1000
)

// APIResponse is a helper function to return an API response
func APIResponse(ctx *gin.Context, httpCode int, status string, message string, data interface{}) {
	ctx.JSON(httpCode, types.Response{
		Status:  status,
		Message: message,
		Data:    data,
	})
}

// Language returns the negotiated response language stored on the context
func Language(ctx *gin.Context) string {
	if lang := ctx.GetString("lang"); lang != "" {
		return lang
	}
	return types.LangEN
}

// ErrorResponse writes err as an API error. AppErrors keep their status,
// localized message and details; anything else is a 500.
func ErrorResponse(ctx *gin.Context, err error) {
	if appErr, ok := types.AsAppError(err); ok {
		data := map[string]interface{}{"code": appErr.Code}
		for key, value := range appErr.Details {
			data[key] = value
		}
		APIResponse(ctx, appErr.Status, "error", appErr.Message(Language(ctx)), data)
		return
	}

	logger.WithFields(logger.Fields{
		"Error": fmt.Sprintf("%v", err),
		"Path":  ctx.FullPath(),
	}).Errorf("Unhandled error")

	internal := types.ErrInternal(err)
	APIResponse(ctx, internal.Status, "error", internal.Message(Language(ctx)), map[string]interface{}{"code": internal.Code})
}

// GetErrorData returns the per-field messages of a binding error
func GetErrorData(err error) []types.ErrorData {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return []types.ErrorData{{Field: "body", Message: err.Error()}}
	}

	errorData := make([]types.ErrorData, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		errorData = append(errorData, types.ErrorData{
			Field:   fieldErr.Field(),
			Message: fieldMessage(fieldErr),
		})
	}
	return errorData
}

func fieldMessage(fieldErr validator.FieldError) string {
	switch fieldErr.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email address"
	case "numeric":
		return "Must be a number"
	case "oneof":
		return "Must be one of: " + fieldErr.Param()
	case "min":
		return "Must be at least " + fieldErr.Param()
	case "max":
		return "Must be at most " + fieldErr.Param()
	case "gtefield":
		return "Must be greater than or equal to " + fieldErr.Param()
	default:
		return "Invalid value"
	}
}

// BindingErrorResponse writes a validation error for a failed request binding
func BindingErrorResponse(ctx *gin.Context, err error) {
	appErr := types.ErrValidation(nil)
	APIResponse(ctx, appErr.Status, "error", appErr.Message(Language(ctx)), GetErrorData(err))
}

// Paginate parses page, limit and order query params. Page defaults to 1,
// limit to 10 and is capped at 1000; order is asc or desc (default).
func Paginate(ctx *gin.Context) types.Pagination {
	page, err := strconv.Atoi(ctx.Query("page"))
	if err != nil || page < 1 {
		page = 1
	}

	limit, err := strconv.Atoi(ctx.Query("limit"))
	if err != nil || limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	return types.Pagination{
		Page:  page,
		Limit: limit,
		Desc:  !strings.EqualFold(ctx.Query("order"), "asc"),
	}
}
