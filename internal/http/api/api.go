package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Nixie-Tech-LLC/signage/internal/db"
)

// APIError is written as {"error": Message} with status Code.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string { return e.Message }

func NewError(code int, message string) *APIError {
	return &APIError{Code: code, Message: message}
}

// StoreError maps store sentinels to HTTP errors; anything unexpected is a
// 500 with the generic message.
func StoreError(err error, message string) *APIError {
	switch {
	case errors.Is(err, db.ErrNotFound):
		return NewError(http.StatusNotFound, "not found")
	case errors.Is(err, db.ErrConflict):
		return NewError(http.StatusConflict, "already exists")
	}
	return NewError(http.StatusInternalServerError, message)
}

type HandlerFunc func(ctx *gin.Context) (any, *APIError)

type statusBody struct {
	code int
	body any
}

// WithStatus overrides the default 200 for a handler result.
func WithStatus(code int, body any) any {
	return statusBody{code: code, body: body}
}

// NoContent responds 204.
func NoContent() any {
	return statusBody{code: http.StatusNoContent}
}

func ResolveEndpoint(h HandlerFunc) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		result, apiErr := h(ctx)
		if apiErr != nil {
			ctx.AbortWithStatusJSON(apiErr.Code, gin.H{"error": apiErr.Message})
			return
		}
		// handler already wrote the response (e.g. 304)
		if ctx.Writer.Written() {
			return
		}

		if sb, ok := result.(statusBody); ok {
			if sb.body == nil {
				ctx.Status(sb.code)
				ctx.Writer.WriteHeaderNow()
				return
			}
			ctx.JSON(sb.code, sb.body)
			return
		}
		ctx.JSON(http.StatusOK, result)
	}
}
