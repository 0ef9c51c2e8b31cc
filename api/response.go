package api

import (
	"errors"
	"net/http"

	"github.com/avlobanov/aerobook/internal/domain"
	"github.com/gin-gonic/gin"
)

// All endpoints answer with the same envelope.
type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Error   interface{} `json:"error,omitempty"`
}

func respond(c *gin.Context, status int, data interface{}) {
	c.JSON(status, envelope{Success: true, Data: data})
}

type errorBody struct {
	Code   domain.ErrorCode  `json:"code"`
	Fields map[string]string `json:"fields,omitempty"`
}

func respondError(c *gin.Context, err error) {
	var de *domain.Error
	if !errors.As(err, &de) {
		c.JSON(http.StatusInternalServerError, envelope{Success: false, Message: "internal server error"})
		return
	}

	c.JSON(statusFor(de.Code), envelope{
		Success: false,
		Message: de.Message,
		Error:   errorBody{Code: de.Code, Fields: de.Fields},
	})
}

func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, envelope{Success: false, Message: message, Error: errorBody{Code: domain.CodeValidation}})
}

func statusFor(code domain.ErrorCode) int {
	switch code {
	case domain.CodeNotFound:
		return http.StatusNotFound
	case domain.CodeForbidden:
		return http.StatusForbidden
	case domain.CodeUnauthorized:
		return http.StatusUnauthorized
	case domain.CodeValidation, domain.CodeAmountMismatch:
		return http.StatusBadRequest
	case domain.CodeCapacityExceeded, domain.CodeInvalidState, domain.CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
