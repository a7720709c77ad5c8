package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	apperrors "github.com/jwalitptl/dental-api/pkg/errors"
	"github.com/jwalitptl/dental-api/pkg/validator"
)

type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  "error",
		Message: message,
	}
}

// RespondError writes err as {"status":"error","message":...} with the status
// its AppError code maps to. Storage and internal errors carry the cause.
func RespondError(c *gin.Context, err error) {
	status := apperrors.HTTPStatus(err)
	message := err.Error()

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
		if appErr.Code == apperrors.ErrStorage || appErr.Code == apperrors.ErrInternal {
			message = appErr.Error()
		}
	}

	if status >= http.StatusInternalServerError {
		log.Error().
			Err(err).
			Str("request_id", c.GetString("request_id")).
			Str("path", c.Request.URL.Path).
			Msg("request failed")
	}

	c.AbortWithStatusJSON(status, NewErrorResponse(message))
}

// BindJSON decodes the body into obj and answers 400 on failure.
func BindJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, NewErrorResponse(err.Error()))
		return false
	}
	return true
}

// BindAndValidate is BindJSON followed by the struct's validate tags.
func BindAndValidate(c *gin.Context, obj interface{}) bool {
	if !BindJSON(c, obj) {
		return false
	}
	if err := validator.Struct(obj); err != nil {
		RespondError(c, apperrors.BadRequest(err.Error(), err))
		return false
	}
	return true
}

// Deleted is the body of a successful delete.
var Deleted = gin.H{"success": true}
