package user

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/dental-api/internal/handler"
	"github.com/jwalitptl/dental-api/internal/model"
	userService "github.com/jwalitptl/dental-api/internal/service/user"
	apperrors "github.com/jwalitptl/dental-api/pkg/errors"
)

type Handler struct {
	service userService.UserServicer
}

func NewHandler(service userService.UserServicer) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	users := r.Group("/users")
	{
		users.GET("", h.ListUsers)
		users.GET("/email/:email", h.GetUserByEmail)
		users.POST("", h.UpsertUser)
		users.DELETE("", h.DeleteUser)
	}
}

// RegisterPublicRoutes registers the routes that stay open when /api
// requires a token.
func (h *Handler) RegisterPublicRoutes(r *gin.RouterGroup) {
	users := r.Group("/users")
	{
		users.POST("/login", h.Login)
		users.POST("/otp/send", h.SendOTP)
		users.POST("/otp/verify", h.VerifyOTP)
	}
}

func (h *Handler) ListUsers(c *gin.Context) {
	if email := c.Query("email"); email != "" {
		user, err := h.service.GetUserByEmail(c.Request.Context(), email)
		if err != nil {
			handler.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, user)
		return
	}

	users, err := h.service.ListUsers(c.Request.Context(), c.Query("clinicId"))
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *Handler) GetUserByEmail(c *gin.Context) {
	user, err := h.service.GetUserByEmail(c.Request.Context(), c.Param("email"))
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	if user == nil {
		handler.RespondError(c, apperrors.NotFound("user", nil))
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) UpsertUser(c *gin.Context) {
	var req model.User
	if !handler.BindJSON(c, &req) {
		return
	}

	user, err := h.service.UpsertUser(c.Request.Context(), &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) DeleteUser(c *gin.Context) {
	if err := h.service.DeleteUser(c.Request.Context(), c.Query("id"), c.Query("clinicId")); err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.Deleted)
}

func (h *Handler) Login(c *gin.Context) {
	var req model.LoginRequest
	if !handler.BindAndValidate(c, &req) {
		return
	}

	resp, err := h.service.Login(c.Request.Context(), &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) SendOTP(c *gin.Context) {
	var req model.OTPSendRequest
	if !handler.BindAndValidate(c, &req) {
		return
	}

	resp, err := h.service.SendOTP(c.Request.Context(), req.Phone)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) VerifyOTP(c *gin.Context) {
	var req model.OTPVerifyRequest
	if !handler.BindAndValidate(c, &req) {
		return
	}

	resp, err := h.service.VerifyOTP(c.Request.Context(), &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
