// Package catalog serves the /services routes.
package catalog

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/dental-api/internal/handler"
	"github.com/jwalitptl/dental-api/internal/model"
	catalogService "github.com/jwalitptl/dental-api/internal/service/catalog"
)

type Handler struct {
	service catalogService.CatalogServicer
}

func NewHandler(service catalogService.CatalogServicer) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	services := r.Group("/services")
	{
		services.GET("", h.ListServices)
		services.GET("/:id", h.GetService)
		services.POST("", h.UpsertService)
		services.DELETE("", h.DeleteService)
	}
}

func (h *Handler) ListServices(c *gin.Context) {
	services, err := h.service.ListServices(c.Request.Context(), c.Query("clinicId"))
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, services)
}

func (h *Handler) GetService(c *gin.Context) {
	svc, err := h.service.GetService(c.Request.Context(), c.Param("id"))
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, svc)
}

func (h *Handler) UpsertService(c *gin.Context) {
	var req model.Service
	if !handler.BindJSON(c, &req) {
		return
	}

	svc, err := h.service.UpsertService(c.Request.Context(), &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, svc)
}

func (h *Handler) DeleteService(c *gin.Context) {
	if err := h.service.DeleteService(c.Request.Context(), c.Query("id"), c.Query("clinicId")); err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.Deleted)
}
