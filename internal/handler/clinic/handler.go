package clinic

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/dental-api/internal/handler"
	"github.com/jwalitptl/dental-api/internal/model"
	clinicService "github.com/jwalitptl/dental-api/internal/service/clinic"
	apperrors "github.com/jwalitptl/dental-api/pkg/errors"
)

type Handler struct {
	service clinicService.ClinicServicer
}

func NewHandler(service clinicService.ClinicServicer) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	clinics := r.Group("/clinics")
	{
		clinics.GET("", h.ListClinics)
		clinics.GET("/:id", h.GetClinic)
		clinics.POST("", h.UpsertClinic)
		clinics.DELETE("", h.DeleteClinic)
	}
}

// ListClinics answers a single clinic, or null, when ?id= is given.
func (h *Handler) ListClinics(c *gin.Context) {
	if id := c.Query("id"); id != "" {
		clinic, err := h.service.GetClinic(c.Request.Context(), id)
		if err != nil {
			handler.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, clinic)
		return
	}

	clinics, err := h.service.ListClinics(c.Request.Context())
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, clinics)
}

func (h *Handler) GetClinic(c *gin.Context) {
	clinic, err := h.service.GetClinic(c.Request.Context(), c.Param("id"))
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	if clinic == nil {
		handler.RespondError(c, apperrors.NotFound("clinic", nil))
		return
	}
	c.JSON(http.StatusOK, clinic)
}

func (h *Handler) UpsertClinic(c *gin.Context) {
	var req model.Clinic
	if !handler.BindJSON(c, &req) {
		return
	}

	clinic, err := h.service.UpsertClinic(c.Request.Context(), &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, clinic)
}

func (h *Handler) DeleteClinic(c *gin.Context) {
	if err := h.service.DeleteClinic(c.Request.Context(), c.Query("id")); err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.Deleted)
}
