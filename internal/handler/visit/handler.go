package visit

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/dental-api/internal/handler"
	"github.com/jwalitptl/dental-api/internal/model"
	visitService "github.com/jwalitptl/dental-api/internal/service/visit"
	apperrors "github.com/jwalitptl/dental-api/pkg/errors"
)

type Handler struct {
	service visitService.VisitServicer
}

func NewHandler(service visitService.VisitServicer) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	visits := r.Group("/visits")
	{
		visits.GET("", h.ListVisits)
		visits.GET("/:id", h.GetVisit)
		visits.POST("", h.UpsertVisit)
		visits.POST("/:id/status", h.UpdateStatus)
		visits.DELETE("", h.DeleteVisit)
	}
}

func (h *Handler) ListVisits(c *gin.Context) {
	visits, err := h.service.ListVisits(c.Request.Context(), c.Query("clinicId"))
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, visits)
}

func (h *Handler) GetVisit(c *gin.Context) {
	visit, err := h.service.GetVisit(c.Request.Context(), c.Param("id"))
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, visit)
}

func (h *Handler) UpsertVisit(c *gin.Context) {
	var req model.Visit
	if !handler.BindJSON(c, &req) {
		return
	}

	visit, err := h.service.UpsertVisit(c.Request.Context(), &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, visit)
}

// UpdateStatus takes the status from ?status= or a {"status": ...} body.
func (h *Handler) UpdateStatus(c *gin.Context) {
	var req model.VisitStatusRequest
	req.Status = model.VisitStatus(c.Query("status"))
	if req.Status == "" && c.Request.ContentLength != 0 {
		if !handler.BindJSON(c, &req) {
			return
		}
	}
	if req.Status == "" {
		handler.RespondError(c, apperrors.BadRequest("status is required", nil))
		return
	}

	visit, err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, visit)
}

func (h *Handler) DeleteVisit(c *gin.Context) {
	if err := h.service.DeleteVisit(c.Request.Context(), c.Query("id"), c.Query("clinicId")); err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.Deleted)
}
