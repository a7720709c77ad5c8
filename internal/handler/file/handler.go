package file

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/dental-api/internal/handler"
	"github.com/jwalitptl/dental-api/internal/model"
	fileService "github.com/jwalitptl/dental-api/internal/service/file"
)

type Handler struct {
	service fileService.FileServicer
}

func NewHandler(service fileService.FileServicer) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	files := r.Group("/files")
	{
		files.GET("", h.ListFiles)
		files.GET("/:id", h.GetFile)
		files.POST("", h.UpsertFile)
		files.DELETE("", h.DeleteFile)
	}
}

func (h *Handler) ListFiles(c *gin.Context) {
	files, err := h.service.ListFiles(c.Request.Context(), c.Query("patientId"), c.Query("clinicId"))
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, files)
}

func (h *Handler) GetFile(c *gin.Context) {
	file, err := h.service.GetFile(c.Request.Context(), c.Param("id"))
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, file)
}

func (h *Handler) UpsertFile(c *gin.Context) {
	var req model.PatientFile
	if !handler.BindJSON(c, &req) {
		return
	}

	file, err := h.service.UpsertFile(c.Request.Context(), &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, file)
}

func (h *Handler) DeleteFile(c *gin.Context) {
	if err := h.service.DeleteFile(c.Request.Context(), c.Query("id"), c.Query("clinicId")); err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.Deleted)
}
