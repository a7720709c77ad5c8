package payment

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/dental-api/internal/handler"
	"github.com/jwalitptl/dental-api/internal/model"
	paymentService "github.com/jwalitptl/dental-api/internal/service/payment"
)

type Handler struct {
	service paymentService.PaymentServicer
}

func NewHandler(service paymentService.PaymentServicer) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	payments := r.Group("/payments")
	{
		payments.GET("", h.ListPayments)
		payments.GET("/:id", h.GetPayment)
		payments.POST("", h.UpsertPayment)
		payments.DELETE("/:id", h.DeletePayment)
	}
}

type upsertPaymentRequest struct {
	ID      string               `json:"id"`
	VisitID string               `json:"visitId" validate:"required"`
	Amount  *float64             `json:"amount" validate:"required"`
	Method  *model.PaymentMethod `json:"method" validate:"omitempty,oneof=cash ewallet"`
	Date    model.Timestamp      `json:"date"`
}

func (h *Handler) ListPayments(c *gin.Context) {
	payments, err := h.service.ListPayments(c.Request.Context(), c.Query("visitId"), c.Query("clinicId"))
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payments)
}

func (h *Handler) GetPayment(c *gin.Context) {
	payment, err := h.service.GetPayment(c.Request.Context(), c.Param("id"))
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

func (h *Handler) UpsertPayment(c *gin.Context) {
	var req upsertPaymentRequest
	if !handler.BindAndValidate(c, &req) {
		return
	}

	payment, err := h.service.UpsertPayment(c.Request.Context(), &model.Payment{
		ClinicScoped: model.ClinicScoped{ID: req.ID},
		VisitID:      req.VisitID,
		Amount:       *req.Amount,
		Method:       req.Method,
		Date:         req.Date,
	})
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

func (h *Handler) DeletePayment(c *gin.Context) {
	if err := h.service.DeletePayment(c.Request.Context(), c.Param("id")); err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.Deleted)
}
