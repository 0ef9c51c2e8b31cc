package api

import (
	"net/http"

	"github.com/avlobanov/aerobook/internal/service/payments"
	"github.com/gin-gonic/gin"
)

type PaymentHandler struct {
	service payments.PaymentUseCase
}

func NewPaymentHandler(service payments.PaymentUseCase) *PaymentHandler {
	return &PaymentHandler{service: service}
}

func (h *PaymentHandler) Register(router *gin.RouterGroup) {
	router.POST("/payments", h.create)
}

func (h *PaymentHandler) RegisterAdmin(router *gin.RouterGroup) {
	router.POST("/payments/:id/refund", h.refund)
}

func (h *PaymentHandler) create(c *gin.Context) {
	var req payments.ProcessPaymentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}
	req.IdempotencyKey = c.GetHeader("Idempotency-Key")

	payment, err := h.service.Process(c.Request.Context(), claimsFrom(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, payment)
}

func (h *PaymentHandler) refund(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	payment, err := h.service.Refund(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, payment)
}
