package api

import (
	"net/http"
	"strconv"

	"github.com/avlobanov/aerobook/internal/domain"
	"github.com/avlobanov/aerobook/internal/service/booking"
	"github.com/gin-gonic/gin"
	qrcode "github.com/skip2/go-qrcode"
)

type BookingHandler struct {
	service booking.BookingUseCase
}

func NewBookingHandler(service booking.BookingUseCase) *BookingHandler {
	return &BookingHandler{service: service}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.POST("/bookings", h.create)
	router.GET("/bookings/:id", h.get)
	router.PUT("/bookings/:id/cancel", h.cancel)
	router.GET("/bookings/:id/pass", h.boardingPass)
	router.GET("/users/:id/bookings", h.listForUser)
}

func (h *BookingHandler) create(c *gin.Context) {
	var req booking.CreateBookingInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	created, err := h.service.Create(c.Request.Context(), claimsFrom(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, created)
}

func (h *BookingHandler) get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	b, err := h.service.GetByID(c.Request.Context(), claimsFrom(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, b)
}

func (h *BookingHandler) cancel(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	cancelled, err := h.service.Cancel(c.Request.Context(), claimsFrom(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, cancelled)
}

// boardingPass renders the booking reference as a QR PNG for confirmed
// bookings.
func (h *BookingHandler) boardingPass(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	b, err := h.service.GetByID(c.Request.Context(), claimsFrom(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if b.Status != domain.BookingStatusConfirmed {
		respondError(c, domain.InvalidState("boarding pass is only available for confirmed bookings"))
		return
	}

	png, err := qrcode.Encode(b.Reference, qrcode.Medium, 256)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

func (h *BookingHandler) listForUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	bookings, err := h.service.ListForUser(c.Request.Context(), claimsFrom(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, bookings)
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondBadRequest(c, "invalid id")
		return 0, false
	}
	return id, true
}
