package api

import (
	"net/http"

	"github.com/avlobanov/aerobook/internal/repository"
	"github.com/avlobanov/aerobook/internal/service/flights"
	"github.com/gin-gonic/gin"
)

type FlightHandler struct {
	service flights.FlightUseCase
}

func NewFlightHandler(service flights.FlightUseCase) *FlightHandler {
	return &FlightHandler{service: service}
}

// Register mounts the public, read-only flight routes.
func (h *FlightHandler) Register(router *gin.RouterGroup) {
	router.GET("/flights", h.list)
	router.GET("/flights/:id", h.get)
}

// RegisterAdmin mounts the flight management routes.
func (h *FlightHandler) RegisterAdmin(router *gin.RouterGroup) {
	router.GET("/flights", h.listAll)
	router.POST("/flights", h.create)
	router.PUT("/flights/:id", h.update)
	router.DELETE("/flights/:id", h.delete)
}

func (h *FlightHandler) list(c *gin.Context) {
	filter := repository.FlightFilter{
		Origin:        c.Query("origin"),
		Destination:   c.Query("destination"),
		DepartureDate: c.Query("date"),
		ActiveOnly:    true,
	}

	result, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, result)
}

func (h *FlightHandler) listAll(c *gin.Context) {
	result, err := h.service.List(c.Request.Context(), repository.FlightFilter{
		Origin:        c.Query("origin"),
		Destination:   c.Query("destination"),
		DepartureDate: c.Query("date"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, result)
}

func (h *FlightHandler) get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	flight, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, flight)
}

func (h *FlightHandler) create(c *gin.Context) {
	var req flights.FlightInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	flight, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, flight)
}

func (h *FlightHandler) update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req flights.FlightInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	flight, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, flight)
}

func (h *FlightHandler) delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"deleted": true})
}
