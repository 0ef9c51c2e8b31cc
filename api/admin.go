package api

import (
	"net/http"

	"github.com/avlobanov/aerobook/internal/service/stats"
	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	stats stats.StatsUseCase
}

func NewAdminHandler(stats stats.StatsUseCase) *AdminHandler {
	return &AdminHandler{stats: stats}
}

func (h *AdminHandler) Register(router *gin.RouterGroup) {
	router.GET("/stats", h.dashboard)
}

func (h *AdminHandler) dashboard(c *gin.Context) {
	dashboard, err := h.stats.Dashboard(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, dashboard)
}
