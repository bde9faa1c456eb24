package handler

import (
	"net/http"

	"Ewm_Platform/internal/pkg"
	"Ewm_Platform/internal/service"

	"github.com/gin-gonic/gin"
)

// StatsHandler 统计服务接口
type StatsHandler struct {
	svc *service.StatsService
}

func NewStatsHandler(svc *service.StatsService) *StatsHandler {
	return &StatsHandler{svc: svc}
}

// Hit POST /hit
func (h *StatsHandler) Hit(c *gin.Context) {
	var req pkg.EndpointHit
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	hit, err := h.svc.Record(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, pkg.EndpointHit{
		App:       hit.App,
		URI:       hit.URI,
		IP:        hit.IP,
		Timestamp: pkg.NewDateTime(hit.Timestamp),
	})
}

// Stats GET /stats?start=&end=&uris=&unique=
func (h *StatsHandler) Stats(c *gin.Context) {
	start, end, err := timeRange(c, "start", "end")
	if err != nil {
		writeError(c, err)
		return
	}
	unique, err := queryBool(c, "unique")
	if err != nil {
		badRequest(c, err)
		return
	}
	list, err := h.svc.Stats(c.Request.Context(), start, end, queryStrings(c, "uris"), unique != nil && *unique)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}
