package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"Ewm_Platform/internal/model"
	"Ewm_Platform/internal/service"

	"github.com/gin-gonic/gin"
)

type RequestHandler struct {
	svc *service.RequestService
}

func NewRequestHandler(svc *service.RequestService) *RequestHandler {
	return &RequestHandler{svc: svc}
}

type statusUpdateReq struct {
	RequestIDs []uint64 `json:"requestIds" binding:"required,min=1"`
	Status     string   `json:"status" binding:"required,oneof=CONFIRMED REJECTED"`
}

// Create POST /users/:userId/requests?eventId=
func (h *RequestHandler) Create(c *gin.Context) {
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}
	eventID, err := strconv.ParseUint(c.Query("eventId"), 10, 64)
	if err != nil || eventID == 0 {
		badRequest(c, fmt.Errorf("bad eventId %q", c.Query("eventId")))
		return
	}
	rq, err := h.svc.Create(c.Request.Context(), userID, eventID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rq)
}

// ListMine GET /users/:userId/requests
func (h *RequestHandler) ListMine(c *gin.Context) {
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}
	list, err := h.svc.ListForRequester(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Cancel PATCH /users/:userId/requests/:requestId/cancel
func (h *RequestHandler) Cancel(c *gin.Context) {
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}
	requestID, ok := pathID(c, "requestId")
	if !ok {
		return
	}
	rq, err := h.svc.Cancel(c.Request.Context(), userID, requestID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rq)
}

// ListForEvent GET /users/:userId/events/:eventId/requests
func (h *RequestHandler) ListForEvent(c *gin.Context) {
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}
	eventID, ok := pathID(c, "eventId")
	if !ok {
		return
	}
	list, err := h.svc.ListForEvent(c.Request.Context(), userID, eventID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// UpdateStatuses PATCH /users/:userId/events/:eventId/requests
func (h *RequestHandler) UpdateStatuses(c *gin.Context) {
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}
	eventID, ok := pathID(c, "eventId")
	if !ok {
		return
	}
	var req statusUpdateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	res, err := h.svc.UpdateStatuses(c.Request.Context(), userID, eventID, req.RequestIDs, model.RequestStatus(req.Status))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Confirm POST /users/:userId/events/:eventId/requests/:reqId/confirm
func (h *RequestHandler) Confirm(c *gin.Context) {
	h.decide(c, h.svc.Confirm)
}

// Reject POST /users/:userId/events/:eventId/requests/:reqId/reject
func (h *RequestHandler) Reject(c *gin.Context) {
	h.decide(c, h.svc.Reject)
}

func (h *RequestHandler) decide(c *gin.Context, fn func(ctx context.Context, initiatorID, eventID, requestID uint64) (service.RequestView, error)) {
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}
	eventID, ok := pathID(c, "eventId")
	if !ok {
		return
	}
	requestID, ok := pathID(c, "reqId")
	if !ok {
		return
	}
	rq, err := fn(c.Request.Context(), userID, eventID, requestID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rq)
}
