package handler

import (
	"net/http"

	"Ewm_Platform/internal/pkg"
	"Ewm_Platform/internal/service"

	"github.com/gin-gonic/gin"
)

type EventHandler struct {
	svc *service.EventService
}

func NewEventHandler(svc *service.EventService) *EventHandler {
	return &EventHandler{svc: svc}
}

type locationReq struct {
	Lat *float64 `json:"lat" binding:"required,min=-90,max=90"`
	Lon *float64 `json:"lon" binding:"required,min=-180,max=180"`
}

func (l *locationReq) toLocation() *service.Location {
	if l == nil {
		return nil
	}
	return &service.Location{Lat: *l.Lat, Lon: *l.Lon}
}

// NewEventReq 创建活动请求体；requestModeration 缺省为 true
type NewEventReq struct {
	Title             string        `json:"title" binding:"required,min=3,max=120"`
	Annotation        string        `json:"annotation" binding:"required,min=20,max=2000"`
	Description       string        `json:"description" binding:"required,min=20,max=7000"`
	Category          uint64        `json:"category" binding:"required"`
	EventDate         *pkg.DateTime `json:"eventDate" binding:"required"`
	Location          *locationReq  `json:"location" binding:"required"`
	Paid              bool          `json:"paid"`
	ParticipantLimit  int64         `json:"participantLimit" binding:"min=0"`
	RequestModeration *bool         `json:"requestModeration"`
}

type UpdateEventReq struct {
	Title             *string       `json:"title" binding:"omitempty,min=3,max=120"`
	Annotation        *string       `json:"annotation" binding:"omitempty,min=20,max=2000"`
	Description       *string       `json:"description" binding:"omitempty,min=20,max=7000"`
	Category          *uint64       `json:"category" binding:"omitempty,min=1"`
	EventDate         *pkg.DateTime `json:"eventDate"`
	Location          *locationReq  `json:"location"`
	Paid              *bool         `json:"paid"`
	ParticipantLimit  *int64        `json:"participantLimit" binding:"omitempty,min=0"`
	RequestModeration *bool         `json:"requestModeration"`
	StateAction       string        `json:"stateAction"`
	Comment           string        `json:"comment" binding:"max=2000"`
}

func (r *UpdateEventReq) toInput() service.UpdateEventInput {
	in := service.UpdateEventInput{
		Title:             r.Title,
		Annotation:        r.Annotation,
		Description:       r.Description,
		CategoryID:        r.Category,
		Location:          r.Location.toLocation(),
		Paid:              r.Paid,
		ParticipantLimit:  r.ParticipantLimit,
		RequestModeration: r.RequestModeration,
		StateAction:       r.StateAction,
		Comment:           r.Comment,
	}
	if r.EventDate != nil {
		t := r.EventDate.Time()
		in.EventDate = &t
	}
	return in
}

// Create POST /users/:userId/events
func (h *EventHandler) Create(c *gin.Context) {
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}
	var req NewEventReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	moderation := true
	if req.RequestModeration != nil {
		moderation = *req.RequestModeration
	}
	p, err := h.svc.Create(c.Request.Context(), userID, service.NewEventInput{
		Title:             req.Title,
		Annotation:        req.Annotation,
		Description:       req.Description,
		CategoryID:        req.Category,
		EventDate:         req.EventDate.Time(),
		Location:          *req.Location.toLocation(),
		Paid:              req.Paid,
		ParticipantLimit:  req.ParticipantLimit,
		RequestModeration: moderation,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// ListMine GET /users/:userId/events
func (h *EventHandler) ListMine(c *gin.Context) {
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}
	from, size, err := pageParams(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	list, err := h.svc.ListByInitiator(c.Request.Context(), userID, from, size)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// GetMine GET /users/:userId/events/:eventId
func (h *EventHandler) GetMine(c *gin.Context) {
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}
	eventID, ok := pathID(c, "eventId")
	if !ok {
		return
	}
	p, err := h.svc.GetByInitiator(c.Request.Context(), userID, eventID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// UpdateMine PATCH /users/:userId/events/:eventId
func (h *EventHandler) UpdateMine(c *gin.Context) {
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}
	eventID, ok := pathID(c, "eventId")
	if !ok {
		return
	}
	var req UpdateEventReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	p, err := h.svc.UpdateByInitiator(c.Request.Context(), userID, eventID, req.toInput())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// CancelMine POST /users/:userId/events/:eventId/cancel，body 可选 {"reason": "..."}
func (h *EventHandler) CancelMine(c *gin.Context) {
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}
	eventID, ok := pathID(c, "eventId")
	if !ok {
		return
	}
	var req struct {
		Reason string `json:"reason" binding:"max=2000"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	p, err := h.svc.Cancel(c.Request.Context(), userID, eventID, req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// AdminSearch GET /admin/events
func (h *EventHandler) AdminSearch(c *gin.Context) {
	users, err := queryIDs(c, "users")
	if err != nil {
		badRequest(c, err)
		return
	}
	cats, err := queryIDs(c, "categories")
	if err != nil {
		badRequest(c, err)
		return
	}
	start, end, err := timeRange(c, "rangeStart", "rangeEnd")
	if err != nil {
		writeError(c, err)
		return
	}
	from, size, err := pageParams(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	list, err := h.svc.SearchAdmin(c.Request.Context(), service.AdminSearch{
		Users:      users,
		States:     queryStrings(c, "states"),
		Categories: cats,
		RangeStart: start,
		RangeEnd:   end,
		From:       from,
		Size:       size,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// AdminUpdate PATCH /admin/events/:eventId
func (h *EventHandler) AdminUpdate(c *gin.Context) {
	eventID, ok := pathID(c, "eventId")
	if !ok {
		return
	}
	var req UpdateEventReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	p, err := h.svc.UpdateByAdmin(c.Request.Context(), eventID, req.toInput())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// PublicSearch GET /events
func (h *EventHandler) PublicSearch(c *gin.Context) {
	cats, err := queryIDs(c, "categories")
	if err != nil {
		badRequest(c, err)
		return
	}
	paid, err := queryBool(c, "paid")
	if err != nil {
		badRequest(c, err)
		return
	}
	onlyAvailable, err := queryBool(c, "onlyAvailable")
	if err != nil {
		badRequest(c, err)
		return
	}
	start, end, err := timeRange(c, "rangeStart", "rangeEnd")
	if err != nil {
		writeError(c, err)
		return
	}
	from, size, err := pageParams(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	q := service.PublicSearch{
		Text:       c.Query("text"),
		Categories: cats,
		Paid:       paid,
		RangeStart: start,
		RangeEnd:   end,
		Sort:       c.Query("sort"),
		From:       from,
		Size:       size,
	}
	if onlyAvailable != nil {
		q.OnlyAvailable = *onlyAvailable
	}
	list, err := h.svc.SearchPublic(c.Request.Context(), q)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// PublicGet GET /events/:id
func (h *EventHandler) PublicGet(c *gin.Context) {
	eventID, ok := pathID(c, "id")
	if !ok {
		return
	}
	p, err := h.svc.GetPublished(c.Request.Context(), eventID, service.ViewWindow{})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}
