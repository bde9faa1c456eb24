package handler

import (
	"net/http"

	"Ewm_Platform/internal/service"

	"github.com/gin-gonic/gin"
)

type CompilationHandler struct {
	svc *service.CompilationService
}

func NewCompilationHandler(svc *service.CompilationService) *CompilationHandler {
	return &CompilationHandler{svc: svc}
}

type compilationReq struct {
	Title  *string  `json:"title" binding:"omitempty,min=1,max=50"`
	Pinned *bool    `json:"pinned"`
	Events []uint64 `json:"events"`
}

func (r compilationReq) toInput() service.CompilationInput {
	return service.CompilationInput{Title: r.Title, Pinned: r.Pinned, Events: r.Events}
}

func (h *CompilationHandler) Create(c *gin.Context) {
	var req compilationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	v, err := h.svc.Create(c.Request.Context(), req.toInput())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, v)
}

func (h *CompilationHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "compId")
	if !ok {
		return
	}
	var req compilationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	v, err := h.svc.Update(c.Request.Context(), id, req.toInput())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *CompilationHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "compId")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CompilationHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "compId")
	if !ok {
		return
	}
	v, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// List GET /compilations?pinned=
func (h *CompilationHandler) List(c *gin.Context) {
	pinned, err := queryBool(c, "pinned")
	if err != nil {
		badRequest(c, err)
		return
	}
	from, size, err := pageParams(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	list, err := h.svc.List(c.Request.Context(), pinned, from, size)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}
