package handler

import (
	"net/http"

	"Ewm_Platform/internal/service"

	"github.com/gin-gonic/gin"
)

type CategoryHandler struct {
	svc *service.CategoryService
}

func NewCategoryHandler(svc *service.CategoryService) *CategoryHandler {
	return &CategoryHandler{svc: svc}
}

type categoryReq struct {
	Name string `json:"name" binding:"required,min=1,max=50"`
}

func (h *CategoryHandler) Create(c *gin.Context) {
	var req categoryReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cat, err := h.svc.Create(c.Request.Context(), req.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cat)
}

func (h *CategoryHandler) Rename(c *gin.Context) {
	id, ok := pathID(c, "catId")
	if !ok {
		return
	}
	var req categoryReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cat, err := h.svc.Rename(c.Request.Context(), id, req.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cat)
}

// Delete 仍被活动引用时返回 409
func (h *CategoryHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "catId")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CategoryHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "catId")
	if !ok {
		return
	}
	cat, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cat)
}

func (h *CategoryHandler) List(c *gin.Context) {
	from, size, err := pageParams(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	list, err := h.svc.List(c.Request.Context(), from, size)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}
