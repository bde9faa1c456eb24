package handler

import (
	"net/http"

	"Ewm_Platform/internal/service"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	svc *service.UserService
}

func NewUserHandler(svc *service.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

// NewUserReq 管理端新建用户
type NewUserReq struct {
	Name  string `json:"name" binding:"required,min=2,max=250"`
	Email string `json:"email" binding:"required,email,min=6,max=254"`
}

// Create POST /admin/users
func (h *UserHandler) Create(c *gin.Context) {
	var req NewUserReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	u, err := h.svc.Create(c.Request.Context(), req.Name, req.Email)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

// List GET /admin/users?ids=&from=&size=
func (h *UserHandler) List(c *gin.Context) {
	ids, err := queryIDs(c, "ids")
	if err != nil {
		badRequest(c, err)
		return
	}
	from, size, err := pageParams(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	list, err := h.svc.List(c.Request.Context(), ids, from, size)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Delete DELETE /admin/users/:userId
func (h *UserHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "userId")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
