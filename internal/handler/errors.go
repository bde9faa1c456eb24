package handler

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"Ewm_Platform/internal/pkg"

	"github.com/gin-gonic/gin"
)

type apiError struct {
	Status    string       `json:"status"`
	Reason    string       `json:"reason"`
	Msg       string       `json:"msg"`
	Timestamp pkg.DateTime `json:"timestamp"`
}

// classify 按错误类型映射 HTTP 状态码
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, pkg.ErrNotFound):
		return http.StatusNotFound, "The required object was not found."
	case errors.Is(err, pkg.ErrDuplicateRequest):
		return http.StatusConflict, "Integrity constraint has been violated."
	case errors.Is(err, pkg.ErrConditionNotMet):
		return http.StatusConflict, "For the requested operation the conditions are not met."
	case errors.Is(err, pkg.ErrNoAccessRights):
		return http.StatusForbidden, "Access to the requested object is denied."
	case errors.Is(err, pkg.ErrInvalidRequest):
		return http.StatusBadRequest, "Incorrectly made request."
	case errors.Is(err, pkg.ErrContention):
		return http.StatusServiceUnavailable, "The resource is busy, retry later."
	}
	return http.StatusInternalServerError, "Internal server error."
}

func writeError(c *gin.Context, err error) {
	code, reason := classify(err)
	if code == http.StatusInternalServerError {
		log.Printf("%s %s err: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	if code == http.StatusServiceUnavailable {
		c.Header("Retry-After", "1")
	}
	c.AbortWithStatusJSON(code, apiError{
		Status:    strings.ToUpper(strings.ReplaceAll(http.StatusText(code), " ", "_")),
		Reason:    reason,
		Msg:       err.Error(),
		Timestamp: pkg.NewDateTime(time.Now()),
	})
}

// badRequest 参数绑定失败
func badRequest(c *gin.Context, err error) {
	writeError(c, fmt.Errorf("%w: %v", pkg.ErrInvalidRequest, err))
}

func pathID(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		badRequest(c, fmt.Errorf("bad path parameter %s=%q", name, c.Param(name)))
		return 0, false
	}
	return id, true
}

// queryIDs 同时支持 ?ids=1&ids=2 和 ?ids=1,2
func queryIDs(c *gin.Context, name string) ([]uint64, error) {
	var out []uint64
	for _, raw := range c.QueryArray(name) {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseUint(part, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("bad %s value %q", name, part)
			}
			out = append(out, id)
		}
	}
	return out, nil
}

func queryStrings(c *gin.Context, name string) []string {
	var out []string
	for _, raw := range c.QueryArray(name) {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func queryBool(c *gin.Context, name string) (*bool, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, fmt.Errorf("bad %s value %q", name, raw)
	}
	return &b, nil
}

// pageParams from 默认 0，size 默认 10
func pageParams(c *gin.Context) (int, int, error) {
	from, err := strconv.Atoi(c.DefaultQuery("from", "0"))
	if err != nil || from < 0 {
		return 0, 0, fmt.Errorf("bad from value %q", c.Query("from"))
	}
	size, err := strconv.Atoi(c.DefaultQuery("size", "10"))
	if err != nil || size <= 0 {
		return 0, 0, fmt.Errorf("bad size value %q", c.Query("size"))
	}
	return from, size, nil
}

func timeRange(c *gin.Context, startKey, endKey string) (*time.Time, *time.Time, error) {
	start, err := pkg.ParseOptionalDateTime(c.Query(startKey))
	if err != nil {
		return nil, nil, err
	}
	end, err := pkg.ParseOptionalDateTime(c.Query(endKey))
	if err != nil {
		return nil, nil, err
	}
	return start, end, nil
}
