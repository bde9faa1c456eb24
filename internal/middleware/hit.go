package middleware

import (
	"net/http"
	"time"

	"Ewm_Platform/internal/pkg"
	"Ewm_Platform/internal/statsclient"

	"github.com/gin-gonic/gin"
)

const hitTimeout = 2 * time.Second

// RecordHit 公开活动接口成功返回后异步上报一次访问
func RecordHit(rec statsclient.Recorder, app string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if rec == nil || c.Writer.Status() >= http.StatusBadRequest {
			return
		}
		statsclient.RecordAsync(rec, pkg.EndpointHit{
			App:       app,
			URI:       c.Request.URL.Path,
			IP:        c.ClientIP(),
			Timestamp: pkg.NewDateTime(time.Now()),
		}, hitTimeout)
	}
}
