package router

import (
	"Ewm_Platform/internal/handler"
	"Ewm_Platform/internal/middleware"
	"Ewm_Platform/internal/service"
	"Ewm_Platform/internal/statsclient"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MainDeps 主服务路由依赖
type MainDeps struct {
	Events       *service.EventService
	Requests     *service.RequestService
	Categories   *service.CategoryService
	Users        *service.UserService
	Compilations *service.CompilationService
	Hits         statsclient.Recorder
	AppName      string
}

func InitRouter(d MainDeps) *gin.Engine {
	r := gin.Default()
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	event := handler.NewEventHandler(d.Events)
	request := handler.NewRequestHandler(d.Requests)
	category := handler.NewCategoryHandler(d.Categories)
	user := handler.NewUserHandler(d.Users)
	compilation := handler.NewCompilationHandler(d.Compilations)

	// 公开接口，活动读取会上报访问记录
	publicEvents := r.Group("/events")
	publicEvents.Use(middleware.RecordHit(d.Hits, d.AppName))
	{
		publicEvents.GET("", event.PublicSearch)
		publicEvents.GET("/:id", event.PublicGet)
	}
	r.GET("/categories", category.List)
	r.GET("/categories/:catId", category.Get)
	r.GET("/compilations", compilation.List)
	r.GET("/compilations/:compId", compilation.Get)

	// 用户接口，身份来自路径参数
	userGroup := r.Group("/users/:userId")
	{
		userGroup.GET("/events", event.ListMine)
		userGroup.POST("/events", event.Create)
		userGroup.GET("/events/:eventId", event.GetMine)
		userGroup.PATCH("/events/:eventId", event.UpdateMine)
		userGroup.POST("/events/:eventId/cancel", event.CancelMine)
		userGroup.GET("/events/:eventId/requests", request.ListForEvent)
		userGroup.PATCH("/events/:eventId/requests", request.UpdateStatuses)
		userGroup.POST("/events/:eventId/requests/:reqId/confirm", request.Confirm)
		userGroup.POST("/events/:eventId/requests/:reqId/reject", request.Reject)
		userGroup.GET("/requests", request.ListMine)
		userGroup.POST("/requests", request.Create)
		userGroup.PATCH("/requests/:requestId/cancel", request.Cancel)
	}

	// 管理端接口
	admin := r.Group("/admin")
	{
		admin.GET("/users", user.List)
		admin.POST("/users", user.Create)
		admin.DELETE("/users/:userId", user.Delete)

		admin.POST("/categories", category.Create)
		admin.PATCH("/categories/:catId", category.Rename)
		admin.DELETE("/categories/:catId", category.Delete)

		admin.GET("/events", event.AdminSearch)
		admin.PATCH("/events/:eventId", event.AdminUpdate)

		admin.POST("/compilations", compilation.Create)
		admin.PATCH("/compilations/:compId", compilation.Update)
		admin.DELETE("/compilations/:compId", compilation.Delete)
	}

	return r
}

// InitStatsRouter 统计服务路由
func InitStatsRouter(svc *service.StatsService) *gin.Engine {
	r := gin.Default()
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	stats := handler.NewStatsHandler(svc)
	r.POST("/hit", stats.Hit)
	r.GET("/stats", stats.Stats)
	return r
}
