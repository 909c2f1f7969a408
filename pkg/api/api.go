// Package api 聚合 HTTP 服务的路由注册.
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/outputvault/pkg/internal/router"
)

// RegisterGroup 注册全部业务与运维路由到传入的 gin 引擎.
func RegisterGroup(e *gin.Engine) *gin.Engine {
	v1 := e.Group("/api/v1")
	router.RegisterAPIRoutes(v1)
	router.RegisterHealthCheckRoute(v1)
	router.RegisterSchedulerRoutes(v1)

	return e
}
