// Package router 管理路由配置，将路径和处理器绑定到 gin 引擎.
// 处理器的实现由 pkg/internal/handle 提供.
package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterAPIRoutes 注册业务路由到 /api/v1 路由组.
func RegisterAPIRoutes(g *gin.RouterGroup) {
	RegisterOutputRoutes(g)
	RegisterWorkingRoutes(g)
	RegisterChildrenRoutes(g)
	RegisterPreviewRoutes(g)
	RegisterFarmRoutes(g)
}
