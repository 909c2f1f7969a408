package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/outputvault/pkg/internal/handle"
)

// RegisterChildrenRoutes 注册衍生文件相关路由.
func RegisterChildrenRoutes(g *gin.RouterGroup) {
	// 按父文件访问
	g.GET("/output-files/:fileId/children", handle.ListChildrenFiles)
	g.POST("/output-files/:fileId/children/plan", handle.PlanChildrenFiles)

	childrenRoutes := g.Group("/children-files")
	{
		childrenRoutes.GET("/:childId", handle.GetChildrenFile)         // 衍生文件详情
		childrenRoutes.POST("/:childId/reset", handle.ResetChildrenFile) // 重置回 PENDING 重新生成
	}
}
