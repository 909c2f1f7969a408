package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/outputvault/pkg/internal/handle"
)

// RegisterWorkingRoutes 注册工作文件相关路由.
func RegisterWorkingRoutes(g *gin.RouterGroup) {
	workingRoutes := g.Group("/working-files")
	{
		workingRoutes.POST("", handle.CreateWorkingFile)    // 登记工作文件（按路径幂等）
		workingRoutes.GET("/:fileId", handle.GetWorkingFile) // 工作文件详情
	}

	g.GET("/tasks/:taskId/working-files", handle.ListTaskWorkingFiles)
}
