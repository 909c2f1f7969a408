package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/outputvault/pkg/internal/handle"
)

// RegisterOutputRoutes 注册输出文件相关路由.
func RegisterOutputRoutes(g *gin.RouterGroup) {
	outputRoutes := g.Group("/output-files")
	{
		outputRoutes.POST("", handle.CreateOutputFile)                 // 登记输出文件修订
		outputRoutes.GET("/next-revision", handle.NextRevision)        // 查询下一修订号
		outputRoutes.GET("/:fileId", handle.GetOutputFile)             // 输出文件详情
		outputRoutes.DELETE("/:fileId", handle.CancelOutputFile)       // 废弃输出文件
		outputRoutes.POST("/:fileId/dependencies", handle.AttachDependent) // 挂接依赖文件
		outputRoutes.GET("/:fileId/dependencies", handle.ListDependents)   // 依赖文件列表
	}

	// 按归属作用域列表
	g.GET("/entities/:entityId/output-files", handle.ListEntityOutputFiles)
	g.GET("/entities/:entityId/output-types", handle.ListEntityOutputTypes)
	g.GET("/asset-instances/:instanceId/output-files", handle.ListInstanceOutputFiles)
	g.GET("/asset-instances/:instanceId/output-types", handle.ListInstanceOutputTypes)
}
