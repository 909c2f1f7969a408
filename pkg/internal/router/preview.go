package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/outputvault/pkg/internal/handle"
)

// RegisterPreviewRoutes 注册预览图片相关路由.
func RegisterPreviewRoutes(g *gin.RouterGroup) {
	previewRoutes := g.Group("/previews")
	{
		previewRoutes.GET("/:fileId/:slot", handle.GetPreviewPath) // 预览图片对象键
		previewRoutes.DELETE("/:fileId", handle.DeletePreview)     // 删除预览图片
	}
}
