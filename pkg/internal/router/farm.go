package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/outputvault/pkg/internal/handle"
)

// RegisterFarmRoutes 注册渲染农场相关路由.
func RegisterFarmRoutes(g *gin.RouterGroup) {
	farmRoutes := g.Group("/farm")
	{
		farmRoutes.POST("/jobs", handle.SubmitRenderJob)      // 提交渲染作业
		farmRoutes.POST("/jobs/attach", handle.SetRenderJob)  // 挂接既有作业
		farmRoutes.GET("/pools", handle.ListFarmPools)        // 渲染池列表
		farmRoutes.GET("/instances", handle.ListFarmInstances) // 渲染节点列表
	}
}
