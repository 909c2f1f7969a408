package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/outputvault/pkg/internal/service"
	"github.com/yeisme/outputvault/pkg/internal/types"
	"github.com/yeisme/outputvault/pkg/log"
)

// GetPreviewPath 返回输出文件某槽位预览图片在对象存储中的键.
//
//	@Summary	预览图片键
//	@Tags		预览
//	@Produce	json
//	@Param		fileId	path		string	true	"输出文件ID"
//	@Param		slot	path		string	true	"槽位 original/thumbnails/previews"
//	@Success	200		{object}	types.PreviewPathResponse
//	@Router		/api/v1/previews/{fileId}/{slot} [get]
func GetPreviewPath(c *gin.Context) {
	l := log.Logger()

	fileID := c.Param("fileId")
	slot := c.Param("slot")

	if fileID == "" || slot == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing fileId/slot"})
		return
	}

	svc := service.NewPreviewService(c.Request.Context())

	resp, err := svc.PicturePath(fileID, slot)
	if err != nil {
		replyError(c, l, err, "get preview path failed")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// DeletePreview 删除输出文件的预览图片.
//
//	@Summary	删除预览图片
//	@Tags		预览
//	@Accept		json
//	@Param		fileId	path	string						true	"输出文件ID"
//	@Param		body	types.DeletePreviewRequest	false	"槽位列表，空则全删"
//	@Success	204
//	@Router		/api/v1/previews/{fileId} [delete]
func DeletePreview(c *gin.Context) {
	l := log.Logger()

	fileID := c.Param("fileId")
	if fileID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing fileId"})
		return
	}

	var req types.DeletePreviewRequest
	if err := c.ShouldBind(&req); err != nil && c.Request.ContentLength > 0 {
		l.Warn().Err(err).Msg("invalid request")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	svc := service.NewPreviewService(c.Request.Context())
	if err := svc.DeletePreview(c.Request.Context(), fileID, req.Slots); err != nil {
		replyError(c, l, err, "delete preview failed")
		return
	}

	c.Status(http.StatusNoContent)
}
