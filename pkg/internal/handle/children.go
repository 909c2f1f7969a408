package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/outputvault/pkg/internal/service"
	"github.com/yeisme/outputvault/pkg/log"
)

// ListChildrenFiles 某输出文件的衍生文件列表.
//
//	@Summary	衍生文件列表
//	@Tags		衍生文件
//	@Produce	json
//	@Param		fileId	path		string	true	"输出文件ID"
//	@Success	200		{object}	types.ListChildrenFilesResponse
//	@Failure	404		{object}	map[string]string
//	@Router		/api/v1/output-files/{fileId}/children [get]
func ListChildrenFiles(c *gin.Context) {
	l := log.Logger()

	fileID := c.Param("fileId")
	if fileID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing fileId"})
		return
	}

	svc := service.NewChildrenService(c.Request.Context())

	resp, err := svc.ListChildrenFiles(c.Request.Context(), fileID)
	if err != nil {
		replyError(c, l, err, "list children files failed")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetChildrenFile 查询衍生文件.
//
//	@Summary	衍生文件详情
//	@Tags		衍生文件
//	@Produce	json
//	@Param		childId	path		string	true	"衍生文件ID"
//	@Success	200		{object}	types.ChildrenFileInfo
//	@Failure	404		{object}	map[string]string
//	@Router		/api/v1/children-files/{childId} [get]
func GetChildrenFile(c *gin.Context) {
	l := log.Logger()

	childID := c.Param("childId")
	if childID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing childId"})
		return
	}

	svc := service.NewChildrenService(c.Request.Context())

	resp, err := svc.GetChildrenFile(c.Request.Context(), childID)
	if err != nil {
		replyError(c, l, err, "get children file failed")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ResetChildrenFile 把终态衍生文件重置回 PENDING 并重新排队.
//
//	@Summary	重置衍生文件
//	@Tags		衍生文件
//	@Param		childId	path	string	true	"衍生文件ID"
//	@Success	204
//	@Failure	404	{object}	map[string]string
//	@Router		/api/v1/children-files/{childId}/reset [post]
func ResetChildrenFile(c *gin.Context) {
	l := log.Logger()

	childID := c.Param("childId")
	if childID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing childId"})
		return
	}

	svc := service.NewChildrenService(c.Request.Context())
	if err := svc.ResetChildrenFile(c.Request.Context(), childID); err != nil {
		replyError(c, l, err, "reset children file failed")
		return
	}

	c.Status(http.StatusNoContent)
}

// PlanChildrenFiles 对既有输出文件重新执行衍生规划.
//
//	@Summary	重新规划衍生
//	@Tags		衍生文件
//	@Produce	json
//	@Param		fileId	path		string	true	"输出文件ID"
//	@Success	200		{object}	types.PlanChildrenResponse
//	@Failure	404		{object}	map[string]string
//	@Router		/api/v1/output-files/{fileId}/children/plan [post]
func PlanChildrenFiles(c *gin.Context) {
	l := log.Logger()

	fileID := c.Param("fileId")
	if fileID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing fileId"})
		return
	}

	svc := service.NewChildrenService(c.Request.Context())

	resp, err := svc.PlanChildren(c.Request.Context(), fileID)
	if err != nil {
		replyError(c, l, err, "plan children files failed")
		return
	}

	c.JSON(http.StatusOK, resp)
}
