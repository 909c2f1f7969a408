package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/outputvault/pkg/internal/service"
	"github.com/yeisme/outputvault/pkg/internal/types"
	"github.com/yeisme/outputvault/pkg/log"
)

// CreateWorkingFile 登记工作文件（按路径幂等）.
//
//	@Summary		登记工作文件
//	@Description	同一路径重复登记返回既有档案而非报错
//	@Tags			工作文件
//	@Accept			json
//	@Produce		json
//	@Param			body	types.NewWorkingFileRequest	true	"登记参数"
//	@Success		200		{object}					types.NewWorkingFileResponse
//	@Failure		400		{object}					map[string]string
//	@Router			/api/v1/working-files [post]
func CreateWorkingFile(c *gin.Context) {
	l := log.Logger()

	var req types.NewWorkingFileRequest
	if err := c.ShouldBind(&req); err != nil {
		l.Warn().Err(err).Msg("invalid request")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	if _, err := checkUser(c); err != nil {
		l.Warn().Err(err).Msg("missing or invalid user")
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing user"})

		return
	}

	svc := service.NewWorkingService(c.Request.Context())

	resp, err := svc.CreateWorkingFile(c.Request.Context(), &req)
	if err != nil {
		replyError(c, l, err, "create working file failed")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetWorkingFile 查询工作文件.
//
//	@Summary	工作文件详情
//	@Tags		工作文件
//	@Produce	json
//	@Param		fileId	path		string	true	"工作文件ID"
//	@Success	200		{object}	types.WorkingFileInfo
//	@Failure	404		{object}	map[string]string
//	@Router		/api/v1/working-files/{fileId} [get]
func GetWorkingFile(c *gin.Context) {
	l := log.Logger()

	fileID := c.Param("fileId")
	if fileID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing fileId"})
		return
	}

	svc := service.NewWorkingService(c.Request.Context())

	resp, err := svc.GetWorkingFile(c.Request.Context(), fileID)
	if err != nil {
		replyError(c, l, err, "get working file failed")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ListTaskWorkingFiles 某任务下的工作文件列表.
//
//	@Summary	任务工作文件列表
//	@Tags		工作文件
//	@Produce	json
//	@Param		taskId	path		string	true	"任务ID"
//	@Success	200		{object}	types.ListWorkingFilesResponse
//	@Router		/api/v1/tasks/{taskId}/working-files [get]
func ListTaskWorkingFiles(c *gin.Context) {
	l := log.Logger()

	taskID := c.Param("taskId")
	if taskID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing taskId"})
		return
	}

	svc := service.NewWorkingService(c.Request.Context())

	resp, err := svc.ListForTask(c.Request.Context(), taskID)
	if err != nil {
		replyError(c, l, err, "list task working files failed")
		return
	}

	c.JSON(http.StatusOK, resp)
}
