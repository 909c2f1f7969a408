package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/outputvault/pkg/internal/service"
	"github.com/yeisme/outputvault/pkg/internal/types"
	"github.com/yeisme/outputvault/pkg/log"
)

// CreateOutputFile 登记输出文件修订.
//
//	@Summary		登记输出文件
//	@Description	为实体或资产实例登记一个输出文件修订，修订号可显式指定或自动解析
//	@Tags			输出文件
//	@Accept			json
//	@Produce		json
//	@Param			body	types.NewOutputFileRequest	true	"登记参数"
//	@Success		201		{object}					types.NewOutputFileResponse
//	@Failure		400		{object}					map[string]string
//	@Failure		409		{object}					map[string]string
//	@Router			/api/v1/output-files [post]
func CreateOutputFile(c *gin.Context) {
	l := log.Logger()

	var req types.NewOutputFileRequest
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

	svc := service.NewOutputService(c.Request.Context())

	resp, err := svc.CreateOutputFile(c.Request.Context(), &req)
	if err != nil {
		replyError(c, l, err, "create output file failed")
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// GetOutputFile 查询输出文件.
//
//	@Summary	输出文件详情
//	@Tags		输出文件
//	@Produce	json
//	@Param		fileId	path		string	true	"输出文件ID"
//	@Success	200		{object}	types.OutputFileInfo
//	@Failure	404		{object}	map[string]string
//	@Router		/api/v1/output-files/{fileId} [get]
func GetOutputFile(c *gin.Context) {
	l := log.Logger()

	fileID := c.Param("fileId")
	if fileID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing fileId"})
		return
	}

	svc := service.NewOutputService(c.Request.Context())

	resp, err := svc.GetOutputFile(c.Request.Context(), fileID)
	if err != nil {
		replyError(c, l, err, "get output file failed")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ListEntityOutputFiles 实体作用域的输出文件列表.
//
//	@Summary	实体输出文件列表
//	@Tags		输出文件
//	@Produce	json
//	@Param		entityId	path		string						true	"实体ID"
//	@Param		query		query		types.ListOutputFilesRequest	false	"过滤条件"
//	@Success	200			{object}	types.ListOutputFilesResponse
//	@Router		/api/v1/entities/{entityId}/output-files [get]
func ListEntityOutputFiles(c *gin.Context) {
	l := log.Logger()

	entityID := c.Param("entityId")
	if entityID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing entityId"})
		return
	}

	var req types.ListOutputFilesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		l.Warn().Err(err).Msg("invalid request")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	svc := service.NewOutputService(c.Request.Context())

	resp, err := svc.ListForEntity(c.Request.Context(), entityID, &req)
	if err != nil {
		replyError(c, l, err, "list entity output files failed")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ListInstanceOutputFiles 资产实例作用域的输出文件列表.
//
//	@Summary	实例输出文件列表
//	@Tags		输出文件
//	@Produce	json
//	@Param		instanceId	path		string	true	"资产实例ID"
//	@Param		temporal_entity_id	query	string	false	"时间线实体ID"
//	@Success	200			{object}	types.ListOutputFilesResponse
//	@Router		/api/v1/asset-instances/{instanceId}/output-files [get]
func ListInstanceOutputFiles(c *gin.Context) {
	l := log.Logger()

	instanceID := c.Param("instanceId")
	if instanceID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing instanceId"})
		return
	}

	var req types.ListOutputFilesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		l.Warn().Err(err).Msg("invalid request")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	svc := service.NewOutputService(c.Request.Context())

	resp, err := svc.ListForInstance(c.Request.Context(), instanceID, c.Query("temporal_entity_id"), &req)
	if err != nil {
		replyError(c, l, err, "list instance output files failed")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// NextRevision 查询分组的下一个修订号.
//
//	@Summary	下一修订号
//	@Tags		输出文件
//	@Produce	json
//	@Param		query	query		types.NextRevisionRequest	true	"分组维度"
//	@Success	200		{object}	types.NextRevisionResponse
//	@Router		/api/v1/output-files/next-revision [get]
func NextRevision(c *gin.Context) {
	l := log.Logger()

	var req types.NextRevisionRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		l.Warn().Err(err).Msg("invalid request")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	svc := service.NewOutputService(c.Request.Context())

	resp, err := svc.NextRevision(c.Request.Context(), &req)
	if err != nil {
		replyError(c, l, err, "next revision failed")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// CancelOutputFile 废弃输出文件.
//
//	@Summary	废弃输出文件
//	@Tags		输出文件
//	@Param		fileId	path	string	true	"输出文件ID"
//	@Success	204
//	@Failure	404	{object}	map[string]string
//	@Router		/api/v1/output-files/{fileId} [delete]
func CancelOutputFile(c *gin.Context) {
	l := log.Logger()

	fileID := c.Param("fileId")
	if fileID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing fileId"})
		return
	}

	svc := service.NewOutputService(c.Request.Context())
	if err := svc.CancelOutputFile(c.Request.Context(), fileID); err != nil {
		replyError(c, l, err, "cancel output file failed")
		return
	}

	c.Status(http.StatusNoContent)
}

// AttachDependent 挂接依赖文件.
//
//	@Summary	挂接依赖文件
//	@Tags		输出文件
//	@Accept		json
//	@Produce	json
//	@Param		fileId	path		string						true	"输出文件ID"
//	@Param		body	types.AttachDependentRequest	true	"依赖参数"
//	@Success	200		{object}	types.DependentFileInfo
//	@Router		/api/v1/output-files/{fileId}/dependencies [post]
func AttachDependent(c *gin.Context) {
	l := log.Logger()

	fileID := c.Param("fileId")
	if fileID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing fileId"})
		return
	}

	var req types.AttachDependentRequest
	if err := c.ShouldBind(&req); err != nil {
		l.Warn().Err(err).Msg("invalid request")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	svc := service.NewOutputService(c.Request.Context())

	resp, err := svc.AttachDependent(c.Request.Context(), fileID, &req)
	if err != nil {
		replyError(c, l, err, "attach dependent failed")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ListDependents 列出依赖文件.
//
//	@Summary	依赖文件列表
//	@Tags		输出文件
//	@Produce	json
//	@Param		fileId	path		string	true	"输出文件ID"
//	@Success	200		{object}	types.ListDependentFilesResponse
//	@Router		/api/v1/output-files/{fileId}/dependencies [get]
func ListDependents(c *gin.Context) {
	l := log.Logger()

	fileID := c.Param("fileId")
	if fileID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing fileId"})
		return
	}

	svc := service.NewOutputService(c.Request.Context())

	resp, err := svc.ListDependents(c.Request.Context(), fileID)
	if err != nil {
		replyError(c, l, err, "list dependents failed")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ListEntityOutputTypes 实体作用域已出现过的输出类型.
//
//	@Summary	实体输出类型列表
//	@Tags		输出文件
//	@Produce	json
//	@Param		entityId	path		string	true	"实体ID"
//	@Success	200			{object}	types.ListOutputTypesResponse
//	@Router		/api/v1/entities/{entityId}/output-types [get]
func ListEntityOutputTypes(c *gin.Context) {
	l := log.Logger()

	entityID := c.Param("entityId")
	if entityID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing entityId"})
		return
	}

	svc := service.NewOutputService(c.Request.Context())

	resp, err := svc.OutputTypesForEntity(c.Request.Context(), entityID)
	if err != nil {
		replyError(c, l, err, "list entity output types failed")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ListInstanceOutputTypes 资产实例作用域已出现过的输出类型.
//
//	@Summary	实例输出类型列表
//	@Tags		输出文件
//	@Produce	json
//	@Param		instanceId			path	string	true	"资产实例ID"
//	@Param		temporal_entity_id	query	string	false	"时间线实体ID"
//	@Success	200					{object}	types.ListOutputTypesResponse
//	@Router		/api/v1/asset-instances/{instanceId}/output-types [get]
func ListInstanceOutputTypes(c *gin.Context) {
	l := log.Logger()

	instanceID := c.Param("instanceId")
	if instanceID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing instanceId"})
		return
	}

	svc := service.NewOutputService(c.Request.Context())

	resp, err := svc.OutputTypesForInstance(c.Request.Context(), instanceID, c.Query("temporal_entity_id"))
	if err != nil {
		replyError(c, l, err, "list instance output types failed")
		return
	}

	c.JSON(http.StatusOK, resp)
}
