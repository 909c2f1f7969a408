package handle

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yeisme/outputvault/pkg/internal/renderfarm"
	"github.com/yeisme/outputvault/pkg/internal/service"
	"github.com/yeisme/outputvault/pkg/internal/types"
	"github.com/yeisme/outputvault/pkg/log"
)

// SubmitRenderJob 向渲染农场提交作业并挂接到本地档案.
//
//	@Summary		提交渲染作业
//	@Description	提交成功后档案置 IN RENDER，由轮询器跟踪作业进度
//	@Tags			渲染农场
//	@Accept			json
//	@Produce		json
//	@Param			body	types.SubmitRenderJobRequest	true	"作业参数"
//	@Success		200		{object}						types.SubmitRenderJobResponse
//	@Failure		400		{object}						map[string]string
//	@Failure		502		{object}						map[string]string
//	@Router			/api/v1/farm/jobs [post]
func SubmitRenderJob(c *gin.Context) {
	l := log.Logger()

	var req types.SubmitRenderJobRequest
	if err := c.ShouldBind(&req); err != nil {
		l.Warn().Err(err).Msg("invalid request")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	svc := service.NewFarmService(c.Request.Context())

	resp, err := svc.SubmitRenderJob(c.Request.Context(), &req)
	if err != nil {
		replyFarmError(c, l, err, "submit render job failed")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// SetRenderJob 把既有农场作业挂到本地档案上.
//
//	@Summary	挂接渲染作业
//	@Tags		渲染农场
//	@Accept		json
//	@Param		body	types.SetRenderJobRequest	true	"挂接参数，支持 render_info 历史记法"
//	@Success	204
//	@Failure	400	{object}	map[string]string
//	@Router		/api/v1/farm/jobs/attach [post]
func SetRenderJob(c *gin.Context) {
	l := log.Logger()

	var req types.SetRenderJobRequest
	if err := c.ShouldBind(&req); err != nil {
		l.Warn().Err(err).Msg("invalid request")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	svc := service.NewFarmService(c.Request.Context())
	if err := svc.SetRenderJob(c.Request.Context(), &req); err != nil {
		replyFarmError(c, l, err, "set render job failed")
		return
	}

	c.Status(http.StatusNoContent)
}

// ListFarmPools 渲染池列表.
//
//	@Summary	渲染池列表
//	@Tags		渲染农场
//	@Produce	json
//	@Success	200	{object}	types.FarmPoolsResponse
//	@Failure	502	{object}	map[string]string
//	@Router		/api/v1/farm/pools [get]
func ListFarmPools(c *gin.Context) {
	l := log.Logger()

	svc := service.NewFarmService(c.Request.Context())

	resp, err := svc.Pools(c.Request.Context())
	if err != nil {
		replyFarmError(c, l, err, "list farm pools failed")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ListFarmInstances 渲染节点列表.
//
//	@Summary	渲染节点列表
//	@Tags		渲染农场
//	@Produce	json
//	@Success	200	{object}	types.FarmInstancesResponse
//	@Failure	502	{object}	map[string]string
//	@Router		/api/v1/farm/instances [get]
func ListFarmInstances(c *gin.Context) {
	l := log.Logger()

	svc := service.NewFarmService(c.Request.Context())

	resp, err := svc.Instances(c.Request.Context())
	if err != nil {
		replyFarmError(c, l, err, "list farm instances failed")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// replyFarmError 农场侧不可用翻译成 502，认证失败 401，其余走通用映射.
func replyFarmError(c *gin.Context, l *zerolog.Logger, err error, msg string) {
	switch {
	case errors.Is(err, renderfarm.ErrServiceUnavailable):
		l.Error().Err(err).Msg(msg)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	case errors.Is(err, renderfarm.ErrUnauthorized):
		l.Warn().Err(err).Msg(msg)
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, renderfarm.ErrJobNotFound):
		l.Warn().Err(err).Msg(msg)
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		replyError(c, l, err, msg)
	}
}
