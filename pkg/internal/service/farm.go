package service

import (
	"context"
	crand "crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid"

	"github.com/yeisme/outputvault/pkg/cache"
	"github.com/yeisme/outputvault/pkg/configs"
	ctxPkg "github.com/yeisme/outputvault/pkg/context"
	"github.com/yeisme/outputvault/pkg/internal/renderfarm"
	"github.com/yeisme/outputvault/pkg/internal/repository"
	"github.com/yeisme/outputvault/pkg/internal/types"
	nlog "github.com/yeisme/outputvault/pkg/log"
	"github.com/yeisme/outputvault/pkg/rule"
)

var (
	errFarmDisabled = errors.New("render farm is not enabled")

	ulidEntropy = ulid.Monotonic(crand.Reader, 0)
)

// FarmService 负责渲染农场作业的提交、挂接与资源查询.
type FarmService struct {
	repo *repository.Repo
	mgr  renderfarm.Manager
}

// NewFarmService 创建并返回一个新的 FarmService 实例.
// 渲染农场未启用时农场侧操作返回 errFarmDisabled，本地挂接仍可用.
func NewFarmService(c context.Context) *FarmService {
	svc := &FarmService{repo: newRepo(c)}

	if svc.repo == nil {
		nlog.Logger().Warn().Msg("DB client not initialized, FarmService features limited")
	}

	cfg := configs.GetConfig()
	if cfg.RenderFarm.Enabled {
		var cc *cache.Cache
		if kvc := ctxPkg.GetKVClient(c); kvc != nil {
			cc = cache.NewCache(kvc)
		}

		svc.mgr = renderfarm.NewClient(cfg.RenderFarm, cfg.CircuitBreaker, cc)
	}

	return svc
}

// SubmitRenderJob 向农场提交作业，成功后把作业号挂到本地档案并置 IN RENDER.
// 登录一次完成提交后即登出，不保持会话.
func (s *FarmService) SubmitRenderJob(ctx context.Context, req *types.SubmitRenderJobRequest) (*types.SubmitRenderJobResponse, error) {
	if s.repo == nil {
		return nil, errDBNotInitialized
	}

	if s.mgr == nil {
		return nil, errFarmDisabled
	}

	if err := rule.ValidateStruct(req); err != nil {
		return nil, err
	}

	jobName := req.JobName
	if jobName == "" {
		name, err := s.fileName(ctx, req.FileKind, req.FileID)
		if err != nil {
			return nil, err
		}

		jobName = name
	}

	if jobName == "" {
		// 农场侧作业名必须唯一可排序
		jobName = "ov-" + ulid.MustNew(ulid.Timestamp(time.Now()), ulidEntropy).String()
	}

	if err := s.mgr.Login(ctx); err != nil {
		return nil, err
	}
	defer s.mgr.Logout(ctx)

	jobID, err := s.mgr.SubmitJob(ctx, renderfarm.JobSpec{
		Name:       jobName,
		JobFile:    req.JobFile,
		Project:    req.Project,
		Department: req.Department,
		Pool:       req.Pool,
		Priority:   req.Priority,
		TemplateID: req.TemplateID,
		PacketSize: req.PacketSize,
		StartFrame: req.StartFrame,
		EndFrame:   req.EndFrame,
		ByFrame:    req.ByFrame,
		Attributes: req.Attributes,
	})
	if err != nil {
		return nil, err
	}

	if err := s.attach(ctx, req.FileKind, req.FileID, renderfarm.OwnerMuster, jobID); err != nil {
		// 作业已提交，挂接失败必须显式暴露，否则轮询器永远看不到它
		return nil, fmt.Errorf("job %s submitted but attach failed: %w", jobID, err)
	}

	return &types.SubmitRenderJobResponse{JobID: jobID}, nil
}

// SetRenderJob 把既有农场作业挂到本地档案上.
// 支持历史 "MUSTER:<job_id>" 单字段记法.
func (s *FarmService) SetRenderJob(ctx context.Context, req *types.SetRenderJobRequest) error {
	if s.repo == nil {
		return errDBNotInitialized
	}

	if err := rule.ValidateStruct(req); err != nil {
		return err
	}

	owner, jobID := req.Owner, req.JobID

	if req.RenderInfo != "" {
		o, j, ok := renderfarm.ParseLegacyRenderInfo(req.RenderInfo)
		if !ok {
			return fmt.Errorf("malformed render_info %q", req.RenderInfo)
		}

		owner, jobID = o, j
	}

	if owner == "" || jobID == "" {
		return errors.New("owner and job_id are required")
	}

	return s.attach(ctx, req.FileKind, req.FileID, owner, jobID)
}

// Pools 渲染池列表（带 TTL 缓存）.
func (s *FarmService) Pools(ctx context.Context) (*types.FarmPoolsResponse, error) {
	if s.mgr == nil {
		return nil, errFarmDisabled
	}

	if err := s.mgr.Login(ctx); err != nil {
		return nil, err
	}
	defer s.mgr.Logout(ctx)

	pools, err := s.mgr.Pools(ctx)
	if err != nil {
		return nil, err
	}

	return &types.FarmPoolsResponse{Pools: pools}, nil
}

// Instances 渲染节点列表（带 TTL 缓存）.
func (s *FarmService) Instances(ctx context.Context) (*types.FarmInstancesResponse, error) {
	if s.mgr == nil {
		return nil, errFarmDisabled
	}

	if err := s.mgr.Login(ctx); err != nil {
		return nil, err
	}
	defer s.mgr.Logout(ctx)

	instances, err := s.mgr.Instances(ctx)
	if err != nil {
		return nil, err
	}

	return &types.FarmInstancesResponse{Instances: instances}, nil
}

func (s *FarmService) attach(ctx context.Context, kind, fileID, owner, jobID string) error {
	switch kind {
	case "output":
		return s.repo.SetOutputRenderJob(ctx, fileID, owner, jobID)
	case "children":
		// 衍生档案先抢占（PENDING -> IN RENDER）再挂作业号，
		// 已前移的档案不允许重复委托
		claimed, err := s.repo.ClaimChildrenFile(ctx, fileID)
		if err != nil {
			return err
		}

		if !claimed {
			return fmt.Errorf("children file %s is not pending", fileID)
		}

		return s.repo.SetChildrenRenderJob(ctx, fileID, owner, jobID)
	default:
		return fmt.Errorf("unknown file kind %q", kind)
	}
}

func (s *FarmService) fileName(ctx context.Context, kind, fileID string) (string, error) {
	switch kind {
	case "output":
		f, err := s.repo.GetOutputFile(ctx, fileID)
		if err != nil {
			return "", err
		}

		return f.Name, nil
	case "children":
		f, err := s.repo.GetChildrenFile(ctx, fileID)
		if err != nil {
			return "", err
		}

		return f.Name, nil
	default:
		return "", fmt.Errorf("unknown file kind %q", kind)
	}
}
