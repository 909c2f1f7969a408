package service

import (
	"context"

	"github.com/yeisme/outputvault/pkg/internal/derive"
	"github.com/yeisme/outputvault/pkg/internal/model"
	"github.com/yeisme/outputvault/pkg/internal/repository"
	"github.com/yeisme/outputvault/pkg/internal/types"
	nlog "github.com/yeisme/outputvault/pkg/log"
)

// ChildrenService 负责衍生文件的查询、重置与重新规划.
type ChildrenService struct {
	repo *repository.Repo
}

// NewChildrenService 创建并返回一个新的 ChildrenService 实例.
func NewChildrenService(c context.Context) *ChildrenService {
	svc := &ChildrenService{repo: newRepo(c)}

	if svc.repo == nil {
		nlog.Logger().Warn().Msg("DB client not initialized, ChildrenService features limited")
	}

	return svc
}

// GetChildrenFile 按 ID 查询衍生文件.
func (s *ChildrenService) GetChildrenFile(ctx context.Context, id string) (*types.ChildrenFileInfo, error) {
	if s.repo == nil {
		return nil, errDBNotInitialized
	}

	f, err := s.repo.GetChildrenFile(ctx, id)
	if err != nil {
		return nil, err
	}

	names := newStatusNames(s.repo)
	info := childrenInfo(f, s.kindOf(ctx, f.OutputTypeID), names.name(ctx, f.FileStatusID))

	return &info, nil
}

// ListChildrenFiles 列出某输出文件的全部衍生文件.
func (s *ChildrenService) ListChildrenFiles(ctx context.Context, parentID string) (*types.ListChildrenFilesResponse, error) {
	if s.repo == nil {
		return nil, errDBNotInitialized
	}

	// 父文件不存在时返回 NotFound 而非空列表
	if _, err := s.repo.GetOutputFile(ctx, parentID); err != nil {
		return nil, err
	}

	files, err := s.repo.ListChildrenFiles(ctx, parentID)
	if err != nil {
		return nil, err
	}

	return &types.ListChildrenFilesResponse{Files: s.infos(ctx, files)}, nil
}

// ResetChildrenFile 把终态衍生文件重置回 PENDING 并重新排队生成.
func (s *ChildrenService) ResetChildrenFile(ctx context.Context, id string) error {
	if s.repo == nil {
		return errDBNotInitialized
	}

	return s.repo.ResetChildrenToPending(ctx, id)
}

// PlanChildren 对既有输出文件重新执行衍生规划，返回本次新建的档案.
// 已存在的种类跳过，规划是幂等的.
func (s *ChildrenService) PlanChildren(ctx context.Context, outputID string) (*types.PlanChildrenResponse, error) {
	if s.repo == nil {
		return nil, errDBNotInitialized
	}

	f, err := s.repo.GetOutputFile(ctx, outputID)
	if err != nil {
		return nil, err
	}

	created, err := derive.NewPolicy(s.repo).PlanChildren(ctx, f)
	if err != nil {
		return nil, err
	}

	return &types.PlanChildrenResponse{Created: s.infos(ctx, created)}, nil
}

func (s *ChildrenService) infos(ctx context.Context, files []model.ChildrenFile) []types.ChildrenFileInfo {
	names := newStatusNames(s.repo)
	infos := make([]types.ChildrenFileInfo, 0, len(files))

	for i := range files {
		infos = append(infos, childrenInfo(&files[i],
			s.kindOf(ctx, files[i].OutputTypeID),
			names.name(ctx, files[i].FileStatusID)))
	}

	return infos
}

func (s *ChildrenService) kindOf(ctx context.Context, outputTypeID string) string {
	ot, err := s.repo.GetOutputType(ctx, outputTypeID)
	if err != nil {
		return ""
	}

	return ot.ShortName
}
