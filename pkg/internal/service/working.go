package service

import (
	"context"

	"github.com/yeisme/outputvault/pkg/internal/repository"
	"github.com/yeisme/outputvault/pkg/internal/types"
	nlog "github.com/yeisme/outputvault/pkg/log"
	"github.com/yeisme/outputvault/pkg/rule"
)

// WorkingService 负责工作文件的登记与查询.
type WorkingService struct {
	repo *repository.Repo
}

// NewWorkingService 创建并返回一个新的 WorkingService 实例.
func NewWorkingService(c context.Context) *WorkingService {
	svc := &WorkingService{repo: newRepo(c)}

	if svc.repo == nil {
		nlog.Logger().Warn().Msg("DB client not initialized, WorkingService features limited")
	}

	return svc
}

// CreateWorkingFile 按路径幂等登记工作文件.
// 编辑器保存动作会重试，同路径重复登记返回既有档案（Created 为 false）.
func (s *WorkingService) CreateWorkingFile(ctx context.Context, req *types.NewWorkingFileRequest) (*types.NewWorkingFileResponse, error) {
	if s.repo == nil {
		return nil, errDBNotInitialized
	}

	if err := rule.ValidateStruct(req); err != nil {
		return nil, err
	}

	f, created, err := s.repo.CreateWorkingFile(ctx, repository.WorkingFilePayload{
		Name:       req.Name,
		Comment:    req.Comment,
		Revision:   req.Revision,
		Size:       req.Size,
		Checksum:   req.Checksum,
		Path:       req.Path,
		EntityID:   req.EntityID,
		TaskID:     optionalID(req.TaskID),
		TaskTypeID: req.TaskTypeID,
		PersonID:   req.PersonID,
		SoftwareID: optionalID(req.SoftwareID),
		Data:       req.Data,
	})
	if err != nil {
		return nil, err
	}

	return &types.NewWorkingFileResponse{File: workingInfo(f), Created: created}, nil
}

// GetWorkingFile 按 ID 查询工作文件.
func (s *WorkingService) GetWorkingFile(ctx context.Context, id string) (*types.WorkingFileInfo, error) {
	if s.repo == nil {
		return nil, errDBNotInitialized
	}

	f, err := s.repo.GetWorkingFile(ctx, id)
	if err != nil {
		return nil, err
	}

	info := workingInfo(f)

	return &info, nil
}

// ListForTask 某任务下的工作文件列表.
func (s *WorkingService) ListForTask(ctx context.Context, taskID string) (*types.ListWorkingFilesResponse, error) {
	if s.repo == nil {
		return nil, errDBNotInitialized
	}

	files, err := s.repo.ListWorkingFilesForTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	infos := make([]types.WorkingFileInfo, 0, len(files))
	for i := range files {
		infos = append(infos, workingInfo(&files[i]))
	}

	return &types.ListWorkingFilesResponse{Files: infos}, nil
}
