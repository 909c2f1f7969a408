// Package service 实现输出文件、工作文件、衍生文件、预览与渲染农场的业务编排.
// 服务从请求上下文取存储客户端组装，单次请求生命周期内使用.
package service

import (
	"context"
	"errors"

	ctxPkg "github.com/yeisme/outputvault/pkg/context"
	"github.com/yeisme/outputvault/pkg/internal/model"
	"github.com/yeisme/outputvault/pkg/internal/repository"
	"github.com/yeisme/outputvault/pkg/internal/types"
)

var errDBNotInitialized = errors.New("db not initialized")

// newRepo 从上下文取 DB/MQ 客户端组装仓库，DB 未初始化返回 nil.
// MQ 缺席时事件发布静默关闭，创建语义不受影响.
func newRepo(c context.Context) *repository.Repo {
	dbc := ctxPkg.GetDBClient(c)
	if dbc == nil || dbc.GetDB() == nil {
		return nil
	}

	var pub repository.Publisher
	if mqc := ctxPkg.GetMQClient(c); mqc != nil {
		pub = mqc
	}

	return repository.New(dbc.GetDB(), pub)
}

// statusNames 批量解析状态 ID 到名称，列表转换时避免逐行查询.
type statusNames struct {
	repo *repository.Repo
	memo map[string]model.StatusName
}

func newStatusNames(repo *repository.Repo) *statusNames {
	return &statusNames{repo: repo, memo: map[string]model.StatusName{}}
}

func (s *statusNames) name(ctx context.Context, id string) string {
	if n, ok := s.memo[id]; ok {
		return string(n)
	}

	n, err := s.repo.StatusNameByID(ctx, id)
	if err != nil {
		return ""
	}

	s.memo[id] = n

	return string(n)
}

func optionalID(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}

func outputInfo(f *model.OutputFile, status string) types.OutputFileInfo {
	data, _ := model.DecodeData(f.DataJSON)

	return types.OutputFileInfo{
		ID:               f.ID,
		Name:             f.Name,
		Extension:        f.Extension,
		Revision:         f.Revision,
		Representation:   f.Representation,
		Path:             f.Path,
		Size:             f.Size,
		Checksum:         f.Checksum,
		NbElements:       f.NbElements,
		Source:           f.Source,
		Comment:          f.Comment,
		Description:      f.Description,
		Canceled:         f.Canceled,
		Status:           status,
		EntityID:         f.EntityID,
		AssetInstanceID:  f.AssetInstanceID,
		TemporalEntityID: f.TemporalEntityID,
		OutputTypeID:     f.OutputTypeID,
		TaskTypeID:       f.TaskTypeID,
		PersonID:         f.PersonID,
		SourceFileID:     f.SourceFileID,
		RenderOwner:      f.RenderOwner,
		RenderJobID:      f.RenderJobID,
		Data:             data,
		CreatedAt:        f.CreatedAt,
		UpdatedAt:        f.UpdatedAt,
	}
}

func workingInfo(f *model.WorkingFile) types.WorkingFileInfo {
	return types.WorkingFileInfo{
		ID:        f.ID,
		Name:      f.Name,
		Comment:   f.Comment,
		Revision:  f.Revision,
		Path:      f.Path,
		Size:      f.Size,
		Checksum:  f.Checksum,
		EntityID:  f.EntityID,
		TaskID:    f.TaskID,
		PersonID:  f.PersonID,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

func childrenInfo(f *model.ChildrenFile, kind, status string) types.ChildrenFileInfo {
	progress := 0.0

	if data, err := model.DecodeData(f.DataJSON); err == nil {
		if p, ok := data["render_progress"].(float64); ok {
			progress = p
		}
	}

	return types.ChildrenFileInfo{
		ID:               f.ID,
		Name:             f.Name,
		Path:             f.Path,
		Size:             f.Size,
		ParentFileID:     f.ParentFileID,
		OutputTypeID:     f.OutputTypeID,
		TemporalEntityID: f.TemporalEntityID,
		Kind:             kind,
		Status:           status,
		RenderOwner:  f.RenderOwner,
		RenderJobID:  f.RenderJobID,
		Progress:     progress,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}
