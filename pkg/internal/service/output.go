package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yeisme/outputvault/pkg/internal/model"
	"github.com/yeisme/outputvault/pkg/internal/repository"
	"github.com/yeisme/outputvault/pkg/internal/types"
	nlog "github.com/yeisme/outputvault/pkg/log"
	"github.com/yeisme/outputvault/pkg/rule"
)

// OutputService 负责输出文件的登记、查询、废弃与依赖挂接.
type OutputService struct {
	repo *repository.Repo
}

// NewOutputService 创建并返回一个新的 OutputService 实例.
func NewOutputService(c context.Context) *OutputService {
	svc := &OutputService{repo: newRepo(c)}

	if svc.repo == nil {
		nlog.Logger().Warn().Msg("DB client not initialized, OutputService features limited")
	}

	return svc
}

// CreateOutputFile 登记一个输出文件修订.
// 修订号未显式指定时解析为该分组的下一个安全值；
// 唯一元组冲突返回 repository.ErrEntryAlreadyExists，调用方自行重试.
func (s *OutputService) CreateOutputFile(ctx context.Context, req *types.NewOutputFileRequest) (*types.NewOutputFileResponse, error) {
	if s.repo == nil {
		return nil, errDBNotInitialized
	}

	if err := rule.ValidateStruct(req); err != nil {
		return nil, err
	}

	if req.EntityID == "" && req.AssetInstanceID == "" {
		return nil, repository.ErrAmbiguousScope
	}

	ot, err := s.repo.GetOrCreateOutputType(ctx, req.OutputTypeName, req.OutputTypeName)
	if err != nil {
		return nil, err
	}

	representation := req.Representation
	if representation == "" {
		representation = strings.TrimPrefix(req.Extension, ".")
	}

	key := repository.OutputGroupKey{
		Name:             req.Name,
		Representation:   representation,
		EntityID:         req.EntityID,
		AssetInstanceID:  optionalID(req.AssetInstanceID),
		TemporalEntityID: optionalID(req.TemporalEntityID),
		OutputTypeID:     ot.ID,
		TaskTypeID:       req.TaskTypeID,
	}

	revision, err := s.repo.NextOutputRevision(ctx, key, req.Revision)
	if err != nil {
		return nil, err
	}

	status := model.StatusWaiting
	if req.InRender {
		status = model.StatusInRender
	}

	f, err := s.repo.CreateOutputFile(ctx, key, revision, repository.OutputFilePayload{
		Extension:    req.Extension,
		Description:  req.Description,
		Comment:      req.Comment,
		Size:         req.Size,
		Checksum:     req.Checksum,
		Path:         req.Path,
		NbElements:   req.NbElements,
		Source:       req.Source,
		PersonID:     req.PersonID,
		SourceFileID: optionalID(req.SourceFileID),
		Data:         req.Data,
		Status:       status,
	})
	if err != nil {
		return nil, err
	}

	info := outputInfo(f, string(status))

	return &types.NewOutputFileResponse{File: info}, nil
}

// GetOutputFile 按 ID 查询输出文件.
func (s *OutputService) GetOutputFile(ctx context.Context, id string) (*types.OutputFileInfo, error) {
	if s.repo == nil {
		return nil, errDBNotInitialized
	}

	f, err := s.repo.GetOutputFile(ctx, id)
	if err != nil {
		return nil, err
	}

	names := newStatusNames(s.repo)
	info := outputInfo(f, names.name(ctx, f.FileStatusID))

	return &info, nil
}

// ListForEntity 实体作用域的输出文件列表，可选只取每组最新修订.
func (s *OutputService) ListForEntity(ctx context.Context, entityID string, req *types.ListOutputFilesRequest) (*types.ListOutputFilesResponse, error) {
	if s.repo == nil {
		return nil, errDBNotInitialized
	}

	filter := &repository.OutputFileFilter{
		OutputTypeID:   req.OutputTypeID,
		TaskTypeID:     req.TaskTypeID,
		Representation: req.Representation,
		Name:           req.Name,
	}

	var (
		files []model.OutputFile
		err   error
	)

	if req.LastOnly {
		files, err = s.repo.LastRevisionsForEntity(ctx, entityID, filter)
	} else {
		files, err = s.repo.ListOutputFilesForEntity(ctx, entityID, filter)
	}

	if err != nil {
		return nil, err
	}

	return s.listResponse(ctx, files), nil
}

// ListForInstance 实例作用域的输出文件列表.
func (s *OutputService) ListForInstance(ctx context.Context, assetInstanceID, temporalEntityID string, req *types.ListOutputFilesRequest) (*types.ListOutputFilesResponse, error) {
	if s.repo == nil {
		return nil, errDBNotInitialized
	}

	if req.LastOnly {
		return nil, fmt.Errorf("last_only is not supported for instance scope")
	}

	filter := &repository.OutputFileFilter{
		OutputTypeID:   req.OutputTypeID,
		TaskTypeID:     req.TaskTypeID,
		Representation: req.Representation,
		Name:           req.Name,
	}

	files, err := s.repo.ListOutputFilesForInstance(ctx, assetInstanceID, temporalEntityID, filter)
	if err != nil {
		return nil, err
	}

	return s.listResponse(ctx, files), nil
}

func (s *OutputService) listResponse(ctx context.Context, files []model.OutputFile) *types.ListOutputFilesResponse {
	names := newStatusNames(s.repo)
	infos := make([]types.OutputFileInfo, 0, len(files))

	for i := range files {
		infos = append(infos, outputInfo(&files[i], names.name(ctx, files[i].FileStatusID)))
	}

	return &types.ListOutputFilesResponse{Files: infos}
}

// NextRevision 查询分组的下一个安全修订号，不建档.
// 输出类型尚未建档即无任何历史，直接返回 1.
func (s *OutputService) NextRevision(ctx context.Context, req *types.NextRevisionRequest) (*types.NextRevisionResponse, error) {
	if s.repo == nil {
		return nil, errDBNotInitialized
	}

	if err := rule.ValidateStruct(req); err != nil {
		return nil, err
	}

	ot, err := s.repo.GetOutputTypeByName(ctx, req.OutputTypeName)
	if errors.Is(err, repository.ErrOutputTypeNotFound) {
		return &types.NextRevisionResponse{Revision: 1}, nil
	} else if err != nil {
		return nil, err
	}

	key := repository.OutputGroupKey{
		Name:             req.Name,
		Representation:   req.Representation,
		EntityID:         req.EntityID,
		AssetInstanceID:  optionalID(req.AssetInstanceID),
		TemporalEntityID: optionalID(req.TemporalEntityID),
		OutputTypeID:     ot.ID,
		TaskTypeID:       req.TaskTypeID,
	}

	revision, err := s.repo.NextOutputRevision(ctx, key, 0)
	if err != nil {
		return nil, err
	}

	return &types.NextRevisionResponse{Revision: revision}, nil
}

// CancelOutputFile 废弃输出文件.
func (s *OutputService) CancelOutputFile(ctx context.Context, id string) error {
	if s.repo == nil {
		return errDBNotInitialized
	}

	return s.repo.CancelOutputFile(ctx, id)
}

// AttachDependent 按路径 get-or-create 依赖文件并挂接到输出文件.
func (s *OutputService) AttachDependent(ctx context.Context, outputID string, req *types.AttachDependentRequest) (*types.DependentFileInfo, error) {
	if s.repo == nil {
		return nil, errDBNotInitialized
	}

	if err := rule.ValidateStruct(req); err != nil {
		return nil, err
	}

	dep, err := s.repo.GetOrCreateDependentFile(ctx, outputID, req.Path, req.Size, req.Checksum)
	if err != nil {
		return nil, err
	}

	return &types.DependentFileInfo{
		ID:       dep.ID,
		Path:     dep.Path,
		Size:     dep.Size,
		Checksum: dep.Checksum,
	}, nil
}

// ListDependents 列出输出文件的依赖.
func (s *OutputService) ListDependents(ctx context.Context, outputID string) (*types.ListDependentFilesResponse, error) {
	if s.repo == nil {
		return nil, errDBNotInitialized
	}

	deps, err := s.repo.ListDependentFiles(ctx, outputID)
	if err != nil {
		return nil, err
	}

	infos := make([]types.DependentFileInfo, 0, len(deps))
	for _, d := range deps {
		infos = append(infos, types.DependentFileInfo{
			ID:       d.ID,
			Path:     d.Path,
			Size:     d.Size,
			Checksum: d.Checksum,
		})
	}

	return &types.ListDependentFilesResponse{Files: infos}, nil
}

// OutputTypesForEntity 实体已有输出文件涉及的输出类型列表.
func (s *OutputService) OutputTypesForEntity(ctx context.Context, entityID string) (*types.ListOutputTypesResponse, error) {
	if s.repo == nil {
		return nil, errDBNotInitialized
	}

	ots, err := s.repo.ListOutputTypesForEntity(ctx, entityID)
	if err != nil {
		return nil, err
	}

	return typesResponse(ots), nil
}

// OutputTypesForInstance 资产实例已有输出文件涉及的输出类型列表.
func (s *OutputService) OutputTypesForInstance(ctx context.Context, assetInstanceID, temporalEntityID string) (*types.ListOutputTypesResponse, error) {
	if s.repo == nil {
		return nil, errDBNotInitialized
	}

	ots, err := s.repo.ListOutputTypesForInstance(ctx, assetInstanceID, temporalEntityID)
	if err != nil {
		return nil, err
	}

	return typesResponse(ots), nil
}

func typesResponse(ots []model.OutputType) *types.ListOutputTypesResponse {
	resp := &types.ListOutputTypesResponse{Types: make([]types.OutputTypeInfo, 0, len(ots))}
	for _, ot := range ots {
		resp.Types = append(resp.Types, types.OutputTypeInfo{ID: ot.ID, Name: ot.Name, ShortName: ot.ShortName})
	}

	return resp
}
