package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/yeisme/outputvault/pkg/configs"
	"github.com/yeisme/outputvault/pkg/internal/model"
	nlog "github.com/yeisme/outputvault/pkg/log"
	"github.com/yeisme/outputvault/pkg/queue"
)

// OutputFilePayload 创建输出文件时除分组维度与修订号外的其余字段.
type OutputFilePayload struct {
	Extension    string
	Description  string
	Comment      string
	Size         int64
	Checksum     string
	Path         string
	NbElements   int
	Source       string
	PersonID     string
	SourceFileID *string
	Data         map[string]any
	// Status 建档初始状态，空则 WAITING
	Status model.StatusName
}

// CreateOutputFile 严格创建：唯一元组命中既有行即失败，不静默复用.
// 修订号须由调用方事先经 NextOutputRevision 解析（或显式指定）.
// 并发下两个调用算出同一修订号时，后写者撞唯一约束同样得到
// ErrEntryAlreadyExists——先写者胜.
func (r *Repo) CreateOutputFile(ctx context.Context, key OutputGroupKey, revision int, p OutputFilePayload) (*model.OutputFile, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}

	if revision < 1 {
		return nil, fmt.Errorf("revision must be >= 1, got %d", revision)
	}

	// 预查完整唯一元组
	var existing model.OutputFile

	q := key.scopeQuery(r.db.WithContext(ctx).
		Where("name = ? AND output_type_id = ? AND task_type_id = ? AND representation = ? AND revision = ?",
			key.Name, key.OutputTypeID, key.TaskTypeID, key.Representation, revision))

	err := q.First(&existing).Error
	if err == nil {
		return nil, fmt.Errorf("%w: output %s r%d", ErrEntryAlreadyExists, key.Name, revision)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("output file pre-lookup: %w", err)
	}

	status := p.Status
	if status == "" {
		status = model.StatusWaiting
	}

	statusID, err := r.StatusID(ctx, status)
	if err != nil {
		return nil, err
	}

	dataJSON, err := model.EncodeData(p.Data)
	if err != nil {
		return nil, err
	}

	nbElements := p.NbElements
	if nbElements <= 0 {
		nbElements = 1
	}

	f := model.OutputFile{
		Name:             key.Name,
		Extension:        p.Extension,
		Description:      p.Description,
		Comment:          p.Comment,
		Revision:         revision,
		Size:             p.Size,
		Checksum:         p.Checksum,
		Path:             p.Path,
		Representation:   key.Representation,
		NbElements:       nbElements,
		Source:           p.Source,
		FileStatusID:     statusID,
		EntityID:         key.EntityID,
		AssetInstanceID:  key.AssetInstanceID,
		TemporalEntityID: key.TemporalEntityID,
		OutputTypeID:     key.OutputTypeID,
		TaskTypeID:       key.TaskTypeID,
		PersonID:         p.PersonID,
		SourceFileID:     p.SourceFileID,
		DataJSON:         dataJSON,
	}

	if err := r.db.WithContext(ctx).Create(&f).Error; err != nil {
		if isDuplicate(err) {
			return nil, fmt.Errorf("%w: output %s r%d", ErrEntryAlreadyExists, key.Name, revision)
		}

		return nil, fmt.Errorf("create output file: %w", err)
	}

	r.EmitOutputNew(ctx, &f, false)

	return &f, nil
}

// EmitOutputNew 发布 ov.output.new 事件；渲染验收通过后的二次发布
// 置 republished。发布失败只记日志，创建本身已落库.
func (r *Repo) EmitOutputNew(ctx context.Context, f *model.OutputFile, republished bool) {
	cfg := configs.GetConfig()
	if r.pub == nil || !cfg.Events.Enabled || !cfg.Events.Output.New {
		return
	}

	typeName := ""
	if ot, err := r.GetOutputType(ctx, f.OutputTypeID); err == nil {
		typeName = ot.Name
	}

	statusName := ""
	if sn, err := r.StatusNameByID(ctx, f.FileStatusID); err == nil {
		statusName = string(sn)
	}

	payload := queue.OutputNewPayload{
		File: queue.OutputFileRef{
			ID:               f.ID,
			Name:             f.Name,
			Path:             f.Path,
			Extension:        f.Extension,
			Revision:         f.Revision,
			Representation:   f.Representation,
			NbElements:       f.NbElements,
			EntityID:         f.EntityID,
			AssetInstanceID:  f.AssetInstanceID,
			TemporalEntityID: f.TemporalEntityID,
			OutputTypeID:     f.OutputTypeID,
			TaskTypeID:       f.TaskTypeID,
		},
		OutputTypeName: typeName,
		Status:         statusName,
		Republished:    republished,
	}

	if err := queue.PublishOutputNew(publisherAdapter{ctx: ctx, pub: r.pub}, payload,
		queue.WithProducer(configs.AppName)); err != nil {
		nlog.Logger().Error().Err(err).Str("file_id", f.ID).Msg("publish output new failed")
	}
}

// GetOutputFile 按 ID 查输出文件.
func (r *Repo) GetOutputFile(ctx context.Context, id string) (*model.OutputFile, error) {
	var f model.OutputFile

	err := r.db.WithContext(ctx).Where("id = ?", id).First(&f).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrOutputFileNotFound, id)
	} else if err != nil {
		return nil, fmt.Errorf("get output file %s: %w", id, err)
	}

	return &f, nil
}

// OutputFileFilter 列表查询过滤条件，零值字段忽略.
type OutputFileFilter struct {
	OutputTypeID   string
	TaskTypeID     string
	Representation string
	Name           string
}

func (f *OutputFileFilter) apply(q *gorm.DB) *gorm.DB {
	if f == nil {
		return q
	}

	if f.OutputTypeID != "" {
		q = q.Where("output_type_id = ?", f.OutputTypeID)
	}

	if f.TaskTypeID != "" {
		q = q.Where("task_type_id = ?", f.TaskTypeID)
	}

	if f.Representation != "" {
		q = q.Where("representation = ?", f.Representation)
	}

	if f.Name != "" {
		q = q.Where("name = ?", f.Name)
	}

	return q
}

// ListOutputFilesForEntity 实体作用域的输出文件列表.
func (r *Repo) ListOutputFilesForEntity(ctx context.Context, entityID string, filter *OutputFileFilter) ([]model.OutputFile, error) {
	var files []model.OutputFile

	q := r.db.WithContext(ctx).
		Where("entity_id = ? AND asset_instance_id IS NULL", entityID)
	q = filter.apply(q)

	if err := q.Order("name, revision DESC").Find(&files).Error; err != nil {
		return nil, fmt.Errorf("list output files for entity %s: %w", entityID, err)
	}

	return files, nil
}

// ListOutputFilesForInstance 实例作用域的输出文件列表.
func (r *Repo) ListOutputFilesForInstance(ctx context.Context, assetInstanceID, temporalEntityID string, filter *OutputFileFilter) ([]model.OutputFile, error) {
	var files []model.OutputFile

	q := r.db.WithContext(ctx).Where("asset_instance_id = ?", assetInstanceID)
	if temporalEntityID != "" {
		q = q.Where("temporal_entity_id = ?", temporalEntityID)
	}

	q = filter.apply(q)

	if err := q.Order("name, revision DESC").Find(&files).Error; err != nil {
		return nil, fmt.Errorf("list output files for instance %s: %w", assetInstanceID, err)
	}

	return files, nil
}

// LastRevisionsForEntity 实体作用域下每个 (name, representation) 分组的最新修订.
func (r *Repo) LastRevisionsForEntity(ctx context.Context, entityID string, filter *OutputFileFilter) ([]model.OutputFile, error) {
	var files []model.OutputFile

	sub := r.db.Model(&model.OutputFile{}).
		Select("name, representation, output_type_id, task_type_id, MAX(revision) AS max_revision").
		Where("entity_id = ? AND asset_instance_id IS NULL", entityID).
		Group("name, representation, output_type_id, task_type_id")

	q := r.db.WithContext(ctx).
		Joins("JOIN (?) AS latest ON output_files.name = latest.name"+
			" AND output_files.representation = latest.representation"+
			" AND output_files.output_type_id = latest.output_type_id"+
			" AND output_files.task_type_id = latest.task_type_id"+
			" AND output_files.revision = latest.max_revision", sub).
		Where("output_files.entity_id = ? AND output_files.asset_instance_id IS NULL", entityID)
	q = filter.apply(q)

	if err := q.Find(&files).Error; err != nil {
		return nil, fmt.Errorf("last revisions for entity %s: %w", entityID, err)
	}

	return files, nil
}

// UpdateOutputFileStatus 直接置状态（不做 CAS，调用方自行保证语义）.
func (r *Repo) UpdateOutputFileStatus(ctx context.Context, id string, status model.StatusName) error {
	statusID, err := r.StatusID(ctx, status)
	if err != nil {
		return err
	}

	res := r.db.WithContext(ctx).Model(&model.OutputFile{}).
		Where("id = ?", id).
		Update("file_status_id", statusID)
	if res.Error != nil {
		return fmt.Errorf("update output file status: %w", res.Error)
	}

	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrOutputFileNotFound, id)
	}

	return nil
}

// SetOutputRenderJob 记录渲染作业归属并置 IN RENDER.
func (r *Repo) SetOutputRenderJob(ctx context.Context, id, owner, jobID string) error {
	statusID, err := r.StatusID(ctx, model.StatusInRender)
	if err != nil {
		return err
	}

	res := r.db.WithContext(ctx).Model(&model.OutputFile{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"render_owner":   owner,
			"render_job_id":  jobID,
			"file_status_id": statusID,
		})
	if res.Error != nil {
		return fmt.Errorf("set output render job: %w", res.Error)
	}

	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrOutputFileNotFound, id)
	}

	return nil
}

// SetOutputRenderProgress 把渲染进度写进数据袋，值未变化时跳过写入.
// 返回是否真正落库.
func (r *Repo) SetOutputRenderProgress(ctx context.Context, id string, progress float64) (bool, error) {
	f, err := r.GetOutputFile(ctx, id)
	if err != nil {
		return false, err
	}

	data, err := model.DecodeData(f.DataJSON)
	if err != nil {
		return false, err
	}

	if cur, ok := data["render_progress"].(float64); ok && cur == progress {
		return false, nil
	}

	data["render_progress"] = progress

	raw, err := model.EncodeData(data)
	if err != nil {
		return false, err
	}

	if err := r.db.WithContext(ctx).Model(&model.OutputFile{}).
		Where("id = ?", id).
		Update("data_json", raw).Error; err != nil {
		return false, fmt.Errorf("set output render progress: %w", err)
	}

	return true, nil
}

// ListOutputFilesInRender 取状态 IN RENDER 且归属指定渲染农场的输出文件.
func (r *Repo) ListOutputFilesInRender(ctx context.Context, owner string) ([]model.OutputFile, error) {
	statusID, err := r.StatusID(ctx, model.StatusInRender)
	if err != nil {
		return nil, err
	}

	var files []model.OutputFile

	err = r.db.WithContext(ctx).
		Where("file_status_id = ? AND render_owner = ? AND render_job_id <> ''", statusID, owner).
		Find(&files).Error
	if err != nil {
		return nil, fmt.Errorf("list output files in render: %w", err)
	}

	return files, nil
}

// CancelOutputFile 废弃输出文件并发布取消事件.
func (r *Repo) CancelOutputFile(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Model(&model.OutputFile{}).
		Where("id = ?", id).
		Update("canceled", true)
	if res.Error != nil {
		return fmt.Errorf("cancel output file: %w", res.Error)
	}

	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrOutputFileNotFound, id)
	}

	cfg := configs.GetConfig()
	if r.pub != nil && cfg.Events.Enabled {
		msg, err := queue.NewWatermillMessage(queue.TopicOutputCanceled,
			queue.OutputCanceledPayload{FileID: id}, queue.WithProducer(configs.AppName))
		if err == nil {
			if perr := r.pub.Publish(ctx, queue.TopicOutputCanceled, msg); perr != nil {
				nlog.Logger().Error().Err(perr).Str("file_id", id).Msg("publish output canceled failed")
			}
		}
	}

	return nil
}
