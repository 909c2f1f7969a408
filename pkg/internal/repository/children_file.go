package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yeisme/outputvault/pkg/configs"
	"github.com/yeisme/outputvault/pkg/internal/model"
	nlog "github.com/yeisme/outputvault/pkg/log"
	"github.com/yeisme/outputvault/pkg/queue"
)

// CreateChildrenFile 严格创建衍生文件：同一父文件同一种类只允许一条.
// 初始状态 PENDING，成功后发布 ov.children.new 驱动转码 worker.
func (r *Repo) CreateChildrenFile(ctx context.Context, parentID, outputTypeID, name, path string) (*model.ChildrenFile, error) {
	var existing model.ChildrenFile

	err := r.db.WithContext(ctx).
		Where("parent_file_id = ? AND output_type_id = ?", parentID, outputTypeID).
		First(&existing).Error
	if err == nil {
		return nil, fmt.Errorf("%w: children of %s kind %s", ErrEntryAlreadyExists, parentID, outputTypeID)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("children file pre-lookup: %w", err)
	}

	parent, err := r.GetOutputFile(ctx, parentID)
	if err != nil {
		return nil, err
	}

	statusID, err := r.StatusID(ctx, model.StatusPending)
	if err != nil {
		return nil, err
	}

	f := model.ChildrenFile{
		Name:             name,
		Path:             path,
		ParentFileID:     parentID,
		OutputTypeID:     outputTypeID,
		TemporalEntityID: parent.TemporalEntityID,
		FileStatusID:     statusID,
	}

	if err := r.db.WithContext(ctx).Create(&f).Error; err != nil {
		if isDuplicate(err) {
			return nil, fmt.Errorf("%w: children of %s kind %s", ErrEntryAlreadyExists, parentID, outputTypeID)
		}

		return nil, fmt.Errorf("create children file: %w", err)
	}

	cfg := configs.GetConfig()
	if r.pub != nil && cfg.Events.Enabled && cfg.Events.Children.New {
		typeName := ""
		if ot, terr := r.GetOutputType(ctx, outputTypeID); terr == nil {
			typeName = ot.Name
		}

		payload := queue.ChildrenNewPayload{
			FileID:         f.ID,
			ParentFileID:   parentID,
			OutputTypeID:   outputTypeID,
			OutputTypeName: typeName,
			Path:           path,
		}

		if perr := queue.PublishChildrenNew(publisherAdapter{ctx: ctx, pub: r.pub}, payload,
			queue.WithProducer(configs.AppName)); perr != nil {
			nlog.Logger().Error().Err(perr).Str("file_id", f.ID).Msg("publish children new failed")
		}
	}

	return &f, nil
}

// GetChildrenFile 按 ID 查衍生文件.
func (r *Repo) GetChildrenFile(ctx context.Context, id string) (*model.ChildrenFile, error) {
	var f model.ChildrenFile

	err := r.db.WithContext(ctx).Where("id = ?", id).First(&f).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrChildrenFileNotFound, id)
	} else if err != nil {
		return nil, fmt.Errorf("get children file %s: %w", id, err)
	}

	return &f, nil
}

// ListChildrenFiles 列出某父文件的全部衍生文件.
func (r *Repo) ListChildrenFiles(ctx context.Context, parentID string) ([]model.ChildrenFile, error) {
	var files []model.ChildrenFile

	if err := r.db.WithContext(ctx).Where("parent_file_id = ?", parentID).Find(&files).Error; err != nil {
		return nil, fmt.Errorf("list children files of %s: %w", parentID, err)
	}

	return files, nil
}

// ClaimChildrenFile 原子抢占：PENDING -> IN RENDER 的条件更新.
// 只有抢到的调用方可以开始生成，状态已前移时返回 false（重复派发 no-op）.
// 这是防止同一产物并发重复生成的唯一机制，不能退化成先读后写.
func (r *Repo) ClaimChildrenFile(ctx context.Context, id string) (bool, error) {
	pendingID, err := r.StatusID(ctx, model.StatusPending)
	if err != nil {
		return false, err
	}

	inRenderID, err := r.StatusID(ctx, model.StatusInRender)
	if err != nil {
		return false, err
	}

	res := r.db.WithContext(ctx).Model(&model.ChildrenFile{}).
		Where("id = ? AND file_status_id = ?", id, pendingID).
		Update("file_status_id", inRenderID)
	if res.Error != nil {
		return false, fmt.Errorf("claim children file: %w", res.Error)
	}

	return res.RowsAffected == 1, nil
}

// MarkChildrenGenerated 生成成功：落盘路径、尺寸与终态.
func (r *Repo) MarkChildrenGenerated(ctx context.Context, id, path string, size int64) error {
	statusID, err := r.StatusID(ctx, model.StatusGenerated)
	if err != nil {
		return err
	}

	res := r.db.WithContext(ctx).Model(&model.ChildrenFile{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"file_status_id": statusID,
			"path":           path,
			"size":           size,
		})
	if res.Error != nil {
		return fmt.Errorf("mark children generated: %w", res.Error)
	}

	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrChildrenFileNotFound, id)
	}

	r.emitChildrenUpdated(ctx, id, "", model.StatusGenerated, 0)

	return nil
}

// MarkChildrenFailed 生成失败的终态.
func (r *Repo) MarkChildrenFailed(ctx context.Context, id string, status model.StatusName) error {
	statusID, err := r.StatusID(ctx, status)
	if err != nil {
		return err
	}

	res := r.db.WithContext(ctx).Model(&model.ChildrenFile{}).
		Where("id = ?", id).
		Update("file_status_id", statusID)
	if res.Error != nil {
		return fmt.Errorf("mark children failed: %w", res.Error)
	}

	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrChildrenFileNotFound, id)
	}

	r.emitChildrenUpdated(ctx, id, "", status, 0)

	return nil
}

// ResetChildrenToPending 外部显式重置终态记录，重新排队生成.
func (r *Repo) ResetChildrenToPending(ctx context.Context, id string) error {
	f, err := r.GetChildrenFile(ctx, id)
	if err != nil {
		return err
	}

	statusID, err := r.StatusID(ctx, model.StatusPending)
	if err != nil {
		return err
	}

	if err := r.db.WithContext(ctx).Model(&model.ChildrenFile{}).
		Where("id = ?", id).
		Update("file_status_id", statusID).Error; err != nil {
		return fmt.Errorf("reset children to pending: %w", err)
	}

	// 重新走 children.new 管道
	cfg := configs.GetConfig()
	if r.pub != nil && cfg.Events.Enabled && cfg.Events.Children.New {
		typeName := ""
		if ot, terr := r.GetOutputType(ctx, f.OutputTypeID); terr == nil {
			typeName = ot.Name
		}

		payload := queue.ChildrenNewPayload{
			FileID:         f.ID,
			ParentFileID:   f.ParentFileID,
			OutputTypeID:   f.OutputTypeID,
			OutputTypeName: typeName,
			Path:           f.Path,
		}

		if perr := queue.PublishChildrenNew(publisherAdapter{ctx: ctx, pub: r.pub}, payload,
			queue.WithProducer(configs.AppName)); perr != nil {
			nlog.Logger().Error().Err(perr).Str("file_id", f.ID).Msg("publish children new failed")
		}
	}

	return nil
}

// SetChildrenRenderJob 记录渲染作业归属（状态保持 IN RENDER，由抢占方置入）.
func (r *Repo) SetChildrenRenderJob(ctx context.Context, id, owner, jobID string) error {
	res := r.db.WithContext(ctx).Model(&model.ChildrenFile{}).
		Where("id = ?", id).
		Updates(map[string]any{"render_owner": owner, "render_job_id": jobID})
	if res.Error != nil {
		return fmt.Errorf("set children render job: %w", res.Error)
	}

	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrChildrenFileNotFound, id)
	}

	return nil
}

// SetChildrenRenderProgress 渲染进度写入数据袋，未变化跳过.
func (r *Repo) SetChildrenRenderProgress(ctx context.Context, id string, progress float64) (bool, error) {
	f, err := r.GetChildrenFile(ctx, id)
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

	if err := r.db.WithContext(ctx).Model(&model.ChildrenFile{}).
		Where("id = ?", id).
		Update("data_json", raw).Error; err != nil {
		return false, fmt.Errorf("set children render progress: %w", err)
	}

	r.emitChildrenUpdated(ctx, id, f.ParentFileID, "", progress)

	return true, nil
}

// ListStaleChildrenInRender 取状态 IN RENDER、无农场作业归属且自 cutoff 起
// 无任何更新的衍生文件. 这些是生成方崩溃后遗留的孤儿，需要重置回 PENDING.
// 挂了农场作业的档案由轮询对账接管，不在此列.
func (r *Repo) ListStaleChildrenInRender(ctx context.Context, cutoff time.Time) ([]model.ChildrenFile, error) {
	statusID, err := r.StatusID(ctx, model.StatusInRender)
	if err != nil {
		return nil, err
	}

	var files []model.ChildrenFile

	err = r.db.WithContext(ctx).
		Where("file_status_id = ? AND render_job_id = '' AND updated_at < ?", statusID, cutoff).
		Find(&files).Error
	if err != nil {
		return nil, fmt.Errorf("list stale children in render: %w", err)
	}

	return files, nil
}

// ListChildrenFilesInRender 取状态 IN RENDER 且归属指定渲染农场的衍生文件.
func (r *Repo) ListChildrenFilesInRender(ctx context.Context, owner string) ([]model.ChildrenFile, error) {
	statusID, err := r.StatusID(ctx, model.StatusInRender)
	if err != nil {
		return nil, err
	}

	var files []model.ChildrenFile

	err = r.db.WithContext(ctx).
		Where("file_status_id = ? AND render_owner = ? AND render_job_id <> ''", statusID, owner).
		Find(&files).Error
	if err != nil {
		return nil, fmt.Errorf("list children files in render: %w", err)
	}

	return files, nil
}

func (r *Repo) emitChildrenUpdated(ctx context.Context, id, parentID string, status model.StatusName, progress float64) {
	cfg := configs.GetConfig()
	if r.pub == nil || !cfg.Events.Enabled || !cfg.Events.Children.Updated {
		return
	}

	payload := queue.ChildrenUpdatedPayload{
		FileID:       id,
		ParentFileID: parentID,
		Status:       string(status),
		Progress:     progress,
	}

	if err := queue.PublishChildrenUpdated(publisherAdapter{ctx: ctx, pub: r.pub}, payload,
		queue.WithProducer(configs.AppName)); err != nil {
		nlog.Logger().Error().Err(err).Str("file_id", id).Msg("publish children updated failed")
	}
}
