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

// WorkingFilePayload 创建工作文件的字段集.
type WorkingFilePayload struct {
	Name       string
	Comment    string
	Revision   int
	Size       int64
	Checksum   string
	Path       string
	EntityID   string
	TaskID     *string
	TaskTypeID string
	PersonID   string
	SoftwareID *string
	Data       map[string]any
}

// CreateWorkingFile 按路径幂等创建：相同路径已有行时返回既有行，不报错.
// 编辑器"保存"天然会重试，同一路径重复登记是常态而非异常——
// 与输出文件的严格创建刻意不同.
// 修订号未显式给出时按 (entity, task, name) 自增.
func (r *Repo) CreateWorkingFile(ctx context.Context, p WorkingFilePayload) (*model.WorkingFile, bool, error) {
	if p.Path != "" {
		var existing model.WorkingFile

		err := r.db.WithContext(ctx).Where("path = ?", p.Path).First(&existing).Error
		if err == nil {
			return &existing, false, nil
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, fmt.Errorf("working file pre-lookup: %w", err)
		}
	}

	revision := p.Revision
	if revision < 1 {
		next, err := r.nextWorkingRevision(ctx, p.EntityID, p.TaskID, p.Name)
		if err != nil {
			return nil, false, err
		}

		revision = next
	}

	dataJSON, err := model.EncodeData(p.Data)
	if err != nil {
		return nil, false, err
	}

	f := model.WorkingFile{
		Name:       p.Name,
		Comment:    p.Comment,
		Revision:   revision,
		Size:       p.Size,
		Checksum:   p.Checksum,
		Path:       p.Path,
		EntityID:   p.EntityID,
		TaskID:     p.TaskID,
		TaskTypeID: p.TaskTypeID,
		PersonID:   p.PersonID,
		SoftwareID: p.SoftwareID,
		DataJSON:   dataJSON,
	}

	if err := r.db.WithContext(ctx).Create(&f).Error; err != nil {
		if isDuplicate(err) {
			// 并发登记同一路径：回读既有行，保持幂等语义
			var existing model.WorkingFile
			if rerr := r.db.WithContext(ctx).Where("path = ?", p.Path).First(&existing).Error; rerr == nil {
				return &existing, false, nil
			}
		}

		return nil, false, fmt.Errorf("create working file: %w", err)
	}

	cfg := configs.GetConfig()
	if r.pub != nil && cfg.Events.Enabled && cfg.Events.Output.WorkingNew {
		taskID := ""
		if f.TaskID != nil {
			taskID = *f.TaskID
		}

		payload := queue.WorkingNewPayload{
			FileID:   f.ID,
			Name:     f.Name,
			Path:     f.Path,
			Revision: f.Revision,
			EntityID: f.EntityID,
			TaskID:   taskID,
		}

		if perr := queue.PublishWorkingNew(publisherAdapter{ctx: ctx, pub: r.pub}, payload,
			queue.WithProducer(configs.AppName)); perr != nil {
			nlog.Logger().Error().Err(perr).Str("file_id", f.ID).Msg("publish working new failed")
		}
	}

	return &f, true, nil
}

// GetWorkingFile 按 ID 查工作文件.
func (r *Repo) GetWorkingFile(ctx context.Context, id string) (*model.WorkingFile, error) {
	var f model.WorkingFile

	err := r.db.WithContext(ctx).Where("id = ?", id).First(&f).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrWorkingFileNotFound, id)
	} else if err != nil {
		return nil, fmt.Errorf("get working file %s: %w", id, err)
	}

	return &f, nil
}

// ListWorkingFilesForTask 某任务下的工作文件，按修订号倒序.
func (r *Repo) ListWorkingFilesForTask(ctx context.Context, taskID string) ([]model.WorkingFile, error) {
	var files []model.WorkingFile

	if err := r.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		Order("name, revision DESC").
		Find(&files).Error; err != nil {
		return nil, fmt.Errorf("list working files for task %s: %w", taskID, err)
	}

	return files, nil
}

func (r *Repo) nextWorkingRevision(ctx context.Context, entityID string, taskID *string, name string) (int, error) {
	var f model.WorkingFile

	q := r.db.WithContext(ctx).Where("entity_id = ? AND name = ?", entityID, name)
	if taskID != nil && *taskID != "" {
		q = q.Where("task_id = ?", *taskID)
	}

	err := q.Order("revision DESC").First(&f).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 1, nil
	} else if err != nil {
		return 0, fmt.Errorf("next working revision: %w", err)
	}

	return f.Revision + 1, nil
}
