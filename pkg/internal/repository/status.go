package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/yeisme/outputvault/pkg/internal/model"
)

// GetOrCreateStatus 按名称取状态行，不存在则建档（幂等）.
// 并发建档撞唯一键时回读既有行.
func (r *Repo) GetOrCreateStatus(ctx context.Context, name model.StatusName) (*model.FileStatus, error) {
	r.statusMu.Lock()
	id, ok := r.statusMemo[string(name)]
	r.statusMu.Unlock()

	if ok {
		return &model.FileStatus{ID: id, Name: string(name), Color: name.Color()}, nil
	}

	var st model.FileStatus

	err := r.db.WithContext(ctx).Where("name = ?", string(name)).First(&st).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		st = model.FileStatus{Name: string(name), Color: name.Color()}

		if cerr := r.db.WithContext(ctx).Create(&st).Error; cerr != nil {
			if !isDuplicate(cerr) {
				return nil, fmt.Errorf("create file status %s: %w", name, cerr)
			}
			// 并发建档，回读
			if rerr := r.db.WithContext(ctx).Where("name = ?", string(name)).First(&st).Error; rerr != nil {
				return nil, fmt.Errorf("reload file status %s: %w", name, rerr)
			}
		}
	} else if err != nil {
		return nil, fmt.Errorf("get file status %s: %w", name, err)
	}

	r.statusMu.Lock()
	r.statusMemo[string(name)] = st.ID
	r.statusMu.Unlock()

	return &st, nil
}

// StatusID 取状态行 ID 的便捷形式.
func (r *Repo) StatusID(ctx context.Context, name model.StatusName) (string, error) {
	st, err := r.GetOrCreateStatus(ctx, name)
	if err != nil {
		return "", err
	}

	return st.ID, nil
}

// StatusNameByID 反查状态名，轮询器判定记录当前状态时使用.
func (r *Repo) StatusNameByID(ctx context.Context, id string) (model.StatusName, error) {
	var st model.FileStatus

	err := r.db.WithContext(ctx).Where("id = ?", id).First(&st).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("%w: %s", ErrFileStatusNotFound, id)
	} else if err != nil {
		return "", fmt.Errorf("get file status %s: %w", id, err)
	}

	return model.ParseStatusName(st.Name)
}
