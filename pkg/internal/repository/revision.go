package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/yeisme/outputvault/pkg/internal/model"
)

// OutputGroupKey 输出文件的分组维度.
// AssetInstanceID 为 nil 时是实体作用域，否则是实例作用域
// （TemporalEntityID 可选）。两者不可同时含糊.
type OutputGroupKey struct {
	Name             string
	Representation   string
	EntityID         string
	AssetInstanceID  *string
	TemporalEntityID *string
	OutputTypeID     string
	TaskTypeID       string
}

// Validate 校验作用域归属是否明确.
func (k *OutputGroupKey) Validate() error {
	if k.AssetInstanceID != nil && *k.AssetInstanceID != "" && k.EntityID != "" {
		// 实例作用域下 EntityID 冗余记录父资产是允许的，
		// 只有两边都空才是问题
		return nil
	}

	if (k.AssetInstanceID == nil || *k.AssetInstanceID == "") && k.EntityID == "" {
		return fmt.Errorf("%w: neither entity nor asset instance set", ErrAmbiguousScope)
	}

	return nil
}

// scopeQuery 按作用域追加查询条件.
// 实体作用域要求 asset_instance_id 为空；实例作用域按实例（及可选时间线）过滤.
func (k *OutputGroupKey) scopeQuery(q *gorm.DB) *gorm.DB {
	if k.AssetInstanceID != nil && *k.AssetInstanceID != "" {
		q = q.Where("asset_instance_id = ?", *k.AssetInstanceID)
		if k.TemporalEntityID != nil && *k.TemporalEntityID != "" {
			q = q.Where("temporal_entity_id = ?", *k.TemporalEntityID)
		} else {
			q = q.Where("temporal_entity_id IS NULL")
		}

		return q
	}

	return q.Where("entity_id = ? AND asset_instance_id IS NULL", k.EntityID)
}

// LastOutputRevision 查询该分组当前最高修订号（> 0），无命中返回 ErrNoOutputFile.
// 表现形式不参与此查询，与唯一元组的口径不同.
func (r *Repo) LastOutputRevision(ctx context.Context, key OutputGroupKey) (*model.OutputFile, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}

	var f model.OutputFile

	q := key.scopeQuery(r.db.WithContext(ctx).
		Where("name = ? AND output_type_id = ? AND task_type_id = ? AND revision > 0",
			key.Name, key.OutputTypeID, key.TaskTypeID))

	err := q.Order("revision DESC").First(&f).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoOutputFile
	} else if err != nil {
		return nil, fmt.Errorf("last revision lookup: %w", err)
	}

	return &f, nil
}

// NextOutputRevision 解析下一个安全修订号.
// 调用方显式给出正修订号时原样放行；否则取最高修订 +1，无历史从 1 起.
// 并发下可能算出相同值——由唯一约束在写入时裁决，见 CreateOutputFile.
func (r *Repo) NextOutputRevision(ctx context.Context, key OutputGroupKey, requested int) (int, error) {
	if requested > 0 {
		return requested, nil
	}

	last, err := r.LastOutputRevision(ctx, key)
	if errors.Is(err, ErrNoOutputFile) {
		return 1, nil
	} else if err != nil {
		return 0, err
	}

	return last.Revision + 1, nil
}
