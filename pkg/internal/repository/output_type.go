package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/yeisme/outputvault/pkg/internal/model"
)

// GetOrCreateOutputType 按名称取输出类型行，不存在则建档（幂等）.
// 衍生种类（thumb_high、review_web...）同样是输出类型行.
func (r *Repo) GetOrCreateOutputType(ctx context.Context, name, shortName string) (*model.OutputType, error) {
	r.typeMu.Lock()
	id, ok := r.typeMemo[name]
	r.typeMu.Unlock()

	if ok {
		return &model.OutputType{ID: id, Name: name, ShortName: shortName}, nil
	}

	var ot model.OutputType

	err := r.db.WithContext(ctx).Where("name = ?", name).First(&ot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		ot = model.OutputType{Name: name, ShortName: shortName}

		if cerr := r.db.WithContext(ctx).Create(&ot).Error; cerr != nil {
			if !isDuplicate(cerr) {
				return nil, fmt.Errorf("create output type %s: %w", name, cerr)
			}

			if rerr := r.db.WithContext(ctx).Where("name = ?", name).First(&ot).Error; rerr != nil {
				return nil, fmt.Errorf("reload output type %s: %w", name, rerr)
			}
		}
	} else if err != nil {
		return nil, fmt.Errorf("get output type %s: %w", name, err)
	}

	r.typeMu.Lock()
	r.typeMemo[name] = ot.ID
	r.typeMu.Unlock()

	return &ot, nil
}

// GetOutputType 按 ID 查输出类型.
func (r *Repo) GetOutputType(ctx context.Context, id string) (*model.OutputType, error) {
	var ot model.OutputType

	err := r.db.WithContext(ctx).Where("id = ?", id).First(&ot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrOutputTypeNotFound, id)
	} else if err != nil {
		return nil, fmt.Errorf("get output type %s: %w", id, err)
	}

	return &ot, nil
}

// GetOutputTypeByName 按名称查输出类型，不建档.
func (r *Repo) GetOutputTypeByName(ctx context.Context, name string) (*model.OutputType, error) {
	var ot model.OutputType

	err := r.db.WithContext(ctx).Where("name = ?", name).First(&ot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrOutputTypeNotFound, name)
	} else if err != nil {
		return nil, fmt.Errorf("get output type %s: %w", name, err)
	}

	return &ot, nil
}

// ListOutputTypesForEntity 列出某实体产出过的输出类型（去重）.
func (r *Repo) ListOutputTypesForEntity(ctx context.Context, entityID string) ([]model.OutputType, error) {
	var types []model.OutputType

	err := r.db.WithContext(ctx).
		Distinct("output_types.*").
		Joins("JOIN output_files ON output_files.output_type_id = output_types.id").
		Where("output_files.entity_id = ? AND output_files.asset_instance_id IS NULL", entityID).
		Find(&types).Error
	if err != nil {
		return nil, fmt.Errorf("list output types for entity %s: %w", entityID, err)
	}

	return types, nil
}

// ListOutputTypesForInstance 列出某资产实例产出过的输出类型（去重）.
func (r *Repo) ListOutputTypesForInstance(ctx context.Context, assetInstanceID, temporalEntityID string) ([]model.OutputType, error) {
	var types []model.OutputType

	q := r.db.WithContext(ctx).
		Distinct("output_types.*").
		Joins("JOIN output_files ON output_files.output_type_id = output_types.id").
		Where("output_files.asset_instance_id = ?", assetInstanceID)

	if temporalEntityID != "" {
		q = q.Where("output_files.temporal_entity_id = ?", temporalEntityID)
	}

	if err := q.Find(&types).Error; err != nil {
		return nil, fmt.Errorf("list output types for instance %s: %w", assetInstanceID, err)
	}

	return types, nil
}
