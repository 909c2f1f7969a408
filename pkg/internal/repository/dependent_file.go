package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"gorm.io/gorm"

	"github.com/yeisme/outputvault/pkg/internal/model"
)

// ChecksumBytes 计算依赖文件内容摘要（xxhash64，十六进制）.
func ChecksumBytes(b []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(b))
}

// GetOrCreateDependentFile 按路径 get-or-create 依赖文件并挂接到输出文件.
// 依赖是共享资源：同一路径全局一行，多个输出文件经链接表引用；
// 对同一输出的重复挂接是 no-op.
func (r *Repo) GetOrCreateDependentFile(ctx context.Context, outputFileID, path string, size int64, checksum string) (*model.DependentFile, error) {
	output, err := r.GetOutputFile(ctx, outputFileID)
	if err != nil {
		return nil, err
	}

	var dep model.DependentFile

	err = r.db.WithContext(ctx).Where("path = ?", path).First(&dep).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		dep = model.DependentFile{Path: path, Size: size, Checksum: checksum}

		if cerr := r.db.WithContext(ctx).Create(&dep).Error; cerr != nil {
			if !isDuplicate(cerr) {
				return nil, fmt.Errorf("create dependent file: %w", cerr)
			}

			if rerr := r.db.WithContext(ctx).Where("path = ?", path).First(&dep).Error; rerr != nil {
				return nil, fmt.Errorf("reload dependent file: %w", rerr)
			}
		}
	} else if err != nil {
		return nil, fmt.Errorf("dependent file lookup: %w", err)
	}

	// 挂接多对多；gorm 的 Append 对已存在关联是幂等的
	if aerr := r.db.WithContext(ctx).Model(output).
		Association("DependentFiles").
		Append(&dep); aerr != nil {
		return nil, fmt.Errorf("attach dependent file: %w", aerr)
	}

	return &dep, nil
}

// ListDependentFiles 列出输出文件的依赖.
func (r *Repo) ListDependentFiles(ctx context.Context, outputFileID string) ([]model.DependentFile, error) {
	output, err := r.GetOutputFile(ctx, outputFileID)
	if err != nil {
		return nil, err
	}

	var deps []model.DependentFile
	if err := r.db.WithContext(ctx).Model(output).
		Association("DependentFiles").
		Find(&deps); err != nil {
		return nil, fmt.Errorf("list dependent files: %w", err)
	}

	return deps, nil
}
