package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DependentFile 依赖文件：输出文件引用的外部资源（贴图、缓存等）.
// 按绝对路径全局去重，一个依赖可被多个输出文件共享，
// 关联关系经 dependent_links 多对多表维护.
type DependentFile struct {
	ID   string `gorm:"primaryKey;size:36" json:"id"`
	Path string `gorm:"size:400;uniqueIndex" json:"path"`
	Size int64  `gorm:"default:0" json:"size"`
	// Checksum 为 xxhash64 十六进制摘要，登记时由调用方计算
	Checksum string `gorm:"size:16" json:"checksum"`

	OutputFiles []OutputFile `gorm:"many2many:dependent_links;joinForeignKey:DependentFileID;joinReferences:OutputFileID" json:"-"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (DependentFile) TableName() string { return "dependent_files" }

func (f *DependentFile) BeforeCreate(*gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}

	return nil
}
