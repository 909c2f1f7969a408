package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ChildrenFile 衍生文件档案：由某个输出文件按策略派生出的
// 缩略图、代理或审看媒体，一个父文件在同一输出类型下至多一条.
type ChildrenFile struct {
	ID   string `gorm:"primaryKey;size:36" json:"id"`
	Name string `gorm:"size:250" json:"name"`
	Size int64  `gorm:"default:0" json:"size"`
	// 目标落盘路径，生成前即确定
	Path string `gorm:"size:400" json:"path"`

	ParentFileID string      `gorm:"size:36;index;index:uq_children_parent_type,unique" json:"parent_file_id"`
	ParentFile   *OutputFile `gorm:"foreignKey:ParentFileID" json:"-"`

	OutputTypeID string      `gorm:"size:36;index;index:uq_children_parent_type,unique" json:"output_type_id"`
	OutputType   *OutputType `gorm:"foreignKey:OutputTypeID" json:"-"`

	// 实例作用域父文件的时间线实体，建档时从父文件带入
	TemporalEntityID *string `gorm:"size:36;index" json:"temporal_entity_id"`

	FileStatusID string      `gorm:"size:36;index" json:"file_status_id"`
	FileStatus   *FileStatus `gorm:"foreignKey:FileStatusID" json:"-"`

	// 渲染作业归属，见 OutputFile 同名字段
	RenderOwner string `gorm:"size:20;index" json:"render_owner"`
	RenderJobID string `gorm:"size:64;index" json:"render_job_id"`

	// 自由数据袋，存放 render_progress 等
	DataJSON string `gorm:"type:text" json:"data_json"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (ChildrenFile) TableName() string { return "children_files" }

func (f *ChildrenFile) BeforeCreate(*gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}

	return nil
}
