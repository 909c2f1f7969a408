package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OutputFile 输出文件档案：一次发布动作在某实体、某输出类型、
// 某表现形式下的一个修订版本.
//
// 唯一性由业务元组保证（名称 + 实体 + 资产实例 + 输出类型 + 任务类型 +
// 时间线实体 + 表现形式 + 修订号），对应 uq_output_tuple 联合唯一索引.
// 路径不参与唯一约束：不同元组解析出相同路径是合法的.
type OutputFile struct {
	ID   string `gorm:"primaryKey;size:36" json:"id"`
	Name string `gorm:"size:250;index:uq_output_tuple,unique" json:"name"`
	// 扩展名含点（".exr"），序列帧文件以模式串存路径
	Extension      string `gorm:"size:10"  json:"extension"`
	Description    string `gorm:"type:text" json:"description"`
	Comment        string `gorm:"type:text" json:"comment"`
	Revision       int    `gorm:"index:uq_output_tuple,unique" json:"revision"`
	Size           int64  `json:"size"`
	Checksum       string `gorm:"size:32"  json:"checksum"`
	Path           string `gorm:"size:400;index" json:"path"`
	Representation string `gorm:"size:20;index;index:uq_output_tuple,unique" json:"representation"`
	// NbElements 序列帧数量，单文件为 1
	NbElements int    `gorm:"default:1" json:"nb_elements"`
	Source     string `gorm:"size:40"   json:"source"`
	Canceled   bool   `gorm:"default:false" json:"canceled"`

	FileStatusID string      `gorm:"size:36;index" json:"file_status_id"`
	FileStatus   *FileStatus `gorm:"foreignKey:FileStatusID" json:"-"`

	// 关联维度。AssetInstanceID 与 TemporalEntityID 可空，
	// 空值参与唯一元组时按 NULL 处理（同名不同维度互不冲突）
	EntityID         string  `gorm:"size:36;index;index:uq_output_tuple,unique" json:"entity_id"`
	AssetInstanceID  *string `gorm:"size:36;index;index:uq_output_tuple,unique" json:"asset_instance_id"`
	TemporalEntityID *string `gorm:"size:36;index:uq_output_tuple,unique" json:"temporal_entity_id"`
	OutputTypeID     string  `gorm:"size:36;index;index:uq_output_tuple,unique" json:"output_type_id"`
	TaskTypeID       string  `gorm:"size:36;index;index:uq_output_tuple,unique" json:"task_type_id"`
	PersonID         string  `gorm:"size:36;index" json:"person_id"`
	// SourceFileID 指向产出本文件的工作文件，可空
	SourceFileID *string `gorm:"size:36;index" json:"source_file_id"`

	// 渲染作业归属：owner 标识农场类型（如 "muster"），job id 为农场侧作业号.
	// 旧数据以 "MUSTER:<id>" 单字段存储，迁移入库时拆分.
	RenderOwner string `gorm:"size:20;index" json:"render_owner"`
	RenderJobID string `gorm:"size:64;index" json:"render_job_id"`

	// 自由数据袋（渲染进度等），JSON 文本存储
	DataJSON string `gorm:"type:text" json:"data_json"`

	DependentFiles []DependentFile `gorm:"many2many:dependent_links;joinForeignKey:OutputFileID;joinReferences:DependentFileID" json:"-"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (OutputFile) TableName() string { return "output_files" }

func (f *OutputFile) BeforeCreate(*gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}

	return nil
}
