package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WorkingFile 工作文件档案：艺术家保存的场景文件（.ma/.hip/.nk 等），
// 输出文件由它产出。按路径幂等建档，重复登记返回既有行.
type WorkingFile struct {
	ID       string `gorm:"primaryKey;size:36" json:"id"`
	Name     string `gorm:"size:250;index" json:"name"`
	Comment  string `gorm:"type:text" json:"comment"`
	Revision int    `gorm:"index" json:"revision"`
	Size     int64  `json:"size"`
	Checksum string `gorm:"size:32" json:"checksum"`
	Path     string `gorm:"size:400;uniqueIndex" json:"path"`

	EntityID   string  `gorm:"size:36;index" json:"entity_id"`
	TaskID     *string `gorm:"size:36;index" json:"task_id"`
	TaskTypeID string  `gorm:"size:36;index" json:"task_type_id"`
	PersonID   string  `gorm:"size:36;index" json:"person_id"`
	SoftwareID *string `gorm:"size:36;index" json:"software_id"`

	DataJSON string `gorm:"type:text" json:"data_json"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (WorkingFile) TableName() string { return "working_files" }

func (f *WorkingFile) BeforeCreate(*gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}

	return nil
}
