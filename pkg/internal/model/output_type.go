package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OutputType 输出类型字典表（cache、render、thumbnail、proxy_exr 等）.
// 按名称 get-or-create，衍生策略以短名匹配.
type OutputType struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Name      string    `gorm:"size:40;uniqueIndex" json:"name"`
	ShortName string    `gorm:"size:20;index" json:"short_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (OutputType) TableName() string { return "output_types" }

func (t *OutputType) BeforeCreate(*gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}

	return nil
}
