package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StatusName 文件状态名，数据库中以 file_statuses 行存储，
// 代码中用强类型常量避免散落的裸字符串.
type StatusName string

const (
	// StatusWaiting 输出文件已登记，等待衍生流水线接手.
	StatusWaiting StatusName = "WAITING"
	// StatusPending 衍生文件已建档，尚未开始转码.
	StatusPending StatusName = "PENDING"
	// StatusInRender 源文件还在渲染农场产出中，不可读取.
	StatusInRender StatusName = "IN RENDER"
	// StatusGenerated 衍生产物已生成并落盘.
	StatusGenerated StatusName = "GENERATED"
	// StatusFailed 衍生转码失败.
	StatusFailed StatusName = "FAILED"
	// StatusRenderFailed 渲染农场侧作业失败或产物校验不通过.
	StatusRenderFailed StatusName = "RENDER FAILED"
	// StatusToReview 产物就绪，等待审阅.
	StatusToReview StatusName = "TO REVIEW"
)

// statusColors 各状态的展示颜色，建档时写入.
var statusColors = map[StatusName]string{
	StatusWaiting:      "#f5f5f5",
	StatusPending:      "#fbc02d",
	StatusInRender:     "#64b5f6",
	StatusGenerated:    "#66bb6a",
	StatusFailed:       "#ef5350",
	StatusRenderFailed: "#b71c1c",
	StatusToReview:     "#3273dc",
}

// knownStatuses 双向解析表，由常量表派生.
var knownStatuses = func() map[string]StatusName {
	m := make(map[string]StatusName, len(statusColors))
	for s := range statusColors {
		m[string(s)] = s
	}

	return m
}()

// ParseStatusName 将外部字符串解析为状态常量.
func ParseStatusName(s string) (StatusName, error) {
	if st, ok := knownStatuses[s]; ok {
		return st, nil
	}

	return "", fmt.Errorf("unknown file status %q", s)
}

// Color 返回状态的展示颜色，未知状态返回空串.
func (s StatusName) Color() string {
	return statusColors[s]
}

func (s StatusName) String() string {
	return string(s)
}

// FileStatus 文件状态字典表.
// 状态行按名称 get-or-create，输出文件与衍生文件用外键引用.
type FileStatus struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Name      string    `gorm:"size:40;uniqueIndex" json:"name"`
	Color     string    `gorm:"size:7"              json:"color"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 保持与既有库表一致的复数下划线命名.
func (FileStatus) TableName() string { return "file_statuses" }

func (s *FileStatus) BeforeCreate(*gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}

	return nil
}
