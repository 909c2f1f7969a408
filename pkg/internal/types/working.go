package types

import "time"

// NewWorkingFileRequest 登记工作文件的请求体.
// 同一路径重复登记是幂等操作，返回既有档案.
type NewWorkingFileRequest struct {
	Name    string `form:"name" json:"name" rule:"required,max=250"`
	Comment string `form:"comment" json:"comment"`
	// Revision 显式修订号，0 表示按 (entity, task, name) 自增
	Revision int    `form:"revision" json:"revision" rule:"min=0"`
	Path     string `form:"path" json:"path" rule:"required,max=400"`
	Size     int64  `form:"size" json:"size" rule:"min=0"`
	Checksum string `form:"checksum" json:"checksum" rule:"max=32"`

	EntityID   string `form:"entity_id" json:"entity_id" rule:"required,uuid"`
	TaskID     string `form:"task_id" json:"task_id" rule:"omitempty,uuid"`
	TaskTypeID string `form:"task_type_id" json:"task_type_id" rule:"omitempty,uuid"`
	PersonID   string `form:"person_id" json:"person_id" rule:"omitempty,uuid"`
	SoftwareID string `form:"software_id" json:"software_id" rule:"omitempty,uuid"`

	Data map[string]any `form:"-" json:"data"`
}

// WorkingFileInfo 工作文件的公开信息.
type WorkingFileInfo struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Comment  string  `json:"comment"`
	Revision int     `json:"revision"`
	Path     string  `json:"path"`
	Size     int64   `json:"size"`
	Checksum string  `json:"checksum"`
	EntityID string  `json:"entity_id"`
	TaskID   *string `json:"task_id,omitempty"`
	PersonID string  `json:"person_id"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewWorkingFileResponse 登记响应体.
type NewWorkingFileResponse struct {
	File WorkingFileInfo `json:"file"`
	// Created 为 false 表示路径命中既有档案，返回的是旧记录
	Created bool `json:"created"`
}

// ListWorkingFilesResponse 工作文件列表响应体.
type ListWorkingFilesResponse struct {
	Files []WorkingFileInfo `json:"files"`
}
