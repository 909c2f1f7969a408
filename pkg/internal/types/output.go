// Package types 定义 HTTP 层的请求与响应结构体.
package types

import "time"

// NewOutputFileRequest 登记输出文件的请求体.
// Revision > 0 表示调用方显式指定修订号，否则由服务端解析下一个安全值.
type NewOutputFileRequest struct {
	// Name 输出名称（如镜头号 "sh010"）
	Name string `form:"name" json:"name" rule:"required,max=250"`
	// Representation 表现形式分组标签，通常取扩展名
	Representation string `form:"representation" json:"representation" rule:"max=20"`
	// Extension 扩展名（含点，如 ".exr"）
	Extension string `form:"extension" json:"extension" rule:"max=10"`
	// Revision 显式修订号，0 表示自动解析
	Revision int `form:"revision" json:"revision" rule:"min=0"`

	// EntityID 实体作用域归属；与 AssetInstanceID 至少其一
	EntityID string `form:"entity_id" json:"entity_id" rule:"omitempty,uuid"`
	// AssetInstanceID 实例作用域归属
	AssetInstanceID string `form:"asset_instance_id" json:"asset_instance_id" rule:"omitempty,uuid"`
	// TemporalEntityID 实例作用域下的时间线实体（镜头/场景），可选
	TemporalEntityID string `form:"temporal_entity_id" json:"temporal_entity_id" rule:"omitempty,uuid"`

	// OutputTypeName 输出类型名称（如 "cgi_render"），服务端按名建档
	OutputTypeName string `form:"output_type_name" json:"output_type_name" rule:"required,max=40"`
	TaskTypeID     string `form:"task_type_id" json:"task_type_id" rule:"required,uuid"`
	PersonID       string `form:"person_id" json:"person_id" rule:"omitempty,uuid"`
	// SourceFileID 产出此输出的工作文件，可选
	SourceFileID string `form:"source_file_id" json:"source_file_id" rule:"omitempty,uuid"`

	// Path 产物路径；序列帧以 "<模式串> [start-end]" 记法表示
	Path        string `form:"path" json:"path" rule:"required,max=400"`
	Comment     string `form:"comment" json:"comment"`
	Description string `form:"description" json:"description"`
	Size        int64  `form:"size" json:"size" rule:"min=0"`
	Checksum    string `form:"checksum" json:"checksum" rule:"max=32"`
	// NbElements 序列帧数量，单文件为 1
	NbElements int    `form:"nb_elements" json:"nb_elements" rule:"min=0"`
	Source     string `form:"source" json:"source" rule:"max=40"`

	// Data 自由数据袋，随档案存储
	Data map[string]any `form:"-" json:"data"`

	// InRender 为 true 时档案以 IN RENDER 状态建立（产物由农场异步产出），
	// 此时不触发衍生流水线，待轮询验收通过后再触发
	InRender bool `form:"in_render" json:"in_render"`
}

// OutputFileInfo 输出文件的公开信息.
type OutputFileInfo struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Extension      string `json:"extension"`
	Revision       int    `json:"revision"`
	Representation string `json:"representation"`
	Path           string `json:"path"`
	Size           int64  `json:"size"`
	Checksum       string `json:"checksum"`
	NbElements     int    `json:"nb_elements"`
	Source         string `json:"source"`
	Comment        string `json:"comment"`
	Description    string `json:"description"`
	Canceled       bool   `json:"canceled"`

	// Status 状态名称（WAITING / IN RENDER / ...）
	Status string `json:"status"`

	EntityID         string  `json:"entity_id"`
	AssetInstanceID  *string `json:"asset_instance_id,omitempty"`
	TemporalEntityID *string `json:"temporal_entity_id,omitempty"`
	OutputTypeID     string  `json:"output_type_id"`
	TaskTypeID       string  `json:"task_type_id"`
	PersonID         string  `json:"person_id"`
	SourceFileID     *string `json:"source_file_id,omitempty"`

	RenderOwner string `json:"render_owner,omitempty"`
	RenderJobID string `json:"render_job_id,omitempty"`

	Data map[string]any `json:"data,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewOutputFileResponse 登记成功的响应体.
type NewOutputFileResponse struct {
	File OutputFileInfo `json:"file"`
}

// ListOutputFilesRequest 输出文件列表过滤条件（query 参数）.
type ListOutputFilesRequest struct {
	OutputTypeID   string `form:"output_type_id" json:"output_type_id" rule:"omitempty,uuid"`
	TaskTypeID     string `form:"task_type_id" json:"task_type_id" rule:"omitempty,uuid"`
	Representation string `form:"representation" json:"representation" rule:"max=20"`
	Name           string `form:"name" json:"name" rule:"max=250"`
	// LastOnly 为 true 时仅返回每个 (name, representation) 分组的最新修订
	LastOnly bool `form:"last_only" json:"last_only"`
}

// ListOutputFilesResponse 输出文件列表响应体.
type ListOutputFilesResponse struct {
	Files []OutputFileInfo `json:"files"`
}

// NextRevisionRequest 查询下一修订号的参数.
type NextRevisionRequest struct {
	Name             string `form:"name" json:"name" rule:"required,max=250"`
	Representation   string `form:"representation" json:"representation" rule:"max=20"`
	EntityID         string `form:"entity_id" json:"entity_id" rule:"omitempty,uuid"`
	AssetInstanceID  string `form:"asset_instance_id" json:"asset_instance_id" rule:"omitempty,uuid"`
	TemporalEntityID string `form:"temporal_entity_id" json:"temporal_entity_id" rule:"omitempty,uuid"`
	OutputTypeName   string `form:"output_type_name" json:"output_type_name" rule:"required,max=40"`
	TaskTypeID       string `form:"task_type_id" json:"task_type_id" rule:"required,uuid"`
}

// NextRevisionResponse 下一修订号响应体.
type NextRevisionResponse struct {
	Revision int `json:"revision"`
}

// AttachDependentRequest 挂接依赖文件的请求体.
type AttachDependentRequest struct {
	// Path 依赖文件路径（全局唯一键）
	Path     string `form:"path" json:"path" rule:"required,max=400"`
	Size     int64  `form:"size" json:"size" rule:"min=0"`
	Checksum string `form:"checksum" json:"checksum" rule:"max=32"`
}

// DependentFileInfo 依赖文件的公开信息.
type DependentFileInfo struct {
	ID       string `json:"id"`
	Path     string `json:"path"`
	Size     int64  `json:"size"`
	Checksum string `json:"checksum"`
}

// ListDependentFilesResponse 依赖文件列表响应体.
type ListDependentFilesResponse struct {
	Files []DependentFileInfo `json:"files"`
}

// OutputTypeInfo 输出类型的公开信息.
type OutputTypeInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ShortName string `json:"short_name"`
}

// ListOutputTypesResponse 输出类型列表响应体.
type ListOutputTypesResponse struct {
	Types []OutputTypeInfo `json:"types"`
}
