package types

import "time"

// ChildrenFileInfo 衍生文件的公开信息.
type ChildrenFileInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Path string `json:"path"`
	Size int64  `json:"size"`

	ParentFileID     string  `json:"parent_file_id"`
	OutputTypeID     string  `json:"output_type_id"`
	TemporalEntityID *string `json:"temporal_entity_id,omitempty"`
	// Kind 衍生种类名称（thumb_high / review_web / ...）
	Kind string `json:"kind"`
	// Status 状态名称（PENDING / IN RENDER / GENERATED / FAILED / ...）
	Status string `json:"status"`

	RenderOwner string `json:"render_owner,omitempty"`
	RenderJobID string `json:"render_job_id,omitempty"`

	// Progress 渲染进度（0-100），仅渲染委托的记录有值
	Progress float64 `json:"progress,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListChildrenFilesResponse 衍生文件列表响应体.
type ListChildrenFilesResponse struct {
	Files []ChildrenFileInfo `json:"files"`
}

// PlanChildrenResponse 衍生规划结果：本次新建的 PENDING 记录.
type PlanChildrenResponse struct {
	Created []ChildrenFileInfo `json:"created"`
}
