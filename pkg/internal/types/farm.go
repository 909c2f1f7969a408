package types

// SubmitRenderJobRequest 向渲染农场提交作业并把作业挂到本地档案上.
type SubmitRenderJobRequest struct {
	// FileID 关联的本地档案 ID
	FileID string `form:"file_id" json:"file_id" rule:"required,uuid"`
	// FileKind 档案种类：output / children
	FileKind string `form:"file_kind" json:"file_kind" rule:"required,oneof=output children"`

	// JobName 农场侧作业名称，空则取档案名称
	JobName string `form:"job_name" json:"job_name" rule:"max=250"`
	// JobFile 提交给农场的作业文件（场景/脚本）
	JobFile    string `form:"job_file" json:"job_file" rule:"required,max=400"`
	Project    string `form:"project" json:"project" rule:"max=100"`
	Department string `form:"department" json:"department" rule:"max=100"`
	// Pool 渲染池，空则用配置缺省值
	Pool     string `form:"pool" json:"pool" rule:"max=100"`
	Priority int    `form:"priority" json:"priority" rule:"min=0,max=100"`
	// TemplateID 农场侧作业模板编号
	TemplateID int `form:"template_id" json:"template_id" rule:"min=0"`
	// PacketSize 每个分块的帧数
	PacketSize int `form:"packet_size" json:"packet_size" rule:"min=0"`

	StartFrame int `form:"start_frame" json:"start_frame"`
	EndFrame   int `form:"end_frame" json:"end_frame"`
	ByFrame    int `form:"by_frame" json:"by_frame" rule:"min=0"`

	// Attributes 透传给农场的附加作业属性
	Attributes map[string]string `form:"-" json:"attributes"`
}

// SubmitRenderJobResponse 提交作业响应体.
type SubmitRenderJobResponse struct {
	// JobID 农场侧作业号
	JobID string `json:"job_id"`
}

// SetRenderJobRequest 把既有农场作业挂到本地档案上.
// 兼容历史 "MUSTER:<job_id>" 单字段记法：RenderInfo 非空时优先解析.
type SetRenderJobRequest struct {
	FileID   string `form:"file_id" json:"file_id" rule:"required,uuid"`
	FileKind string `form:"file_kind" json:"file_kind" rule:"required,oneof=output children"`

	Owner string `form:"owner" json:"owner" rule:"max=20"`
	JobID string `form:"job_id" json:"job_id" rule:"max=64"`
	// RenderInfo 历史单字段记法，如 "MUSTER:42"
	RenderInfo string `form:"render_info" json:"render_info" rule:"max=100"`
}

// FarmPoolsResponse 渲染池列表响应体.
type FarmPoolsResponse struct {
	Pools []string `json:"pools"`
}

// FarmInstancesResponse 渲染节点列表响应体.
type FarmInstancesResponse struct {
	Instances []string `json:"instances"`
}
