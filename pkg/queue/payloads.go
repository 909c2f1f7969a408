package queue

import "time"

// EventHeader 定义所有事件的通用头部元数据.
// 建议在发布消息时填充 TraceID、OccurredAt、Producer 等，便于追踪链路与审计.
type EventHeader struct {
	// Topic 冗余记录消息主题，便于离线处理或转储后定位来源主题.
	Topic string `json:"topic"`
	// TraceID 分布式追踪/关联 ID，可来自中间件或业务生成.
	TraceID string `json:"trace_id,omitempty"`
	// Producer 生产者服务名或节点标识.
	Producer string `json:"producer,omitempty"`
	// OccurredAt 事件发生时间（UTC，RFC3339）.
	OccurredAt time.Time `json:"occurred_at"`
	// Version 事件负载版本，便于向后兼容演进.
	Version string `json:"version,omitempty"`
}

// Message 是统一的消息封装，Header + Payload.
// T 即不同主题对应的负载结构体.
type Message[T any] struct {
	Header  EventHeader `json:"header"`
	Payload T           `json:"payload"`
}

// -------------------------- 输出文件领域 --------------------------

// OutputFileRef 标识一个输出文件及其定位维度.
type OutputFileRef struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	Path             string  `json:"path"`
	Extension        string  `json:"extension,omitempty"`
	Revision         int     `json:"revision"`
	Representation   string  `json:"representation,omitempty"`
	NbElements       int     `json:"nb_elements,omitempty"`
	EntityID         string  `json:"entity_id"`
	AssetInstanceID  *string `json:"asset_instance_id,omitempty"`
	TemporalEntityID *string `json:"temporal_entity_id,omitempty"`
	OutputTypeID     string  `json:"output_type_id"`
	TaskTypeID       string  `json:"task_type_id"`
}

// OutputNewPayload 输出文件登记完成.
// 衍生流水线订阅此负载决定派生哪些子产物.
type OutputNewPayload struct {
	File OutputFileRef `json:"file"`
	// OutputTypeName 输出类型短名（comp_render、plate...），省去消费端一次查表
	OutputTypeName string `json:"output_type_name,omitempty"`
	Status         string `json:"status,omitempty"`
	// Republished 渲染产物验收通过后的二次发布
	Republished bool `json:"republished,omitempty"`
}

// OutputUpdatedPayload 输出文件元数据变化.
type OutputUpdatedPayload struct {
	FileID string `json:"file_id"`
	Status string `json:"status,omitempty"`
}

// OutputCanceledPayload 输出文件废弃.
type OutputCanceledPayload struct {
	FileID string `json:"file_id"`
}

// WorkingNewPayload 工作文件登记完成.
type WorkingNewPayload struct {
	FileID   string `json:"file_id"`
	Name     string `json:"name"`
	Path     string `json:"path"`
	Revision int    `json:"revision"`
	EntityID string `json:"entity_id"`
	TaskID   string `json:"task_id,omitempty"`
}

// -------------------------- 衍生文件领域 --------------------------

// ChildrenNewPayload 衍生文件建档完成，等待转码.
type ChildrenNewPayload struct {
	FileID       string `json:"file_id"`
	ParentFileID string `json:"parent_file_id"`
	OutputTypeID string `json:"output_type_id"`
	// OutputTypeName 衍生种类短名（thumb_high、review_web...）
	OutputTypeName string `json:"output_type_name"`
	Path           string `json:"path"`
}

// ChildrenUpdatedPayload 衍生文件状态或渲染进度变化.
type ChildrenUpdatedPayload struct {
	FileID       string `json:"file_id"`
	ParentFileID string `json:"parent_file_id,omitempty"`
	Status       string `json:"status,omitempty"`
	// Progress 渲染进度百分比 0-100，仅进度事件携带
	Progress float64 `json:"progress,omitempty"`
}

// ChildrenGeneratedPayload 衍生产物生成完成.
type ChildrenGeneratedPayload struct {
	FileID       string `json:"file_id"`
	ParentFileID string `json:"parent_file_id"`
	Path         string `json:"path"`
	Size         int64  `json:"size,omitempty"`
}

// ChildrenFailedPayload 衍生产物生成失败.
type ChildrenFailedPayload struct {
	FileID       string `json:"file_id"`
	ParentFileID string `json:"parent_file_id"`
	Error        string `json:"error"`
}

// -------------------------- 预览图片领域 --------------------------

// PreviewUpdatedPayload 预览图片写入完成. 槽位按父输出文件归属.
type PreviewUpdatedPayload struct {
	FileID string `json:"file_id"`
	// Slot 图片槽位：original / thumbnails / previews
	Slot   string `json:"slot"`
	Bucket string `json:"bucket,omitempty"`
	Key    string `json:"key,omitempty"`
}

// PreviewDeletedPayload 预览图片删除完成.
type PreviewDeletedPayload struct {
	FileID string   `json:"file_id"`
	Slots  []string `json:"slots,omitempty"`
}

// -------------------------- 渲染农场领域 --------------------------

// FarmJobRef 标识农场侧作业及其本地归属文件.
type FarmJobRef struct {
	Owner  string `json:"owner"` // 农场类型标识，如 "muster"
	JobID  string `json:"job_id"`
	FileID string `json:"file_id"` // 关联的输出文件或衍生文件 ID
	// FileKind 区分归属：output / children
	FileKind string `json:"file_kind"`
}

// FarmJobProgressPayload 作业进度观测值.
type FarmJobProgressPayload struct {
	Job      FarmJobRef `json:"job"`
	Progress float64    `json:"progress"` // 0-100
}

// FarmJobDonePayload 作业完成且产物验收通过.
type FarmJobDonePayload struct {
	Job FarmJobRef `json:"job"`
}

// FarmJobFailedPayload 作业失败、被移除或验收不通过.
type FarmJobFailedPayload struct {
	Job    FarmJobRef `json:"job"`
	Reason string     `json:"reason"`
}
