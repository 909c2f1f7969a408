package types

// PreviewPathResponse 预览图片在对象存储中的键. 槽位按父输出文件归属.
type PreviewPathResponse struct {
	FileID string `json:"file_id"`
	Slot   string `json:"slot"`
	Key    string `json:"key"`
}

// DeletePreviewRequest 删除预览图片的请求体.
type DeletePreviewRequest struct {
	// Slots 要删除的槽位列表，空则删除全部图片槽位
	Slots []string `form:"slots" json:"slots"`
}
