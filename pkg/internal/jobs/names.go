package jobs

// 任务名称常量，便于统一管理与引用.
const (
	JobFarmRenderPoll = "farm.render_poll"
	JobChildrenSweep  = "children.stale_sweep"
)
