// Package queue 定义消息主题常量与通配模式，供发布/订阅使用.
package queue

// 主题命名规范：ov.<域>.<动作>[.<状态>]，尽量稳定且向后兼容.
// 域：output(输出文件)、working(工作文件)、children(衍生文件)、preview(预览图片)、farm(渲染农场)
// 动作/状态：new(新建)、updated(更新)、generated(生成完成)、failed(失败)、removed(消失)

const (
	// 输出文件领域.
	TopicOutputNew      = "ov.output.new"      // 输出文件已登记入库，驱动衍生流水线；渲染产物验收通过后会再次发布
	TopicOutputUpdated  = "ov.output.updated"  // 输出文件元数据更新（状态、数据袋等）
	TopicOutputCanceled = "ov.output.canceled" // 输出文件被废弃

	// 工作文件领域.
	TopicWorkingNew = "ov.working.new" // 工作文件已登记（按路径幂等，重复登记不重复发布）

	// 衍生文件领域.
	TopicChildrenNew       = "ov.children.new"       // 衍生文件已建档，转码 worker 订阅此主题
	TopicChildrenUpdated   = "ov.children.updated"   // 衍生文件状态或渲染进度变化
	TopicChildrenGenerated = "ov.children.generated" // 衍生产物生成完成
	TopicChildrenFailed    = "ov.children.failed"    // 衍生产物生成失败

	// 预览图片领域.
	TopicPreviewUpdated = "ov.preview.updated" // 预览图片（原图/缩略图）已写入对象存储
	TopicPreviewDeleted = "ov.preview.deleted" // 预览图片被删除

	// 渲染农场领域.
	TopicFarmJobProgress = "ov.farm.job.progress" // 轮询器观测到作业进度变化
	TopicFarmJobDone     = "ov.farm.job.done"     // 作业完成且产物验收通过
	TopicFarmJobFailed   = "ov.farm.job.failed"   // 作业失败、被移除或产物验收不通过
)

// 主题分组，用于批量订阅或权限控制.
var (
	// 输出/工作文件相关主题集合.
	OutputTopics = []string{
		TopicOutputNew, TopicOutputUpdated, TopicOutputCanceled,
		TopicWorkingNew,
	}

	// 衍生文件相关主题集合.
	ChildrenTopics = []string{
		TopicChildrenNew, TopicChildrenUpdated,
		TopicChildrenGenerated, TopicChildrenFailed,
	}

	// 预览图片相关主题集合.
	PreviewTopics = []string{
		TopicPreviewUpdated, TopicPreviewDeleted,
	}

	// 渲染农场相关主题集合.
	FarmTopics = []string{
		TopicFarmJobProgress, TopicFarmJobDone, TopicFarmJobFailed,
	}
)
