package queue

import "github.com/ThreeDotsLabs/watermill/message"

// -------------------------- 基于业务封装 events --------------------------

// PublishOutputNew 发布 ov.output.new 事件。
// 输出文件登记入库后通知衍生流水线；渲染产物验收通过后以 Republished=true 二次发布。
func PublishOutputNew(pub message.Publisher, payload OutputNewPayload, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(TopicOutputNew, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(TopicOutputNew, msg)
}

// ParseOutputNew 将 Watermill 消息解析为强类型 Envelope（OutputNewPayload）。
func ParseOutputNew(msg *message.Message) (Message[OutputNewPayload], error) {
	return ParseWatermillMessage[OutputNewPayload](msg)
}

// PublishWorkingNew 发布 ov.working.new 事件。
// 工作文件按路径幂等建档，仅在真正新建行时发布。
func PublishWorkingNew(pub message.Publisher, payload WorkingNewPayload, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(TopicWorkingNew, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(TopicWorkingNew, msg)
}

// PublishChildrenNew 发布 ov.children.new 事件，转码 worker 消费。
func PublishChildrenNew(pub message.Publisher, payload ChildrenNewPayload, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(TopicChildrenNew, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(TopicChildrenNew, msg)
}

// ParseChildrenNew 将 Watermill 消息解析为强类型 Envelope（ChildrenNewPayload）。
func ParseChildrenNew(msg *message.Message) (Message[ChildrenNewPayload], error) {
	return ParseWatermillMessage[ChildrenNewPayload](msg)
}

// PublishChildrenUpdated 发布 ov.children.updated 事件（状态或进度变化）。
func PublishChildrenUpdated(pub message.Publisher, payload ChildrenUpdatedPayload, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(TopicChildrenUpdated, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(TopicChildrenUpdated, msg)
}

// PublishChildrenGenerated 发布 ov.children.generated 事件。
func PublishChildrenGenerated(pub message.Publisher, payload ChildrenGeneratedPayload, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(TopicChildrenGenerated, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(TopicChildrenGenerated, msg)
}

// PublishChildrenFailed 发布 ov.children.failed 事件。
func PublishChildrenFailed(pub message.Publisher, payload ChildrenFailedPayload, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(TopicChildrenFailed, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(TopicChildrenFailed, msg)
}

// PublishPreviewUpdated 发布 ov.preview.updated 事件。
func PublishPreviewUpdated(pub message.Publisher, payload PreviewUpdatedPayload, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(TopicPreviewUpdated, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(TopicPreviewUpdated, msg)
}

// PublishPreviewDeleted 发布 ov.preview.deleted 事件。
func PublishPreviewDeleted(pub message.Publisher, payload PreviewDeletedPayload, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(TopicPreviewDeleted, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(TopicPreviewDeleted, msg)
}

// PublishFarmJobProgress 发布 ov.farm.job.progress 事件。
func PublishFarmJobProgress(pub message.Publisher, payload FarmJobProgressPayload, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(TopicFarmJobProgress, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(TopicFarmJobProgress, msg)
}

// PublishFarmJobDone 发布 ov.farm.job.done 事件。
func PublishFarmJobDone(pub message.Publisher, payload FarmJobDonePayload, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(TopicFarmJobDone, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(TopicFarmJobDone, msg)
}

// PublishFarmJobFailed 发布 ov.farm.job.failed 事件。
func PublishFarmJobFailed(pub message.Publisher, payload FarmJobFailedPayload, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(TopicFarmJobFailed, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(TopicFarmJobFailed, msg)
}
