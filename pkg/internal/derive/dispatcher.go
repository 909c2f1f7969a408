package derive

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/yeisme/outputvault/pkg/internal/repository"
	nlog "github.com/yeisme/outputvault/pkg/log"
	"github.com/yeisme/outputvault/pkg/queue"
)

// Dispatcher 订阅 ov.output.new，为新登记的输出文件规划衍生档案.
// 建档（PENDING）本身会发布 ov.children.new，由 Worker 接力生成，
// 发布方不等待任何下游.
type Dispatcher struct {
	repo   *repository.Repo
	policy *Policy
}

// NewDispatcher 组装派发器.
func NewDispatcher(repo *repository.Repo) *Dispatcher {
	return &Dispatcher{repo: repo, policy: NewPolicy(repo)}
}

// Run 订阅 ov.output.new 并循环规划直到上下文取消.
// 消息总是 Ack：规划是幂等的（同种类已存在即跳过），失败留待下次发布重试.
func (d *Dispatcher) Run(ctx context.Context, sub message.Subscriber) error {
	msgs, err := sub.Subscribe(ctx, queue.TopicOutputNew)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", queue.TopicOutputNew, err)
	}

	for msg := range msgs {
		env, perr := queue.ParseOutputNew(msg)
		if perr != nil {
			nlog.Logger().Error().Err(perr).Str("msg_uuid", msg.UUID).Msg("drop malformed output new message")
			msg.Ack()

			continue
		}

		if err := d.Dispatch(ctx, env.Payload.File.ID); err != nil {
			nlog.Logger().Error().Err(err).Str("file_id", env.Payload.File.ID).Msg("derivation planning failed")
		}

		msg.Ack()
	}

	return nil
}

// Dispatch 为单个输出文件执行规划.
func (d *Dispatcher) Dispatch(ctx context.Context, fileID string) error {
	f, err := d.repo.GetOutputFile(ctx, fileID)
	if err != nil {
		return err
	}

	created, err := d.policy.PlanChildren(ctx, f)
	if err != nil {
		return err
	}

	if len(created) > 0 {
		nlog.Logger().Info().Str("file_id", fileID).Int("children", len(created)).Msg("derivation planned")
	}

	return nil
}
