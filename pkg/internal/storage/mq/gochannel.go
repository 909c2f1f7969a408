package mq

import (
	"context"

	watermill "github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/yeisme/outputvault/pkg/configs"
)

// newGoChannelMQ 进程内 Pub/Sub，无外部依赖，单节点部署默认使用.
// 同一实例同时充当 Publisher 与 Subscriber.
func newGoChannelMQ(_ context.Context, cfg *configs.MQConfig, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber, error) {
	ps := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer:            int64(cfg.GoChannel.Buffer),
		Persistent:                     cfg.GoChannel.Persistent,
		BlockPublishUntilSubscriberAck: false,
	}, logger)

	return ps, ps, nil
}

func init() {
	RegisterFactory(configs.MQTypeGoChannel, newGoChannelMQ)
}
