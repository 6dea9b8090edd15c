package eventbus

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	sonic "github.com/bytedance/sonic"
	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel/trace"

	"github.com/riskibarqy/homerun-cage/internal/platform/logging"
)

const (
	TopicGameTransitions = "game.transitions"

	MetadataTraceID = "trace_id"
	MetadataSpanID  = "span_id"
)

// Bus is an in-process pub/sub backed by a watermill go channel.
type Bus struct {
	pubsub *gochannel.GoChannel
	logger watermill.LoggerAdapter
}

func New(logger *logging.Logger, buffer int64) *Bus {
	if buffer <= 0 {
		buffer = 64
	}
	adapter := logging.NewWatermillAdapter(logger)
	return &Bus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: buffer,
		}, adapter),
		logger: adapter,
	}
}

func (b *Bus) Publisher() message.Publisher {
	return b.pubsub
}

func (b *Bus) Subscriber() message.Subscriber {
	return b.pubsub
}

func (b *Bus) Logger() watermill.LoggerAdapter {
	return b.logger
}

func (b *Bus) Close() error {
	return b.pubsub.Close()
}

// PublishJSON encodes payload with sonic and publishes it on topic.
// Correlation and trace ids from ctx travel as message metadata.
func (b *Bus) PublishJSON(ctx context.Context, topic string, payload any) error {
	body, err := sonic.Marshal(payload)
	if err != nil {
		return errors.Wrapf(err, "marshal %s payload", topic)
	}

	msg := message.NewMessage(watermill.NewUUID(), body)
	msg.SetContext(ctx)
	middleware.SetCorrelationID(watermill.NewShortUUID(), msg)
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		msg.Metadata.Set(MetadataTraceID, sc.TraceID().String())
		msg.Metadata.Set(MetadataSpanID, sc.SpanID().String())
	}

	if err := b.pubsub.Publish(topic, msg); err != nil {
		return errors.Wrapf(err, "publish %s", topic)
	}
	return nil
}

// Decode unmarshals a message payload published by PublishJSON.
func Decode[T any](msg *message.Message) (T, error) {
	var out T
	if err := sonic.Unmarshal(msg.Payload, &out); err != nil {
		return out, errors.Wrapf(err, "decode message %s", msg.UUID)
	}
	return out, nil
}
