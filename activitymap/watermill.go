package activitymap

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/goliatone/go-wodstrat"
)

// DefaultTopic receives every normalized activity record
const DefaultTopic = "wodstrat.activity"

const (
	MetadataVerb    = "verb"
	MetadataChannel = "channel"
)

// PublisherSink publishes normalized events as JSON watermill messages
type PublisherSink struct {
	publisher message.Publisher
	topic     string
	opts      []Option
}

var _ wodstrat.ActivitySink = (*PublisherSink)(nil)

// NewPublisherSink publishes to topic, DefaultTopic when empty
func NewPublisherSink(publisher message.Publisher, topic string, opts ...Option) *PublisherSink {
	if topic == "" {
		topic = DefaultTopic
	}
	return &PublisherSink{publisher: publisher, topic: topic, opts: opts}
}

// Record satisfies wodstrat.ActivitySink
func (s *PublisherSink) Record(ctx context.Context, event wodstrat.ActivityEvent) error {
	normalized := Normalize(event, s.opts...)

	payload, err := json.Marshal(normalized)
	if err != nil {
		return err
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(MetadataVerb, normalized.Verb)
	msg.Metadata.Set(MetadataChannel, normalized.Channel)
	if ctx != nil {
		msg.SetContext(ctx)
	}

	return s.publisher.Publish(s.topic, msg)
}

// NewInProcessPubSub returns a gochannel pub/sub for local subscribers
func NewInProcessPubSub(logger watermill.LoggerAdapter) *gochannel.GoChannel {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	return gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, logger)
}

// Decode parses a message published by PublisherSink
func Decode(msg *message.Message) (Normalized, error) {
	var out Normalized
	err := json.Unmarshal(msg.Payload, &out)
	return out, err
}
