// Package eventstreamutils builds an eventstream.Publisher from config.
package eventstreamutils

import (
	"fmt"
	"log/slog"

	"github.com/papercomputeco/factory/pkg/eventstream"
	"github.com/papercomputeco/factory/pkg/eventstream/kafka"
	"github.com/papercomputeco/factory/pkg/eventstream/nop"
)

type NewPublisherOpts struct {
	ProviderType string
	Brokers      []string
	Topic        string
	Logger       *slog.Logger
}

// NewPublisher returns the publisher named by o.ProviderType. An empty type
// disables publishing.
func NewPublisher(o *NewPublisherOpts) (eventstream.Publisher, error) {
	switch o.ProviderType {
	case "", "nop", "none":
		return nop.NewPublisher(), nil
	case "kafka":
		return kafka.NewPublisher(kafka.Config{
			Brokers: o.Brokers,
			Topic:   o.Topic,
			Logger:  o.Logger,
		})
	default:
		return nil, fmt.Errorf("unknown event stream provider: %q", o.ProviderType)
	}
}
