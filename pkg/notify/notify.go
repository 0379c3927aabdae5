// Package notify delivers triggered-alert payloads to configured
// channels. Channels register by name; dispatch failures on one channel
// never block delivery on the others.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/adpulse/adpulse/pkg/logger"
)

// ChannelEmail is the only channel shipped today.
const ChannelEmail = "email"

// Notification is the rendered payload handed to every channel.
type Notification struct {
	RuleID      uuid.UUID              `json:"rule_id"`
	RuleName    string                 `json:"rule_name"`
	RuleType    string                 `json:"rule_type"`
	TenantID    uuid.UUID              `json:"tenant_id"`
	Message     string                 `json:"message"`
	TriggeredAt time.Time              `json:"triggered_at"`
	Details     map[string]interface{} `json:"details,omitempty"`
}

// Channel is a delivery sink for notifications.
type Channel interface {
	Name() string
	Send(ctx context.Context, n Notification) error
}

// Dispatcher fans a notification out to the channels a rule names.
type Dispatcher struct {
	channels map[string]Channel
	logger   *logger.Logger
}

// NewDispatcher registers the given channels by name.
func NewDispatcher(log *logger.Logger, channels ...Channel) *Dispatcher {
	byName := make(map[string]Channel, len(channels))
	for _, c := range channels {
		byName[c.Name()] = c
	}
	return &Dispatcher{
		channels: byName,
		logger:   log.WithField("component", "notify"),
	}
}

// Dispatch sends the notification to each named channel. Unknown channel
// names and per-channel send failures are logged and counted; the return
// value is how many channels accepted the notification.
func (d *Dispatcher) Dispatch(ctx context.Context, channelNames []string, n Notification) int {
	delivered := 0
	log := d.logger.WithFields(map[string]interface{}{
		"rule_id":   n.RuleID.String(),
		"rule_name": n.RuleName,
	})
	for _, name := range channelNames {
		channel, ok := d.channels[name]
		if !ok {
			log.Warn("skipping unknown notification channel %q", name)
			continue
		}
		if err := channel.Send(ctx, n); err != nil {
			log.WithError(err).Error("notification delivery failed via %s", name)
			continue
		}
		delivered++
	}
	return delivered
}
