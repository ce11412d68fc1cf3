package services

import (
	"context"
	"encoding/json"
	"log"

	"github.com/sheshield/apiserver/internal/mq"
)

// AlertNotifier delivers a fanned-out alert event to the owner's
// emergency contacts.
type AlertNotifier func(ctx context.Context, event AlertEvent) error

// AlertDispatcher is the consume half of the alert fan-out: it
// subscribes to the alert channel and hands each decoded event to a
// notifier. A malformed payload is acknowledged and dropped so one bad
// message cannot wedge the channel.
type AlertDispatcher struct {
	broker  *mq.MQ
	channel string
	notify  AlertNotifier
}

func NewAlertDispatcher(broker *mq.MQ, channel string, notify AlertNotifier) *AlertDispatcher {
	return &AlertDispatcher{
		broker:  broker,
		channel: channel,
		notify:  notify,
	}
}

// Run consumes alert events until the context is cancelled or the
// broker subscription fails.
func (d *AlertDispatcher) Run(ctx context.Context) error {
	return d.broker.Subscribe(ctx, d.channel, func(ctx context.Context, msg mq.Message) error {
		var event AlertEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			log.Printf("alert dispatch: dropping malformed event %s: %v", msg.ID, err)
			return nil
		}
		return d.notify(ctx, event)
	})
}
