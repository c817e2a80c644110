package service

import (
	"context"

	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/logging"
)

// publish is best effort: a broker outage must not fail the request.
func publish(ctx context.Context, pub events.Publisher, key string, event events.Event) {
	if pub == nil {
		return
	}
	if err := pub.PublishEvent(ctx, key, event); err != nil {
		logging.FromContext(ctx).Warn("publish_event_failed", "type", event["type"], "key", key, "error", err)
	}
}
