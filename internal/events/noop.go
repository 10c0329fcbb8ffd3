package events

import "context"

// NoopPublisher discards every Message. It is used for tenants with no
// EventQueueURL configured, matching the original implementation's
// "no publisher configured" fallback.
type NoopPublisher struct{}

// Publish discards msg.
func (NoopPublisher) Publish(context.Context, Message) {}

// Close is a no-op.
func (NoopPublisher) Close() {}
