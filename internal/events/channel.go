package events

import "context"

// ChannelPublisher fans every Message out over a buffered Go channel.
// It is the in-process sink used by tests and by single-process
// deployments that have no external queue configured, standing in for
// the original implementation's in-memory event bus variant.
type ChannelPublisher struct {
	ch chan Message
}

// NewChannelPublisher creates a ChannelPublisher with the given buffer
// size. Publish drops the message rather than blocking once the buffer
// is full, since delivery is best-effort.
func NewChannelPublisher(buffer int) *ChannelPublisher {
	return &ChannelPublisher{ch: make(chan Message, buffer)}
}

// Messages returns the receive side of the channel, for tests that want
// to assert on published events.
func (p *ChannelPublisher) Messages() <-chan Message {
	return p.ch
}

// Publish sends msg on the channel, dropping it silently if the buffer
// is full rather than blocking the caller.
func (p *ChannelPublisher) Publish(_ context.Context, msg Message) {
	select {
	case p.ch <- msg:
	default:
	}
}

// Close closes the underlying channel. Callers must not Publish after
// Close.
func (p *ChannelPublisher) Close() {
	close(p.ch)
}
