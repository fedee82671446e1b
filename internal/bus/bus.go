package bus

import "sync"

// MessageBus decouples channels from the handlers behind buffered
// queues. Channels publish inbound traffic; handlers publish outbound
// replies and the channel manager drains them.
type MessageBus struct {
	inbound  chan *InboundMessage
	outbound chan *OutboundMessage

	closeOnce sync.Once
}

// NewMessageBus creates a bus with the given per-direction buffer.
func NewMessageBus(size int) *MessageBus {
	if size <= 0 {
		size = 1
	}
	return &MessageBus{
		inbound:  make(chan *InboundMessage, size),
		outbound: make(chan *OutboundMessage, size),
	}
}

// PublishInbound queues a message from a channel. Blocks when the
// buffer is full so slow handlers apply backpressure to polling.
func (b *MessageBus) PublishInbound(msg *InboundMessage) {
	b.inbound <- msg
}

// PublishOutbound queues a reply for delivery.
func (b *MessageBus) PublishOutbound(msg *OutboundMessage) {
	b.outbound <- msg
}

// Inbound exposes the receive side for handlers.
func (b *MessageBus) Inbound() <-chan *InboundMessage {
	return b.inbound
}

// Outbound exposes the receive side for the channel manager.
func (b *MessageBus) Outbound() <-chan *OutboundMessage {
	return b.outbound
}

// Close shuts both queues. Publishing after Close panics, so it must
// only run after every producer stopped.
func (b *MessageBus) Close() {
	b.closeOnce.Do(func() {
		close(b.inbound)
		close(b.outbound)
	})
}
