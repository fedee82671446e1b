package channel

import (
	"context"
	"testing"

	"github.com/dclink/dockslot/internal/bus"
)

type mockChannel struct {
	BaseChannel
	name string
}

func (m *mockChannel) Name() string                    { return m.name }
func (m *mockChannel) Start(ctx context.Context) error { return nil }
func (m *mockChannel) Stop(ctx context.Context) error  { return nil }
func (m *mockChannel) Send(ctx context.Context, msg *bus.OutboundMessage) error {
	return nil
}

func TestBaseChannel_IsBlocked(t *testing.T) {
	msgBus := bus.NewMessageBus(1)
	ch := &mockChannel{
		BaseChannel: BaseChannel{Bus: msgBus, BlockList: map[string]bool{"u1": true}},
		name:        "mock",
	}

	if !ch.IsBlocked("u1") {
		t.Fatalf("expected u1 blocked")
	}
	if ch.IsBlocked("u2") {
		t.Fatalf("expected u2 permitted")
	}
}

func TestBaseChannel_IsBlocked_EmptyListPermitsAll(t *testing.T) {
	ch := &mockChannel{name: "mock"}
	if ch.IsBlocked("anyone") {
		t.Fatal("empty block list must permit everyone")
	}
}

func TestBaseChannel_IsBlocked_CompoundSenderAndUsername(t *testing.T) {
	msgBus := bus.NewMessageBus(1)
	ch := &mockChannel{
		BaseChannel: BaseChannel{Bus: msgBus, BlockList: map[string]bool{"123456": true, "@spammer": true}},
		name:        "mock",
	}

	if !ch.IsBlocked("123456|spammer") {
		t.Fatal("expected sender blocked by id in compound sender string")
	}
	if !ch.IsBlocked("999999|spammer") {
		t.Fatal("expected sender blocked by username with @ prefix")
	}
	if ch.IsBlocked("999999|driver") {
		t.Fatal("expected unrelated sender permitted")
	}
}
