package bus

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

type requestIDContextKey struct{}

// InboundMessage received from a channel
type InboundMessage struct {
	Channel   string
	SenderID  string
	ChatID    string
	Content   string
	Timestamp time.Time
	Metadata  map[string]any
	RequestID string

	// CallbackID and CallbackData are set when the message is an
	// inline button press rather than typed text. CallbackID must be
	// acknowledged back to the platform.
	CallbackID   string
	CallbackData string
}

// SessionKey returns unique session identifier
func (m *InboundMessage) SessionKey() string {
	return m.Channel + ":" + m.ChatID
}

// IsCallback reports whether the message is a button press.
func (m *InboundMessage) IsCallback() bool {
	return m.CallbackData != ""
}

// Button is one inline keyboard button.
type Button struct {
	Text string
	Data string
}

// OutboundMessage to send to a channel
type OutboundMessage struct {
	Channel   string
	ChatID    string
	Content   string
	ReplyTo   string
	Metadata  map[string]any
	RequestID string

	// Buttons lays out an inline keyboard, one inner slice per row.
	Buttons [][]Button

	// EditMessageID replaces an earlier message in place instead of
	// sending a new one. Used to collapse keyboards after a choice.
	EditMessageID string
}

// ButtonRow builds one keyboard row.
func ButtonRow(buttons ...Button) []Button {
	return buttons
}

// NewRequestID creates a request id for tracing.
func NewRequestID() string {
	return uuid.NewString()
}

// WithRequestID adds a request id to context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDContextKey{}, requestID)
}

// RequestIDFromContext reads request id from context.
func RequestIDFromContext(ctx context.Context) string {
	v := ctx.Value(requestIDContextKey{})
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}
