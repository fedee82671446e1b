package telegram

import (
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/dclink/dockslot/internal/bus"
	"github.com/dclink/dockslot/internal/config"
)

func TestParseInt64_Valid(t *testing.T) {
	got, err := parseInt64("12345")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if got != 12345 {
		t.Fatalf("expected 12345, got %d", got)
	}
}

func TestParseInt64_Invalid(t *testing.T) {
	if _, err := parseInt64("not-a-number"); err == nil {
		t.Fatal("expected error for invalid chat id")
	}
}

func TestStripHTML(t *testing.T) {
	got := stripHTML("<b>Заявка #3</b>\n<i>очікує</i> рішення &amp; дата")
	want := "Заявка #3\nочікує рішення &amp; дата"
	if got != want {
		t.Fatalf("stripHTML = %q, want %q", got, want)
	}
}

func TestBuildKeyboard(t *testing.T) {
	markup := buildKeyboard([][]bus.Button{
		bus.ButtonRow(bus.Button{Text: "✔ Підтвердити", Data: "approve:3"}),
		bus.ButtonRow(
			bus.Button{Text: "🔁 Змінити", Data: "change:3"},
			bus.Button{Text: "❌ Відхилити", Data: "reject:3"},
		),
	})
	if markup == nil {
		t.Fatal("expected keyboard markup")
	}
	if len(markup.InlineKeyboard) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(markup.InlineKeyboard))
	}
	if len(markup.InlineKeyboard[1]) != 2 {
		t.Fatalf("expected 2 buttons in second row, got %d", len(markup.InlineKeyboard[1]))
	}
	btn := markup.InlineKeyboard[0][0]
	if btn.Text != "✔ Підтвердити" || btn.CallbackData == nil || *btn.CallbackData != "approve:3" {
		t.Fatalf("unexpected first button: %+v", btn)
	}
}

func TestBuildKeyboard_Empty(t *testing.T) {
	if buildKeyboard(nil) != nil {
		t.Fatal("expected nil markup for no buttons")
	}
	if buildKeyboard([][]bus.Button{{}}) != nil {
		t.Fatal("expected nil markup for empty rows")
	}
}

func TestHandleMessage_PublishesInbound(t *testing.T) {
	msgBus := bus.NewMessageBus(1)
	ch := New(&config.TelegramConfig{}, msgBus)

	ch.handleMessage(&tgbotapi.Message{
		MessageID: 7,
		From:      &tgbotapi.User{ID: 123, UserName: "alice", FirstName: "Alice"},
		Chat:      &tgbotapi.Chat{ID: 42},
		Text:      "/start",
	})

	select {
	case in := <-msgBus.Inbound():
		if in.SenderID != "123" || in.ChatID != "42" {
			t.Fatalf("unexpected routing fields: %+v", in)
		}
		if in.Content != "/start" {
			t.Fatalf("expected content /start, got %q", in.Content)
		}
		if in.IsCallback() {
			t.Fatal("text message must not look like a callback")
		}
		if in.RequestID == "" {
			t.Fatal("expected request id assigned")
		}
		if in.Metadata["username"] != "alice" {
			t.Fatalf("expected username metadata, got %+v", in.Metadata)
		}
	default:
		t.Fatal("expected inbound message")
	}
}

func TestHandleMessage_BlockedSenderDropped(t *testing.T) {
	msgBus := bus.NewMessageBus(1)
	ch := New(&config.TelegramConfig{BlockFrom: []string{"@spammer"}}, msgBus)

	ch.handleMessage(&tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: 666, UserName: "spammer"},
		Chat:      &tgbotapi.Chat{ID: 42},
		Text:      "hi",
	})

	select {
	case in := <-msgBus.Inbound():
		t.Fatalf("expected blocked sender dropped, got %+v", in)
	default:
	}
}

func TestHandleMessage_EmptyContentIgnored(t *testing.T) {
	msgBus := bus.NewMessageBus(1)
	ch := New(&config.TelegramConfig{}, msgBus)

	ch.handleMessage(&tgbotapi.Message{
		MessageID: 2,
		From:      &tgbotapi.User{ID: 5},
		Chat:      &tgbotapi.Chat{ID: 42},
	})

	select {
	case in := <-msgBus.Inbound():
		t.Fatalf("expected empty message dropped, got %+v", in)
	default:
	}
}
