package alerting

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"price-swing-alerts/internal/monitor"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func testEvent() monitor.AlertEvent {
	return monitor.AlertEvent{
		ID:            "evt-1",
		Symbol:        "BTCUSDT",
		OldPrice:      decimal.NewFromInt(100),
		NewPrice:      decimal.NewFromInt(104),
		PercentChange: decimal.NewFromInt(4),
		Window:        time.Minute,
		TriggeredAt:   time.Date(2024, 5, 1, 12, 1, 0, 0, time.UTC),
	}
}

// telegramReply writes a minimal successful Bot API response for any method.
func telegramReply(w http.ResponseWriter, method string) {
	var result any
	switch method {
	case "getMe":
		result = map[string]any{"id": 1, "is_bot": true, "first_name": "test", "user_name": "testbot"}
	default:
		result = map[string]any{"message_id": 1}
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": result})
}

func newTestBotAPI(t *testing.T, onSend func(r *http.Request)) (*tgbotapi.BotAPI, func()) {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(r.URL.Path, "/")
		method := parts[len(parts)-1]
		if method == "sendMessage" && onSend != nil {
			onSend(r)
		}
		telegramReply(w, method)
	}))

	api, err := tgbotapi.NewBotAPIWithAPIEndpoint("test-token", srv.URL+"/bot%s/%s")
	if err != nil {
		srv.Close()
		t.Fatalf("构造 BotAPI 失败: %v", err)
	}
	return api, srv.Close
}

func TestTelegramNotifierSend(t *testing.T) {
	var chatID, text string
	api, closeSrv := newTestBotAPI(t, func(r *http.Request) {
		_ = r.ParseForm()
		chatID = r.FormValue("chat_id")
		text = r.FormValue("text")
	})
	defer closeSrv()

	n := NewTelegramNotifier(api, 42, testLogger())
	if err := n.Send(context.Background(), testEvent()); err != nil {
		t.Fatalf("Send 应成功: %v", err)
	}

	if chatID != "42" {
		t.Fatalf("chat_id 不正确: %q", chatID)
	}
	if !strings.Contains(text, "BTCUSDT") || !strings.Contains(text, "🚀") {
		t.Fatalf("消息内容不完整: %q", text)
	}
}

type stubNotifier struct {
	err   error
	calls int
}

func (s *stubNotifier) Send(ctx context.Context, event monitor.AlertEvent) error {
	s.calls++
	return s.err
}

func TestMultiNotifierPartialSuccess(t *testing.T) {
	bad := &stubNotifier{err: errors.New("unreachable")}
	good := &stubNotifier{}

	n := NewMultiNotifier(testLogger(), bad, good)
	if err := n.Send(context.Background(), testEvent()); err != nil {
		t.Fatalf("任一通道成功即视为送达: %v", err)
	}
	if bad.calls != 1 || good.calls != 1 {
		t.Fatalf("所有通道都应被尝试: bad=%d good=%d", bad.calls, good.calls)
	}
}

func TestMultiNotifierAllFail(t *testing.T) {
	bad1 := &stubNotifier{err: errors.New("down")}
	bad2 := &stubNotifier{err: errors.New("also down")}

	n := NewMultiNotifier(testLogger(), bad1, bad2)
	if err := n.Send(context.Background(), testEvent()); err == nil {
		t.Fatal("所有通道失败应返回错误")
	}
}

func TestMultiNotifierNoChannels(t *testing.T) {
	n := NewMultiNotifier(testLogger())
	if err := n.Send(context.Background(), testEvent()); err == nil {
		t.Fatal("无通道应返回错误")
	}
}
