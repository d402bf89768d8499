package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

func testEngine() *Engine {
	return NewEngine(Options{
		Lookback:     300 * time.Second,
		ThresholdPct: 3.0,
		Cooldown:     900 * time.Second,
	}, noopLogger())
}

type emitRecorder struct {
	events []AlertEvent
	err    error
}

func (r *emitRecorder) emit(ctx context.Context, event AlertEvent) error {
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, event)
	return nil
}

func TestEngineAlertThenCooldown(t *testing.T) {
	e := testEngine()
	e.Watch("ABCUSD")
	rec := &emitRecorder{}
	ctx := context.Background()

	outcome, err := e.Observe(ctx, "ABCUSD", decimal.NewFromInt(100), at(0), rec.emit)
	if err != nil || outcome != OutcomeRecorded {
		t.Fatalf("首个样本应仅入库, 实际 outcome=%s err=%v", outcome, err)
	}

	outcome, err = e.Observe(ctx, "ABCUSD", decimal.NewFromInt(104), at(60*time.Second), rec.emit)
	if err != nil || outcome != OutcomeAlerted {
		t.Fatalf("4%% 涨幅应触发告警, 实际 outcome=%s err=%v", outcome, err)
	}
	if len(rec.events) != 1 {
		t.Fatalf("期望 1 条告警, 实际 %d", len(rec.events))
	}

	event := rec.events[0]
	if event.Symbol != "ABCUSD" {
		t.Fatalf("告警交易对不正确: %s", event.Symbol)
	}
	if !event.PercentChange.Equal(decimal.NewFromInt(4)) {
		t.Fatalf("期望涨幅 4%%, 实际 %s", event.PercentChange.String())
	}
	if !event.OldPrice.Equal(decimal.NewFromInt(100)) || !event.NewPrice.Equal(decimal.NewFromInt(104)) {
		t.Fatalf("告警价格不正确: %#v", event)
	}
	if event.ID == "" {
		t.Fatal("告警应携带事件 ID")
	}

	// Still above threshold at t=120 but inside the 900s cooldown.
	outcome, err = e.Observe(ctx, "ABCUSD", decimal.NewFromInt(105), at(120*time.Second), rec.emit)
	if err != nil || outcome != OutcomeSuppressed {
		t.Fatalf("冷却期内应抑制, 实际 outcome=%s err=%v", outcome, err)
	}
	if len(rec.events) != 1 {
		t.Fatalf("冷却期内不应有第二条告警, 实际 %d", len(rec.events))
	}
}

func TestEnginePrunedWindowNoAlert(t *testing.T) {
	e := testEngine()
	e.Watch("BTCUSDT")
	rec := &emitRecorder{}
	ctx := context.Background()

	e.Observe(ctx, "BTCUSDT", decimal.NewFromInt(100), at(0), rec.emit)
	e.Observe(ctx, "BTCUSDT", decimal.NewFromInt(98), at(290*time.Second), rec.emit)

	// At t=310 the t=0 sample has left the window; 98 -> 100 is only 2.04%.
	outcome, err := e.Observe(ctx, "BTCUSDT", decimal.NewFromInt(100), at(310*time.Second), rec.emit)
	if err != nil || outcome != OutcomeRecorded {
		t.Fatalf("裁剪后的窗口不应触发, 实际 outcome=%s err=%v", outcome, err)
	}
	if len(rec.events) != 0 {
		t.Fatalf("不应发出告警, 实际 %d 条", len(rec.events))
	}
}

func TestEngineDeliveryFailureKeepsGateOpen(t *testing.T) {
	e := testEngine()
	e.Watch("BTCUSDT")
	rec := &emitRecorder{err: errors.New("telegram unreachable")}
	ctx := context.Background()

	e.Observe(ctx, "BTCUSDT", decimal.NewFromInt(100), at(0), rec.emit)
	outcome, err := e.Observe(ctx, "BTCUSDT", decimal.NewFromInt(104), at(60*time.Second), rec.emit)
	if err != nil || outcome != OutcomeDeliveryFailed {
		t.Fatalf("投递失败应返回 delivery_failed, 实际 outcome=%s err=%v", outcome, err)
	}
	if _, ok := e.LastAlert("BTCUSDT"); ok {
		t.Fatal("投递失败不应消耗冷却")
	}

	// Next cycle the notifier recovers and the same condition re-fires.
	rec.err = nil
	outcome, err = e.Observe(ctx, "BTCUSDT", decimal.NewFromInt(104), at(90*time.Second), rec.emit)
	if err != nil || outcome != OutcomeAlerted {
		t.Fatalf("恢复后应再次触发, 实际 outcome=%s err=%v", outcome, err)
	}
	if len(rec.events) != 1 {
		t.Fatalf("期望 1 条告警, 实际 %d", len(rec.events))
	}
}

func TestEngineInvalidSampleRejected(t *testing.T) {
	e := testEngine()
	e.Watch("BTCUSDT")
	rec := &emitRecorder{}
	ctx := context.Background()

	e.Observe(ctx, "BTCUSDT", decimal.NewFromInt(100), at(0), rec.emit)

	_, err := e.Observe(ctx, "BTCUSDT", decimal.Zero, at(30*time.Second), rec.emit)
	if !errors.Is(err, ErrInvalidSample) {
		t.Fatalf("零价格应返回 ErrInvalidSample, 实际 %v", err)
	}
	_, err = e.Observe(ctx, "BTCUSDT", decimal.NewFromInt(-5), at(40*time.Second), rec.emit)
	if !errors.Is(err, ErrInvalidSample) {
		t.Fatalf("负价格应返回 ErrInvalidSample, 实际 %v", err)
	}

	if got := len(e.Window("BTCUSDT", at(time.Minute))); got != 1 {
		t.Fatalf("被拒绝的样本不应进入历史, 实际 %d", got)
	}
}

func TestEngineUnwatchedSymbolSkipped(t *testing.T) {
	e := testEngine()
	rec := &emitRecorder{}

	outcome, err := e.Observe(context.Background(), "BTCUSDT", decimal.NewFromInt(100), at(0), rec.emit)
	if err != nil || outcome != OutcomeSkipped {
		t.Fatalf("未关注的交易对应被跳过, 实际 outcome=%s err=%v", outcome, err)
	}
	if _, ok := e.Latest("BTCUSDT"); ok {
		t.Fatal("跳过的样本不应入库")
	}
}

func TestEngineRemoveThenAddResets(t *testing.T) {
	e := testEngine()
	e.Watch("BTCUSDT")
	rec := &emitRecorder{}
	ctx := context.Background()

	e.Observe(ctx, "BTCUSDT", decimal.NewFromInt(100), at(0), rec.emit)
	e.Observe(ctx, "BTCUSDT", decimal.NewFromInt(104), at(60*time.Second), rec.emit)
	if len(rec.events) != 1 {
		t.Fatalf("前置条件: 应已有 1 条告警, 实际 %d", len(rec.events))
	}

	if !e.Unwatch("BTCUSDT") {
		t.Fatal("Unwatch 应成功")
	}
	if !e.Watch("BTCUSDT") {
		t.Fatal("重新 Watch 应成功")
	}

	if _, ok := e.Latest("BTCUSDT"); ok {
		t.Fatal("重新添加后历史应为空")
	}
	if _, ok := e.LastAlert("BTCUSDT"); ok {
		t.Fatal("重新添加后冷却记录应为空")
	}

	// A fresh breach alerts immediately because the old cooldown is gone.
	e.Observe(ctx, "BTCUSDT", decimal.NewFromInt(100), at(120*time.Second), rec.emit)
	outcome, err := e.Observe(ctx, "BTCUSDT", decimal.NewFromInt(104), at(150*time.Second), rec.emit)
	if err != nil || outcome != OutcomeAlerted {
		t.Fatalf("重置后应立即可告警, 实际 outcome=%s err=%v", outcome, err)
	}
}

func TestEngineNilEmitDetectsWithoutGate(t *testing.T) {
	e := testEngine()
	e.Watch("BTCUSDT")
	ctx := context.Background()

	e.Observe(ctx, "BTCUSDT", decimal.NewFromInt(100), at(0), nil)
	outcome, err := e.Observe(ctx, "BTCUSDT", decimal.NewFromInt(104), at(60*time.Second), nil)
	if err != nil || outcome != OutcomeDetected {
		t.Fatalf("无发送器时应仅检测, 实际 outcome=%s err=%v", outcome, err)
	}
	if _, ok := e.LastAlert("BTCUSDT"); ok {
		t.Fatal("无发送器时不应消耗冷却")
	}

	// Turning alerting on later starts from an open gate.
	rec := &emitRecorder{}
	outcome, err = e.Observe(ctx, "BTCUSDT", decimal.NewFromInt(104), at(90*time.Second), rec.emit)
	if err != nil || outcome != OutcomeAlerted {
		t.Fatalf("启用发送器后应触发, 实际 outcome=%s err=%v", outcome, err)
	}
}

func TestEnginePeekLeavesGateAlone(t *testing.T) {
	e := testEngine()
	e.Watch("BTCUSDT")
	ctx := context.Background()

	e.Observe(ctx, "BTCUSDT", decimal.NewFromInt(100), at(0), nil)
	e.Observe(ctx, "BTCUSDT", decimal.NewFromInt(104), at(60*time.Second), nil)

	res, ok := e.Peek("BTCUSDT", at(60*time.Second))
	if !ok || !res.PercentChange.Equal(decimal.NewFromInt(4)) {
		t.Fatalf("Peek 应返回当前变化, 实际 ok=%v res=%#v", ok, res)
	}
	if _, recorded := e.LastAlert("BTCUSDT"); recorded {
		t.Fatal("Peek 不应写入冷却")
	}
}

func TestNormalizeSymbol(t *testing.T) {
	if got := NormalizeSymbol("  btcUsdt "); got != "BTCUSDT" {
		t.Fatalf("期望 BTCUSDT, 实际 %q", got)
	}
}
