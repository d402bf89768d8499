package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

func TestRunFiresImmediately(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fired := make(chan time.Time, 1)
	s := New(Options{Interval: time.Hour}, noopLogger())

	done := make(chan error, 1)
	start := time.Now()
	go func() {
		done <- s.Run(ctx, func(context.Context, time.Time) error {
			select {
			case fired <- time.Now():
			default:
			}
			return nil
		})
	}()

	select {
	case at := <-fired:
		if elapsed := at.Sub(start); elapsed > time.Second {
			t.Fatalf("首个 tick 应立即触发, 实际等待 %v", elapsed)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("首个 tick 未触发")
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("取消后应返回 context.Canceled, 实际 %v", err)
	}
}

func TestRunKeepsTickingThroughErrors(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fired := make(chan struct{}, 16)
	s := New(Options{Interval: 5 * time.Millisecond}, noopLogger())
	go func() {
		_ = s.Run(ctx, func(context.Context, time.Time) error {
			select {
			case fired <- struct{}{}:
			default:
			}
			return errors.New("boom")
		})
	}()

	for i := 0; i < 3; i++ {
		select {
		case <-fired:
		case <-time.After(2 * time.Second):
			t.Fatalf("第 %d 次 tick 未触发", i+1)
		}
	}
}

func TestStartupDelayHonoursCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := New(Options{Interval: time.Minute, StartupDelay: time.Hour}, noopLogger())
	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx, func(context.Context, time.Time) error { return nil })
	}()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("取消后应返回 context.Canceled, 实际 %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("取消后 Run 未返回")
	}
}

func TestTickTimeoutBoundsEachTick(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hasDeadline := make(chan bool, 1)
	s := New(Options{Interval: time.Hour, TickTimeout: 10 * time.Millisecond}, noopLogger())
	go func() {
		_ = s.Run(ctx, func(tickCtx context.Context, _ time.Time) error {
			_, ok := tickCtx.Deadline()
			select {
			case hasDeadline <- ok:
			default:
			}
			<-tickCtx.Done()
			return tickCtx.Err()
		})
	}()

	select {
	case ok := <-hasDeadline:
		if !ok {
			t.Fatal("tick 上下文缺少截止时间")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("tick 未触发")
	}
}

func TestNewPanicsOnNonPositiveInterval(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("非法 interval 应触发 panic")
		}
	}()
	New(Options{}, noopLogger())
}
