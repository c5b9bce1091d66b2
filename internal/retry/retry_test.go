package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

func fastPolicy(maxAttempts int) Policy {
	return Policy{
		MaxAttempts: maxAttempts,
		MinWait:     time.Millisecond,
		MaxWait:     5 * time.Millisecond,
		Multiplier:  2,
	}
}

func TestDelayGrowsAndCaps(t *testing.T) {
	p := Policy{MaxAttempts: 5, MinWait: 4 * time.Second, MaxWait: 10 * time.Second, Multiplier: 2}

	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 4 * time.Second},
		{2, 8 * time.Second},
		{3, 10 * time.Second},
		{4, 10 * time.Second},
	}
	for _, tc := range cases {
		if got := p.Delay(tc.attempt); got != tc.want {
			t.Errorf("Delay(%d) = %v, want %v", tc.attempt, got, tc.want)
		}
	}
}

func TestDoSucceedsAfterTransientFailures(t *testing.T) {
	c := New(fastPolicy(3), func(error) bool { return true }, zap.NewNop())

	calls := 0
	err := c.Do(context.Background(), "op", func() error {
		calls++
		if calls <= 2 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestDoExhaustionReturnsTerminalError(t *testing.T) {
	c := New(fastPolicy(2), func(error) bool { return true }, zap.NewNop())

	cause := errors.New("still down")
	calls := 0
	err := c.Do(context.Background(), "sync_fills", func() error {
		calls++
		return cause
	})

	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
	var terminal *TerminalError
	if !errors.As(err, &terminal) {
		t.Fatalf("err = %v, want *TerminalError", err)
	}
	if terminal.Op != "sync_fills" || terminal.Attempts != 2 {
		t.Errorf("terminal = %+v", terminal)
	}
	if !errors.Is(err, cause) {
		t.Error("TerminalError 应保留原始错误链")
	}
}

func TestDoReturnsDeterministicErrorImmediately(t *testing.T) {
	c := New(fastPolicy(5), func(error) bool { return false }, zap.NewNop())

	rejected := errors.New("insufficient balance")
	calls := 0
	err := c.Do(context.Background(), "op", func() error {
		calls++
		return rejected
	})

	if calls != 1 {
		t.Fatalf("calls = %d, 确定性失败不应重试", calls)
	}
	if !errors.Is(err, rejected) {
		t.Fatalf("err = %v, want 原始错误", err)
	}
	var terminal *TerminalError
	if errors.As(err, &terminal) {
		t.Error("确定性失败不应包装为 TerminalError")
	}
}

func TestDoHonorsContextCancellation(t *testing.T) {
	c := New(Policy{MaxAttempts: 3, MinWait: time.Hour, MaxWait: time.Hour, Multiplier: 2},
		func(error) bool { return true }, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := c.Do(ctx, "op", func() error { return errors.New("transient") })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestWaitInterruptible(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Wait(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if err := Wait(context.Background(), 0); err != nil {
		t.Fatalf("零时长等待: %v", err)
	}
}
