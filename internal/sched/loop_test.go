package sched

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLoopRunsInPostOrder(t *testing.T) {
	l := NewLoop()
	var order []int
	for i := 0; i < 5; i++ {
		i := i
		if err := l.Post(func() { order = append(order, i) }); err != nil {
			t.Fatalf("Post() error = %v", err)
		}
	}
	// 任务中再次提交的任务也会在同一轮执行
	_ = l.Post(func() { _ = l.Post(func() { order = append(order, 99) }) })

	if n := l.RunPending(); n != 7 {
		t.Errorf("RunPending() = %d, want 7", n)
	}
	want := []int{0, 1, 2, 3, 4, 99}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestLoopStepWaitsForPost(t *testing.T) {
	l := NewLoop()
	ran := make(chan struct{})
	go func() {
		time.Sleep(10 * time.Millisecond)
		_ = l.Post(func() { close(ran) })
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := l.Step(ctx); err != nil {
		t.Fatalf("Step() error = %v", err)
	}
	select {
	case <-ran:
	default:
		t.Fatal("Step() returned before running the task")
	}
}

func TestLoopRunAndDo(t *testing.T) {
	l := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- l.Run(ctx) }()

	value := 0
	if err := l.Do(context.Background(), func() { value = 42 }); err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if value != 42 {
		t.Errorf("value = %d, want 42", value)
	}

	cancel()
	if err := <-errc; !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
	if err := l.Post(func() {}); !errors.Is(err, ErrStopped) {
		t.Errorf("Post() after Run exit error = %v, want ErrStopped", err)
	}
}
