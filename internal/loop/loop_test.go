package loop

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func startLoop(t *testing.T) (*Loop, context.CancelFunc) {
	t.Helper()
	l := New(Options{})
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = l.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-l.Done()
	})
	return l, cancel
}

// ===== Loop =====

func TestLoop_ExecutesInOrder(t *testing.T) {
	l, _ := startLoop(t)

	var got []int
	for i := 0; i < 10; i++ {
		i := i
		if err := l.Post(func() { got = append(got, i) }); err != nil {
			t.Fatalf("Post() error = %v", err)
		}
	}
	if err := l.Call(context.Background(), func() {}); err != nil {
		t.Fatalf("Call() error = %v", err)
	}

	for i, v := range got {
		if v != i {
			t.Fatalf("got[%d] = %d, want %d", i, v, i)
		}
	}
	if len(got) != 10 {
		t.Errorf("len(got) = %d, want 10", len(got))
	}
}

func TestLoop_PostFromManyGoroutines(t *testing.T) {
	l, _ := startLoop(t)

	counter := 0
	var wg sync.WaitGroup
	for j := 0; j < 50; j++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = l.Post(func() { counter++ })
		}()
	}
	wg.Wait()

	var final int
	if err := l.Call(context.Background(), func() { final = counter }); err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if final != 50 {
		t.Errorf("counter = %d, want 50", final)
	}
}

func TestLoop_RecoversPanics(t *testing.T) {
	l, _ := startLoop(t)

	_ = l.Post(func() { panic("boom") })
	ran := false
	if err := l.Call(context.Background(), func() { ran = true }); err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if !ran {
		t.Error("loop stopped after panic")
	}
	if _, panics := l.Stats(); panics != 1 {
		t.Errorf("panics = %d, want 1", panics)
	}
}

func TestLoop_PostAfterStop(t *testing.T) {
	l := New(Options{})
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = l.Run(ctx) }()
	cancel()
	<-l.Done()

	if err := l.Post(func() {}); !errors.Is(err, ErrStopped) {
		t.Errorf("Post() error = %v, want ErrStopped", err)
	}
}

func TestLoop_TryPost(t *testing.T) {
	l := New(Options{QueueSize: 2})
	var ran sync.WaitGroup
	ran.Add(2)

	for i := 0; i < 2; i++ {
		if err := l.TryPost(ran.Done); err != nil {
			t.Fatalf("TryPost() #%d error = %v", i, err)
		}
	}
	if err := l.TryPost(func() {}); !errors.Is(err, ErrQueueFull) {
		t.Errorf("TryPost() on full queue error = %v, want ErrQueueFull", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = l.Run(ctx) }()
	ran.Wait()
	cancel()
	<-l.Done()

	if err := l.TryPost(func() {}); !errors.Is(err, ErrStopped) {
		t.Errorf("TryPost() after stop error = %v, want ErrStopped", err)
	}
}

func TestLoop_RunTwice(t *testing.T) {
	l, _ := startLoop(t)
	// Give the first Run a chance to claim the loop.
	_ = l.Call(context.Background(), func() {})

	if err := l.Run(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("Run() error = %v, want ErrAlreadyRunning", err)
	}
}

// ===== Timers =====

func TestLoop_AfterFuncFiresOnLoop(t *testing.T) {
	l, _ := startLoop(t)

	fired := make(chan struct{})
	var timer Timer
	_ = l.Call(context.Background(), func() {
		timer = l.AfterFunc(10*time.Millisecond, func() { close(fired) })
	})

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("timer did not fire")
	}

	var isFired, cancelled bool
	_ = l.Call(context.Background(), func() {
		isFired = timer.Fired()
		cancelled = timer.Cancel()
	})
	if !isFired {
		t.Error("Fired() = false after callback ran")
	}
	if cancelled {
		t.Error("Cancel() after fire = true, want no-op")
	}
}

func TestLoop_AfterFuncCancel(t *testing.T) {
	l, _ := startLoop(t)

	fired := make(chan struct{}, 1)
	var first, second bool
	_ = l.Call(context.Background(), func() {
		timer := l.AfterFunc(20*time.Millisecond, func() { fired <- struct{}{} })
		first = timer.Cancel()
		second = timer.Cancel()
	})

	if !first {
		t.Error("first Cancel() = false, want true")
	}
	if second {
		t.Error("second Cancel() = true, want idempotent no-op")
	}

	select {
	case <-fired:
		t.Error("cancelled timer fired")
	case <-time.After(100 * time.Millisecond):
	}
}
