package serialport

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestOpQueueFIFO(t *testing.T) {
	var q opQueue

	first, err := q.acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}

	order := make(chan int, 3)
	for i := 1; i <= 3; i++ {
		started := make(chan struct{})
		go func() {
			close(started)
			release, err := q.acquire(context.Background())
			if err != nil {
				t.Errorf("acquire %d failed: %v", i, err)
				return
			}
			order <- i
			release()
		}()
		<-started
		// Give the goroutine time to join the queue before the next one
		time.Sleep(5 * time.Millisecond)
	}

	select {
	case i := <-order:
		t.Fatalf("Operation %d ran before the first one settled", i)
	case <-time.After(20 * time.Millisecond):
	}

	first()
	for want := 1; want <= 3; want++ {
		select {
		case got := <-order:
			if got != want {
				t.Errorf("Expected operation %d, got %d", want, got)
			}
		case <-time.After(time.Second):
			t.Fatalf("Operation %d never ran", want)
		}
	}
}

func TestOpQueueCanceledWaiterKeepsChain(t *testing.T) {
	var q opQueue

	first, err := q.acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := q.acquire(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}

	acquired := make(chan struct{})
	go func() {
		release, err := q.acquire(context.Background())
		if err != nil {
			t.Errorf("acquire failed: %v", err)
			return
		}
		close(acquired)
		release()
	}()

	select {
	case <-acquired:
		t.Fatal("Third operation ran while the first one was still in progress")
	case <-time.After(20 * time.Millisecond):
	}

	first()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("Queue stalled after a canceled waiter")
	}
}
