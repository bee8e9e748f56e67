package serialport

import (
	"context"
	"sync"
)

// opQueue runs operations of one kind strictly one after another, in the
// order they called acquire.
type opQueue struct {
	mu   sync.Mutex
	tail chan struct{} // closed when the last queued operation settles
}

// acquire waits until every earlier operation has settled. The returned
// release must be called exactly once. If ctx ends while waiting, the
// caller leaves the queue without holding it and later callers still wait
// for the earlier operations.
func (q *opQueue) acquire(ctx context.Context) (release func(), err error) {
	done := make(chan struct{})
	q.mu.Lock()
	prev := q.tail
	q.tail = done
	q.mu.Unlock()

	release = func() { close(done) }
	if prev == nil {
		return release, nil
	}

	select {
	case <-prev:
		return release, nil
	case <-ctx.Done():
		go func() {
			<-prev
			close(done)
		}()
		return nil, ctx.Err()
	}
}
