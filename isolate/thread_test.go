package isolate

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/libinsane/libinsane-go"
)

// serializingBackend counts how many of its own calls are active at
// once. If WrapDedicatedThread failed to serialize, concurrent goroutines
// calling through it would race this counter above 1.
type serializingBackend struct {
	mu        sync.Mutex
	active    int
	maxActive int
}

func (b *serializingBackend) enter() func() {
	b.mu.Lock()
	b.active++
	if b.active > b.maxActive {
		b.maxActive = b.active
	}
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		b.active--
		b.mu.Unlock()
	}
}

func (b *serializingBackend) BaseName() string { return "serializing" }
func (b *serializingBackend) Cleanup()         {}

func (b *serializingBackend) ListDevices(ctx context.Context, loc libinsane.DeviceLocations) ([]libinsane.DeviceDescriptor, error) {
	leave := b.enter()
	defer leave()
	time.Sleep(time.Millisecond)
	return nil, nil
}

func (b *serializingBackend) GetDevice(ctx context.Context, devID string) (libinsane.Item, error) {
	leave := b.enter()
	defer leave()
	time.Sleep(time.Millisecond)
	return nil, nil
}

func TestDedicatedThreadSerializesConcurrentCalls(t *testing.T) {
	inner := &serializingBackend{}
	wrapped := WrapDedicatedThread(inner)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = wrapped.ListDevices(context.Background(), libinsane.LocationAny)
		}()
	}
	wg.Wait()

	if inner.maxActive > 1 {
		t.Fatalf("expected calls to be serialized onto one goroutine, observed %d concurrently active", inner.maxActive)
	}
}

func TestDedicatedThreadRunsJobsInEnqueueOrder(t *testing.T) {
	inner := &serializingBackend{}
	wrapped := WrapDedicatedThread(inner)

	var order []int
	var mu sync.Mutex

	// Queue up several jobs that each take a moment, from the same
	// goroutine, before any of them has had a chance to run: this
	// exercises the jobs channel as a real queue instead of the
	// single in-flight case the serializing test covers.
	first := make(chan struct{})
	wrapped.jobs <- func() {
		<-first
		mu.Lock()
		order = append(order, 0)
		mu.Unlock()
	}
	for i := 1; i < 5; i++ {
		i := i
		wrapped.jobs <- func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		}
	}
	close(first)

	// Wait for the last job to finish, then check every job ran in
	// the order it was enqueued.
	wrapped.run(func() {})

	mu.Lock()
	defer mu.Unlock()
	for i, v := range order {
		if v != i {
			t.Fatalf("expected jobs to run FIFO, got %v", order)
		}
	}
}
