package inbound

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDispatchRunsSeriallyPerKey(t *testing.T) {
	d := newDispatcher()

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup

	wg.Add(3)
	for i := 1; i <= 3; i++ {
		i := i
		d.Dispatch("conv", func() {
			defer wg.Done()
			time.Sleep(time.Duration(4-i) * time.Millisecond)
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		})
	}
	wg.Wait()

	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestDispatchDifferentKeysRunConcurrently(t *testing.T) {
	d := newDispatcher()

	slowStarted := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})

	d.Dispatch("slow", func() {
		close(slowStarted)
		<-release
	})
	<-slowStarted

	d.Dispatch("fast", func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("job on a different key was blocked")
	}
	close(release)
}

func TestDispatchCleansUpDrainedQueues(t *testing.T) {
	d := newDispatcher()

	var wg sync.WaitGroup
	wg.Add(1)
	d.Dispatch("conv", func() { wg.Done() })
	wg.Wait()

	assert.Eventually(t, func() bool {
		d.mu.Lock()
		defer d.mu.Unlock()
		_, ok := d.queues["conv"]
		return !ok
	}, time.Second, 5*time.Millisecond)
}
