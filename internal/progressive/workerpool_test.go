package progressive

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWorkerPool_RunsAllSubmittedJobs(t *testing.T) {
	pool := NewWorkerPool(4, 256)
	defer pool.Close()

	var count int64
	const n = 200
	done := make(chan struct{}, n)
	for i := 0; i < n; i++ {
		pool.Submit(func() {
			atomic.AddInt64(&count, 1)
			done <- struct{}{}
		})
	}
	for i := 0; i < n; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for jobs to complete")
		}
	}
	assert.Equal(t, int64(n), atomic.LoadInt64(&count))
}

func TestWorkerPool_DefaultsAppliedForInvalidSizes(t *testing.T) {
	pool := NewWorkerPool(0, 0)
	defer pool.Close()
	assert.Equal(t, DefaultWorkerQueueSize, cap(pool.jobs))
}
