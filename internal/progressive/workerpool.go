package progressive

import "sync"

// Default tile worker pool sizing, overridable via config (GFX_WORKER_POOL_SIZE
// / GFX_WORKER_QUEUE_SIZE).
const (
	DefaultWorkerPoolSize  = 4
	DefaultWorkerQueueSize = 256
)

// WorkerPool runs tile-decode jobs on a fixed number of goroutines, queuing
// submissions past that bound rather than spawning unboundedly — a
// REGION block with hundreds of tiles must not fork hundreds of
// goroutines sharing the same Context's DWT scratch state.
type WorkerPool struct {
	jobs chan func()
	wg   sync.WaitGroup
}

// NewWorkerPool starts workers goroutines reading from a queue of the given
// capacity. Submissions past the queue capacity block the submitter.
func NewWorkerPool(workers, queueSize int) *WorkerPool {
	if workers <= 0 {
		workers = DefaultWorkerPoolSize
	}
	if queueSize <= 0 {
		queueSize = DefaultWorkerQueueSize
	}

	p := &WorkerPool{jobs: make(chan func(), queueSize)}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

func (p *WorkerPool) worker() {
	defer p.wg.Done()
	for job := range p.jobs {
		job()
	}
}

// Submit enqueues a job, blocking if the queue is full.
func (p *WorkerPool) Submit(job func()) {
	p.jobs <- job
}

// Close stops accepting new work and waits for in-flight jobs to drain.
func (p *WorkerPool) Close() {
	close(p.jobs)
	p.wg.Wait()
}
