package queue

import (
	"context"
	"sync"
	"time"
)

// MemoryBroker is the in-process driver: dispatch, fetch and delayed retry without a
// broker. Jobs are lost when the process exits.
type MemoryBroker struct {
	mu     sync.Mutex
	jobs   []*Job
	signal chan struct{}
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{signal: make(chan struct{}, 1)}
}

func (b *MemoryBroker) Dispatch(ctx context.Context, jobs ...*Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, job := range jobs {
		b.push(job)
	}
	return nil
}

func (b *MemoryBroker) push(job *Job) {
	cp := *job
	b.mu.Lock()
	b.jobs = append(b.jobs, &cp)
	b.mu.Unlock()
	select {
	case b.signal <- struct{}{}:
	default:
	}
}

func (b *MemoryBroker) pop() *Job {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.jobs) == 0 {
		return nil
	}
	job := b.jobs[0]
	b.jobs = b.jobs[1:]
	return job
}

func (b *MemoryBroker) Fetch(ctx context.Context) (*Delivery, error) {
	for {
		if job := b.pop(); job != nil {
			return &Delivery{Job: job, Ack: func(context.Context) error { return nil }}, nil
		}
		select {
		case <-b.signal:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (b *MemoryBroker) Schedule(_ context.Context, job *Job) error {
	cp := *job
	time.AfterFunc(time.Until(job.AvailableAt), func() {
		b.push(&cp)
	})
	return nil
}

// Len is the number of jobs waiting to be fetched, not counting delayed ones.
func (b *MemoryBroker) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.jobs)
}

// Jobs drains and returns the waiting jobs.
func (b *MemoryBroker) Jobs() []*Job {
	b.mu.Lock()
	defer b.mu.Unlock()
	jobs := b.jobs
	b.jobs = nil
	return jobs
}
