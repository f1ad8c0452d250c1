// Package queue provides the in-memory job queue and the in-flight guard
// that together serialize work on a given path. Jobs are not persisted;
// after a crash the startup scan and the periodic scanner rediscover
// pending work from directory contents alone.
package queue

import (
	"context"
	"sync"
)

// Kind identifies how a job's path should be processed.
type Kind int

const (
	// KindAudio is a new recording in the audio inbox.
	KindAudio Kind = iota
	// KindText is raw text or a retry document in the text inbox.
	KindText
	// KindSyncUpdate is an edited knowledge document awaiting re-upload.
	KindSyncUpdate
)

// String returns the job kind label used in logs.
func (k Kind) String() string {
	switch k {
	case KindAudio:
		return "audio"
	case KindText:
		return "text"
	case KindSyncUpdate:
		return "sync-update"
	default:
		return "unknown"
	}
}

// Job is one unit of work for the worker loop.
type Job struct {
	Kind Kind
	Path string
}

// JobQueue is an unbounded FIFO queue. Put never blocks; Get blocks until a
// job arrives or the context is cancelled.
type JobQueue struct {
	mu    sync.Mutex
	items []Job
	wake  chan struct{}
}

// NewJobQueue returns an empty queue.
func NewJobQueue() *JobQueue {
	return &JobQueue{wake: make(chan struct{}, 1)}
}

// Put appends a job. It never blocks.
func (q *JobQueue) Put(job Job) {
	q.mu.Lock()
	q.items = append(q.items, job)
	q.mu.Unlock()
	q.signal()
}

// Get removes and returns the oldest job, blocking until one is available.
// It returns ctx.Err when the context ends first.
func (q *JobQueue) Get(ctx context.Context) (Job, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			job := q.items[0]
			q.items = q.items[1:]
			remaining := len(q.items)
			q.mu.Unlock()
			if remaining > 0 {
				// Keep other waiters from sleeping on a non-empty queue.
				q.signal()
			}
			return job, nil
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return Job{}, ctx.Err()
		case <-q.wake:
		}
	}
}

// Len reports the number of queued jobs.
func (q *JobQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *JobQueue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}
