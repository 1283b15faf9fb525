package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/docnorm/internal/config"
	"github.com/dgallion1/docnorm/internal/render"
	"github.com/dgallion1/docnorm/internal/sink"
)

// Orchestrator manages the document conversion pipeline.
type Orchestrator struct {
	jobs  *JobStore
	queue chan *Job
	sink  *sink.Client
	log   *slog.Logger
	cfg   config.Config
	stats *Stats

	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	stopped bool
}

// NewOrchestrator creates the pipeline. The sink client may be nil.
func NewOrchestrator(cfg config.Config, sc *sink.Client, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		jobs:  NewJobStore(cfg.JobTTL),
		queue: make(chan *Job, cfg.MaxQueueSize),
		sink:  sc,
		log:   log,
		cfg:   cfg,
		stats: NewStats(time.Hour),
	}
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	renderOpts := render.Options{IncludeFurniture: o.cfg.IncludeFurniture}
	for range o.cfg.WorkerCount {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			w := NewWorker(o.sink, o.log, o.stats, renderOpts)
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-o.queue:
					if !ok {
						return
					}
					w.Process(workerCtx, job)
				}
			}
		}()
	}

	// Start job store cleanup.
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.jobs.Cleanup()
			}
		}
	}()
}

// Stop gracefully shuts down the pipeline. Submits racing the
// shutdown are refused rather than sent to the closed queue.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	o.mu.Lock()
	o.stopped = true
	close(o.queue)
	o.mu.Unlock()
	o.wg.Wait()
}

// NewJob builds a queued job for the given upload.
func (o *Orchestrator) NewJob(filename string, data []byte) *Job {
	now := time.Now()
	job := &Job{
		ID:        generateULID(),
		DocID:     generateULID(),
		Status:    StatusQueued,
		Phase:     "queued",
		Filename:  filename,
		CreatedAt: now,
		UpdatedAt: now,
	}
	job.SetFileData(data)
	return job
}

// Submit queues a new job for processing.
func (o *Orchestrator) Submit(job *Job) error {
	o.jobs.Put(job)
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.stopped {
		job.SetStatus(StatusFailed, "shutting_down")
		return fmt.Errorf("pipeline is shutting down")
	}
	select {
	case o.queue <- job:
		return nil
	default:
		job.SetStatus(StatusFailed, "queue_full")
		return fmt.Errorf("job queue is full (%d)", o.cfg.MaxQueueSize)
	}
}

// Convert runs a job synchronously, bypassing the queue. The job is
// still registered so its result can be re-fetched by ID.
func (o *Orchestrator) Convert(ctx context.Context, job *Job) {
	o.jobs.Put(job)
	w := NewWorker(o.sink, o.log, o.stats, render.Options{IncludeFurniture: o.cfg.IncludeFurniture})
	w.Process(ctx, job)
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}

// Stats returns the shared conversion counters.
func (o *Orchestrator) Stats() *Stats {
	return o.stats
}
