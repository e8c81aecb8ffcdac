package downloader

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"igcrawler/pkg/logger"
	"igcrawler/pkg/ratelimit"
)

// WorkerPool runs download jobs concurrently. The browsing session keeps
// going on its own goroutine; only media fetches fan out here.
type WorkerPool struct {
	numWorkers  int
	jobQueue    chan Job
	resultQueue chan Result
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	fetcher     *Fetcher
	rateLimiter *ratelimit.Keyed
	logger      logger.Logger
	stopOnce    sync.Once
}

// NewWorkerPool creates a pool of numWorkers bound to ctx. rateLimiter paces
// fetches per host and may be nil.
func NewWorkerPool(
	ctx context.Context,
	numWorkers int,
	fetcher *Fetcher,
	rateLimiter *ratelimit.Keyed,
	log logger.Logger,
) *WorkerPool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	ctx, cancel := context.WithCancel(ctx)

	return &WorkerPool{
		numWorkers:  numWorkers,
		jobQueue:    make(chan Job, numWorkers*2),
		resultQueue: make(chan Result, numWorkers),
		ctx:         ctx,
		cancel:      cancel,
		fetcher:     fetcher,
		rateLimiter: rateLimiter,
		logger:      log,
	}
}

// Start launches the workers.
func (wp *WorkerPool) Start() {
	wp.logger.DebugWithFields("Starting worker pool", map[string]interface{}{
		"num_workers": wp.numWorkers,
	})

	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop waits for queued jobs to finish and closes Results. Calling it more
// than once is harmless.
func (wp *WorkerPool) Stop() {
	wp.stopOnce.Do(func() {
		close(wp.jobQueue)
		wp.wg.Wait()
		close(wp.resultQueue)
		wp.cancel()
		wp.logger.Debug("Worker pool stopped")
	})
}

// Submit queues a job. It fails once the pool's context is done.
func (wp *WorkerPool) Submit(job Job) error {
	select {
	case wp.jobQueue <- job:
		return nil
	case <-wp.ctx.Done():
		return fmt.Errorf("worker pool is shutting down")
	}
}

// Results delivers one Result per job processed.
func (wp *WorkerPool) Results() <-chan Result {
	return wp.resultQueue
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	for job := range wp.jobQueue {
		var result Result
		if err := wp.ctx.Err(); err != nil {
			// drain the queue so Stop does not block, reporting the abandoned job
			result = Result{Job: job, Error: err}
		} else {
			result = wp.processJob(job, id)
		}

		// results are buffered by the caller; never drop one
		wp.resultQueue <- result
	}
}

func (wp *WorkerPool) processJob(job Job, workerID int) Result {
	if wp.rateLimiter != nil {
		if err := wp.rateLimiter.Wait(wp.ctx, hostOf(job.URL)); err != nil {
			return Result{Job: job, Error: err}
		}
	}

	wp.logger.DebugWithFields("Worker processing job", map[string]interface{}{
		"worker_id": workerID,
		"entity":    job.Entity,
		"filename":  job.Filename,
	})
	return wp.fetcher.Fetch(wp.ctx, job)
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Host
}

// Downloader fetches the media of one post, story set or profile picture at
// a time, in parallel.
type Downloader struct {
	fetcher     *Fetcher
	workers     int
	rateLimiter *ratelimit.Keyed
	logger      logger.Logger
}

// New creates a Downloader running up to workers fetches at once.
func New(fetcher *Fetcher, workers int, rateLimiter *ratelimit.Keyed, log logger.Logger) *Downloader {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Downloader{
		fetcher:     fetcher,
		workers:     workers,
		rateLimiter: rateLimiter,
		logger:      log,
	}
}

// FetchAll runs jobs and returns their results in job order.
func (d *Downloader) FetchAll(ctx context.Context, jobs []Job) []Result {
	results := make([]Result, len(jobs))
	if len(jobs) == 0 {
		return results
	}

	workers := d.workers
	if workers > len(jobs) {
		workers = len(jobs)
	}
	pool := NewWorkerPool(ctx, workers, d.fetcher, d.rateLimiter, d.logger)
	pool.Start()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for r := range pool.Results() {
			results[r.Job.seq] = r
		}
	}()

	for i, job := range jobs {
		job.seq = i
		if err := pool.Submit(job); err != nil {
			results[i] = Result{Job: job, Error: err}
		}
	}
	pool.Stop()
	<-done

	return results
}

// FetchAndStore downloads a single file.
func (d *Downloader) FetchAndStore(ctx context.Context, url, dir, filename string) error {
	return d.fetcher.FetchAndStore(ctx, url, dir, filename)
}

// Succeeded counts successful results.
func Succeeded(results []Result) int {
	n := 0
	for _, r := range results {
		if r.Success {
			n++
		}
	}
	return n
}
