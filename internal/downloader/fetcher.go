package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"igcrawler/pkg/logger"
)

// MediaSource opens media URLs. instagram.Client implements it with retry
// on 429 and 5xx responses.
type MediaSource interface {
	Open(ctx context.Context, url string, extra map[string]string) (*http.Response, error)
}

// MediaStorage persists downloaded media. storage.Layout implements it.
type MediaStorage interface {
	Exists(dir, filename string) bool
	SaveMedia(r io.Reader, dir, filename string) (int64, error)
}

// Job is one media file to fetch.
type Job struct {
	URL      string
	Dir      string
	Filename string
	// Entity names the user or tag the media belongs to, for logging.
	Entity string

	seq int
}

// Result is the outcome of a Job.
type Result struct {
	Job     Job
	Success bool
	// AlreadyStored is set when the file existed and was not fetched again.
	AlreadyStored bool
	Error         error
	Duration      time.Duration
	Size          int64
}

// Fetcher downloads a single media URL into storage.
type Fetcher struct {
	source    MediaSource
	storage   MediaStorage
	overwrite bool
	logger    logger.Logger
}

// NewFetcher creates a Fetcher. Existing files are kept unless overwrite is set.
func NewFetcher(source MediaSource, storage MediaStorage, overwrite bool, log logger.Logger) *Fetcher {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Fetcher{
		source:    source,
		storage:   storage,
		overwrite: overwrite,
		logger:    log,
	}
}

// FetchAndStore downloads url to dir/filename.
func (f *Fetcher) FetchAndStore(ctx context.Context, url, dir, filename string) error {
	return f.Fetch(ctx, Job{URL: url, Dir: dir, Filename: filename}).Error
}

// Fetch runs job and reports its outcome.
func (f *Fetcher) Fetch(ctx context.Context, job Job) Result {
	start := time.Now()
	result := Result{Job: job}

	if job.URL == "" || job.Filename == "" {
		result.Error = fmt.Errorf("incomplete download job for %q", job.URL)
		return result
	}

	if !f.overwrite && f.storage.Exists(job.Dir, job.Filename) {
		f.logger.DebugWithFields("Media already stored", map[string]interface{}{
			"entity":   job.Entity,
			"filename": job.Filename,
		})
		result.Success = true
		result.AlreadyStored = true
		result.Duration = time.Since(start)
		return result
	}

	resp, err := f.source.Open(ctx, job.URL, nil)
	if err != nil {
		result.Error = fmt.Errorf("download failed: %w", err)
		result.Duration = time.Since(start)
		logger.LogDownload(f.logger, job.URL, job.Dir, result.Error)
		return result
	}
	defer resp.Body.Close()

	size, err := f.storage.SaveMedia(resp.Body, job.Dir, job.Filename)
	result.Size = size
	result.Duration = time.Since(start)
	if err != nil {
		result.Error = fmt.Errorf("save failed: %w", err)
		logger.LogDownload(f.logger, job.URL, job.Dir, result.Error)
		return result
	}

	result.Success = true
	logger.LogDownload(f.logger, job.URL, job.Dir, nil)
	return result
}
