package ui

import "igcrawler/pkg/models"

// Reporter receives crawl progress. Implementations must be safe for use
// from the crawl goroutine while another goroutine renders.
type Reporter interface {
	EntityStarted(kind models.EntityKind, name string)
	PostsFound(name string, total int)
	PostDone(name, link string, ok bool)
	EntityFinished(result models.EntityResult)
	Info(msg string)
	Warn(msg string)
	Error(msg string, err error)
}

// Final per-entity messages.
const (
	MsgAllDownloaded = "all downloaded"
	MsgNotAllSaved   = "not all saved, check log"
)

// FinalMessage is the line shown when an entity is done.
func FinalMessage(r models.EntityResult) string {
	if r.SkipReason != "" {
		return "skipped: " + r.SkipReason
	}
	if r.Complete() {
		return MsgAllDownloaded
	}
	return MsgNotAllSaved
}

// NopReporter discards everything.
type NopReporter struct{}

func (NopReporter) EntityStarted(models.EntityKind, string) {}
func (NopReporter) PostsFound(string, int)                  {}
func (NopReporter) PostDone(string, string, bool)           {}
func (NopReporter) EntityFinished(models.EntityResult)      {}
func (NopReporter) Info(string)                             {}
func (NopReporter) Warn(string)                             {}
func (NopReporter) Error(string, error)                     {}
