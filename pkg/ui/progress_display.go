package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"igcrawler/pkg/models"
)

// ConsoleReporter prints a single progress line per entity followed by its
// final message.
type ConsoleReporter struct {
	mu        sync.Mutex
	out       io.Writer
	quiet     bool
	name      string
	total     int
	attempted int
	failed    int
	startTime time.Time
	lineOpen  bool
}

// NewConsoleReporter writes to stdout. In quiet mode only errors and final
// messages are printed.
func NewConsoleReporter(quiet bool) *ConsoleReporter {
	return NewConsoleReporterTo(os.Stdout, quiet)
}

// NewConsoleReporterTo writes to w.
func NewConsoleReporterTo(w io.Writer, quiet bool) *ConsoleReporter {
	return &ConsoleReporter{out: w, quiet: quiet}
}

// EntityStarted resets the counters for a new user or tag.
func (p *ConsoleReporter) EntityStarted(kind models.EntityKind, name string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closeLine()
	p.name = name
	p.total = 0
	p.attempted = 0
	p.failed = 0
	p.startTime = time.Now()

	if !p.quiet {
		label := "@" + name
		if kind == models.EntityTag {
			label = "#" + name
		}
		fmt.Fprintf(p.out, "%s %s\n", Magenta("→"), Cyan(label))
	}
}

// PostsFound sets the number of posts about to be crawled.
func (p *ConsoleReporter) PostsFound(name string, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.total = total
	if !p.quiet {
		fmt.Fprintf(p.out, "  %s %d posts\n", Dim("found"), total)
	}
}

// PostDone advances the progress line.
func (p *ConsoleReporter) PostDone(name, link string, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.attempted++
	if !ok {
		p.failed++
	}
	if !p.quiet {
		p.printProgress()
	}
}

func (p *ConsoleReporter) printProgress() {
	const barWidth = 20
	filled := barWidth
	if p.total > 0 && p.attempted < p.total {
		filled = p.attempted * barWidth / p.total
	}
	bar := strings.Repeat("━", filled) + strings.Repeat("─", barWidth-filled)

	line := fmt.Sprintf("  [%s] %d/%d", bar, p.attempted, p.total)
	if p.failed > 0 {
		line += fmt.Sprintf(" • %s", Red(fmt.Sprintf("%d failed", p.failed)))
	}
	fmt.Fprintf(p.out, "\r%s", line)
	p.lineOpen = true
}

func (p *ConsoleReporter) closeLine() {
	if p.lineOpen {
		fmt.Fprintln(p.out)
		p.lineOpen = false
	}
}

// EntityFinished prints the entity's final message.
func (p *ConsoleReporter) EntityFinished(r models.EntityResult) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closeLine()
	msg := FinalMessage(r)
	switch {
	case r.SkipReason != "":
		fmt.Fprintf(p.out, "  %s %s\n", Yellow("!"), Yellow(msg))
	case r.Complete():
		fmt.Fprintf(p.out, "  %s %s %s\n", Green("✓"), Green(msg), Dim(formatDuration(time.Since(p.startTime))))
	default:
		fmt.Fprintf(p.out, "  %s %s (%d/%d saved)\n", Red("✗"), Red(msg), r.Succeeded, r.Attempted)
	}
}

// Info prints an informational line.
func (p *ConsoleReporter) Info(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.quiet {
		return
	}
	p.closeLine()
	fmt.Fprintf(p.out, "  %s\n", Dim(msg))
}

// Warn prints a warning line.
func (p *ConsoleReporter) Warn(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.quiet {
		return
	}
	p.closeLine()
	fmt.Fprintf(p.out, "  %s %s\n", Yellow("⚠"), Yellow(msg))
}

// Error prints an error line, even in quiet mode.
func (p *ConsoleReporter) Error(msg string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeLine()
	if err != nil {
		msg = msg + ": " + err.Error()
	}
	fmt.Fprintf(p.out, "  %s %s\n", Red("✗"), Red(msg))
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	} else if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
