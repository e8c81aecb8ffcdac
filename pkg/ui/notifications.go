package ui

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"igcrawler/pkg/models"
)

// NotificationSender interface for platform-specific notification implementations
type NotificationSender interface {
	Send(title, message string) error
}

// LinuxNotificationSender sends notifications on Linux using notify-send
type LinuxNotificationSender struct{}

func (l *LinuxNotificationSender) Send(title, message string) error {
	return exec.Command("notify-send", title, message).Run()
}

// MacOSNotificationSender sends notifications on macOS using osascript
type MacOSNotificationSender struct{}

func (m *MacOSNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`display notification %q with title %q`, message, title)
	return exec.Command("osascript", "-e", script).Run()
}

// TerminalNotificationSender rings the terminal bell and prints the
// notification to Out.
type TerminalNotificationSender struct {
	Out io.Writer
}

func (t *TerminalNotificationSender) Send(title, message string) error {
	_, err := fmt.Fprintf(t.Out, "\a%s\n%s\n", title, message)
	return err
}

// Notifier tells the user a crawl run has ended.
type Notifier struct {
	sender NotificationSender
}

// NewNotifier picks a sender by kind: "terminal", "desktop" or "none".
// Desktop notifications exist on linux and darwin only; elsewhere the
// Notifier does nothing.
func NewNotifier(kind string) *Notifier {
	var sender NotificationSender
	switch strings.ToLower(kind) {
	case "terminal":
		sender = &TerminalNotificationSender{Out: os.Stderr}
	case "desktop":
		switch runtime.GOOS {
		case "linux":
			sender = &LinuxNotificationSender{}
		case "darwin":
			sender = &MacOSNotificationSender{}
		}
	}
	return &Notifier{sender: sender}
}

// NewNotifierWith uses sender.
func NewNotifierWith(sender NotificationSender) *Notifier {
	return &Notifier{sender: sender}
}

// RunFailed reports a run that ended on err.
func (n *Notifier) RunFailed(err error) {
	if n == nil || n.sender == nil || err == nil {
		return
	}
	_ = n.sender.Send("igcrawler: crawl failed", err.Error())
}

// RunFinished summarizes results in one notification. Failures to notify
// are ignored.
func (n *Notifier) RunFinished(results []models.EntityResult) {
	if n == nil || n.sender == nil || len(results) == 0 {
		return
	}

	complete := 0
	lines := make([]string, 0, len(results))
	for _, r := range results {
		if r.Complete() {
			complete++
		}
		lines = append(lines, r.Name+": "+FinalMessage(r))
	}

	title := fmt.Sprintf("igcrawler: %d/%d complete", complete, len(results))
	_ = n.sender.Send(title, strings.Join(lines, "\n"))
}
