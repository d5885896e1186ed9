package infrastructure

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/yourusername/freesound-sampler-go/internal/domain"
	"go.uber.org/zap"
)

// NotificationService sends desktop notifications for batch outcomes.
// It is subscribed to the event fabric as a listener.
type NotificationService struct {
	config *domain.NotificationConfig
	logger *zap.Logger
	run    func(name string, args ...string) error
}

// NewNotificationService creates a new notification service
func NewNotificationService(config *domain.NotificationConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		config: config,
		logger: logger,
		run: func(name string, args ...string) error {
			return exec.Command(name, args...).Run()
		},
	}
}

// OnEvent implements events.Listener
func (n *NotificationService) OnEvent(event domain.Event) {
	switch e := event.(type) {
	case domain.BatchCompleted:
		n.NotifyBatchCompleted(e)
	case domain.BatchCancelled:
		n.Send("Download Cancelled",
			fmt.Sprintf("%d of %d sounds downloaded", e.Progress.CompletedCount, e.Progress.TotalCount))
	case domain.MetadataWriteFailed:
		n.Send("Metadata Not Saved", truncateString(e.Reason, 60))
	}
}

// Send sends a notification
func (n *NotificationService) Send(title, message string) error {
	if !n.config.Enabled {
		n.logger.Debug("Notifications disabled, skipping",
			zap.String("title", title),
			zap.String("message", message))
		return nil
	}

	var err error
	switch n.config.Method {
	case "osascript":
		script := fmt.Sprintf(`display notification "%s" with title "%s"`, appleScriptEscape(message), appleScriptEscape(title))
		err = n.run("osascript", "-e", script)
	case "notify-send":
		err = n.run("notify-send", title, message)
	default:
		n.logger.Warn("Unknown notification method", zap.String("method", n.config.Method))
		return nil
	}

	if err != nil {
		n.logger.Error("Failed to send notification",
			zap.String("method", n.config.Method),
			zap.Error(err))
		return err
	}

	n.logger.Debug("Notification sent",
		zap.String("title", title),
		zap.String("message", message))
	return nil
}

// NotifyBatchCompleted sends notification when a batch completes
func (n *NotificationService) NotifyBatchCompleted(e domain.BatchCompleted) {
	title := "Sounds Ready"
	message := fmt.Sprintf("%d of %d sounds downloaded", e.Progress.CompletedCount, e.Progress.TotalCount)
	if !e.Success {
		title = "Download Failed"
		message = "No sounds could be downloaded"
	}
	n.Send(title, message)
}

var appleScriptReplacer = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\r", " ", "\n", " ")

// appleScriptEscape makes s safe inside an AppleScript string literal
func appleScriptEscape(s string) string {
	return appleScriptReplacer.Replace(s)
}

// truncateString truncates a string to the specified length
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
