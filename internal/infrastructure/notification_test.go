package infrastructure

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/yourusername/freesound-sampler-go/internal/domain"
)

type commandRecorder struct {
	calls [][]string
	err   error
}

func (c *commandRecorder) run(name string, args ...string) error {
	c.calls = append(c.calls, append([]string{name}, args...))
	return c.err
}

func TestNotificationService_Disabled(t *testing.T) {
	rec := &commandRecorder{}
	n := NewNotificationService(&domain.NotificationConfig{Enabled: false, Method: "notify-send"}, nil)
	n.run = rec.run

	n.OnEvent(domain.BatchCompleted{Success: true})
	assert.Empty(t, rec.calls)
}

func TestNotificationService_BatchCompleted(t *testing.T) {
	rec := &commandRecorder{}
	n := NewNotificationService(&domain.NotificationConfig{Enabled: true, Method: "notify-send"}, nil)
	n.run = rec.run

	n.OnEvent(domain.BatchCompleted{
		Success:  true,
		Progress: domain.Progress{CompletedCount: 15, FailedCount: 1, TotalCount: 16},
	})

	assert.Equal(t, [][]string{{"notify-send", "Sounds Ready", "15 of 16 sounds downloaded"}}, rec.calls)
}

func TestNotificationService_IgnoresProgress(t *testing.T) {
	rec := &commandRecorder{}
	n := NewNotificationService(&domain.NotificationConfig{Enabled: true, Method: "notify-send"}, nil)
	n.run = rec.run

	n.OnEvent(domain.ProgressChanged{})
	assert.Empty(t, rec.calls)
}

func TestNotificationService_CommandError(t *testing.T) {
	rec := &commandRecorder{err: errors.New("not installed")}
	n := NewNotificationService(&domain.NotificationConfig{Enabled: true, Method: "notify-send"}, nil)
	n.run = rec.run

	assert.Error(t, n.Send("t", "m"))
}

func TestNotificationService_OsascriptEscapesText(t *testing.T) {
	rec := &commandRecorder{}
	n := NewNotificationService(&domain.NotificationConfig{Enabled: true, Method: "osascript"}, nil)
	n.run = rec.run

	n.OnEvent(domain.MetadataWriteFailed{Reason: `open "C:\tmp"` + "\nfailed"})

	assert.Equal(t, [][]string{{
		"osascript", "-e",
		`display notification "open \"C:\\tmp\" failed" with title "Metadata Not Saved"`,
	}}, rec.calls)
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", truncateString("short", 10))
	assert.Equal(t, "abc...", truncateString("abcdef", 3))
}
