// Package tui renders a live view of download batches from the server's event stream.
package tui

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/yourusername/freesound-sampler-go/internal/domain"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B")).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#95E1A3"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFE66D"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C757D"))
)

// State is what the watched batch is doing
type State int

const (
	StateWaiting State = iota
	StateActive
	StateCompleted
	StateCancelled
	StateDisconnected
)

// Source yields stream frames; *Stream implements it
type Source interface {
	Next() (StreamMessage, error)
}

// Options configure the watch model
type Options struct {
	// Cancel asks the server to cancel the active batch. Nil disables the key.
	Cancel func() error
	// ExitOnDone quits once the watched batch completes or is cancelled
	ExitOnDone bool
	// Follow restricts ExitOnDone to the batch with this ID
	Follow string
}

type (
	frameMsg     struct{ msg StreamMessage }
	streamErrMsg struct{ err error }
	cancelMsg    struct{ err error }
)

// Model is the Bubble Tea model for the watch view
type Model struct {
	source Source
	opts   Options

	state     State
	batchID   string
	query     string
	directory string
	progress  domain.Progress
	failedIDs []string
	success   bool
	warning   string
	err       error

	spinner spinner.Model
	bar     progress.Model
	width   int
}

// NewModel creates a watch model reading from source
func NewModel(source Source, opts Options) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))

	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = 50

	return Model{
		source:  source,
		opts:    opts,
		spinner: sp,
		bar:     bar,
	}
}

// Init starts reading the stream
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.next())
}

func (m Model) next() tea.Cmd {
	return func() tea.Msg {
		msg, err := m.source.Next()
		if err != nil {
			return streamErrMsg{err: err}
		}
		return frameMsg{msg: msg}
	}
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = min(max(msg.Width-20, 20), 80)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		case "c":
			if m.state == StateActive && m.opts.Cancel != nil {
				cancel := m.opts.Cancel
				return m, func() tea.Msg { return cancelMsg{err: cancel()} }
			}
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case frameMsg:
		m = m.Apply(msg.msg)
		if m.opts.ExitOnDone && m.Settled() && (m.opts.Follow == "" || m.opts.Follow == m.batchID) {
			return m, tea.Quit
		}
		return m, m.next()

	case streamErrMsg:
		m.state = StateDisconnected
		m.err = msg.err
		if m.opts.ExitOnDone {
			return m, tea.Quit
		}
		return m, nil

	case cancelMsg:
		if msg.err != nil {
			m.warning = "cancel failed: " + msg.err.Error()
		}
		return m, nil
	}

	return m, nil
}

// Settled reports whether the watched batch has finished
func (m Model) Settled() bool {
	return m.state == StateCompleted || m.state == StateCancelled
}

// Err returns the stream error that ended the watch, if any
func (m Model) Err() error {
	return m.err
}

// Apply folds one stream frame into the model
func (m Model) Apply(msg StreamMessage) Model {
	if msg.Kind == KindSnapshot {
		if msg.Snapshot == nil {
			return m
		}
		snap := msg.Snapshot
		m = m.reset(snap.ID, snap.Query, snap.Directory)
		m.progress = snap.Progress
		switch snap.State {
		case domain.BatchStateCompleted:
			m.state = StateCompleted
			m.success = snap.Progress.CompletedCount > 0
		case domain.BatchStateCancelled:
			m.state = StateCancelled
		}
		for _, t := range snap.FailedTasks() {
			m.failedIDs = append(m.failedIDs, t.Descriptor.ID)
		}
		return m
	}

	switch domain.EventKind(msg.Kind) {
	case domain.EventBatchStarted:
		var e domain.BatchStarted
		if json.Unmarshal(msg.Payload, &e) == nil {
			m = m.reset(e.BatchID, e.Query, e.Directory)
			m.progress.TotalCount = e.Total
		}
		return m
	}

	// everything else belongs to one batch; ignore stragglers from older ones
	if msg.BatchID != m.batchID {
		return m
	}

	switch domain.EventKind(msg.Kind) {
	case domain.EventProgressChanged:
		var p domain.Progress
		// counts are monotonic; a lower count is a frame queued before the snapshot
		if json.Unmarshal(msg.Payload, &p) == nil && p.CompletedCount+p.FailedCount >= m.progress.CompletedCount+m.progress.FailedCount {
			p.OverallFraction = max(p.OverallFraction, m.progress.OverallFraction)
			m.progress = p
		}
	case domain.EventBatchCompleted:
		var e domain.BatchCompleted
		if json.Unmarshal(msg.Payload, &e) == nil {
			m.state = StateCompleted
			m.success = e.Success
			m.progress = e.Progress
			m.failedIDs = e.FailedDescriptorIDs
		}
	case domain.EventBatchCancelled:
		var e domain.BatchCancelled
		if json.Unmarshal(msg.Payload, &e) == nil {
			m.state = StateCancelled
			m.progress = e.Progress
		}
	case domain.EventMetadataWriteFailed:
		var e domain.MetadataWriteFailed
		if json.Unmarshal(msg.Payload, &e) == nil {
			m.warning = "metadata not saved: " + e.Reason
		}
	}
	return m
}

func (m Model) reset(id, query, dir string) Model {
	m.state = StateActive
	m.batchID = id
	m.query = query
	m.directory = dir
	m.progress = domain.Progress{BatchID: id}
	m.failedIDs = nil
	m.success = false
	m.warning = ""
	return m
}

// View renders the UI
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Freesound Sampler"))
	b.WriteString("\n")

	switch m.state {
	case StateWaiting:
		b.WriteString(m.spinner.View())
		b.WriteString(" ")
		b.WriteString(subtitleStyle.Render("Waiting for a batch..."))
		b.WriteString("\n")
	case StateDisconnected:
		b.WriteString(errorStyle.Render(fmt.Sprintf("Disconnected: %v", m.err)))
		b.WriteString("\n")
	default:
		b.WriteString(m.viewBatch())
	}

	if m.warning != "" {
		b.WriteString(warningStyle.Render("! " + m.warning))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	help := "q: quit"
	if m.state == StateActive && m.opts.Cancel != nil {
		help = "c: cancel batch • " + help
	}
	b.WriteString(dimStyle.Render(help))
	return b.String()
}

func (m Model) viewBatch() string {
	var b strings.Builder

	title := m.query
	if title == "" {
		title = "batch"
	}
	b.WriteString(subtitleStyle.Render(fmt.Sprintf("%s  %s", title, shortID(m.batchID))))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.directory))
	b.WriteString("\n\n")

	b.WriteString(m.bar.ViewAs(m.progress.OverallFraction))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("%d/%d downloaded", m.progress.CompletedCount, m.progress.TotalCount))
	if m.progress.FailedCount > 0 {
		b.WriteString(errorStyle.Render(fmt.Sprintf("  %d failed", m.progress.FailedCount)))
	}
	b.WriteString("\n")

	switch m.state {
	case StateActive:
		b.WriteString(m.spinner.View())
		b.WriteString(" downloading\n")
	case StateCompleted:
		if m.success {
			b.WriteString(successStyle.Render("✓ Batch complete"))
		} else {
			b.WriteString(errorStyle.Render("✗ Nothing downloaded"))
		}
		b.WriteString("\n")
		if len(m.failedIDs) > 0 {
			b.WriteString(dimStyle.Render("failed: " + strings.Join(m.failedIDs, ", ")))
			b.WriteString("\n")
		}
	case StateCancelled:
		b.WriteString(warningStyle.Render("Batch cancelled"))
		b.WriteString("\n")
	}
	return b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
