package tui

import (
	"encoding/json"
	"errors"
	"io"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/freesound-sampler-go/internal/domain"
)

// scriptedSource replays frames, then reports EOF
type scriptedSource struct {
	frames []StreamMessage
}

func (s *scriptedSource) Next() (StreamMessage, error) {
	if len(s.frames) == 0 {
		return StreamMessage{}, io.EOF
	}
	msg := s.frames[0]
	s.frames = s.frames[1:]
	return msg, nil
}

func frame(t *testing.T, e domain.Event) StreamMessage {
	t.Helper()
	payload, err := json.Marshal(e)
	require.NoError(t, err)
	return StreamMessage{Kind: string(e.Kind()), BatchID: e.Batch(), Payload: payload}
}

func progressFrame(t *testing.T, id string, completed, failed, total int, fraction float64) StreamMessage {
	return frame(t, domain.ProgressChanged{Progress: domain.Progress{
		BatchID:         id,
		CompletedCount:  completed,
		FailedCount:     failed,
		TotalCount:      total,
		OverallFraction: fraction,
	}})
}

func TestModel_FollowsBatch(t *testing.T) {
	m := NewModel(&scriptedSource{}, Options{})
	assert.Equal(t, StateWaiting, m.state)

	m = m.Apply(frame(t, domain.BatchStarted{BatchID: "b1", Query: "kick", Directory: "/tmp/s", Total: 4}))
	assert.Equal(t, StateActive, m.state)
	assert.Equal(t, 4, m.progress.TotalCount)

	m = m.Apply(progressFrame(t, "b1", 1, 0, 4, 0.25))
	m = m.Apply(progressFrame(t, "b1", 2, 1, 4, 0.75))
	// late byte update
	m = m.Apply(progressFrame(t, "b1", 1, 0, 4, 0.5))
	assert.Equal(t, 0.75, m.progress.OverallFraction)
	assert.Equal(t, 1, m.progress.FailedCount)

	// stragglers from another batch are ignored
	m = m.Apply(frame(t, domain.BatchCancelled{BatchID: "old"}))
	assert.Equal(t, StateActive, m.state)

	m = m.Apply(frame(t, domain.MetadataWriteFailed{BatchID: "b1", Reason: "disk full"}))
	m = m.Apply(frame(t, domain.BatchCompleted{
		BatchID:             "b1",
		Success:             true,
		FailedDescriptorIDs: []string{"42"},
		Progress:            domain.Progress{BatchID: "b1", CompletedCount: 3, FailedCount: 1, TotalCount: 4, OverallFraction: 1},
	}))
	assert.True(t, m.Settled())
	assert.True(t, m.success)
	assert.Equal(t, []string{"42"}, m.failedIDs)

	view := m.View()
	assert.Contains(t, view, "kick")
	assert.Contains(t, view, "3/4 downloaded")
	assert.Contains(t, view, "failed: 42")
	assert.Contains(t, view, "disk full")

	// a new batch resets the view
	m = m.Apply(frame(t, domain.BatchStarted{BatchID: "b2", Total: 2}))
	assert.Equal(t, StateActive, m.state)
	assert.Empty(t, m.failedIDs)
	assert.Empty(t, m.warning)
	assert.Equal(t, 0.0, m.progress.OverallFraction)
}

func TestModel_CountsUpdateWhenFractionDips(t *testing.T) {
	m := NewModel(&scriptedSource{}, Options{})
	m = m.Apply(frame(t, domain.BatchStarted{BatchID: "b1", Total: 4}))
	m = m.Apply(progressFrame(t, "b1", 1, 0, 4, 0.6))

	m = m.Apply(progressFrame(t, "b1", 1, 1, 4, 0.4))
	assert.Equal(t, 1, m.progress.FailedCount)
	assert.Equal(t, 0.6, m.progress.OverallFraction)
	assert.Contains(t, m.View(), "1 failed")
}

func TestModel_Snapshot(t *testing.T) {
	snap := &domain.BatchSnapshot{
		ID:    "b1",
		State: domain.BatchStateCancelled,
		Tasks: []domain.TaskSnapshot{
			{Descriptor: domain.SoundDescriptor{ID: "1"}, State: domain.TaskSucceeded},
			{Descriptor: domain.SoundDescriptor{ID: "2"}, State: domain.TaskFailed},
		},
		Progress: domain.Progress{BatchID: "b1", CompletedCount: 1, FailedCount: 1, TotalCount: 2, OverallFraction: 1},
	}

	m := NewModel(&scriptedSource{}, Options{}).Apply(StreamMessage{Kind: KindSnapshot, BatchID: "b1", Snapshot: snap})
	assert.Equal(t, StateCancelled, m.state)
	assert.Equal(t, "b1", m.batchID)
	assert.Equal(t, []string{"2"}, m.failedIDs)
	assert.Contains(t, m.View(), "Batch cancelled")
}

func TestModel_ExitOnDone(t *testing.T) {
	source := &scriptedSource{frames: []StreamMessage{
		frame(t, domain.BatchStarted{BatchID: "b1", Total: 1}),
		frame(t, domain.BatchCompleted{BatchID: "b1", Success: true}),
	}}
	var model tea.Model = NewModel(source, Options{ExitOnDone: true})

	// drive the stream by hand: each frame returns the next read
	msg := model.(Model).next()()
	model, cmd := model.Update(msg)
	require.NotNil(t, cmd)
	msg = cmd()
	_, cmd = model.Update(msg)
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

func TestModel_Disconnect(t *testing.T) {
	var model tea.Model = NewModel(&scriptedSource{}, Options{})
	model, cmd := model.Update(model.(Model).next()())
	assert.Nil(t, cmd)
	m := model.(Model)
	assert.Equal(t, StateDisconnected, m.state)
	assert.ErrorIs(t, m.Err(), io.EOF)
	assert.Contains(t, m.View(), "Disconnected")
}

func TestModel_CancelKey(t *testing.T) {
	called := false
	m := NewModel(&scriptedSource{}, Options{Cancel: func() error {
		called = true
		return errors.New("server gone")
	}})

	// no active batch, nothing to cancel
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("c")})
	assert.Nil(t, cmd)

	m = m.Apply(frame(t, domain.BatchStarted{BatchID: "b1", Total: 1}))
	assert.Contains(t, m.View(), "c: cancel batch")
	model, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("c")})
	require.NotNil(t, cmd)
	model, _ = model.Update(cmd())
	assert.True(t, called)
	assert.Contains(t, model.(Model).warning, "server gone")
}

func TestModel_FollowIgnoresEarlierBatch(t *testing.T) {
	old := &domain.BatchSnapshot{ID: "old", State: domain.BatchStateCompleted}
	source := &scriptedSource{frames: []StreamMessage{
		frame(t, domain.BatchStarted{BatchID: "new", Total: 1}),
	}}
	var model tea.Model = NewModel(source, Options{ExitOnDone: true, Follow: "new"})

	// the previous batch is already settled but is not the one followed
	model, cmd := model.Update(frameMsg{msg: StreamMessage{Kind: KindSnapshot, BatchID: "old", Snapshot: old}})
	require.NotNil(t, cmd)
	msg := cmd()
	_, isQuit := msg.(tea.QuitMsg)
	assert.False(t, isQuit)

	model, _ = model.Update(msg)
	assert.Equal(t, "new", model.(Model).batchID)
	assert.False(t, model.(Model).Settled())
}
