package client

import (
	"context"
	"errors"
	"testing"

	"github.com/buildstream-notify/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePlayer struct {
	state     string
	resumeErr error
	playErr   error

	resumeCalls int
	played      [][]Tone
}

func (p *fakePlayer) State() string { return p.state }

func (p *fakePlayer) Resume() error {
	p.resumeCalls++
	if p.resumeErr != nil {
		return p.resumeErr
	}
	p.state = "running"
	return nil
}

func (p *fakePlayer) Play(_ context.Context, tones []Tone) error {
	if p.playErr != nil {
		return p.playErr
	}
	p.played = append(p.played, tones)
	return nil
}

func TestSequence_CriticalAlwaysEmergency(t *testing.T) {
	for _, category := range []string{
		domain.CategoryMessage, domain.CategoryDelivery, domain.CategoryOrder,
		domain.CategoryContractor, domain.CategoryDocument, domain.CategoryGeneral,
	} {
		assert.Equal(t, emergencySequence, Sequence(category, domain.PriorityCritical), "category %s", category)
		assert.Equal(t, emergencySequence, Sequence(category, domain.PriorityHigh), "category %s", category)
	}
}

func TestSequence_CategorySelection(t *testing.T) {
	assert.Equal(t, categorySequences[domain.CategoryMessage], Sequence(domain.CategoryMessage, domain.PriorityNormal))
	assert.Equal(t, categorySequences[domain.CategoryDelivery], Sequence(domain.CategoryDelivery, domain.PriorityLow))
	assert.Equal(t, defaultSequence, Sequence(domain.CategoryGeneral, domain.PriorityNormal))
	assert.Equal(t, defaultSequence, Sequence("unheard-of", domain.PriorityNormal))
}

func TestAlertEngine_PlaysSequence(t *testing.T) {
	p := &fakePlayer{state: "running"}
	e := NewAlertEngine(p)

	e.Alert(context.Background(), domain.Notification{Category: domain.CategoryMessage, Priority: domain.PriorityNormal})

	require.Len(t, p.played, 1)
	assert.Equal(t, categorySequences[domain.CategoryMessage], p.played[0])
}

func TestAlertEngine_SuspendedPlayer_ResumedOnce(t *testing.T) {
	p := &fakePlayer{state: PlayerSuspended}
	e := NewAlertEngine(p)

	e.Alert(context.Background(), domain.Notification{Category: domain.CategoryOrder})
	e.Alert(context.Background(), domain.Notification{Category: domain.CategoryOrder})

	assert.Equal(t, 1, p.resumeCalls)
	assert.Len(t, p.played, 2)
}

func TestAlertEngine_ResumeFails_SilentNoOp(t *testing.T) {
	p := &fakePlayer{state: PlayerSuspended, resumeErr: errors.New("audio unavailable")}
	e := NewAlertEngine(p)

	e.Alert(context.Background(), domain.Notification{Category: domain.CategoryMessage})
	e.Alert(context.Background(), domain.Notification{Category: domain.CategoryMessage})

	// One resume attempt for the engine's lifetime, never a playback.
	assert.Equal(t, 1, p.resumeCalls)
	assert.Empty(t, p.played)
}

func TestAlertEngine_PlaybackError_Swallowed(t *testing.T) {
	p := &fakePlayer{state: "running", playErr: errors.New("device busy")}
	e := NewAlertEngine(p)

	e.Alert(context.Background(), domain.Notification{Category: domain.CategoryMessage})
}

func TestAlertEngine_NilPlayer_NoOp(t *testing.T) {
	e := NewAlertEngine(nil)
	e.Alert(context.Background(), domain.Notification{Category: domain.CategoryMessage})
}
