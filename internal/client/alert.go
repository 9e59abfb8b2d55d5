package client

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/buildstream-notify/internal/domain"
)

// Tone is one audio cue: a single note the player renders.
type Tone struct {
	FrequencyHz float64
	Duration    time.Duration
	Volume      float64
	Waveform    string
}

// Player abstracts the audio subsystem. Browsers and desktop shells suspend
// audio until user interaction, so the player exposes its state and a resume
// hook alongside playback.
type Player interface {
	State() string
	Resume() error
	Play(ctx context.Context, tones []Tone) error
}

// PlayerSuspended is the Player.State value meaning the subsystem needs a
// Resume before it can produce sound.
const PlayerSuspended = "suspended"

const (
	waveSine     = "sine"
	waveSquare   = "square"
	waveTriangle = "triangle"
)

// Sequence maps a notification's category and priority to its tone sequence.
// High and critical priorities always select the emergency set regardless of
// category, so an urgent notification is unmistakable by ear alone.
func Sequence(category, priority string) []Tone {
	switch priority {
	case domain.PriorityHigh, domain.PriorityCritical:
		return emergencySequence
	}
	if seq, ok := categorySequences[category]; ok {
		return seq
	}
	return defaultSequence
}

var emergencySequence = []Tone{
	{FrequencyHz: 880, Duration: 200 * time.Millisecond, Volume: 1.0, Waveform: waveSquare},
	{FrequencyHz: 660, Duration: 200 * time.Millisecond, Volume: 1.0, Waveform: waveSquare},
	{FrequencyHz: 880, Duration: 200 * time.Millisecond, Volume: 1.0, Waveform: waveSquare},
	{FrequencyHz: 660, Duration: 200 * time.Millisecond, Volume: 1.0, Waveform: waveSquare},
	{FrequencyHz: 1046, Duration: 400 * time.Millisecond, Volume: 1.0, Waveform: waveSquare},
}

var defaultSequence = []Tone{
	{FrequencyHz: 523, Duration: 150 * time.Millisecond, Volume: 0.5, Waveform: waveSine},
	{FrequencyHz: 659, Duration: 200 * time.Millisecond, Volume: 0.5, Waveform: waveSine},
}

var categorySequences = map[string][]Tone{
	domain.CategoryMessage: {
		{FrequencyHz: 659, Duration: 120 * time.Millisecond, Volume: 0.6, Waveform: waveSine},
		{FrequencyHz: 784, Duration: 180 * time.Millisecond, Volume: 0.6, Waveform: waveSine},
	},
	domain.CategoryDelivery: {
		{FrequencyHz: 523, Duration: 150 * time.Millisecond, Volume: 0.6, Waveform: waveTriangle},
		{FrequencyHz: 523, Duration: 150 * time.Millisecond, Volume: 0.6, Waveform: waveTriangle},
		{FrequencyHz: 659, Duration: 250 * time.Millisecond, Volume: 0.6, Waveform: waveTriangle},
	},
	domain.CategoryOrder: {
		{FrequencyHz: 587, Duration: 150 * time.Millisecond, Volume: 0.6, Waveform: waveSine},
		{FrequencyHz: 740, Duration: 200 * time.Millisecond, Volume: 0.6, Waveform: waveSine},
	},
	domain.CategoryContractor: {
		{FrequencyHz: 440, Duration: 150 * time.Millisecond, Volume: 0.5, Waveform: waveSine},
		{FrequencyHz: 554, Duration: 200 * time.Millisecond, Volume: 0.5, Waveform: waveSine},
	},
	domain.CategoryDocument: {
		{FrequencyHz: 494, Duration: 120 * time.Millisecond, Volume: 0.5, Waveform: waveSine},
		{FrequencyHz: 622, Duration: 180 * time.Millisecond, Volume: 0.5, Waveform: waveSine},
	},
}

// AlertEngine turns fresh notifications into sound. Audio is best-effort: a
// suspended player gets one resume attempt, and any failure degrades to
// silence rather than an error surfacing to the caller.
type AlertEngine struct {
	mu           sync.Mutex
	player       Player
	resumed      bool
	resumeFailed bool
}

func NewAlertEngine(player Player) *AlertEngine {
	return &AlertEngine{player: player}
}

// Alert plays the tone sequence for a notification. It never returns an
// error; an unplayable alert is dropped silently after a debug log.
func (e *AlertEngine) Alert(ctx context.Context, n domain.Notification) {
	if e.player == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.player.State() == PlayerSuspended {
		if !e.tryResume() {
			return
		}
	}
	if err := e.player.Play(ctx, Sequence(n.Category, n.Priority)); err != nil {
		slog.Debug("alert playback failed", "notification_id", n.NotificationID, "err", err)
	}
}

// tryResume attempts to wake the player exactly once for the engine's
// lifetime. A failed resume marks the audio subsystem unavailable and every
// later alert no-ops.
func (e *AlertEngine) tryResume() bool {
	if e.resumed {
		return true
	}
	if e.resumeFailed {
		return false
	}
	if err := e.player.Resume(); err != nil {
		e.resumeFailed = true
		slog.Debug("audio resume failed; alerts disabled", "err", err)
		return false
	}
	e.resumed = true
	return true
}
