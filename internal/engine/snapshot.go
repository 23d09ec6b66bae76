package engine

import (
	"sync"

	"github.com/rohit0033/live-polling/internal/models"
)

// Snapshot is the complete read-only view of the engine exposed to the
// rendering layer. Every field is a copy; mutating a snapshot never
// affects the engine or other snapshot holders.
type Snapshot struct {
	Role             models.Role          `json:"role"`
	DisplayName      string               `json:"displayName"`
	SessionToken     string               `json:"sessionToken"`
	StudentID        string               `json:"studentId,omitempty"`
	Connected        bool                 `json:"connected"`
	Kicked           bool                 `json:"kicked"`
	Waiting          bool                 `json:"waiting"`
	CurrentPoll      *models.Poll         `json:"currentPoll,omitempty"`
	RemainingSeconds *int                 `json:"remainingSeconds,omitempty"`
	SelectedOption   string               `json:"selectedOption,omitempty"`
	HasSubmitted     bool                 `json:"hasSubmitted"`
	PollHistory      []models.Poll        `json:"pollHistory"`
	Participants     []models.Participant `json:"participants"`
	Messages         []models.ChatMessage `json:"messages"`
}

func (s Snapshot) clone() Snapshot {
	cp := s
	cp.CurrentPoll = s.CurrentPoll.Clone()
	if s.RemainingSeconds != nil {
		v := *s.RemainingSeconds
		cp.RemainingSeconds = &v
	}
	if s.PollHistory != nil {
		cp.PollHistory = make([]models.Poll, len(s.PollHistory))
		for i := range s.PollHistory {
			cp.PollHistory[i] = *s.PollHistory[i].Clone()
		}
	}
	if s.Participants != nil {
		cp.Participants = make([]models.Participant, len(s.Participants))
		copy(cp.Participants, s.Participants)
	}
	if s.Messages != nil {
		cp.Messages = make([]models.ChatMessage, len(s.Messages))
		copy(cp.Messages, s.Messages)
	}
	return cp
}

// snapshotStore coordinates reads of the latest snapshot across
// goroutines. The engine writes after every applied task; readers get
// independent copies.
type snapshotStore struct {
	mu   sync.RWMutex
	snap Snapshot
}

func (s *snapshotStore) set(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = snap
}

func (s *snapshotStore) get() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.clone()
}

// Snapshot returns a copy of the engine's current state.
func (e *Engine) Snapshot() Snapshot {
	return e.store.get()
}

// publish rebuilds the published snapshot from engine-owned state.
// Called on the Run goroutine (and once from New).
func (e *Engine) publish() {
	snap := Snapshot{
		Role:           e.session.Role,
		DisplayName:    e.session.DisplayName,
		SessionToken:   e.session.SessionToken,
		StudentID:      e.session.StudentID,
		Connected:      e.session.Connected,
		Kicked:         e.session.Kicked,
		Waiting:        e.waiting,
		CurrentPoll:    e.current.Clone(),
		SelectedOption: e.selectedOption,
		HasSubmitted:   e.hasSubmitted,
	}
	if e.remaining != nil {
		v := *e.remaining
		snap.RemainingSeconds = &v
	}
	if e.history != nil {
		snap.PollHistory = make([]models.Poll, len(e.history))
		for i := range e.history {
			snap.PollHistory[i] = *e.history[i].Clone()
		}
	}
	if e.participants != nil {
		snap.Participants = make([]models.Participant, len(e.participants))
		copy(snap.Participants, e.participants)
	}
	if e.messages != nil {
		snap.Messages = make([]models.ChatMessage, len(e.messages))
		copy(snap.Messages, e.messages)
	}
	e.store.set(snap)
}
