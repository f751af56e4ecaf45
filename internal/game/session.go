package game

import "strings"

type Phase string

const (
	PhaseCheckingEligibility Phase = "checking_eligibility"
	PhaseBlocked             Phase = "blocked"
	PhaseActive              Phase = "active"
	PhaseAwaitingFeedback    Phase = "awaiting_feedback"
	PhaseFinished            Phase = "finished"
)

type Feedback string

const (
	FeedbackNone     Feedback = ""
	FeedbackCorrect  Feedback = "correct"
	FeedbackTryAgain Feedback = "try_again"
)

const degradedThreshold = 3

// SessionState is the mutable state of one play attempt. It is owned by a
// single runtime goroutine; all methods assume serialized access. Phase
// transitions are one-way: Blocked and Finished are terminal.
type SessionState struct {
	Letters       []string
	CurrentIndex  int
	Score         int64
	ItemBudget    int
	ItemRemaining int
	TotalElapsed  int64
	Phase         Phase
	BlockReason   string
	Feedback      Feedback
	LastPredicted string
	Degraded      bool

	failStreak int
}

// NewSession starts directly in Active: eligibility has already been
// checked and the day's letters fetched by the time one is constructed.
func NewSession(letters []string, itemBudget int) *SessionState {
	return &SessionState{
		Letters:       letters,
		ItemBudget:    itemBudget,
		ItemRemaining: itemBudget,
		Phase:         PhaseActive,
	}
}

// BlockedSession is the terminal result of a failed or refused eligibility
// check; it never accumulates score and never writes a record.
func BlockedSession(reason string) *SessionState {
	return &SessionState{Phase: PhaseBlocked, BlockReason: reason}
}

// Target returns the letter currently being challenged.
func (s *SessionState) Target() (string, bool) {
	if s.CurrentIndex < 0 || s.CurrentIndex >= len(s.Letters) {
		return "", false
	}
	return s.Letters[s.CurrentIndex], true
}

// Tick is the once-per-second heartbeat. The total counter runs for the
// whole session; the per-item countdown only while Active, and reaching
// zero is a non-scoring advance.
func (s *SessionState) Tick() {
	if s.Phase != PhaseActive && s.Phase != PhaseAwaitingFeedback {
		return
	}
	s.TotalElapsed++
	if s.Phase != PhaseActive {
		return
	}
	s.ItemRemaining--
	if s.ItemRemaining <= 0 {
		s.advance()
	}
}

// ApplyPrediction compares a classifier label against the current target,
// case-insensitively. A match scores exactly one point and moves to
// AwaitingFeedback, so the same item can never score twice. Empty labels
// and any label outside Active are ignored.
func (s *SessionState) ApplyPrediction(label string) bool {
	s.PollSucceeded()
	if s.Phase != PhaseActive || label == "" {
		return false
	}
	s.LastPredicted = strings.ToUpper(label)
	target, ok := s.Target()
	if !ok {
		return false
	}
	if !strings.EqualFold(label, target) {
		s.Feedback = FeedbackTryAgain
		return false
	}
	s.Score++
	s.Phase = PhaseAwaitingFeedback
	s.Feedback = FeedbackCorrect
	return true
}

// FeedbackShown ends the fixed feedback display window after a match.
func (s *SessionState) FeedbackShown() {
	if s.Phase != PhaseAwaitingFeedback {
		return
	}
	s.Phase = PhaseActive
	s.advance()
}

// Skip advances without scoring. Manual skips and per-item timeouts are
// identical: time is consumed, the letter is not retried, no points move.
func (s *SessionState) Skip() bool {
	if s.Phase != PhaseActive {
		return false
	}
	s.advance()
	return true
}

func (s *SessionState) advance() {
	s.Feedback = FeedbackNone
	if s.CurrentIndex >= len(s.Letters)-1 {
		s.CurrentIndex = len(s.Letters)
		s.Phase = PhaseFinished
		return
	}
	s.CurrentIndex++
	s.ItemRemaining = s.ItemBudget
	s.Phase = PhaseActive
}

// PollFailed counts a swallowed classification error. Three in a row flip
// the degraded indicator; nothing else changes.
func (s *SessionState) PollFailed() {
	s.failStreak++
	if s.failStreak >= degradedThreshold {
		s.Degraded = true
	}
}

// PollSucceeded clears the degraded indicator.
func (s *SessionState) PollSucceeded() {
	s.failStreak = 0
	s.Degraded = false
}

func (s *SessionState) Terminal() bool {
	return s.Phase == PhaseFinished || s.Phase == PhaseBlocked
}
