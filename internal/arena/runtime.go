package arena

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"sign-arena/internal/game"
	"sign-arena/internal/identity"
	"sign-arena/internal/store"
)

// Snapshot is the read model of a session, safe to hand across goroutines
// and straight onto the wire.
type Snapshot struct {
	SessionID     string        `json:"session_id"`
	Mode          Mode          `json:"mode"`
	Phase         game.Phase    `json:"phase"`
	BlockReason   string        `json:"block_reason,omitempty"`
	PlayDate      string        `json:"play_date"`
	LetterCount   int           `json:"letter_count"`
	CurrentIndex  int           `json:"current_index"`
	Target        string        `json:"target,omitempty"`
	Score         int64         `json:"score"`
	ItemRemaining int           `json:"item_remaining"`
	TotalElapsed  int64         `json:"total_elapsed"`
	Feedback      game.Feedback `json:"feedback,omitempty"`
	LastPredicted string        `json:"last_predicted,omitempty"`
	Degraded      bool          `json:"classifier_degraded"`
	RecordWritten bool          `json:"record_written"`
	PersistFailed bool          `json:"persist_failed,omitempty"`
}

type pollResult struct {
	label string
	err   error
}

type advanceData struct {
	Index  int    `json:"index"`
	Target string `json:"target,omitempty"`
	Reason string `json:"reason"`
}

type feedbackData struct {
	Feedback  game.Feedback `json:"feedback"`
	Predicted string        `json:"predicted"`
	Target    string        `json:"target"`
	Score     int64         `json:"score"`
}

type finishedData struct {
	Score          int64 `json:"score"`
	ElapsedSeconds int64 `json:"elapsed_seconds"`
	RecordWritten  bool  `json:"record_written"`
}

// sessionRuntime drives one session. The loop goroutine owns the cadence;
// state itself is guarded by mu so API calls can read and, for frames and
// skips, write without a round trip through the loop.
type sessionRuntime struct {
	id        string
	user      identity.User
	mode      Mode
	playDate  string
	createdAt time.Time
	expiresAt time.Time

	coord  *Coordinator
	buffer *EventBuffer

	mu            sync.Mutex
	state         *game.SessionState
	latest        []float64
	inFlight      bool
	recordWritten bool
	persistFailed bool
	closed        bool
	doneAt        time.Time

	finishCh chan struct{}
	cancel   context.CancelFunc
	done     chan struct{}
}

func newSessionRuntime(id string, user identity.User, mode Mode, playDate string, state *game.SessionState, coord *Coordinator, letters []string) *sessionRuntime {
	now := coord.now()
	return &sessionRuntime{
		id:        id,
		user:      user,
		mode:      mode,
		playDate:  playDate,
		createdAt: now,
		expiresAt: now.Add(coord.cfg.SessionTTL),
		coord:     coord,
		buffer:    NewEventBuffer(coord.cfg.BufferSize),
		state:     state,
		finishCh:  make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
}

func (rt *sessionRuntime) start() {
	rt.mu.Lock()
	blocked := rt.state.Phase == game.PhaseBlocked
	reason := rt.state.BlockReason
	target, _ := rt.state.Target()
	rt.mu.Unlock()

	if blocked {
		rt.mu.Lock()
		rt.doneAt = rt.coord.now()
		rt.mu.Unlock()
		rt.buffer.Append("session_blocked", rt.id, map[string]string{"reason": reason})
		rt.buffer.Close()
		close(rt.done)
		log.Info().Str("session_id", rt.id).Str("user_id", rt.user.ID).Str("reason", reason).Msg("session blocked")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	rt.cancel = cancel
	rt.buffer.Append("session_started", rt.id, advanceData{Index: 0, Target: target, Reason: "start"})
	log.Info().Str("session_id", rt.id).Str("user_id", rt.user.ID).Str("mode", string(rt.mode)).Msg("session started")
	go func() {
		defer cancel()
		rt.loop(ctx)
	}()
}

func (rt *sessionRuntime) loop(ctx context.Context) {
	defer close(rt.done)
	tick := time.NewTicker(rt.coord.cfg.TickInterval)
	defer tick.Stop()
	poll := time.NewTicker(rt.coord.cfg.PollInterval)
	defer poll.Stop()

	results := make(chan pollResult, 1)
	var feedback <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			rt.markClosed()
			rt.buffer.Append("session_closed", rt.id, nil)
			rt.buffer.Close()
			return
		case <-tick.C:
			if rt.handleTick() {
				rt.finalize()
				return
			}
		case <-poll.C:
			rt.startPoll(ctx, results)
		case res := <-results:
			if rt.handleResult(res) {
				feedback = time.After(rt.coord.cfg.FeedbackDelay)
			}
		case <-feedback:
			feedback = nil
			if rt.handleFeedbackShown() {
				rt.finalize()
				return
			}
		case <-rt.finishCh:
			rt.finalize()
			return
		}
	}
}

// handleTick advances the clocks and reports whether the session just
// finished on a timeout of the last letter.
func (rt *sessionRuntime) handleTick() bool {
	rt.mu.Lock()
	prevIndex := rt.state.CurrentIndex
	rt.state.Tick()
	finished := rt.state.Phase == game.PhaseFinished
	idx := rt.state.CurrentIndex
	target, _ := rt.state.Target()
	rt.mu.Unlock()

	if finished {
		return true
	}
	if idx != prevIndex {
		rt.buffer.Append("target_advanced", rt.id, advanceData{Index: idx, Target: target, Reason: "timeout"})
	}
	return false
}

// startPoll launches at most one classification request. The newest frame
// wins; with no frame yet or a request already out, the tick is skipped.
func (rt *sessionRuntime) startPoll(ctx context.Context, results chan<- pollResult) {
	rt.mu.Lock()
	if rt.inFlight || rt.state.Phase != game.PhaseActive || len(rt.latest) == 0 {
		rt.mu.Unlock()
		return
	}
	vec := make([]float64, len(rt.latest))
	copy(vec, rt.latest)
	rt.inFlight = true
	rt.mu.Unlock()

	go func() {
		label, err := rt.coord.classifier.Predict(ctx, vec)
		select {
		case results <- pollResult{label: label, err: err}:
		case <-ctx.Done():
		}
	}()
}

// handleResult folds one poll outcome into the state and reports whether
// the target was matched. Errors are absorbed; a result that lands after
// the phase moved on is discarded.
func (rt *sessionRuntime) handleResult(res pollResult) bool {
	rt.mu.Lock()
	rt.inFlight = false
	if res.err != nil {
		wasDegraded := rt.state.Degraded
		rt.state.PollFailed()
		nowDegraded := rt.state.Degraded
		rt.mu.Unlock()
		log.Warn().Err(res.err).Str("session_id", rt.id).Msg("classification poll failed")
		if nowDegraded && !wasDegraded {
			rt.buffer.Append("classifier_degraded", rt.id, nil)
		}
		return false
	}
	if rt.state.Phase != game.PhaseActive {
		rt.state.PollSucceeded()
		rt.mu.Unlock()
		return false
	}
	target, _ := rt.state.Target()
	matched := rt.state.ApplyPrediction(res.label)
	fb := rt.state.Feedback
	predicted := rt.state.LastPredicted
	score := rt.state.Score
	rt.mu.Unlock()

	if res.label != "" {
		rt.buffer.Append("feedback", rt.id, feedbackData{
			Feedback:  fb,
			Predicted: predicted,
			Target:    target,
			Score:     score,
		})
	}
	return matched
}

// handleFeedbackShown ends the post-match display window and reports
// whether the matched letter was the last one.
func (rt *sessionRuntime) handleFeedbackShown() bool {
	rt.mu.Lock()
	rt.state.FeedbackShown()
	finished := rt.state.Phase == game.PhaseFinished
	idx := rt.state.CurrentIndex
	target, _ := rt.state.Target()
	rt.mu.Unlock()

	if finished {
		return true
	}
	rt.buffer.Append("target_advanced", rt.id, advanceData{Index: idx, Target: target, Reason: "match"})
	return false
}

// finalize persists the outcome and closes the stream. Persistence is
// best effort: the user still sees their result when the write fails,
// the record is just gone. Upsert keyed on (user, day) makes a retried
// finalize write the same row.
func (rt *sessionRuntime) finalize() {
	rt.mu.Lock()
	score := rt.state.Score
	elapsed := rt.state.TotalElapsed
	rt.doneAt = rt.coord.now()
	rt.mu.Unlock()

	written := false
	if rt.mode == ModeDaily {
		ctx, cancel := context.WithTimeout(context.Background(), rt.coord.cfg.FinalizeTimeout)
		defer cancel()
		err := rt.coord.store.UpsertPlayRecord(ctx, store.PlayRecord{
			UserID:         rt.user.ID,
			Email:          rt.user.Email,
			Score:          score,
			ElapsedSeconds: elapsed,
			PlayDate:       rt.playDate,
		})
		if err != nil {
			log.Warn().Err(err).Str("session_id", rt.id).Str("user_id", rt.user.ID).
				Msg("play record write failed, result shown but not persisted")
			rt.mu.Lock()
			rt.persistFailed = true
			rt.mu.Unlock()
		} else {
			written = true
			rt.mu.Lock()
			rt.recordWritten = true
			rt.mu.Unlock()
		}
	}
	log.Info().Str("session_id", rt.id).Str("user_id", rt.user.ID).
		Int64("score", score).Int64("elapsed_seconds", elapsed).Bool("record_written", written).
		Msg("session finished")
	rt.buffer.Append("session_finished", rt.id, finishedData{
		Score:          score,
		ElapsedSeconds: elapsed,
		RecordWritten:  written,
	})
	rt.buffer.Close()
}

func (rt *sessionRuntime) submitFrame(vec []float64) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.closed || rt.state.Terminal() {
		return ErrSessionOver
	}
	rt.latest = append(rt.latest[:0], vec...)
	return nil
}

func (rt *sessionRuntime) skip() error {
	rt.mu.Lock()
	if rt.closed || rt.state.Terminal() {
		rt.mu.Unlock()
		return ErrSessionOver
	}
	skipped := rt.state.Skip()
	finished := rt.state.Phase == game.PhaseFinished
	idx := rt.state.CurrentIndex
	target, _ := rt.state.Target()
	rt.mu.Unlock()

	if !skipped {
		// Mid feedback display; the advance is already on its way.
		return nil
	}
	if finished {
		select {
		case rt.finishCh <- struct{}{}:
		default:
		}
		return nil
	}
	rt.buffer.Append("target_advanced", rt.id, advanceData{Index: idx, Target: target, Reason: "skip"})
	return nil
}

func (rt *sessionRuntime) abandon() {
	if rt.cancel != nil {
		rt.cancel()
		<-rt.done
		return
	}
	rt.markClosed()
	rt.buffer.Close()
}

func (rt *sessionRuntime) markClosed() {
	rt.mu.Lock()
	rt.closed = true
	rt.doneAt = rt.coord.now()
	rt.mu.Unlock()
}

// playable reports whether the runtime can still accept play. Blocked and
// finished sessions are done; a new create for the user may replace them.
func (rt *sessionRuntime) playable() bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return !rt.closed && !rt.state.Terminal()
}

func (rt *sessionRuntime) expired(now time.Time) bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.closed || rt.state.Terminal() {
		return !rt.doneAt.IsZero() && now.Sub(rt.doneAt) > rt.coord.cfg.DoneRetention
	}
	return now.After(rt.expiresAt)
}

func (rt *sessionRuntime) snapshot() Snapshot {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	target, _ := rt.state.Target()
	return Snapshot{
		SessionID:     rt.id,
		Mode:          rt.mode,
		Phase:         rt.state.Phase,
		BlockReason:   rt.state.BlockReason,
		PlayDate:      rt.playDate,
		LetterCount:   len(rt.state.Letters),
		CurrentIndex:  rt.state.CurrentIndex,
		Target:        target,
		Score:         rt.state.Score,
		ItemRemaining: rt.state.ItemRemaining,
		TotalElapsed:  rt.state.TotalElapsed,
		Feedback:      rt.state.Feedback,
		LastPredicted: rt.state.LastPredicted,
		Degraded:      rt.state.Degraded,
		RecordWritten: rt.recordWritten,
		PersistFailed: rt.persistFailed,
	}
}
