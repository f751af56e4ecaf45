package arena

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"sign-arena/internal/game"
	"sign-arena/internal/identity"
	"sign-arena/internal/store"
)

type Mode string

const (
	ModeDaily    Mode = "daily"
	ModePractice Mode = "practice"
)

// Store is the slice of persistence the coordinator needs. *store.Store
// satisfies it; tests substitute an in-memory fake.
type Store interface {
	HasPlayRecordForDate(ctx context.Context, userID, date string) (bool, error)
	GetDailyLetters(ctx context.Context, date string) ([]string, error)
	EnsureDailyLetters(ctx context.Context, date string, letters []string) ([]string, error)
	UpsertPlayRecord(ctx context.Context, rec store.PlayRecord) error
}

// Classifier is the slice of the recognition service the session loop needs.
type Classifier interface {
	ValidLength(n int) bool
	Predict(ctx context.Context, vec []float64) (string, error)
}

type Config struct {
	Alphabet        []string
	ItemSeconds     int
	TickInterval    time.Duration
	PollInterval    time.Duration
	FeedbackDelay   time.Duration
	SessionTTL      time.Duration
	FinalizeTimeout time.Duration
	DoneRetention   time.Duration
	BufferSize      int
}

func (c Config) withDefaults() Config {
	if len(c.Alphabet) == 0 {
		c.Alphabet = []string{"A", "B", "C"}
	}
	if c.ItemSeconds <= 0 {
		c.ItemSeconds = 20
	}
	if c.TickInterval <= 0 {
		c.TickInterval = time.Second
	}
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	if c.FeedbackDelay <= 0 {
		c.FeedbackDelay = 1500 * time.Millisecond
	}
	if c.SessionTTL <= 0 {
		c.SessionTTL = 2 * time.Hour
	}
	if c.FinalizeTimeout <= 0 {
		c.FinalizeTimeout = 5 * time.Second
	}
	if c.DoneRetention <= 0 {
		c.DoneRetention = 5 * time.Minute
	}
	if c.BufferSize <= 0 {
		c.BufferSize = 256
	}
	return c
}

// Coordinator owns every live session runtime. One session per user at a
// time; creating a second while the first is still playable returns the
// first instead of racing the eligibility gate.
type Coordinator struct {
	store      Store
	classifier Classifier
	cfg        Config
	now        func() time.Time

	rngMu sync.Mutex
	rng   *rand.Rand

	mu       sync.Mutex
	sessions map[string]*sessionRuntime
	byUser   map[string]string
}

func NewCoordinator(st Store, cl Classifier, cfg Config) *Coordinator {
	return &Coordinator{
		store:      st,
		classifier: cl,
		cfg:        cfg.withDefaults(),
		now:        time.Now,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		sessions:   map[string]*sessionRuntime{},
		byUser:     map[string]string{},
	}
}

func (c *Coordinator) shuffled() []string {
	c.rngMu.Lock()
	defer c.rngMu.Unlock()
	return game.ShuffledLetters(c.cfg.Alphabet, c.rng)
}

// CreateSession runs the eligibility gate and starts a session runtime.
// A refused or failed gate still yields a session, terminal in Blocked
// with the reason attached, so the client has one thing to render. The
// gate fails closed: an unreachable store blocks, it never admits.
func (c *Coordinator) CreateSession(ctx context.Context, user identity.User, mode Mode) (Snapshot, error) {
	switch mode {
	case "":
		mode = ModeDaily
	case ModeDaily, ModePractice:
	default:
		return Snapshot{}, ErrBadMode
	}

	c.mu.Lock()
	if sid, ok := c.byUser[user.ID]; ok {
		if rt := c.sessions[sid]; rt != nil && rt.playable() {
			snap := rt.snapshot()
			c.mu.Unlock()
			return snap, nil
		}
	}
	c.mu.Unlock()

	playDate := game.Today(c.now())
	state, letters := c.prepare(ctx, user, mode, playDate)

	rt := newSessionRuntime(store.NewID(), user, mode, playDate, state, c, letters)

	c.mu.Lock()
	if sid, ok := c.byUser[user.ID]; ok {
		if prev := c.sessions[sid]; prev != nil && prev.playable() {
			snap := prev.snapshot()
			c.mu.Unlock()
			rt.buffer.Close()
			return snap, nil
		}
	}
	c.sessions[rt.id] = rt
	c.byUser[user.ID] = rt.id
	c.mu.Unlock()

	rt.start()
	return rt.snapshot(), nil
}

// prepare runs the gate and fetches letters; it returns a ready state, or
// a blocked one when anything on the way refused or failed.
func (c *Coordinator) prepare(ctx context.Context, user identity.User, mode Mode, playDate string) (*game.SessionState, []string) {
	if mode == ModeDaily {
		played, err := c.store.HasPlayRecordForDate(ctx, user.ID, playDate)
		if err != nil {
			return game.BlockedSession(BlockEligibilityUnavailable), nil
		}
		if played {
			return game.BlockedSession(BlockAlreadyPlayed), nil
		}
		letters, err := c.store.GetDailyLetters(ctx, playDate)
		if errors.Is(err, store.ErrNotFound) {
			letters, err = c.store.EnsureDailyLetters(ctx, playDate, c.shuffled())
		}
		if err != nil {
			return game.BlockedSession(BlockLettersUnavailable), nil
		}
		return game.NewSession(letters, c.cfg.ItemSeconds), letters
	}
	letters := c.shuffled()
	return game.NewSession(letters, c.cfg.ItemSeconds), letters
}

func (c *Coordinator) get(sessionID, userID string) (*sessionRuntime, error) {
	c.mu.Lock()
	rt, ok := c.sessions[sessionID]
	c.mu.Unlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	if rt.user.ID != userID {
		return nil, ErrSessionForbidden
	}
	return rt, nil
}

func (c *Coordinator) State(sessionID, userID string) (Snapshot, error) {
	rt, err := c.get(sessionID, userID)
	if err != nil {
		return Snapshot{}, err
	}
	return rt.snapshot(), nil
}

// SubmitFrame stores the newest feature vector for the session; the poll
// loop picks it up on its own cadence. Frames are latest-wins, a burst of
// submissions between polls keeps only the last one.
func (c *Coordinator) SubmitFrame(sessionID, userID string, vec []float64) (Snapshot, error) {
	rt, err := c.get(sessionID, userID)
	if err != nil {
		return Snapshot{}, err
	}
	if !c.classifier.ValidLength(len(vec)) {
		return Snapshot{}, ErrBadVector
	}
	if err := rt.submitFrame(vec); err != nil {
		return Snapshot{}, err
	}
	return rt.snapshot(), nil
}

// Skip advances past the current letter without scoring.
func (c *Coordinator) Skip(sessionID, userID string) (Snapshot, error) {
	rt, err := c.get(sessionID, userID)
	if err != nil {
		return Snapshot{}, err
	}
	if err := rt.skip(); err != nil {
		return Snapshot{}, err
	}
	return rt.snapshot(), nil
}

// Events returns the session's feedback stream for SSE subscription.
func (c *Coordinator) Events(sessionID, userID string) (*EventBuffer, error) {
	rt, err := c.get(sessionID, userID)
	if err != nil {
		return nil, err
	}
	return rt.buffer, nil
}

// CloseSession abandons a session. Nothing is persisted; an abandoned
// daily attempt simply never happened and the user may start over.
func (c *Coordinator) CloseSession(sessionID, userID string) error {
	rt, err := c.get(sessionID, userID)
	if err != nil {
		return err
	}
	rt.abandon()
	c.remove(rt)
	return nil
}

func (c *Coordinator) remove(rt *sessionRuntime) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, rt.id)
	if c.byUser[rt.user.ID] == rt.id {
		delete(c.byUser, rt.user.ID)
	}
}

// SessionCount reports live runtimes, for metrics.
func (c *Coordinator) SessionCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sessions)
}
