package arena

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"sign-arena/internal/game"
	"sign-arena/internal/identity"
	"sign-arena/internal/store"
)

type fakeStore struct {
	mu              sync.Mutex
	records         map[string]store.PlayRecord
	letters         map[string][]string
	failEligibility bool
	failLetters     bool
	failUpsert      bool
	upserts         int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		records: map[string]store.PlayRecord{},
		letters: map[string][]string{},
	}
}

func (f *fakeStore) HasPlayRecordForDate(_ context.Context, userID, date string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failEligibility {
		return false, errors.New("store down")
	}
	_, ok := f.records[userID+"|"+date]
	return ok, nil
}

func (f *fakeStore) GetDailyLetters(_ context.Context, date string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failLetters {
		return nil, errors.New("store down")
	}
	letters, ok := f.letters[date]
	if !ok {
		return nil, store.ErrNotFound
	}
	return letters, nil
}

func (f *fakeStore) EnsureDailyLetters(_ context.Context, date string, letters []string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failLetters {
		return nil, errors.New("store down")
	}
	if existing, ok := f.letters[date]; ok {
		return existing, nil
	}
	f.letters[date] = letters
	return letters, nil
}

func (f *fakeStore) UpsertPlayRecord(_ context.Context, rec store.PlayRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts++
	if f.failUpsert {
		return errors.New("store down")
	}
	f.records[rec.UserID+"|"+rec.PlayDate] = rec
	return nil
}

func (f *fakeStore) record(userID, date string) (store.PlayRecord, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[userID+"|"+date]
	return rec, ok
}

func (f *fakeStore) upsertCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.upserts
}

type fakeClassifier struct {
	mu    sync.Mutex
	label string
	err   error
}

func (f *fakeClassifier) ValidLength(n int) bool { return n == 3 }

func (f *fakeClassifier) Predict(context.Context, []float64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.label, f.err
}

func (f *fakeClassifier) set(label string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.label = label
	f.err = err
}

func fastConfig() Config {
	return Config{
		Alphabet:      []string{"A", "B"},
		ItemSeconds:   1000,
		TickInterval:  time.Millisecond,
		PollInterval:  time.Millisecond,
		FeedbackDelay: 2 * time.Millisecond,
	}
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal(msg)
}

func today() string { return game.Today(time.Now()) }

var player = identity.User{ID: "u1", Email: "u1@example.com"}

func TestDailySessionMatchesAndPersists(t *testing.T) {
	fs := newFakeStore()
	fs.letters[today()] = []string{"A", "B"}
	fc := &fakeClassifier{}
	c := NewCoordinator(fs, fc, fastConfig())

	snap, err := c.CreateSession(context.Background(), player, ModeDaily)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if snap.Phase != game.PhaseActive {
		t.Fatalf("phase = %s, want active", snap.Phase)
	}
	if snap.Target != "A" {
		t.Fatalf("target = %q, want A", snap.Target)
	}

	fc.set("a", nil)
	if _, err := c.SubmitFrame(snap.SessionID, player.ID, []float64{1, 2, 3}); err != nil {
		t.Fatalf("submit frame: %v", err)
	}

	waitFor(t, func() bool {
		s, err := c.State(snap.SessionID, player.ID)
		return err == nil && s.Score == 1 && s.CurrentIndex == 1
	}, "never advanced past the first letter")

	fc.set("B", nil)
	waitFor(t, func() bool {
		s, err := c.State(snap.SessionID, player.ID)
		return err == nil && s.Phase == game.PhaseFinished && s.Score == 2 && s.RecordWritten
	}, "session never finished with both letters scored")

	rec, ok := fs.record(player.ID, today())
	if !ok {
		t.Fatal("no play record written")
	}
	if rec.Score != 2 || rec.Email != player.Email {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestMatchThenTimeoutPersistsPartialScore(t *testing.T) {
	fs := newFakeStore()
	fs.letters[today()] = []string{"A", "B"}
	fc := &fakeClassifier{}
	fc.set("a", nil)
	cfg := fastConfig()
	cfg.ItemSeconds = 200
	c := NewCoordinator(fs, fc, cfg)

	snap, err := c.CreateSession(context.Background(), player, ModeDaily)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := c.SubmitFrame(snap.SessionID, player.ID, []float64{1, 2, 3}); err != nil {
		t.Fatalf("submit frame: %v", err)
	}

	// A matches immediately; "a" never matches B, which runs out its budget.
	waitFor(t, func() bool {
		s, err := c.State(snap.SessionID, player.ID)
		return err == nil && s.Phase == game.PhaseFinished
	}, "session never finished")

	rec, ok := fs.record(player.ID, today())
	if !ok {
		t.Fatal("no play record written")
	}
	if rec.Score != 1 {
		t.Fatalf("score = %d, want 1", rec.Score)
	}
	if rec.ElapsedSeconds < 200 {
		t.Fatalf("elapsed = %d, want at least the second letter's full budget", rec.ElapsedSeconds)
	}
}

func TestTimeoutFinishesWithoutScore(t *testing.T) {
	fs := newFakeStore()
	fs.letters[today()] = []string{"A", "B"}
	cfg := fastConfig()
	cfg.ItemSeconds = 1
	c := NewCoordinator(fs, &fakeClassifier{}, cfg)

	snap, err := c.CreateSession(context.Background(), player, ModeDaily)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	waitFor(t, func() bool {
		_, ok := fs.record(player.ID, today())
		return ok
	}, "timed-out session never persisted")

	rec, _ := fs.record(player.ID, today())
	if rec.Score != 0 {
		t.Fatalf("score = %d, want 0", rec.Score)
	}
	if rec.ElapsedSeconds != 2 {
		t.Fatalf("elapsed = %d, want 2", rec.ElapsedSeconds)
	}
	s, err := c.State(snap.SessionID, player.ID)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if s.Phase != game.PhaseFinished {
		t.Fatalf("phase = %s, want finished", s.Phase)
	}
}

func TestSecondDailyAttemptIsBlocked(t *testing.T) {
	fs := newFakeStore()
	fs.records[player.ID+"|"+today()] = store.PlayRecord{UserID: player.ID, PlayDate: today()}
	c := NewCoordinator(fs, &fakeClassifier{}, fastConfig())

	snap, err := c.CreateSession(context.Background(), player, ModeDaily)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if snap.Phase != game.PhaseBlocked || snap.BlockReason != BlockAlreadyPlayed {
		t.Fatalf("got phase=%s reason=%q, want blocked/already_played", snap.Phase, snap.BlockReason)
	}
}

func TestEligibilityFailureBlocksClosed(t *testing.T) {
	fs := newFakeStore()
	fs.failEligibility = true
	c := NewCoordinator(fs, &fakeClassifier{}, fastConfig())

	snap, err := c.CreateSession(context.Background(), player, ModeDaily)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if snap.Phase != game.PhaseBlocked || snap.BlockReason != BlockEligibilityUnavailable {
		t.Fatalf("got phase=%s reason=%q, want blocked/eligibility_unavailable", snap.Phase, snap.BlockReason)
	}
	if fs.upsertCount() != 0 {
		t.Fatal("blocked session must never write a record")
	}
}

func TestLettersFailureBlocks(t *testing.T) {
	fs := newFakeStore()
	fs.failLetters = true
	c := NewCoordinator(fs, &fakeClassifier{}, fastConfig())

	snap, err := c.CreateSession(context.Background(), player, ModeDaily)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if snap.Phase != game.PhaseBlocked || snap.BlockReason != BlockLettersUnavailable {
		t.Fatalf("got phase=%s reason=%q, want blocked/letters_unavailable", snap.Phase, snap.BlockReason)
	}
}

func TestPracticeModeSkipsGateAndPersistence(t *testing.T) {
	fs := newFakeStore()
	fs.failEligibility = true
	cfg := fastConfig()
	cfg.ItemSeconds = 1
	c := NewCoordinator(fs, &fakeClassifier{}, cfg)

	snap, err := c.CreateSession(context.Background(), player, ModePractice)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if snap.Phase != game.PhaseActive {
		t.Fatalf("phase = %s, want active", snap.Phase)
	}

	waitFor(t, func() bool {
		s, err := c.State(snap.SessionID, player.ID)
		return err == nil && s.Phase == game.PhaseFinished
	}, "practice session never finished")

	if fs.upsertCount() != 0 {
		t.Fatal("practice session must never write a record")
	}
}

func TestCreateReturnsExistingPlayableSession(t *testing.T) {
	fs := newFakeStore()
	c := NewCoordinator(fs, &fakeClassifier{}, fastConfig())

	first, err := c.CreateSession(context.Background(), player, ModeDaily)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second, err := c.CreateSession(context.Background(), player, ModeDaily)
	if err != nil {
		t.Fatalf("create again: %v", err)
	}
	if first.SessionID != second.SessionID {
		t.Fatalf("got a second session %s alongside %s", second.SessionID, first.SessionID)
	}
}

func TestSkipAdvancesWithoutScoring(t *testing.T) {
	fs := newFakeStore()
	fs.letters[today()] = []string{"A", "B"}
	c := NewCoordinator(fs, &fakeClassifier{}, fastConfig())

	snap, err := c.CreateSession(context.Background(), player, ModeDaily)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	s, err := c.Skip(snap.SessionID, player.ID)
	if err != nil {
		t.Fatalf("skip: %v", err)
	}
	if s.CurrentIndex != 1 || s.Score != 0 {
		t.Fatalf("after skip index=%d score=%d, want 1/0", s.CurrentIndex, s.Score)
	}
	if _, err := c.Skip(snap.SessionID, player.ID); err != nil {
		t.Fatalf("second skip: %v", err)
	}

	waitFor(t, func() bool {
		s, err := c.State(snap.SessionID, player.ID)
		return err == nil && s.Phase == game.PhaseFinished && s.RecordWritten
	}, "skipped-out session never finished")

	rec, _ := fs.record(player.ID, today())
	if rec.Score != 0 {
		t.Fatalf("score = %d, want 0", rec.Score)
	}
}

func TestSubmitFrameRejectsWrongLength(t *testing.T) {
	fs := newFakeStore()
	c := NewCoordinator(fs, &fakeClassifier{}, fastConfig())

	snap, err := c.CreateSession(context.Background(), player, ModeDaily)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := c.SubmitFrame(snap.SessionID, player.ID, []float64{1, 2}); !errors.Is(err, ErrBadVector) {
		t.Fatalf("expected ErrBadVector, got %v", err)
	}
}

func TestRepeatedPollFailuresFlagDegraded(t *testing.T) {
	fs := newFakeStore()
	fs.letters[today()] = []string{"A", "B"}
	fc := &fakeClassifier{}
	fc.set("", errors.New("classifier down"))
	c := NewCoordinator(fs, fc, fastConfig())

	snap, err := c.CreateSession(context.Background(), player, ModeDaily)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := c.SubmitFrame(snap.SessionID, player.ID, []float64{1, 2, 3}); err != nil {
		t.Fatalf("submit frame: %v", err)
	}

	waitFor(t, func() bool {
		s, err := c.State(snap.SessionID, player.ID)
		return err == nil && s.Degraded
	}, "degraded indicator never flipped")

	s, _ := c.State(snap.SessionID, player.ID)
	if s.Score != 0 {
		t.Fatalf("score = %d, want 0 while classifier is down", s.Score)
	}
	if s.Phase != game.PhaseActive {
		t.Fatalf("phase = %s, degraded must not end the session", s.Phase)
	}

	fc.set("A", nil)
	waitFor(t, func() bool {
		s, err := c.State(snap.SessionID, player.ID)
		return err == nil && !s.Degraded && s.Score == 1
	}, "recovery never cleared the degraded indicator")
}

func TestPersistFailureStillFinishes(t *testing.T) {
	fs := newFakeStore()
	fs.failUpsert = true
	cfg := fastConfig()
	cfg.ItemSeconds = 1
	c := NewCoordinator(fs, &fakeClassifier{}, cfg)

	snap, err := c.CreateSession(context.Background(), player, ModeDaily)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	waitFor(t, func() bool {
		s, err := c.State(snap.SessionID, player.ID)
		return err == nil && s.Phase == game.PhaseFinished
	}, "session never finished")

	s, _ := c.State(snap.SessionID, player.ID)
	if s.RecordWritten || !s.PersistFailed {
		t.Fatalf("got written=%v persistFailed=%v, want false/true", s.RecordWritten, s.PersistFailed)
	}
}

func TestCloseSessionAbandons(t *testing.T) {
	fs := newFakeStore()
	c := NewCoordinator(fs, &fakeClassifier{}, fastConfig())

	snap, err := c.CreateSession(context.Background(), player, ModeDaily)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := c.CloseSession(snap.SessionID, player.ID); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := c.State(snap.SessionID, player.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if fs.upsertCount() != 0 {
		t.Fatal("abandoned session must never write a record")
	}
}

func TestSweepEvictsDoneSessions(t *testing.T) {
	fs := newFakeStore()
	fs.records[player.ID+"|"+today()] = store.PlayRecord{UserID: player.ID, PlayDate: today()}
	cfg := fastConfig()
	cfg.DoneRetention = time.Millisecond
	c := NewCoordinator(fs, &fakeClassifier{}, cfg)

	snap, err := c.CreateSession(context.Background(), player, ModeDaily)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if snap.Phase != game.PhaseBlocked {
		t.Fatalf("phase = %s, want blocked", snap.Phase)
	}

	time.Sleep(5 * time.Millisecond)
	c.sweep()
	if _, err := c.State(snap.SessionID, player.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected eviction, got %v", err)
	}
	if c.SessionCount() != 0 {
		t.Fatalf("session count = %d, want 0", c.SessionCount())
	}
}

func TestStateRejectsOtherUsers(t *testing.T) {
	fs := newFakeStore()
	c := NewCoordinator(fs, &fakeClassifier{}, fastConfig())

	snap, err := c.CreateSession(context.Background(), player, ModeDaily)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := c.State(snap.SessionID, "someone-else"); !errors.Is(err, ErrSessionForbidden) {
		t.Fatalf("expected ErrSessionForbidden, got %v", err)
	}
}

func TestCreateRejectsUnknownMode(t *testing.T) {
	c := NewCoordinator(newFakeStore(), &fakeClassifier{}, fastConfig())
	if _, err := c.CreateSession(context.Background(), player, Mode("ranked")); !errors.Is(err, ErrBadMode) {
		t.Fatalf("expected ErrBadMode, got %v", err)
	}
}
