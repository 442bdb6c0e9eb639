package service

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"nmt_prep_backend/internal/config"
	"nmt_prep_backend/internal/model"
	"nmt_prep_backend/internal/progress"
	"nmt_prep_backend/internal/util"

	"gorm.io/gorm"
)

type fakeStore struct {
	mu       sync.Mutex
	row      *model.UserProgress
	loadErr  error
	saveErr  error
	loadGate chan struct{}
	saveGate chan struct{}
	saves    int
	inFlight int
	maxSaves int
}

func (f *fakeStore) Load(userID uint) (*model.UserProgress, error) {
	if f.loadGate != nil {
		<-f.loadGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	if f.row == nil {
		return nil, gorm.ErrRecordNotFound
	}
	row := *f.row
	return &row, nil
}

func (f *fakeStore) Save(userID uint, data json.RawMessage, version time.Time) error {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.maxSaves {
		f.maxSaves = f.inFlight
	}
	gate := f.saveGate
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight--
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saves++
	f.row = &model.UserProgress{
		UserID:       userID,
		ProgressData: data,
		UpdatedAt:    version,
	}
	return nil
}

func (f *fakeStore) saveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saves
}

func (f *fakeStore) setSaveErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saveErr = err
}

func (f *fakeStore) stored(t *testing.T) progress.Snapshot {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.row == nil {
		t.Fatal("nothing stored")
	}
	var s progress.Snapshot
	if err := json.Unmarshal(f.row.ProgressData, &s); err != nil {
		t.Fatalf("stored snapshot does not decode: %v", err)
	}
	return s
}

type fakeCatalog struct {
	defs []progress.TestDef
}

func (f *fakeCatalog) TestDefs() ([]progress.TestDef, error) {
	return f.defs, nil
}

func newTestService(store *fakeStore) *ProgressService {
	catalog := &fakeCatalog{defs: []progress.TestDef{
		{ID: "test1", QuestionCount: 4},
		{ID: "test2", QuestionCount: 10},
	}}
	cfg := &config.Config{}
	cfg.AutoSave.IntervalSeconds = 30
	return NewProgressService(store, catalog, nil, cfg)
}

// waitLoaded blocks until the background load has settled, flushes are
// refused while it is in flight.
func waitLoaded(t *testing.T, svc *ProgressService, userID uint) {
	t.Helper()
	waitFor(t, func() bool {
		sess := svc.session(userID)
		sess.mu.Lock()
		defer sess.mu.Unlock()
		return !sess.loading
	})
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func encodeSnapshot(t *testing.T, s progress.Snapshot) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return raw
}

func TestFirstVisitStartsFromCatalogDefaults(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(store)

	if err := svc.StartSession(1); err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	snap, err := svc.Snapshot(1)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(snap) != 2 {
		t.Fatalf("expected 2 tests, got %d", len(snap))
	}
	if tp := snap["test1"]; tp.Completed != 0 || tp.Total != 4 {
		t.Errorf("test1 = %+v, want zeroed with total 4", tp)
	}
}

func TestStartSessionMergesStoredSnapshot(t *testing.T) {
	remote := progress.Snapshot{
		"test1": {
			Completed:          2,
			Attempted:          2,
			Total:              4,
			CorrectAnswers:     map[int]bool{0: true, 1: true},
			AttemptedQuestions: map[int]bool{0: true, 1: true},
		},
	}
	store := &fakeStore{row: &model.UserProgress{
		UserID:       1,
		ProgressData: encodeSnapshot(t, remote),
		UpdatedAt:    time.Now().Add(-time.Hour),
	}}
	svc := newTestService(store)

	if err := svc.StartSession(1); err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	waitFor(t, func() bool {
		snap, _ := svc.Snapshot(1)
		return snap["test1"].Completed == 2
	})

	snap, _ := svc.Snapshot(1)
	if tp := snap["test2"]; tp.Total != 10 || tp.Completed != 0 {
		t.Errorf("test2 should keep catalog defaults, got %+v", tp)
	}
}

func TestAnswersDuringLoadSurviveMerge(t *testing.T) {
	remote := progress.Snapshot{
		"test1": {
			Completed:          1,
			Attempted:          1,
			Total:              4,
			CorrectAnswers:     map[int]bool{3: true},
			AttemptedQuestions: map[int]bool{3: true},
		},
	}
	gate := make(chan struct{})
	store := &fakeStore{
		row: &model.UserProgress{
			UserID:       1,
			ProgressData: encodeSnapshot(t, remote),
			UpdatedAt:    time.Now().Add(-time.Hour),
		},
		loadGate: gate,
	}
	svc := newTestService(store)

	if err := svc.StartSession(1); err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	// Answered while the load is still in flight.
	if err := svc.RecordAnswer(1, "test1", 0, true); err != nil {
		t.Fatalf("RecordAnswer: %v", err)
	}

	close(gate)

	waitFor(t, func() bool {
		snap, _ := svc.Snapshot(1)
		return snap["test1"].CorrectAnswers[3]
	})

	snap, _ := svc.Snapshot(1)
	tp := snap["test1"]
	if !tp.CorrectAnswers[0] {
		t.Error("answer recorded during load was lost by the merge")
	}
	if !tp.CorrectAnswers[3] {
		t.Error("remote answer missing after merge")
	}
	if tp.Completed != 2 {
		t.Errorf("Completed = %d, want 2", tp.Completed)
	}
}

func TestFlushPersistsOnlyWhenDirty(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(store)

	if err := svc.StartSession(1); err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	waitLoaded(t, svc, 1)

	if err := svc.Flush(1, "manual"); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if store.saveCount() != 0 {
		t.Fatal("clean snapshot should not be written")
	}

	if err := svc.RecordAnswer(1, "test1", 0, true); err != nil {
		t.Fatalf("RecordAnswer: %v", err)
	}
	if err := svc.Flush(1, "manual"); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if store.saveCount() != 1 {
		t.Fatalf("saves = %d, want 1", store.saveCount())
	}
	if got := svc.Status(1); got != SaveStatusSaved {
		t.Errorf("status = %q, want %q", got, SaveStatusSaved)
	}

	stored := store.stored(t)
	if !stored["test1"].CorrectAnswers[0] {
		t.Error("stored snapshot missing the recorded answer")
	}

	// No changes since the last flush.
	if err := svc.Flush(1, "manual"); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if store.saveCount() != 1 {
		t.Error("clean snapshot was written again")
	}
}

func TestStaleSaveDropsLocalDirtyState(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(store)

	if err := svc.StartSession(1); err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	waitLoaded(t, svc, 1)
	if err := svc.RecordAnswer(1, "test1", 0, true); err != nil {
		t.Fatalf("RecordAnswer: %v", err)
	}

	store.setSaveErr(util.ErrStaleSnapshot)
	if err := svc.Flush(1, "manual"); err != nil {
		t.Fatalf("stale refusal should not surface as an error, got %v", err)
	}

	store.setSaveErr(nil)
	if err := svc.Flush(1, "manual"); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if store.saveCount() != 0 {
		t.Error("dropped snapshot was written anyway")
	}
}

func TestTransientSaveErrorKeepsSnapshotDirty(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(store)

	if err := svc.StartSession(1); err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	waitLoaded(t, svc, 1)
	if err := svc.RecordAnswer(1, "test1", 0, true); err != nil {
		t.Fatalf("RecordAnswer: %v", err)
	}

	store.setSaveErr(errors.New("connection refused"))
	if err := svc.Flush(1, "interval"); err == nil {
		t.Fatal("expected the transient error to surface")
	}
	if got := svc.Status(1); got != SaveStatusError {
		t.Errorf("status = %q, want %q", got, SaveStatusError)
	}

	// Next tick succeeds and writes the still-dirty snapshot.
	store.setSaveErr(nil)
	if err := svc.Flush(1, "interval"); err != nil {
		t.Fatalf("Flush after recovery: %v", err)
	}
	if store.saveCount() != 1 {
		t.Fatalf("saves = %d, want 1", store.saveCount())
	}
	if !store.stored(t)["test1"].CorrectAnswers[0] {
		t.Error("retried save lost the recorded answer")
	}
}

func TestOnlyOneSaveInFlightPerUser(t *testing.T) {
	gate := make(chan struct{})
	store := &fakeStore{saveGate: gate}
	svc := newTestService(store)

	if err := svc.StartSession(1); err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	waitLoaded(t, svc, 1)
	if err := svc.RecordAnswer(1, "test1", 0, true); err != nil {
		t.Fatalf("RecordAnswer: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- svc.Flush(1, "interval") }()

	waitFor(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return store.inFlight == 1
	})

	// Dirty again while the first save is still running.
	if err := svc.RecordAnswer(1, "test1", 1, true); err != nil {
		t.Fatalf("RecordAnswer: %v", err)
	}
	if err := svc.Flush(1, "manual"); err != nil {
		t.Fatalf("Flush with save in flight: %v", err)
	}

	store.mu.Lock()
	peak := store.maxSaves
	store.mu.Unlock()
	if peak != 1 {
		t.Fatalf("concurrent saves = %d, want 1", peak)
	}

	close(gate)
	if err := <-done; err != nil {
		t.Fatalf("first flush: %v", err)
	}

	// The second answer missed the first write and flushes on the next tick.
	if err := svc.Flush(1, "interval"); err != nil {
		t.Fatalf("follow-up flush: %v", err)
	}
	if !store.stored(t)["test1"].CorrectAnswers[1] {
		t.Error("answer recorded during the save never reached storage")
	}
}

func TestResetReturnsToDefaultsAndFlushes(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(store)

	if err := svc.StartSession(1); err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	waitLoaded(t, svc, 1)
	if err := svc.RecordAnswer(1, "test1", 0, true); err != nil {
		t.Fatalf("RecordAnswer: %v", err)
	}

	snap, err := svc.Reset(1)
	if err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if tp := snap["test1"]; tp.Completed != 0 || len(tp.CorrectAnswers) != 0 {
		t.Errorf("reset snapshot still carries progress: %+v", tp)
	}

	if err := svc.Flush(1, "manual"); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if tp := store.stored(t)["test1"]; tp.Completed != 0 {
		t.Errorf("stored snapshot not reset: %+v", tp)
	}
}

func TestEndSessionFlushesAndDiscards(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(store)

	if err := svc.StartSession(1); err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	waitLoaded(t, svc, 1)
	if err := svc.RecordAnswer(1, "test2", 5, true); err != nil {
		t.Fatalf("RecordAnswer: %v", err)
	}

	if err := svc.EndSession(1); err != nil {
		t.Fatalf("EndSession: %v", err)
	}
	if store.saveCount() != 1 {
		t.Fatalf("saves = %d, want 1", store.saveCount())
	}

	// A later session starts clean and picks the stored row back up.
	if err := svc.StartSession(1); err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	waitFor(t, func() bool {
		snap, _ := svc.Snapshot(1)
		return snap["test2"].CorrectAnswers[5]
	})
}
