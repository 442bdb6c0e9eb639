package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"nmt_prep_backend/internal/config"
	"nmt_prep_backend/internal/model"
	"nmt_prep_backend/internal/progress"
	"nmt_prep_backend/internal/util"
	"nmt_prep_backend/pkg/logger"
	"nmt_prep_backend/pkg/monitoring"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SaveStatus mirrors the indicator shown next to the student's name.
type SaveStatus string

const (
	SaveStatusIdle   SaveStatus = "idle"
	SaveStatusSaving SaveStatus = "saving"
	SaveStatusSaved  SaveStatus = "saved"
	SaveStatusError  SaveStatus = "error"
)

// ProgressPersistence is what the coordinator needs from storage. The gorm
// repository satisfies it; tests swap in an in-memory fake.
type ProgressPersistence interface {
	Load(userID uint) (*model.UserProgress, error)
	Save(userID uint, data json.RawMessage, version time.Time) error
}

// CatalogSource supplies the published test catalog for snapshot defaults.
type CatalogSource interface {
	TestDefs() ([]progress.TestDef, error)
}

type pendingMark struct {
	testID        string
	questionIndex int
	isCorrect     bool
}

// progressSession holds one signed-in user's in-memory snapshot together
// with the flags the save loop coordinates on. All fields are guarded by mu.
type progressSession struct {
	mu       sync.Mutex
	snapshot progress.Snapshot
	version  time.Time
	dirty    bool
	saving   bool
	loading  bool
	pending  []pendingMark
	status   SaveStatus
	loadErr  error
}

// ProgressService coordinates answer recording with background
// persistence. Answers apply to the in-memory snapshot immediately; a
// periodic flush writes dirty snapshots out, at most one save in flight
// per user. Answers arriving while the initial load is still running are
// buffered and replayed on top of the merged remote snapshot.
type ProgressService struct {
	Store    ProgressPersistence
	Catalog  CatalogSource
	Redis    *redis.Client
	interval time.Duration

	mu       sync.Mutex
	sessions map[uint]*progressSession
}

func NewProgressService(store ProgressPersistence, catalog CatalogSource, rdb *redis.Client, cfg *config.Config) *ProgressService {
	return &ProgressService{
		Store:    store,
		Catalog:  catalog,
		Redis:    rdb,
		interval: time.Duration(cfg.AutoSave.IntervalSeconds) * time.Second,
		sessions: make(map[uint]*progressSession),
	}
}

func (s *ProgressService) FlushInterval() time.Duration {
	return s.interval
}

func (s *ProgressService) session(userID uint) *progressSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	if !ok {
		sess = &progressSession{status: SaveStatusIdle}
		s.sessions[userID] = sess
	}
	return sess
}

// StartSession seeds the session with catalog defaults and kicks off the
// remote load in the background. Safe to call again for an already-open
// session; the second call is a no-op.
func (s *ProgressService) StartSession(userID uint) error {
	defs, err := s.Catalog.TestDefs()
	if err != nil {
		return err
	}

	sess := s.session(userID)
	sess.mu.Lock()
	if sess.snapshot != nil || sess.loading {
		sess.mu.Unlock()
		return nil
	}
	sess.snapshot = progress.InitDefault(defs)
	sess.version = time.Now().UTC()
	sess.loading = true
	sess.mu.Unlock()

	go s.loadRemote(userID, sess, defs)
	return nil
}

func (s *ProgressService) loadRemote(userID uint, sess *progressSession, defs []progress.TestDef) {
	row, err := s.Store.Load(userID)

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.loading = false

	switch {
	case err == nil:
		remote, decodeErr := row.Snapshot()
		if decodeErr != nil {
			logger.Log.Warn("stored progress is unreadable, keeping defaults",
				zap.Uint("user_id", userID), zap.Error(decodeErr))
		} else {
			sess.snapshot = progress.MergeRemote(sess.snapshot, remote)
			sess.version = row.UpdatedAt
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		// First visit, the defaults stand.
	default:
		sess.loadErr = err
		logger.Log.Error("progress load failed",
			zap.Uint("user_id", userID), zap.Error(err))
	}

	// Replay answers that arrived while the load was in flight so the
	// merge cannot discard them.
	for _, mark := range sess.pending {
		next, err := progress.RecordAnswer(sess.snapshot, mark.testID, mark.questionIndex, mark.isCorrect)
		if err != nil {
			continue
		}
		sess.snapshot = next
		sess.dirty = true
	}
	sess.pending = nil
}

// RecordAnswer applies a graded answer to the user's snapshot. During the
// initial load it is applied locally and buffered so the merge cannot
// discard it.
func (s *ProgressService) RecordAnswer(userID uint, testID string, questionIndex int, isCorrect bool) error {
	if err := s.StartSession(userID); err != nil {
		return err
	}

	sess := s.session(userID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	next, err := progress.RecordAnswer(sess.snapshot, testID, questionIndex, isCorrect)
	if err != nil {
		return err
	}
	sess.snapshot = next
	sess.dirty = true
	if sess.loading {
		sess.pending = append(sess.pending, pendingMark{testID: testID, questionIndex: questionIndex, isCorrect: isCorrect})
	}
	return nil
}

// Snapshot returns a copy the caller may keep.
func (s *ProgressService) Snapshot(userID uint) (progress.Snapshot, error) {
	if err := s.StartSession(userID); err != nil {
		return nil, err
	}
	sess := s.session(userID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.snapshot.Clone(), nil
}

func (s *ProgressService) Summary(userID uint) (progress.Summary, error) {
	snap, err := s.Snapshot(userID)
	if err != nil {
		return progress.Summary{}, err
	}
	return progress.Aggregate(snap), nil
}

func (s *ProgressService) Status(userID uint) SaveStatus {
	sess := s.session(userID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.status
}

// Reset wipes the snapshot back to catalog defaults and marks it dirty so
// the next flush persists the empty state.
func (s *ProgressService) Reset(userID uint) (progress.Snapshot, error) {
	defs, err := s.Catalog.TestDefs()
	if err != nil {
		return nil, err
	}

	sess := s.session(userID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.snapshot = progress.ResetAll(defs)
	sess.dirty = true
	sess.pending = nil
	return sess.snapshot.Clone(), nil
}

// Flush persists the user's snapshot if it is dirty and no save is already
// running. A stale-version refusal drops the local dirty flag after
// re-reading the stored row; transient errors keep the snapshot dirty so
// the next tick retries.
func (s *ProgressService) Flush(userID uint, trigger string) error {
	sess := s.session(userID)

	sess.mu.Lock()
	if !sess.dirty || sess.saving || sess.loading || sess.snapshot == nil {
		sess.mu.Unlock()
		return nil
	}
	data, err := json.Marshal(sess.snapshot)
	if err != nil {
		sess.mu.Unlock()
		return fmt.Errorf("encode snapshot: %w", err)
	}
	version := time.Now().UTC()
	sess.saving = true
	sess.dirty = false
	sess.status = SaveStatusSaving
	sess.mu.Unlock()
	s.publishStatus(userID, SaveStatusSaving)

	saveErr := s.Store.Save(userID, data, version)

	sess.mu.Lock()
	sess.saving = false
	switch {
	case saveErr == nil:
		if version.After(sess.version) {
			sess.version = version
		}
		sess.status = SaveStatusSaved
	case errors.Is(saveErr, util.ErrStaleSnapshot):
		// Another writer stored a fresher snapshot. Drop ours and pick
		// up theirs on the next load.
		sess.status = SaveStatusSaved
		logger.Log.Warn("progress save refused as stale",
			zap.Uint("user_id", userID), zap.String("trigger", trigger))
	default:
		sess.dirty = true
		sess.status = SaveStatusError
		logger.Log.Error("progress save failed",
			zap.Uint("user_id", userID), zap.String("trigger", trigger), zap.Error(saveErr))
	}
	status := sess.status
	sess.mu.Unlock()

	s.publishStatus(userID, status)
	outcome := "ok"
	if saveErr != nil {
		outcome = "error"
		if errors.Is(saveErr, util.ErrStaleSnapshot) {
			outcome = "stale"
		}
	}
	monitoring.SnapshotSaves.WithLabelValues(trigger, outcome).Inc()

	if saveErr != nil && !errors.Is(saveErr, util.ErrStaleSnapshot) {
		return saveErr
	}
	return nil
}

// FlushAll runs on the scheduler tick and at shutdown.
func (s *ProgressService) FlushAll(trigger string) {
	s.mu.Lock()
	ids := make([]uint, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	for _, id := range ids {
		if err := s.Flush(id, trigger); err != nil {
			logger.Log.Warn("periodic flush failed", zap.Uint("user_id", id), zap.Error(err))
		}
	}
}

// EndSession flushes and discards the in-memory state, on sign-out.
func (s *ProgressService) EndSession(userID uint) error {
	err := s.Flush(userID, "signout")

	s.mu.Lock()
	delete(s.sessions, userID)
	s.mu.Unlock()
	return err
}

func (s *ProgressService) publishStatus(userID uint, status SaveStatus) {
	if s.Redis == nil {
		return
	}
	key := fmt.Sprintf("progress:status:%d", userID)
	if err := s.Redis.Set(context.Background(), key, string(status), time.Minute).Err(); err != nil {
		logger.Log.Debug("save status publish failed", zap.Error(err))
	}
}
