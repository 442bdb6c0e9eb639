package progress

import (
	"errors"
	"math"
)

var ErrUnknownTestID = errors.New("unknown test id")

// TestDef is the read-only catalog view the store needs: which tests exist
// and how many questions each currently has.
type TestDef struct {
	ID            string
	QuestionCount int
}

// TestProgress is the durable per-test record. Completed always equals
// len(CorrectAnswers); Attempted always equals len(AttemptedQuestions).
// Incorrect attempts are tracked separately from credit so completion and
// accuracy can be reported as distinct ratios.
type TestProgress struct {
	Completed          int          `json:"completed"`
	Attempted          int          `json:"attempted"`
	Total              int          `json:"total"`
	CorrectAnswers     map[int]bool `json:"correctAnswers"`
	AttemptedQuestions map[int]bool `json:"attemptedQuestions,omitempty"`
}

// Snapshot maps test ID to its progress record. One snapshot per user; this
// is the unit exchanged with persistence. Transition functions never mutate
// their input, the returned snapshot is the new authoritative value.
type Snapshot map[string]TestProgress

// Summary aggregates a snapshot across all tests.
type Summary struct {
	CompletedQuestions int `json:"completedQuestions"`
	AttemptedQuestions int `json:"attemptedQuestions"`
	TotalQuestions     int `json:"totalQuestions"`
	Percentage         int `json:"percentage"`
	Accuracy           int `json:"accuracy"`
}

func copyProgress(tp TestProgress) TestProgress {
	correct := make(map[int]bool, len(tp.CorrectAnswers))
	for k, v := range tp.CorrectAnswers {
		correct[k] = v
	}
	attempted := make(map[int]bool, len(tp.AttemptedQuestions))
	for k, v := range tp.AttemptedQuestions {
		attempted[k] = v
	}
	tp.CorrectAnswers = correct
	tp.AttemptedQuestions = attempted
	return tp
}

// Clone returns a deep copy, safe to hand to readers while the original
// keeps evolving.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for id, tp := range s {
		out[id] = copyProgress(tp)
	}
	return out
}

// InitDefault builds the zeroed snapshot for the current catalog. Used at
// first login and as the base for merging remote state.
func InitDefault(defs []TestDef) Snapshot {
	s := make(Snapshot, len(defs))
	for _, def := range defs {
		s[def.ID] = TestProgress{
			Total:              def.QuestionCount,
			CorrectAnswers:     map[int]bool{},
			AttemptedQuestions: map[int]bool{},
		}
	}
	return s
}

// MergeRemote reconciles a freshly loaded remote snapshot with the catalog
// default. Per test the remote record wins when present, otherwise the
// default is kept. Remote entries for tests no longer in the catalog are
// dropped. This is deliberately not a per-question merge: a remote record
// that predates a catalog change keeps its stale Total.
func MergeRemote(def, remote Snapshot) Snapshot {
	out := make(Snapshot, len(def))
	for id, tp := range def {
		if rtp, ok := remote[id]; ok {
			out[id] = copyProgress(rtp)
		} else {
			out[id] = copyProgress(tp)
		}
	}
	return out
}

// RecordAnswer returns a new snapshot with question questionIndex of testID
// marked. A correct answer grants credit; an incorrect one revokes any
// previously granted credit, so retaking a question re-grades it. The
// attempted set only ever grows.
func RecordAnswer(s Snapshot, testID string, questionIndex int, correct bool) (Snapshot, error) {
	tp, ok := s[testID]
	if !ok {
		return nil, ErrUnknownTestID
	}

	out := s.Clone()
	tp = out[testID]
	if tp.AttemptedQuestions == nil {
		tp.AttemptedQuestions = map[int]bool{}
	}
	if tp.CorrectAnswers == nil {
		tp.CorrectAnswers = map[int]bool{}
	}

	tp.AttemptedQuestions[questionIndex] = true
	if correct {
		tp.CorrectAnswers[questionIndex] = true
	} else {
		delete(tp.CorrectAnswers, questionIndex)
	}
	tp.Completed = len(tp.CorrectAnswers)
	tp.Attempted = len(tp.AttemptedQuestions)

	out[testID] = tp
	return out, nil
}

func roundPercent(part, whole int) int {
	if whole == 0 {
		return 0
	}
	return int(math.Round(100 * float64(part) / float64(whole)))
}

// Aggregate computes the cross-test totals. Percentage is completion
// (correct over total); Accuracy is correct over attempted. The two only
// coincide when no wrong attempt was ever recorded.
func Aggregate(s Snapshot) Summary {
	var sum Summary
	for _, tp := range s {
		sum.CompletedQuestions += tp.Completed
		sum.AttemptedQuestions += tp.Attempted
		sum.TotalQuestions += tp.Total
	}
	sum.Percentage = roundPercent(sum.CompletedQuestions, sum.TotalQuestions)
	sum.Accuracy = roundPercent(sum.CompletedQuestions, sum.AttemptedQuestions)
	return sum
}

// ResetAll discards all progress. Retention of the prior state, if wanted,
// is the persistence layer's concern.
func ResetAll(defs []TestDef) Snapshot {
	return InitDefault(defs)
}
