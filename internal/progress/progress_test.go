package progress_test

import (
	"errors"
	"testing"

	"nmt_prep_backend/internal/progress"
)

func defs() []progress.TestDef {
	return []progress.TestDef{
		{ID: "test1", QuestionCount: 10},
		{ID: "test2", QuestionCount: 8},
		{ID: "test3", QuestionCount: 12},
	}
}

func TestInitDefault(t *testing.T) {
	s := progress.InitDefault(defs())

	if len(s) != 3 {
		t.Fatalf("expected 3 tests, got %d", len(s))
	}
	for id, tp := range s {
		if tp.Completed != 0 || tp.Attempted != 0 {
			t.Errorf("%s: expected zeroed counters, got %+v", id, tp)
		}
		if len(tp.CorrectAnswers) != 0 {
			t.Errorf("%s: expected empty correct answers", id)
		}
	}
	if s["test2"].Total != 8 {
		t.Errorf("expected total 8 for test2, got %d", s["test2"].Total)
	}
}

func TestRecordAnswer_GrantsCredit(t *testing.T) {
	s := progress.InitDefault(defs())

	s2, err := progress.RecordAnswer(s, "test1", 3, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !s2["test1"].CorrectAnswers[3] {
		t.Error("question 3 should be marked correct")
	}
	if s2["test1"].Completed != 1 {
		t.Errorf("completed = %d, want 1", s2["test1"].Completed)
	}
	if s2["test1"].Attempted != 1 {
		t.Errorf("attempted = %d, want 1", s2["test1"].Attempted)
	}

	// Original snapshot untouched.
	if s["test1"].Completed != 0 || len(s["test1"].CorrectAnswers) != 0 {
		t.Error("input snapshot must not be mutated")
	}
}

func TestRecordAnswer_RevokesCreditOnRetry(t *testing.T) {
	s := progress.InitDefault(defs())

	s, err := progress.RecordAnswer(s, "test1", 5, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	afterCorrect := s["test1"].Completed

	s, err = progress.RecordAnswer(s, "test1", 5, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, present := s["test1"].CorrectAnswers[5]; present {
		t.Error("question 5 must be absent from correct answers after failed retry")
	}
	if s["test1"].Completed != afterCorrect-1 {
		t.Errorf("completed = %d, want %d", s["test1"].Completed, afterCorrect-1)
	}
	// The wrong retry still counts as attempted.
	if s["test1"].Attempted != 1 {
		t.Errorf("attempted = %d, want 1", s["test1"].Attempted)
	}
}

func TestRecordAnswer_UnknownTestID(t *testing.T) {
	s := progress.InitDefault(defs())

	out, err := progress.RecordAnswer(s, "test99", 0, true)
	if !errors.Is(err, progress.ErrUnknownTestID) {
		t.Errorf("got %v, want ErrUnknownTestID", err)
	}
	if out != nil {
		t.Error("failed call must not return a snapshot")
	}
	if len(s["test1"].CorrectAnswers) != 0 {
		t.Error("snapshot must be unchanged after failed call")
	}
}

func TestRecordAnswer_CompletedMatchesMapSize(t *testing.T) {
	s := progress.InitDefault(defs())

	steps := []struct {
		test    string
		idx     int
		correct bool
	}{
		{"test1", 0, true},
		{"test1", 1, true},
		{"test2", 0, true},
		{"test1", 1, false},
		{"test1", 2, false},
		{"test3", 7, true},
		{"test3", 7, true},
	}

	var err error
	for _, step := range steps {
		s, err = progress.RecordAnswer(s, step.test, step.idx, step.correct)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for id, tp := range s {
			if tp.Completed != len(tp.CorrectAnswers) {
				t.Fatalf("%s: completed=%d but %d correct answers recorded",
					id, tp.Completed, len(tp.CorrectAnswers))
			}
			if tp.Attempted != len(tp.AttemptedQuestions) {
				t.Fatalf("%s: attempted=%d but %d attempts recorded",
					id, tp.Attempted, len(tp.AttemptedQuestions))
			}
		}
	}

	if s["test1"].Completed != 1 {
		t.Errorf("test1 completed = %d, want 1", s["test1"].Completed)
	}
	if s["test1"].Attempted != 3 {
		t.Errorf("test1 attempted = %d, want 3", s["test1"].Attempted)
	}
}

func TestMergeRemote_RemoteWinsPerTest(t *testing.T) {
	def := progress.InitDefault(defs())

	remote := progress.Snapshot{
		"test1": {
			Completed:          2,
			Attempted:          3,
			Total:              10,
			CorrectAnswers:     map[int]bool{0: true, 4: true},
			AttemptedQuestions: map[int]bool{0: true, 1: true, 4: true},
		},
		// test removed from the catalog since this snapshot was saved
		"legacy": {Completed: 5, Total: 5},
	}

	merged := progress.MergeRemote(def, remote)

	if merged["test1"].Completed != 2 {
		t.Errorf("remote record for test1 must win, got %+v", merged["test1"])
	}
	if merged["test2"].Completed != 0 || merged["test2"].Total != 8 {
		t.Errorf("default record for test2 must be kept, got %+v", merged["test2"])
	}
	if _, ok := merged["legacy"]; ok {
		t.Error("remote-only test ids must be dropped")
	}
	if len(merged) != len(def) {
		t.Errorf("merged snapshot has %d entries, want %d", len(merged), len(def))
	}
}

func TestMergeRemote_KeepsStaleRemoteTotal(t *testing.T) {
	// The catalog grew to 10 questions after the remote snapshot was saved;
	// the merge is per-test, so the stale total survives.
	def := progress.InitDefault([]progress.TestDef{{ID: "test1", QuestionCount: 10}})
	remote := progress.Snapshot{
		"test1": {Completed: 6, Total: 6, CorrectAnswers: map[int]bool{0: true}},
	}

	merged := progress.MergeRemote(def, remote)
	if merged["test1"].Total != 6 {
		t.Errorf("total = %d, want stale remote value 6", merged["test1"].Total)
	}
}

func TestAggregate(t *testing.T) {
	s := progress.InitDefault(defs())

	var err error
	for _, idx := range []int{0, 1, 2} {
		s, err = progress.RecordAnswer(s, "test1", idx, true)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	s, err = progress.RecordAnswer(s, "test2", 0, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sum := progress.Aggregate(s)

	if sum.TotalQuestions != 30 {
		t.Errorf("total = %d, want 30", sum.TotalQuestions)
	}
	if sum.CompletedQuestions != 3 {
		t.Errorf("completed = %d, want 3", sum.CompletedQuestions)
	}
	if sum.AttemptedQuestions != 4 {
		t.Errorf("attempted = %d, want 4", sum.AttemptedQuestions)
	}
	// 3/30 = 10%, 3/4 = 75%
	if sum.Percentage != 10 {
		t.Errorf("percentage = %d, want 10", sum.Percentage)
	}
	if sum.Accuracy != 75 {
		t.Errorf("accuracy = %d, want 75", sum.Accuracy)
	}
}

func TestAggregate_EmptyCatalog(t *testing.T) {
	sum := progress.Aggregate(progress.Snapshot{})
	if sum.Percentage != 0 || sum.Accuracy != 0 {
		t.Errorf("empty catalog must aggregate to zero, got %+v", sum)
	}
}

func TestResetAll(t *testing.T) {
	s := progress.InitDefault(defs())
	s, err := progress.RecordAnswer(s, "test1", 0, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reset := progress.ResetAll(defs())
	if reset["test1"].Completed != 0 || len(reset["test1"].CorrectAnswers) != 0 {
		t.Errorf("reset snapshot must be zeroed, got %+v", reset["test1"])
	}
	// resetting is a fresh snapshot, the old one is untouched
	if s["test1"].Completed != 1 {
		t.Error("previous snapshot must be unaffected by reset")
	}
}

func TestClone_Isolated(t *testing.T) {
	s := progress.InitDefault(defs())
	s, err := progress.RecordAnswer(s, "test1", 0, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	clone := s.Clone()
	clone["test1"].CorrectAnswers[9] = true

	if s["test1"].CorrectAnswers[9] {
		t.Error("mutating a clone must not leak into the original")
	}
}
