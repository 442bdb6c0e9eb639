package grading_test

import (
	"errors"
	"testing"

	"nmt_prep_backend/internal/grading"
)

func singleQuestion() grading.Question {
	return grading.Question{
		Kind:          grading.Single,
		Options:       []string{"A", "B", "C", "D"},
		CorrectSingle: 2,
	}
}

func matchingQuestion() grading.Question {
	return grading.Question{
		Kind:           grading.Matching,
		Left:           []string{"1", "2", "3", "4"},
		Right:          []string{"А", "Б", "В", "Г", "Д"},
		CorrectMapping: map[int]int{0: 3, 1: 1, 2: 4, 3: 2},
	}
}

func TestEvaluate_SingleEveryOption(t *testing.T) {
	q := singleQuestion()

	for i := range q.Options {
		got, err := grading.Evaluate(q, grading.Answer{0: i})
		if err != nil {
			t.Fatalf("unexpected error for option %d: %v", i, err)
		}
		want := i == q.CorrectSingle
		if got != want {
			t.Errorf("option %d: got %v, want %v", i, got, want)
		}
	}
}

func TestEvaluate_SingleEmptyAnswer(t *testing.T) {
	correct, err := grading.Evaluate(singleQuestion(), grading.Answer{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if correct {
		t.Error("empty answer must grade false")
	}

	correct, err = grading.Evaluate(singleQuestion(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if correct {
		t.Error("nil answer must grade false")
	}
}

func TestEvaluate_MatchingFullKey(t *testing.T) {
	q := matchingQuestion()

	answer := grading.Answer{}
	for row, col := range q.CorrectMapping {
		answer[row] = col
	}

	correct, err := grading.Evaluate(q, answer)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !correct {
		t.Error("submitting the exact key must grade true")
	}
}

func TestEvaluate_MatchingPartialSubset(t *testing.T) {
	q := matchingQuestion()

	// Correct values for three of four rows; still false as a whole.
	answer := grading.Answer{0: 3, 1: 1, 3: 2}
	correct, err := grading.Evaluate(q, answer)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if correct {
		t.Error("partial answer must grade false even when every present row is correct")
	}
}

func TestEvaluate_MatchingOneRowSwapped(t *testing.T) {
	q := matchingQuestion()

	answer := grading.Answer{0: 3, 1: 1, 2: 2, 3: 2}
	correct, err := grading.Evaluate(q, answer)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if correct {
		t.Error("answer with a wrong row must grade false")
	}

	rows, err := grading.RowCorrectness(q, answer)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := map[int]bool{0: true, 1: true, 2: false, 3: true}
	for row, w := range want {
		if rows[row] != w {
			t.Errorf("row %d: got %v, want %v", row, rows[row], w)
		}
	}
}

func TestRowCorrectness_OnlyAnsweredRows(t *testing.T) {
	q := matchingQuestion()

	rows, err := grading.RowCorrectness(q, grading.Answer{1: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected breakdown for 1 row, got %d", len(rows))
	}
	if !rows[1] {
		t.Error("row 1 with the correct value must report true")
	}
}

func TestEvaluate_SequenceUsesMapping(t *testing.T) {
	q := grading.Question{
		Kind:           grading.Sequence,
		Left:           []string{"Руїна", "Паліївщина", "Коліївщина", "Хмельниччина"},
		CorrectMapping: map[int]int{0: 1, 1: 2, 2: 3, 3: 0},
	}

	correct, err := grading.Evaluate(q, grading.Answer{0: 1, 1: 2, 2: 3, 3: 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !correct {
		t.Error("correct ordering must grade true")
	}

	correct, err = grading.Evaluate(q, grading.Answer{0: 0, 1: 2, 2: 3, 3: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if correct {
		t.Error("wrong ordering must grade false")
	}
}

func TestEvaluate_UnknownKind(t *testing.T) {
	q := grading.Question{Kind: "essay"}
	if _, err := grading.Evaluate(q, grading.Answer{0: 0}); !errors.Is(err, grading.ErrUnsupportedKind) {
		t.Errorf("got %v, want ErrUnsupportedKind", err)
	}
}

func TestEvaluate_MalformedQuestions(t *testing.T) {
	cases := map[string]grading.Question{
		"single without options": {Kind: grading.Single, CorrectSingle: 0},
		"single key out of range": {
			Kind:          grading.Single,
			Options:       []string{"A", "B"},
			CorrectSingle: 5,
		},
		"matching key row out of range": {
			Kind:           grading.Matching,
			Left:           []string{"a", "b"},
			CorrectMapping: map[int]int{0: 0, 7: 1},
		},
		"matching key column out of range": {
			Kind:           grading.Matching,
			Left:           []string{"a", "b"},
			Right:          []string{"x", "y"},
			CorrectMapping: map[int]int{0: 0, 1: 9},
		},
		"matching incomplete key": {
			Kind:           grading.Matching,
			Left:           []string{"a", "b", "c"},
			CorrectMapping: map[int]int{0: 0},
		},
	}

	for name, q := range cases {
		if _, err := grading.Evaluate(q, grading.Answer{0: 0}); !errors.Is(err, grading.ErrMalformedQuestion) {
			t.Errorf("%s: got %v, want ErrMalformedQuestion", name, err)
		}
	}
}

func TestEvaluate_SequencePlaceholderRightBound(t *testing.T) {
	// Sequence questions author no right labels; positions are bounded by
	// the number of left items.
	q := grading.Question{
		Kind:           grading.Sequence,
		Left:           []string{"a", "b"},
		CorrectMapping: map[int]int{0: 0, 1: 3},
	}
	if _, err := grading.Evaluate(q, grading.Answer{0: 0, 1: 1}); !errors.Is(err, grading.ErrMalformedQuestion) {
		t.Errorf("got %v, want ErrMalformedQuestion", err)
	}
}

func TestEvaluate_Idempotent(t *testing.T) {
	q := matchingQuestion()
	answer := grading.Answer{0: 3, 1: 1, 2: 4, 3: 2}

	first, err := grading.Evaluate(q, answer)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := grading.Evaluate(q, answer)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != second {
		t.Error("repeated evaluation must yield identical results")
	}
}
