package grading

import "errors"

var (
	ErrUnsupportedKind   = errors.New("unsupported question kind")
	ErrMalformedQuestion = errors.New("malformed question")
)

type Kind string

const (
	Single   Kind = "single"
	Matching Kind = "matching"
	Sequence Kind = "sequence"
)

// Question is the grading view of an authored question. Exactly one of
// CorrectSingle / CorrectMapping is meaningful depending on Kind.
type Question struct {
	Kind           Kind
	Options        []string
	Left           []string
	Right          []string
	CorrectSingle  int
	CorrectMapping map[int]int
}

// Answer maps a row index to the chosen option. Single-choice answers use
// the single key 0.
type Answer map[int]int

// rightSize is the number of selectable right-side labels. When no labels
// are authored the UI generates placeholders, one per left item.
func (q Question) rightSize() int {
	if len(q.Right) > 0 {
		return len(q.Right)
	}
	return len(q.Left)
}

func (q Question) validate() error {
	switch q.Kind {
	case Single:
		if len(q.Options) == 0 {
			return ErrMalformedQuestion
		}
		if q.CorrectSingle < 0 || q.CorrectSingle >= len(q.Options) {
			return ErrMalformedQuestion
		}
	case Matching, Sequence:
		if len(q.Left) == 0 || len(q.CorrectMapping) != len(q.Left) {
			return ErrMalformedQuestion
		}
		for row, col := range q.CorrectMapping {
			if row < 0 || row >= len(q.Left) {
				return ErrMalformedQuestion
			}
			if col < 0 || col >= q.rightSize() {
				return ErrMalformedQuestion
			}
		}
	default:
		return ErrUnsupportedKind
	}
	return nil
}

// Evaluate grades a submitted answer against the question's key.
// Single-choice: the chosen option must equal the key; an empty answer is
// simply wrong, never an error. Matching and sequence require every row of
// the key to be answered and correct; partial answers grade false as a
// whole. Deterministic and side-effect free.
func Evaluate(q Question, answer Answer) (bool, error) {
	if err := q.validate(); err != nil {
		return false, err
	}

	switch q.Kind {
	case Single:
		chosen, ok := answer[0]
		return ok && chosen == q.CorrectSingle, nil
	default: // Matching, Sequence
		for row, want := range q.CorrectMapping {
			got, ok := answer[row]
			if !ok || got != want {
				return false, nil
			}
		}
		return true, nil
	}
}

// RowCorrectness reports per-row correctness for the rows the student
// actually filled in. Used for highlighting after check; the overall verdict
// stays all-or-nothing (see Evaluate).
func RowCorrectness(q Question, answer Answer) (map[int]bool, error) {
	if err := q.validate(); err != nil {
		return nil, err
	}
	if q.Kind == Single {
		return nil, ErrUnsupportedKind
	}

	rows := make(map[int]bool, len(answer))
	for row, got := range answer {
		want, ok := q.CorrectMapping[row]
		rows[row] = ok && got == want
	}
	return rows, nil
}
