package service

import (
	"encoding/json"
	"errors"
	"strconv"

	"nmt_prep_backend/internal/grading"
	"nmt_prep_backend/internal/model"
	"nmt_prep_backend/internal/progress"
	"nmt_prep_backend/internal/repository"
	"nmt_prep_backend/internal/util"
	"nmt_prep_backend/pkg/logger"
	"nmt_prep_backend/pkg/monitoring"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TestingService grades submitted answers and feeds the results into the
// progress coordinator and the attempt log.
type TestingService struct {
	Catalog  *repository.CatalogRepository
	Attempts *repository.AttemptRepository
	Progress *ProgressService
}

func NewTestingService(catalog *repository.CatalogRepository, attempts *repository.AttemptRepository, progress *ProgressService) *TestingService {
	return &TestingService{Catalog: catalog, Attempts: attempts, Progress: progress}
}

// CheckResult is what the client renders after pressing the check button.
// The answer key is revealed only here, after the attempt is made.
// RowResults is only present for matching and sequence questions.
type CheckResult struct {
	Correct        bool            `json:"correct"`
	RowResults     map[string]bool `json:"rowResults,omitempty"`
	CorrectOption  *int            `json:"correctOption,omitempty"`
	CorrectMapping map[string]int  `json:"correctMapping,omitempty"`
	Explanation    string          `json:"explanation,omitempty"`
}

func (s *TestingService) CheckAnswer(userID uint, testSlug string, questionIndex int, answer grading.Answer) (*CheckResult, error) {
	test, err := s.Catalog.FindTestBySlug(testSlug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrTestNotFound
		}
		return nil, err
	}

	question, err := s.Catalog.FindQuestion(test.ID, questionIndex)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrQuestionNotFound
		}
		return nil, err
	}

	gq := question.ToGrading()
	correct, err := grading.Evaluate(gq, answer)
	if err != nil {
		return nil, err
	}

	result := &CheckResult{Correct: correct, Explanation: question.Explanation}
	if gq.Kind == grading.Single {
		result.CorrectOption = question.CorrectSingle
	} else {
		rows, err := grading.RowCorrectness(gq, answer)
		if err != nil {
			return nil, err
		}
		result.RowResults = make(map[string]bool, len(rows))
		for idx, ok := range rows {
			result.RowResults[strconv.Itoa(idx)] = ok
		}
		result.CorrectMapping = make(map[string]int, len(gq.CorrectMapping))
		for left, right := range gq.CorrectMapping {
			result.CorrectMapping[strconv.Itoa(left)] = right
		}
	}

	monitoring.AnswersGraded.WithLabelValues(question.Kind, strconv.FormatBool(correct)).Inc()

	if err := s.Progress.RecordAnswer(userID, testSlug, questionIndex, correct); err != nil {
		if !errors.Is(err, progress.ErrUnknownTestID) {
			return nil, err
		}
		// Tests published after the session started are not tracked
		// until the next sign-in. The grade itself still stands.
		logger.Log.Debug("answer for untracked test",
			zap.Uint("user_id", userID), zap.String("test", testSlug))
	}

	rawAnswer, _ := json.Marshal(answer)
	attempt := &model.AttemptLog{
		UserID:        userID,
		TestSlug:      testSlug,
		QuestionIndex: questionIndex,
		IsCorrect:     correct,
		Answer:        rawAnswer,
	}
	if err := s.Attempts.Create(attempt); err != nil {
		// The snapshot already carries the answer, losing one log row is
		// recoverable.
		logger.Log.Warn("attempt log write failed",
			zap.Uint("user_id", userID), zap.String("test", testSlug), zap.Error(err))
	}

	return result, nil
}

func (s *TestingService) RecentAttempts(userID uint, limit int) ([]model.AttemptLog, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.Attempts.ListByUser(userID, limit)
}
