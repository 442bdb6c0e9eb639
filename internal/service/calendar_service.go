package service

import (
	"errors"
	"fmt"
	"time"

	"nmt_prep_backend/internal/model"
	"nmt_prep_backend/internal/repository"
	"nmt_prep_backend/internal/util"

	"gorm.io/gorm"
)

// CalendarService manages the lesson schedule. Admins edit; students only
// see lessons booked for their own email.
type CalendarService struct {
	Repo *repository.LessonRepository
}

func NewCalendarService(repo *repository.LessonRepository) *CalendarService {
	return &CalendarService{Repo: repo}
}

type LessonInput struct {
	Title        string `json:"title" binding:"required,max=255"`
	StudentEmail string `json:"studentEmail" binding:"required,email"`
	Date         string `json:"date" binding:"required"`
	Time         string `json:"time"`
	Notes        string `json:"notes"`
}

func validateLessonInput(input LessonInput) error {
	if _, err := time.Parse("2006-01-02", input.Date); err != nil {
		return fmt.Errorf("invalid date %q, expected YYYY-MM-DD", input.Date)
	}
	if input.Time != "" {
		if _, err := time.Parse("15:04", input.Time); err != nil {
			return fmt.Errorf("invalid time %q, expected HH:MM", input.Time)
		}
	}
	return nil
}

func (s *CalendarService) Create(input LessonInput, createdBy string) (*model.Lesson, error) {
	if err := validateLessonInput(input); err != nil {
		return nil, err
	}

	lesson := &model.Lesson{
		Title:        input.Title,
		StudentEmail: input.StudentEmail,
		Date:         input.Date,
		Time:         input.Time,
		Notes:        input.Notes,
		CreatedBy:    createdBy,
	}
	if err := s.Repo.Create(lesson); err != nil {
		return nil, err
	}
	return lesson, nil
}

func (s *CalendarService) Update(id string, input LessonInput) (*model.Lesson, error) {
	if err := validateLessonInput(input); err != nil {
		return nil, err
	}

	lesson, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	lesson.Title = input.Title
	lesson.StudentEmail = input.StudentEmail
	lesson.Date = input.Date
	lesson.Time = input.Time
	lesson.Notes = input.Notes
	if err := s.Repo.Update(lesson); err != nil {
		return nil, err
	}
	return lesson, nil
}

func (s *CalendarService) Get(id string) (*model.Lesson, error) {
	lesson, err := s.Repo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrLessonNotFound
		}
		return nil, err
	}
	return lesson, nil
}

func (s *CalendarService) Delete(id string) error {
	if _, err := s.Get(id); err != nil {
		return err
	}
	return s.Repo.Delete(id)
}

// ListFor returns the lessons visible to the caller.
func (s *CalendarService) ListFor(claims *util.Claims) ([]model.Lesson, error) {
	if claims.Role == model.Admin {
		return s.Repo.ListAll()
	}
	return s.Repo.ListByStudent(claims.Email)
}

// UpcomingLessons returns lessons scheduled for today and tomorrow, for
// the reminder job.
func (s *CalendarService) UpcomingLessons() ([]model.Lesson, error) {
	today := time.Now().Format("2006-01-02")
	tomorrow := time.Now().AddDate(0, 0, 1).Format("2006-01-02")
	return s.Repo.ListByDateRange(today, tomorrow)
}

func (s *CalendarService) ListRange(claims *util.Claims, startDate, endDate string) ([]model.Lesson, error) {
	if _, err := time.Parse("2006-01-02", startDate); err != nil {
		return nil, fmt.Errorf("invalid start date %q", startDate)
	}
	if _, err := time.Parse("2006-01-02", endDate); err != nil {
		return nil, fmt.Errorf("invalid end date %q", endDate)
	}

	lessons, err := s.Repo.ListByDateRange(startDate, endDate)
	if err != nil {
		return nil, err
	}
	if claims.Role == model.Admin {
		return lessons, nil
	}

	own := make([]model.Lesson, 0, len(lessons))
	for _, lesson := range lessons {
		if lesson.StudentEmail == claims.Email {
			own = append(own, lesson)
		}
	}
	return own, nil
}
