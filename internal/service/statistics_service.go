package service

import (
	"bytes"
	"fmt"

	"nmt_prep_backend/internal/progress"
	"nmt_prep_backend/internal/repository"

	"github.com/xuri/excelize/v2"
)

// StatisticsService builds the admin overview of every student's progress
// and exports it as a spreadsheet.
type StatisticsService struct {
	Users      *repository.UserRepository
	ProgressDB *repository.ProgressRepository
	Attempts   *repository.AttemptRepository
}

func NewStatisticsService(users *repository.UserRepository, progressDB *repository.ProgressRepository, attempts *repository.AttemptRepository) *StatisticsService {
	return &StatisticsService{Users: users, ProgressDB: progressDB, Attempts: attempts}
}

type StudentStats struct {
	UserID             uint    `json:"userId"`
	Name               string  `json:"name"`
	Email              string  `json:"email"`
	CompletedQuestions int   `json:"completedQuestions"`
	AttemptedQuestions int   `json:"attemptedQuestions"`
	TotalQuestions     int   `json:"totalQuestions"`
	Percentage         int   `json:"percentage"`
	Accuracy           int   `json:"accuracy"`
	TotalAttempts      int64 `json:"totalAttempts"`
	CorrectAttempts    int64 `json:"correctAttempts"`
}

func (s *StatisticsService) Overview() ([]StudentStats, error) {
	rows, err := s.ProgressDB.ListAll()
	if err != nil {
		return nil, err
	}

	byUser := make(map[uint]progress.Summary, len(rows))
	for _, row := range rows {
		snap, err := row.Snapshot()
		if err != nil {
			continue
		}
		byUser[row.UserID] = progress.Aggregate(snap)
	}

	users, _, err := s.Users.List(1, 1000)
	if err != nil {
		return nil, err
	}

	stats := make([]StudentStats, 0, len(users))
	for _, user := range users {
		total, correct, err := s.Attempts.CountByUser(user.ID)
		if err != nil {
			return nil, err
		}
		summary := byUser[user.ID]
		stats = append(stats, StudentStats{
			UserID:             user.ID,
			Name:               user.Name,
			Email:              user.Email,
			CompletedQuestions: summary.CompletedQuestions,
			AttemptedQuestions: summary.AttemptedQuestions,
			TotalQuestions:     summary.TotalQuestions,
			Percentage:         summary.Percentage,
			Accuracy:           summary.Accuracy,
			TotalAttempts:      total,
			CorrectAttempts:    correct,
		})
	}
	return stats, nil
}

var exportHeader = []string{"ID", "Name", "Email", "Completed", "Attempted", "Total", "Progress %", "Accuracy %", "All Attempts", "Correct Attempts"}

// ExportXLSX renders the overview as a downloadable workbook.
func (s *StatisticsService) ExportXLSX() (*bytes.Buffer, error) {
	stats, err := s.Overview()
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Progress"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	for col, title := range exportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, cell, title); err != nil {
			return nil, err
		}
	}

	for i, row := range stats {
		values := []interface{}{
			row.UserID, row.Name, row.Email,
			row.CompletedQuestions, row.AttemptedQuestions, row.TotalQuestions,
			row.Percentage, row.Accuracy,
			row.TotalAttempts, row.CorrectAttempts,
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return nil, err
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf, nil
}
