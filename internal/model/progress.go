package model

import (
	"encoding/json"
	"time"

	"nmt_prep_backend/internal/progress"
)

// UserProgress is the persisted snapshot, one row per user. The whole
// snapshot travels as a single JSON document; UpdatedAt doubles as the
// monotonic version used to reject stale writes.
type UserProgress struct {
	ID           uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID       uint            `gorm:"uniqueIndex;not null" json:"userId"`
	ProgressData json.RawMessage `gorm:"type:json" json:"progressData"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `gorm:"index" json:"updatedAt"`
}

func (UserProgress) TableName() string {
	return "user_progress"
}

func (p *UserProgress) Snapshot() (progress.Snapshot, error) {
	var s progress.Snapshot
	if err := json.Unmarshal(p.ProgressData, &s); err != nil {
		return nil, err
	}
	return s, nil
}

// AttemptLog keeps the per-check history, including wrong attempts that the
// snapshot's correct-answer set never shows. Feeds the admin statistics view.
type AttemptLog struct {
	BaseModel
	UserID        uint   `gorm:"index;not null" json:"userId"`
	TestSlug      string `gorm:"size:50;index;not null" json:"testSlug"`
	QuestionIndex int    `gorm:"not null" json:"questionIndex"`
	IsCorrect     bool   `gorm:"default:false" json:"isCorrect"`
	Answer        json.RawMessage `gorm:"type:json" json:"answer"`
}

func (AttemptLog) TableName() string {
	return "attempt_logs"
}
