package model

import (
	"encoding/json"

	"nmt_prep_backend/internal/grading"
)

// swagger:model Category
type Category struct {
	BaseModel
	Code        string `gorm:"size:50;unique;not null" json:"code"`
	Name        string `gorm:"size:255;not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	Order       int    `gorm:"default:0" json:"order"`
	Enabled     bool   `gorm:"default:true" json:"enabled"`
}

func (Category) TableName() string {
	return "categories"
}

// swagger:model Test
type Test struct {
	BaseModel
	Slug         string `gorm:"size:50;unique;not null" json:"slug"`
	Title        string `gorm:"size:255;not null" json:"title"`
	Description  string `gorm:"type:text" json:"description"`
	CategoryCode string `gorm:"size:50;index;not null" json:"categoryCode"`
	Order        int    `gorm:"default:0" json:"order"`
	IsPublished  bool   `gorm:"default:true" json:"isPublished"`
}

func (Test) TableName() string {
	return "tests"
}

// Question is authored content. The kind decides which key fields are
// meaningful: single uses Options+CorrectSingle, matching uses
// Left+Right+CorrectMapping, sequence uses Left+CorrectMapping where the
// mapped value is the target position.
type Question struct {
	BaseModel
	TestID         uint            `gorm:"index;not null" json:"testId"`
	Position       int             `gorm:"not null" json:"position"`
	Kind           string          `gorm:"size:20;not null" json:"kind"`
	Prompt         string          `gorm:"type:text;not null" json:"prompt"`
	Images         json.RawMessage `gorm:"type:json" json:"images,omitempty"`
	Options        json.RawMessage `gorm:"type:json" json:"options,omitempty"`
	LeftItems      json.RawMessage `gorm:"type:json" json:"left,omitempty"`
	RightItems     json.RawMessage `gorm:"type:json" json:"right,omitempty"`
	CorrectSingle  *int            `json:"-"`
	CorrectMapping json.RawMessage `gorm:"type:json" json:"-"`
	Explanation    string          `gorm:"type:text" json:"-"`
}

func (Question) TableName() string {
	return "questions"
}

func decodeStrings(raw json.RawMessage) []string {
	var out []string
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &out)
	}
	return out
}

// ToGrading converts the stored row into the grading engine's view.
func (q *Question) ToGrading() grading.Question {
	gq := grading.Question{
		Kind:    grading.Kind(q.Kind),
		Options: decodeStrings(q.Options),
		Left:    decodeStrings(q.LeftItems),
		Right:   decodeStrings(q.RightItems),
	}
	if q.CorrectSingle != nil {
		gq.CorrectSingle = *q.CorrectSingle
	}
	if len(q.CorrectMapping) > 0 {
		_ = json.Unmarshal(q.CorrectMapping, &gq.CorrectMapping)
	}
	return gq
}
