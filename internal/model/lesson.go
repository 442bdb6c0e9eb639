package model

// Lesson is a scheduled tutoring session on the calendar.
type Lesson struct {
	UUIDBase
	Title        string `gorm:"size:255;not null" json:"title"`
	StudentEmail string `gorm:"size:100;index;not null" json:"studentEmail"`
	Date         string `gorm:"size:10;index;not null" json:"date"` // YYYY-MM-DD
	Time         string `gorm:"size:5" json:"time"`                 // HH:MM
	Notes        string `gorm:"type:text" json:"notes"`
	CreatedBy    string `gorm:"size:100" json:"createdBy"`
}

func (Lesson) TableName() string {
	return "calendar_lessons"
}
