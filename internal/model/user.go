package model

import (
	"encoding/json"
	"time"
)

type UserRole string

const (
	Student UserRole = "student"
	Admin   UserRole = "admin"
)

// swagger:model User
type User struct {
	BaseModel
	Name     string   `gorm:"size:100;not null" json:"name"`
	Email    string   `gorm:"size:100;unique;not null" json:"email"`
	Password string   `gorm:"size:100;not null" json:"-"`
	Role     UserRole `gorm:"type:enum('student','admin');default:'student'" json:"role"`
	Avatar   string   `gorm:"size:255" json:"avatar"`
	Disabled bool     `gorm:"default:false" json:"disabled"`
	// Fallback category access used when no per-user permission row exists.
	DefaultCategories json.RawMessage `gorm:"type:json" json:"defaultCategories"`
	LastLogin         time.Time       `gorm:"default:CURRENT_TIMESTAMP(3)" json:"lastLogin"`
	LastSeen          time.Time       `gorm:"default:CURRENT_TIMESTAMP(3)" json:"lastSeen"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) DefaultCategoryCodes() []string {
	var codes []string
	if len(u.DefaultCategories) > 0 {
		_ = json.Unmarshal(u.DefaultCategories, &codes)
	}
	return codes
}
