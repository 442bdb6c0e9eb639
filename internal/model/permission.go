package model

import "encoding/json"

// UserPermission overrides the user's default category access. Absence of a
// row means the default set on the user record applies.
type UserPermission struct {
	BaseModel
	UserID            uint            `gorm:"uniqueIndex;not null" json:"userId"`
	AllowedCategories json.RawMessage `gorm:"type:json" json:"allowedCategories"`
}

func (UserPermission) TableName() string {
	return "user_permissions"
}

func (p *UserPermission) CategoryCodes() []string {
	var codes []string
	if len(p.AllowedCategories) > 0 {
		_ = json.Unmarshal(p.AllowedCategories, &codes)
	}
	return codes
}
