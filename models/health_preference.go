package models

import "gorm.io/gorm"

// HealthPreference stores the onboarding answers for one user.
// Each list is kept as comma-separated text and split at the service
// boundary.
type HealthPreference struct {
	gorm.Model
	UserID             uint   `gorm:"uniqueIndex;not null"`
	HealthIssues       string `gorm:"type:text"`
	Sensitivities      string `gorm:"type:text"`
	Intolerances       string `gorm:"type:text"`
	DietaryPreferences string `gorm:"type:text"`
}
