package services

import (
	"errors"
	"strings"

	"github.com/vamshi726/food-scan-ai/config"
	"github.com/vamshi726/food-scan-ai/models"
)

func GetUserProfile(email string) (map[string]interface{}, error) {
	var user models.User
	if err := config.DB.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, errors.New("user not found")
	}

	return map[string]interface{}{
		"id":        user.ID,
		"email":     user.Email,
		"full_name": user.FullName,
		"onboarded": user.Onboarded,
	}, nil
}

func UpdateUserProfile(email, fullName string) error {
	var user models.User
	if err := config.DB.Where("email = ?", email).First(&user).Error; err != nil {
		return errors.New("user not found")
	}
	user.FullName = fullName
	return config.DB.Save(&user).Error
}

// PreferencesInput carries the onboarding answers.
type PreferencesInput struct {
	HealthIssues       []string `json:"health_issues"`
	Sensitivities      []string `json:"sensitivities"`
	Intolerances       []string `json:"intolerances"`
	DietaryPreferences []string `json:"dietary_preferences"`
}

// SaveHealthPreferences upserts the user's preference row and marks the
// account onboarded.
func SaveHealthPreferences(userID uint, input PreferencesInput) error {
	pref := models.HealthPreference{
		UserID:             userID,
		HealthIssues:       joinList(input.HealthIssues),
		Sensitivities:      joinList(input.Sensitivities),
		Intolerances:       joinList(input.Intolerances),
		DietaryPreferences: joinList(input.DietaryPreferences),
	}

	var existing models.HealthPreference
	err := config.DB.Where("user_id = ?", userID).First(&existing).Error
	if err == nil {
		pref.ID = existing.ID
		pref.CreatedAt = existing.CreatedAt
		if err := config.DB.Save(&pref).Error; err != nil {
			return err
		}
	} else if err := config.DB.Create(&pref).Error; err != nil {
		return err
	}

	return config.DB.Model(&models.User{}).Where("id = ?", userID).
		Update("onboarded", true).Error
}

// GetHealthProfile loads the pipeline-facing view of the preferences.
// A user without a row gets a nil profile (analysis stays generic).
func GetHealthProfile(userID uint) (*HealthProfile, error) {
	if userID == 0 {
		return nil, nil
	}
	var pref models.HealthPreference
	if err := config.DB.Where("user_id = ?", userID).First(&pref).Error; err != nil {
		return nil, nil
	}
	return &HealthProfile{
		HealthIssues:       splitList(pref.HealthIssues),
		Sensitivities:      splitList(pref.Sensitivities),
		Intolerances:       splitList(pref.Intolerances),
		DietaryPreferences: splitList(pref.DietaryPreferences),
	}, nil
}

func joinList(items []string) string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		it = strings.TrimSpace(it)
		if it != "" {
			out = append(out, it)
		}
	}
	return strings.Join(out, ",")
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return SplitIngredients(s)
}
