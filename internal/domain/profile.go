package domain

import "time"

// UserProfile is the per-account gamification and personal profile.
type UserProfile struct {
	Name           string `json:"name,omitempty"`
	Bio            string `json:"bio,omitempty"`
	NativeLanguage string `json:"nativeLanguage,omitempty"`
	TargetLanguage string `json:"targetLanguage,omitempty"`

	XP              int    `json:"xp" validate:"gte=0"`
	Level           int    `json:"level" validate:"gte=1"`
	LastStreakCheck string `json:"lastStreakCheck,omitempty"`

	ProfileLastUpdated time.Time `json:"profileLastUpdated,omitzero"`
}

// DefaultProfile is the profile created on first use.
func DefaultProfile() UserProfile {
	return UserProfile{Level: 1}
}

// UserAchievement records when an achievement was first earned.
type UserAchievement struct {
	ID       string    `json:"achievementId" validate:"required"`
	EarnedAt time.Time `json:"dateEarned"`
}
