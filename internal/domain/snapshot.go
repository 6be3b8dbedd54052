package domain

// Snapshot is the full state of one account, exchanged wholesale with the
// remote store.
type Snapshot struct {
	Decks            []Deck            `json:"decks"`
	Cards            []Card            `json:"cards"`
	StudyHistory     []StudyLog        `json:"studyHistory"`
	UserProfile      *UserProfile      `json:"userProfile"`
	UserAchievements []UserAchievement `json:"userAchievements"`
}

// Empty reports whether the snapshot carries no data at all.
func (s Snapshot) Empty() bool {
	return len(s.Decks) == 0 && len(s.Cards) == 0 && len(s.StudyHistory) == 0 &&
		s.UserProfile == nil && len(s.UserAchievements) == 0
}
