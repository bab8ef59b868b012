package models

import "time"

// UserProgress is the per-(user, topic) review state.
type UserProgress struct {
	ID           int64      `json:"id" db:"id"`
	UserID       int        `json:"user_id" db:"user_id"`
	TopicID      int        `json:"topic_id" db:"topic_id"`
	MasteryLevel int        `json:"mastery_level" db:"mastery_level"`
	LastReviewed *time.Time `json:"last_reviewed,omitempty" db:"last_reviewed"`
	NextReview   *time.Time `json:"next_review,omitempty" db:"next_review"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

type GradeRequest struct {
	TopicID int  `json:"topic_id" binding:"required,min=1"`
	Quality *int `json:"quality" binding:"required"`
}

type GradeResult struct {
	TopicID      int       `json:"topic_id"`
	MasteryLevel int       `json:"mastery_level"`
	NextReview   time.Time `json:"next_review"`
}

type ProgressSummary struct {
	TotalAttempts  int `json:"total_attempts"`
	AverageScore   int `json:"average_score"`
	MasteredTopics int `json:"mastered_topics"`
	TrackedTopics  int `json:"tracked_topics"`
	DueCount       int `json:"due_count"`
}
