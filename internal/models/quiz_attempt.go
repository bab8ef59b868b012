package models

import "time"

type QuizAttempt struct {
	ID             int64     `json:"id" db:"id"`
	UserID         int       `json:"user_id" db:"user_id"`
	TopicID        *int      `json:"topic_id,omitempty" db:"topic_id"`
	Score          int       `json:"score" db:"score"`
	TotalQuestions int       `json:"total_questions" db:"total_questions"`
	CorrectAnswers int       `json:"correct_answers" db:"correct_answers"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

type CreateAttemptRequest struct {
	TopicID        *int `json:"topic_id" binding:"omitempty,min=1"`
	Score          int  `json:"score" binding:"min=0,max=100"`
	TotalQuestions int  `json:"total_questions" binding:"min=0"`
	CorrectAnswers int  `json:"correct_answers" binding:"min=0,ltefield=TotalQuestions"`
}

// AttemptStats aggregates a user's attempts. AverageScore is unrounded.
type AttemptStats struct {
	Total        int     `db:"total"`
	AverageScore float64 `db:"average_score"`
}
