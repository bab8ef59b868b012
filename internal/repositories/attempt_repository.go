package repositories

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"legaltrainer/internal/models"
)

type AttemptRepository interface {
	Create(ctx context.Context, a *models.QuizAttempt) error
	ListByUser(ctx context.Context, userID, limit, offset int) ([]models.QuizAttempt, error)
	CountByUser(ctx context.Context, userID int) (int, error)
	StatsByUser(ctx context.Context, userID int) (models.AttemptStats, error)
}

type attemptRepository struct {
	DB *sqlx.DB
}

func NewAttemptRepository(db *sqlx.DB) AttemptRepository {
	return &attemptRepository{DB: db}
}

func (r *attemptRepository) Create(ctx context.Context, a *models.QuizAttempt) error {
	const q = `
		INSERT INTO quiz_attempts (user_id, topic_id, score, total_questions, correct_answers)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	if err := r.DB.QueryRowxContext(ctx, q,
		a.UserID, a.TopicID, a.Score, a.TotalQuestions, a.CorrectAnswers,
	).Scan(&a.ID, &a.CreatedAt); err != nil {
		return fmt.Errorf("create attempt: %w", err)
	}
	return nil
}

func (r *attemptRepository) ListByUser(ctx context.Context, userID, limit, offset int) ([]models.QuizAttempt, error) {
	const q = `
		SELECT id, user_id, topic_id, score, total_questions, correct_answers, created_at
		FROM quiz_attempts
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`
	var out []models.QuizAttempt
	if err := r.DB.SelectContext(ctx, &out, q, userID, limit, offset); err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	return out, nil
}

func (r *attemptRepository) CountByUser(ctx context.Context, userID int) (int, error) {
	var c int
	if err := r.DB.GetContext(ctx, &c, `SELECT COUNT(*) FROM quiz_attempts WHERE user_id = $1`, userID); err != nil {
		return 0, fmt.Errorf("count attempts: %w", err)
	}
	return c, nil
}

func (r *attemptRepository) StatsByUser(ctx context.Context, userID int) (models.AttemptStats, error) {
	const q = `
		SELECT COUNT(*) AS total, COALESCE(AVG(score), 0)::float8 AS average_score
		FROM quiz_attempts
		WHERE user_id = $1
	`
	var s models.AttemptStats
	if err := r.DB.GetContext(ctx, &s, q, userID); err != nil {
		return models.AttemptStats{}, fmt.Errorf("attempt stats: %w", err)
	}
	return s, nil
}
