package repositories

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"legaltrainer/internal/models"
)

type ProgressRepository interface {
	Find(ctx context.Context, userID, topicID int) (*models.UserProgress, error)
	Create(ctx context.Context, userID, topicID, masteryLevel int) (*models.UserProgress, error)
	Update(ctx context.Context, p *models.UserProgress) (*models.UserProgress, error)
	ListByUser(ctx context.Context, userID int) ([]models.UserProgress, error)
}

const progressColumns = `id, user_id, topic_id, mastery_level, last_reviewed, next_review, created_at, updated_at`

type progressRepository struct {
	DB *sqlx.DB
}

func NewProgressRepository(db *sqlx.DB) ProgressRepository {
	return &progressRepository{DB: db}
}

func (r *progressRepository) Find(ctx context.Context, userID, topicID int) (*models.UserProgress, error) {
	var p models.UserProgress
	err := r.DB.GetContext(ctx, &p,
		`SELECT `+progressColumns+` FROM user_progress WHERE user_id = $1 AND topic_id = $2`,
		userID, topicID,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find progress: %w", err)
	}
	return &p, nil
}

// Create inserts a progress row. A concurrent insert for the same (user, topic)
// is absorbed by the unique constraint and the existing row is returned instead.
func (r *progressRepository) Create(ctx context.Context, userID, topicID, masteryLevel int) (*models.UserProgress, error) {
	q := `
		INSERT INTO user_progress (user_id, topic_id, mastery_level)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, topic_id) DO NOTHING
		RETURNING ` + progressColumns
	var p models.UserProgress
	err := r.DB.GetContext(ctx, &p, q, userID, topicID, masteryLevel)
	if err == nil {
		return &p, nil
	}
	if !isNoRows(err) {
		return nil, fmt.Errorf("create progress: %w", err)
	}
	existing, err := r.Find(ctx, userID, topicID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, fmt.Errorf("create progress: row vanished after conflict (user=%d topic=%d)", userID, topicID)
	}
	return existing, nil
}

func (r *progressRepository) Update(ctx context.Context, p *models.UserProgress) (*models.UserProgress, error) {
	q := `
		UPDATE user_progress
		SET mastery_level = $1, last_reviewed = $2, next_review = $3, updated_at = NOW()
		WHERE id = $4
		RETURNING ` + progressColumns
	var out models.UserProgress
	if err := r.DB.GetContext(ctx, &out, q, p.MasteryLevel, p.LastReviewed, p.NextReview, p.ID); err != nil {
		return nil, fmt.Errorf("update progress %d: %w", p.ID, err)
	}
	return &out, nil
}

func (r *progressRepository) ListByUser(ctx context.Context, userID int) ([]models.UserProgress, error) {
	var out []models.UserProgress
	err := r.DB.SelectContext(ctx, &out,
		`SELECT `+progressColumns+` FROM user_progress WHERE user_id = $1 ORDER BY topic_id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	return out, nil
}
