package services

import (
	"context"

	"golang.org/x/sync/errgroup"

	"legaltrainer/internal/models"
	"legaltrainer/internal/repositories"
)

const maxPageSize = 100

type AttemptService interface {
	Record(ctx context.Context, userID int, req models.CreateAttemptRequest) (*models.QuizAttempt, error)
	History(ctx context.Context, userID, page, limit int) ([]models.QuizAttempt, int, error)
}

type attemptService struct {
	repo repositories.AttemptRepository
}

func NewAttemptService(repo repositories.AttemptRepository) AttemptService {
	return &attemptService{repo: repo}
}

func (s *attemptService) Record(ctx context.Context, userID int, req models.CreateAttemptRequest) (*models.QuizAttempt, error) {
	if req.Score < 0 || req.Score > 100 {
		return nil, invalid("score", "must be between 0 and 100")
	}
	if req.CorrectAnswers > req.TotalQuestions {
		return nil, invalid("correct_answers", "cannot exceed total_questions")
	}
	a := &models.QuizAttempt{
		UserID:         userID,
		TopicID:        req.TopicID,
		Score:          req.Score,
		TotalQuestions: req.TotalQuestions,
		CorrectAnswers: req.CorrectAnswers,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, storageErr("record attempt", err)
	}
	return a, nil
}

// History returns one page (1-based) of attempts, newest first, and the total count.
func (s *attemptService) History(ctx context.Context, userID, page, limit int) ([]models.QuizAttempt, int, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	var (
		items []models.QuizAttempt
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = s.repo.ListByUser(gctx, userID, limit, (page-1)*limit)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.repo.CountByUser(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, 0, storageErr("attempt history", err)
	}
	if items == nil {
		items = []models.QuizAttempt{}
	}
	return items, total, nil
}
