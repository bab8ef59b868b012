package services

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"legaltrainer/internal/models"
	"legaltrainer/internal/repositories"
)

// DuePolicy selects which progress records count as due for review.
type DuePolicy string

const (
	// DueByMastery: every topic below the mastered threshold is due, regardless of date.
	DueByMastery DuePolicy = "mastery"
	// DueByDate: topics whose next review is unset or already passed.
	DueByDate DuePolicy = "date"
)

const (
	MaxMasteryLevel   = 5
	PassingQuality    = 3
	DefaultMasteredAt = 3
	DefaultDueLimit   = 20
	maxDueLimit       = 100
)

// days until the next review, indexed by mastery level
var intervalLadder = [MaxMasteryLevel + 1]int{1, 2, 4, 7, 14, 30}

// IntervalForLevel returns the review interval in days for a mastery level.
// Levels outside 0..5 are clamped.
func IntervalForLevel(level int) int {
	if level < 0 {
		level = 0
	}
	if level > MaxMasteryLevel {
		level = MaxMasteryLevel
	}
	return intervalLadder[level]
}

type ReviewService interface {
	GradeReview(ctx context.Context, userID, topicID, quality int) (*models.GradeResult, error)
	ListDue(ctx context.Context, userID, limit int) ([]models.UserProgress, error)
	ProgressSummary(ctx context.Context, userID int) (*models.ProgressSummary, error)
}

type ReviewOptions struct {
	Policy     DuePolicy
	MasteredAt int
	DueLimit   int
	Now        func() time.Time
}

type reviewService struct {
	progress   repositories.ProgressRepository
	attempts   repositories.AttemptRepository
	policy     DuePolicy
	masteredAt int
	dueLimit   int
	now        func() time.Time
	locks      *keyedMutex
}

func NewReviewService(progress repositories.ProgressRepository, attempts repositories.AttemptRepository, opts ReviewOptions) ReviewService {
	s := &reviewService{
		progress:   progress,
		attempts:   attempts,
		policy:     opts.Policy,
		masteredAt: opts.MasteredAt,
		dueLimit:   opts.DueLimit,
		now:        opts.Now,
		locks:      newKeyedMutex(),
	}
	if s.policy == "" {
		s.policy = DueByMastery
	}
	if s.masteredAt <= 0 {
		s.masteredAt = DefaultMasteredAt
	}
	if s.dueLimit <= 0 {
		s.dueLimit = DefaultDueLimit
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// GradeReview applies a 0..5 quality grade to the user's topic progress.
// Passing grades climb one level; failing grades reset to level 0.
func (s *reviewService) GradeReview(ctx context.Context, userID, topicID, quality int) (*models.GradeResult, error) {
	if quality < 0 || quality > 5 {
		return nil, invalid("quality", "must be between 0 and 5")
	}
	if userID <= 0 {
		return nil, invalid("user_id", "must be positive")
	}
	if topicID <= 0 {
		return nil, invalid("topic_id", "must be positive")
	}

	unlock := s.locks.Lock(fmt.Sprintf("%d:%d", userID, topicID))
	defer unlock()

	p, err := s.progress.Find(ctx, userID, topicID)
	if err != nil {
		return nil, storageErr("grade review", err)
	}
	if p == nil {
		if p, err = s.progress.Create(ctx, userID, topicID, 0); err != nil {
			return nil, storageErr("grade review", err)
		}
	}

	newLevel, offsetDays := nextLevel(p.MasteryLevel, quality)
	now := s.now()
	next := now.AddDate(0, 0, offsetDays)
	p.MasteryLevel = newLevel
	p.LastReviewed = &now
	p.NextReview = &next

	updated, err := s.progress.Update(ctx, p)
	if err != nil {
		return nil, storageErr("grade review", err)
	}
	log.Printf("[review][grade] user_id=%d topic_id=%d quality=%d level=%d next=%s",
		userID, topicID, quality, updated.MasteryLevel, next.Format(time.RFC3339))

	return &models.GradeResult{
		TopicID:      topicID,
		MasteryLevel: updated.MasteryLevel,
		NextReview:   next,
	}, nil
}

func nextLevel(current, quality int) (level, offsetDays int) {
	if quality < PassingQuality {
		return 0, IntervalForLevel(0)
	}
	level = current + 1
	if level > MaxMasteryLevel {
		level = MaxMasteryLevel
	}
	return level, IntervalForLevel(level)
}

// ListDue returns the user's due records, soonest first, at most limit of them.
func (s *reviewService) ListDue(ctx context.Context, userID, limit int) ([]models.UserProgress, error) {
	if limit <= 0 {
		limit = s.dueLimit
	}
	if limit > maxDueLimit {
		limit = maxDueLimit
	}
	all, err := s.progress.ListByUser(ctx, userID)
	if err != nil {
		return nil, storageErr("list due", err)
	}
	due := s.filterDue(all, s.now())
	if len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (s *reviewService) isDue(p models.UserProgress, now time.Time) bool {
	switch s.policy {
	case DueByDate:
		return p.NextReview == nil || !p.NextReview.After(now)
	default:
		return p.MasteryLevel < s.masteredAt
	}
}

// filterDue keeps due records ordered by next review (unset first),
// ties broken by most recently updated.
func (s *reviewService) filterDue(all []models.UserProgress, now time.Time) []models.UserProgress {
	due := make([]models.UserProgress, 0, len(all))
	for _, p := range all {
		if s.isDue(p, now) {
			due = append(due, p)
		}
	}
	sort.SliceStable(due, func(i, j int) bool {
		ni, nj := due[i].NextReview, due[j].NextReview
		switch {
		case ni == nil && nj != nil:
			return true
		case ni != nil && nj == nil:
			return false
		case ni != nil && nj != nil && !ni.Equal(*nj):
			return ni.Before(*nj)
		}
		return due[i].UpdatedAt.After(due[j].UpdatedAt)
	})
	return due
}

func (s *reviewService) ProgressSummary(ctx context.Context, userID int) (*models.ProgressSummary, error) {
	var (
		stats    models.AttemptStats
		progress []models.UserProgress
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stats, err = s.attempts.StatsByUser(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		progress, err = s.progress.ListByUser(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, storageErr("progress summary", err)
	}

	sum := &models.ProgressSummary{
		TotalAttempts: stats.Total,
		AverageScore:  int(math.Round(stats.AverageScore)),
		TrackedTopics: len(progress),
	}
	for _, p := range progress {
		if p.MasteryLevel >= s.masteredAt {
			sum.MasteredTopics++
		}
	}
	sum.DueCount = len(s.filterDue(progress, s.now()))
	return sum, nil
}
