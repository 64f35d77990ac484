package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"squadquiz-backend-go/internal/db"
	"squadquiz-backend-go/internal/models"
	"squadquiz-backend-go/pkg/messagequeue"
)

// Custom errors for the QuizService
var (
	ErrQuizNotFound     = errors.New("quiz not found")
	ErrNoQuizzes        = errors.New("no quizzes are available")
	ErrAlreadyCompleted = errors.New("daily quiz already completed today")
	ErrInvalidScore     = errors.New("score is out of range for this quiz")
)

// ScoreEventQueue is the queue score events are published to after a
// completed quiz. Consumers are free to fan the events out (analytics,
// notifications); publishing is best-effort and never fails the completion.
const ScoreEventQueue = "quiz.score.recorded"

// dailyQuizCache remembers which quiz was selected for a given day, keyed by
// the UTC date string. Selection is deterministic, so the cache only saves
// the List round trip; a cold cache always reselects the same quiz.
type dailyQuizCache struct {
	mu     sync.Mutex
	day    string
	quizID string
}

// quizService implements the QuizService interface.
type quizService struct {
	quizRepo  db.QuizRepository
	userRepo  db.UserRepository
	scoreRepo db.ScoreRepository
	mq        messagequeue.MessageQueue
	cache     dailyQuizCache
	nowFn     func() time.Time
}

// NewQuizService creates a new QuizService instance. mq may be nil when no
// message broker is configured; score events are then skipped.
func NewQuizService(qr db.QuizRepository, ur db.UserRepository, scr db.ScoreRepository, mq messagequeue.MessageQueue) QuizService {
	return &quizService{
		quizRepo:  qr,
		userRepo:  ur,
		scoreRepo: scr,
		mq:        mq,
		nowFn:     time.Now,
	}
}

// today returns the current UTC date as YYYY-MM-DD. All daily gating keys off
// this value, so a user's "day" rolls over at midnight UTC regardless of
// their local timezone.
func (s *quizService) today() string {
	return s.nowFn().UTC().Format("2006-01-02")
}

// selectDailyQuizID picks the quiz for the given day by hashing the date over
// the available quiz IDs. Every instance of the service picks the same quiz
// for the same day without coordination.
func (s *quizService) selectDailyQuizID(ctx context.Context, day string) (string, error) {
	s.cache.mu.Lock()
	if s.cache.day == day && s.cache.quizID != "" {
		id := s.cache.quizID
		s.cache.mu.Unlock()
		return id, nil
	}
	s.cache.mu.Unlock()

	quizzes, err := s.quizRepo.List(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list quizzes for daily selection: %w", err)
	}
	if len(quizzes) == 0 {
		return "", ErrNoQuizzes
	}

	h := fnv.New32a()
	h.Write([]byte(day))
	quizID := quizzes[int(h.Sum32())%len(quizzes)].ID

	s.cache.mu.Lock()
	s.cache.day = day
	s.cache.quizID = quizID
	s.cache.mu.Unlock()

	return quizID, nil
}

// FetchDailyQuiz returns today's quiz for the user. If the user has already
// recorded a result today, ErrAlreadyCompleted is returned instead.
func (s *quizService) FetchDailyQuiz(ctx context.Context, userID string) (*models.Quiz, error) {
	if s.quizRepo == nil || s.userRepo == nil {
		return nil, errors.New("quizService: component not initialized")
	}

	day := s.today()

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("%w: user with ID '%s'", ErrUserNotFound, userID)
		}
		return nil, fmt.Errorf("failed to get user '%s' for daily quiz: %w", userID, err)
	}
	if user.LastCompletedDate == day {
		return nil, fmt.Errorf("user '%s' on %s: %w", userID, day, ErrAlreadyCompleted)
	}

	quizID, err := s.selectDailyQuizID(ctx, day)
	if err != nil {
		return nil, err
	}

	quiz, err := s.quizRepo.GetByID(ctx, quizID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("%w: quiz with ID '%s'", ErrQuizNotFound, quizID)
		}
		return nil, fmt.Errorf("failed to get daily quiz '%s': %w", quizID, err)
	}
	return quiz, nil
}

// scoreEvent is the payload published to ScoreEventQueue.
type scoreEvent struct {
	UserID    string    `json:"userId"`
	SquadID   string    `json:"squadId,omitempty"`
	QuizID    string    `json:"quizId"`
	Score     int64     `json:"score"`
	Day       string    `json:"day"`
	Timestamp time.Time `json:"timestamp"`
}

// CompleteQuiz records the user's result for today's quiz. Exactly one
// completion per user per day is accepted; the user's and their squad's
// totals are updated in the same transaction as the score entry.
func (s *quizService) CompleteQuiz(ctx context.Context, userID string, req models.CompleteQuizRequest) (*models.ScoreEntry, error) {
	if s.quizRepo == nil || s.userRepo == nil {
		return nil, errors.New("quizService: component not initialized")
	}

	day := s.today()

	quizID, err := s.selectDailyQuizID(ctx, day)
	if err != nil {
		return nil, err
	}
	if req.QuizID != quizID {
		return nil, fmt.Errorf("%w: quiz '%s' is not today's quiz", ErrQuizNotFound, req.QuizID)
	}

	quiz, err := s.quizRepo.GetByID(ctx, quizID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("%w: quiz with ID '%s'", ErrQuizNotFound, quizID)
		}
		return nil, fmt.Errorf("failed to get quiz '%s' for completion: %w", quizID, err)
	}
	if req.Score < 0 || req.Score > int64(len(quiz.Questions)) {
		return nil, fmt.Errorf("%w: got %d, quiz has %d questions", ErrInvalidScore, req.Score, len(quiz.Questions))
	}

	entry, err := s.userRepo.RecordQuizResult(ctx, userID, quizID, req.Score, day)
	if err != nil {
		switch {
		case errors.Is(err, db.ErrAlreadyCompleted):
			return nil, fmt.Errorf("%w: %v", ErrAlreadyCompleted, err)
		case errors.Is(err, db.ErrUserNotFound):
			return nil, fmt.Errorf("%w: %v", ErrUserNotFound, err)
		case errors.Is(err, db.ErrQuizNotFound):
			return nil, fmt.Errorf("%w: %v", ErrQuizNotFound, err)
		default:
			return nil, fmt.Errorf("failed to record quiz result for user '%s': %w", userID, err)
		}
	}

	if s.mq != nil {
		event := scoreEvent{
			UserID:    entry.UserID,
			SquadID:   entry.SquadID,
			QuizID:    entry.QuizID,
			Score:     entry.Score,
			Day:       entry.Day,
			Timestamp: entry.CreatedAt,
		}
		if body, marshalErr := json.Marshal(event); marshalErr == nil {
			if pubErr := s.mq.Publish(ScoreEventQueue, body); pubErr != nil {
				fmt.Printf("Warning: failed to publish score event for user '%s': %v\n", userID, pubErr)
			}
		}
	}

	return entry, nil
}

const maxScoreHistory = 30

// RecentScores returns the user's most recent score entries, newest first.
func (s *quizService) RecentScores(ctx context.Context, userID string, limit int) ([]*models.ScoreEntry, error) {
	if s.scoreRepo == nil {
		return nil, errors.New("quizService: scoreRepo not initialized")
	}
	if limit <= 0 || limit > maxScoreHistory {
		limit = maxScoreHistory
	}
	entries, err := s.scoreRepo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list scores for user '%s': %w", userID, err)
	}
	if entries == nil {
		entries = []*models.ScoreEntry{}
	}
	return entries, nil
}
