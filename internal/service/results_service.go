package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/examly/exam-go-api/internal/dto"
	"github.com/examly/exam-go-api/internal/models"
	"github.com/examly/exam-go-api/internal/repository"
)

// ErrExamNotEnded indicates results were requested before the window closed.
var ErrExamNotEnded = errors.New("exam has not ended yet")

// ResultsService computes a student's outcome for an ended exam. Results are
// cached in redis since they only change when a teacher regrades.
type ResultsService interface {
	GetExamResult(ctx context.Context, studentID, examID uint) (dto.ExamResultResponse, error)
	InvalidateResult(ctx context.Context, studentID, examID uint)
}

type resultsService struct {
	exams       repository.ExamRepository
	answers     repository.AnswerRepository
	submissions repository.SubmissionRepository
	cache       *redis.Client
	cacheTTL    time.Duration
	logger      zerolog.Logger
	now         func() time.Time
}

// NewResultsService constructs the results service. The redis client may be
// nil, in which case every call recomputes.
func NewResultsService(
	exams repository.ExamRepository,
	answers repository.AnswerRepository,
	submissions repository.SubmissionRepository,
	cache *redis.Client,
	cacheTTL time.Duration,
	logger zerolog.Logger,
) ResultsService {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}

	return &resultsService{
		exams:       exams,
		answers:     answers,
		submissions: submissions,
		cache:       cache,
		cacheTTL:    cacheTTL,
		logger:      logger.With().Str("component", "results_service").Logger(),
		now:         time.Now,
	}
}

func resultCacheKey(examID, studentID uint) string {
	return fmt.Sprintf("results:exam:%d:student:%d", examID, studentID)
}

func (s *resultsService) GetExamResult(ctx context.Context, studentID, examID uint) (dto.ExamResultResponse, error) {
	if cached, ok := s.fromCache(ctx, examID, studentID); ok {
		return cached, nil
	}

	exam, err := s.exams.GetWithQuestions(ctx, examID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ExamResultResponse{}, ErrExamNotFound
		}
		return dto.ExamResultResponse{}, err
	}
	if exam.StatusAt(s.now()) != models.ExamStatusEnded {
		return dto.ExamResultResponse{}, ErrExamNotEnded
	}

	answers, err := s.answers.ListByStudentAndExam(ctx, studentID, examID)
	if err != nil {
		return dto.ExamResultResponse{}, err
	}

	result := dto.ExamResultResponse{
		ExamID:            exam.ID,
		Title:             exam.Title,
		EndTime:           exam.EndTime,
		TotalQuestions:    len(exam.Questions),
		AnsweredQuestions: len(answers),
	}
	for _, question := range exam.Questions {
		result.TotalPoints += question.Points
	}
	for _, answer := range answers {
		if answer.Score != nil {
			result.ObtainedScore += *answer.Score
		} else {
			result.PendingGrading++
		}
	}

	// The ledger total is authoritative once the student finalized; it
	// already reflects any regrades.
	submission, err := s.submissions.GetByExamAndStudent(ctx, examID, studentID)
	switch {
	case err == nil:
		result.Finalized = true
		result.ObtainedScore = submission.TotalScore
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return dto.ExamResultResponse{}, err
	}

	s.toCache(ctx, examID, studentID, result)
	return result, nil
}

// InvalidateResult drops the cached result after a regrade touches it.
func (s *resultsService) InvalidateResult(ctx context.Context, studentID, examID uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, resultCacheKey(examID, studentID)).Err(); err != nil {
		s.logger.Warn().Err(err).Uint("exam_id", examID).Msg("result cache invalidation failed")
	}
}

func (s *resultsService) fromCache(ctx context.Context, examID, studentID uint) (dto.ExamResultResponse, bool) {
	if s.cache == nil {
		return dto.ExamResultResponse{}, false
	}

	raw, err := s.cache.Get(ctx, resultCacheKey(examID, studentID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("result cache read failed")
		}
		return dto.ExamResultResponse{}, false
	}

	var result dto.ExamResultResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return dto.ExamResultResponse{}, false
	}
	return result, true
}

func (s *resultsService) toCache(ctx context.Context, examID, studentID uint, result dto.ExamResultResponse) {
	if s.cache == nil {
		return
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, resultCacheKey(examID, studentID), raw, s.cacheTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("result cache write failed")
	}
}
