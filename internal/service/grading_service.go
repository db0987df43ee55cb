package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/examly/exam-go-api/internal/dto"
	"github.com/examly/exam-go-api/internal/models"
	"github.com/examly/exam-go-api/internal/observability"
	"github.com/examly/exam-go-api/internal/repository"
)

// ErrAnswerNotFound indicates the referenced answer does not exist.
var ErrAnswerNotFound = errors.New("answer not found")

// ErrNotExamOwner indicates the caller does not own the exam the answer
// belongs to.
var ErrNotExamOwner = errors.New("not the owner of this exam")

// ErrInvalidScore indicates a score override outside [0, question points].
var ErrInvalidScore = errors.New("score exceeds question points")

// ResultInvalidator drops a student's cached exam result. Regrades change
// totals, so every touched (exam, student) pair must be evicted or the
// student keeps reading the pre-regrade score until the cache expires.
type ResultInvalidator interface {
	InvalidateResult(ctx context.Context, studentID, examID uint)
}

// GradingService lets a teacher review answers and override scores. Every
// accepted override recomputes the affected submission ledger total in the
// same transaction.
type GradingService interface {
	ListAnswers(ctx context.Context, teacherID uint, filter dto.SubmissionListFilter) ([]dto.TeacherAnswerResponse, error)
	Regrade(ctx context.Context, teacherID, answerID uint, payload dto.RegradeRequest) (dto.TeacherAnswerResponse, error)
	BulkRegrade(ctx context.Context, teacherID uint, payload dto.BulkRegradeRequest) (dto.BulkRegradeResponse, error)
}

type gradingService struct {
	answers   repository.AnswerRepository
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	events    EventPublisher
	activity  ActivityRecorder
	results   ResultInvalidator
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewGradingService constructs the regrade coordinator. The invalidator may
// be nil when no result cache is configured.
func NewGradingService(
	answers repository.AnswerRepository,
	validate *validator.Validate,
	events EventPublisher,
	activity ActivityRecorder,
	results ResultInvalidator,
	logger zerolog.Logger,
) GradingService {
	return &gradingService{
		answers:   answers,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		events:    events,
		activity:  activity,
		results:   results,
		logger:    logger.With().Str("component", "grading_service").Logger(),
		tracer:    otel.Tracer("github.com/examly/exam-go-api/internal/service/grading"),
	}
}

func (s *gradingService) ListAnswers(ctx context.Context, teacherID uint, filter dto.SubmissionListFilter) ([]dto.TeacherAnswerResponse, error) {
	if err := s.validator.Struct(filter); err != nil {
		return nil, err
	}

	repoFilter := repository.AnswerFilter{
		ExamID:    filter.ExamID,
		StudentID: filter.StudentID,
	}
	switch filter.Status {
	case "pending":
		pending := true
		repoFilter.Pending = &pending
	case "graded":
		pending := false
		repoFilter.Pending = &pending
	}

	answers, err := s.answers.ListForTeacher(ctx, teacherID, repoFilter)
	if err != nil {
		return nil, err
	}

	return dto.NewTeacherAnswerResponseSlice(answers), nil
}

// validateOverride loads the answer and checks ownership and score bounds.
func (s *gradingService) validateOverride(ctx context.Context, teacherID, answerID uint, score float64) (models.Answer, error) {
	answer, err := s.answers.GetByID(ctx, answerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Answer{}, ErrAnswerNotFound
		}
		return models.Answer{}, err
	}

	if answer.Question.Exam.TeacherID != teacherID {
		return models.Answer{}, ErrNotExamOwner
	}
	if score < 0 || score > answer.Question.Points {
		return models.Answer{}, fmt.Errorf("%w: %.2f is outside [0, %.2f]", ErrInvalidScore, score, answer.Question.Points)
	}

	return answer, nil
}

func (s *gradingService) Regrade(ctx context.Context, teacherID, answerID uint, payload dto.RegradeRequest) (dto.TeacherAnswerResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.TeacherAnswerResponse{}, err
	}

	ctx, span := s.tracer.Start(ctx, "grading.regrade", trace.WithAttributes(
		attribute.Int64("grading.answer_id", int64(answerID)),
	))
	defer span.End()

	answer, err := s.validateOverride(ctx, teacherID, answerID, payload.Score)
	if err != nil {
		observability.RegradeOperations().WithLabelValues("rejected").Inc()
		return dto.TeacherAnswerResponse{}, err
	}

	feedback := strings.TrimSpace(s.sanitizer.Sanitize(payload.Feedback))
	update := repository.ScoreUpdate{
		AnswerID:  answer.ID,
		ExamID:    answer.Question.ExamID,
		StudentID: answer.StudentID,
		Score:     payload.Score,
		Feedback:  feedback,
	}
	if err := s.answers.ApplyScoreUpdates(ctx, []repository.ScoreUpdate{update}); err != nil {
		span.RecordError(err)
		observability.RegradeOperations().WithLabelValues("error").Inc()
		return dto.TeacherAnswerResponse{}, err
	}
	observability.RegradeOperations().WithLabelValues("success").Inc()

	answer.Score = &payload.Score
	if feedback != "" {
		answer.Feedback = feedback
	}

	s.afterRegrade(ctx, teacherID, answer, payload.Score)

	s.logger.Info().
		Uint("teacher_id", teacherID).
		Uint("answer_id", answer.ID).
		Float64("score", payload.Score).
		Msg("answer regraded")

	return dto.NewTeacherAnswerResponse(answer), nil
}

// BulkRegrade validates each override independently, applies all valid ones
// in a single transaction, and reports rejected items alongside the applied
// ones. One bad item never blocks the rest.
func (s *gradingService) BulkRegrade(ctx context.Context, teacherID uint, payload dto.BulkRegradeRequest) (dto.BulkRegradeResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.BulkRegradeResponse{}, err
	}

	ctx, span := s.tracer.Start(ctx, "grading.bulk_regrade", trace.WithAttributes(
		attribute.Int("grading.item_count", len(payload.Grades)),
	))
	defer span.End()

	response := dto.BulkRegradeResponse{Successful: []dto.RegradeItemResult{}}
	updates := make([]repository.ScoreUpdate, 0, len(payload.Grades))
	accepted := make([]models.Answer, 0, len(payload.Grades))
	scores := make([]float64, 0, len(payload.Grades))

	for _, item := range payload.Grades {
		answer, err := s.validateOverride(ctx, teacherID, item.AnswerID, item.Score)
		if err != nil {
			response.Errors = append(response.Errors, regradeItemError(item.AnswerID, err))
			continue
		}

		updates = append(updates, repository.ScoreUpdate{
			AnswerID:  answer.ID,
			ExamID:    answer.Question.ExamID,
			StudentID: answer.StudentID,
			Score:     item.Score,
			Feedback:  strings.TrimSpace(s.sanitizer.Sanitize(item.Feedback)),
		})
		accepted = append(accepted, answer)
		scores = append(scores, item.Score)
	}

	if len(updates) > 0 {
		if err := s.answers.ApplyScoreUpdates(ctx, updates); err != nil {
			span.RecordError(err)
			observability.RegradeOperations().WithLabelValues("error").Inc()
			return dto.BulkRegradeResponse{}, err
		}

		for i, answer := range accepted {
			response.Successful = append(response.Successful, dto.RegradeItemResult{
				AnswerID: answer.ID,
				Score:    scores[i],
			})
			observability.RegradeOperations().WithLabelValues("success").Inc()
			s.afterRegrade(ctx, teacherID, answer, scores[i])
		}
	}

	s.logger.Info().
		Uint("teacher_id", teacherID).
		Int("applied", len(response.Successful)).
		Int("rejected", len(response.Errors)).
		Msg("bulk regrade finished")

	return response, nil
}

func (s *gradingService) afterRegrade(ctx context.Context, teacherID uint, answer models.Answer, score float64) {
	if s.results != nil {
		s.results.InvalidateResult(ctx, answer.StudentID, answer.Question.ExamID)
	}
	if s.events != nil {
		s.events.Publish(ctx, ExamEvent{
			Kind:      EventAnswerRegraded,
			ExamID:    answer.Question.ExamID,
			StudentID: answer.StudentID,
			ActorID:   teacherID,
		})
	}
	if s.activity != nil {
		answerID := answer.ID
		_ = s.activity.Record(ctx, ActivityEntry{
			ActorID:    teacherID,
			ActorRole:  models.RoleTeacher,
			Action:     "answer.regraded",
			EntityType: "answer",
			EntityID:   &answerID,
			Metadata: map[string]interface{}{
				"exam_id":    answer.Question.ExamID,
				"student_id": answer.StudentID,
				"score":      score,
			},
		})
	}
}

func regradeItemError(answerID uint, err error) dto.RegradeItemError {
	code := dto.BatchErrorInvalidScore
	switch {
	case errors.Is(err, ErrAnswerNotFound):
		code = dto.BatchErrorAnswerNotFound
	case errors.Is(err, ErrNotExamOwner):
		code = dto.BatchErrorAccessDenied
	}

	return dto.RegradeItemError{
		AnswerID: answerID,
		Code:     code,
		Message:  err.Error(),
	}
}
