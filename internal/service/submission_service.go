package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/examly/exam-go-api/internal/dto"
	"github.com/examly/exam-go-api/internal/models"
	"github.com/examly/exam-go-api/internal/observability"
	"github.com/examly/exam-go-api/internal/repository"
)

// ErrQuestionNotFound indicates the referenced question does not exist.
var ErrQuestionNotFound = errors.New("question not found")

// ErrExamNotActive indicates the exam window has not opened yet.
var ErrExamNotActive = errors.New("exam has not started yet")

// ErrExamEnded indicates the exam window has closed.
var ErrExamEnded = errors.New("exam has ended")

// ErrAlreadySubmitted indicates a submission ledger record already exists for
// this (exam, student). Terminal: retrying the call can never succeed.
var ErrAlreadySubmitted = errors.New("exam already submitted")

// ErrMixedExamBatch indicates a batch referenced questions from more than one
// exam. The whole call is rejected rather than attributing the total to
// whichever exam resolved first.
var ErrMixedExamBatch = errors.New("batch mixes questions from different exams")

// SubmissionService orchestrates answer submission and exam finalization.
type SubmissionService interface {
	SubmitOne(ctx context.Context, studentID uint, payload dto.SubmitAnswerRequest) (dto.AnswerSubmitResponse, error)
	SubmitBatch(ctx context.Context, studentID uint, payload dto.SubmitBatchRequest) (dto.BatchSubmitResponse, error)
	GetExamAnswers(ctx context.Context, studentID, examID uint) ([]dto.AnswerRecord, error)
}

type submissionService struct {
	questions    repository.QuestionRepository
	answers      repository.AnswerRepository
	submissions  repository.SubmissionRepository
	grader       AnswerGrader
	validator    *validator.Validate
	events       EventPublisher
	activity     ActivityRecorder
	logger       zerolog.Logger
	tracer       trace.Tracer
	now          func() time.Time
	storeTimeout time.Duration
}

// NewSubmissionService constructs the submission orchestrator.
func NewSubmissionService(
	questions repository.QuestionRepository,
	answers repository.AnswerRepository,
	submissions repository.SubmissionRepository,
	grader AnswerGrader,
	validate *validator.Validate,
	events EventPublisher,
	activity ActivityRecorder,
	storeTimeout time.Duration,
	logger zerolog.Logger,
) SubmissionService {
	if storeTimeout <= 0 {
		storeTimeout = 5 * time.Second
	}

	return &submissionService{
		questions:    questions,
		answers:      answers,
		submissions:  submissions,
		grader:       grader,
		validator:    validate,
		events:       events,
		activity:     activity,
		logger:       logger.With().Str("component", "submission_service").Logger(),
		tracer:       otel.Tracer("github.com/examly/exam-go-api/internal/service/submission"),
		now:          time.Now,
		storeTimeout: storeTimeout,
	}
}

// SubmitOne is the autosave path: it validates the exam window, normalizes
// the raw text and upserts a single scoreless answer row. The submission
// ledger is untouched; scores appear only on finalization.
func (s *submissionService) SubmitOne(ctx context.Context, studentID uint, payload dto.SubmitAnswerRequest) (dto.AnswerSubmitResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AnswerSubmitResponse{}, err
	}

	question, err := s.questions.GetByID(ctx, payload.QuestionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AnswerSubmitResponse{}, ErrQuestionNotFound
		}
		return dto.AnswerSubmitResponse{}, err
	}

	switch question.Exam.StatusAt(s.now()) {
	case models.ExamStatusUpcoming:
		return dto.AnswerSubmitResponse{}, ErrExamNotActive
	case models.ExamStatusEnded:
		return dto.AnswerSubmitResponse{}, ErrExamEnded
	}

	graded, err := s.grader.Grade(question, payload.AnswerText)
	if err != nil {
		return dto.AnswerSubmitResponse{}, err
	}

	answer := models.Answer{
		QuestionID:  question.ID,
		StudentID:   studentID,
		AnswerText:  graded.NormalizedText,
		SubmittedAt: s.now().UTC(),
	}

	if err := s.answers.Upsert(ctx, &answer); err != nil {
		return dto.AnswerSubmitResponse{}, err
	}

	s.logger.Debug().
		Uint("student_id", studentID).
		Uint("question_id", question.ID).
		Msg("answer autosaved")

	return dto.AnswerSubmitResponse{
		QuestionID:  question.ID,
		AnswerText:  answer.AnswerText,
		SubmittedAt: answer.SubmittedAt,
	}, nil
}

// SubmitBatch finalizes an exam: it grades every resolvable answer, collects
// per-item errors without aborting the batch, and writes all answer rows plus
// the ledger record in one atomic unit. A concurrent duplicate loses at the
// ledger's unique index and surfaces ErrAlreadySubmitted.
func (s *submissionService) SubmitBatch(ctx context.Context, studentID uint, payload dto.SubmitBatchRequest) (dto.BatchSubmitResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.BatchSubmitResponse{}, err
	}

	ctx, span := s.tracer.Start(ctx, "submission.finalize", trace.WithAttributes(
		attribute.Int64("submission.student_id", int64(studentID)),
		attribute.Int("submission.answer_count", len(payload.Answers)),
	))
	defer span.End()

	var examID uint
	if payload.ExamID != nil {
		examID = *payload.ExamID

		submitted, err := s.submissions.Exists(ctx, examID, studentID)
		if err != nil {
			span.RecordError(err)
			return dto.BatchSubmitResponse{}, err
		}
		if submitted {
			observability.DuplicateSubmitAttempts().Inc()
			span.SetStatus(codes.Error, "already_submitted")
			return dto.BatchSubmitResponse{}, ErrAlreadySubmitted
		}
	}

	now := s.now()
	response := dto.BatchSubmitResponse{Successful: []dto.BatchItemResult{}}
	rows := make([]models.Answer, 0, len(payload.Answers))

	for _, item := range payload.Answers {
		question, err := s.questions.GetByID(ctx, item.QuestionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				response.Errors = append(response.Errors, dto.BatchItemError{
					QuestionID: item.QuestionID,
					Code:       dto.BatchErrorQuestionNotFound,
					Message:    "question not found",
				})
				continue
			}
			span.RecordError(err)
			return dto.BatchSubmitResponse{}, err
		}

		// All resolvable questions must share one exam; a mismatch is a
		// caller error, not something to attribute silently.
		if examID == 0 {
			examID = question.ExamID
		} else if question.ExamID != examID {
			span.SetStatus(codes.Error, "mixed_exam_batch")
			return dto.BatchSubmitResponse{}, ErrMixedExamBatch
		}

		switch question.Exam.StatusAt(now) {
		case models.ExamStatusUpcoming:
			response.Errors = append(response.Errors, dto.BatchItemError{
				QuestionID: item.QuestionID,
				Code:       dto.BatchErrorExamNotActive,
				Message:    "exam has not started yet",
			})
			continue
		case models.ExamStatusEnded:
			response.Errors = append(response.Errors, dto.BatchItemError{
				QuestionID: item.QuestionID,
				Code:       dto.BatchErrorExamEnded,
				Message:    "exam has ended",
			})
			continue
		}

		graded, err := s.grader.Grade(question, item.AnswerText)
		if err != nil {
			response.Errors = append(response.Errors, dto.BatchItemError{
				QuestionID: item.QuestionID,
				Code:       dto.BatchErrorInvalidFormat,
				Message:    err.Error(),
			})
			continue
		}

		if graded.Score != nil {
			response.TotalScore += *graded.Score
		}
		observability.AnswersGraded().WithLabelValues(question.Type).Inc()

		rows = append(rows, models.Answer{
			QuestionID:  question.ID,
			StudentID:   studentID,
			AnswerText:  graded.NormalizedText,
			Score:       graded.Score,
			SubmittedAt: now.UTC(),
		})
		response.Successful = append(response.Successful, dto.BatchItemResult{
			QuestionID: question.ID,
			Score:      graded.Score,
		})
	}

	if examID == 0 {
		// Nothing resolved and no hint: there is no exam to finalize.
		return response, nil
	}
	response.ExamID = examID
	span.SetAttributes(attribute.Int64("submission.exam_id", int64(examID)))

	// An explicit exam id is a finalize instruction even when every item was
	// rejected. Without one, committing an empty ledger row would lock the
	// student out of an exam they never finished.
	if payload.ExamID == nil && len(rows) == 0 {
		return response, nil
	}

	// The upfront duplicate check ran before the exam id was known when no
	// hint was supplied; close that window before committing.
	if payload.ExamID == nil {
		submitted, err := s.submissions.Exists(ctx, examID, studentID)
		if err != nil {
			span.RecordError(err)
			return dto.BatchSubmitResponse{}, err
		}
		if submitted {
			observability.DuplicateSubmitAttempts().Inc()
			span.SetStatus(codes.Error, "already_submitted")
			return dto.BatchSubmitResponse{}, ErrAlreadySubmitted
		}
	}

	submission := models.ExamSubmission{
		ExamID:      examID,
		StudentID:   studentID,
		TotalScore:  response.TotalScore,
		SubmittedAt: now.UTC(),
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	if err := s.submissions.Finalize(storeCtx, &submission, rows); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			observability.DuplicateSubmitAttempts().Inc()
			span.SetStatus(codes.Error, "already_submitted")
			return dto.BatchSubmitResponse{}, ErrAlreadySubmitted
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "finalize_failed")
		observability.SubmissionsFinalized().WithLabelValues("error").Inc()
		return dto.BatchSubmitResponse{}, err
	}

	response.Finalized = true
	observability.SubmissionsFinalized().WithLabelValues("success").Inc()

	if s.events != nil {
		s.events.Publish(ctx, ExamEvent{
			Kind:       EventSubmissionFinalized,
			ExamID:     examID,
			StudentID:  studentID,
			ActorID:    studentID,
			TotalScore: response.TotalScore,
		})
	}

	if s.activity != nil {
		_ = s.activity.Record(ctx, ActivityEntry{
			ActorID:    studentID,
			ActorRole:  models.RoleStudent,
			Action:     "exam.submitted",
			EntityType: "exam_submission",
			EntityID:   &submission.ID,
			Metadata: map[string]interface{}{
				"exam_id":     examID,
				"total_score": response.TotalScore,
				"answers":     len(response.Successful),
				"errors":      len(response.Errors),
			},
		})
	}

	s.logger.Info().
		Uint("student_id", studentID).
		Uint("exam_id", examID).
		Float64("total_score", response.TotalScore).
		Int("graded", len(response.Successful)).
		Int("skipped", len(response.Errors)).
		Msg("exam submission finalized")

	return response, nil
}

// GetExamAnswers returns the student's stored answers for one exam.
func (s *submissionService) GetExamAnswers(ctx context.Context, studentID, examID uint) ([]dto.AnswerRecord, error) {
	answers, err := s.answers.ListByStudentAndExam(ctx, studentID, examID)
	if err != nil {
		return nil, err
	}

	return dto.NewAnswerRecordSlice(answers), nil
}
