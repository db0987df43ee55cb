package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/examly/exam-go-api/internal/dto"
	"github.com/examly/exam-go-api/internal/models"
	"github.com/examly/exam-go-api/internal/repository"
)

// ErrExamNotFound indicates the referenced exam does not exist.
var ErrExamNotFound = errors.New("exam not found")

// ExamService serves the student-facing exam views.
type ExamService interface {
	ListAvailable(ctx context.Context) ([]dto.ExamResponse, error)
	ListEnded(ctx context.Context) ([]dto.ExamResponse, error)
	GetForStudent(ctx context.Context, studentID, examID uint) (dto.ExamDetailResponse, error)
}

type examService struct {
	exams       repository.ExamRepository
	answers     repository.AnswerRepository
	submissions repository.SubmissionRepository
	logger      zerolog.Logger
	now         func() time.Time
}

// NewExamService constructs the student exam view service.
func NewExamService(
	exams repository.ExamRepository,
	answers repository.AnswerRepository,
	submissions repository.SubmissionRepository,
	logger zerolog.Logger,
) ExamService {
	return &examService{
		exams:       exams,
		answers:     answers,
		submissions: submissions,
		logger:      logger.With().Str("component", "exam_service").Logger(),
		now:         time.Now,
	}
}

func (s *examService) ListAvailable(ctx context.Context) ([]dto.ExamResponse, error) {
	now := s.now()
	exams, err := s.exams.ListOpenOrUpcoming(ctx, now)
	if err != nil {
		return nil, err
	}

	return examResponses(exams, now), nil
}

func (s *examService) ListEnded(ctx context.Context) ([]dto.ExamResponse, error) {
	now := s.now()
	exams, err := s.exams.ListEnded(ctx, now)
	if err != nil {
		return nil, err
	}

	return examResponses(exams, now), nil
}

// GetForStudent returns one exam with window-dependent question visibility:
// no questions while upcoming, prompts without reference answers while
// active, full questions with references once the exam has ended.
func (s *examService) GetForStudent(ctx context.Context, studentID, examID uint) (dto.ExamDetailResponse, error) {
	exam, err := s.exams.GetWithQuestions(ctx, examID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ExamDetailResponse{}, ErrExamNotFound
		}
		return dto.ExamDetailResponse{}, err
	}

	now := s.now()
	detail := dto.ExamDetailResponse{
		ExamResponse: dto.NewExamResponse(exam, now),
		Questions:    []dto.QuestionResponse{},
	}

	status := exam.StatusAt(now)
	if status == models.ExamStatusUpcoming {
		return detail, nil
	}

	detail.Questions = dto.NewQuestionResponseSlice(exam.Questions, status == models.ExamStatusEnded)

	answers, err := s.answers.ListByStudentAndExam(ctx, studentID, examID)
	if err != nil {
		return dto.ExamDetailResponse{}, err
	}
	if len(answers) > 0 {
		detail.SubmittedAnswers = make(map[uint]dto.AnswerRecord, len(answers))
		for _, answer := range answers {
			detail.SubmittedAnswers[answer.QuestionID] = dto.NewAnswerRecord(answer)
		}
	}

	submission, err := s.submissions.GetByExamAndStudent(ctx, examID, studentID)
	switch {
	case err == nil:
		detail.Submission = &dto.ExamSubmissionSummary{
			TotalScore:  submission.TotalScore,
			SubmittedAt: submission.SubmittedAt,
		}
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return dto.ExamDetailResponse{}, err
	}

	return detail, nil
}

func examResponses(exams []models.Exam, now time.Time) []dto.ExamResponse {
	responses := make([]dto.ExamResponse, 0, len(exams))
	for _, exam := range exams {
		responses = append(responses, dto.NewExamResponse(exam, now))
	}
	return responses
}
