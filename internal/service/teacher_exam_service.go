package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/examly/exam-go-api/internal/dto"
	"github.com/examly/exam-go-api/internal/models"
	"github.com/examly/exam-go-api/internal/repository"
)

// ErrExamLocked indicates a mutation on an exam whose window already opened.
var ErrExamLocked = errors.New("exam can no longer be modified")

// ErrInvalidTimeWindow indicates a window whose end does not follow its start.
var ErrInvalidTimeWindow = errors.New("end time must be after start time")

// ErrMissingCorrectAnswer indicates an auto-graded question without a usable
// reference answer.
var ErrMissingCorrectAnswer = errors.New("question type requires a valid correct answer")

// TeacherExamService manages a teacher's exams and questions. Exams become
// immutable the moment their window opens.
type TeacherExamService interface {
	ListExams(ctx context.Context, teacherID uint) ([]dto.ExamResponse, error)
	GetExam(ctx context.Context, teacherID, examID uint) (dto.TeacherExamDetailResponse, error)
	DashboardStats(ctx context.Context, teacherID uint) (dto.DashboardStatsResponse, error)
	CreateExam(ctx context.Context, teacherID uint, payload dto.ExamCreateRequest) (dto.ExamResponse, error)
	UpdateExam(ctx context.Context, teacherID, examID uint, payload dto.ExamUpdateRequest) (dto.ExamResponse, error)
	DeleteExam(ctx context.Context, teacherID, examID uint) error
	AddQuestion(ctx context.Context, teacherID, examID uint, payload dto.QuestionCreateRequest) (dto.QuestionResponse, error)
	UpdateQuestion(ctx context.Context, teacherID, questionID uint, payload dto.QuestionUpdateRequest) (dto.QuestionResponse, error)
	DeleteQuestion(ctx context.Context, teacherID, questionID uint) error
	ExamSummary(ctx context.Context, teacherID, examID uint) (dto.ExamSummaryResponse, error)
	SubmissionDetail(ctx context.Context, teacherID, examID, studentID uint) (dto.SubmissionDetailResponse, error)
}

type teacherExamService struct {
	exams       repository.ExamRepository
	questions   repository.QuestionRepository
	answers     repository.AnswerRepository
	submissions repository.SubmissionRepository
	validator   *validator.Validate
	sanitizer   *bluemonday.Policy
	activity    ActivityRecorder
	logger      zerolog.Logger
	now         func() time.Time
}

// NewTeacherExamService constructs the exam management service.
func NewTeacherExamService(
	exams repository.ExamRepository,
	questions repository.QuestionRepository,
	answers repository.AnswerRepository,
	submissions repository.SubmissionRepository,
	validate *validator.Validate,
	activity ActivityRecorder,
	logger zerolog.Logger,
) TeacherExamService {
	return &teacherExamService{
		exams:       exams,
		questions:   questions,
		answers:     answers,
		submissions: submissions,
		validator:   validate,
		sanitizer:   bluemonday.StrictPolicy(),
		activity:    activity,
		logger:      logger.With().Str("component", "teacher_exam_service").Logger(),
		now:         time.Now,
	}
}

func (s *teacherExamService) ListExams(ctx context.Context, teacherID uint) ([]dto.ExamResponse, error) {
	exams, err := s.exams.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, err
	}

	return examResponses(exams, s.now()), nil
}

// GetExam returns the owner's view of one exam. Unlike the student detail,
// reference answers are always included regardless of the window.
func (s *teacherExamService) GetExam(ctx context.Context, teacherID, examID uint) (dto.TeacherExamDetailResponse, error) {
	exam, err := s.ownedExam(ctx, teacherID, examID)
	if err != nil {
		return dto.TeacherExamDetailResponse{}, err
	}

	submissions, err := s.submissions.ListByExam(ctx, examID)
	if err != nil {
		return dto.TeacherExamDetailResponse{}, err
	}
	answers, err := s.answers.ListForTeacher(ctx, teacherID, repository.AnswerFilter{ExamID: &examID})
	if err != nil {
		return dto.TeacherExamDetailResponse{}, err
	}

	stats := dto.ExamStatistics{
		TotalQuestions:   len(exam.Questions),
		TotalSubmissions: len(submissions),
	}
	for _, answer := range answers {
		if !answer.IsGraded() {
			stats.PendingGrading++
		}
	}
	if len(submissions) > 0 {
		var sum float64
		for _, submission := range submissions {
			sum += submission.TotalScore
		}
		average := sum / float64(len(submissions))
		stats.AverageScore = &average
	}

	return dto.TeacherExamDetailResponse{
		ExamResponse: dto.NewExamResponse(exam, s.now()),
		Questions:    dto.NewQuestionResponseSlice(exam.Questions, true),
		Statistics:   stats,
	}, nil
}

// DashboardStats aggregates the teacher's portfolio across all their exams.
func (s *teacherExamService) DashboardStats(ctx context.Context, teacherID uint) (dto.DashboardStatsResponse, error) {
	exams, err := s.exams.ListByTeacher(ctx, teacherID)
	if err != nil {
		return dto.DashboardStatsResponse{}, err
	}

	now := s.now()
	stats := dto.DashboardStatsResponse{TotalExams: len(exams)}
	students := make(map[uint]struct{})
	for _, exam := range exams {
		switch exam.StatusAt(now) {
		case models.ExamStatusUpcoming:
			stats.UpcomingExams++
		case models.ExamStatusActive:
			stats.ActiveExams++
		default:
			stats.EndedExams++
		}

		questions, err := s.questions.ListByExam(ctx, exam.ID)
		if err != nil {
			return dto.DashboardStatsResponse{}, err
		}
		stats.TotalQuestions += len(questions)

		submissions, err := s.submissions.ListByExam(ctx, exam.ID)
		if err != nil {
			return dto.DashboardStatsResponse{}, err
		}
		stats.TotalSubmissions += len(submissions)
		for _, submission := range submissions {
			students[submission.StudentID] = struct{}{}
		}
	}
	stats.TotalStudents = len(students)

	answers, err := s.answers.ListForTeacher(ctx, teacherID, repository.AnswerFilter{})
	if err != nil {
		return dto.DashboardStatsResponse{}, err
	}
	for _, answer := range answers {
		if answer.IsGraded() {
			stats.GradedAnswers++
		} else {
			stats.PendingGrading++
		}
	}

	return stats, nil
}

func (s *teacherExamService) CreateExam(ctx context.Context, teacherID uint, payload dto.ExamCreateRequest) (dto.ExamResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ExamResponse{}, err
	}

	start, err := time.Parse(time.RFC3339, payload.StartTime)
	if err != nil {
		return dto.ExamResponse{}, err
	}
	end, err := time.Parse(time.RFC3339, payload.EndTime)
	if err != nil {
		return dto.ExamResponse{}, err
	}
	if !end.After(start) {
		return dto.ExamResponse{}, ErrInvalidTimeWindow
	}

	exam := models.Exam{
		TeacherID:   teacherID,
		Title:       s.sanitizer.Sanitize(payload.Title),
		Description: s.sanitizer.Sanitize(payload.Description),
		StartTime:   start.UTC(),
		EndTime:     end.UTC(),
	}
	if err := s.exams.Create(ctx, &exam); err != nil {
		return dto.ExamResponse{}, err
	}

	s.recordActivity(ctx, teacherID, "exam.created", "exam", exam.ID, map[string]interface{}{"title": exam.Title})
	s.logger.Info().Uint("teacher_id", teacherID).Uint("exam_id", exam.ID).Msg("exam created")

	return dto.NewExamResponse(exam, s.now()), nil
}

func (s *teacherExamService) UpdateExam(ctx context.Context, teacherID, examID uint, payload dto.ExamUpdateRequest) (dto.ExamResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ExamResponse{}, err
	}

	exam, err := s.ownedMutableExam(ctx, teacherID, examID)
	if err != nil {
		return dto.ExamResponse{}, err
	}

	if payload.Title != nil {
		exam.Title = s.sanitizer.Sanitize(*payload.Title)
	}
	if payload.Description != nil {
		exam.Description = s.sanitizer.Sanitize(*payload.Description)
	}
	if payload.StartTime != nil {
		start, err := time.Parse(time.RFC3339, *payload.StartTime)
		if err != nil {
			return dto.ExamResponse{}, err
		}
		exam.StartTime = start.UTC()
	}
	if payload.EndTime != nil {
		end, err := time.Parse(time.RFC3339, *payload.EndTime)
		if err != nil {
			return dto.ExamResponse{}, err
		}
		exam.EndTime = end.UTC()
	}
	if !exam.EndTime.After(exam.StartTime) {
		return dto.ExamResponse{}, ErrInvalidTimeWindow
	}

	if err := s.exams.Update(ctx, &exam); err != nil {
		return dto.ExamResponse{}, err
	}

	s.recordActivity(ctx, teacherID, "exam.updated", "exam", exam.ID, nil)
	return dto.NewExamResponse(exam, s.now()), nil
}

func (s *teacherExamService) DeleteExam(ctx context.Context, teacherID, examID uint) error {
	exam, err := s.ownedMutableExam(ctx, teacherID, examID)
	if err != nil {
		return err
	}

	if err := s.exams.Delete(ctx, exam.ID); err != nil {
		return err
	}

	s.recordActivity(ctx, teacherID, "exam.deleted", "exam", exam.ID, map[string]interface{}{"title": exam.Title})
	return nil
}

func (s *teacherExamService) AddQuestion(ctx context.Context, teacherID, examID uint, payload dto.QuestionCreateRequest) (dto.QuestionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.QuestionResponse{}, err
	}

	exam, err := s.ownedMutableExam(ctx, teacherID, examID)
	if err != nil {
		return dto.QuestionResponse{}, err
	}

	correct, err := normalizeCorrectAnswer(payload.Type, payload.CorrectAnswer)
	if err != nil {
		return dto.QuestionResponse{}, err
	}

	question := models.Question{
		ExamID:        exam.ID,
		Text:          s.sanitizer.Sanitize(payload.Text),
		Type:          payload.Type,
		Points:        payload.Points,
		CorrectAnswer: correct,
	}
	if err := s.questions.Create(ctx, &question); err != nil {
		return dto.QuestionResponse{}, err
	}

	s.recordActivity(ctx, teacherID, "question.created", "question", question.ID, map[string]interface{}{"exam_id": exam.ID})
	return dto.NewQuestionResponse(question, true), nil
}

func (s *teacherExamService) UpdateQuestion(ctx context.Context, teacherID, questionID uint, payload dto.QuestionUpdateRequest) (dto.QuestionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.QuestionResponse{}, err
	}

	question, err := s.questions.GetByID(ctx, questionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.QuestionResponse{}, ErrQuestionNotFound
		}
		return dto.QuestionResponse{}, err
	}
	if question.Exam.TeacherID != teacherID {
		return dto.QuestionResponse{}, ErrNotExamOwner
	}
	if question.Exam.StatusAt(s.now()) != models.ExamStatusUpcoming {
		return dto.QuestionResponse{}, ErrExamLocked
	}

	if payload.Text != nil {
		question.Text = s.sanitizer.Sanitize(*payload.Text)
	}
	if payload.Points != nil {
		question.Points = *payload.Points
	}
	if payload.CorrectAnswer != nil {
		correct, err := normalizeCorrectAnswer(question.Type, payload.CorrectAnswer)
		if err != nil {
			return dto.QuestionResponse{}, err
		}
		question.CorrectAnswer = correct
	}

	if err := s.questions.Update(ctx, &question); err != nil {
		return dto.QuestionResponse{}, err
	}

	s.recordActivity(ctx, teacherID, "question.updated", "question", question.ID, nil)
	return dto.NewQuestionResponse(question, true), nil
}

func (s *teacherExamService) DeleteQuestion(ctx context.Context, teacherID, questionID uint) error {
	question, err := s.questions.GetByID(ctx, questionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrQuestionNotFound
		}
		return err
	}
	if question.Exam.TeacherID != teacherID {
		return ErrNotExamOwner
	}
	if question.Exam.StatusAt(s.now()) != models.ExamStatusUpcoming {
		return ErrExamLocked
	}

	if err := s.questions.Delete(ctx, question.ID); err != nil {
		return err
	}

	s.recordActivity(ctx, teacherID, "question.deleted", "question", question.ID, nil)
	return nil
}

func (s *teacherExamService) ExamSummary(ctx context.Context, teacherID, examID uint) (dto.ExamSummaryResponse, error) {
	exam, err := s.ownedExam(ctx, teacherID, examID)
	if err != nil {
		return dto.ExamSummaryResponse{}, err
	}

	submissions, err := s.submissions.ListByExam(ctx, examID)
	if err != nil {
		return dto.ExamSummaryResponse{}, err
	}

	var maxScore float64
	for _, question := range exam.Questions {
		maxScore += question.Points
	}

	summary := dto.ExamSummaryResponse{
		ExamID:         exam.ID,
		Title:          exam.Title,
		TotalQuestions: len(exam.Questions),
		Rows:           make([]dto.ExamSummaryRow, 0, len(submissions)),
	}
	for _, submission := range submissions {
		row := dto.ExamSummaryRow{
			StudentID:   submission.StudentID,
			StudentName: submission.Student.Name,
			TotalScore:  submission.TotalScore,
			MaxScore:    maxScore,
			SubmittedAt: submission.SubmittedAt,
		}

		answers, err := s.answers.ListByStudentAndExam(ctx, submission.StudentID, examID)
		if err != nil {
			return dto.ExamSummaryResponse{}, err
		}
		row.AnsweredCount = len(answers)
		for _, answer := range answers {
			if !answer.IsGraded() {
				row.PendingCount++
			}
		}

		summary.Rows = append(summary.Rows, row)
	}

	return summary, nil
}

func (s *teacherExamService) SubmissionDetail(ctx context.Context, teacherID, examID, studentID uint) (dto.SubmissionDetailResponse, error) {
	exam, err := s.ownedExam(ctx, teacherID, examID)
	if err != nil {
		return dto.SubmissionDetailResponse{}, err
	}

	answers, err := s.answers.ListByStudentAndExam(ctx, studentID, examID)
	if err != nil {
		return dto.SubmissionDetailResponse{}, err
	}

	detail := dto.SubmissionDetailResponse{
		StudentID: studentID,
		ExamID:    exam.ID,
		ExamTitle: exam.Title,
		Answers:   dto.NewTeacherAnswerResponseSlice(answers),
	}
	for _, answer := range answers {
		if answer.Score != nil {
			detail.TotalScore += *answer.Score
		}
	}

	submission, err := s.submissions.GetByExamAndStudent(ctx, examID, studentID)
	switch {
	case err == nil:
		detail.StudentName = submission.Student.Name
		detail.TotalScore = submission.TotalScore
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return dto.SubmissionDetailResponse{}, err
	}
	if detail.StudentName == "" && len(answers) > 0 {
		detail.StudentName = answers[0].Student.Name
	}

	return detail, nil
}

func (s *teacherExamService) ownedExam(ctx context.Context, teacherID, examID uint) (models.Exam, error) {
	exam, err := s.exams.GetWithQuestions(ctx, examID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Exam{}, ErrExamNotFound
		}
		return models.Exam{}, err
	}
	if exam.TeacherID != teacherID {
		return models.Exam{}, ErrNotExamOwner
	}

	return exam, nil
}

func (s *teacherExamService) ownedMutableExam(ctx context.Context, teacherID, examID uint) (models.Exam, error) {
	exam, err := s.ownedExam(ctx, teacherID, examID)
	if err != nil {
		return models.Exam{}, err
	}
	if exam.StatusAt(s.now()) != models.ExamStatusUpcoming {
		return models.Exam{}, ErrExamLocked
	}

	return exam, nil
}

func (s *teacherExamService) recordActivity(ctx context.Context, teacherID uint, action, entityType string, entityID uint, metadata map[string]interface{}) {
	if s.activity == nil {
		return
	}
	_ = s.activity.Record(ctx, ActivityEntry{
		ActorID:    teacherID,
		ActorRole:  models.RoleTeacher,
		Action:     action,
		EntityType: entityType,
		EntityID:   &entityID,
		Metadata:   metadata,
	})
}

// normalizeCorrectAnswer validates and canonicalizes the reference answer for
// the given question type. True/false references are stored lowercased.
func normalizeCorrectAnswer(questionType string, raw *string) (*string, error) {
	if !models.RequiresCorrectAnswer(questionType) {
		return nil, nil
	}
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, ErrMissingCorrectAnswer
	}

	value := strings.TrimSpace(*raw)
	if questionType == models.QuestionTypeTrueFalse {
		value = strings.ToLower(value)
		if value != "true" && value != "false" {
			return nil, ErrMissingCorrectAnswer
		}
	}

	return &value, nil
}
