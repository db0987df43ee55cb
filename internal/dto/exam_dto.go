package dto

import (
	"time"

	"github.com/examly/exam-go-api/internal/models"
)

// ExamCreateRequest describes the payload for creating a new exam.
type ExamCreateRequest struct {
	Title       string `json:"title" validate:"required,min=3"`
	Description string `json:"description"`
	StartTime   string `json:"start_time" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	EndTime     string `json:"end_time" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
}

// ExamUpdateRequest describes the payload for updating an exam before it starts.
type ExamUpdateRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=3"`
	Description *string `json:"description"`
	StartTime   *string `json:"start_time" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	EndTime     *string `json:"end_time" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

// ExamResponse is the serialized exam representation with live window state.
type ExamResponse struct {
	ID               uint              `json:"id"`
	TeacherID        uint              `json:"teacher_id"`
	Title            string            `json:"title"`
	Description      string            `json:"description"`
	StartTime        time.Time         `json:"start_time"`
	EndTime          time.Time         `json:"end_time"`
	Status           models.ExamStatus `json:"status"`
	RemainingSeconds int64             `json:"remaining_seconds"`
	QuestionCount    int               `json:"question_count"`
	CreatedAt        time.Time         `json:"created_at"`
}

// NewExamResponse converts an exam model, evaluating its window at now.
func NewExamResponse(model models.Exam, now time.Time) ExamResponse {
	return ExamResponse{
		ID:               model.ID,
		TeacherID:        model.TeacherID,
		Title:            model.Title,
		Description:      model.Description,
		StartTime:        model.StartTime,
		EndTime:          model.EndTime,
		Status:           model.StatusAt(now),
		RemainingSeconds: int64(model.RemainingAt(now) / time.Second),
		QuestionCount:    len(model.Questions),
		CreatedAt:        model.CreatedAt,
	}
}

// ExamDetailResponse is the student view of one exam. Question visibility
// depends on the window: none while upcoming, prompts without reference
// answers while active, full questions once ended.
type ExamDetailResponse struct {
	ExamResponse
	Questions        []QuestionResponse     `json:"questions"`
	SubmittedAnswers map[uint]AnswerRecord  `json:"submitted_answers,omitempty"`
	Submission       *ExamSubmissionSummary `json:"submission,omitempty"`
}

// ExamSubmissionSummary reflects the ledger record of a finalized exam.
type ExamSubmissionSummary struct {
	TotalScore  float64   `json:"total_score"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// ExamStatistics aggregates participation numbers for one exam.
type ExamStatistics struct {
	TotalQuestions   int      `json:"total_questions"`
	TotalSubmissions int      `json:"total_submissions"`
	PendingGrading   int      `json:"pending_grading"`
	AverageScore     *float64 `json:"average_score"`
}

// TeacherExamDetailResponse is the owner's view of one exam: the full
// question set, reference answers included, with participation statistics.
type TeacherExamDetailResponse struct {
	ExamResponse
	Questions  []QuestionResponse `json:"questions"`
	Statistics ExamStatistics     `json:"statistics"`
}

// DashboardStatsResponse rolls a teacher's whole portfolio into one view.
type DashboardStatsResponse struct {
	TotalExams       int `json:"total_exams"`
	UpcomingExams    int `json:"upcoming_exams"`
	ActiveExams      int `json:"active_exams"`
	EndedExams       int `json:"ended_exams"`
	TotalQuestions   int `json:"total_questions"`
	TotalStudents    int `json:"total_students"`
	TotalSubmissions int `json:"total_submissions"`
	GradedAnswers    int `json:"graded_answers"`
	PendingGrading   int `json:"pending_grading"`
}

// ExamResultResponse summarizes a student's outcome for an ended exam.
type ExamResultResponse struct {
	ExamID            uint      `json:"exam_id"`
	Title             string    `json:"title"`
	EndTime           time.Time `json:"end_time"`
	TotalQuestions    int       `json:"total_questions"`
	AnsweredQuestions int       `json:"answered_questions"`
	TotalPoints       float64   `json:"total_points"`
	ObtainedScore     float64   `json:"obtained_score"`
	PendingGrading    int       `json:"pending_grading"`
	Finalized         bool      `json:"finalized"`
}
