package dto

import (
	"time"

	"github.com/examly/exam-go-api/internal/models"
)

// RegradeRequest overrides one answer's score, optionally with feedback.
type RegradeRequest struct {
	Score    float64 `json:"score" validate:"gte=0"`
	Feedback string  `json:"feedback" validate:"omitempty,max=2000"`
}

// BulkRegradeItem is one entry of a bulk grading call.
type BulkRegradeItem struct {
	AnswerID uint    `json:"answer_id" validate:"required,gt=0"`
	Score    float64 `json:"score" validate:"gte=0"`
	Feedback string  `json:"feedback" validate:"omitempty,max=2000"`
}

// BulkRegradeRequest carries a batch of score overrides.
type BulkRegradeRequest struct {
	Grades []BulkRegradeItem `json:"grades" validate:"required,min=1,dive"`
}

// RegradeItemResult reports one applied score override.
type RegradeItemResult struct {
	AnswerID uint    `json:"answer_id"`
	Score    float64 `json:"score"`
}

// RegradeItemError reports one rejected score override with a reason code.
type RegradeItemError struct {
	AnswerID uint   `json:"answer_id"`
	Code     string `json:"code"`
	Message  string `json:"message"`
}

// BulkRegradeResponse is the tagged result of a bulk grading call.
type BulkRegradeResponse struct {
	Successful []RegradeItemResult `json:"successful"`
	Errors     []RegradeItemError  `json:"errors,omitempty"`
}

// SubmissionListFilter narrows the teacher's answer listing.
type SubmissionListFilter struct {
	ExamID    *uint  `query:"exam_id"`
	StudentID *uint  `query:"student_id"`
	Status    string `query:"status" validate:"omitempty,oneof=pending graded"`
}

// TeacherAnswerResponse is the grading view of a single stored answer.
type TeacherAnswerResponse struct {
	AnswerID      uint      `json:"answer_id"`
	QuestionID    uint      `json:"question_id"`
	QuestionText  string    `json:"question_text"`
	QuestionType  string    `json:"question_type"`
	Points        float64   `json:"points"`
	CorrectAnswer *string   `json:"correct_answer,omitempty"`
	ExamID        uint      `json:"exam_id"`
	ExamTitle     string    `json:"exam_title"`
	StudentID     uint      `json:"student_id"`
	StudentName   string    `json:"student_name"`
	AnswerText    string    `json:"answer_text"`
	Score         *float64  `json:"score"`
	Feedback      string    `json:"feedback,omitempty"`
	GradingStatus string    `json:"grading_status"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

// NewTeacherAnswerResponse converts an answer with preloaded question, exam
// and student associations.
func NewTeacherAnswerResponse(model models.Answer) TeacherAnswerResponse {
	status := "pending"
	if model.IsGraded() {
		status = "graded"
	}

	return TeacherAnswerResponse{
		AnswerID:      model.ID,
		QuestionID:    model.QuestionID,
		QuestionText:  model.Question.Text,
		QuestionType:  model.Question.Type,
		Points:        model.Question.Points,
		CorrectAnswer: model.Question.CorrectAnswer,
		ExamID:        model.Question.ExamID,
		ExamTitle:     model.Question.Exam.Title,
		StudentID:     model.StudentID,
		StudentName:   model.Student.Name,
		AnswerText:    model.AnswerText,
		Score:         model.Score,
		Feedback:      model.Feedback,
		GradingStatus: status,
		SubmittedAt:   model.SubmittedAt,
	}
}

// NewTeacherAnswerResponseSlice converts a slice of answer models.
func NewTeacherAnswerResponseSlice(answers []models.Answer) []TeacherAnswerResponse {
	responses := make([]TeacherAnswerResponse, 0, len(answers))
	for _, answer := range answers {
		responses = append(responses, NewTeacherAnswerResponse(answer))
	}
	return responses
}

// SubmissionDetailResponse groups one student's answers for one exam with
// the recomputed aggregate.
type SubmissionDetailResponse struct {
	StudentID   uint                    `json:"student_id"`
	StudentName string                  `json:"student_name"`
	ExamID      uint                    `json:"exam_id"`
	ExamTitle   string                  `json:"exam_title"`
	TotalScore  float64                 `json:"total_score"`
	Answers     []TeacherAnswerResponse `json:"answers"`
}

// ExamSummaryRow aggregates one student's standing within an exam.
type ExamSummaryRow struct {
	StudentID     uint      `json:"student_id"`
	StudentName   string    `json:"student_name"`
	TotalScore    float64   `json:"total_score"`
	MaxScore      float64   `json:"max_possible_score"`
	AnsweredCount int       `json:"answered_questions"`
	PendingCount  int       `json:"pending_grading"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

// ExamSummaryResponse lists the ledger standing of every finalized student.
type ExamSummaryResponse struct {
	ExamID         uint             `json:"exam_id"`
	Title          string           `json:"title"`
	TotalQuestions int              `json:"total_questions"`
	Rows           []ExamSummaryRow `json:"rows"`
}
