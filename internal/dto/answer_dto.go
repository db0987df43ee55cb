package dto

import (
	"time"

	"github.com/examly/exam-go-api/internal/models"
)

// SubmitAnswerRequest is the autosave payload for a single answer.
type SubmitAnswerRequest struct {
	QuestionID uint   `json:"question_id" validate:"required,gt=0"`
	AnswerText string `json:"answer_text"`
}

// BatchAnswerItem is one entry of a batch submission.
type BatchAnswerItem struct {
	QuestionID uint   `json:"question_id" validate:"required,gt=0"`
	AnswerText string `json:"answer_text"`
}

// SubmitBatchRequest finalizes an exam with a batch of answers.
type SubmitBatchRequest struct {
	ExamID  *uint             `json:"exam_id" validate:"omitempty,gt=0"`
	Answers []BatchAnswerItem `json:"answers" validate:"required,min=1,dive"`
}

// AnswerSubmitResponse acknowledges a single autosaved answer.
type AnswerSubmitResponse struct {
	QuestionID  uint      `json:"question_id"`
	AnswerText  string    `json:"answer_text"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// BatchItemResult reports one successfully graded answer of a batch.
type BatchItemResult struct {
	QuestionID uint     `json:"question_id"`
	Score      *float64 `json:"score"`
}

// BatchItemError reports one skipped answer of a batch with a reason code.
type BatchItemError struct {
	QuestionID uint   `json:"question_id"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

// Reason codes attached to BatchItemError entries.
const (
	BatchErrorQuestionNotFound = "question_not_found"
	BatchErrorExamNotActive    = "exam_not_active"
	BatchErrorExamEnded        = "exam_ended"
	BatchErrorInvalidFormat    = "invalid_answer_format"
	BatchErrorInvalidScore     = "invalid_score"
	BatchErrorAccessDenied     = "access_denied"
	BatchErrorAnswerNotFound   = "answer_not_found"
)

// BatchSubmitResponse is the tagged result of a batch submission: per-item
// successes and errors side by side, never an exception for a single item.
type BatchSubmitResponse struct {
	Successful []BatchItemResult `json:"successful"`
	Errors     []BatchItemError  `json:"errors,omitempty"`
	TotalScore float64           `json:"total_score"`
	ExamID     uint              `json:"exam_id"`
	Finalized  bool              `json:"finalized"`
}

// AnswerRecord is the read-only projection of a stored answer.
type AnswerRecord struct {
	AnswerID     uint      `json:"answer_id"`
	QuestionID   uint      `json:"question_id"`
	QuestionText string    `json:"question_text"`
	QuestionType string    `json:"question_type"`
	Points       float64   `json:"points"`
	AnswerText   string    `json:"answer_text"`
	Score        *float64  `json:"score"`
	Feedback     string    `json:"feedback,omitempty"`
	SubmittedAt  time.Time `json:"submitted_at"`
}

// NewAnswerRecord converts an answer model with its preloaded question.
func NewAnswerRecord(model models.Answer) AnswerRecord {
	return AnswerRecord{
		AnswerID:     model.ID,
		QuestionID:   model.QuestionID,
		QuestionText: model.Question.Text,
		QuestionType: model.Question.Type,
		Points:       model.Question.Points,
		AnswerText:   model.AnswerText,
		Score:        model.Score,
		Feedback:     model.Feedback,
		SubmittedAt:  model.SubmittedAt,
	}
}

// NewAnswerRecordSlice converts a slice of answer models.
func NewAnswerRecordSlice(answers []models.Answer) []AnswerRecord {
	records := make([]AnswerRecord, 0, len(answers))
	for _, answer := range answers {
		records = append(records, NewAnswerRecord(answer))
	}
	return records
}
