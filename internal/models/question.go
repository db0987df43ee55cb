package models

import "time"

// Question is a single gradable prompt belonging to one exam.
type Question struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	ExamID        uint      `gorm:"not null;index" json:"exam_id"`
	Text          string    `gorm:"type:text;not null" json:"question_text"`
	Type          string    `gorm:"size:32;not null" json:"question_type"`
	Points        float64   `gorm:"not null" json:"points"`
	CorrectAnswer *string   `gorm:"size:1024" json:"correct_answer,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	Exam          Exam      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

const (
	// QuestionTypeTrueFalse auto-grades against a true/false reference answer.
	QuestionTypeTrueFalse = "true_false"
	// QuestionTypeFillBlank auto-grades with a trimmed, case-insensitive match.
	QuestionTypeFillBlank = "fill_blank"
	// QuestionTypeShortAnswer is free text that always awaits manual grading.
	QuestionTypeShortAnswer = "short_answer"
)

// ValidQuestionType reports whether the given type is one of the supported kinds.
func ValidQuestionType(t string) bool {
	switch t {
	case QuestionTypeTrueFalse, QuestionTypeFillBlank, QuestionTypeShortAnswer:
		return true
	default:
		return false
	}
}

// RequiresCorrectAnswer reports whether the question type needs a reference answer.
func RequiresCorrectAnswer(t string) bool {
	return t == QuestionTypeTrueFalse || t == QuestionTypeFillBlank
}
