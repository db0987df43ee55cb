package models

import "time"

// Answer is a student's response to one question. At most one live row exists
// per (question, student); re-submission while the exam is open overwrites the
// text and score in place.
type Answer struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	QuestionID  uint      `gorm:"not null;uniqueIndex:idx_answers_question_student" json:"question_id"`
	StudentID   uint      `gorm:"not null;uniqueIndex:idx_answers_question_student" json:"student_id"`
	AnswerText  string    `gorm:"type:text;not null" json:"answer_text"`
	Score       *float64  `json:"score"`
	Feedback    string    `gorm:"type:text" json:"feedback"`
	SubmittedAt time.Time `gorm:"not null" json:"submitted_at"`
	Question    Question  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Student     User      `gorm:"foreignKey:StudentID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// IsGraded reports whether the answer carries a score.
func (a Answer) IsGraded() bool {
	return a.Score != nil
}
