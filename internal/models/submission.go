package models

import "time"

// ExamSubmission is the ledger record marking that a student finalized an
// exam. Creation is a one-time event per (exam, student); the composite
// unique index is what arbitrates concurrent finalize attempts.
type ExamSubmission struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ExamID      uint      `gorm:"not null;uniqueIndex:idx_submissions_exam_student" json:"exam_id"`
	StudentID   uint      `gorm:"not null;uniqueIndex:idx_submissions_exam_student" json:"student_id"`
	TotalScore  float64   `gorm:"not null" json:"total_score"`
	SubmittedAt time.Time `gorm:"not null" json:"submitted_at"`
	Exam        Exam      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Student     User      `gorm:"foreignKey:StudentID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}
