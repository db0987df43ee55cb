package models

import "time"

// Exam is a scheduled, time-bounded collection of questions owned by a teacher.
type Exam struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	TeacherID   uint       `gorm:"not null;index" json:"teacher_id"`
	Title       string     `gorm:"size:255;not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	StartTime   time.Time  `gorm:"not null" json:"start_time"`
	EndTime     time.Time  `gorm:"not null" json:"end_time"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Questions   []Question `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"questions,omitempty"`
}

// ExamStatus describes where an exam sits relative to its time window.
type ExamStatus string

const (
	// ExamStatusUpcoming means the window has not opened yet.
	ExamStatusUpcoming ExamStatus = "upcoming"
	// ExamStatusActive means the current instant is inside the window, boundaries inclusive.
	ExamStatusActive ExamStatus = "active"
	// ExamStatusEnded means the window has closed.
	ExamStatusEnded ExamStatus = "ended"
)

// WindowStatus evaluates the exam window at the given instant.
func WindowStatus(now, start, end time.Time) ExamStatus {
	switch {
	case now.Before(start):
		return ExamStatusUpcoming
	case now.After(end):
		return ExamStatusEnded
	default:
		return ExamStatusActive
	}
}

// WindowRemaining reports how long until the window closes (or opens, when
// upcoming). Zero once the exam has ended.
func WindowRemaining(now, start, end time.Time) time.Duration {
	switch WindowStatus(now, start, end) {
	case ExamStatusUpcoming:
		return start.Sub(now)
	case ExamStatusActive:
		return end.Sub(now)
	default:
		return 0
	}
}

// StatusAt evaluates the exam's window status at the given instant.
func (e Exam) StatusAt(now time.Time) ExamStatus {
	return WindowStatus(now, e.StartTime, e.EndTime)
}

// RemainingAt reports the remaining window duration at the given instant.
func (e Exam) RemainingAt(now time.Time) time.Duration {
	return WindowRemaining(now, e.StartTime, e.EndTime)
}

// IsActiveAt reports whether answers may be submitted at the given instant.
func (e Exam) IsActiveAt(now time.Time) bool {
	return e.StatusAt(now) == ExamStatusActive
}
