package models

import "time"

// User represents an authenticated principal, either a student or a teacher.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"size:255;not null" json:"name"`
	Email        string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Role         string    `gorm:"size:32;not null" json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

const (
	// RoleStudent marks a user that takes exams.
	RoleStudent = "student"
	// RoleTeacher marks a user that authors and grades exams.
	RoleTeacher = "teacher"
)
