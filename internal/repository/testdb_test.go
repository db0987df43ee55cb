package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/examly/exam-go-api/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Exam{},
		&models.Question{},
		&models.Answer{},
		&models.ExamSubmission{},
		&models.ActivityLog{},
	))

	return db
}

func seedExam(t *testing.T, db *gorm.DB, teacherID uint) models.Exam {
	t.Helper()

	exam := models.Exam{
		TeacherID: teacherID,
		Title:     "Midterm",
		StartTime: time.Now().Add(-time.Hour),
		EndTime:   time.Now().Add(time.Hour),
	}
	require.NoError(t, db.Create(&exam).Error)
	return exam
}

func seedQuestion(t *testing.T, db *gorm.DB, examID uint, questionType string, points float64, correct string) models.Question {
	t.Helper()

	question := models.Question{
		ExamID: examID,
		Text:   "Question for " + questionType,
		Type:   questionType,
		Points: points,
	}
	if correct != "" {
		question.CorrectAnswer = &correct
	}
	require.NoError(t, db.Create(&question).Error)
	return question
}

func seedUser(t *testing.T, db *gorm.DB, role string, email string) models.User {
	t.Helper()

	user := models.User{Name: "Test " + role, Email: email, PasswordHash: "x", Role: role}
	require.NoError(t, db.Create(&user).Error)
	return user
}
