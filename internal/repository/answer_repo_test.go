package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/examly/exam-go-api/internal/models"
)

func TestAnswerRepositoryUpsertOverwritesExistingRow(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAnswerRepository(db)

	teacher := seedUser(t, db, models.RoleTeacher, "teacher@example.com")
	student := seedUser(t, db, models.RoleStudent, "student@example.com")
	exam := seedExam(t, db, teacher.ID)
	question := seedQuestion(t, db, exam.ID, models.QuestionTypeFillBlank, 5, "paris")

	first := models.Answer{QuestionID: question.ID, StudentID: student.ID, AnswerText: "london"}
	require.NoError(t, repo.Upsert(context.Background(), &first))

	second := models.Answer{QuestionID: question.ID, StudentID: student.ID, AnswerText: "paris"}
	require.NoError(t, repo.Upsert(context.Background(), &second))

	var count int64
	require.NoError(t, db.Model(&models.Answer{}).
		Where("question_id = ? AND student_id = ?", question.ID, student.ID).
		Count(&count).Error)
	require.Equal(t, int64(1), count, "re-submission must overwrite, not duplicate")

	var stored models.Answer
	require.NoError(t, db.Where("question_id = ? AND student_id = ?", question.ID, student.ID).First(&stored).Error)
	require.Equal(t, "paris", stored.AnswerText)
	require.Nil(t, stored.Score, "autosave never writes scores")
}

func TestAnswerRepositoryListByStudentAndExam(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAnswerRepository(db)

	teacher := seedUser(t, db, models.RoleTeacher, "teacher@example.com")
	student := seedUser(t, db, models.RoleStudent, "student@example.com")
	other := seedUser(t, db, models.RoleStudent, "other@example.com")
	exam := seedExam(t, db, teacher.ID)
	q1 := seedQuestion(t, db, exam.ID, models.QuestionTypeTrueFalse, 2, "true")
	q2 := seedQuestion(t, db, exam.ID, models.QuestionTypeShortAnswer, 10, "")

	require.NoError(t, repo.Upsert(context.Background(), &models.Answer{QuestionID: q1.ID, StudentID: student.ID, AnswerText: "true"}))
	require.NoError(t, repo.Upsert(context.Background(), &models.Answer{QuestionID: q2.ID, StudentID: student.ID, AnswerText: "free text"}))
	require.NoError(t, repo.Upsert(context.Background(), &models.Answer{QuestionID: q1.ID, StudentID: other.ID, AnswerText: "false"}))

	answers, err := repo.ListByStudentAndExam(context.Background(), student.ID, exam.ID)
	require.NoError(t, err)
	require.Len(t, answers, 2)
	require.Equal(t, q1.ID, answers[0].QuestionID)
	require.Equal(t, models.QuestionTypeTrueFalse, answers[0].Question.Type)
}

func TestAnswerRepositoryApplyScoreUpdatesRecalculatesLedger(t *testing.T) {
	db := setupTestDB(t)
	answers := NewAnswerRepository(db)
	submissions := NewSubmissionRepository(db)

	teacher := seedUser(t, db, models.RoleTeacher, "teacher@example.com")
	student := seedUser(t, db, models.RoleStudent, "student@example.com")
	exam := seedExam(t, db, teacher.ID)
	q1 := seedQuestion(t, db, exam.ID, models.QuestionTypeShortAnswer, 10, "")
	q2 := seedQuestion(t, db, exam.ID, models.QuestionTypeFillBlank, 5, "paris")

	five := 5.0
	batch := []models.Answer{
		{QuestionID: q1.ID, StudentID: student.ID, AnswerText: "essay"},
		{QuestionID: q2.ID, StudentID: student.ID, AnswerText: "paris", Score: &five},
	}
	submission := models.ExamSubmission{ExamID: exam.ID, StudentID: student.ID, TotalScore: 5, SubmittedAt: time.Now()}
	require.NoError(t, submissions.Finalize(context.Background(), &submission, batch))

	var stored models.Answer
	require.NoError(t, db.Where("question_id = ?", q1.ID).First(&stored).Error)

	err := answers.ApplyScoreUpdates(context.Background(), []ScoreUpdate{{
		AnswerID:  stored.ID,
		ExamID:    exam.ID,
		StudentID: student.ID,
		Score:     8,
		Feedback:  "good reasoning",
	}})
	require.NoError(t, err)

	ledger, err := submissions.GetByExamAndStudent(context.Background(), exam.ID, student.ID)
	require.NoError(t, err)
	require.Equal(t, 13.0, ledger.TotalScore)

	require.NoError(t, db.Where("question_id = ?", q1.ID).First(&stored).Error)
	require.NotNil(t, stored.Score)
	require.Equal(t, 8.0, *stored.Score)
	require.Equal(t, "good reasoning", stored.Feedback)
}

func TestAnswerRepositoryApplyScoreUpdatesUnknownAnswerRollsBack(t *testing.T) {
	db := setupTestDB(t)
	answers := NewAnswerRepository(db)

	teacher := seedUser(t, db, models.RoleTeacher, "teacher@example.com")
	student := seedUser(t, db, models.RoleStudent, "student@example.com")
	exam := seedExam(t, db, teacher.ID)
	q1 := seedQuestion(t, db, exam.ID, models.QuestionTypeShortAnswer, 10, "")

	require.NoError(t, answers.Upsert(context.Background(), &models.Answer{QuestionID: q1.ID, StudentID: student.ID, AnswerText: "essay"}))
	var stored models.Answer
	require.NoError(t, db.Where("question_id = ?", q1.ID).First(&stored).Error)

	err := answers.ApplyScoreUpdates(context.Background(), []ScoreUpdate{
		{AnswerID: stored.ID, ExamID: exam.ID, StudentID: student.ID, Score: 7},
		{AnswerID: 9999, ExamID: exam.ID, StudentID: student.ID, Score: 3},
	})
	require.Error(t, err)

	require.NoError(t, db.Where("question_id = ?", q1.ID).First(&stored).Error)
	require.Nil(t, stored.Score, "partial batch must roll back entirely")
}
