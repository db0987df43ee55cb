package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/examly/exam-go-api/internal/models"
)

// SubmissionRepository is the ledger of finalized exam submissions, one row
// per (exam, student). The composite unique index decides the winner between
// concurrent finalize attempts; the loser surfaces gorm.ErrDuplicatedKey.
type SubmissionRepository interface {
	Exists(ctx context.Context, examID, studentID uint) (bool, error)
	GetByExamAndStudent(ctx context.Context, examID, studentID uint) (models.ExamSubmission, error)
	ListByExam(ctx context.Context, examID uint) ([]models.ExamSubmission, error)
	Finalize(ctx context.Context, submission *models.ExamSubmission, answers []models.Answer) error
	RecalculateTotal(ctx context.Context, examID, studentID uint) (float64, error)
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository instantiates the repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) Exists(ctx context.Context, examID, studentID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.ExamSubmission{}).
		Where("exam_id = ? AND student_id = ?", examID, studentID).
		Count(&count).Error; err != nil {
		return false, err
	}

	return count > 0, nil
}

func (r *submissionRepository) GetByExamAndStudent(ctx context.Context, examID, studentID uint) (models.ExamSubmission, error) {
	var submission models.ExamSubmission
	if err := r.db.WithContext(ctx).
		Where("exam_id = ? AND student_id = ?", examID, studentID).
		First(&submission).Error; err != nil {
		return models.ExamSubmission{}, err
	}

	return submission, nil
}

func (r *submissionRepository) ListByExam(ctx context.Context, examID uint) ([]models.ExamSubmission, error) {
	var submissions []models.ExamSubmission
	if err := r.db.WithContext(ctx).
		Preload("Student").
		Where("exam_id = ?", examID).
		Order("submitted_at ASC").
		Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

// Finalize writes all answer rows of the batch and the ledger record as one
// all-or-nothing unit. When a concurrent call already recorded a submission
// for the same (exam, student), the whole transaction rolls back and the
// duplicate-key error propagates untouched.
func (r *submissionRepository) Finalize(ctx context.Context, submission *models.ExamSubmission, answers []models.Answer) error {
	if submission.SubmittedAt.IsZero() {
		submission.SubmittedAt = time.Now().UTC()
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range answers {
			if answers[i].SubmittedAt.IsZero() {
				answers[i].SubmittedAt = submission.SubmittedAt
			}

			if err := tx.Omit(clause.Associations).
				Clauses(clause.OnConflict{
					Columns:   []clause.Column{{Name: "question_id"}, {Name: "student_id"}},
					DoUpdates: clause.AssignmentColumns([]string{"answer_text", "score", "feedback", "submitted_at"}),
				}).
				Create(&answers[i]).Error; err != nil {
				return err
			}
		}

		return tx.Omit(clause.Associations).Create(submission).Error
	})
}

// RecalculateTotal replaces the stored ledger total with the sum of the
// student's current answer scores for the exam, treating null scores as 0.
// The recomputed sum is returned even when no ledger row exists yet.
func (r *submissionRepository) RecalculateTotal(ctx context.Context, examID, studentID uint) (float64, error) {
	var total float64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		total, err = recalcSubmissionTotal(tx, examID, studentID)
		return err
	})

	return total, err
}

// recalcSubmissionTotal re-derives the aggregate score inside tx and writes it
// to the ledger row when one exists. It never creates a ledger row.
func recalcSubmissionTotal(tx *gorm.DB, examID, studentID uint) (float64, error) {
	var total float64
	if err := tx.Model(&models.Answer{}).
		Select("COALESCE(SUM(answers.score), 0)").
		Joins("JOIN questions ON questions.id = answers.question_id").
		Where("answers.student_id = ? AND questions.exam_id = ?", studentID, examID).
		Scan(&total).Error; err != nil {
		return 0, err
	}

	if err := tx.Model(&models.ExamSubmission{}).
		Where("exam_id = ? AND student_id = ?", examID, studentID).
		UpdateColumn("total_score", total).Error; err != nil {
		return 0, err
	}

	return total, nil
}
