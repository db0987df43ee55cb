package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/examly/exam-go-api/internal/models"
)

// ExamRepository defines data operations for exams.
type ExamRepository interface {
	GetByID(ctx context.Context, id uint) (models.Exam, error)
	GetWithQuestions(ctx context.Context, id uint) (models.Exam, error)
	ListOpenOrUpcoming(ctx context.Context, now time.Time) ([]models.Exam, error)
	ListEnded(ctx context.Context, now time.Time) ([]models.Exam, error)
	ListByTeacher(ctx context.Context, teacherID uint) ([]models.Exam, error)
	Create(ctx context.Context, exam *models.Exam) error
	Update(ctx context.Context, exam *models.Exam) error
	Delete(ctx context.Context, id uint) error
}

type examRepository struct {
	db *gorm.DB
}

// NewExamRepository instantiates the repository.
func NewExamRepository(db *gorm.DB) ExamRepository {
	return &examRepository{db: db}
}

func (r *examRepository) GetByID(ctx context.Context, id uint) (models.Exam, error) {
	var exam models.Exam
	if err := r.db.WithContext(ctx).First(&exam, id).Error; err != nil {
		return models.Exam{}, err
	}

	return exam, nil
}

func (r *examRepository) GetWithQuestions(ctx context.Context, id uint) (models.Exam, error) {
	var exam models.Exam
	if err := r.db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("questions.id ASC")
		}).
		First(&exam, id).Error; err != nil {
		return models.Exam{}, err
	}

	return exam, nil
}

func (r *examRepository) ListOpenOrUpcoming(ctx context.Context, now time.Time) ([]models.Exam, error) {
	var exams []models.Exam
	if err := r.db.WithContext(ctx).
		Where("end_time >= ?", now).
		Order("start_time ASC").
		Find(&exams).Error; err != nil {
		return nil, err
	}

	return exams, nil
}

func (r *examRepository) ListEnded(ctx context.Context, now time.Time) ([]models.Exam, error) {
	var exams []models.Exam
	if err := r.db.WithContext(ctx).
		Where("end_time < ?", now).
		Order("end_time DESC").
		Find(&exams).Error; err != nil {
		return nil, err
	}

	return exams, nil
}

func (r *examRepository) ListByTeacher(ctx context.Context, teacherID uint) ([]models.Exam, error) {
	var exams []models.Exam
	if err := r.db.WithContext(ctx).
		Where("teacher_id = ?", teacherID).
		Order("created_at DESC").
		Find(&exams).Error; err != nil {
		return nil, err
	}

	return exams, nil
}

func (r *examRepository) Create(ctx context.Context, exam *models.Exam) error {
	return r.db.WithContext(ctx).Create(exam).Error
}

func (r *examRepository) Update(ctx context.Context, exam *models.Exam) error {
	return r.db.WithContext(ctx).Save(exam).Error
}

func (r *examRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Exam{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
