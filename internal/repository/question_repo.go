package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/examly/exam-go-api/internal/models"
)

// QuestionRepository defines data operations for questions.
type QuestionRepository interface {
	GetByID(ctx context.Context, id uint) (models.Question, error)
	ListByExam(ctx context.Context, examID uint) ([]models.Question, error)
	Create(ctx context.Context, question *models.Question) error
	Update(ctx context.Context, question *models.Question) error
	Delete(ctx context.Context, id uint) error
}

type questionRepository struct {
	db *gorm.DB
}

// NewQuestionRepository instantiates the repository.
func NewQuestionRepository(db *gorm.DB) QuestionRepository {
	return &questionRepository{db: db}
}

func (r *questionRepository) GetByID(ctx context.Context, id uint) (models.Question, error) {
	var question models.Question
	if err := r.db.WithContext(ctx).
		Preload("Exam").
		First(&question, id).Error; err != nil {
		return models.Question{}, err
	}

	return question, nil
}

func (r *questionRepository) ListByExam(ctx context.Context, examID uint) ([]models.Question, error) {
	var questions []models.Question
	if err := r.db.WithContext(ctx).
		Where("exam_id = ?", examID).
		Order("id ASC").
		Find(&questions).Error; err != nil {
		return nil, err
	}

	return questions, nil
}

func (r *questionRepository) Create(ctx context.Context, question *models.Question) error {
	return r.db.WithContext(ctx).Create(question).Error
}

func (r *questionRepository) Update(ctx context.Context, question *models.Question) error {
	return r.db.WithContext(ctx).Save(question).Error
}

func (r *questionRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Question{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
