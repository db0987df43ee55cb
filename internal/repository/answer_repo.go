package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/examly/exam-go-api/internal/models"
)

// AnswerFilter narrows teacher-facing answer queries.
type AnswerFilter struct {
	ExamID    *uint
	StudentID *uint
	// Pending selects ungraded answers when true, graded answers when false.
	Pending *bool
	Limit   int
}

// ScoreUpdate describes one answer score override together with the ledger
// pair whose total must be recomputed.
type ScoreUpdate struct {
	AnswerID  uint
	ExamID    uint
	StudentID uint
	Score     float64
	Feedback  string
}

// AnswerRepository defines data operations for student answers.
type AnswerRepository interface {
	GetByID(ctx context.Context, id uint) (models.Answer, error)
	ListByStudentAndExam(ctx context.Context, studentID, examID uint) ([]models.Answer, error)
	ListForTeacher(ctx context.Context, teacherID uint, filter AnswerFilter) ([]models.Answer, error)
	Upsert(ctx context.Context, answer *models.Answer) error
	ApplyScoreUpdates(ctx context.Context, updates []ScoreUpdate) error
}

type answerRepository struct {
	db *gorm.DB
}

// NewAnswerRepository instantiates the repository.
func NewAnswerRepository(db *gorm.DB) AnswerRepository {
	return &answerRepository{db: db}
}

func (r *answerRepository) GetByID(ctx context.Context, id uint) (models.Answer, error) {
	var answer models.Answer
	if err := r.db.WithContext(ctx).
		Preload("Question").
		Preload("Question.Exam").
		Preload("Student").
		First(&answer, id).Error; err != nil {
		return models.Answer{}, err
	}

	return answer, nil
}

func (r *answerRepository) ListByStudentAndExam(ctx context.Context, studentID, examID uint) ([]models.Answer, error) {
	var answers []models.Answer
	if err := r.db.WithContext(ctx).
		Preload("Question").
		Joins("JOIN questions ON questions.id = answers.question_id").
		Where("answers.student_id = ? AND questions.exam_id = ?", studentID, examID).
		Order("questions.id ASC").
		Find(&answers).Error; err != nil {
		return nil, err
	}

	return answers, nil
}

func (r *answerRepository) ListForTeacher(ctx context.Context, teacherID uint, filter AnswerFilter) ([]models.Answer, error) {
	query := r.db.WithContext(ctx).
		Preload("Question").
		Preload("Question.Exam").
		Preload("Student").
		Joins("JOIN questions ON questions.id = answers.question_id").
		Joins("JOIN exams ON exams.id = questions.exam_id").
		Where("exams.teacher_id = ?", teacherID)

	if filter.ExamID != nil {
		query = query.Where("exams.id = ?", *filter.ExamID)
	}
	if filter.StudentID != nil {
		query = query.Where("answers.student_id = ?", *filter.StudentID)
	}
	if filter.Pending != nil {
		if *filter.Pending {
			query = query.Where("answers.score IS NULL")
		} else {
			query = query.Where("answers.score IS NOT NULL")
		}
	}

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	var answers []models.Answer
	if err := query.
		Order("answers.submitted_at DESC").
		Limit(limit).
		Find(&answers).Error; err != nil {
		return nil, err
	}

	return answers, nil
}

// Upsert is the autosave write: it inserts the answer or, when a row for
// (question, student) already exists, overwrites only the text and the
// submission instant. Scores are written exclusively by the finalize and
// regrade paths.
func (r *answerRepository) Upsert(ctx context.Context, answer *models.Answer) error {
	if answer.SubmittedAt.IsZero() {
		answer.SubmittedAt = time.Now().UTC()
	}

	return r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "question_id"}, {Name: "student_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"answer_text", "submitted_at"}),
		}).
		Create(answer).Error
}

// ApplyScoreUpdates persists a set of score overrides and recomputes the
// ledger total of every touched (exam, student) pair in a single transaction.
func (r *answerRepository) ApplyScoreUpdates(ctx context.Context, updates []ScoreUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		type ledgerPair struct {
			examID    uint
			studentID uint
		}
		touched := make(map[ledgerPair]struct{}, len(updates))

		for _, update := range updates {
			changes := map[string]interface{}{"score": update.Score}
			if update.Feedback != "" {
				changes["feedback"] = update.Feedback
			}

			result := tx.Model(&models.Answer{}).
				Where("id = ?", update.AnswerID).
				Updates(changes)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return gorm.ErrRecordNotFound
			}

			touched[ledgerPair{update.ExamID, update.StudentID}] = struct{}{}
		}

		for pair := range touched {
			if _, err := recalcSubmissionTotal(tx, pair.examID, pair.studentID); err != nil {
				return err
			}
		}

		return nil
	})
}
