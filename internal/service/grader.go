package service

import (
	"errors"
	"strings"

	"github.com/examly/exam-go-api/internal/models"
)

// ErrInvalidAnswerFormat indicates the raw answer cannot be interpreted for
// the question's type; the answer row is not written.
var ErrInvalidAnswerFormat = errors.New("invalid answer format")

// ErrUnknownQuestionType indicates an unsupported question type value.
var ErrUnknownQuestionType = errors.New("unknown question type")

// GradeResult is the outcome of normalizing and auto-grading one raw answer.
// Score stays nil for answers that await manual grading.
type GradeResult struct {
	NormalizedText string
	Score          *float64
}

// AnswerGrader normalizes a raw answer and applies the binary auto-grading
// rule of the question's type. No partial credit: an auto-graded answer is
// worth either the full point value or zero.
type AnswerGrader interface {
	Grade(question models.Question, rawText string) (GradeResult, error)
}

type answerGrader struct{}

// NewAnswerGrader constructs the deterministic grader.
func NewAnswerGrader() AnswerGrader {
	return answerGrader{}
}

func (answerGrader) Grade(question models.Question, rawText string) (GradeResult, error) {
	switch question.Type {
	case models.QuestionTypeTrueFalse:
		normalized := strings.ToLower(rawText)
		if normalized != "true" && normalized != "false" {
			return GradeResult{}, ErrInvalidAnswerFormat
		}

		score := 0.0
		if question.CorrectAnswer != nil && normalized == strings.ToLower(*question.CorrectAnswer) {
			score = question.Points
		}
		return GradeResult{NormalizedText: normalized, Score: &score}, nil

	case models.QuestionTypeFillBlank:
		if rawText == "" {
			return GradeResult{}, ErrInvalidAnswerFormat
		}

		normalized := strings.TrimSpace(rawText)
		score := 0.0
		if question.CorrectAnswer != nil && strings.EqualFold(normalized, *question.CorrectAnswer) {
			score = question.Points
		}
		return GradeResult{NormalizedText: normalized, Score: &score}, nil

	case models.QuestionTypeShortAnswer:
		// Free text is stored verbatim and waits for a teacher.
		return GradeResult{NormalizedText: rawText}, nil

	default:
		return GradeResult{}, ErrUnknownQuestionType
	}
}
