package dto

import "github.com/examly/exam-go-api/internal/models"

// QuestionCreateRequest describes the payload for adding a question to an exam.
type QuestionCreateRequest struct {
	Text          string  `json:"question_text" validate:"required,min=3"`
	Type          string  `json:"question_type" validate:"required,oneof=true_false fill_blank short_answer"`
	Points        float64 `json:"points" validate:"required,gt=0"`
	CorrectAnswer *string `json:"correct_answer"`
}

// QuestionUpdateRequest describes the payload for editing a question before
// its exam starts.
type QuestionUpdateRequest struct {
	Text          *string  `json:"question_text" validate:"omitempty,min=3"`
	Points        *float64 `json:"points" validate:"omitempty,gt=0"`
	CorrectAnswer *string  `json:"correct_answer"`
}

// QuestionResponse is the serialized question. CorrectAnswer stays nil in
// student-facing views while the exam is still open.
type QuestionResponse struct {
	ID            uint    `json:"id"`
	ExamID        uint    `json:"exam_id"`
	Text          string  `json:"question_text"`
	Type          string  `json:"question_type"`
	Points        float64 `json:"points"`
	CorrectAnswer *string `json:"correct_answer,omitempty"`
}

// NewQuestionResponse converts a question model. The reference answer is
// only included when revealAnswer is set.
func NewQuestionResponse(model models.Question, revealAnswer bool) QuestionResponse {
	response := QuestionResponse{
		ID:     model.ID,
		ExamID: model.ExamID,
		Text:   model.Text,
		Type:   model.Type,
		Points: model.Points,
	}
	if revealAnswer {
		response.CorrectAnswer = model.CorrectAnswer
	}
	return response
}

// NewQuestionResponseSlice converts a slice of question models.
func NewQuestionResponseSlice(questions []models.Question, revealAnswers bool) []QuestionResponse {
	responses := make([]QuestionResponse, 0, len(questions))
	for _, question := range questions {
		responses = append(responses, NewQuestionResponse(question, revealAnswers))
	}
	return responses
}
