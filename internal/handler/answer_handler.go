package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/examly/exam-go-api/internal/dto"
	"github.com/examly/exam-go-api/internal/service"
	"github.com/examly/exam-go-api/internal/utils"
)

// AnswerHandler serves answer autosave and exam finalization endpoints.
type AnswerHandler struct {
	service service.SubmissionService
	logger  zerolog.Logger
}

// NewAnswerHandler builds an answer handler instance.
func NewAnswerHandler(service service.SubmissionService, logger zerolog.Logger) *AnswerHandler {
	return &AnswerHandler{
		service: service,
		logger:  logger.With().Str("component", "answer_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *AnswerHandler) Register(router fiber.Router) {
	router.Post("", h.submitOne)
	router.Post("/batch", h.submitBatch)
	router.Get("/exam/:examId", h.examAnswers)
}

func (h *AnswerHandler) submitOne(c *fiber.Ctx) error {
	var payload dto.SubmitAnswerRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	answer, err := h.service.SubmitOne(c.Context(), userIDFromContext(c), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "answer saved", answer)
}

func (h *AnswerHandler) submitBatch(c *fiber.Ctx) error {
	var payload dto.SubmitBatchRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.service.SubmitBatch(c.Context(), userIDFromContext(c), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "exam submitted", result)
}

func (h *AnswerHandler) examAnswers(c *fiber.Ctx) error {
	examID, err := parseUintParam(c, "examId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	answers, err := h.service.GetExamAnswers(c.Context(), userIDFromContext(c), examID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "answers retrieved", answers)
}

func (h *AnswerHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrQuestionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "question not found")
	case errors.Is(err, service.ErrExamNotActive):
		return utils.SendError(c, fiber.StatusForbidden, "exam has not started yet")
	case errors.Is(err, service.ErrExamEnded):
		return utils.SendError(c, fiber.StatusForbidden, "exam has ended")
	case errors.Is(err, service.ErrAlreadySubmitted):
		return utils.SendError(c, fiber.StatusConflict, "exam already submitted")
	case errors.Is(err, service.ErrMixedExamBatch):
		return utils.SendError(c, fiber.StatusBadRequest, "batch mixes questions from different exams")
	case errors.Is(err, service.ErrInvalidAnswerFormat), errors.Is(err, service.ErrUnknownQuestionType):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
