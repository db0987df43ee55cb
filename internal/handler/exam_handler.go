package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/examly/exam-go-api/internal/service"
	"github.com/examly/exam-go-api/internal/utils"
)

// ExamHandler serves the student-facing exam endpoints.
type ExamHandler struct {
	exams   service.ExamService
	results service.ResultsService
	logger  zerolog.Logger
}

// NewExamHandler builds an exam handler instance.
func NewExamHandler(exams service.ExamService, results service.ResultsService, logger zerolog.Logger) *ExamHandler {
	return &ExamHandler{
		exams:   exams,
		results: results,
		logger:  logger.With().Str("component", "exam_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *ExamHandler) Register(router fiber.Router) {
	router.Get("", h.listAvailable)
	router.Get("/ended", h.listEnded)
	router.Get("/:id", h.detail)
	router.Get("/:id/result", h.result)
}

func (h *ExamHandler) listAvailable(c *fiber.Ctx) error {
	exams, err := h.exams.ListAvailable(c.Context())
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "exams retrieved", exams)
}

func (h *ExamHandler) listEnded(c *fiber.Ctx) error {
	exams, err := h.exams.ListEnded(c.Context())
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "exams retrieved", exams)
}

func (h *ExamHandler) detail(c *fiber.Ctx) error {
	examID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	detail, err := h.exams.GetForStudent(c.Context(), userIDFromContext(c), examID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "exam retrieved", detail)
}

func (h *ExamHandler) result(c *fiber.Ctx) error {
	examID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.results.GetExamResult(c.Context(), userIDFromContext(c), examID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "result retrieved", result)
}

func (h *ExamHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrExamNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "exam not found")
	case errors.Is(err, service.ErrExamNotEnded):
		return utils.SendError(c, fiber.StatusConflict, "exam has not ended yet")
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
