package handler

import (
	"learnhub/internal/dto"
	"learnhub/internal/middleware"
	"learnhub/internal/service"
	"learnhub/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// AssessmentHandler handles quiz attempt HTTP requests.
type AssessmentHandler struct {
	service   service.AssessmentService
	validator *validation.Validator
}

// NewAssessmentHandler creates a new AssessmentHandler instance
func NewAssessmentHandler(service service.AssessmentService, validator *validation.Validator) *AssessmentHandler {
	return &AssessmentHandler{
		service:   service,
		validator: validator,
	}
}

// StartAttempt handles POST /quizzes/:quizId/attempts
func (h *AssessmentHandler) StartAttempt(c *fiber.Ctx) error {
	quizID := c.Params("quizId")
	if errs := h.validator.ValidateID("quizId", quizID); len(errs) > 0 {
		return errs
	}

	resp, err := h.service.StartAttempt(c.Context(), quizID, middleware.UserID(c))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// SubmitAttempt handles POST /attempts/:attemptId/submit
func (h *AssessmentHandler) SubmitAttempt(c *fiber.Ctx) error {
	attemptID := c.Params("attemptId")
	if errs := h.validator.ValidateID("attemptId", attemptID); len(errs) > 0 {
		return errs
	}

	var req dto.SubmitAttemptRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if errs := h.validator.ValidateSubmitAttemptRequest(&req); len(errs) > 0 {
		return errs
	}

	resp, err := h.service.SubmitAttempt(c.Context(), attemptID, middleware.UserID(c), &req)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}
