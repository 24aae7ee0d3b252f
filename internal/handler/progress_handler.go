package handler

import (
	"learnhub/internal/dto"
	"learnhub/internal/middleware"
	"learnhub/internal/service"
	"learnhub/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// ProgressHandler handles hierarchy traversal and completion requests.
type ProgressHandler struct {
	service   service.ProgressService
	validator *validation.Validator
}

// NewProgressHandler creates a new ProgressHandler instance
func NewProgressHandler(service service.ProgressService, validator *validation.Validator) *ProgressHandler {
	return &ProgressHandler{
		service:   service,
		validator: validator,
	}
}

// CanAccess handles GET /nodes/:nodeId/access
func (h *ProgressHandler) CanAccess(c *fiber.Ctx) error {
	nodeID := c.Params("nodeId")
	if errs := h.validator.ValidateID("nodeId", nodeID); len(errs) > 0 {
		return errs
	}

	ok, err := h.service.CanAccess(c.Context(), middleware.UserID(c), nodeID)
	if err != nil {
		return err
	}

	return c.JSON(dto.CanAccessResponse{
		NodeID:    nodeID,
		CanAccess: ok,
	})
}

// CompleteSection handles POST /sections/:sectionId/complete
func (h *ProgressHandler) CompleteSection(c *fiber.Ctx) error {
	sectionID := c.Params("sectionId")
	if errs := h.validator.ValidateID("sectionId", sectionID); len(errs) > 0 {
		return errs
	}

	resp, err := h.service.CompleteSection(c.Context(), middleware.UserID(c), sectionID)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

// StartContent handles POST /contents/:contentId/start
func (h *ProgressHandler) StartContent(c *fiber.Ctx) error {
	contentID := c.Params("contentId")
	if errs := h.validator.ValidateID("contentId", contentID); len(errs) > 0 {
		return errs
	}

	resp, err := h.service.StartContent(c.Context(), middleware.UserID(c), contentID)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// EndContent handles POST /contents/:contentId/end
func (h *ProgressHandler) EndContent(c *fiber.Ctx) error {
	contentID := c.Params("contentId")
	if errs := h.validator.ValidateID("contentId", contentID); len(errs) > 0 {
		return errs
	}

	resp, err := h.service.EndContent(c.Context(), middleware.UserID(c), contentID)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}
