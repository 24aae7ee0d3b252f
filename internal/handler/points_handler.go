package handler

import (
	"learnhub/internal/domain"
	"learnhub/internal/dto"
	"learnhub/internal/middleware"
	"learnhub/internal/service"
	"learnhub/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// PointsHandler handles points ledger and leaderboard HTTP requests.
type PointsHandler struct {
	points    service.PointsService
	ranking   service.RankingService
	validator *validation.Validator
}

// NewPointsHandler creates a new PointsHandler instance
func NewPointsHandler(points service.PointsService, ranking service.RankingService, validator *validation.Validator) *PointsHandler {
	return &PointsHandler{
		points:    points,
		ranking:   ranking,
		validator: validator,
	}
}

// GetCoursePoints handles GET /courses/:courseId/points
func (h *PointsHandler) GetCoursePoints(c *fiber.Ctx) error {
	courseID := c.Params("courseId")
	if errs := h.validator.ValidateID("courseId", courseID); len(errs) > 0 {
		return errs
	}

	cp, err := h.points.GetCoursePoints(c.Context(), middleware.UserID(c), courseID)
	if err != nil {
		return err
	}
	return c.JSON(toCoursePointsResponse(cp))
}

// AwardBonus handles POST /points/bonus. Instructor or admin only.
func (h *PointsHandler) AwardBonus(c *fiber.Ctx) error {
	req, errs := h.parseAwardRequest(c)
	if len(errs) > 0 {
		return errs
	}

	tx, err := h.points.AwardBonus(c.Context(), req.UserID, req.CourseID, req.Amount, middleware.UserID(c), req.Description)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(toTransactionResponse(tx))
}

// DeductPoints handles POST /points/deduction. Instructor or admin only.
func (h *PointsHandler) DeductPoints(c *fiber.Ctx) error {
	req, errs := h.parseAwardRequest(c)
	if len(errs) > 0 {
		return errs
	}

	tx, err := h.points.DeductPoints(c.Context(), req.UserID, req.CourseID, req.Amount, middleware.UserID(c), req.Description)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(toTransactionResponse(tx))
}

// Recalculate handles POST /courses/:courseId/points/:userId/recalculate.
// Admin only.
func (h *PointsHandler) Recalculate(c *fiber.Ctx) error {
	courseID := c.Params("courseId")
	userID := c.Params("userId")
	var errs domain.ValidationErrors
	errs = append(errs, h.validator.ValidateID("courseId", courseID)...)
	errs = append(errs, h.validator.ValidateID("userId", userID)...)
	if len(errs) > 0 {
		return errs
	}

	cp, err := h.points.Recalculate(c.Context(), userID, courseID)
	if err != nil {
		return err
	}
	return c.JSON(toCoursePointsResponse(cp))
}

// Leaderboard handles GET /courses/:courseId/leaderboard
func (h *PointsHandler) Leaderboard(c *fiber.Ctx) error {
	courseID := c.Params("courseId")
	if errs := h.validator.ValidateID("courseId", courseID); len(errs) > 0 {
		return errs
	}
	limit := c.QueryInt("limit", 0)
	if errs := h.validator.ValidateLeaderboardLimit(limit); len(errs) > 0 {
		return errs
	}

	resp, err := h.ranking.Leaderboard(c.Context(), courseID, middleware.UserID(c), limit)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

func (h *PointsHandler) parseAwardRequest(c *fiber.Ctx) (*dto.AwardPointsRequest, domain.ValidationErrors) {
	var req dto.AwardPointsRequest
	if err := c.BodyParser(&req); err != nil {
		return nil, domain.ValidationErrors{domain.NewInvalidFormatError("body", "malformed JSON")}
	}
	if errs := h.validator.ValidateAwardPointsRequest(&req); len(errs) > 0 {
		return nil, errs
	}
	return &req, nil
}

func toCoursePointsResponse(cp *domain.CoursePoints) dto.CoursePointsResponse {
	return dto.CoursePointsResponse{
		UserID:        cp.UserID,
		CourseID:      cp.CourseID,
		TotalPoints:   cp.TotalPoints,
		QuizPoints:    cp.QuizPoints,
		BonusPoints:   cp.BonusPoints,
		PenaltyPoints: cp.PenaltyPoints,
		CurrentRank:   cp.CurrentRank,
		LastUpdated:   cp.LastUpdated,
	}
}

func toTransactionResponse(tx *domain.PointTransaction) dto.PointTransactionResponse {
	return dto.PointTransactionResponse{
		ID:            tx.ID,
		PointsChanged: tx.PointsChanged,
		PointsAfter:   tx.PointsAfter,
		Source:        string(tx.Source),
		CreatedAt:     tx.CreatedAt,
	}
}
