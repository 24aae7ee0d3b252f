package validation

import (
	"regexp"
	"strings"

	"learnhub/internal/domain"
	"learnhub/internal/dto"
)

// Validator provides request validation functionality
type Validator struct{}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateID validates a ULID path or body parameter.
func (v *Validator) ValidateID(field, value string) domain.ValidationErrors {
	var errors domain.ValidationErrors

	if strings.TrimSpace(value) == "" {
		errors = append(errors, domain.NewMissingFieldError(field))
	} else if !isValidULID(value) {
		errors = append(errors, domain.NewInvalidFormatError(field, value))
	}
	return errors
}

// ValidateSubmitAttemptRequest validates a submission payload.
func (v *Validator) ValidateSubmitAttemptRequest(req *dto.SubmitAttemptRequest) domain.ValidationErrors {
	var errors domain.ValidationErrors

	if req == nil || len(req.Answers) == 0 {
		errors = append(errors, domain.NewMissingFieldError("answers"))
		return errors
	}
	if len(req.Answers) > 200 {
		errors = append(errors, domain.NewOutOfRangeError("answers", len(req.Answers), 1, 200))
	}

	for _, a := range req.Answers {
		if idErrs := v.ValidateID("question_id", a.QuestionID); len(idErrs) > 0 {
			errors = append(errors, idErrs...)
		}
		if a.SelectedOptionID != "" && a.BoolAnswer != nil {
			errors = append(errors, domain.NewInvalidFormatError("answers", "answer must carry either an option or a boolean, not both"))
		}
	}
	return errors
}

// ValidateAwardPointsRequest validates bonus/deduction payloads.
func (v *Validator) ValidateAwardPointsRequest(req *dto.AwardPointsRequest) domain.ValidationErrors {
	var errors domain.ValidationErrors

	if req == nil {
		errors = append(errors, domain.NewMissingFieldError("body"))
		return errors
	}
	errors = append(errors, v.ValidateID("user_id", req.UserID)...)
	errors = append(errors, v.ValidateID("course_id", req.CourseID)...)

	if req.Amount <= 0 || req.Amount > 100000 {
		errors = append(errors, domain.NewOutOfRangeError("amount", req.Amount, 1, 100000))
	}
	if len(req.Description) > 500 {
		errors = append(errors, domain.NewOutOfRangeError("description", len(req.Description), 0, 500))
	}
	return errors
}

// ValidateLeaderboardLimit validates the leaderboard window size.
func (v *Validator) ValidateLeaderboardLimit(limit int) domain.ValidationErrors {
	var errors domain.ValidationErrors

	if limit < 0 || limit > 100 {
		errors = append(errors, domain.NewOutOfRangeError("limit", limit, 0, 100))
	}
	return errors
}

// isValidULID checks if the string is a valid ULID format
func isValidULID(s string) bool {
	// ULID is 26 characters long, base32 encoded (Crockford's Base32)
	if len(s) != 26 {
		return false
	}
	validULID := regexp.MustCompile(`^[0-9A-HJKMNP-TV-Z]{26}$`)
	return validULID.MatchString(s)
}
