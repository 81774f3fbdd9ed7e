package handlers

import (
	"context"
	"log"
	"time"

	"progress-service/internal/middleware"
	"progress-service/internal/models"
	"progress-service/internal/services"

	"github.com/gofiber/fiber/v3"
)

type SubmissionHandler struct {
	submissionService *services.SubmissionService
}

func NewSubmissionHandler(submissionService *services.SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{
		submissionService: submissionService,
	}
}

func (h *SubmissionHandler) RegisterRoutes(app *fiber.App) {
	protectedGroup := app.Group("/protected/submissions")

	protectedGroup.Post("/", h.SubmitQuestionnaire, middleware.PermissionRequired(middleware.WriteSubmissionPermission))
	protectedGroup.Get("/questionnaire/:questionnaireId/attempts", h.GetAttemptCount, middleware.PermissionRequired(middleware.ReadSubmissionPermission))
	protectedGroup.Get("/questionnaire/:questionnaireId", h.GetSubmissions, middleware.PermissionRequired(middleware.ReadSubmissionPermission))

	questionnaireGroup := app.Group("/protected/questionnaires")
	questionnaireGroup.Post("/", h.CreateQuestionnaire, middleware.RequireAnyPermission(middleware.AdminPermission, middleware.ManagerPermission, middleware.AdminSubmissionPermission))
}

type submitRequest struct {
	QuestionnaireID string                     `json:"questionnaireId"`
	Answers         []services.SubmittedAnswer `json:"answers"`
}

type createQuestionnaireRequest struct {
	CourseID      string                        `json:"courseId"`
	InstitutionID string                        `json:"institutionId"`
	Title         string                        `json:"title"`
	Questions     []createQuestionnaireQuestion `json:"questions"`
	PassingScore  int                           `json:"passingScore"`
	MaxAttempts   int                           `json:"maxAttempts"`
}

type createQuestionnaireQuestion struct {
	QuestionID         string   `json:"questionId"`
	Prompt             string   `json:"prompt"`
	Options            []string `json:"options"`
	CorrectOptionIndex int      `json:"correctOptionIndex"`
}

func (h *SubmissionHandler) SubmitQuestionnaire(c fiber.Ctx) error {
	userID := c.Get("X-User-ID")
	institutionID := c.Get("X-Institution-ID")

	if userID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "User ID is required",
		})
	}

	var req submitRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.QuestionnaireID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Questionnaire ID is required",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	submission, err := h.submissionService.SubmitQuestionnaire(ctx, req.QuestionnaireID, userID, institutionID, req.Answers)
	if err != nil {
		log.Printf("Failed to submit questionnaire %s for user %s: %v", req.QuestionnaireID, userID, err)
		return respondServiceError(c, err, "Failed to submit questionnaire")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Questionnaire submitted successfully",
		"data": fiber.Map{
			"submission": submission,
		},
	})
}

func (h *SubmissionHandler) CreateQuestionnaire(c fiber.Ctx) error {
	// The questionnaire model hides correct option indexes from JSON output,
	// so authoring input needs its own shape.
	var req createQuestionnaireRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	questions := make([]models.QuestionnaireQuestion, 0, len(req.Questions))
	for _, q := range req.Questions {
		questions = append(questions, models.QuestionnaireQuestion{
			QuestionID:         q.QuestionID,
			Prompt:             q.Prompt,
			Options:            q.Options,
			CorrectOptionIndex: q.CorrectOptionIndex,
		})
	}

	questionnaire := &models.Questionnaire{
		CourseID:      req.CourseID,
		InstitutionID: req.InstitutionID,
		Title:         req.Title,
		Questions:     questions,
		PassingScore:  req.PassingScore,
		MaxAttempts:   req.MaxAttempts,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	created, err := h.submissionService.CreateQuestionnaire(ctx, questionnaire)
	if err != nil {
		log.Printf("Failed to create questionnaire: %v", err)
		return respondServiceError(c, err, "Failed to create questionnaire")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Questionnaire created successfully",
		"data": fiber.Map{
			"questionnaire": created,
		},
	})
}

func (h *SubmissionHandler) GetAttemptCount(c fiber.Ctx) error {
	questionnaireID := c.Params("questionnaireId")
	userID := c.Get("X-User-ID")

	if userID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "User ID is required",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	used, limit, err := h.submissionService.GetAttemptCount(ctx, questionnaireID, userID)
	if err != nil {
		log.Printf("Failed to get attempt count for questionnaire %s user %s: %v", questionnaireID, userID, err)
		return respondServiceError(c, err, "Failed to retrieve attempt count")
	}

	remaining := -1 // unlimited
	if limit > 0 {
		remaining = limit - used
		if remaining < 0 {
			remaining = 0
		}
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"data": fiber.Map{
			"used":      used,
			"limit":     limit,
			"remaining": remaining,
		},
	})
}

func (h *SubmissionHandler) GetSubmissions(c fiber.Ctx) error {
	questionnaireID := c.Params("questionnaireId")
	userID := c.Get("X-User-ID")

	if userID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "User ID is required",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	submissions, err := h.submissionService.GetSubmissions(ctx, questionnaireID, userID)
	if err != nil {
		log.Printf("Failed to list submissions for questionnaire %s user %s: %v", questionnaireID, userID, err)
		return respondServiceError(c, err, "Failed to retrieve submissions")
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"data": fiber.Map{
			"submissions": submissions,
			"count":       len(submissions),
		},
	})
}
