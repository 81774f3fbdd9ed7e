package handlers

import (
	"context"
	"errors"
	"log"
	"time"

	"progress-service/internal/middleware"
	"progress-service/internal/models"
	"progress-service/internal/services"

	"github.com/gofiber/fiber/v3"
)

type ProgressHandler struct {
	progressService *services.ProgressService
}

func NewProgressHandler(progressService *services.ProgressService) *ProgressHandler {
	return &ProgressHandler{
		progressService: progressService,
	}
}

func (h *ProgressHandler) RegisterRoutes(app *fiber.App) {
	// All progress routes are protected; learners only touch their own records
	protectedGroup := app.Group("/protected/progress")

	protectedGroup.Post("/lessons/:lessonId/start", h.StartLesson, middleware.PermissionRequired(middleware.WriteProgressPermission))
	protectedGroup.Get("/lessons/:lessonId", h.GetLessonProgress, middleware.PermissionRequired(middleware.ReadProgressPermission))
	protectedGroup.Put("/lessons/:lessonId/content/:contentId", h.UpdateContentProgress, middleware.PermissionRequired(middleware.WriteProgressPermission))
	protectedGroup.Post("/lessons/:lessonId/content/:contentId/complete", h.CompleteContent, middleware.PermissionRequired(middleware.WriteProgressPermission))
	protectedGroup.Post("/lessons/:lessonId/force-complete", h.ForceCompleteLesson, middleware.RequireAnyPermission(middleware.AdminPermission, middleware.ManagerPermission, middleware.AdminProgressPermission))
	protectedGroup.Post("/lessons/:lessonId/touch", h.TouchLesson, middleware.PermissionRequired(middleware.WriteProgressPermission))
	protectedGroup.Get("/courses/:courseId", h.GetCourseProgress, middleware.PermissionRequired(middleware.ReadProgressPermission))
}

type updateContentRequest struct {
	Percentage     float64  `json:"percentage"`
	TimeSpentDelta int      `json:"timeSpentDelta"`
	LastPosition   *float64 `json:"lastPosition"`
}

type completeContentRequest struct {
	ContentType string `json:"contentType"`
}

func (h *ProgressHandler) StartLesson(c fiber.Ctx) error {
	lessonID := c.Params("lessonId")
	userID := c.Get("X-User-ID")
	institutionID := c.Get("X-Institution-ID")

	if userID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "User ID is required",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	progress, err := h.progressService.StartLesson(ctx, userID, lessonID, institutionID)
	if err != nil {
		log.Printf("Failed to start lesson %s for user %s: %v", lessonID, userID, err)
		return respondServiceError(c, err, "Failed to start lesson")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Lesson started successfully",
		"data": fiber.Map{
			"progress": progress,
		},
	})
}

func (h *ProgressHandler) GetLessonProgress(c fiber.Ctx) error {
	lessonID := c.Params("lessonId")
	userID := c.Get("X-User-ID")

	if userID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "User ID is required",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	progress, err := h.progressService.GetLessonProgress(ctx, userID, lessonID)
	if err != nil {
		log.Printf("Failed to get lesson progress %s for user %s: %v", lessonID, userID, err)
		return respondServiceError(c, err, "Failed to retrieve lesson progress")
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"data": fiber.Map{
			"progress":        progress,
			"overallProgress": progress.CalculateOverallProgress(),
		},
	})
}

func (h *ProgressHandler) UpdateContentProgress(c fiber.Ctx) error {
	lessonID := c.Params("lessonId")
	contentID := c.Params("contentId")
	userID := c.Get("X-User-ID")

	if userID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "User ID is required",
		})
	}

	var req updateContentRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	progress, err := h.progressService.UpdateContentProgress(ctx, userID, lessonID, contentID, services.ContentUpdate{
		Percentage:     req.Percentage,
		TimeSpentDelta: req.TimeSpentDelta,
		LastPosition:   req.LastPosition,
	})
	if err != nil {
		log.Printf("Failed to update content %s in lesson %s for user %s: %v", contentID, lessonID, userID, err)
		return respondServiceError(c, err, "Failed to update content progress")
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Content progress updated successfully",
		"data": fiber.Map{
			"progress": progress,
		},
	})
}

func (h *ProgressHandler) CompleteContent(c fiber.Ctx) error {
	lessonID := c.Params("lessonId")
	contentID := c.Params("contentId")
	userID := c.Get("X-User-ID")

	if userID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "User ID is required",
		})
	}

	var req completeContentRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var progress *models.LessonProgress
	var err error
	if req.ContentType != "" {
		progress, err = h.progressService.CompleteContentForType(ctx, userID, lessonID, contentID, models.ContentType(req.ContentType))
	} else {
		progress, err = h.progressService.MarkContentCompleted(ctx, userID, lessonID, contentID)
	}
	if err != nil {
		log.Printf("Failed to complete content %s in lesson %s for user %s: %v", contentID, lessonID, userID, err)
		return respondServiceError(c, err, "Failed to complete content")
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Content completed successfully",
		"data": fiber.Map{
			"progress": progress,
		},
	})
}

func (h *ProgressHandler) ForceCompleteLesson(c fiber.Ctx) error {
	lessonID := c.Params("lessonId")
	userID := c.Query("userId")
	if userID == "" {
		userID = c.Get("X-User-ID")
	}

	if userID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "User ID is required",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	progress, err := h.progressService.ForceCompleteLesson(ctx, userID, lessonID)
	if err != nil {
		log.Printf("Failed to force complete lesson %s for user %s: %v", lessonID, userID, err)
		return respondServiceError(c, err, "Failed to force complete lesson")
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Lesson completed successfully",
		"data": fiber.Map{
			"progress": progress,
		},
	})
}

func (h *ProgressHandler) TouchLesson(c fiber.Ctx) error {
	lessonID := c.Params("lessonId")
	userID := c.Get("X-User-ID")

	if userID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "User ID is required",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	progress, err := h.progressService.TouchLesson(ctx, userID, lessonID)
	if err != nil {
		log.Printf("Failed to touch lesson %s for user %s: %v", lessonID, userID, err)
		return respondServiceError(c, err, "Failed to record lesson visit")
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Lesson visit recorded",
		"data": fiber.Map{
			"progress": progress,
		},
	})
}

func (h *ProgressHandler) GetCourseProgress(c fiber.Ctx) error {
	courseID := c.Params("courseId")
	userID := c.Get("X-User-ID")
	institutionID := c.Get("X-Institution-ID")

	if userID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "User ID is required",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	summary, err := h.progressService.GetCourseProgress(ctx, userID, courseID, institutionID)
	if err != nil {
		log.Printf("Failed to get course progress %s for user %s: %v", courseID, userID, err)
		return respondServiceError(c, err, "Failed to retrieve course progress")
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"data": fiber.Map{
			"summary": summary,
		},
	})
}

// respondServiceError maps domain errors onto HTTP statuses. Anything not
// recognized becomes a 500 with a generic message.
func respondServiceError(c fiber.Ctx, err error, fallback string) error {
	var validationErr *models.ValidationError
	if errors.As(err, &validationErr) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": validationErr.Error(),
		})
	}

	var notFoundErr *models.NotFoundError
	if errors.As(err, &notFoundErr) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": notFoundErr.Error(),
		})
	}

	var conflictErr *models.ConflictError
	if errors.As(err, &conflictErr) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": conflictErr.Error(),
		})
	}

	if errors.Is(err, services.ErrAttemptLimitReached) {
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"error": "Attempt limit reached for this questionnaire",
		})
	}

	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": fallback,
	})
}
