package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"progress-service/internal/event"
	"progress-service/internal/models"
)

// LessonProgressStore is the persistence contract the service needs. Save has
// upsert semantics and generates the record ID when missing.
type LessonProgressStore interface {
	FindByUserAndLesson(ctx context.Context, userID, lessonID string) (*models.LessonProgress, error)
	FindByUserAndInstitution(ctx context.Context, userID, institutionID string) ([]*models.LessonProgress, error)
	FindByLesson(ctx context.Context, lessonID string) ([]*models.LessonProgress, error)
	Save(ctx context.Context, progress *models.LessonProgress) (*models.LessonProgress, error)
}

// CourseStructureProvider exposes the course service's authoritative
// course/lesson structure.
type CourseStructureProvider interface {
	GetLessonIDs(ctx context.Context, courseID string) ([]string, error)
	GetContentIDs(ctx context.Context, lessonID string) ([]string, error)
}

// SummaryCache holds computed course summaries. A nil cache disables caching.
type SummaryCache interface {
	GetCourseProgress(ctx context.Context, userID, courseID string) (*models.CourseProgressSummary, error)
	SetCourseProgress(ctx context.Context, summary *models.CourseProgressSummary) error
	InvalidateUser(ctx context.Context, userID string) error
}

// ContentUpdate carries one numeric progress update for a content item.
type ContentUpdate struct {
	Percentage     float64
	TimeSpentDelta int
	LastPosition   *float64
}

type ProgressService struct {
	progressRepo LessonProgressStore
	structure    CourseStructureProvider
	cache        SummaryCache
	publisher    event.Publisher
}

// NewProgressService creates a new progress service
func NewProgressService(progressRepo LessonProgressStore, structure CourseStructureProvider, cache SummaryCache, publisher event.Publisher) *ProgressService {
	return &ProgressService{
		progressRepo: progressRepo,
		structure:    structure,
		cache:        cache,
		publisher:    publisher,
	}
}

// StartLesson opens a lesson for a learner. An existing record is touched and
// returned; otherwise a fresh aggregate is built from the lesson's content
// list. A lesson with no trackable content cannot have progress.
func (s *ProgressService) StartLesson(ctx context.Context, userID, lessonID, institutionID string) (*models.LessonProgress, error) {
	existing, err := s.progressRepo.FindByUserAndLesson(ctx, userID, lessonID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		existing.Touch()
		return s.progressRepo.Save(ctx, existing)
	}

	contentIDs, err := s.structure.GetContentIDs(ctx, lessonID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve lesson structure: %w", err)
	}
	if contentIDs == nil {
		return nil, models.NewNotFoundError("lesson", lessonID)
	}

	progress, err := models.NewLessonProgress(userID, lessonID, institutionID, contentIDs, nil)
	if err != nil {
		return nil, err
	}

	saved, err := s.progressRepo.Save(ctx, progress)
	if err != nil {
		return nil, err
	}

	s.publishProgress(event.EventTypeLessonStarted, saved, "")
	return saved, nil
}

// GetLessonProgress returns a learner's record for one lesson.
func (s *ProgressService) GetLessonProgress(ctx context.Context, userID, lessonID string) (*models.LessonProgress, error) {
	progress, err := s.progressRepo.FindByUserAndLesson(ctx, userID, lessonID)
	if err != nil {
		return nil, err
	}
	if progress == nil {
		return nil, models.NewNotFoundError("lesson progress", lessonID)
	}
	return progress, nil
}

// UpdateContentProgress applies a numeric update to one content item and
// persists the re-evaluated aggregate.
func (s *ProgressService) UpdateContentProgress(ctx context.Context, userID, lessonID, contentID string, update ContentUpdate) (*models.LessonProgress, error) {
	return s.mutate(ctx, userID, lessonID, contentID, func(lp *models.LessonProgress) error {
		return lp.UpdateContentProgress(contentID, update.Percentage, update.TimeSpentDelta, update.LastPosition)
	})
}

// MarkContentCompleted completes one content item unconditionally.
func (s *ProgressService) MarkContentCompleted(ctx context.Context, userID, lessonID, contentID string) (*models.LessonProgress, error) {
	return s.mutate(ctx, userID, lessonID, contentID, func(lp *models.LessonProgress) error {
		return lp.MarkContentCompleted(contentID)
	})
}

// CompleteContentForType completes one content item with the type-aware rule.
func (s *ProgressService) CompleteContentForType(ctx context.Context, userID, lessonID, contentID string, contentType models.ContentType) (*models.LessonProgress, error) {
	return s.mutate(ctx, userID, lessonID, contentID, func(lp *models.LessonProgress) error {
		return lp.CompleteContentForType(contentID, contentType)
	})
}

// ForceCompleteLesson completes every content item and the lesson itself.
func (s *ProgressService) ForceCompleteLesson(ctx context.Context, userID, lessonID string) (*models.LessonProgress, error) {
	return s.mutate(ctx, userID, lessonID, "", func(lp *models.LessonProgress) error {
		lp.ForceComplete()
		return nil
	})
}

// AddContent appends a fresh content progress to a learner's lesson record.
func (s *ProgressService) AddContent(ctx context.Context, userID, lessonID, contentID string) (*models.LessonProgress, error) {
	return s.mutate(ctx, userID, lessonID, contentID, func(lp *models.LessonProgress) error {
		return lp.AddContentProgress(contentID)
	})
}

// RemoveContent drops a content progress from a learner's lesson record.
func (s *ProgressService) RemoveContent(ctx context.Context, userID, lessonID, contentID string) (*models.LessonProgress, error) {
	return s.mutate(ctx, userID, lessonID, contentID, func(lp *models.LessonProgress) error {
		return lp.RemoveContentProgress(contentID)
	})
}

// TouchLesson records a visit that changed nothing else.
func (s *ProgressService) TouchLesson(ctx context.Context, userID, lessonID string) (*models.LessonProgress, error) {
	progress, err := s.progressRepo.FindByUserAndLesson(ctx, userID, lessonID)
	if err != nil {
		return nil, err
	}
	if progress == nil {
		return nil, models.NewNotFoundError("lesson progress", lessonID)
	}
	progress.Touch()
	return s.progressRepo.Save(ctx, progress)
}

// SyncLessonContent applies a content addition or removal from the course
// service to every learner's record for that lesson. Per-record failures are
// logged and skipped so one bad record does not stall the sync.
func (s *ProgressService) SyncLessonContent(ctx context.Context, lessonID, contentID string, added bool) error {
	records, err := s.progressRepo.FindByLesson(ctx, lessonID)
	if err != nil {
		return err
	}

	for _, lp := range records {
		wasCompleted := lp.IsCompleted()

		var mutErr error
		if added {
			mutErr = lp.AddContentProgress(contentID)
		} else {
			mutErr = lp.RemoveContentProgress(contentID)
		}
		if mutErr != nil {
			log.Printf("Skipping content sync for user %s lesson %s: %v", lp.UserID, lessonID, mutErr)
			continue
		}

		if _, err := s.progressRepo.Save(ctx, lp); err != nil {
			log.Printf("Failed to save synced lesson progress for user %s: %v", lp.UserID, err)
			continue
		}

		s.invalidate(ctx, lp.UserID)
		s.publishTransition(lp, wasCompleted, contentID)
	}

	return nil
}

// GetCourseProgress computes the course-wide rollup for a learner, serving
// from cache when possible. One bulk fetch covers all the learner's lesson
// records.
func (s *ProgressService) GetCourseProgress(ctx context.Context, userID, courseID, institutionID string) (*models.CourseProgressSummary, error) {
	if s.cache != nil {
		cached, err := s.cache.GetCourseProgress(ctx, userID, courseID)
		if err != nil {
			log.Printf("Course progress cache read failed: %v", err)
		} else if cached != nil {
			return cached, nil
		}
	}

	lessonIDs, err := s.structure.GetLessonIDs(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve course structure: %w", err)
	}
	if lessonIDs == nil {
		return nil, models.NewNotFoundError("course", courseID)
	}

	records, err := s.progressRepo.FindByUserAndInstitution(ctx, userID, institutionID)
	if err != nil {
		return nil, err
	}

	summary := models.CalculateCourseProgress(courseID, userID, lessonIDs, records)

	if s.cache != nil {
		if err := s.cache.SetCourseProgress(ctx, summary); err != nil {
			log.Printf("Course progress cache write failed: %v", err)
		}
	}

	return summary, nil
}

// mutate loads the aggregate, applies fn, persists, invalidates the cache and
// publishes the resulting transition. The mutation either fully applies
// (including completion re-evaluation) or the record stays untouched.
func (s *ProgressService) mutate(ctx context.Context, userID, lessonID, contentID string, fn func(*models.LessonProgress) error) (*models.LessonProgress, error) {
	progress, err := s.progressRepo.FindByUserAndLesson(ctx, userID, lessonID)
	if err != nil {
		return nil, err
	}
	if progress == nil {
		return nil, models.NewNotFoundError("lesson progress", lessonID)
	}

	wasCompleted := progress.IsCompleted()

	if err := fn(progress); err != nil {
		return nil, err
	}

	saved, err := s.progressRepo.Save(ctx, progress)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, userID)
	s.publishTransition(saved, wasCompleted, contentID)
	return saved, nil
}

func (s *ProgressService) publishTransition(lp *models.LessonProgress, wasCompleted bool, contentID string) {
	switch {
	case !wasCompleted && lp.IsCompleted():
		s.publishProgress(event.EventTypeLessonCompleted, lp, contentID)
	case wasCompleted && !lp.IsCompleted():
		s.publishProgress(event.EventTypeLessonDemoted, lp, contentID)
	default:
		s.publishProgress(event.EventTypeProgressUpdated, lp, contentID)
	}
}

func (s *ProgressService) publishProgress(eventType string, lp *models.LessonProgress, contentID string) {
	if s.publisher == nil {
		return
	}
	err := s.publisher.PublishProgressEvent(&event.ProgressEvent{
		EventType:       eventType,
		UserID:          lp.UserID,
		LessonID:        lp.LessonID,
		InstitutionID:   lp.InstitutionID,
		ContentID:       contentID,
		Status:          string(lp.Status),
		OverallProgress: lp.CalculateOverallProgress(),
		Timestamp:       time.Now().Unix(),
	})
	if err != nil {
		log.Printf("Failed to publish %s event: %v", eventType, err)
	}
}

func (s *ProgressService) invalidate(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateUser(ctx, userID); err != nil {
		log.Printf("Failed to invalidate course progress cache for user %s: %v", userID, err)
	}
}
