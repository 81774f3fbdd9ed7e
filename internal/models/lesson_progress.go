package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// LessonProgress is the aggregate root for one learner's progress through one
// lesson. It exclusively owns its ContentProgress collection (one entry per
// content item, in content order) and re-evaluates its own completion status
// after every content mutation.
type LessonProgress struct {
	ID                bson.ObjectID      `bson:"_id,omitempty" json:"id,omitempty"`
	UserID            string             `bson:"user_id" json:"userId"`
	LessonID          string             `bson:"lesson_id" json:"lessonId"`
	InstitutionID     string             `bson:"institution_id" json:"institutionId"`
	Status            ProgressStatus     `bson:"status" json:"status"`
	ContentProgresses []*ContentProgress `bson:"content_progresses" json:"contentProgresses"`
	StartedAt         time.Time          `bson:"started_at" json:"startedAt"`
	CompletedAt       *time.Time         `bson:"completed_at,omitempty" json:"completedAt,omitempty"`
	LastAccessedAt    time.Time          `bson:"last_accessed_at" json:"lastAccessedAt"`
	UpdatedAt         time.Time          `bson:"updated_at" json:"updatedAt"`
}

// LessonProgressOptions carries optional initial state for reconstruction
// from storage. When ContentProgresses is supplied it replaces the fresh
// per-content records built from the content ID list.
type LessonProgressOptions struct {
	ID                bson.ObjectID
	Status            ProgressStatus
	ContentProgresses []*ContentProgress
	StartedAt         *time.Time
	CompletedAt       *time.Time
	LastAccessedAt    *time.Time
	UpdatedAt         *time.Time
}

// NewLessonProgress creates the aggregate for a learner who just opened a
// lesson. One fresh ContentProgress is built per content ID, in order.
// Opening a lesson is itself the beginning of progress, so the initial
// status is in_progress unless reconstruction supplies another.
func NewLessonProgress(userID, lessonID, institutionID string, contentIDs []string, opts *LessonProgressOptions) (*LessonProgress, error) {
	if userID == "" {
		return nil, NewValidationError("userId", "must not be empty")
	}
	if lessonID == "" {
		return nil, NewValidationError("lessonId", "must not be empty")
	}
	if institutionID == "" {
		return nil, NewValidationError("institutionId", "must not be empty")
	}

	var contents []*ContentProgress
	if opts != nil && len(opts.ContentProgresses) > 0 {
		contents = opts.ContentProgresses
	} else {
		if len(contentIDs) == 0 {
			return nil, NewValidationError("contentIds", "must not be empty")
		}
		contents = make([]*ContentProgress, 0, len(contentIDs))
		for _, contentID := range contentIDs {
			cp, err := NewContentProgress(contentID)
			if err != nil {
				return nil, err
			}
			contents = append(contents, cp)
		}
	}

	now := timeNow()
	lp := &LessonProgress{
		UserID:            userID,
		LessonID:          lessonID,
		InstitutionID:     institutionID,
		Status:            StatusInProgress,
		ContentProgresses: contents,
		StartedAt:         now,
		LastAccessedAt:    now,
		UpdatedAt:         now,
	}

	if opts != nil {
		if !opts.ID.IsZero() {
			lp.ID = opts.ID
		}
		if opts.Status != "" {
			lp.Status = opts.Status
		}
		if opts.StartedAt != nil {
			lp.StartedAt = *opts.StartedAt
		}
		if opts.CompletedAt != nil {
			lp.CompletedAt = opts.CompletedAt
		}
		if opts.LastAccessedAt != nil {
			lp.LastAccessedAt = *opts.LastAccessedAt
		}
		if opts.UpdatedAt != nil {
			lp.UpdatedAt = *opts.UpdatedAt
		}
	}

	return lp, nil
}

// FindContentProgress returns the owned progress record for a content item,
// or nil when the lesson does not track that item.
func (lp *LessonProgress) FindContentProgress(contentID string) *ContentProgress {
	for _, cp := range lp.ContentProgresses {
		if cp.ContentID == contentID {
			return cp
		}
	}
	return nil
}

// UpdateContentProgress applies a numeric update to one content item and then
// re-evaluates lesson completion. The validation failure paths leave the
// aggregate untouched.
func (lp *LessonProgress) UpdateContentProgress(contentID string, percentage float64, timeSpentDelta int, lastPosition *float64) error {
	cp := lp.FindContentProgress(contentID)
	if cp == nil {
		return NewNotFoundError("content progress", contentID)
	}
	if err := cp.UpdateProgress(percentage, timeSpentDelta, lastPosition); err != nil {
		return err
	}
	lp.touch()
	lp.CheckAndUpdateCompletion()
	return nil
}

// MarkContentCompleted completes one content item unconditionally and
// re-evaluates lesson completion.
func (lp *LessonProgress) MarkContentCompleted(contentID string) error {
	cp := lp.FindContentProgress(contentID)
	if cp == nil {
		return NewNotFoundError("content progress", contentID)
	}
	cp.MarkAsCompleted()
	lp.touch()
	lp.CheckAndUpdateCompletion()
	return nil
}

// CompleteContentForType completes one content item with the type-aware rule
// (time-based media keep their percentage) and re-evaluates lesson completion.
func (lp *LessonProgress) CompleteContentForType(contentID string, contentType ContentType) error {
	cp := lp.FindContentProgress(contentID)
	if cp == nil {
		return NewNotFoundError("content progress", contentID)
	}
	cp.CompleteForType(contentType)
	lp.touch()
	lp.CheckAndUpdateCompletion()
	return nil
}

// CheckAndUpdateCompletion re-evaluates the lesson status from its content
// items. The lesson completes when every item is completed, and is demoted
// back to in_progress (clearing its completion timestamp) when a previously
// completed lesson gains an incomplete item. Idempotent: calling it twice
// with no intervening mutation changes nothing.
func (lp *LessonProgress) CheckAndUpdateCompletion() {
	allCompleted := len(lp.ContentProgresses) > 0
	for _, cp := range lp.ContentProgresses {
		if !cp.IsCompleted() {
			allCompleted = false
			break
		}
	}

	if allCompleted && lp.Status != StatusCompleted {
		now := timeNow()
		lp.Status = StatusCompleted
		lp.CompletedAt = &now
		lp.UpdatedAt = now
	} else if !allCompleted && lp.Status == StatusCompleted {
		lp.Status = StatusInProgress
		lp.CompletedAt = nil
		lp.UpdatedAt = timeNow()
	}
}

// ForceComplete marks every content item and the lesson itself completed,
// bypassing the item-by-item check.
func (lp *LessonProgress) ForceComplete() {
	for _, cp := range lp.ContentProgresses {
		cp.MarkAsCompleted()
	}
	now := timeNow()
	lp.Status = StatusCompleted
	lp.CompletedAt = &now
	lp.LastAccessedAt = now
	lp.UpdatedAt = now
}

// CalculateOverallProgress returns the arithmetic mean of the content
// percentages, rounded to 2 decimals. A lesson without content reports 0,
// though creation forbids that state.
func (lp *LessonProgress) CalculateOverallProgress() float64 {
	if len(lp.ContentProgresses) == 0 {
		return 0
	}
	var sum float64
	for _, cp := range lp.ContentProgresses {
		sum += cp.ProgressPercentage
	}
	return round2(sum / float64(len(lp.ContentProgresses)))
}

// AddContentProgress appends a fresh record for a newly added content item
// and re-evaluates completion, which can demote a completed lesson.
func (lp *LessonProgress) AddContentProgress(contentID string) error {
	if lp.FindContentProgress(contentID) != nil {
		return NewConflictError("content progress", contentID)
	}
	cp, err := NewContentProgress(contentID)
	if err != nil {
		return err
	}
	lp.ContentProgresses = append(lp.ContentProgresses, cp)
	lp.touch()
	lp.CheckAndUpdateCompletion()
	return nil
}

// RemoveContentProgress drops the record for a removed content item and
// re-evaluates completion. Removing the only incomplete item can newly
// complete the lesson.
func (lp *LessonProgress) RemoveContentProgress(contentID string) error {
	idx := -1
	for i, cp := range lp.ContentProgresses {
		if cp.ContentID == contentID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return NewNotFoundError("content progress", contentID)
	}
	lp.ContentProgresses = append(lp.ContentProgresses[:idx], lp.ContentProgresses[idx+1:]...)
	lp.touch()
	lp.CheckAndUpdateCompletion()
	return nil
}

// Touch records an interaction that changed no content progress, e.g. the
// learner merely opened the lesson.
func (lp *LessonProgress) Touch() {
	lp.touch()
}

// IsCompleted reports whether the lesson is completed.
func (lp *LessonProgress) IsCompleted() bool {
	return lp.Status == StatusCompleted
}

func (lp *LessonProgress) touch() {
	now := timeNow()
	lp.LastAccessedAt = now
	lp.UpdatedAt = now
}
