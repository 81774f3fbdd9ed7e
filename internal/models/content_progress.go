package models

import (
	"math"
	"time"
)

// ProgressStatus represents completion state for both content items and lessons
type ProgressStatus string

const (
	StatusNotStarted ProgressStatus = "not_started"
	StatusInProgress ProgressStatus = "in_progress"
	StatusCompleted  ProgressStatus = "completed"
)

// ContentType identifies the kind of material a content item holds
type ContentType string

const (
	ContentTypeVideo       ContentType = "video"
	ContentTypeAudio       ContentType = "audio"
	ContentTypePodcast     ContentType = "podcast"
	ContentTypeDocument    ContentType = "document"
	ContentTypePDF         ContentType = "pdf"
	ContentTypeInteractive ContentType = "interactive"
)

// IsTimeBased reports whether the content type is consumed over a timeline.
// Time-based media keep their watched percentage when credited as complete.
func (t ContentType) IsTimeBased() bool {
	switch t {
	case ContentTypeVideo, ContentTypeAudio, ContentTypePodcast:
		return true
	}
	return false
}

// ContentProgress tracks a learner's progress on a single content item.
// It is owned by a LessonProgress and only mutated through it.
type ContentProgress struct {
	ContentID          string         `bson:"content_id" json:"contentId"`
	Status             ProgressStatus `bson:"status" json:"status"`
	ProgressPercentage float64        `bson:"progress_percentage" json:"progressPercentage"`
	TimeSpentSeconds   int            `bson:"time_spent_seconds" json:"timeSpentSeconds"`
	LastPositionSec    *float64       `bson:"last_position_sec,omitempty" json:"lastPosition,omitempty"`
	StartedAt          time.Time      `bson:"started_at" json:"startedAt"`
	CompletedAt        *time.Time     `bson:"completed_at,omitempty" json:"completedAt,omitempty"`
	UpdatedAt          time.Time      `bson:"updated_at" json:"updatedAt"`
}

// ContentProgressOptions carries optional initial state when reconstructing
// a content progress from storage or an import.
type ContentProgressOptions struct {
	Status             ProgressStatus
	ProgressPercentage float64
	TimeSpentSeconds   int
	LastPositionSec    *float64
	StartedAt          *time.Time
	CompletedAt        *time.Time
	UpdatedAt          *time.Time
}

// NewContentProgress creates a fresh progress record for one content item.
func NewContentProgress(contentID string) (*ContentProgress, error) {
	return NewContentProgressWithOptions(contentID, nil)
}

// NewContentProgressWithOptions validates and creates a content progress,
// applying any supplied initial state over the defaults.
func NewContentProgressWithOptions(contentID string, opts *ContentProgressOptions) (*ContentProgress, error) {
	if contentID == "" {
		return nil, NewValidationError("contentId", "must not be empty")
	}

	now := timeNow()
	cp := &ContentProgress{
		ContentID:          contentID,
		Status:             StatusNotStarted,
		ProgressPercentage: 0,
		TimeSpentSeconds:   0,
		StartedAt:          now,
		UpdatedAt:          now,
	}

	if opts != nil {
		if opts.ProgressPercentage < 0 || opts.ProgressPercentage > 100 {
			return nil, NewValidationError("progressPercentage", "must be between 0 and 100")
		}
		if opts.TimeSpentSeconds < 0 {
			return nil, NewValidationError("timeSpentSeconds", "must not be negative")
		}
		cp.ProgressPercentage = opts.ProgressPercentage
		cp.TimeSpentSeconds = opts.TimeSpentSeconds
		cp.LastPositionSec = opts.LastPositionSec
		if opts.Status != "" {
			cp.Status = opts.Status
		}
		if opts.StartedAt != nil {
			cp.StartedAt = *opts.StartedAt
		}
		if opts.CompletedAt != nil {
			cp.CompletedAt = opts.CompletedAt
		}
		if opts.UpdatedAt != nil {
			cp.UpdatedAt = *opts.UpdatedAt
		}
	}

	return cp, nil
}

// UpdateProgress sets the completion percentage, accumulates time spent and
// optionally records the last playback position. Status is derived on every
// call: 100 completes the item, anything above 0 marks it in progress, and 0
// leaves the current status untouched. Fails without mutating on bad input.
func (cp *ContentProgress) UpdateProgress(percentage float64, timeSpentDelta int, lastPosition *float64) error {
	if percentage < 0 || percentage > 100 {
		return NewValidationError("progressPercentage", "must be between 0 and 100")
	}
	if timeSpentDelta < 0 {
		return NewValidationError("timeSpentDelta", "must not be negative")
	}

	now := timeNow()
	cp.ProgressPercentage = percentage
	cp.TimeSpentSeconds += timeSpentDelta
	if lastPosition != nil {
		cp.LastPositionSec = lastPosition
	}

	if percentage >= 100 {
		cp.Status = StatusCompleted
		cp.CompletedAt = &now
	} else if percentage > 0 {
		cp.Status = StatusInProgress
		// Dropping below 100 revokes the completion timestamp so a
		// non-completed item never carries one.
		cp.CompletedAt = nil
	}

	cp.UpdatedAt = now
	return nil
}

// MarkAsCompleted completes the item unconditionally.
func (cp *ContentProgress) MarkAsCompleted() {
	now := timeNow()
	cp.Status = StatusCompleted
	cp.ProgressPercentage = 100
	cp.CompletedAt = &now
	cp.UpdatedAt = now
}

// CompleteForType completes the item, forcing the percentage to 100 only for
// non-time-based content. A learner can be credited for a video without
// having watched all of it, so time-based media keep their real percentage.
func (cp *ContentProgress) CompleteForType(contentType ContentType) {
	now := timeNow()
	cp.Status = StatusCompleted
	cp.CompletedAt = &now
	if !contentType.IsTimeBased() {
		cp.ProgressPercentage = 100
	}
	cp.UpdatedAt = now
}

// IsCompleted reports whether the item is completed.
func (cp *ContentProgress) IsCompleted() bool {
	return cp.Status == StatusCompleted
}

// HasStarted reports whether the learner has interacted with the item.
func (cp *ContentProgress) HasStarted() bool {
	return cp.Status != StatusNotStarted
}

// TimeSpentMinutes returns time spent in minutes, rounded to 2 decimals.
func (cp *ContentProgress) TimeSpentMinutes() float64 {
	return round2(float64(cp.TimeSpentSeconds) / 60.0)
}

// TimeSpentHours returns time spent in hours, rounded to 2 decimals.
func (cp *ContentProgress) TimeSpentHours() float64 {
	return round2(float64(cp.TimeSpentSeconds) / 3600.0)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
