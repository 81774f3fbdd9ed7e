package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"progress-service/internal/models"

	"github.com/redis/go-redis/v9"
)

// ProgressCache keeps computed course-progress summaries in Redis so repeat
// dashboard reads skip the rollup. Entries are invalidated on every lesson
// progress mutation.
type ProgressCache struct {
	client *redis.Client
	expiry time.Duration
}

// NewProgressCache creates a new progress cache instance
func NewProgressCache(client *redis.Client, expiry time.Duration) *ProgressCache {
	return &ProgressCache{
		client: client,
		expiry: expiry,
	}
}

func courseProgressKey(userID, courseID string) string {
	return fmt.Sprintf("course_progress:%s:%s", userID, courseID)
}

// GetCourseProgress returns the cached summary, nil on miss.
func (c *ProgressCache) GetCourseProgress(ctx context.Context, userID, courseID string) (*models.CourseProgressSummary, error) {
	data, err := c.client.Get(ctx, courseProgressKey(userID, courseID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read cached course progress: %w", err)
	}

	var summary models.CourseProgressSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("failed to decode cached course progress: %w", err)
	}

	return &summary, nil
}

// SetCourseProgress stores a computed summary.
func (c *ProgressCache) SetCourseProgress(ctx context.Context, summary *models.CourseProgressSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to encode course progress: %w", err)
	}

	err = c.client.Set(ctx, courseProgressKey(summary.UserID, summary.CourseID), data, c.expiry).Err()
	if err != nil {
		return fmt.Errorf("failed to cache course progress: %w", err)
	}
	return nil
}

// InvalidateUser drops every cached summary for a learner. Lesson mutations
// do not know which courses reference the lesson, so the whole user scope
// goes.
func (c *ProgressCache) InvalidateUser(ctx context.Context, userID string) error {
	pattern := fmt.Sprintf("course_progress:%s:*", userID)

	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("failed to invalidate cached course progress: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cached course progress: %w", err)
	}
	return nil
}
