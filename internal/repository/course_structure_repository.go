package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// CourseStructureRepository reads the course/lesson structure maintained by
// the course service. This service treats it as read-only and authoritative.
type CourseStructureRepository struct {
	courses *mongo.Collection
	lessons *mongo.Collection
}

// NewCourseStructureRepository creates a new course structure repository instance
func NewCourseStructureRepository(database *mongo.Database) *CourseStructureRepository {
	return &CourseStructureRepository{
		courses: database.Collection("courses"),
		lessons: database.Collection("lessons"),
	}
}

type courseDocument struct {
	ID        bson.ObjectID `bson:"_id"`
	LessonIDs []string      `bson:"lesson_ids"`
}

type lessonDocument struct {
	ID         bson.ObjectID `bson:"_id"`
	ContentIDs []string      `bson:"content_ids"`
}

// GetLessonIDs returns the ordered lesson-ID list of a course, nil when the
// course does not exist.
func (r *CourseStructureRepository) GetLessonIDs(ctx context.Context, courseID string) ([]string, error) {
	objID, err := bson.ObjectIDFromHex(courseID)
	if err != nil {
		return nil, fmt.Errorf("invalid course ID format: %w", err)
	}

	var course courseDocument
	err = r.courses.FindOne(ctx, bson.M{"_id": objID}).Decode(&course)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get course structure: %w", err)
	}

	// A course that exists but has no lessons yet must stay distinguishable
	// from a missing course (nil).
	if course.LessonIDs == nil {
		return []string{}, nil
	}
	return course.LessonIDs, nil
}

// GetContentIDs returns the ordered content-ID list of a lesson, nil when the
// lesson does not exist.
func (r *CourseStructureRepository) GetContentIDs(ctx context.Context, lessonID string) ([]string, error) {
	objID, err := bson.ObjectIDFromHex(lessonID)
	if err != nil {
		return nil, fmt.Errorf("invalid lesson ID format: %w", err)
	}

	var lesson lessonDocument
	err = r.lessons.FindOne(ctx, bson.M{"_id": objID}).Decode(&lesson)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get lesson structure: %w", err)
	}

	if lesson.ContentIDs == nil {
		return []string{}, nil
	}
	return lesson.ContentIDs, nil
}
