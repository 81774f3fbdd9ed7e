package repository

import (
	"context"
	"fmt"
	"time"

	"progress-service/internal/models"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type LessonProgressRepository struct {
	collection *mongo.Collection
}

// NewLessonProgressRepository creates a new lesson progress repository instance
func NewLessonProgressRepository(database *mongo.Database, collection string) *LessonProgressRepository {
	return &LessonProgressRepository{
		collection: database.Collection(collection),
	}
}

// InitializeIndexes creates MongoDB indexes for optimal performance
func (r *LessonProgressRepository) InitializeIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "lesson_id", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "institution_id", Value: 1},
			},
		},
		{
			Keys: bson.D{
				{Key: "lesson_id", Value: 1},
			},
		},
		{
			Keys: bson.D{
				{Key: "status", Value: 1},
			},
		},
		{
			Keys: bson.D{
				{Key: "last_accessed_at", Value: -1},
			},
		},
	}

	_, err := r.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

// FindByUserAndLesson retrieves one learner's progress for one lesson,
// nil when the learner never started it.
func (r *LessonProgressRepository) FindByUserAndLesson(ctx context.Context, userID, lessonID string) (*models.LessonProgress, error) {
	var progress models.LessonProgress
	filter := bson.M{
		"user_id":   userID,
		"lesson_id": lessonID,
	}

	err := r.collection.FindOne(ctx, filter).Decode(&progress)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get lesson progress: %w", err)
	}

	return &progress, nil
}

// FindByUserAndInstitution retrieves all of a learner's lesson progress
// records within an institution in one bulk fetch, for course rollups.
func (r *LessonProgressRepository) FindByUserAndInstitution(ctx context.Context, userID, institutionID string) ([]*models.LessonProgress, error) {
	filter := bson.M{
		"user_id":        userID,
		"institution_id": institutionID,
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list lesson progress: %w", err)
	}
	defer cursor.Close(ctx)

	var records []*models.LessonProgress
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode lesson progress records: %w", err)
	}

	return records, nil
}

// FindByLesson retrieves every learner's progress record for one lesson,
// used to sync content lists when the course service edits a lesson.
func (r *LessonProgressRepository) FindByLesson(ctx context.Context, lessonID string) ([]*models.LessonProgress, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"lesson_id": lessonID})
	if err != nil {
		return nil, fmt.Errorf("failed to list lesson progress by lesson: %w", err)
	}
	defer cursor.Close(ctx)

	var records []*models.LessonProgress
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode lesson progress records: %w", err)
	}

	return records, nil
}

// Save upserts the full record keyed by its ID. The store generates the ID
// when the aggregate does not carry one yet.
func (r *LessonProgressRepository) Save(ctx context.Context, progress *models.LessonProgress) (*models.LessonProgress, error) {
	if progress.ID.IsZero() {
		progress.ID = bson.NewObjectID()
	}
	progress.UpdatedAt = time.Now()

	filter := bson.M{"_id": progress.ID}
	opts := options.Replace().SetUpsert(true)

	_, err := r.collection.ReplaceOne(ctx, filter, progress, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to save lesson progress: %w", err)
	}

	return progress, nil
}
