package repository

import (
	"context"
	"fmt"

	"progress-service/internal/models"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type SubmissionRepository struct {
	collection *mongo.Collection
}

// NewSubmissionRepository creates a new submission repository instance
func NewSubmissionRepository(database *mongo.Database, collection string) *SubmissionRepository {
	return &SubmissionRepository{
		collection: database.Collection(collection),
	}
}

// InitializeIndexes creates MongoDB indexes for optimal performance
func (r *SubmissionRepository) InitializeIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "questionnaire_id", Value: 1},
				{Key: "user_id", Value: 1},
			},
		},
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "course_id", Value: 1},
			},
		},
		{
			Keys: bson.D{
				{Key: "completed_at", Value: -1},
			},
		},
	}

	_, err := r.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

// CountAttempts returns how many submissions a learner already made for a
// questionnaire.
func (r *SubmissionRepository) CountAttempts(ctx context.Context, questionnaireID, userID string) (int, error) {
	filter := bson.M{
		"questionnaire_id": questionnaireID,
		"user_id":          userID,
	}

	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count attempts: %w", err)
	}

	return int(count), nil
}

// FindByUserAndQuestionnaire retrieves a learner's submissions for one
// questionnaire, newest attempt first.
func (r *SubmissionRepository) FindByUserAndQuestionnaire(ctx context.Context, questionnaireID, userID string) ([]*models.QuestionnaireSubmission, error) {
	filter := bson.M{
		"questionnaire_id": questionnaireID,
		"user_id":          userID,
	}
	opts := options.Find().SetSort(bson.D{{Key: "attempt", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	defer cursor.Close(ctx)

	var submissions []*models.QuestionnaireSubmission
	if err := cursor.All(ctx, &submissions); err != nil {
		return nil, fmt.Errorf("failed to decode submissions: %w", err)
	}

	return submissions, nil
}

// Save inserts a scored submission, assigning its ID when missing.
func (r *SubmissionRepository) Save(ctx context.Context, submission *models.QuestionnaireSubmission) (*models.QuestionnaireSubmission, error) {
	if submission.ID.IsZero() {
		submission.ID = bson.NewObjectID()
	}

	_, err := r.collection.InsertOne(ctx, submission)
	if err != nil {
		return nil, fmt.Errorf("failed to save submission: %w", err)
	}

	return submission, nil
}
