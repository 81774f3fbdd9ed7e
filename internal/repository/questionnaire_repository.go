package repository

import (
	"context"
	"fmt"
	"time"

	"progress-service/internal/models"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

type QuestionnaireRepository struct {
	collection *mongo.Collection
}

// NewQuestionnaireRepository creates a new questionnaire repository instance
func NewQuestionnaireRepository(database *mongo.Database, collection string) *QuestionnaireRepository {
	return &QuestionnaireRepository{
		collection: database.Collection(collection),
	}
}

// InitializeIndexes creates MongoDB indexes for optimal performance
func (r *QuestionnaireRepository) InitializeIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "course_id", Value: 1},
			},
		},
		{
			Keys: bson.D{
				{Key: "institution_id", Value: 1},
			},
		},
	}

	_, err := r.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

// GetByID retrieves a questionnaire definition, nil when absent.
func (r *QuestionnaireRepository) GetByID(ctx context.Context, id string) (*models.Questionnaire, error) {
	objID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid questionnaire ID format: %w", err)
	}

	var questionnaire models.Questionnaire
	err = r.collection.FindOne(ctx, bson.M{"_id": objID}).Decode(&questionnaire)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get questionnaire: %w", err)
	}

	return &questionnaire, nil
}

// Create inserts a questionnaire definition (admin/authoring flows).
func (r *QuestionnaireRepository) Create(ctx context.Context, questionnaire *models.Questionnaire) (*models.Questionnaire, error) {
	if questionnaire.ID.IsZero() {
		questionnaire.ID = bson.NewObjectID()
	}

	now := time.Now()
	questionnaire.CreatedAt = now
	questionnaire.UpdatedAt = now

	_, err := r.collection.InsertOne(ctx, questionnaire)
	if err != nil {
		return nil, fmt.Errorf("failed to create questionnaire: %w", err)
	}

	return questionnaire, nil
}
