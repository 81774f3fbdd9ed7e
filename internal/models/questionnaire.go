package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// QuestionnaireQuestion is one objective question inside a questionnaire
// definition. The correct option index never leaves the service.
type QuestionnaireQuestion struct {
	QuestionID         string   `bson:"question_id" json:"questionId"`
	Prompt             string   `bson:"prompt" json:"prompt"`
	Options            []string `bson:"options" json:"options"`
	CorrectOptionIndex int      `bson:"correct_option_index" json:"-"`
}

// Questionnaire is the definition a submission is graded against. It is
// authored by the course service; this service reads it to derive
// correctness, the passing threshold and the attempt ceiling.
type Questionnaire struct {
	ID            bson.ObjectID           `bson:"_id,omitempty" json:"id,omitempty"`
	CourseID      string                  `bson:"course_id" json:"courseId"`
	InstitutionID string                  `bson:"institution_id" json:"institutionId"`
	Title         string                  `bson:"title" json:"title"`
	Questions     []QuestionnaireQuestion `bson:"questions" json:"questions"`
	PassingScore  int                     `bson:"passing_score" json:"passingScore"`
	MaxAttempts   int                     `bson:"max_attempts" json:"maxAttempts"`
	CreatedAt     time.Time               `bson:"created_at" json:"createdAt"`
	UpdatedAt     time.Time               `bson:"updated_at" json:"updatedAt"`
}

// FindQuestion returns the definition of one question, or nil.
func (q *Questionnaire) FindQuestion(questionID string) *QuestionnaireQuestion {
	for i := range q.Questions {
		if q.Questions[i].QuestionID == questionID {
			return &q.Questions[i]
		}
	}
	return nil
}

// EffectivePassingScore returns the questionnaire's threshold, falling back
// to the given default (and then the global default) when unset.
func (q *Questionnaire) EffectivePassingScore(configured int) int {
	if q.PassingScore > 0 {
		return q.PassingScore
	}
	if configured > 0 {
		return configured
	}
	return DefaultPassingScore
}

// EffectiveMaxAttempts returns the attempt ceiling, 0 meaning unlimited.
func (q *Questionnaire) EffectiveMaxAttempts(configured int) int {
	if q.MaxAttempts > 0 {
		return q.MaxAttempts
	}
	return configured
}
