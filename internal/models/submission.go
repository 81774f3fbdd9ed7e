package models

import (
	"math"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// DefaultPassingScore applies when neither the questionnaire definition nor
// the caller supplies a threshold.
const DefaultPassingScore = 70

// QuestionSubmission is the historical record of one answered question.
// Correctness is evaluated once at creation and never recomputed.
type QuestionSubmission struct {
	ID                  bson.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	QuestionID          string        `bson:"question_id" json:"questionId"`
	SelectedOptionIndex int           `bson:"selected_option_index" json:"selectedOptionIndex"`
	IsCorrect           bool          `bson:"is_correct" json:"isCorrect"`
}

// NewQuestionSubmission records an answer whose correctness was already
// evaluated (e.g. when reconstructing from storage).
func NewQuestionSubmission(questionID string, selectedOptionIndex int, isCorrect bool) (*QuestionSubmission, error) {
	if questionID == "" {
		return nil, NewValidationError("questionId", "must not be empty")
	}
	if selectedOptionIndex < 0 {
		return nil, NewValidationError("selectedOptionIndex", "must not be negative")
	}
	return &QuestionSubmission{
		QuestionID:          questionID,
		SelectedOptionIndex: selectedOptionIndex,
		IsCorrect:           isCorrect,
	}, nil
}

// NewGradedQuestionSubmission records an answer and derives its correctness
// from the question's correct option index.
func NewGradedQuestionSubmission(questionID string, selectedOptionIndex, correctOptionIndex int) (*QuestionSubmission, error) {
	return NewQuestionSubmission(questionID, selectedOptionIndex, EvaluateAnswer(selectedOptionIndex, correctOptionIndex))
}

// EvaluateAnswer is the one-time correctness check.
func EvaluateAnswer(selectedOptionIndex, correctOptionIndex int) bool {
	return selectedOptionIndex == correctOptionIndex
}

// QuestionnaireSubmission is one scored attempt at a questionnaire.
type QuestionnaireSubmission struct {
	ID              bson.ObjectID         `bson:"_id,omitempty" json:"id,omitempty"`
	QuestionnaireID string                `bson:"questionnaire_id" json:"questionnaireId"`
	UserID          string                `bson:"user_id" json:"userId"`
	InstitutionID   string                `bson:"institution_id" json:"institutionId"`
	CourseID        string                `bson:"course_id" json:"courseId"`
	Questions       []*QuestionSubmission `bson:"questions" json:"questions"`
	Score           int                   `bson:"score" json:"score"`
	Passed          bool                  `bson:"passed" json:"passed"`
	Attempt         int                   `bson:"attempt" json:"attempt"`
	StartedAt       time.Time             `bson:"started_at" json:"startedAt"`
	CompletedAt     time.Time             `bson:"completed_at" json:"completedAt"`
}

// QuestionnaireSubmissionOptions overrides the computed score/passed values
// and timestamps, used when reconstructing a stored submission without
// re-grading it.
type QuestionnaireSubmissionOptions struct {
	ID           bson.ObjectID
	PassingScore *int
	Score        *int
	Passed       *bool
	StartedAt    *time.Time
	CompletedAt  *time.Time
}

// NewQuestionnaireSubmission validates, scores and decides pass/fail for a
// full set of answered questions. Score and pass/fail are computed unless
// options override them.
func NewQuestionnaireSubmission(questionnaireID, userID, institutionID, courseID string, questions []*QuestionSubmission, attempt int, opts *QuestionnaireSubmissionOptions) (*QuestionnaireSubmission, error) {
	if questionnaireID == "" {
		return nil, NewValidationError("questionnaireId", "must not be empty")
	}
	if userID == "" {
		return nil, NewValidationError("userId", "must not be empty")
	}
	if institutionID == "" {
		return nil, NewValidationError("institutionId", "must not be empty")
	}
	if attempt < 1 {
		return nil, NewValidationError("attempt", "must be at least 1")
	}
	if len(questions) == 0 {
		return nil, NewValidationError("questions", "must not be empty")
	}

	now := timeNow()
	qs := &QuestionnaireSubmission{
		QuestionnaireID: questionnaireID,
		UserID:          userID,
		InstitutionID:   institutionID,
		CourseID:        courseID,
		Questions:       questions,
		Attempt:         attempt,
		StartedAt:       now,
		CompletedAt:     now,
	}

	passingScore := DefaultPassingScore
	if opts != nil && opts.PassingScore != nil {
		passingScore = *opts.PassingScore
	}

	qs.Score = CalculateScore(questions)
	qs.Passed = CheckPass(qs.Score, passingScore)

	if opts != nil {
		if !opts.ID.IsZero() {
			qs.ID = opts.ID
		}
		if opts.Score != nil {
			qs.Score = *opts.Score
		}
		if opts.Passed != nil {
			qs.Passed = *opts.Passed
		}
		if opts.StartedAt != nil {
			qs.StartedAt = *opts.StartedAt
		}
		if opts.CompletedAt != nil {
			qs.CompletedAt = *opts.CompletedAt
		}
	}

	return qs, nil
}

// CalculateScore returns round(100 * correct / total), 0 for an empty set.
func CalculateScore(questions []*QuestionSubmission) int {
	if len(questions) == 0 {
		return 0
	}
	correct := 0
	for _, q := range questions {
		if q.IsCorrect {
			correct++
		}
	}
	return int(math.Round(100 * float64(correct) / float64(len(questions))))
}

// CheckPass reports whether a score meets the passing threshold.
func CheckPass(score, passingScore int) bool {
	return score >= passingScore
}

// CorrectCount returns how many answers were correct.
func (qs *QuestionnaireSubmission) CorrectCount() int {
	count := 0
	for _, q := range qs.Questions {
		if q.IsCorrect {
			count++
		}
	}
	return count
}
