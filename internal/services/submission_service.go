package services

import (
	"context"
	"errors"
	"log"
	"time"

	"progress-service/internal/event"
	"progress-service/internal/models"
)

// ErrAttemptLimitReached means the learner has used every allowed attempt for
// a questionnaire. Handlers map it to a dedicated status code.
var ErrAttemptLimitReached = errors.New("questionnaire attempt limit reached")

// SubmissionStore is the persistence contract for scored submissions.
type SubmissionStore interface {
	CountAttempts(ctx context.Context, questionnaireID, userID string) (int, error)
	FindByUserAndQuestionnaire(ctx context.Context, questionnaireID, userID string) ([]*models.QuestionnaireSubmission, error)
	Save(ctx context.Context, submission *models.QuestionnaireSubmission) (*models.QuestionnaireSubmission, error)
}

// QuestionnaireStore reads and writes questionnaire definitions.
type QuestionnaireStore interface {
	GetByID(ctx context.Context, questionnaireID string) (*models.Questionnaire, error)
	Create(ctx context.Context, questionnaire *models.Questionnaire) (*models.Questionnaire, error)
}

// SubmittedAnswer is one raw answer as received from the client, before
// grading.
type SubmittedAnswer struct {
	QuestionID          string `json:"questionId"`
	SelectedOptionIndex int    `json:"selectedOptionIndex"`
}

type SubmissionService struct {
	submissionRepo    SubmissionStore
	questionnaireRepo QuestionnaireStore
	publisher         event.Publisher

	defaultPassingScore int
	defaultMaxAttempts  int
}

// NewSubmissionService creates a new submission service. defaultMaxAttempts
// of 0 means unlimited attempts unless the questionnaire sets its own ceiling.
func NewSubmissionService(submissionRepo SubmissionStore, questionnaireRepo QuestionnaireStore, publisher event.Publisher, defaultPassingScore, defaultMaxAttempts int) *SubmissionService {
	return &SubmissionService{
		submissionRepo:      submissionRepo,
		questionnaireRepo:   questionnaireRepo,
		publisher:           publisher,
		defaultPassingScore: defaultPassingScore,
		defaultMaxAttempts:  defaultMaxAttempts,
	}
}

// SubmitQuestionnaire grades a full answer set against the questionnaire
// definition, enforces the attempt ceiling, persists the scored attempt and
// publishes the result. Every question must be answered exactly once.
func (s *SubmissionService) SubmitQuestionnaire(ctx context.Context, questionnaireID, userID, institutionID string, answers []SubmittedAnswer) (*models.QuestionnaireSubmission, error) {
	questionnaire, err := s.questionnaireRepo.GetByID(ctx, questionnaireID)
	if err != nil {
		return nil, err
	}
	if questionnaire == nil {
		return nil, models.NewNotFoundError("questionnaire", questionnaireID)
	}

	priorAttempts, err := s.submissionRepo.CountAttempts(ctx, questionnaireID, userID)
	if err != nil {
		return nil, err
	}

	maxAttempts := questionnaire.EffectiveMaxAttempts(s.defaultMaxAttempts)
	if maxAttempts > 0 && priorAttempts >= maxAttempts {
		return nil, ErrAttemptLimitReached
	}

	graded, err := s.gradeAnswers(questionnaire, answers)
	if err != nil {
		return nil, err
	}

	passingScore := questionnaire.EffectivePassingScore(s.defaultPassingScore)
	submission, err := models.NewQuestionnaireSubmission(
		questionnaireID,
		userID,
		institutionID,
		questionnaire.CourseID,
		graded,
		priorAttempts+1,
		&models.QuestionnaireSubmissionOptions{PassingScore: &passingScore},
	)
	if err != nil {
		return nil, err
	}

	saved, err := s.submissionRepo.Save(ctx, submission)
	if err != nil {
		return nil, err
	}

	s.publishResult(saved)
	return saved, nil
}

// CreateQuestionnaire validates and stores a questionnaire definition
// (authoring flows, admin only at the transport layer).
func (s *SubmissionService) CreateQuestionnaire(ctx context.Context, questionnaire *models.Questionnaire) (*models.Questionnaire, error) {
	if questionnaire.Title == "" {
		return nil, models.NewValidationError("title", "must not be empty")
	}
	if questionnaire.InstitutionID == "" {
		return nil, models.NewValidationError("institutionId", "must not be empty")
	}
	if len(questionnaire.Questions) == 0 {
		return nil, models.NewValidationError("questions", "must not be empty")
	}
	seen := make(map[string]bool, len(questionnaire.Questions))
	for _, q := range questionnaire.Questions {
		if q.QuestionID == "" {
			return nil, models.NewValidationError("questions", "every question needs an ID")
		}
		if seen[q.QuestionID] {
			return nil, models.NewValidationError("questions", "duplicate question ID: "+q.QuestionID)
		}
		seen[q.QuestionID] = true
		if len(q.Options) < 2 {
			return nil, models.NewValidationError("questions", "question "+q.QuestionID+" needs at least 2 options")
		}
		if q.CorrectOptionIndex < 0 || q.CorrectOptionIndex >= len(q.Options) {
			return nil, models.NewValidationError("questions", "correct option index out of range for question "+q.QuestionID)
		}
	}
	if questionnaire.PassingScore < 0 || questionnaire.PassingScore > 100 {
		return nil, models.NewValidationError("passingScore", "must be between 0 and 100")
	}
	if questionnaire.MaxAttempts < 0 {
		return nil, models.NewValidationError("maxAttempts", "must not be negative")
	}

	return s.questionnaireRepo.Create(ctx, questionnaire)
}

// GetAttemptCount returns how many attempts a learner has used and the
// ceiling that applies, 0 meaning unlimited.
func (s *SubmissionService) GetAttemptCount(ctx context.Context, questionnaireID, userID string) (used, limit int, err error) {
	questionnaire, err := s.questionnaireRepo.GetByID(ctx, questionnaireID)
	if err != nil {
		return 0, 0, err
	}
	if questionnaire == nil {
		return 0, 0, models.NewNotFoundError("questionnaire", questionnaireID)
	}

	used, err = s.submissionRepo.CountAttempts(ctx, questionnaireID, userID)
	if err != nil {
		return 0, 0, err
	}

	return used, questionnaire.EffectiveMaxAttempts(s.defaultMaxAttempts), nil
}

// GetSubmissions returns a learner's attempts for one questionnaire, newest
// first.
func (s *SubmissionService) GetSubmissions(ctx context.Context, questionnaireID, userID string) ([]*models.QuestionnaireSubmission, error) {
	return s.submissionRepo.FindByUserAndQuestionnaire(ctx, questionnaireID, userID)
}

// gradeAnswers evaluates each raw answer against its question definition.
// Unknown questions, duplicate answers and incomplete answer sets are
// rejected before anything is scored.
func (s *SubmissionService) gradeAnswers(questionnaire *models.Questionnaire, answers []SubmittedAnswer) ([]*models.QuestionSubmission, error) {
	if len(answers) == 0 {
		return nil, models.NewValidationError("answers", "must not be empty")
	}

	seen := make(map[string]bool, len(answers))
	graded := make([]*models.QuestionSubmission, 0, len(answers))

	for _, answer := range answers {
		question := questionnaire.FindQuestion(answer.QuestionID)
		if question == nil {
			return nil, models.NewValidationError("answers", "unknown question: "+answer.QuestionID)
		}
		if seen[answer.QuestionID] {
			return nil, models.NewValidationError("answers", "duplicate answer for question: "+answer.QuestionID)
		}
		if answer.SelectedOptionIndex >= len(question.Options) {
			return nil, models.NewValidationError("answers", "option index out of range for question: "+answer.QuestionID)
		}
		seen[answer.QuestionID] = true

		qs, err := models.NewGradedQuestionSubmission(answer.QuestionID, answer.SelectedOptionIndex, question.CorrectOptionIndex)
		if err != nil {
			return nil, err
		}
		graded = append(graded, qs)
	}

	if len(graded) != len(questionnaire.Questions) {
		return nil, models.NewValidationError("answers", "every question must be answered")
	}

	return graded, nil
}

func (s *SubmissionService) publishResult(submission *models.QuestionnaireSubmission) {
	if s.publisher == nil {
		return
	}

	base := event.SubmissionEvent{
		SubmissionID:    submission.ID.Hex(),
		QuestionnaireID: submission.QuestionnaireID,
		UserID:          submission.UserID,
		InstitutionID:   submission.InstitutionID,
		CourseID:        submission.CourseID,
		Score:           submission.Score,
		Passed:          submission.Passed,
		Attempt:         submission.Attempt,
		Timestamp:       time.Now().Unix(),
	}

	submitted := base
	submitted.EventType = event.EventTypeQuizSubmitted
	if err := s.publisher.PublishSubmissionEvent(&submitted); err != nil {
		log.Printf("Failed to publish %s event: %v", submitted.EventType, err)
	}

	result := base
	if submission.Passed {
		result.EventType = event.EventTypeQuizPassed
	} else {
		result.EventType = event.EventTypeQuizFailed
	}
	if err := s.publisher.PublishSubmissionEvent(&result); err != nil {
		log.Printf("Failed to publish %s event: %v", result.EventType, err)
	}
}
