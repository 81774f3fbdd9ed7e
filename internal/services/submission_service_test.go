package services

import (
	"context"
	"errors"
	"testing"

	"progress-service/internal/event"
	"progress-service/internal/models"
)

type fakeSubmissionStore struct {
	submissions []*models.QuestionnaireSubmission
}

func (f *fakeSubmissionStore) CountAttempts(ctx context.Context, questionnaireID, userID string) (int, error) {
	count := 0
	for _, s := range f.submissions {
		if s.QuestionnaireID == questionnaireID && s.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (f *fakeSubmissionStore) FindByUserAndQuestionnaire(ctx context.Context, questionnaireID, userID string) ([]*models.QuestionnaireSubmission, error) {
	var out []*models.QuestionnaireSubmission
	for i := len(f.submissions) - 1; i >= 0; i-- {
		s := f.submissions[i]
		if s.QuestionnaireID == questionnaireID && s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSubmissionStore) Save(ctx context.Context, submission *models.QuestionnaireSubmission) (*models.QuestionnaireSubmission, error) {
	f.submissions = append(f.submissions, submission)
	return submission, nil
}

type fakeQuestionnaireStore struct {
	questionnaires map[string]*models.Questionnaire
}

func (f *fakeQuestionnaireStore) GetByID(ctx context.Context, questionnaireID string) (*models.Questionnaire, error) {
	return f.questionnaires[questionnaireID], nil
}

func (f *fakeQuestionnaireStore) Create(ctx context.Context, questionnaire *models.Questionnaire) (*models.Questionnaire, error) {
	f.questionnaires[questionnaire.Title] = questionnaire
	return questionnaire, nil
}

func testQuestionnaire(passingScore, maxAttempts int) *models.Questionnaire {
	return &models.Questionnaire{
		CourseID:      "course-1",
		InstitutionID: "inst-1",
		Title:         "Unit check",
		Questions: []models.QuestionnaireQuestion{
			{QuestionID: "q1", Prompt: "1+1", Options: []string{"1", "2", "3"}, CorrectOptionIndex: 1},
			{QuestionID: "q2", Prompt: "2+2", Options: []string{"3", "4", "5"}, CorrectOptionIndex: 1},
			{QuestionID: "q3", Prompt: "3+3", Options: []string{"5", "6", "7"}, CorrectOptionIndex: 1},
			{QuestionID: "q4", Prompt: "4+4", Options: []string{"7", "8", "9"}, CorrectOptionIndex: 1},
		},
		PassingScore: passingScore,
		MaxAttempts:  maxAttempts,
	}
}

func newSubmissionFixture(q *models.Questionnaire, defaultMaxAttempts int) (*SubmissionService, *fakeSubmissionStore, *fakePublisher) {
	store := &fakeSubmissionStore{}
	qStore := &fakeQuestionnaireStore{questionnaires: map[string]*models.Questionnaire{"quiz-1": q}}
	pub := &fakePublisher{}
	return NewSubmissionService(store, qStore, pub, 0, defaultMaxAttempts), store, pub
}

func allAnswers(indexes ...int) []SubmittedAnswer {
	ids := []string{"q1", "q2", "q3", "q4"}
	answers := make([]SubmittedAnswer, len(indexes))
	for i, idx := range indexes {
		answers[i] = SubmittedAnswer{QuestionID: ids[i], SelectedOptionIndex: idx}
	}
	return answers
}

func TestSubmitQuestionnaireScoresAndPasses(t *testing.T) {
	svc, _, pub := newSubmissionFixture(testQuestionnaire(70, 0), 0)

	// 3 of 4 correct -> 75, above the 70 threshold.
	sub, err := svc.SubmitQuestionnaire(context.Background(), "quiz-1", "user-1", "inst-1", allAnswers(1, 1, 1, 0))
	if err != nil {
		t.Fatalf("SubmitQuestionnaire() error = %v", err)
	}

	if sub.Score != 75 {
		t.Errorf("Score = %d, want 75", sub.Score)
	}
	if !sub.Passed {
		t.Error("submission should pass at 75 against threshold 70")
	}
	if sub.Attempt != 1 {
		t.Errorf("Attempt = %d, want 1", sub.Attempt)
	}
	if sub.CourseID != "course-1" {
		t.Errorf("CourseID = %q, want the questionnaire's course", sub.CourseID)
	}

	if len(pub.submissionEvents) != 2 {
		t.Fatalf("published events = %d, want 2", len(pub.submissionEvents))
	}
	if pub.submissionEvents[0].EventType != event.EventTypeQuizSubmitted {
		t.Errorf("first event = %q, want %q", pub.submissionEvents[0].EventType, event.EventTypeQuizSubmitted)
	}
	if pub.submissionEvents[1].EventType != event.EventTypeQuizPassed {
		t.Errorf("second event = %q, want %q", pub.submissionEvents[1].EventType, event.EventTypeQuizPassed)
	}
}

func TestSubmitQuestionnaireFailsBelowThreshold(t *testing.T) {
	svc, _, pub := newSubmissionFixture(testQuestionnaire(70, 0), 0)

	// 2 of 4 correct -> 50.
	sub, err := svc.SubmitQuestionnaire(context.Background(), "quiz-1", "user-1", "inst-1", allAnswers(1, 1, 0, 0))
	if err != nil {
		t.Fatalf("SubmitQuestionnaire() error = %v", err)
	}

	if sub.Score != 50 || sub.Passed {
		t.Errorf("got score=%d passed=%v, want 50/false", sub.Score, sub.Passed)
	}
	if pub.submissionEvents[1].EventType != event.EventTypeQuizFailed {
		t.Errorf("second event = %q, want %q", pub.submissionEvents[1].EventType, event.EventTypeQuizFailed)
	}
}

func TestSubmitQuestionnaireAttemptNumbering(t *testing.T) {
	svc, _, _ := newSubmissionFixture(testQuestionnaire(70, 0), 0)
	ctx := context.Background()

	for want := 1; want <= 3; want++ {
		sub, err := svc.SubmitQuestionnaire(ctx, "quiz-1", "user-1", "inst-1", allAnswers(1, 1, 1, 1))
		if err != nil {
			t.Fatalf("attempt %d: error = %v", want, err)
		}
		if sub.Attempt != want {
			t.Errorf("Attempt = %d, want %d", sub.Attempt, want)
		}
	}
}

func TestSubmitQuestionnaireAttemptLimit(t *testing.T) {
	svc, _, _ := newSubmissionFixture(testQuestionnaire(70, 2), 0)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := svc.SubmitQuestionnaire(ctx, "quiz-1", "user-1", "inst-1", allAnswers(1, 1, 1, 1)); err != nil {
			t.Fatalf("attempt %d: error = %v", i+1, err)
		}
	}

	_, err := svc.SubmitQuestionnaire(ctx, "quiz-1", "user-1", "inst-1", allAnswers(1, 1, 1, 1))
	if !errors.Is(err, ErrAttemptLimitReached) {
		t.Fatalf("third attempt error = %v, want ErrAttemptLimitReached", err)
	}
}

func TestSubmitQuestionnaireDefaultAttemptCeiling(t *testing.T) {
	// Questionnaire has no ceiling of its own, service default applies.
	svc, _, _ := newSubmissionFixture(testQuestionnaire(70, 0), 1)
	ctx := context.Background()

	if _, err := svc.SubmitQuestionnaire(ctx, "quiz-1", "user-1", "inst-1", allAnswers(1, 1, 1, 1)); err != nil {
		t.Fatalf("first attempt error = %v", err)
	}

	_, err := svc.SubmitQuestionnaire(ctx, "quiz-1", "user-1", "inst-1", allAnswers(1, 1, 1, 1))
	if !errors.Is(err, ErrAttemptLimitReached) {
		t.Fatalf("second attempt error = %v, want ErrAttemptLimitReached", err)
	}
}

func TestSubmitQuestionnaireAttemptLimitPerUser(t *testing.T) {
	svc, _, _ := newSubmissionFixture(testQuestionnaire(70, 1), 0)
	ctx := context.Background()

	if _, err := svc.SubmitQuestionnaire(ctx, "quiz-1", "user-1", "inst-1", allAnswers(1, 1, 1, 1)); err != nil {
		t.Fatalf("user-1 attempt error = %v", err)
	}

	// Another learner starts from a clean slate.
	if _, err := svc.SubmitQuestionnaire(ctx, "quiz-1", "user-2", "inst-1", allAnswers(1, 1, 1, 1)); err != nil {
		t.Fatalf("user-2 attempt error = %v", err)
	}
}

func TestSubmitQuestionnaireValidation(t *testing.T) {
	tests := []struct {
		name    string
		answers []SubmittedAnswer
	}{
		{"empty answer set", nil},
		{"unknown question", []SubmittedAnswer{
			{QuestionID: "q1", SelectedOptionIndex: 1},
			{QuestionID: "q2", SelectedOptionIndex: 1},
			{QuestionID: "q3", SelectedOptionIndex: 1},
			{QuestionID: "bogus", SelectedOptionIndex: 1},
		}},
		{"duplicate answer", []SubmittedAnswer{
			{QuestionID: "q1", SelectedOptionIndex: 1},
			{QuestionID: "q1", SelectedOptionIndex: 1},
			{QuestionID: "q2", SelectedOptionIndex: 1},
			{QuestionID: "q3", SelectedOptionIndex: 1},
		}},
		{"option index out of range", []SubmittedAnswer{
			{QuestionID: "q1", SelectedOptionIndex: 9},
			{QuestionID: "q2", SelectedOptionIndex: 1},
			{QuestionID: "q3", SelectedOptionIndex: 1},
			{QuestionID: "q4", SelectedOptionIndex: 1},
		}},
		{"incomplete answer set", []SubmittedAnswer{
			{QuestionID: "q1", SelectedOptionIndex: 1},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store, _ := newSubmissionFixture(testQuestionnaire(70, 0), 0)

			_, err := svc.SubmitQuestionnaire(context.Background(), "quiz-1", "user-1", "inst-1", tt.answers)
			var ve *models.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("error = %v, want ValidationError", err)
			}
			if len(store.submissions) != 0 {
				t.Error("rejected submission must not be persisted")
			}
		})
	}
}

func TestSubmitQuestionnaireUnknownQuestionnaire(t *testing.T) {
	svc, _, _ := newSubmissionFixture(testQuestionnaire(70, 0), 0)

	_, err := svc.SubmitQuestionnaire(context.Background(), "missing", "user-1", "inst-1", allAnswers(1, 1, 1, 1))
	var nfe *models.NotFoundError
	if !errors.As(err, &nfe) {
		t.Fatalf("error = %v, want NotFoundError", err)
	}
}

func TestSubmitQuestionnaireRejectedAttemptNotCounted(t *testing.T) {
	svc, _, _ := newSubmissionFixture(testQuestionnaire(70, 1), 0)
	ctx := context.Background()

	if _, err := svc.SubmitQuestionnaire(ctx, "quiz-1", "user-1", "inst-1", nil); err == nil {
		t.Fatal("invalid submission should be rejected")
	}

	// The rejected submission must not have consumed the single attempt.
	if _, err := svc.SubmitQuestionnaire(ctx, "quiz-1", "user-1", "inst-1", allAnswers(1, 1, 1, 1)); err != nil {
		t.Fatalf("valid attempt after rejection error = %v", err)
	}
}

func TestCreateQuestionnaire(t *testing.T) {
	valid := func() *models.Questionnaire {
		return &models.Questionnaire{
			CourseID:      "course-1",
			InstitutionID: "inst-1",
			Title:         "Module check",
			Questions: []models.QuestionnaireQuestion{
				{QuestionID: "q1", Prompt: "pick", Options: []string{"a", "b"}, CorrectOptionIndex: 0},
			},
			PassingScore: 80,
			MaxAttempts:  2,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*models.Questionnaire)
		wantErr bool
	}{
		{"valid", func(q *models.Questionnaire) {}, false},
		{"missing title", func(q *models.Questionnaire) { q.Title = "" }, true},
		{"missing institution", func(q *models.Questionnaire) { q.InstitutionID = "" }, true},
		{"no questions", func(q *models.Questionnaire) { q.Questions = nil }, true},
		{"question without ID", func(q *models.Questionnaire) { q.Questions[0].QuestionID = "" }, true},
		{"single option", func(q *models.Questionnaire) { q.Questions[0].Options = []string{"a"} }, true},
		{"correct index out of range", func(q *models.Questionnaire) { q.Questions[0].CorrectOptionIndex = 5 }, true},
		{"passing score above 100", func(q *models.Questionnaire) { q.PassingScore = 120 }, true},
		{"negative max attempts", func(q *models.Questionnaire) { q.MaxAttempts = -1 }, true},
		{"duplicate question IDs", func(q *models.Questionnaire) {
			q.Questions = append(q.Questions, q.Questions[0])
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _ := newSubmissionFixture(testQuestionnaire(70, 0), 0)
			q := valid()
			tt.mutate(q)

			_, err := svc.CreateQuestionnaire(context.Background(), q)
			if tt.wantErr {
				var ve *models.ValidationError
				if !errors.As(err, &ve) {
					t.Fatalf("error = %v, want ValidationError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("CreateQuestionnaire() error = %v", err)
			}
		})
	}
}

func TestGetAttemptCount(t *testing.T) {
	svc, _, _ := newSubmissionFixture(testQuestionnaire(70, 3), 0)
	ctx := context.Background()

	if _, err := svc.SubmitQuestionnaire(ctx, "quiz-1", "user-1", "inst-1", allAnswers(1, 1, 1, 1)); err != nil {
		t.Fatalf("SubmitQuestionnaire() error = %v", err)
	}

	used, limit, err := svc.GetAttemptCount(ctx, "quiz-1", "user-1")
	if err != nil {
		t.Fatalf("GetAttemptCount() error = %v", err)
	}
	if used != 1 || limit != 3 {
		t.Errorf("got used=%d limit=%d, want 1/3", used, limit)
	}
}

func TestGetSubmissionsNewestFirst(t *testing.T) {
	svc, _, _ := newSubmissionFixture(testQuestionnaire(70, 0), 0)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := svc.SubmitQuestionnaire(ctx, "quiz-1", "user-1", "inst-1", allAnswers(1, 1, 1, 1)); err != nil {
			t.Fatalf("attempt %d: error = %v", i+1, err)
		}
	}

	subs, err := svc.GetSubmissions(ctx, "quiz-1", "user-1")
	if err != nil {
		t.Fatalf("GetSubmissions() error = %v", err)
	}
	if len(subs) != 2 {
		t.Fatalf("len = %d, want 2", len(subs))
	}
	if subs[0].Attempt != 2 {
		t.Errorf("first result attempt = %d, want newest (2)", subs[0].Attempt)
	}
}
