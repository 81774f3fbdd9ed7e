package models

import (
	"testing"
	"time"
)

func newTestLesson(t *testing.T, contentIDs ...string) *LessonProgress {
	t.Helper()
	lp, err := NewLessonProgress("user-1", "lesson-1", "inst-1", contentIDs, nil)
	if err != nil {
		t.Fatalf("failed to create lesson progress: %v", err)
	}
	return lp
}

func TestNewLessonProgress(t *testing.T) {
	lp := newTestLesson(t, "c1", "c2", "c3")

	if lp.Status != StatusInProgress {
		t.Errorf("expected initial status %s, got %s", StatusInProgress, lp.Status)
	}
	if len(lp.ContentProgresses) != 3 {
		t.Fatalf("expected 3 content progresses, got %d", len(lp.ContentProgresses))
	}
	for i, id := range []string{"c1", "c2", "c3"} {
		if lp.ContentProgresses[i].ContentID != id {
			t.Errorf("expected content %s at index %d, got %s", id, i, lp.ContentProgresses[i].ContentID)
		}
	}
}

func TestNewLessonProgressValidation(t *testing.T) {
	testCases := []struct {
		name          string
		userID        string
		lessonID      string
		institutionID string
		contentIDs    []string
	}{
		{"empty user", "", "lesson-1", "inst-1", []string{"c1"}},
		{"empty lesson", "user-1", "", "inst-1", []string{"c1"}},
		{"empty institution", "user-1", "lesson-1", "", []string{"c1"}},
		{"no content", "user-1", "lesson-1", "inst-1", nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewLessonProgress(tc.userID, tc.lessonID, tc.institutionID, tc.contentIDs, nil)
			if err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLessonCompletionInAnyOrder(t *testing.T) {
	orders := [][]string{
		{"c1", "c2", "c3"},
		{"c3", "c1", "c2"},
		{"c2", "c3", "c1"},
	}

	for _, order := range orders {
		lp := newTestLesson(t, "c1", "c2", "c3")
		for _, id := range order {
			if err := lp.MarkContentCompleted(id); err != nil {
				t.Fatalf("unexpected error completing %s: %v", id, err)
			}
		}
		if lp.Status != StatusCompleted {
			t.Errorf("expected completed lesson after order %v, got %s", order, lp.Status)
		}
		if lp.CompletedAt == nil {
			t.Error("expected completedAt on completed lesson")
		}
	}
}

func TestLessonNotCompletedUntilAllItems(t *testing.T) {
	lp := newTestLesson(t, "c1", "c2")
	lp.MarkContentCompleted("c1")

	if lp.Status != StatusInProgress {
		t.Errorf("expected in progress with one item left, got %s", lp.Status)
	}
	if lp.CompletedAt != nil {
		t.Errorf("expected nil completedAt, got %v", lp.CompletedAt)
	}
}

func TestLessonDemotion(t *testing.T) {
	lp := newTestLesson(t, "c1", "c2")
	lp.MarkContentCompleted("c1")
	lp.MarkContentCompleted("c2")

	if lp.Status != StatusCompleted {
		t.Fatalf("expected completed lesson, got %s", lp.Status)
	}

	// Re-watching part of an item demotes the whole lesson.
	if err := lp.UpdateContentProgress("c2", 70, 0, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if lp.Status != StatusInProgress {
		t.Errorf("expected demotion to %s, got %s", StatusInProgress, lp.Status)
	}
	if lp.CompletedAt != nil {
		t.Errorf("expected completedAt cleared on demotion, got %v", lp.CompletedAt)
	}
}

func TestCheckAndUpdateCompletionIdempotent(t *testing.T) {
	lp := newTestLesson(t, "c1")
	lp.MarkContentCompleted("c1")

	status := lp.Status
	completedAt := *lp.CompletedAt
	updatedAt := lp.UpdatedAt

	lp.CheckAndUpdateCompletion()
	lp.CheckAndUpdateCompletion()

	if lp.Status != status || !lp.CompletedAt.Equal(completedAt) || !lp.UpdatedAt.Equal(updatedAt) {
		t.Error("re-evaluation without mutation must not change state")
	}
}

func TestUpdateContentProgressNotFound(t *testing.T) {
	lp := newTestLesson(t, "c1")

	err := lp.UpdateContentProgress("missing", 50, 0, nil)
	if err == nil {
		t.Fatal("expected not found error")
	}
	if _, ok := err.(*NotFoundError); !ok {
		t.Errorf("expected *NotFoundError, got %T", err)
	}
}

func TestForceComplete(t *testing.T) {
	lp := newTestLesson(t, "c1", "c2", "c3")
	lp.UpdateContentProgress("c1", 30, 0, nil)

	lp.ForceComplete()

	if lp.Status != StatusCompleted {
		t.Errorf("expected completed lesson, got %s", lp.Status)
	}
	if lp.CompletedAt == nil {
		t.Error("expected completedAt to be set")
	}
	for _, cp := range lp.ContentProgresses {
		if !cp.IsCompleted() {
			t.Errorf("expected content %s completed", cp.ContentID)
		}
	}
}

func TestCalculateOverallProgress(t *testing.T) {
	lp := newTestLesson(t, "c1", "c2", "c3")
	lp.UpdateContentProgress("c1", 100, 0, nil)
	lp.UpdateContentProgress("c2", 50, 0, nil)

	if got := lp.CalculateOverallProgress(); got != 50.00 {
		t.Errorf("expected overall progress 50.00, got %f", got)
	}
}

func TestCalculateOverallProgressRounding(t *testing.T) {
	lp := newTestLesson(t, "c1", "c2", "c3")
	lp.UpdateContentProgress("c1", 100, 0, nil)

	// 100/3 rounds to 33.33
	if got := lp.CalculateOverallProgress(); got != 33.33 {
		t.Errorf("expected overall progress 33.33, got %f", got)
	}
}

func TestAddContentProgress(t *testing.T) {
	lp := newTestLesson(t, "c1")
	lp.MarkContentCompleted("c1")

	if err := lp.AddContentProgress("c2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The completed lesson gains an incomplete item and is demoted.
	if lp.Status != StatusInProgress {
		t.Errorf("expected demotion after adding content, got %s", lp.Status)
	}
	if lp.CompletedAt != nil {
		t.Error("expected completedAt cleared after demotion")
	}

	if err := lp.AddContentProgress("c2"); err == nil {
		t.Fatal("expected conflict error on duplicate add")
	} else if _, ok := err.(*ConflictError); !ok {
		t.Errorf("expected *ConflictError, got %T", err)
	}
}

func TestRemoveContentProgress(t *testing.T) {
	lp := newTestLesson(t, "c1", "c2")
	lp.MarkContentCompleted("c1")

	// Removing the only incomplete item completes the lesson.
	if err := lp.RemoveContentProgress("c2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lp.Status != StatusCompleted {
		t.Errorf("expected completed lesson after removal, got %s", lp.Status)
	}

	if err := lp.RemoveContentProgress("missing"); err == nil {
		t.Fatal("expected not found error")
	}
}

func TestTouchUpdatesAccessTimeOnly(t *testing.T) {
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	timeNow = fixedClock(base)
	defer func() { timeNow = time.Now }()

	lp := newTestLesson(t, "c1")

	later := base.Add(time.Hour)
	timeNow = fixedClock(later)
	lp.Touch()

	if !lp.LastAccessedAt.Equal(later) {
		t.Errorf("expected lastAccessedAt %v, got %v", later, lp.LastAccessedAt)
	}
	if lp.Status != StatusInProgress {
		t.Errorf("touch must not change status, got %s", lp.Status)
	}
}

func TestReconstructionRoundTrip(t *testing.T) {
	lp := newTestLesson(t, "c1", "c2", "c3")
	lp.UpdateContentProgress("c1", 100, 120, nil)
	lp.UpdateContentProgress("c2", 40, 60, nil)

	rebuilt, err := NewLessonProgress(lp.UserID, lp.LessonID, lp.InstitutionID, nil, &LessonProgressOptions{
		Status:            lp.Status,
		ContentProgresses: lp.ContentProgresses,
		StartedAt:         &lp.StartedAt,
		CompletedAt:       lp.CompletedAt,
		LastAccessedAt:    &lp.LastAccessedAt,
		UpdatedAt:         &lp.UpdatedAt,
	})
	if err != nil {
		t.Fatalf("failed to reconstruct: %v", err)
	}

	if rebuilt.Status != lp.Status {
		t.Errorf("expected status %s, got %s", lp.Status, rebuilt.Status)
	}
	if rebuilt.CalculateOverallProgress() != lp.CalculateOverallProgress() {
		t.Errorf("expected overall progress %f, got %f",
			lp.CalculateOverallProgress(), rebuilt.CalculateOverallProgress())
	}
}
