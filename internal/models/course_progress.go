package models

import "math"

// CourseProgressSummary is the course-wide rollup of a learner's lesson
// progress records.
type CourseProgressSummary struct {
	CourseID           string `json:"courseId"`
	UserID             string `json:"userId"`
	ProgressPercentage int    `json:"progressPercentage"`
	TotalLessons       int    `json:"totalLessons"`
	CompletedLessons   int    `json:"completedLessons"`
	InProgressLessons  int    `json:"inProgressLessons"`
	NotStartedLessons  int    `json:"notStartedLessons"`
}

// CalculateCourseProgress folds the course's full lesson-ID list against the
// learner's lesson progress records. The course structure is the source of
// truth for how many lessons exist; lessons the learner never opened count
// as not started and contribute 0. A completed lesson contributes 100, an
// in-progress one its own overall percentage. Order independent, mutates
// nothing.
func CalculateCourseProgress(courseID, userID string, lessonIDs []string, records []*LessonProgress) *CourseProgressSummary {
	summary := &CourseProgressSummary{
		CourseID:     courseID,
		UserID:       userID,
		TotalLessons: len(lessonIDs),
	}
	if len(lessonIDs) == 0 {
		return summary
	}

	byLesson := make(map[string]*LessonProgress, len(records))
	for _, lp := range records {
		byLesson[lp.LessonID] = lp
	}

	var sum float64
	for _, lessonID := range lessonIDs {
		lp, ok := byLesson[lessonID]
		if !ok {
			summary.NotStartedLessons++
			continue
		}
		switch lp.Status {
		case StatusCompleted:
			summary.CompletedLessons++
			sum += 100
		case StatusInProgress:
			summary.InProgressLessons++
			sum += lp.CalculateOverallProgress()
		default:
			summary.NotStartedLessons++
		}
	}

	summary.ProgressPercentage = int(math.Round(sum / float64(summary.TotalLessons)))
	return summary
}
