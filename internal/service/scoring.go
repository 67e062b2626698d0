package service

import (
	"sort"

	"edulearn_backend/internal/model"
	"edulearn_backend/internal/util"
)

// AnswerInput is one learner response handed to the grading engine.
type AnswerInput struct {
	QuestionID        uint   `json:"questionId" binding:"required"`
	Text              string `json:"text"`
	SelectedOptionIDs []uint `json:"selectedOptionIds"`
	ArtifactPath      string `json:"artifactPath"`
}

// GradingResult is the verdict for a single answer. IsCorrect stays nil
// while the answer is pending manual review.
type GradingResult struct {
	IsCorrect            *bool
	PointsEarned         float64
	RequiresManualReview bool
}

func manualReviewResult() GradingResult {
	return GradingResult{IsCorrect: nil, PointsEarned: 0, RequiresManualReview: true}
}

func boolResult(correct bool, points float64) GradingResult {
	return GradingResult{IsCorrect: &correct, PointsEarned: points}
}

// GradeAnswer grades one answer against its question definition. Questions
// whose effective manual-grading flag is set, and questions of a type the
// engine does not recognize, are left unresolved for a human grader rather
// than silently auto-scored.
func GradeAnswer(q *model.Question, in AnswerInput) GradingResult {
	if q.RequiresManualGrading() {
		return manualReviewResult()
	}

	points := float64(q.Points)

	switch q.Type {
	case model.QuestionSingleChoice, model.QuestionTrueFalse:
		return gradeSingleChoice(q, in, points)
	case model.QuestionMultipleChoice:
		return gradeMultipleChoice(q, in, points)
	default:
		return manualReviewResult()
	}
}

// gradeSingleChoice awards full points or zero: the single selected option
// must equal the question's unique correct option.
func gradeSingleChoice(q *model.Question, in AnswerInput, points float64) GradingResult {
	selected := dedupeIDs(in.SelectedOptionIDs)
	correct := q.CorrectOptionIDs()

	if len(selected) == 1 && len(correct) == 1 && selected[0] == correct[0] {
		return boolResult(true, points)
	}
	return boolResult(false, 0)
}

// gradeMultipleChoice compares selected and correct option ids as sorted
// sets. An exact match earns full points; a partial overlap earns
// |S∩C|/|C| of the possible points with is_correct=false.
func gradeMultipleChoice(q *model.Question, in AnswerInput, points float64) GradingResult {
	selected := dedupeIDs(in.SelectedOptionIDs)
	correct := dedupeIDs(q.CorrectOptionIDs())

	// No correct options defined: nothing can be earned, and no selection
	// can be exact. Guards the |C| division below.
	if len(correct) == 0 {
		return boolResult(false, 0)
	}

	if equalIDs(selected, correct) {
		return boolResult(true, points)
	}

	overlap := intersectCount(selected, correct)
	if overlap == 0 {
		return boolResult(false, 0)
	}

	earned := util.Round2(float64(overlap) / float64(len(correct)) * points)
	return boolResult(false, earned)
}

// GradeTierFor maps a percentage score onto the fixed tier ladder. The
// thresholds are evaluated in strict descending order; only the passing
// threshold is test-specific.
func GradeTierFor(score, passingScore float64) model.GradeTier {
	switch {
	case score >= 90:
		return model.GradeExcellent
	case score >= 80:
		return model.GradeVeryGood
	case score >= 70:
		return model.GradeGood
	case score >= passingScore:
		return model.GradePass
	default:
		return model.GradeFail
	}
}

// PercentageScore converts earned/total points into a 0-100 score rounded
// to two decimals. A test worth zero points scores zero, not an error.
func PercentageScore(pointsEarned, totalPoints float64) float64 {
	if totalPoints <= 0 {
		return 0
	}
	score := util.Round2(pointsEarned / totalPoints * 100)
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// dedupeIDs returns the sorted, duplicate-free copy of ids.
func dedupeIDs(ids []uint) []uint {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func equalIDs(a, b []uint) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func intersectCount(a, b []uint) int {
	set := make(map[uint]struct{}, len(b))
	for _, id := range b {
		set[id] = struct{}{}
	}
	n := 0
	for _, id := range a {
		if _, ok := set[id]; ok {
			n++
		}
	}
	return n
}
