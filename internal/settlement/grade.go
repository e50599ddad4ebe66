// Package settlement holds the pure arithmetic of the competition core:
// answer grading and the proportional reward split. Everything here is
// deterministic and side-effect free; persistence and event emission live
// in the service layer.
package settlement

import "github.com/alanyoungcy/quizpool/internal/domain"

// Grade scores one submission against the competition's question set. For
// each index i, questions[i].Points is awarded iff answers[i] names the
// correct option; out-of-range option indices award nothing. Callers must
// have already verified len(answers) == len(questions).
func Grade(questions []domain.Question, answers []int) int64 {
	var total int64
	for i, q := range questions {
		if i >= len(answers) {
			break
		}
		a := answers[i]
		if a < 0 || a >= len(q.Options) {
			continue
		}
		if a == q.CorrectOption {
			total += q.Points
		}
	}
	return total
}
