package settlement

import (
	"testing"

	"github.com/alanyoungcy/quizpool/internal/domain"
)

func questionSet() []domain.Question {
	return []domain.Question{
		{Index: 0, Text: "q0", Options: []string{"a", "b", "c"}, CorrectOption: 1, Points: 10},
		{Index: 1, Text: "q1", Options: []string{"yes", "no"}, CorrectOption: 0, Points: 20},
		{Index: 2, Text: "q2", Options: []string{"x", "y", "z", "w"}, CorrectOption: 3, Points: 5},
	}
}

func TestGrade(t *testing.T) {
	qs := questionSet()

	tests := []struct {
		name    string
		answers []int
		want    int64
	}{
		{"all correct", []int{1, 0, 3}, 35},
		{"all wrong", []int{0, 1, 0}, 0},
		{"partial", []int{1, 1, 3}, 15},
		{"out of range ignored", []int{1, 99, -1}, 10},
		{"negative index never matches", []int{-1, -1, -1}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Grade(qs, tt.answers); got != tt.want {
				t.Errorf("Grade(%v) = %d, want %d", tt.answers, got, tt.want)
			}
		})
	}
}

func TestGradeDeterministic(t *testing.T) {
	qs := questionSet()
	answers := []int{1, 0, 2}

	first := Grade(qs, answers)
	second := Grade(qs, answers)
	if first != second {
		t.Fatalf("grading not deterministic: %d then %d", first, second)
	}
}

func TestGradeEmptyQuestionSet(t *testing.T) {
	if got := Grade(nil, nil); got != 0 {
		t.Fatalf("Grade(nil, nil) = %d, want 0", got)
	}
}
