package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alanyoungcy/quizpool/internal/domain"
)

type participationFixture struct {
	store     *memCompetitionStore
	questions *memQuestionStore
	audit     *memAuditStore
	clock     *fakeClock
	svc       *ParticipationService
}

func newParticipationFixture(t *testing.T) *participationFixture {
	t.Helper()

	f := &participationFixture{
		store:     newMemCompetitionStore(),
		questions: newMemQuestionStore(),
		audit:     &memAuditStore{},
		clock:     &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
	}
	f.svc = NewParticipationService(
		f.store, f.questions, newMemCache(), newMemBus(), f.audit, f.clock, testLogger(),
	)
	return f
}

// openCompetition seeds a competition whose window contains the fixture's
// current instant.
func (f *participationFixture) openCompetition(t *testing.T, entryFee int64) int64 {
	t.Helper()
	id, err := f.store.Create(context.Background(), domain.Competition{
		Title:     "open",
		EntryFee:  entryFee,
		StartTime: f.clock.Now().Add(-time.Hour),
		EndTime:   f.clock.Now().Add(time.Hour),
		Active:    true,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return id
}

func TestJoinAccumulatesPool(t *testing.T) {
	f := newParticipationFixture(t)
	ctx := context.Background()
	id := f.openCompetition(t, 100)

	if err := f.svc.Join(ctx, id, "0xaaa", 100); err != nil {
		t.Fatalf("join 0xaaa: %v", err)
	}
	if err := f.svc.Join(ctx, id, "0xbbb", 100); err != nil {
		t.Fatalf("join 0xbbb: %v", err)
	}

	c, _ := f.store.GetByID(ctx, id)
	if c.RewardPool != 200 {
		t.Errorf("pool = %d after two joins, want 200", c.RewardPool)
	}

	ps, _ := f.svc.Participants(ctx, id)
	if len(ps) != 2 || ps[0].Address != "0xaaa" || ps[1].Address != "0xbbb" {
		t.Errorf("participants = %+v, want 0xaaa then 0xbbb", ps)
	}

	if !f.audit.has("participant_joined") {
		t.Error("no audit entry for join")
	}
}

func TestScoresImmutableAfterFinalize(t *testing.T) {
	f := newParticipationFixture(t)
	ctx := context.Background()
	id := f.openCompetition(t, 0)

	if err := f.svc.Join(ctx, id, "0xaaa", 0); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := f.store.Finalize(ctx, id, nil); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	// A grade racing past the service time gate still cannot land once the
	// settlement has consumed the scores.
	err := f.store.SetScore(ctx, id, "0xaaa", 10)
	if !errors.Is(err, domain.ErrCompetitionInactive) {
		t.Fatalf("set score after finalize err = %v, want ErrCompetitionInactive", err)
	}
	p, _ := f.store.GetParticipant(ctx, id, "0xaaa")
	if p.Score != 0 || p.Graded {
		t.Errorf("participant = %+v, want ungraded zero score", p)
	}
}

func TestJoinGating(t *testing.T) {
	f := newParticipationFixture(t)
	ctx := context.Background()
	id := f.openCompetition(t, 100)

	tests := []struct {
		name    string
		now     time.Time
		fee     int64
		wantErr error
	}{
		{"before start", f.clock.Now().Add(-2 * time.Hour), 100, domain.ErrNotOpenYet},
		{"after end", f.clock.Now().Add(2 * time.Hour), 100, domain.ErrClosed},
		{"fee too low", f.clock.Now(), 99, domain.ErrWrongFee},
		{"fee too high", f.clock.Now(), 101, domain.ErrWrongFee},
	}

	base := f.clock.Now()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.clock.set(tt.now)
			defer f.clock.set(base)
			err := f.svc.Join(ctx, id, "0xccc", tt.fee)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}

	// A rejected join never touches the pool.
	c, _ := f.store.GetByID(ctx, id)
	if c.RewardPool != 0 {
		t.Errorf("pool = %d after rejected joins, want 0", c.RewardPool)
	}
}

func TestJoinTwice(t *testing.T) {
	f := newParticipationFixture(t)
	ctx := context.Background()
	id := f.openCompetition(t, 100)

	if err := f.svc.Join(ctx, id, "0xaaa", 100); err != nil {
		t.Fatalf("first join: %v", err)
	}
	err := f.svc.Join(ctx, id, "0xaaa", 100)
	if !errors.Is(err, domain.ErrAlreadyJoined) {
		t.Fatalf("second join err = %v, want ErrAlreadyJoined", err)
	}

	c, _ := f.store.GetByID(ctx, id)
	if c.RewardPool != 100 {
		t.Errorf("pool = %d after duplicate join, want 100", c.RewardPool)
	}
}

func TestJoinMissingCompetition(t *testing.T) {
	f := newParticipationFixture(t)
	err := f.svc.Join(context.Background(), 999, "0xaaa", 100)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestSubmitAnswersGrades(t *testing.T) {
	f := newParticipationFixture(t)
	ctx := context.Background()
	id := f.openCompetition(t, 0)

	_, err := f.questions.Append(ctx, id, []domain.QuestionInput{
		{Text: "q0", Options: []string{"a", "b"}, CorrectOption: 1, Points: 10},
		{Text: "q1", Options: []string{"a", "b", "c"}, CorrectOption: 2, Points: 20},
	})
	if err != nil {
		t.Fatalf("append questions: %v", err)
	}
	if err := f.svc.Join(ctx, id, "0xaaa", 0); err != nil {
		t.Fatalf("join: %v", err)
	}

	score, err := f.svc.SubmitAnswers(ctx, id, "0xaaa", []int{1, 0})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if score != 10 {
		t.Errorf("score = %d, want 10", score)
	}

	// Resubmission overwrites: last submission wins.
	score, err = f.svc.SubmitAnswers(ctx, id, "0xaaa", []int{1, 2})
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if score != 30 {
		t.Errorf("resubmit score = %d, want 30", score)
	}

	p, _ := f.store.GetParticipant(ctx, id, "0xaaa")
	if p.Score != 30 || !p.Graded {
		t.Errorf("stored participant = %+v, want score 30 graded", p)
	}
}

func TestSubmitAnswersErrors(t *testing.T) {
	f := newParticipationFixture(t)
	ctx := context.Background()
	id := f.openCompetition(t, 0)

	_, err := f.questions.Append(ctx, id, []domain.QuestionInput{
		{Text: "q0", Options: []string{"a", "b"}, CorrectOption: 1, Points: 10},
	})
	if err != nil {
		t.Fatalf("append questions: %v", err)
	}
	if err := f.svc.Join(ctx, id, "0xaaa", 0); err != nil {
		t.Fatalf("join: %v", err)
	}

	if _, err := f.svc.SubmitAnswers(ctx, id, "0xbbb", []int{1}); !errors.Is(err, domain.ErrNotAParticipant) {
		t.Errorf("non-participant err = %v, want ErrNotAParticipant", err)
	}
	if _, err := f.svc.SubmitAnswers(ctx, id, "0xaaa", []int{1, 0}); !errors.Is(err, domain.ErrAnswerCountMismatch) {
		t.Errorf("wrong count err = %v, want ErrAnswerCountMismatch", err)
	}

	// After close, submissions are refused even for participants.
	f.clock.set(f.clock.Now().Add(2 * time.Hour))
	if _, err := f.svc.SubmitAnswers(ctx, id, "0xaaa", []int{1}); !errors.Is(err, domain.ErrClosed) {
		t.Errorf("post-close err = %v, want ErrClosed", err)
	}
}
