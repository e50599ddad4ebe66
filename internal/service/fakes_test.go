package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/alanyoungcy/quizpool/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeClock pins time for lifecycle gating.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// memCompetitionStore is an in-memory domain.CompetitionStore.
type memCompetitionStore struct {
	mu           sync.Mutex
	nextID       int64
	competitions map[int64]*domain.Competition
	participants map[int64][]*domain.Participant

	// balances, when set, receives finalization credits the way the SQL
	// transaction would.
	balances *memBalanceStore
}

func newMemCompetitionStore() *memCompetitionStore {
	return &memCompetitionStore{
		nextID:       1,
		competitions: map[int64]*domain.Competition{},
		participants: map[int64][]*domain.Participant{},
	}
}

func (m *memCompetitionStore) Create(_ context.Context, c domain.Competition) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = m.nextID
	c.CreatedAt = time.Now().UTC()
	m.nextID++
	m.competitions[c.ID] = &c
	return c.ID, nil
}

func (m *memCompetitionStore) GetByID(_ context.Context, id int64) (domain.Competition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.competitions[id]
	if !ok {
		return domain.Competition{}, domain.ErrNotFound
	}
	return *c, nil
}

func (m *memCompetitionStore) List(_ context.Context, _ domain.ListOpts) ([]domain.Competition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Competition
	for _, c := range m.competitions {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memCompetitionStore) ListFinalizedBefore(_ context.Context, before time.Time) ([]domain.Competition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Competition
	for _, c := range m.competitions {
		if !c.Active && c.EndTime.Before(before) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *memCompetitionStore) Join(_ context.Context, competitionID int64, participant string, fee int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.competitions[competitionID]
	if !ok {
		return domain.ErrNotFound
	}
	if !c.Active {
		return domain.ErrCompetitionInactive
	}
	for _, p := range m.participants[competitionID] {
		if p.Address == participant {
			return domain.ErrAlreadyJoined
		}
	}
	m.participants[competitionID] = append(m.participants[competitionID], &domain.Participant{
		CompetitionID: competitionID,
		Address:       participant,
		JoinOrder:     len(m.participants[competitionID]),
		JoinedAt:      time.Now().UTC(),
	})
	c.RewardPool += fee
	return nil
}

func (m *memCompetitionStore) GetParticipant(_ context.Context, competitionID int64, participant string) (domain.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.participants[competitionID] {
		if p.Address == participant {
			return *p, nil
		}
	}
	return domain.Participant{}, domain.ErrNotAParticipant
}

func (m *memCompetitionStore) Participants(_ context.Context, competitionID int64) ([]domain.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Participant
	for _, p := range m.participants[competitionID] {
		out = append(out, *p)
	}
	return out, nil
}

func (m *memCompetitionStore) SetScore(_ context.Context, competitionID int64, participant string, score int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.competitions[competitionID]
	if !ok {
		return domain.ErrNotFound
	}
	if !c.Active {
		return domain.ErrCompetitionInactive
	}
	for _, p := range m.participants[competitionID] {
		if p.Address == participant {
			p.Score = score
			p.Graded = true
			return nil
		}
	}
	return domain.ErrNotAParticipant
}

func (m *memCompetitionStore) Finalize(_ context.Context, competitionID int64, credits []domain.RewardCredit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.competitions[competitionID]
	if !ok {
		return domain.ErrNotFound
	}
	if !c.Active {
		return domain.ErrCompetitionInactive
	}
	c.Active = false
	c.RewardPool = 0
	now := time.Now().UTC()
	c.FinalizedAt = &now
	if m.balances != nil {
		for _, rc := range credits {
			if rc.Amount > 0 {
				_ = m.balances.Credit(context.Background(), rc.Participant, rc.Amount)
			}
		}
	}
	return nil
}

var _ domain.CompetitionStore = (*memCompetitionStore)(nil)

// memQuestionStore is an in-memory domain.QuestionStore.
type memQuestionStore struct {
	mu        sync.Mutex
	questions map[int64][]domain.Question
}

func newMemQuestionStore() *memQuestionStore {
	return &memQuestionStore{questions: map[int64][]domain.Question{}}
}

func (m *memQuestionStore) Append(_ context.Context, competitionID int64, qs []domain.QuestionInput) ([]domain.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	base := len(m.questions[competitionID])
	var out []domain.Question
	for i, in := range qs {
		q := domain.Question{
			CompetitionID: competitionID,
			Index:         base + i,
			Text:          in.Text,
			Options:       in.Options,
			CorrectOption: in.CorrectOption,
			Points:        in.Points,
		}
		m.questions[competitionID] = append(m.questions[competitionID], q)
		out = append(out, q)
	}
	return out, nil
}

func (m *memQuestionStore) ListByCompetition(_ context.Context, competitionID int64) ([]domain.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Question(nil), m.questions[competitionID]...), nil
}

func (m *memQuestionStore) Count(_ context.Context, competitionID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.questions[competitionID]), nil
}

// memBalanceStore is an in-memory domain.BalanceStore. When payouts is set,
// WithdrawAll records the pending payout row the way the real store does in
// its transaction.
type memBalanceStore struct {
	mu       sync.Mutex
	balances map[string]int64
	payouts  *memPayoutStore
}

func newMemBalanceStore() *memBalanceStore {
	return &memBalanceStore{balances: map[string]int64{}}
}

func (m *memBalanceStore) Get(_ context.Context, participant string) (domain.Balance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return domain.Balance{Participant: participant, Amount: m.balances[participant]}, nil
}

func (m *memBalanceStore) Credit(_ context.Context, participant string, amount int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[participant] += amount
	return nil
}

func (m *memBalanceStore) WithdrawAll(ctx context.Context, participant, asset string) (domain.Payout, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	amount := m.balances[participant]
	if amount <= 0 {
		return domain.Payout{}, domain.ErrNothingToWithdraw
	}
	m.balances[participant] = 0
	p := domain.Payout{
		Kind:    domain.PayoutKindWithdrawal,
		Account: participant,
		Asset:   asset,
		Amount:  amount,
		Status:  domain.PayoutPending,
	}
	if m.payouts != nil {
		id, err := m.payouts.Create(ctx, p)
		if err != nil {
			return domain.Payout{}, err
		}
		p.ID = id
	}
	return p, nil
}

// memPayoutStore is an in-memory domain.PayoutStore.
type memPayoutStore struct {
	mu      sync.Mutex
	nextID  int64
	payouts map[int64]*domain.Payout
}

func newMemPayoutStore() *memPayoutStore {
	return &memPayoutStore{nextID: 1, payouts: map[int64]*domain.Payout{}}
}

func (m *memPayoutStore) Create(_ context.Context, p domain.Payout) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = m.nextID
	p.Status = domain.PayoutPending
	m.nextID++
	m.payouts[p.ID] = &p
	return p.ID, nil
}

func (m *memPayoutStore) MarkSent(_ context.Context, id int64, txHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payouts[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.Status = domain.PayoutSent
	p.TxHash = txHash
	return nil
}

func (m *memPayoutStore) MarkFailed(_ context.Context, id int64, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payouts[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.Status = domain.PayoutFailed
	p.FailReason = reason
	return nil
}

func (m *memPayoutStore) ListByStatus(_ context.Context, status domain.PayoutStatus, _ domain.ListOpts) ([]domain.Payout, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Payout
	for _, p := range m.payouts {
		if p.Status == status {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// memSettingsStore is an in-memory domain.SettingsStore.
type memSettingsStore struct {
	mu       sync.Mutex
	settings domain.Settings
}

func newMemSettingsStore(feePercent int64, asset string) *memSettingsStore {
	return &memSettingsStore{settings: domain.Settings{FeePercent: feePercent, RewardAsset: asset}}
}

func (m *memSettingsStore) Get(_ context.Context) (domain.Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settings, nil
}

func (m *memSettingsStore) SetFeePercent(_ context.Context, pct int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings.FeePercent = pct
	return nil
}

func (m *memSettingsStore) SetRewardAsset(_ context.Context, asset string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings.RewardAsset = asset
	return nil
}

// memAuditStore is an in-memory domain.AuditStore.
type memAuditStore struct {
	mu      sync.Mutex
	entries []domain.AuditEntry
}

func (m *memAuditStore) Log(_ context.Context, event string, detail map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, domain.AuditEntry{
		ID:        int64(len(m.entries) + 1),
		Event:     event,
		Detail:    detail,
		CreatedAt: time.Now().UTC(),
	})
	return nil
}

func (m *memAuditStore) List(_ context.Context, _ domain.ListOpts) ([]domain.AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.AuditEntry(nil), m.entries...), nil
}

func (m *memAuditStore) ListBefore(_ context.Context, before time.Time) ([]domain.AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.AuditEntry
	for _, e := range m.entries {
		if e.CreatedAt.Before(before) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memAuditStore) has(event string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.Event == event {
			return true
		}
	}
	return false
}

// memCache is an in-memory domain.CompetitionCache.
type memCache struct {
	mu    sync.Mutex
	items map[int64]domain.Competition
}

func newMemCache() *memCache {
	return &memCache{items: map[int64]domain.Competition{}}
}

func (m *memCache) Set(_ context.Context, c domain.Competition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[c.ID] = c
	return nil
}

func (m *memCache) Get(_ context.Context, id int64) (domain.Competition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.items[id]
	if !ok {
		return domain.Competition{}, domain.ErrNotFound
	}
	return c, nil
}

func (m *memCache) Invalidate(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, id)
	return nil
}

// memLocks is an in-memory domain.LockManager.
type memLocks struct {
	mu   sync.Mutex
	held map[string]bool
}

func newMemLocks() *memLocks {
	return &memLocks{held: map[string]bool{}}
}

func (m *memLocks) Acquire(_ context.Context, key string, _ time.Duration) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held[key] {
		return nil, domain.ErrLockHeld
	}
	m.held[key] = true
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.held, key)
	}, nil
}

// memBus is an in-memory domain.SignalBus recording published events.
type memBus struct {
	mu        sync.Mutex
	published map[string][][]byte
	streams   map[string][][]byte
}

func newMemBus() *memBus {
	return &memBus{published: map[string][][]byte{}, streams: map[string][][]byte{}}
}

func (m *memBus) Publish(_ context.Context, channel string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published[channel] = append(m.published[channel], payload)
	return nil
}

func (m *memBus) Subscribe(_ context.Context, _ string) (<-chan []byte, error) {
	ch := make(chan []byte)
	close(ch)
	return ch, nil
}

func (m *memBus) StreamAppend(_ context.Context, stream string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streams[stream] = append(m.streams[stream], payload)
	return nil
}

func (m *memBus) StreamRead(_ context.Context, stream string, _ string, _ int) ([]domain.StreamMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.StreamMessage
	for i, p := range m.streams[stream] {
		out = append(out, domain.StreamMessage{ID: fmt.Sprintf("%d-0", i), Payload: p})
	}
	return out, nil
}

// fakeRail is a domain.PaymentRail that can be told to fail.
type fakeRail struct {
	mu        sync.Mutex
	fail      bool
	transfers []railTransfer
}

type railTransfer struct {
	asset   string
	account string
	amount  int64
}

func (r *fakeRail) TransferOut(_ context.Context, asset, account string, amount int64) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return "", fmt.Errorf("rail unavailable")
	}
	r.transfers = append(r.transfers, railTransfer{asset: asset, account: account, amount: amount})
	return fmt.Sprintf("0xtx%d", len(r.transfers)), nil
}

func (r *fakeRail) setFail(fail bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail = fail
}

func (r *fakeRail) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.transfers)
}
