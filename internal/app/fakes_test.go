package app

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"giveaway_payout_service/internal/domain/giveaway"
	idb "giveaway_payout_service/internal/infra/database"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// fakeRepo is an in-memory, mutex-guarded stand-in for the Postgres
// repository. It returns the same sentinel errors so services exercise the
// exact branches they take in production. The hook fields let tests inject
// a concurrent actor between a read and the following conditional write.
type fakeRepo struct {
	mu           sync.Mutex
	nextCycleID  int64
	nextRowID    int64
	cycles       map[int64]*giveaway.Cycle
	conditions   map[int64]*giveaway.Condition
	participants map[int64][]*giveaway.Participant
	outcomes     []*giveaway.PayoutOutcome

	beforeClaim func() // runs at ClaimCycle entry, outside the lock
	beforeAdd   func() // runs at AddParticipant entry, outside the lock
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		cycles:       make(map[int64]*giveaway.Cycle),
		conditions:   make(map[int64]*giveaway.Condition),
		participants: make(map[int64][]*giveaway.Participant),
	}
}

// seedCycle inserts a cycle and condition directly, bypassing the
// one-open-cycle check, for test setup.
func (r *fakeRepo) seedCycle(status giveaway.CycleStatus, cond *giveaway.Condition) *giveaway.Cycle {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextCycleID++
	cycle := &giveaway.Cycle{
		ID:        r.nextCycleID,
		Status:    status,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	r.cycles[cycle.ID] = cycle
	condCopy := *cond
	condCopy.CycleID = cycle.ID
	r.conditions[cycle.ID] = &condCopy
	return cycle
}

func (r *fakeRepo) seedParticipant(cycleID int64, address string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextRowID++
	r.participants[cycleID] = append(r.participants[cycleID], &giveaway.Participant{
		ID:       r.nextRowID,
		CycleID:  cycleID,
		Address:  address,
		JoinedAt: time.Now(),
	})
}

func (r *fakeRepo) cycleStatus(cycleID int64) giveaway.CycleStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cycles[cycleID].Status
}

func (r *fakeRepo) CreateOpenCycle(ctx context.Context, cond *giveaway.Condition) (*giveaway.Cycle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.cycles {
		if c.Status == giveaway.StatusOpen {
			return nil, idb.ErrOpenCycleExists
		}
	}
	r.nextCycleID++
	cycle := &giveaway.Cycle{
		ID:        r.nextCycleID,
		Status:    giveaway.StatusOpen,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	r.cycles[cycle.ID] = cycle
	condCopy := *cond
	condCopy.CycleID = cycle.ID
	r.conditions[cycle.ID] = &condCopy
	return cycle, nil
}

func (r *fakeRepo) OpenCycle(ctx context.Context) (*giveaway.Cycle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.cycles {
		if c.Status == giveaway.StatusOpen {
			cp := *c
			return &cp, nil
		}
	}
	return nil, idb.ErrNoOpenCycle
}

func (r *fakeRepo) CycleByID(ctx context.Context, id int64) (*giveaway.Cycle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.cycles[id]
	if !ok {
		return nil, idb.ErrCycleNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *fakeRepo) ConditionByCycle(ctx context.Context, cycleID int64) (*giveaway.Condition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cond, ok := r.conditions[cycleID]
	if !ok {
		return nil, idb.ErrConditionNotFound
	}
	cp := *cond
	return &cp, nil
}

func (r *fakeRepo) NextDueCycle(ctx context.Context, now time.Time) (*giveaway.Cycle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var due *giveaway.Cycle
	var dueAt time.Time
	for id, c := range r.cycles {
		if c.Status != giveaway.StatusOpen && c.Status != giveaway.StatusLocked && c.Status != giveaway.StatusProcessing {
			continue
		}
		cond := r.conditions[id]
		if cond == nil || !cond.Due(now) {
			continue
		}
		if due == nil || cond.ScheduledAt.Time.Before(dueAt) || (cond.ScheduledAt.Time.Equal(dueAt) && c.ID < due.ID) {
			due = c
			dueAt = cond.ScheduledAt.Time
		}
	}
	if due == nil {
		return nil, idb.ErrNoDueCycle
	}
	cp := *due
	return &cp, nil
}

func (r *fakeRepo) ClaimCycle(ctx context.Context, cycleID int64, from giveaway.CycleStatus, fromAttempts int) (int, error) {
	if r.beforeClaim != nil {
		r.beforeClaim()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.cycles[cycleID]
	if !ok || c.Status != from || c.Attempts != fromAttempts {
		return 0, idb.ErrClaimConflict
	}
	c.Status = giveaway.StatusProcessing
	c.Attempts++
	c.UpdatedAt = time.Now()
	return c.Attempts, nil
}

func (r *fakeRepo) TransitionCycle(ctx context.Context, cycleID int64, from, to giveaway.CycleStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.cycles[cycleID]
	if !ok || c.Status != from {
		return idb.ErrClaimConflict
	}
	c.Status = to
	c.UpdatedAt = time.Now()
	return nil
}

func (r *fakeRepo) AddParticipant(ctx context.Context, p *giveaway.Participant, maxParticipants int) error {
	if r.beforeAdd != nil {
		r.beforeAdd()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.participants[p.CycleID]) >= maxParticipants {
		return idb.ErrCycleFull
	}
	for _, existing := range r.participants[p.CycleID] {
		if existing.Address == p.Address {
			return idb.ErrDuplicateParticipant
		}
	}
	r.nextRowID++
	p.ID = r.nextRowID
	p.JoinedAt = time.Now()
	cp := *p
	r.participants[p.CycleID] = append(r.participants[p.CycleID], &cp)
	return nil
}

func (r *fakeRepo) ReplaceParticipant(ctx context.Context, cycleID int64, oldAddress, newAddress string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.participants[cycleID]
	oldIdx := -1
	for i, p := range list {
		if p.Address == newAddress {
			return idb.ErrDuplicateParticipant
		}
		if p.Address == oldAddress {
			oldIdx = i
		}
	}
	if oldIdx < 0 {
		return idb.ErrParticipantNotFound
	}
	r.nextRowID++
	list[oldIdx] = &giveaway.Participant{
		ID:       r.nextRowID,
		CycleID:  cycleID,
		Address:  newAddress,
		JoinedAt: time.Now(),
	}
	return nil
}

func (r *fakeRepo) ListParticipants(ctx context.Context, cycleID int64) ([]*giveaway.Participant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := make([]*giveaway.Participant, 0, len(r.participants[cycleID]))
	for _, p := range r.participants[cycleID] {
		cp := *p
		list = append(list, &cp)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Address < list[j].Address })
	return list, nil
}

func (r *fakeRepo) CountParticipants(ctx context.Context, cycleID int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.participants[cycleID]), nil
}

func (r *fakeRepo) IsParticipant(ctx context.Context, cycleID int64, address string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.participants[cycleID] {
		if p.Address == address {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeRepo) RecordOutcome(ctx context.Context, o *giveaway.PayoutOutcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextRowID++
	o.ID = r.nextRowID
	o.AttemptedAt = time.Now()
	cp := *o
	r.outcomes = append(r.outcomes, &cp)
	return nil
}

func (r *fakeRepo) OutcomesByCycle(ctx context.Context, cycleID int64) ([]*giveaway.PayoutOutcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := make([]*giveaway.PayoutOutcome, 0)
	for _, o := range r.outcomes {
		if o.CycleID == cycleID {
			cp := *o
			list = append(list, &cp)
		}
	}
	return list, nil
}

type transferCall struct {
	address  string
	amount   decimal.Decimal
	testMode bool
}

// fakeExecutor records transfer calls and fails the addresses listed in
// failFor until they are cleared.
type fakeExecutor struct {
	mu      sync.Mutex
	failFor map[string]error
	calls   []transferCall
	nextTx  int
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{failFor: make(map[string]error)}
}

func (f *fakeExecutor) Send(ctx context.Context, address string, amount decimal.Decimal, testMode bool) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, transferCall{address: address, amount: amount, testMode: testMode})
	if err, ok := f.failFor[address]; ok && err != nil {
		return "", err
	}
	f.nextTx++
	return fmt.Sprintf("0xtx%04d", f.nextTx), nil
}

func (f *fakeExecutor) clearFailures() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failFor = make(map[string]error)
}

func (f *fakeExecutor) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}
