package app

import (
	"context"
	"testing"

	"giveaway_payout_service/internal/domain/giveaway"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusNoOpenCycle(t *testing.T) {
	repo := newFakeRepo()
	svc := NewStatusService(repo, testLogger())

	snapshot, err := svc.Status(context.Background(), "")

	require.NoError(t, err)
	assert.False(t, snapshot.CycleOpen)
	assert.Zero(t, snapshot.CycleID)
}

func TestStatusSnapshot(t *testing.T) {
	repo := newFakeRepo()
	cond := openCondition(10)
	cycle := repo.seedCycle(giveaway.StatusOpen, cond)
	repo.seedParticipant(cycle.ID, addrA)
	repo.seedParticipant(cycle.ID, addrB)
	svc := NewStatusService(repo, testLogger())

	snapshot, err := svc.Status(context.Background(), addrA)

	require.NoError(t, err)
	assert.True(t, snapshot.CycleOpen)
	assert.Equal(t, cycle.ID, snapshot.CycleID)
	assert.Equal(t, giveaway.StatusOpen, snapshot.CycleStatus)
	assert.True(t, snapshot.Amount.Equal(cond.Amount))
	assert.Equal(t, 10, snapshot.MaxParticipants)
	assert.Equal(t, 2, snapshot.ParticipantCount)
	assert.True(t, snapshot.CallerEnrolled)
	require.NotNil(t, snapshot.ScheduledAt)
	assert.True(t, snapshot.ScheduledAt.Equal(cond.ScheduledAt.Time))
}

func TestStatusUnknownCallerNotEnrolled(t *testing.T) {
	repo := newFakeRepo()
	cycle := repo.seedCycle(giveaway.StatusOpen, openCondition(10))
	repo.seedParticipant(cycle.ID, addrA)
	svc := NewStatusService(repo, testLogger())

	snapshot, err := svc.Status(context.Background(), addrB)
	require.NoError(t, err)
	assert.False(t, snapshot.CallerEnrolled)

	// A malformed caller address is reported as not enrolled, not an error.
	snapshot, err = svc.Status(context.Background(), "garbage")
	require.NoError(t, err)
	assert.False(t, snapshot.CallerEnrolled)
}
