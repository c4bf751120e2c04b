package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/storm-dispatch/internal/domain"
)

func TestOpenIfNeededIsIdempotent(t *testing.T) {
	repo := &memSegmentRepo{}
	tracker := NewSegmentTracker(repo)
	ctx := context.Background()

	ticket := &domain.Ticket{ID: "t1", SessionID: "storm-1"}
	assignment := &domain.Assignment{TicketID: "t1", CompanyID: "acme", CrewID: "crew-a"}

	first, created, err := tracker.OpenIfNeeded(ctx, ticket, assignment, manager)
	require.NoError(t, err)
	assert.True(t, created)
	require.NotNil(t, first)
	assert.Equal(t, "crew-a", first.CrewID)
	assert.Equal(t, "storm-1", first.SessionID)

	second, created, err := tracker.OpenIfNeeded(ctx, ticket, assignment, manager)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, repo.segments, 1)
}

func TestCloseIfOpenIsIdempotent(t *testing.T) {
	repo := &memSegmentRepo{}
	tracker := NewSegmentTracker(repo)
	ctx := context.Background()

	ticket := &domain.Ticket{ID: "t1", SessionID: "storm-1"}
	assignment := &domain.Assignment{TicketID: "t1", CompanyID: "acme", CrewID: "crew-a"}
	_, _, err := tracker.OpenIfNeeded(ctx, ticket, assignment, manager)
	require.NoError(t, err)

	closed, did, err := tracker.CloseIfOpen(ctx, "t1", "crew-a")
	require.NoError(t, err)
	assert.True(t, did)
	require.NotNil(t, closed)
	assert.Equal(t, 0, repo.openCount("t1"))

	again, did, err := tracker.CloseIfOpen(ctx, "t1", "crew-a")
	require.NoError(t, err)
	assert.False(t, did)
	assert.Nil(t, again)
}

func TestCloseIfOpenWithoutSegmentIsNoop(t *testing.T) {
	repo := &memSegmentRepo{}
	tracker := NewSegmentTracker(repo)

	closed, did, err := tracker.CloseIfOpen(context.Background(), "t1", "crew-a")
	require.NoError(t, err)
	assert.False(t, did)
	assert.Nil(t, closed)
}
