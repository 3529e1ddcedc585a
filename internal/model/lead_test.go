package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeadStatusRankOrder(t *testing.T) {
	t.Parallel()

	ordered := []LeadStatus{
		LeadStatusNew,
		LeadStatusEnriching,
		LeadStatusEnriched,
		LeadStatusScored,
		LeadStatusOutreached,
		LeadStatusReplied,
		LeadStatusQualifying,
		LeadStatusQualified,
	}
	for i := 1; i < len(ordered); i++ {
		assert.Greater(t, ordered[i].Rank(), ordered[i-1].Rank(), "%s should rank after %s", ordered[i], ordered[i-1])
	}
	assert.Equal(t, -1, LeadStatus("bogus").Rank())
}

func TestCanTransition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		from, to LeadStatus
		want     bool
	}{
		{"forward one", LeadStatusNew, LeadStatusEnriching, true},
		{"forward skip", LeadStatusOutreached, LeadStatusQualifying, true},
		{"same status", LeadStatusReplied, LeadStatusReplied, true},
		{"regress", LeadStatusQualifying, LeadStatusReplied, false},
		{"close from outreached", LeadStatusOutreached, LeadStatusClosed, true},
		{"close from new", LeadStatusNew, LeadStatusClosed, true},
		{"qualified is terminal", LeadStatusQualified, LeadStatusClosed, false},
		{"closed is terminal", LeadStatusClosed, LeadStatusQualified, false},
		{"unknown from", LeadStatus("x"), LeadStatusNew, false},
		{"unknown to", LeadStatusNew, LeadStatus("x"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestLeadTransition(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := &Lead{ID: "l1", Status: LeadStatusOutreached}

	require.NoError(t, l.Transition(LeadStatusReplied, now))
	assert.Equal(t, LeadStatusReplied, l.Status)
	assert.Equal(t, now, l.UpdatedAt)

	err := l.Transition(LeadStatusScored, now)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid transition replied -> scored")
	assert.Equal(t, LeadStatusReplied, l.Status)
}

func TestContactFullName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Ada Lovelace", Contact{FirstName: "Ada", LastName: "Lovelace"}.FullName())
	assert.Equal(t, "Ada", Contact{FirstName: "Ada"}.FullName())
}

func TestTierString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Tier 1 - High Priority", Tier1.String())
	assert.Equal(t, "Tier 4 - Nurture", Tier4.String())
	assert.Equal(t, "Tier(9)", Tier(9).String())
	assert.Len(t, AllTiers(), 4)
}

func TestScoreBreakdownTotal(t *testing.T) {
	t.Parallel()

	b := ScoreBreakdown{Revenue: 30, Industry: 20, Title: 20, Social: 15, Brand: 10}
	assert.Equal(t, 95, b.Total())
}

func TestSequenceDone(t *testing.T) {
	t.Parallel()

	s := &OutboundSequence{Steps: make([]SequenceStep, 2), CurrentStep: 2}
	assert.False(t, s.Done())
	s.CurrentStep = 3
	assert.True(t, s.Done())
}

func TestTerminalStates(t *testing.T) {
	t.Parallel()

	assert.True(t, CallCompleted.Terminal())
	assert.True(t, CallFailed.Terminal())
	assert.True(t, CallNoAnswer.Terminal())
	assert.False(t, CallScheduled.Terminal())
	assert.False(t, CallInProgress.Terminal())

	assert.True(t, ReplyEscalated.Terminal())
	assert.True(t, ReplyArchived.Terminal())
	assert.False(t, ReplyRouted.Terminal())
}

func TestBANTMet(t *testing.T) {
	t.Parallel()

	b := BANT{Budget: BANTAnswer{Qualified: true}, Need: BANTAnswer{Qualified: true}}
	assert.Equal(t, 2, b.Met())
}
