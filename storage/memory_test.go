package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"election-backend/models"
)

func TestMemStoreVoterUniqueness(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	require.NoError(t, s.CreateVoter(ctx, &models.Voter{
		Name:          "Alice",
		IdentityHash:  "0xaaaa",
		WalletAddress: "0x1111111111111111111111111111111111111111",
		IsActive:      true,
	}))

	err := s.CreateVoter(ctx, &models.Voter{
		Name:          "Mallory",
		IdentityHash:  "0xbbbb",
		WalletAddress: "0x1111111111111111111111111111111111111111",
	})
	assert.ErrorIs(t, err, ErrConflict)

	err = s.CreateVoter(ctx, &models.Voter{
		Name:          "Mallory",
		IdentityHash:  "0xaaaa",
		WalletAddress: "0x2222222222222222222222222222222222222222",
	})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestMemStoreVoterLookups(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	voter := &models.Voter{
		Name:          "Alice",
		IdentityHash:  "0xaaaa",
		WalletAddress: "0x1111111111111111111111111111111111111111",
		IsActive:      true,
	}
	require.NoError(t, s.CreateVoter(ctx, voter))
	require.NotZero(t, voter.ID)

	// Wallet lookups are case-insensitive.
	got, err := s.VoterByWallet(ctx, "0x1111111111111111111111111111111111111111")
	require.NoError(t, err)
	assert.Equal(t, voter.ID, got.ID)

	_, err = s.VoterByWallet(ctx, "0x9999999999999999999999999999999999999999")
	assert.ErrorIs(t, err, ErrNotFound)

	got, err = s.VoterByIdentityHash(ctx, "0xaaaa")
	require.NoError(t, err)
	assert.Equal(t, voter.ID, got.ID)

	got.IsActive = false
	require.NoError(t, s.UpdateVoter(ctx, got))
	reread, err := s.VoterByID(ctx, voter.ID)
	require.NoError(t, err)
	assert.False(t, reread.IsActive)
}

func TestMemStoreCountVoters(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	require.NoError(t, s.CreateVoter(ctx, &models.Voter{
		IdentityHash: "0x01", WalletAddress: "0xa1", IsActive: true, IsRegisteredOnChain: true,
	}))
	require.NoError(t, s.CreateVoter(ctx, &models.Voter{
		IdentityHash: "0x02", WalletAddress: "0xa2", IsActive: true,
	}))
	require.NoError(t, s.CreateVoter(ctx, &models.Voter{
		IdentityHash: "0x03", WalletAddress: "0xa3",
	}))

	counts, err := s.CountVoters(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), counts.Total)
	assert.Equal(t, int64(2), counts.Active)
	assert.Equal(t, int64(1), counts.OnChain)
}

func TestMemStoreElectionWithCandidates(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	election := &models.Election{
		Name:   "Council 2026",
		Status: models.ElectionPending,
		Candidates: []models.Candidate{
			{Name: "A", Party: "Red"},
			{Name: "B", Party: "Blue"},
		},
	}
	require.NoError(t, s.CreateElection(ctx, election))

	got, err := s.ElectionByID(ctx, election.ID)
	require.NoError(t, err)
	require.Len(t, got.Candidates, 2)
	assert.Equal(t, election.ID, got.Candidates[0].ElectionID)

	got.BallotAddress = "0xAbCd000000000000000000000000000000000001"
	got.Status = models.ElectionActive
	require.NoError(t, s.UpdateElection(ctx, got))

	// Ballot lookup is case-insensitive and candidates survive the update.
	byBallot, err := s.ElectionByBallot(ctx, "0xabcd000000000000000000000000000000000001")
	require.NoError(t, err)
	assert.Equal(t, election.ID, byBallot.ID)
	assert.Len(t, byBallot.Candidates, 2)
}

func TestMemStoreListElectionsByStatus(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	require.NoError(t, s.CreateElection(ctx, &models.Election{Name: "one", Status: models.ElectionPending}))
	require.NoError(t, s.CreateElection(ctx, &models.Election{Name: "two", Status: models.ElectionActive}))

	active, err := s.ListElections(ctx, models.ElectionActive)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "two", active[0].Name)

	all, err := s.ListElections(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestMemStoreReceiptUniqueness(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	receipt := &models.VoteReceipt{
		ID:           "r1",
		ElectionID:   1,
		VoterAddress: "0xaaaa000000000000000000000000000000000001",
		Phase:        models.PhaseCommitted,
		CommittedAt:  time.Now(),
	}
	require.NoError(t, s.CreateReceipt(ctx, receipt))

	dup := *receipt
	dup.ID = "r2"
	assert.ErrorIs(t, s.CreateReceipt(ctx, &dup), ErrConflict)

	// Same voter, different election is a separate receipt.
	other := *receipt
	other.ID = "r3"
	other.ElectionID = 2
	require.NoError(t, s.CreateReceipt(ctx, &other))

	got, err := s.Receipt(ctx, 1, receipt.VoterAddress)
	require.NoError(t, err)
	assert.Equal(t, "r1", got.ID)

	history, err := s.ReceiptsByVoter(ctx, receipt.VoterAddress)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestMemStoreReplaceResults(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	first := []models.CachedResult{
		{ElectionID: 1, CandidateID: 1, VoteCount: 5},
		{ElectionID: 1, CandidateID: 2, VoteCount: 3},
	}
	require.NoError(t, s.ReplaceResults(ctx, 1, first))

	second := []models.CachedResult{
		{ElectionID: 1, CandidateID: 1, VoteCount: 9},
	}
	require.NoError(t, s.ReplaceResults(ctx, 1, second))

	rows, err := s.ResultsByElection(ctx, 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, uint64(9), rows[0].VoteCount)
}
