package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"election-backend/chain"
	"election-backend/chain/chaintest"
	"election-backend/models"
	"election-backend/storage"
)

const (
	testBallot    = "0x00000000000000000000000000000000000000b1"
	testVoterAddr = "0x8ba1f109551bD432803012645Ac136ddd64DBA72"
)

func trackerFixture(t *testing.T, client chain.Client) (*VoteTracker, *storage.MemStore) {
	t.Helper()
	store := storage.NewMemStore()
	election := &models.Election{
		Name:          "Council 2026",
		BallotAddress: testBallot,
		Status:        models.ElectionActive,
	}
	require.NoError(t, store.CreateElection(context.Background(), election))
	return NewVoteTracker(store, client, zap.NewNop()), store
}

func TestRecordCommit(t *testing.T) {
	tracker, store := trackerFixture(t, &chaintest.StubClient{})
	ctx := context.Background()

	receipt, err := tracker.RecordCommit(ctx, testBallot, "0xc0ffee", testVoterAddr, "0x11")
	require.NoError(t, err)
	assert.Equal(t, models.PhaseCommitted, receipt.Phase)
	assert.Equal(t, strings.ToLower(testVoterAddr), receipt.VoterAddress)
	assert.NotEmpty(t, receipt.ID)
	assert.Nil(t, receipt.RevealedAt)

	saved, err := store.Receipt(ctx, receipt.ElectionID, testVoterAddr)
	require.NoError(t, err)
	assert.Equal(t, receipt.ID, saved.ID)
}

func TestRecordCommitDuplicateLeavesOriginal(t *testing.T) {
	tracker, store := trackerFixture(t, &chaintest.StubClient{})
	ctx := context.Background()

	first, err := tracker.RecordCommit(ctx, testBallot, "0xc0ffee", testVoterAddr, "0x11")
	require.NoError(t, err)

	_, err = tracker.RecordCommit(ctx, testBallot, "0xdeadbeef", testVoterAddr, "0x22")
	assert.ErrorIs(t, err, ErrDuplicateReceipt)

	saved, err := store.Receipt(ctx, first.ElectionID, testVoterAddr)
	require.NoError(t, err)
	assert.Equal(t, "0xc0ffee", saved.ReceiptHash)
	assert.Equal(t, "0x11", saved.CommitTxHash)
}

func TestRecordCommitValidation(t *testing.T) {
	tracker, _ := trackerFixture(t, &chaintest.StubClient{})
	ctx := context.Background()

	_, err := tracker.RecordCommit(ctx, testBallot, "", testVoterAddr, "0x11")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = tracker.RecordCommit(ctx, "0x00000000000000000000000000000000000000ff", "0xc0ffee", testVoterAddr, "0x11")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecordRevealTransition(t *testing.T) {
	tracker, _ := trackerFixture(t, &chaintest.StubClient{})
	ctx := context.Background()

	committed, err := tracker.RecordCommit(ctx, testBallot, "0xc0ffee", testVoterAddr, "0x11")
	require.NoError(t, err)

	revealed, err := tracker.RecordReveal(ctx, testBallot, testVoterAddr, "0x33")
	require.NoError(t, err)
	assert.Equal(t, committed.ID, revealed.ID)
	assert.Equal(t, models.PhaseRevealed, revealed.Phase)
	assert.Equal(t, "0x33", revealed.RevealTxHash)
	require.NotNil(t, revealed.RevealedAt)
}

func TestRecordRevealWithoutCommit(t *testing.T) {
	tracker, store := trackerFixture(t, &chaintest.StubClient{})
	ctx := context.Background()

	_, err := tracker.RecordReveal(ctx, testBallot, testVoterAddr, "0x33")
	assert.ErrorIs(t, err, ErrNotFound)

	// Reveal never creates a receipt.
	_, err = store.Receipt(ctx, 1, testVoterAddr)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRecordRevealIdempotent(t *testing.T) {
	tracker, _ := trackerFixture(t, &chaintest.StubClient{})
	ctx := context.Background()

	_, err := tracker.RecordCommit(ctx, testBallot, "0xc0ffee", testVoterAddr, "0x11")
	require.NoError(t, err)

	first, err := tracker.RecordReveal(ctx, testBallot, testVoterAddr, "0x33")
	require.NoError(t, err)
	firstAt := *first.RevealedAt

	time.Sleep(5 * time.Millisecond)
	second, err := tracker.RecordReveal(ctx, testBallot, testVoterAddr, "0x44")
	require.NoError(t, err)
	assert.Equal(t, "0x33", second.RevealTxHash)
	require.NotNil(t, second.RevealedAt)
	assert.True(t, second.RevealedAt.Equal(firstAt))
}

func TestVerifyReceipt(t *testing.T) {
	digest := "0x" + strings.Repeat("ab", 32)
	stub := &chaintest.StubClient{
		VerifyReceiptFn: func(_ context.Context, _, _ common.Address, receiptHash [32]byte) (bool, error) {
			return receiptHash[0] == 0xab, nil
		},
		CommitStatusFn: func(context.Context, common.Address, common.Address) (*chain.CommitStatus, error) {
			return &chain.CommitStatus{HasCommitted: true}, nil
		},
	}
	tracker, _ := trackerFixture(t, stub)
	ctx := context.Background()

	verification, err := tracker.VerifyReceipt(ctx, testBallot, testVoterAddr, digest)
	require.NoError(t, err)
	assert.True(t, verification.ReceiptValid)
	require.NotNil(t, verification.VoterStatus)
	assert.True(t, verification.VoterStatus.HasCommitted)

	_, err = tracker.VerifyReceipt(ctx, testBallot, testVoterAddr, "0x1234")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestVerifyReceiptChainFailure(t *testing.T) {
	stub := &chaintest.StubClient{
		VerifyReceiptFn: func(context.Context, common.Address, common.Address, [32]byte) (bool, error) {
			return false, chain.ErrUnavailable
		},
	}
	tracker, _ := trackerFixture(t, stub)

	_, err := tracker.VerifyReceipt(context.Background(), testBallot, testVoterAddr, "0x"+strings.Repeat("00", 32))
	assert.ErrorIs(t, err, chain.ErrUnavailable)
}
