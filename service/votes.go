package service

import (
	"context"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"election-backend/chain"
	"election-backend/models"
	"election-backend/storage"
)

// VoteTracker keeps the commit/reveal receipt bookkeeping. Voters talk to
// the ballot contract directly from their own wallets; this tracker only
// records that it happened, one receipt per (election, voter). The ledger
// stays authoritative for proof of participation.
type VoteTracker struct {
	store storage.Store
	chain chain.Client
	log   *zap.Logger
	now   func() time.Time
}

func NewVoteTracker(store storage.Store, client chain.Client, log *zap.Logger) *VoteTracker {
	return &VoteTracker{store: store, chain: client, log: log, now: time.Now}
}

// RecordCommit stores a committed-phase receipt. A second commit for the
// same (election, voter) pair is rejected and the existing receipt is left
// untouched.
func (t *VoteTracker) RecordCommit(ctx context.Context, ballotAddress, commitHash, voterAddress, txHash string) (*models.VoteReceipt, error) {
	voter := strings.ToLower(strings.TrimSpace(voterAddress))
	if commitHash == "" {
		return nil, errors.Wrap(ErrValidation, "commit hash is required")
	}

	election, err := t.electionByBallot(ctx, ballotAddress)
	if err != nil {
		return nil, err
	}

	if _, err := t.store.Receipt(ctx, election.ID, voter); err == nil {
		return nil, ErrDuplicateReceipt
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, errors.Wrap(err, "check existing receipt")
	}

	receipt := &models.VoteReceipt{
		ID:           uuid.New().String(),
		ElectionID:   election.ID,
		VoterAddress: voter,
		ReceiptHash:  commitHash,
		CommitTxHash: txHash,
		Phase:        models.PhaseCommitted,
		CommittedAt:  t.now(),
	}
	if err := t.store.CreateReceipt(ctx, receipt); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, ErrDuplicateReceipt
		}
		return nil, errors.Wrap(err, "persist receipt")
	}
	t.log.Info("commit recorded",
		zap.Uint("election_id", election.ID), zap.String("voter", voter))
	return receipt, nil
}

// RecordReveal transitions an existing receipt to revealed. Reveal never
// creates a receipt, and revealing an already-revealed receipt is a no-op
// that keeps the original timestamps.
func (t *VoteTracker) RecordReveal(ctx context.Context, ballotAddress, voterAddress, txHash string) (*models.VoteReceipt, error) {
	voter := strings.ToLower(strings.TrimSpace(voterAddress))

	election, err := t.electionByBallot(ctx, ballotAddress)
	if err != nil {
		return nil, err
	}

	receipt, err := t.store.Receipt(ctx, election.ID, voter)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, errors.Wrap(ErrNotFound, "no commit recorded for this voter")
		}
		return nil, errors.Wrap(err, "load receipt")
	}
	if receipt.Phase == models.PhaseRevealed {
		return receipt, nil
	}

	revealedAt := t.now()
	receipt.Phase = models.PhaseRevealed
	receipt.RevealTxHash = txHash
	receipt.RevealedAt = &revealedAt
	if err := t.store.UpdateReceipt(ctx, receipt); err != nil {
		return nil, errors.Wrap(err, "update receipt")
	}
	t.log.Info("reveal recorded",
		zap.Uint("election_id", election.ID), zap.String("voter", voter))
	return receipt, nil
}

// ReceiptVerification is the ledger's answer about a claimed receipt.
type ReceiptVerification struct {
	ReceiptValid bool                `json:"receipt_valid"`
	VoterStatus  *chain.CommitStatus `json:"voter_status,omitempty"`
}

// VerifyReceipt asks the ballot contract whether the receipt hash matches
// the voter's on-chain commitment. The local receipt table is not consulted.
func (t *VoteTracker) VerifyReceipt(ctx context.Context, ballotAddress, voterAddress, receiptHash string) (*ReceiptVerification, error) {
	digest, err := chain.ParseHash32(receiptHash)
	if err != nil {
		return nil, errors.Wrap(ErrValidation, err.Error())
	}
	ballot := common.HexToAddress(ballotAddress)
	voter := common.HexToAddress(voterAddress)

	valid, err := t.chain.VerifyReceipt(ctx, ballot, voter, digest)
	if err != nil {
		return nil, err
	}
	verification := &ReceiptVerification{ReceiptValid: valid}
	if status, err := t.chain.CommitStatus(ctx, ballot, voter); err == nil {
		verification.VoterStatus = status
	}
	return verification, nil
}

// VoteStatus reports a wallet's commit/reveal progress straight from the
// ballot contract.
func (t *VoteTracker) VoteStatus(ctx context.Context, ballotAddress, voterAddress string) (*chain.CommitStatus, error) {
	return t.chain.CommitStatus(ctx,
		common.HexToAddress(ballotAddress), common.HexToAddress(voterAddress))
}

// Participated is the quick verifier-contract check.
func (t *VoteTracker) Participated(ctx context.Context, ballotAddress, voterAddress string) (bool, error) {
	return t.chain.DidParticipate(ctx,
		common.HexToAddress(ballotAddress), common.HexToAddress(voterAddress))
}

func (t *VoteTracker) electionByBallot(ctx context.Context, ballotAddress string) (*models.Election, error) {
	election, err := t.store.ElectionByBallot(ctx, ballotAddress)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, errors.Wrap(ErrNotFound, "election not found for ballot")
		}
		return nil, errors.Wrap(err, "resolve ballot")
	}
	return election, nil
}
