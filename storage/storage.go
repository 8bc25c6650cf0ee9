package storage

import (
	"context"

	"github.com/pkg/errors"

	"election-backend/models"
)

var (
	ErrNotFound = errors.New("storage: record not found")
	ErrConflict = errors.New("storage: unique constraint violated")
)

// VoterCounts is the aggregate shape behind the voter statistics endpoint.
type VoterCounts struct {
	Total   int64
	Active  int64
	OnChain int64
}

// Store is the local persistence boundary. Each method commits or aborts as
// a unit; there is never a transaction spanning the store and the ledger.
type Store interface {
	CreateVoter(ctx context.Context, voter *models.Voter) error
	VoterByID(ctx context.Context, id uint) (*models.Voter, error)
	VoterByWallet(ctx context.Context, wallet string) (*models.Voter, error)
	VoterByIdentityHash(ctx context.Context, hash string) (*models.Voter, error)
	UpdateVoter(ctx context.Context, voter *models.Voter) error
	ListVoters(ctx context.Context, offset, limit int) ([]models.Voter, int64, error)
	CountVoters(ctx context.Context) (*VoterCounts, error)

	// CreateElection persists the election and its candidates atomically.
	CreateElection(ctx context.Context, election *models.Election) error
	ElectionByID(ctx context.Context, id uint) (*models.Election, error)
	ElectionByBallot(ctx context.Context, ballot string) (*models.Election, error)
	UpdateElection(ctx context.Context, election *models.Election) error
	ListElections(ctx context.Context, status models.ElectionStatus) ([]models.Election, error)

	CreateReceipt(ctx context.Context, receipt *models.VoteReceipt) error
	Receipt(ctx context.Context, electionID uint, voterAddress string) (*models.VoteReceipt, error)
	UpdateReceipt(ctx context.Context, receipt *models.VoteReceipt) error
	ReceiptsByVoter(ctx context.Context, voterAddress string) ([]models.VoteReceipt, error)

	// ReplaceResults deletes the election's cached rows and inserts the new
	// set in one transaction.
	ReplaceResults(ctx context.Context, electionID uint, rows []models.CachedResult) error
	ResultsByElection(ctx context.Context, electionID uint) ([]models.CachedResult, error)
}
