package chain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// NetworkStatus reports connectivity and the deployed contract addresses.
type NetworkStatus struct {
	Connected       bool   `json:"connected"`
	ChainID         uint64 `json:"chain_id,omitempty"`
	BlockNumber     uint64 `json:"block_number,omitempty"`
	VoterRegistry   string `json:"voter_registry,omitempty"`
	ElectionFactory string `json:"election_factory,omitempty"`
	VoteVerifier    string `json:"vote_verifier,omitempty"`
}

// ElectionInfo is the ballot contract's view of an election.
type ElectionInfo struct {
	TotalCommits uint64 `json:"total_commits"`
	TotalReveals uint64 `json:"total_reveals"`
	Phase        string `json:"phase"`
	IsFinalized  bool   `json:"is_finalized"`
	IsCancelled  bool   `json:"is_cancelled"`
}

// CandidateResult is one row of a ballot's candidate list with its tally.
type CandidateResult struct {
	ID        uint64 `json:"id"`
	Name      string `json:"name"`
	Party     string `json:"party"`
	VoteCount uint64 `json:"vote_count"`
}

// VoterInfo is the registry contract's record for a wallet.
type VoterInfo struct {
	Registered     bool   `json:"registered"`
	ConstituencyID uint64 `json:"constituency_id"`
	Active         bool   `json:"active"`
}

// CommitStatus is a wallet's commit/reveal progress on one ballot.
type CommitStatus struct {
	HasCommitted bool `json:"has_committed"`
	HasRevealed  bool `json:"has_revealed"`
}

// IntegrityReport is the verifier contract's consistency check of a ballot.
type IntegrityReport struct {
	Consistent   bool   `json:"consistent"`
	TotalCommits uint64 `json:"total_commits"`
	TotalReveals uint64 `json:"total_reveals"`
}

// ElectionSummary is the verifier contract's condensed view of a ballot.
type ElectionSummary struct {
	Name           string `json:"name"`
	CandidateCount uint64 `json:"candidate_count"`
	TotalCommits   uint64 `json:"total_commits"`
	TotalReveals   uint64 `json:"total_reveals"`
	Finalized      bool   `json:"finalized"`
}

// ElectionSpec carries everything the factory needs to deploy a ballot.
type ElectionSpec struct {
	Name             string
	Description      string
	CommitDeadline   time.Time
	RevealDeadline   time.Time
	CandidateNames   []string
	CandidateParties []string
	ConstituencyID   int
	ElectionType     uint8
}

// Deployment is the outcome of a confirmed ballot deployment.
type Deployment struct {
	OnChainID     uint64
	BallotAddress common.Address
	TxHash        common.Hash
}

var phaseNames = map[uint8]string{
	0: "commit",
	1: "reveal",
	2: "tally",
	3: "done",
}

func phaseName(p uint8) string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return "unknown"
}

func toUint64(v *big.Int) uint64 {
	if v == nil {
		return 0
	}
	return v.Uint64()
}
