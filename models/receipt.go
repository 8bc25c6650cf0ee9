package models

import "time"

type VotePhase string

const (
	PhaseCommitted VotePhase = "committed"
	PhaseRevealed  VotePhase = "revealed"
)

// VoteReceipt records that a wallet performed a commit (and later a reveal)
// against a ballot. It is bookkeeping, not proof: proof of participation is
// verified against the ledger. Exactly one receipt exists per
// (election, voter) pair, and the phase never moves back to committed.
type VoteReceipt struct {
	ID           string     `gorm:"size:36;primaryKey" json:"id"`
	ElectionID   uint       `gorm:"not null;uniqueIndex:uq_receipt_election_voter" json:"election_id"`
	VoterAddress string     `gorm:"size:42;not null;uniqueIndex:uq_receipt_election_voter" json:"voter_address"`
	ReceiptHash  string     `gorm:"size:66;not null" json:"receipt_hash"`
	CommitTxHash string     `gorm:"size:66" json:"commit_tx_hash,omitempty"`
	RevealTxHash string     `gorm:"size:66" json:"reveal_tx_hash,omitempty"`
	Phase        VotePhase  `gorm:"size:16;default:committed" json:"phase"`
	CommittedAt  time.Time  `json:"committed_at"`
	RevealedAt   *time.Time `json:"revealed_at,omitempty"`
}
