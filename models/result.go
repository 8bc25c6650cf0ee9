package models

import "time"

// CachedResult is a derived snapshot of a ballot's tally, fully replaced on
// every sync. The ledger stays the source of truth; these rows only reflect
// the last successful sync.
type CachedResult struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	ElectionID    uint      `gorm:"not null;index" json:"election_id"`
	CandidateID   uint64    `gorm:"not null" json:"candidate_id"`
	CandidateName string    `gorm:"size:255;not null" json:"candidate_name"`
	Party         string    `gorm:"size:255" json:"party"`
	VoteCount     uint64    `gorm:"default:0" json:"vote_count"`
	TotalCommits  uint64    `gorm:"default:0" json:"total_commits"`
	TotalReveals  uint64    `gorm:"default:0" json:"total_reveals"`
	IsWinner      bool      `gorm:"default:false" json:"is_winner"`
	SyncedAt      time.Time `json:"synced_at"`
}
