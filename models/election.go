package models

import "time"

type ElectionStatus string

const (
	ElectionPending   ElectionStatus = "pending"
	ElectionActive    ElectionStatus = "active"
	ElectionReveal    ElectionStatus = "reveal"
	ElectionTallying  ElectionStatus = "tallying"
	ElectionFinalized ElectionStatus = "finalized"
	ElectionCancelled ElectionStatus = "cancelled"
)

const (
	ElectionTypeGeneral      = "general"
	ElectionTypeConstituency = "constituency"
)

// statusRank orders the forward-only lifecycle. Cancelled sits outside the
// ordering: it is an exit reachable from any non-terminal state.
var statusRank = map[ElectionStatus]int{
	ElectionPending:   0,
	ElectionActive:    1,
	ElectionReveal:    2,
	ElectionTallying:  3,
	ElectionFinalized: 4,
}

// Election is the off-chain record of an election. OnChainID and
// BallotAddress are set together once the ballot contract is deployed; until
// then the row stays at pending and deployment can be retried.
type Election struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	OnChainID      *uint64        `gorm:"uniqueIndex" json:"onchain_id,omitempty"`
	Name           string         `gorm:"size:255;not null" json:"name"`
	Description    string         `gorm:"type:text" json:"description"`
	ElectionType   string         `gorm:"size:32;default:general" json:"election_type"`
	ConstituencyID int            `gorm:"default:0" json:"constituency_id"`
	BallotAddress  string         `gorm:"size:42" json:"ballot_address,omitempty"`
	CommitDeadline time.Time      `gorm:"not null" json:"commit_deadline"`
	RevealDeadline time.Time      `gorm:"not null" json:"reveal_deadline"`
	Status         ElectionStatus `gorm:"size:16;default:pending" json:"status"`
	CreatedBy      string         `gorm:"size:255" json:"created_by"`
	TxHash         string         `gorm:"size:66" json:"tx_hash,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`

	Candidates []Candidate `gorm:"foreignKey:ElectionID" json:"candidates"`
}

// Deployed reports whether the ballot contract exists on the ledger.
func (e *Election) Deployed() bool {
	return e.BallotAddress != ""
}

// Terminal reports whether the election can no longer change state.
func (e *Election) Terminal() bool {
	return e.Status == ElectionFinalized || e.Status == ElectionCancelled
}

// CanAdvanceTo reports whether moving to next respects the forward-only
// lifecycle. Cancellation of a non-terminal election is always allowed.
func (e *Election) CanAdvanceTo(next ElectionStatus) bool {
	if next == ElectionCancelled {
		return !e.Terminal()
	}
	cur, ok := statusRank[e.Status]
	if !ok {
		return false
	}
	nxt, ok := statusRank[next]
	if !ok {
		return false
	}
	return nxt > cur
}

// Candidate is owned by its election and created in the same transaction as
// the election row, before any ledger deployment.
type Candidate struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ElectionID  uint      `gorm:"not null;index" json:"election_id"`
	OnChainID   *uint64   `json:"onchain_id,omitempty"`
	Name        string    `gorm:"size:255;not null" json:"name"`
	Party       string    `gorm:"size:255" json:"party"`
	Description string    `gorm:"type:text" json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
