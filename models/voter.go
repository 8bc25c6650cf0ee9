package models

import "time"

// Voter is the off-chain registry record for a wallet. The on-chain registry
// is authoritative for eligibility; this row carries the metadata the ledger
// never stores (name, identity digest) plus the registration bookkeeping.
// IsRegisteredOnChain may lag IsActive while the ledger half of a
// registration is still pending.
type Voter struct {
	ID                  uint      `gorm:"primaryKey" json:"id"`
	Name                string    `gorm:"size:255;not null" json:"name"`
	IdentityHash        string    `gorm:"size:66;uniqueIndex;not null" json:"identity_hash"`
	WalletAddress       string    `gorm:"size:42;uniqueIndex;not null" json:"wallet_address"`
	ConstituencyID      int       `gorm:"not null" json:"constituency_id"`
	IsRegisteredOnChain bool      `gorm:"default:false" json:"is_registered_onchain"`
	TxHash              string    `gorm:"size:66" json:"tx_hash,omitempty"`
	IsActive            bool      `gorm:"default:true" json:"is_active"`
	CreatedAt           time.Time `json:"created_at"`
}
