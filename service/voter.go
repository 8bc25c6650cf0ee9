package service

import (
	"context"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"election-backend/chain"
	"election-backend/models"
	"election-backend/storage"
)

// VoterService owns the voter registry's local half: registration with a
// best-effort ledger half, the eligibility gate, and the
// deactivate/reactivate reconciliation.
type VoterService struct {
	store storage.Store
	chain chain.Client
	recon *Reconciler
	log   *zap.Logger
}

func NewVoterService(store storage.Store, client chain.Client, recon *Reconciler, log *zap.Logger) *VoterService {
	return &VoterService{store: store, chain: client, recon: recon, log: log}
}

type RegisterVoterInput struct {
	Name           string `json:"name"`
	RawVoterID     string `json:"raw_voter_id"`
	ConstituencyID int    `json:"constituency_id"`
	WalletAddress  string `json:"wallet_address"`
}

// RegisterVoterResult reports which half of the registration succeeded. A
// false RegisteredOnChain with a non-empty ChainErr means the ledger half is
// outstanding and retriable.
type RegisterVoterResult struct {
	Voter             *models.Voter `json:"voter"`
	RegisteredOnChain bool          `json:"registered_onchain"`
	TxHash            string        `json:"tx_hash,omitempty"`
	ChainErr          string        `json:"chain_error,omitempty"`
}

// RegisterVoter creates the local registry row, then attempts the on-chain
// registration. The raw identifier is hashed immediately and never stored.
func (s *VoterService) RegisterVoter(ctx context.Context, input RegisterVoterInput) (*RegisterVoterResult, error) {
	wallet := strings.ToLower(strings.TrimSpace(input.WalletAddress))
	if !common.IsHexAddress(wallet) {
		return nil, errors.Wrap(ErrValidation, "invalid wallet address")
	}
	if input.Name == "" || input.RawVoterID == "" {
		return nil, errors.Wrap(ErrValidation, "name and voter id are required")
	}

	identityHash := chain.HashIdentity(input.RawVoterID)

	if _, err := s.store.VoterByWallet(ctx, wallet); err == nil {
		return nil, errors.Wrap(ErrAlreadyRegistered, "wallet already registered")
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, errors.Wrap(err, "check wallet")
	}
	if _, err := s.store.VoterByIdentityHash(ctx, identityHash); err == nil {
		return nil, errors.Wrap(ErrAlreadyRegistered, "voter identity already registered")
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, errors.Wrap(err, "check identity")
	}

	voter := &models.Voter{
		Name:           input.Name,
		IdentityHash:   identityHash,
		WalletAddress:  wallet,
		ConstituencyID: input.ConstituencyID,
		IsActive:       true,
	}
	if err := s.store.CreateVoter(ctx, voter); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, errors.Wrap(ErrAlreadyRegistered, "voter already registered")
		}
		return nil, errors.Wrap(err, "persist voter")
	}

	result := &RegisterVoterResult{Voter: voter}
	txHash, err := s.registerOnChain(ctx, voter)
	if err != nil {
		// Local registration sticks; the ledger half can be retried.
		s.log.Warn("on-chain registration failed, left pending",
			zap.String("wallet", wallet), zap.Error(err))
		result.ChainErr = err.Error()
		return result, nil
	}
	result.RegisteredOnChain = true
	result.TxHash = txHash
	return result, nil
}

// RetryOnChainRegistration re-runs the ledger half for a voter whose
// registration never confirmed. A voter already marked registered is
// rejected before any submission.
func (s *VoterService) RetryOnChainRegistration(ctx context.Context, voterID uint) (*models.Voter, error) {
	voter, err := s.getVoter(ctx, voterID)
	if err != nil {
		return nil, err
	}
	if voter.IsRegisteredOnChain {
		return nil, errors.Wrap(ErrAlreadyRegistered, "voter already registered on-chain")
	}
	if _, err := s.registerOnChain(ctx, voter); err != nil {
		return nil, err
	}
	return voter, nil
}

func (s *VoterService) registerOnChain(ctx context.Context, voter *models.Voter) (string, error) {
	digest, err := chain.ParseHash32(voter.IdentityHash)
	if err != nil {
		return "", errors.Wrap(err, "stored identity hash")
	}
	txHash, err := s.chain.RegisterVoter(ctx,
		common.HexToAddress(voter.WalletAddress), digest, voter.ConstituencyID)
	if err != nil {
		return "", err
	}
	voter.IsRegisteredOnChain = true
	voter.TxHash = txHash.Hex()
	if err := s.store.UpdateVoter(ctx, voter); err != nil {
		return "", errors.Wrap(err, "record on-chain registration")
	}
	return txHash.Hex(), nil
}

// EligibilityStatus lets callers tell "not registered" from "deactivated":
// voting eligibility requires both the local active flag and the ledger's
// answer.
type EligibilityStatus struct {
	Wallet            string           `json:"wallet"`
	RegisteredLocally bool             `json:"registered_locally"`
	ActiveLocally     bool             `json:"active_locally"`
	EligibleOnChain   bool             `json:"eligible_onchain"`
	Eligible          bool             `json:"eligible"`
	OnChain           *chain.VoterInfo `json:"onchain,omitempty"`
}

func (s *VoterService) CheckEligibility(ctx context.Context, wallet string) (*EligibilityStatus, error) {
	status := &EligibilityStatus{Wallet: strings.ToLower(strings.TrimSpace(wallet))}

	voter, err := s.store.VoterByWallet(ctx, status.Wallet)
	switch {
	case err == nil:
		status.RegisteredLocally = true
		status.ActiveLocally = voter.IsActive
	case errors.Is(err, storage.ErrNotFound):
		// stays unregistered
	default:
		return nil, errors.Wrap(err, "local voter lookup")
	}

	addr := common.HexToAddress(status.Wallet)
	eligible, err := s.chain.IsVoterEligible(ctx, addr)
	if err != nil {
		return nil, err
	}
	status.EligibleOnChain = eligible
	if info, err := s.chain.VoterInfo(ctx, addr); err == nil {
		status.OnChain = info
	}

	status.Eligible = status.ActiveLocally && status.EligibleOnChain
	return status, nil
}

// Deactivate flips the local flag and hands the ledger half to the
// reconciler. The local write is authoritative for this backend either way.
func (s *VoterService) Deactivate(ctx context.Context, voterID uint, reason string) error {
	voter, err := s.getVoter(ctx, voterID)
	if err != nil {
		return err
	}
	if reason == "" {
		reason = "Deactivated by admin"
	}
	voter.IsActive = false
	if err := s.store.UpdateVoter(ctx, voter); err != nil {
		return errors.Wrap(err, "deactivate voter")
	}

	wallet := common.HexToAddress(voter.WalletAddress)
	s.recon.Enqueue("deactivate-voter", func(ctx context.Context) error {
		_, err := s.chain.DeactivateVoter(ctx, wallet, reason)
		return err
	})
	return nil
}

// Reactivate mirrors Deactivate.
func (s *VoterService) Reactivate(ctx context.Context, voterID uint) error {
	voter, err := s.getVoter(ctx, voterID)
	if err != nil {
		return err
	}
	voter.IsActive = true
	if err := s.store.UpdateVoter(ctx, voter); err != nil {
		return errors.Wrap(err, "reactivate voter")
	}

	wallet := common.HexToAddress(voter.WalletAddress)
	s.recon.Enqueue("reactivate-voter", func(ctx context.Context) error {
		_, err := s.chain.ReactivateVoter(ctx, wallet)
		return err
	})
	return nil
}

// VoterView is a registry row enriched with the ledger's record, when it
// answers.
type VoterView struct {
	models.Voter
	OnChain *chain.VoterInfo `json:"onchain,omitempty"`
}

func (s *VoterService) VoterByWallet(ctx context.Context, wallet string) (*VoterView, error) {
	voter, err := s.store.VoterByWallet(ctx, strings.ToLower(strings.TrimSpace(wallet)))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, errors.Wrap(ErrNotFound, "voter")
		}
		return nil, errors.Wrap(err, "load voter")
	}
	view := &VoterView{Voter: *voter}
	if info, err := s.chain.VoterInfo(ctx, common.HexToAddress(voter.WalletAddress)); err == nil {
		view.OnChain = info
	}
	return view, nil
}

func (s *VoterService) ListVoters(ctx context.Context, offset, limit int) ([]models.Voter, int64, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.store.ListVoters(ctx, offset, limit)
}

func (s *VoterService) VoteHistory(ctx context.Context, wallet string) ([]models.VoteReceipt, error) {
	return s.store.ReceiptsByVoter(ctx, strings.ToLower(strings.TrimSpace(wallet)))
}

// VoterStats combines local registry counts with the ledger's total, which
// is reported best-effort.
type VoterStats struct {
	TotalOffChain     int64  `json:"total_offchain"`
	Active            int64  `json:"active"`
	Inactive          int64  `json:"inactive"`
	RegisteredOnChain int64  `json:"registered_onchain"`
	OnChainTotal      uint64 `json:"onchain_total"`
}

func (s *VoterService) Stats(ctx context.Context) (*VoterStats, error) {
	counts, err := s.store.CountVoters(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "count voters")
	}
	stats := &VoterStats{
		TotalOffChain:     counts.Total,
		Active:            counts.Active,
		Inactive:          counts.Total - counts.Active,
		RegisteredOnChain: counts.OnChain,
	}
	if total, err := s.chain.TotalVoters(ctx); err == nil {
		stats.OnChainTotal = total
	}
	return stats, nil
}

func (s *VoterService) getVoter(ctx context.Context, id uint) (*models.Voter, error) {
	voter, err := s.store.VoterByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, errors.Wrapf(ErrNotFound, "voter %d", id)
		}
		return nil, errors.Wrap(err, "load voter")
	}
	return voter, nil
}
