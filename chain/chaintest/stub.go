// Package chaintest provides a function-field ledger double for tests.
package chaintest

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"election-backend/chain"
)

// StubClient implements chain.Client with overridable behavior per method.
// Unset methods report happy-path zero values, so a test only wires the calls
// it cares about.
type StubClient struct {
	StatusFn          func(ctx context.Context) *chain.NetworkStatus
	RegisterVoterFn   func(ctx context.Context, wallet common.Address, identityHash [32]byte, constituencyID int) (common.Hash, error)
	DeactivateVoterFn func(ctx context.Context, wallet common.Address, reason string) (common.Hash, error)
	ReactivateVoterFn func(ctx context.Context, wallet common.Address) (common.Hash, error)
	DeployElectionFn  func(ctx context.Context, spec chain.ElectionSpec) (*chain.Deployment, error)
	CancelElectionFn  func(ctx context.Context, ballot common.Address, reason string) (common.Hash, error)

	ElectionInfoFn    func(ctx context.Context, ballot common.Address) (*chain.ElectionInfo, error)
	BallotResultsFn   func(ctx context.Context, ballot common.Address) ([]chain.CandidateResult, error)
	VoterInfoFn       func(ctx context.Context, wallet common.Address) (*chain.VoterInfo, error)
	IsVoterEligibleFn func(ctx context.Context, wallet common.Address) (bool, error)
	CommitStatusFn    func(ctx context.Context, ballot, voter common.Address) (*chain.CommitStatus, error)
	VerifyReceiptFn   func(ctx context.Context, ballot, voter common.Address, receiptHash [32]byte) (bool, error)
	VerifyIntegrityFn func(ctx context.Context, ballot common.Address) (*chain.IntegrityReport, error)
	ElectionSummaryFn func(ctx context.Context, ballot common.Address) (*chain.ElectionSummary, error)
	DidParticipateFn  func(ctx context.Context, ballot, voter common.Address) (bool, error)
	TotalVotersFn     func(ctx context.Context) (uint64, error)
}

var _ chain.Client = (*StubClient)(nil)

func (s *StubClient) Status(ctx context.Context) *chain.NetworkStatus {
	if s.StatusFn != nil {
		return s.StatusFn(ctx)
	}
	return &chain.NetworkStatus{Connected: true}
}

func (s *StubClient) RegisterVoter(ctx context.Context, wallet common.Address, identityHash [32]byte, constituencyID int) (common.Hash, error) {
	if s.RegisterVoterFn != nil {
		return s.RegisterVoterFn(ctx, wallet, identityHash, constituencyID)
	}
	return common.HexToHash("0x01"), nil
}

func (s *StubClient) DeactivateVoter(ctx context.Context, wallet common.Address, reason string) (common.Hash, error) {
	if s.DeactivateVoterFn != nil {
		return s.DeactivateVoterFn(ctx, wallet, reason)
	}
	return common.HexToHash("0x02"), nil
}

func (s *StubClient) ReactivateVoter(ctx context.Context, wallet common.Address) (common.Hash, error) {
	if s.ReactivateVoterFn != nil {
		return s.ReactivateVoterFn(ctx, wallet)
	}
	return common.HexToHash("0x03"), nil
}

func (s *StubClient) DeployElection(ctx context.Context, spec chain.ElectionSpec) (*chain.Deployment, error) {
	if s.DeployElectionFn != nil {
		return s.DeployElectionFn(ctx, spec)
	}
	return &chain.Deployment{
		OnChainID:     1,
		BallotAddress: common.HexToAddress("0x00000000000000000000000000000000000000b1"),
		TxHash:        common.HexToHash("0x04"),
	}, nil
}

func (s *StubClient) CancelElection(ctx context.Context, ballot common.Address, reason string) (common.Hash, error) {
	if s.CancelElectionFn != nil {
		return s.CancelElectionFn(ctx, ballot, reason)
	}
	return common.HexToHash("0x05"), nil
}

func (s *StubClient) ElectionInfo(ctx context.Context, ballot common.Address) (*chain.ElectionInfo, error) {
	if s.ElectionInfoFn != nil {
		return s.ElectionInfoFn(ctx, ballot)
	}
	return &chain.ElectionInfo{Phase: "commit"}, nil
}

func (s *StubClient) BallotResults(ctx context.Context, ballot common.Address) ([]chain.CandidateResult, error) {
	if s.BallotResultsFn != nil {
		return s.BallotResultsFn(ctx, ballot)
	}
	return nil, nil
}

func (s *StubClient) VoterInfo(ctx context.Context, wallet common.Address) (*chain.VoterInfo, error) {
	if s.VoterInfoFn != nil {
		return s.VoterInfoFn(ctx, wallet)
	}
	return &chain.VoterInfo{}, nil
}

func (s *StubClient) IsVoterEligible(ctx context.Context, wallet common.Address) (bool, error) {
	if s.IsVoterEligibleFn != nil {
		return s.IsVoterEligibleFn(ctx, wallet)
	}
	return false, nil
}

func (s *StubClient) CommitStatus(ctx context.Context, ballot, voter common.Address) (*chain.CommitStatus, error) {
	if s.CommitStatusFn != nil {
		return s.CommitStatusFn(ctx, ballot, voter)
	}
	return &chain.CommitStatus{}, nil
}

func (s *StubClient) VerifyReceipt(ctx context.Context, ballot, voter common.Address, receiptHash [32]byte) (bool, error) {
	if s.VerifyReceiptFn != nil {
		return s.VerifyReceiptFn(ctx, ballot, voter, receiptHash)
	}
	return false, nil
}

func (s *StubClient) VerifyIntegrity(ctx context.Context, ballot common.Address) (*chain.IntegrityReport, error) {
	if s.VerifyIntegrityFn != nil {
		return s.VerifyIntegrityFn(ctx, ballot)
	}
	return &chain.IntegrityReport{Consistent: true}, nil
}

func (s *StubClient) ElectionSummary(ctx context.Context, ballot common.Address) (*chain.ElectionSummary, error) {
	if s.ElectionSummaryFn != nil {
		return s.ElectionSummaryFn(ctx, ballot)
	}
	return &chain.ElectionSummary{}, nil
}

func (s *StubClient) DidParticipate(ctx context.Context, ballot, voter common.Address) (bool, error) {
	if s.DidParticipateFn != nil {
		return s.DidParticipateFn(ctx, ballot, voter)
	}
	return false, nil
}

func (s *StubClient) TotalVoters(ctx context.Context) (uint64, error) {
	if s.TotalVotersFn != nil {
		return s.TotalVotersFn(ctx)
	}
	return 0, nil
}
