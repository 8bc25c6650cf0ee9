package service

import (
	"context"
	"math"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"election-backend/chain"
	"election-backend/models"
	"election-backend/storage"
)

// ElectionService drives the election lifecycle across the local-record and
// ledger-deployment boundary, and owns the cached-results sync.
type ElectionService struct {
	store storage.Store
	chain chain.Client
	log   *zap.Logger
	now   func() time.Time
}

func NewElectionService(store storage.Store, client chain.Client, log *zap.Logger) *ElectionService {
	return &ElectionService{store: store, chain: client, log: log, now: time.Now}
}

type CandidateInput struct {
	Name        string `json:"name"`
	Party       string `json:"party"`
	Description string `json:"description"`
}

type CreateElectionInput struct {
	Name           string           `json:"name"`
	Description    string           `json:"description"`
	ElectionType   string           `json:"election_type"`
	ConstituencyID int              `json:"constituency_id"`
	CommitDeadline time.Time        `json:"commit_deadline"`
	RevealDeadline time.Time        `json:"reveal_deadline"`
	Candidates     []CandidateInput `json:"candidates"`
	CreatedBy      string           `json:"created_by"`
}

// CreateElectionResult tells the caller which half of the operation
// succeeded. Deployed=false with a nil error means the local record exists
// and the ledger half is still outstanding.
type CreateElectionResult struct {
	Election  *models.Election `json:"election"`
	Deployed  bool             `json:"deployed"`
	DeployErr string           `json:"deploy_error,omitempty"`
}

// CreateElection validates, writes the local record first, then attempts
// ledger deployment. Deployment failure degrades to a partial success: the
// pending row stays and can be retried with RetryDeployment.
func (s *ElectionService) CreateElection(ctx context.Context, input CreateElectionInput) (*CreateElectionResult, error) {
	if input.Name == "" {
		return nil, errors.Wrap(ErrValidation, "name is required")
	}
	if !input.CommitDeadline.After(s.now()) {
		return nil, errors.Wrap(ErrValidation, "commit deadline must be in the future")
	}
	if !input.RevealDeadline.After(input.CommitDeadline) {
		return nil, errors.Wrap(ErrValidation, "reveal deadline must be after commit deadline")
	}
	if len(input.Candidates) < 2 {
		return nil, errors.Wrap(ErrValidation, "at least 2 candidates required")
	}

	electionType := input.ElectionType
	if electionType == "" {
		electionType = models.ElectionTypeGeneral
	}
	if electionType != models.ElectionTypeGeneral && electionType != models.ElectionTypeConstituency {
		return nil, errors.Wrapf(ErrValidation, "unknown election type %q", electionType)
	}

	election := &models.Election{
		Name:           input.Name,
		Description:    input.Description,
		ElectionType:   electionType,
		ConstituencyID: input.ConstituencyID,
		CommitDeadline: input.CommitDeadline,
		RevealDeadline: input.RevealDeadline,
		Status:         models.ElectionPending,
		CreatedBy:      input.CreatedBy,
		CreatedAt:      s.now(),
	}
	for _, c := range input.Candidates {
		party := c.Party
		if party == "" {
			party = "Independent"
		}
		election.Candidates = append(election.Candidates, models.Candidate{
			Name:        c.Name,
			Party:       party,
			Description: c.Description,
			CreatedAt:   s.now(),
		})
	}

	if err := s.store.CreateElection(ctx, election); err != nil {
		return nil, errors.Wrap(err, "persist election")
	}

	result := &CreateElectionResult{Election: election}
	if err := s.deploy(ctx, election); err != nil {
		s.log.Warn("ledger deployment failed, election left pending",
			zap.Uint("election_id", election.ID), zap.Error(err))
		result.DeployErr = err.Error()
		return result, nil
	}
	result.Deployed = true
	return result, nil
}

// RetryDeployment retries the ledger half of a pending election whose
// deployment never succeeded.
func (s *ElectionService) RetryDeployment(ctx context.Context, id uint) (*models.Election, error) {
	election, err := s.getElection(ctx, id)
	if err != nil {
		return nil, err
	}
	if election.Deployed() {
		return nil, errors.Wrap(ErrValidation, "ballot contract already deployed")
	}
	if election.Status == models.ElectionCancelled {
		return nil, errors.Wrap(ErrValidation, "election is cancelled")
	}
	if err := s.deploy(ctx, election); err != nil {
		return nil, err
	}
	return election, nil
}

// deploy submits the factory transaction, waits for the receipt, and on
// confirmation records the ballot identifiers and advances to active.
func (s *ElectionService) deploy(ctx context.Context, election *models.Election) error {
	names := make([]string, len(election.Candidates))
	parties := make([]string, len(election.Candidates))
	for i, c := range election.Candidates {
		names[i] = c.Name
		parties[i] = c.Party
	}
	var electionType uint8
	if election.ElectionType == models.ElectionTypeConstituency {
		electionType = 1
	}

	deployment, err := s.chain.DeployElection(ctx, chain.ElectionSpec{
		Name:             election.Name,
		Description:      election.Description,
		CommitDeadline:   election.CommitDeadline,
		RevealDeadline:   election.RevealDeadline,
		CandidateNames:   names,
		CandidateParties: parties,
		ConstituencyID:   election.ConstituencyID,
		ElectionType:     electionType,
	})
	if err != nil {
		return err
	}

	onChainID := deployment.OnChainID
	election.OnChainID = &onChainID
	election.BallotAddress = deployment.BallotAddress.Hex()
	election.TxHash = deployment.TxHash.Hex()
	election.Status = models.ElectionActive
	if err := s.store.UpdateElection(ctx, election); err != nil {
		return errors.Wrap(err, "record deployment")
	}
	s.log.Info("ballot deployed",
		zap.Uint("election_id", election.ID),
		zap.Uint64("onchain_id", deployment.OnChainID),
		zap.String("ballot", election.BallotAddress))
	return nil
}

// CancelElection is all-or-nothing once a ballot exists: the on-chain cancel
// must confirm before the local status moves. Without a ballot the
// cancellation is purely local.
func (s *ElectionService) CancelElection(ctx context.Context, id uint, reason string) error {
	election, err := s.getElection(ctx, id)
	if err != nil {
		return err
	}
	if election.Status == models.ElectionCancelled {
		return errors.Wrap(ErrValidation, "election already cancelled")
	}
	if election.Status == models.ElectionFinalized {
		return ErrAlreadyFinalized
	}
	if reason == "" {
		reason = "Cancelled by admin"
	}

	if election.Deployed() {
		if _, err := s.chain.CancelElection(ctx, common.HexToAddress(election.BallotAddress), reason); err != nil {
			return errors.WithMessage(err, "on-chain cancel failed")
		}
	}

	election.Status = models.ElectionCancelled
	if err := s.store.UpdateElection(ctx, election); err != nil {
		return errors.Wrap(err, "record cancellation")
	}
	s.log.Info("election cancelled", zap.Uint("election_id", id), zap.String("reason", reason))
	return nil
}

// SyncResults pulls the ballot's tally and materializes the cached snapshot,
// replacing any previous rows. The fetch happens before any deletion, so a
// ledger failure leaves the old cache intact.
func (s *ElectionService) SyncResults(ctx context.Context, id uint) ([]models.CachedResult, error) {
	election, err := s.getElection(ctx, id)
	if err != nil {
		return nil, err
	}
	if !election.Deployed() {
		return nil, errors.Wrap(ErrValidation, "no ballot contract deployed")
	}
	ballot := common.HexToAddress(election.BallotAddress)

	results, err := s.chain.BallotResults(ctx, ballot)
	if err != nil {
		return nil, err
	}
	info, err := s.chain.ElectionInfo(ctx, ballot)
	if err != nil {
		return nil, err
	}

	var maxVotes uint64
	for _, r := range results {
		if r.VoteCount > maxVotes {
			maxVotes = r.VoteCount
		}
	}

	syncedAt := s.now()
	rows := make([]models.CachedResult, 0, len(results))
	for _, r := range results {
		rows = append(rows, models.CachedResult{
			ElectionID:    election.ID,
			CandidateID:   r.ID,
			CandidateName: r.Name,
			Party:         r.Party,
			VoteCount:     r.VoteCount,
			TotalCommits:  info.TotalCommits,
			TotalReveals:  info.TotalReveals,
			IsWinner:      r.VoteCount == maxVotes && maxVotes > 0,
			SyncedAt:      syncedAt,
		})
	}
	if err := s.store.ReplaceResults(ctx, election.ID, rows); err != nil {
		return nil, errors.Wrap(err, "replace cached results")
	}

	if info.IsFinalized && election.CanAdvanceTo(models.ElectionFinalized) {
		election.Status = models.ElectionFinalized
		if err := s.store.UpdateElection(ctx, election); err != nil {
			return nil, errors.Wrap(err, "finalize election")
		}
	}
	s.log.Info("results synced", zap.Uint("election_id", id), zap.Int("candidates", len(rows)))
	return rows, nil
}

// ResultsView reports the tally chain-first, falling back to the cache when
// the ledger cannot answer.
type ResultsView struct {
	Source       string                  `json:"source"`
	ElectionName string                  `json:"election_name"`
	Live         []chain.CandidateResult `json:"results,omitempty"`
	Cached       []models.CachedResult   `json:"cached_results,omitempty"`
	Integrity    *chain.IntegrityReport  `json:"integrity,omitempty"`
}

func (s *ElectionService) Results(ctx context.Context, id uint) (*ResultsView, error) {
	election, err := s.getElection(ctx, id)
	if err != nil {
		return nil, err
	}

	if election.Deployed() {
		ballot := common.HexToAddress(election.BallotAddress)
		live, err := s.chain.BallotResults(ctx, ballot)
		if err == nil {
			view := &ResultsView{Source: "chain", ElectionName: election.Name, Live: live}
			if integrity, err := s.chain.VerifyIntegrity(ctx, ballot); err == nil {
				view.Integrity = integrity
			}
			return view, nil
		}
		s.log.Warn("chain results unavailable, serving cache",
			zap.Uint("election_id", id), zap.Error(err))
	}

	cached, err := s.store.ResultsByElection(ctx, election.ID)
	if err != nil {
		return nil, errors.Wrap(err, "read cached results")
	}
	return &ResultsView{Source: "cache", ElectionName: election.Name, Cached: cached}, nil
}

// ElectionView is an election row enriched with the ballot contract's view,
// when one exists and answers.
type ElectionView struct {
	models.Election
	OnChain    *chain.ElectionInfo `json:"onchain,omitempty"`
	OnChainErr string              `json:"onchain_error,omitempty"`
}

func (s *ElectionService) GetElection(ctx context.Context, id uint) (*ElectionView, error) {
	election, err := s.getElection(ctx, id)
	if err != nil {
		return nil, err
	}
	view := &ElectionView{Election: *election}
	if election.Deployed() {
		info, err := s.chain.ElectionInfo(ctx, common.HexToAddress(election.BallotAddress))
		if err != nil {
			view.OnChainErr = err.Error()
		} else {
			view.OnChain = info
		}
	}
	return view, nil
}

func (s *ElectionService) ListElections(ctx context.Context, status models.ElectionStatus) ([]ElectionView, error) {
	elections, err := s.store.ListElections(ctx, status)
	if err != nil {
		return nil, errors.Wrap(err, "list elections")
	}
	views := make([]ElectionView, 0, len(elections))
	for i := range elections {
		view := ElectionView{Election: elections[i]}
		if elections[i].Deployed() {
			if info, err := s.chain.ElectionInfo(ctx, common.HexToAddress(elections[i].BallotAddress)); err == nil {
				view.OnChain = info
			}
		}
		views = append(views, view)
	}
	return views, nil
}

// Analytics derives turnout figures from the ledger counters. Ledger errors
// do not fail the call; they are reported alongside the local fields.
type Analytics struct {
	ElectionName          string                `json:"election_name"`
	Status                models.ElectionStatus `json:"status"`
	TotalRegisteredVoters uint64                `json:"total_registered_voters,omitempty"`
	TotalCommits          uint64                `json:"total_commits,omitempty"`
	TotalReveals          uint64                `json:"total_reveals,omitempty"`
	TurnoutPct            float64               `json:"turnout_pct"`
	RevealRatePct         float64               `json:"reveal_rate_pct"`
	Phase                 string                `json:"phase,omitempty"`
	IsFinalized           bool                  `json:"is_finalized"`
	IsCancelled           bool                  `json:"is_cancelled"`
	ChainError            string                `json:"chain_error,omitempty"`
}

func (s *ElectionService) Analytics(ctx context.Context, id uint) (*Analytics, error) {
	election, err := s.getElection(ctx, id)
	if err != nil {
		return nil, err
	}
	analytics := &Analytics{ElectionName: election.Name, Status: election.Status}
	if !election.Deployed() {
		return analytics, nil
	}

	info, err := s.chain.ElectionInfo(ctx, common.HexToAddress(election.BallotAddress))
	if err != nil {
		analytics.ChainError = err.Error()
		return analytics, nil
	}
	totalVoters, err := s.chain.TotalVoters(ctx)
	if err != nil {
		analytics.ChainError = err.Error()
		return analytics, nil
	}

	analytics.TotalRegisteredVoters = totalVoters
	analytics.TotalCommits = info.TotalCommits
	analytics.TotalReveals = info.TotalReveals
	analytics.Phase = info.Phase
	analytics.IsFinalized = info.IsFinalized
	analytics.IsCancelled = info.IsCancelled
	if totalVoters > 0 {
		analytics.TurnoutPct = round2(float64(info.TotalCommits) / float64(totalVoters) * 100)
	}
	if info.TotalCommits > 0 {
		analytics.RevealRatePct = round2(float64(info.TotalReveals) / float64(info.TotalCommits) * 100)
	}
	return analytics, nil
}

func (s *ElectionService) getElection(ctx context.Context, id uint) (*models.Election, error) {
	election, err := s.store.ElectionByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, errors.Wrapf(ErrNotFound, "election %d", id)
		}
		return nil, errors.Wrap(err, "load election")
	}
	return election, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
