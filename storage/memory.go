package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"election-backend/models"
)

// MemStore is a mutex-guarded in-memory Store. It enforces the same
// uniqueness rules as the postgres schema and backs the test suites.
type MemStore struct {
	mu sync.RWMutex

	voters     map[uint]*models.Voter
	elections  map[uint]*models.Election
	candidates map[uint][]models.Candidate
	receipts   map[string]*models.VoteReceipt // key: electionID|wallet
	results    map[uint][]models.CachedResult

	nextVoterID     uint
	nextElectionID  uint
	nextCandidateID uint
}

func NewMemStore() *MemStore {
	return &MemStore{
		voters:          make(map[uint]*models.Voter),
		elections:       make(map[uint]*models.Election),
		candidates:      make(map[uint][]models.Candidate),
		receipts:        make(map[string]*models.VoteReceipt),
		results:         make(map[uint][]models.CachedResult),
		nextVoterID:     1,
		nextElectionID:  1,
		nextCandidateID: 1,
	}
}

func receiptKey(electionID uint, wallet string) string {
	return fmt.Sprintf("%d|%s", electionID, strings.ToLower(wallet))
}

// ---- voters ----

func (s *MemStore) CreateVoter(_ context.Context, voter *models.Voter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.voters {
		if strings.EqualFold(v.WalletAddress, voter.WalletAddress) || v.IdentityHash == voter.IdentityHash {
			return ErrConflict
		}
	}
	voter.ID = s.nextVoterID
	s.nextVoterID++
	cp := *voter
	s.voters[voter.ID] = &cp
	return nil
}

func (s *MemStore) VoterByID(_ context.Context, id uint) (*models.Voter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.voters[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (s *MemStore) VoterByWallet(_ context.Context, wallet string) (*models.Voter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, v := range s.voters {
		if strings.EqualFold(v.WalletAddress, wallet) {
			cp := *v
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemStore) VoterByIdentityHash(_ context.Context, hash string) (*models.Voter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, v := range s.voters {
		if v.IdentityHash == hash {
			cp := *v
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemStore) UpdateVoter(_ context.Context, voter *models.Voter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.voters[voter.ID]; !ok {
		return ErrNotFound
	}
	cp := *voter
	s.voters[voter.ID] = &cp
	return nil
}

func (s *MemStore) ListVoters(_ context.Context, offset, limit int) ([]models.Voter, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := make([]models.Voter, 0, len(s.voters))
	for _, v := range s.voters {
		all = append(all, *v)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (s *MemStore) CountVoters(_ context.Context) (*VoterCounts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := &VoterCounts{}
	for _, v := range s.voters {
		counts.Total++
		if v.IsActive {
			counts.Active++
		}
		if v.IsRegisteredOnChain {
			counts.OnChain++
		}
	}
	return counts, nil
}

// ---- elections ----

func (s *MemStore) CreateElection(_ context.Context, election *models.Election) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	election.ID = s.nextElectionID
	s.nextElectionID++

	cands := make([]models.Candidate, len(election.Candidates))
	for i := range election.Candidates {
		c := election.Candidates[i]
		c.ID = s.nextCandidateID
		s.nextCandidateID++
		c.ElectionID = election.ID
		cands[i] = c
		election.Candidates[i] = c
	}
	cp := *election
	cp.Candidates = nil
	s.elections[election.ID] = &cp
	s.candidates[election.ID] = cands
	return nil
}

func (s *MemStore) ElectionByID(_ context.Context, id uint) (*models.Election, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.electionLocked(id)
}

func (s *MemStore) electionLocked(id uint) (*models.Election, error) {
	e, ok := s.elections[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *e
	cp.Candidates = append([]models.Candidate(nil), s.candidates[id]...)
	return &cp, nil
}

func (s *MemStore) ElectionByBallot(_ context.Context, ballot string) (*models.Election, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for id, e := range s.elections {
		if e.BallotAddress != "" && strings.EqualFold(e.BallotAddress, ballot) {
			return s.electionLocked(id)
		}
	}
	return nil, ErrNotFound
}

func (s *MemStore) UpdateElection(_ context.Context, election *models.Election) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.elections[election.ID]; !ok {
		return ErrNotFound
	}
	cp := *election
	cp.Candidates = nil
	s.elections[election.ID] = &cp
	return nil
}

func (s *MemStore) ListElections(_ context.Context, status models.ElectionStatus) ([]models.Election, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Election, 0, len(s.elections))
	for id, e := range s.elections {
		if status != "" && e.Status != status {
			continue
		}
		cp, _ := s.electionLocked(id)
		out = append(out, *cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// ---- receipts ----

func (s *MemStore) CreateReceipt(_ context.Context, receipt *models.VoteReceipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := receiptKey(receipt.ElectionID, receipt.VoterAddress)
	if _, exists := s.receipts[key]; exists {
		return ErrConflict
	}
	cp := *receipt
	s.receipts[key] = &cp
	return nil
}

func (s *MemStore) Receipt(_ context.Context, electionID uint, voterAddress string) (*models.VoteReceipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.receipts[receiptKey(electionID, voterAddress)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *MemStore) UpdateReceipt(_ context.Context, receipt *models.VoteReceipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := receiptKey(receipt.ElectionID, receipt.VoterAddress)
	if _, ok := s.receipts[key]; !ok {
		return ErrNotFound
	}
	cp := *receipt
	s.receipts[key] = &cp
	return nil
}

func (s *MemStore) ReceiptsByVoter(_ context.Context, voterAddress string) ([]models.VoteReceipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.VoteReceipt
	for _, r := range s.receipts {
		if strings.EqualFold(r.VoterAddress, voterAddress) {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CommittedAt.After(out[j].CommittedAt) })
	return out, nil
}

// ---- cached results ----

func (s *MemStore) ReplaceResults(_ context.Context, electionID uint, rows []models.CachedResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[electionID] = append([]models.CachedResult(nil), rows...)
	return nil
}

func (s *MemStore) ResultsByElection(_ context.Context, electionID uint) ([]models.CachedResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := append([]models.CachedResult(nil), s.results[electionID]...)
	sort.Slice(rows, func(i, j int) bool { return rows[i].VoteCount > rows[j].VoteCount })
	return rows, nil
}
