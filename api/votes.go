package api

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"election-backend/chain"
)

func (s *Server) handleChainStatus(w http.ResponseWriter, r *http.Request) {
	status := s.chain.Status(r.Context())
	s.writeJSON(w, http.StatusOK, envelope{"ok": true, "status": status})
}

func (s *Server) handleRecordCommit(w http.ResponseWriter, r *http.Request) {
	var body struct {
		BallotAddress string `json:"ballot_address"`
		CommitHash    string `json:"commit_hash"`
		VoterAddress  string `json:"voter_address"`
		TxHash        string `json:"tx_hash"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	receipt, err := s.votes.RecordCommit(r.Context(), body.BallotAddress, body.CommitHash, body.VoterAddress, body.TxHash)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, envelope{"ok": true, "receipt": receipt})
}

func (s *Server) handleRecordReveal(w http.ResponseWriter, r *http.Request) {
	var body struct {
		BallotAddress string `json:"ballot_address"`
		VoterAddress  string `json:"voter_address"`
		TxHash        string `json:"tx_hash"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	receipt, err := s.votes.RecordReveal(r.Context(), body.BallotAddress, body.VoterAddress, body.TxHash)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"ok": true, "receipt": receipt})
}

func (s *Server) handleVerifyReceipt(w http.ResponseWriter, r *http.Request) {
	var body struct {
		BallotAddress string `json:"ballot_address"`
		VoterAddress  string `json:"voter_address"`
		ReceiptHash   string `json:"receipt_hash"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	verification, err := s.votes.VerifyReceipt(r.Context(), body.BallotAddress, body.VoterAddress, body.ReceiptHash)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"ok": true, "verification": verification})
}

func (s *Server) handleVoteStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.votes.VoteStatus(r.Context(), r.PathValue("ballot"), r.PathValue("voter"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"ok": true, "status": status})
}

func (s *Server) handleParticipated(w http.ResponseWriter, r *http.Request) {
	participated, err := s.votes.Participated(r.Context(), r.PathValue("ballot"), r.PathValue("voter"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"ok": true, "participated": participated})
}

func (s *Server) handleIntegrity(w http.ResponseWriter, r *http.Request) {
	report, err := s.chain.VerifyIntegrity(r.Context(), common.HexToAddress(r.PathValue("ballot")))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"ok": true, "integrity": report})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.chain.ElectionSummary(r.Context(), common.HexToAddress(r.PathValue("ballot")))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"ok": true, "summary": summary})
}

// handleComputeCommitHash is a convenience for clients that cannot run the
// solidity-packed keccak locally. The secret travels over the wire here, so
// the endpoint is meant for testing against development chains only.
func (s *Server) handleComputeCommitHash(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CandidateID uint64 `json:"candidate_id"`
		Secret      string `json:"secret"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	secret, err := chain.ParseHash32(body.Secret)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, envelope{"ok": false, "error": err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{
		"ok":          true,
		"commit_hash": chain.ComputeCommitHash(body.CandidateID, secret),
	})
}
