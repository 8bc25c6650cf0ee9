package api

import (
	"net/http"
	"strconv"

	"election-backend/service"
)

func (s *Server) handleRegisterVoter(w http.ResponseWriter, r *http.Request) {
	var input service.RegisterVoterInput
	if !s.decode(w, r, &input) {
		return
	}
	result, err := s.voters.RegisterVoter(r.Context(), input)
	if err != nil {
		s.writeError(w, err)
		return
	}
	code := http.StatusCreated
	if !result.RegisteredOnChain {
		code = http.StatusAccepted
	}
	s.writeJSON(w, code, envelope{
		"ok":                 true,
		"voter":              result.Voter,
		"registered_onchain": result.RegisteredOnChain,
		"tx_hash":            result.TxHash,
		"chain_error":        result.ChainErr,
	})
}

func (s *Server) handleListVoters(w http.ResponseWriter, r *http.Request) {
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	voters, total, err := s.voters.ListVoters(r.Context(), offset, limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"ok": true, "voters": voters, "total": total})
}

func (s *Server) handleVoterStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.voters.Stats(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"ok": true, "stats": stats})
}

func (s *Server) handleVoterByWallet(w http.ResponseWriter, r *http.Request) {
	view, err := s.voters.VoterByWallet(r.Context(), r.PathValue("wallet"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"ok": true, "voter": view})
}

func (s *Server) handleEligibility(w http.ResponseWriter, r *http.Request) {
	status, err := s.voters.CheckEligibility(r.Context(), r.PathValue("wallet"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"ok": true, "eligibility": status})
}

func (s *Server) handleVoteHistory(w http.ResponseWriter, r *http.Request) {
	receipts, err := s.voters.VoteHistory(r.Context(), r.PathValue("wallet"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"ok": true, "receipts": receipts, "count": len(receipts)})
}

func (s *Server) handleDeactivateVoter(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var body struct {
		Reason string `json:"reason"`
	}
	if r.ContentLength > 0 && !s.decode(w, r, &body) {
		return
	}
	if err := s.voters.Deactivate(r.Context(), id, body.Reason); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"ok": true, "message": "voter deactivated, ledger update queued"})
}

func (s *Server) handleReactivateVoter(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.voters.Reactivate(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"ok": true, "message": "voter reactivated, ledger update queued"})
}

func (s *Server) handleRetryRegistration(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	voter, err := s.voters.RetryOnChainRegistration(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"ok": true, "voter": voter})
}
