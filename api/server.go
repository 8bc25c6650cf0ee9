package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"election-backend/chain"
	"election-backend/service"
)

// Server wires the coordinators to HTTP. Transport only: every decision
// lives in the service layer, every ledger call behind chain.Client.
type Server struct {
	elections *service.ElectionService
	voters    *service.VoterService
	votes     *service.VoteTracker
	chain     chain.Client
	log       *zap.Logger
}

func NewServer(elections *service.ElectionService, voters *service.VoterService, votes *service.VoteTracker, client chain.Client, log *zap.Logger) *Server {
	return &Server{
		elections: elections,
		voters:    voters,
		votes:     votes,
		chain:     client,
		log:       log,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Elections
	mux.HandleFunc("POST /api/elections", s.handleCreateElection)
	mux.HandleFunc("GET /api/elections", s.handleListElections)
	mux.HandleFunc("GET /api/elections/{id}", s.handleGetElection)
	mux.HandleFunc("GET /api/elections/{id}/results", s.handleGetResults)
	mux.HandleFunc("POST /api/elections/{id}/sync-results", s.handleSyncResults)
	mux.HandleFunc("POST /api/elections/{id}/cancel", s.handleCancelElection)
	mux.HandleFunc("POST /api/elections/{id}/deploy", s.handleRetryDeployment)
	mux.HandleFunc("GET /api/elections/{id}/analytics", s.handleElectionAnalytics)

	// Voters
	mux.HandleFunc("POST /api/voters", s.handleRegisterVoter)
	mux.HandleFunc("GET /api/voters", s.handleListVoters)
	mux.HandleFunc("GET /api/voters/stats", s.handleVoterStats)
	mux.HandleFunc("GET /api/voters/wallet/{wallet}", s.handleVoterByWallet)
	mux.HandleFunc("GET /api/voters/wallet/{wallet}/eligibility", s.handleEligibility)
	mux.HandleFunc("GET /api/voters/wallet/{wallet}/votes", s.handleVoteHistory)
	mux.HandleFunc("POST /api/voters/{id}/deactivate", s.handleDeactivateVoter)
	mux.HandleFunc("POST /api/voters/{id}/reactivate", s.handleReactivateVoter)
	mux.HandleFunc("POST /api/voters/{id}/register-onchain", s.handleRetryRegistration)

	// Chain
	mux.HandleFunc("GET /api/chain/status", s.handleChainStatus)
	mux.HandleFunc("POST /api/chain/vote/commit", s.handleRecordCommit)
	mux.HandleFunc("POST /api/chain/vote/reveal", s.handleRecordReveal)
	mux.HandleFunc("POST /api/chain/vote/verify", s.handleVerifyReceipt)
	mux.HandleFunc("GET /api/chain/vote/status/{ballot}/{voter}", s.handleVoteStatus)
	mux.HandleFunc("GET /api/chain/vote/participated/{ballot}/{voter}", s.handleParticipated)
	mux.HandleFunc("GET /api/chain/election/{ballot}/integrity", s.handleIntegrity)
	mux.HandleFunc("GET /api/chain/election/{ballot}/summary", s.handleSummary)
	mux.HandleFunc("POST /api/chain/compute-commit-hash", s.handleComputeCommitHash)

	return mux
}

type envelope map[string]interface{}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrValidation):
		code = http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, service.ErrDuplicateReceipt),
		errors.Is(err, service.ErrAlreadyRegistered),
		errors.Is(err, service.ErrAlreadyFinalized):
		code = http.StatusConflict
	case errors.Is(err, chain.ErrUnavailable):
		code = http.StatusServiceUnavailable
	case errors.Is(err, chain.ErrTxTimeout):
		code = http.StatusGatewayTimeout
	case errors.Is(err, chain.ErrTxRejected):
		code = http.StatusBadGateway
	}
	if code == http.StatusInternalServerError {
		s.log.Error("request failed", zap.Error(err))
	}
	s.writeJSON(w, code, envelope{"ok": false, "error": err.Error()})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeJSON(w, http.StatusBadRequest, envelope{"ok": false, "error": "invalid request body"})
		return false
	}
	return true
}

func pathID(r *http.Request) (uint, error) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 32)
	if err != nil {
		return 0, errors.Wrap(service.ErrValidation, "invalid id")
	}
	return uint(id), nil
}
