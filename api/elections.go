package api

import (
	"net/http"

	"election-backend/models"
	"election-backend/service"
)

func (s *Server) handleCreateElection(w http.ResponseWriter, r *http.Request) {
	var input service.CreateElectionInput
	if !s.decode(w, r, &input) {
		return
	}
	result, err := s.elections.CreateElection(r.Context(), input)
	if err != nil {
		s.writeError(w, err)
		return
	}
	code := http.StatusCreated
	if !result.Deployed {
		// Local record exists but the ballot contract does not yet.
		code = http.StatusAccepted
	}
	s.writeJSON(w, code, envelope{
		"ok":           true,
		"election":     result.Election,
		"deployed":     result.Deployed,
		"deploy_error": result.DeployErr,
	})
}

func (s *Server) handleListElections(w http.ResponseWriter, r *http.Request) {
	status := models.ElectionStatus(r.URL.Query().Get("status"))
	elections, err := s.elections.ListElections(r.Context(), status)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"ok": true, "elections": elections, "count": len(elections)})
}

func (s *Server) handleGetElection(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	view, err := s.elections.GetElection(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"ok": true, "election": view})
}

func (s *Server) handleGetResults(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	view, err := s.elections.Results(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"ok": true, "results": view})
}

func (s *Server) handleSyncResults(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	rows, err := s.elections.SyncResults(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"ok": true, "results": rows, "count": len(rows)})
}

func (s *Server) handleCancelElection(w http.ResponseWriter, r *http.Request) {
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
	if err := s.elections.CancelElection(r.Context(), id, body.Reason); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"ok": true, "message": "election cancelled"})
}

func (s *Server) handleRetryDeployment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	election, err := s.elections.RetryDeployment(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"ok": true, "election": election})
}

func (s *Server) handleElectionAnalytics(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	analytics, err := s.elections.Analytics(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{"ok": true, "analytics": analytics})
}
