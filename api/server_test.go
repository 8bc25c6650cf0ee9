package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"election-backend/chain"
	"election-backend/chain/chaintest"
	"election-backend/service"
	"election-backend/storage"
)

func testServer(t *testing.T, client chain.Client) *httptest.Server {
	t.Helper()
	store := storage.NewMemStore()
	log := zap.NewNop()
	recon := service.NewReconciler(log)
	t.Cleanup(recon.Close)

	server := NewServer(
		service.NewElectionService(store, client, log),
		service.NewVoterService(store, client, recon, log),
		service.NewVoteTracker(store, client, log),
		client, log,
	)
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func electionBody() map[string]interface{} {
	return map[string]interface{}{
		"name":            "Parliament 2026",
		"commit_deadline": time.Now().Add(24 * time.Hour).Format(time.RFC3339),
		"reveal_deadline": time.Now().Add(48 * time.Hour).Format(time.RFC3339),
		"candidates": []map[string]string{
			{"name": "Alice", "party": "Red"},
			{"name": "Bob", "party": "Blue"},
		},
	}
}

func TestCreateElectionEndpoint(t *testing.T) {
	ts := testServer(t, &chaintest.StubClient{})

	resp := postJSON(t, ts.URL+"/api/elections", electionBody())
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, true, body["deployed"])

	resp, err := http.Get(ts.URL + "/api/elections/1")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body = decodeBody(t, resp)
	election := body["election"].(map[string]interface{})
	assert.Equal(t, "active", election["status"])
}

func TestCreateElectionValidationStatus(t *testing.T) {
	ts := testServer(t, &chaintest.StubClient{})

	body := electionBody()
	body["candidates"] = []map[string]string{{"name": "Alice"}}
	resp := postJSON(t, ts.URL+"/api/elections", body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	out := decodeBody(t, resp)
	assert.Equal(t, false, out["ok"])
}

func TestCreateElectionDeployFailureIsAccepted(t *testing.T) {
	stub := &chaintest.StubClient{
		DeployElectionFn: func(context.Context, chain.ElectionSpec) (*chain.Deployment, error) {
			return nil, chain.ErrUnavailable
		},
	}
	ts := testServer(t, stub)

	resp := postJSON(t, ts.URL+"/api/elections", electionBody())
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, false, body["deployed"])
	assert.NotEmpty(t, body["deploy_error"])
}

func TestGetElectionNotFound(t *testing.T) {
	ts := testServer(t, &chaintest.StubClient{})

	resp, err := http.Get(ts.URL + "/api/elections/42")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Get(ts.URL + "/api/elections/not-a-number")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestChainUnavailableMapsTo503(t *testing.T) {
	stub := &chaintest.StubClient{
		IsVoterEligibleFn: func(context.Context, common.Address) (bool, error) {
			return false, chain.ErrUnavailable
		},
	}
	ts := testServer(t, stub)

	resp, err := http.Get(ts.URL + "/api/voters/wallet/0x8ba1f109551bD432803012645Ac136ddd64DBA72/eligibility")
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	resp.Body.Close()
}

func TestRegisterVoterEndpoint(t *testing.T) {
	ts := testServer(t, &chaintest.StubClient{})

	input := map[string]interface{}{
		"name":            "Alice",
		"raw_voter_id":    "LT1234567890",
		"constituency_id": 3,
		"wallet_address":  "0x8ba1f109551bD432803012645Ac136ddd64DBA72",
	}
	resp := postJSON(t, ts.URL+"/api/voters", input)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, true, body["registered_onchain"])

	// Duplicate wallet conflicts.
	resp = postJSON(t, ts.URL+"/api/voters", input)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()
}

func TestCommitRevealEndpoints(t *testing.T) {
	ts := testServer(t, &chaintest.StubClient{})

	resp := postJSON(t, ts.URL+"/api/elections", electionBody())
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	body := decodeBody(t, resp)
	ballot := body["election"].(map[string]interface{})["ballot_address"].(string)

	commit := map[string]string{
		"ballot_address": ballot,
		"commit_hash":    "0xc0ffee",
		"voter_address":  "0x8ba1f109551bD432803012645Ac136ddd64DBA72",
		"tx_hash":        "0x11",
	}
	resp = postJSON(t, ts.URL+"/api/chain/vote/commit", commit)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	// Second commit for the same voter conflicts.
	resp = postJSON(t, ts.URL+"/api/chain/vote/commit", commit)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	reveal := map[string]string{
		"ballot_address": ballot,
		"voter_address":  commit["voter_address"],
		"tx_hash":        "0x22",
	}
	resp = postJSON(t, ts.URL+"/api/chain/vote/reveal", reveal)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	out := decodeBody(t, resp)
	receipt := out["receipt"].(map[string]interface{})
	assert.Equal(t, "revealed", receipt["phase"])

	// Reveal for a voter who never committed.
	reveal["voter_address"] = "0x281055afc982d96fab65b3a49cac8b878184cb16"
	resp = postJSON(t, ts.URL+"/api/chain/vote/reveal", reveal)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestChainStatusEndpoint(t *testing.T) {
	stub := &chaintest.StubClient{
		StatusFn: func(context.Context) *chain.NetworkStatus {
			return &chain.NetworkStatus{Connected: true, ChainID: 1337, BlockNumber: 99}
		},
	}
	ts := testServer(t, stub)

	resp, err := http.Get(ts.URL + "/api/chain/status")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	status := body["status"].(map[string]interface{})
	assert.Equal(t, float64(1337), status["chain_id"])
}

func TestComputeCommitHashEndpoint(t *testing.T) {
	ts := testServer(t, &chaintest.StubClient{})

	secret := "0x" + fmt.Sprintf("%064x", 0xab)
	resp := postJSON(t, ts.URL+"/api/chain/compute-commit-hash", map[string]interface{}{
		"candidate_id": 1,
		"secret":       secret,
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	hash := body["commit_hash"].(string)
	assert.Len(t, hash, 66)

	parsed, err := chain.ParseHash32(secret)
	require.NoError(t, err)
	assert.Equal(t, chain.ComputeCommitHash(1, parsed), hash)

	resp = postJSON(t, ts.URL+"/api/chain/compute-commit-hash", map[string]interface{}{
		"candidate_id": 1,
		"secret":       "0x1234",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestCancelElectionEndpoint(t *testing.T) {
	ts := testServer(t, &chaintest.StubClient{})

	resp := postJSON(t, ts.URL+"/api/elections", electionBody())
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, ts.URL+"/api/elections/1/cancel", map[string]string{"reason": "fraud"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err := http.Get(ts.URL + "/api/elections/1")
	require.NoError(t, err)
	body := decodeBody(t, resp)
	election := body["election"].(map[string]interface{})
	assert.Equal(t, "cancelled", election["status"])
}
