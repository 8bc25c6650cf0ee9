package chain

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// ABI fragments for the deployed contracts. Only the entry points this
// backend consumes are declared.

const voterRegistryABI = `[
	{"type":"function","name":"registerVoter","stateMutability":"nonpayable","inputs":[{"name":"wallet","type":"address"},{"name":"identityHash","type":"bytes32"},{"name":"constituencyId","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"deactivateVoter","stateMutability":"nonpayable","inputs":[{"name":"wallet","type":"address"},{"name":"reason","type":"string"}],"outputs":[]},
	{"type":"function","name":"reactivateVoter","stateMutability":"nonpayable","inputs":[{"name":"wallet","type":"address"}],"outputs":[]},
	{"type":"function","name":"isVoterEligible","stateMutability":"view","inputs":[{"name":"wallet","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"getVoter","stateMutability":"view","inputs":[{"name":"wallet","type":"address"}],"outputs":[{"name":"registered","type":"bool"},{"name":"constituencyId","type":"uint256"},{"name":"active","type":"bool"}]},
	{"type":"function","name":"getTotalVoters","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]}
]`

const electionFactoryABI = `[
	{"type":"function","name":"createElection","stateMutability":"nonpayable","inputs":[{"name":"name","type":"string"},{"name":"description","type":"string"},{"name":"commitDeadline","type":"uint256"},{"name":"revealDeadline","type":"uint256"},{"name":"candidateNames","type":"string[]"},{"name":"candidateParties","type":"string[]"},{"name":"constituencyId","type":"uint256"},{"name":"electionType","type":"uint8"}],"outputs":[]},
	{"type":"event","name":"ElectionCreated","anonymous":false,"inputs":[{"name":"electionId","type":"uint256","indexed":false},{"name":"ballot","type":"address","indexed":false}]}
]`

const ballotABI = `[
	{"type":"function","name":"cancelElection","stateMutability":"nonpayable","inputs":[{"name":"reason","type":"string"}],"outputs":[]},
	{"type":"function","name":"getElectionInfo","stateMutability":"view","inputs":[],"outputs":[{"name":"totalCommits","type":"uint256"},{"name":"totalReveals","type":"uint256"},{"name":"phase","type":"uint8"},{"name":"isFinalized","type":"bool"},{"name":"isCancelled","type":"bool"}]},
	{"type":"function","name":"getResults","stateMutability":"view","inputs":[],"outputs":[{"name":"ids","type":"uint256[]"},{"name":"names","type":"string[]"},{"name":"parties","type":"string[]"},{"name":"voteCounts","type":"uint256[]"}]},
	{"type":"function","name":"getVoterStatus","stateMutability":"view","inputs":[{"name":"voter","type":"address"}],"outputs":[{"name":"committed","type":"bool"},{"name":"revealed","type":"bool"}]},
	{"type":"function","name":"verifyReceipt","stateMutability":"view","inputs":[{"name":"voter","type":"address"},{"name":"receiptHash","type":"bytes32"}],"outputs":[{"name":"","type":"bool"}]}
]`

const voteVerifierABI = `[
	{"type":"function","name":"verifyElectionIntegrity","stateMutability":"view","inputs":[{"name":"ballot","type":"address"}],"outputs":[{"name":"consistent","type":"bool"},{"name":"totalCommits","type":"uint256"},{"name":"totalReveals","type":"uint256"}]},
	{"type":"function","name":"getElectionSummary","stateMutability":"view","inputs":[{"name":"ballot","type":"address"}],"outputs":[{"name":"name","type":"string"},{"name":"candidateCount","type":"uint256"},{"name":"totalCommits","type":"uint256"},{"name":"totalReveals","type":"uint256"},{"name":"finalized","type":"bool"}]},
	{"type":"function","name":"didVoterParticipate","stateMutability":"view","inputs":[{"name":"ballot","type":"address"},{"name":"voter","type":"address"}],"outputs":[{"name":"","type":"bool"}]}
]`

func mustParseABI(src string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(src))
	if err != nil {
		panic(err)
	}
	return parsed
}
