package chain

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"sync"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Client is the capability set the coordinators get. Reads are side-effect
// free and may be retried; writes go through the serialized submit path.
type Client interface {
	Status(ctx context.Context) *NetworkStatus

	// Writes (serialized, nonce-safe).
	RegisterVoter(ctx context.Context, wallet common.Address, identityHash [32]byte, constituencyID int) (common.Hash, error)
	DeactivateVoter(ctx context.Context, wallet common.Address, reason string) (common.Hash, error)
	ReactivateVoter(ctx context.Context, wallet common.Address) (common.Hash, error)
	DeployElection(ctx context.Context, spec ElectionSpec) (*Deployment, error)
	CancelElection(ctx context.Context, ballot common.Address, reason string) (common.Hash, error)

	// Reads.
	ElectionInfo(ctx context.Context, ballot common.Address) (*ElectionInfo, error)
	BallotResults(ctx context.Context, ballot common.Address) ([]CandidateResult, error)
	VoterInfo(ctx context.Context, wallet common.Address) (*VoterInfo, error)
	IsVoterEligible(ctx context.Context, wallet common.Address) (bool, error)
	CommitStatus(ctx context.Context, ballot, voter common.Address) (*CommitStatus, error)
	VerifyReceipt(ctx context.Context, ballot, voter common.Address, receiptHash [32]byte) (bool, error)
	VerifyIntegrity(ctx context.Context, ballot common.Address) (*IntegrityReport, error)
	ElectionSummary(ctx context.Context, ballot common.Address) (*ElectionSummary, error)
	DidParticipate(ctx context.Context, ballot, voter common.Address) (bool, error)
	TotalVoters(ctx context.Context) (uint64, error)
}

// Config carries the RPC endpoint, signing key and contract addresses.
type Config struct {
	RPCURL          string
	PrivateKeyHex   string
	VoterRegistry   string
	ElectionFactory string
	VoteVerifier    string
	CallTimeout     time.Duration
	ReceiptWait     time.Duration
}

const (
	defaultCallTimeout = 10 * time.Second
	defaultReceiptWait = 90 * time.Second
)

// EVMClient talks to the ledger over JSON-RPC. All state-changing calls pass
// through one mutex so nonce allocation is strictly ordered; reads run in
// parallel.
type EVMClient struct {
	rpc     *ethclient.Client
	key     *ecdsa.PrivateKey
	account common.Address

	registry common.Address
	factory  common.Address
	verifier common.Address

	registryABI abi.ABI
	factoryABI  abi.ABI
	ballotABI   abi.ABI
	verifierABI abi.ABI

	writeMu sync.Mutex
	nonce   *nonceManager

	chainMu sync.Mutex
	chainID *big.Int

	callTimeout time.Duration
	receiptWait time.Duration
	log         *zap.Logger
}

// NewEVMClient dials the endpoint and prepares the contract handles. The
// connection is lazy for HTTP transports, so an unreachable node surfaces as
// ErrUnavailable on the first call rather than at startup.
func NewEVMClient(cfg Config, log *zap.Logger) (*EVMClient, error) {
	key, err := crypto.HexToECDSA(trimHexPrefix(cfg.PrivateKeyHex))
	if err != nil {
		return nil, errors.Wrap(err, "invalid signing key")
	}

	rpc, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		return nil, errors.Wrap(ErrUnavailable, err.Error())
	}

	c := &EVMClient{
		rpc:         rpc,
		key:         key,
		account:     crypto.PubkeyToAddress(key.PublicKey),
		registry:    common.HexToAddress(cfg.VoterRegistry),
		factory:     common.HexToAddress(cfg.ElectionFactory),
		verifier:    common.HexToAddress(cfg.VoteVerifier),
		registryABI: mustParseABI(voterRegistryABI),
		factoryABI:  mustParseABI(electionFactoryABI),
		ballotABI:   mustParseABI(ballotABI),
		verifierABI: mustParseABI(voteVerifierABI),
		callTimeout: cfg.CallTimeout,
		receiptWait: cfg.ReceiptWait,
		log:         log,
	}
	if c.callTimeout <= 0 {
		c.callTimeout = defaultCallTimeout
	}
	if c.receiptWait <= 0 {
		c.receiptWait = defaultReceiptWait
	}
	c.nonce = newNonceManager(func(ctx context.Context) (uint64, error) {
		return rpc.PendingNonceAt(ctx, c.account)
	})
	return c, nil
}

// Account returns the signing account's address.
func (c *EVMClient) Account() common.Address {
	return c.account
}

func (c *EVMClient) Status(ctx context.Context) *NetworkStatus {
	status := &NetworkStatus{
		VoterRegistry:   c.registry.Hex(),
		ElectionFactory: c.factory.Hex(),
		VoteVerifier:    c.verifier.Hex(),
	}
	callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	chainID, err := c.rpc.ChainID(callCtx)
	if err != nil {
		return status
	}
	block, err := c.rpc.BlockNumber(callCtx)
	if err != nil {
		return status
	}
	status.Connected = true
	status.ChainID = chainID.Uint64()
	status.BlockNumber = block
	return status
}

// ---- write path ----

func (c *EVMClient) RegisterVoter(ctx context.Context, wallet common.Address, identityHash [32]byte, constituencyID int) (common.Hash, error) {
	tx, err := c.submit(ctx, c.registry, c.registryABI, "registerVoter",
		wallet, identityHash, big.NewInt(int64(constituencyID)))
	if err != nil {
		return common.Hash{}, err
	}
	if _, err := c.waitMined(ctx, tx); err != nil {
		return common.Hash{}, err
	}
	return tx.Hash(), nil
}

func (c *EVMClient) DeactivateVoter(ctx context.Context, wallet common.Address, reason string) (common.Hash, error) {
	tx, err := c.submit(ctx, c.registry, c.registryABI, "deactivateVoter", wallet, reason)
	if err != nil {
		return common.Hash{}, err
	}
	return tx.Hash(), nil
}

func (c *EVMClient) ReactivateVoter(ctx context.Context, wallet common.Address) (common.Hash, error) {
	tx, err := c.submit(ctx, c.registry, c.registryABI, "reactivateVoter", wallet)
	if err != nil {
		return common.Hash{}, err
	}
	return tx.Hash(), nil
}

func (c *EVMClient) DeployElection(ctx context.Context, spec ElectionSpec) (*Deployment, error) {
	tx, err := c.submit(ctx, c.factory, c.factoryABI, "createElection",
		spec.Name,
		spec.Description,
		big.NewInt(spec.CommitDeadline.Unix()),
		big.NewInt(spec.RevealDeadline.Unix()),
		spec.CandidateNames,
		spec.CandidateParties,
		big.NewInt(int64(spec.ConstituencyID)),
		spec.ElectionType,
	)
	if err != nil {
		return nil, err
	}

	// The ballot address only exists once the deployment is mined.
	receipt, err := c.waitMined(ctx, tx)
	if err != nil {
		return nil, err
	}

	createdTopic := c.factoryABI.Events["ElectionCreated"].ID
	for _, lg := range receipt.Logs {
		if lg.Address != c.factory || len(lg.Topics) == 0 || lg.Topics[0] != createdTopic {
			continue
		}
		vals, err := c.factoryABI.Unpack("ElectionCreated", lg.Data)
		if err != nil {
			return nil, errors.Wrap(err, "decode ElectionCreated event")
		}
		return &Deployment{
			OnChainID:     toUint64(vals[0].(*big.Int)),
			BallotAddress: vals[1].(common.Address),
			TxHash:        tx.Hash(),
		}, nil
	}
	return nil, errors.Wrap(ErrTxRejected, "deployment mined but ElectionCreated event missing")
}

func (c *EVMClient) CancelElection(ctx context.Context, ballot common.Address, reason string) (common.Hash, error) {
	tx, err := c.submit(ctx, ballot, c.ballotABI, "cancelElection", reason)
	if err != nil {
		return common.Hash{}, err
	}
	if _, err := c.waitMined(ctx, tx); err != nil {
		return common.Hash{}, err
	}
	return tx.Hash(), nil
}

// submit builds, signs and broadcasts one transaction. It holds the write
// mutex across nonce reservation and broadcast so two concurrent submits
// never reuse a slot. A nonce-conflict rejection is retried once with a
// re-synced nonce; any other rejection rolls the counter back.
func (c *EVMClient) submit(ctx context.Context, to common.Address, contract abi.ABI, method string, args ...interface{}) (*types.Transaction, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	input, err := contract.Pack(method, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "pack %s", method)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	chainID, err := c.getChainID(callCtx)
	if err != nil {
		return nil, err
	}
	gasPrice, err := c.rpc.SuggestGasPrice(callCtx)
	if err != nil {
		return nil, classifyCall(err)
	}

	nonce, err := c.nonce.reserve(callCtx)
	if err != nil {
		return nil, classifyCall(err)
	}

	gas, err := c.rpc.EstimateGas(callCtx, ethereum.CallMsg{
		From: c.account,
		To:   &to,
		Data: input,
	})
	if err != nil {
		// Estimation failures are reverts reported before broadcast.
		c.nonce.rollback(nonce)
		return nil, classifySubmit(err)
	}

	signed, err := c.signTx(chainID, nonce, to, gas, gasPrice, input)
	if err != nil {
		c.nonce.rollback(nonce)
		return nil, err
	}

	sendErr := c.rpc.SendTransaction(callCtx, signed)
	if isNonceConflict(sendErr) {
		c.log.Warn("nonce conflict, re-syncing",
			zap.String("method", method), zap.Uint64("nonce", nonce), zap.Error(sendErr))
		fresh, err := c.nonce.resync(callCtx)
		if err != nil {
			return nil, classifyCall(err)
		}
		signed, err = c.signTx(chainID, fresh, to, gas, gasPrice, input)
		if err != nil {
			c.nonce.rollback(fresh)
			return nil, err
		}
		nonce = fresh
		sendErr = c.rpc.SendTransaction(callCtx, signed)
	}
	if sendErr != nil {
		c.nonce.rollback(nonce)
		return nil, classifySubmit(sendErr)
	}

	c.log.Info("transaction broadcast",
		zap.String("method", method),
		zap.String("tx", signed.Hash().Hex()),
		zap.Uint64("nonce", nonce))
	return signed, nil
}

func (c *EVMClient) signTx(chainID *big.Int, nonce uint64, to common.Address, gas uint64, gasPrice *big.Int, input []byte) (*types.Transaction, error) {
	// Headroom over the estimate; the node refunds unused gas.
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Gas:      gas + gas/5,
		GasPrice: gasPrice,
		Data:     input,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), c.key)
	if err != nil {
		return nil, errors.Wrap(err, "sign transaction")
	}
	return signed, nil
}

// waitMined blocks until the transaction has a receipt or the wait window
// elapses. A timeout is ErrTxTimeout, not failure: the transaction may still
// land, so callers must stay idempotent.
func (c *EVMClient) waitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	waitCtx, cancel := context.WithTimeout(ctx, c.receiptWait)
	defer cancel()

	receipt, err := bind.WaitMined(waitCtx, c.rpc, tx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, errors.Wrapf(ErrTxTimeout, "tx %s", tx.Hash().Hex())
		}
		return nil, classifyCall(err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, errors.Wrapf(ErrTxRejected, "tx %s reverted", tx.Hash().Hex())
	}
	return receipt, nil
}

func (c *EVMClient) getChainID(ctx context.Context) (*big.Int, error) {
	c.chainMu.Lock()
	defer c.chainMu.Unlock()
	if c.chainID != nil {
		return c.chainID, nil
	}
	id, err := c.rpc.ChainID(ctx)
	if err != nil {
		return nil, classifyCall(err)
	}
	c.chainID = id
	return id, nil
}

// ---- read path ----

func (c *EVMClient) ElectionInfo(ctx context.Context, ballot common.Address) (*ElectionInfo, error) {
	vals, err := c.call(ctx, ballot, c.ballotABI, "getElectionInfo")
	if err != nil {
		return nil, err
	}
	return &ElectionInfo{
		TotalCommits: toUint64(vals[0].(*big.Int)),
		TotalReveals: toUint64(vals[1].(*big.Int)),
		Phase:        phaseName(vals[2].(uint8)),
		IsFinalized:  vals[3].(bool),
		IsCancelled:  vals[4].(bool),
	}, nil
}

func (c *EVMClient) BallotResults(ctx context.Context, ballot common.Address) ([]CandidateResult, error) {
	vals, err := c.call(ctx, ballot, c.ballotABI, "getResults")
	if err != nil {
		return nil, err
	}
	ids := vals[0].([]*big.Int)
	names := vals[1].([]string)
	parties := vals[2].([]string)
	counts := vals[3].([]*big.Int)

	results := make([]CandidateResult, 0, len(ids))
	for i := range ids {
		results = append(results, CandidateResult{
			ID:        toUint64(ids[i]),
			Name:      names[i],
			Party:     parties[i],
			VoteCount: toUint64(counts[i]),
		})
	}
	return results, nil
}

func (c *EVMClient) VoterInfo(ctx context.Context, wallet common.Address) (*VoterInfo, error) {
	vals, err := c.call(ctx, c.registry, c.registryABI, "getVoter", wallet)
	if err != nil {
		return nil, err
	}
	return &VoterInfo{
		Registered:     vals[0].(bool),
		ConstituencyID: toUint64(vals[1].(*big.Int)),
		Active:         vals[2].(bool),
	}, nil
}

func (c *EVMClient) IsVoterEligible(ctx context.Context, wallet common.Address) (bool, error) {
	vals, err := c.call(ctx, c.registry, c.registryABI, "isVoterEligible", wallet)
	if err != nil {
		return false, err
	}
	return vals[0].(bool), nil
}

func (c *EVMClient) CommitStatus(ctx context.Context, ballot, voter common.Address) (*CommitStatus, error) {
	vals, err := c.call(ctx, ballot, c.ballotABI, "getVoterStatus", voter)
	if err != nil {
		return nil, err
	}
	return &CommitStatus{
		HasCommitted: vals[0].(bool),
		HasRevealed:  vals[1].(bool),
	}, nil
}

func (c *EVMClient) VerifyReceipt(ctx context.Context, ballot, voter common.Address, receiptHash [32]byte) (bool, error) {
	vals, err := c.call(ctx, ballot, c.ballotABI, "verifyReceipt", voter, receiptHash)
	if err != nil {
		return false, err
	}
	return vals[0].(bool), nil
}

func (c *EVMClient) VerifyIntegrity(ctx context.Context, ballot common.Address) (*IntegrityReport, error) {
	vals, err := c.call(ctx, c.verifier, c.verifierABI, "verifyElectionIntegrity", ballot)
	if err != nil {
		return nil, err
	}
	return &IntegrityReport{
		Consistent:   vals[0].(bool),
		TotalCommits: toUint64(vals[1].(*big.Int)),
		TotalReveals: toUint64(vals[2].(*big.Int)),
	}, nil
}

func (c *EVMClient) ElectionSummary(ctx context.Context, ballot common.Address) (*ElectionSummary, error) {
	vals, err := c.call(ctx, c.verifier, c.verifierABI, "getElectionSummary", ballot)
	if err != nil {
		return nil, err
	}
	return &ElectionSummary{
		Name:           vals[0].(string),
		CandidateCount: toUint64(vals[1].(*big.Int)),
		TotalCommits:   toUint64(vals[2].(*big.Int)),
		TotalReveals:   toUint64(vals[3].(*big.Int)),
		Finalized:      vals[4].(bool),
	}, nil
}

func (c *EVMClient) DidParticipate(ctx context.Context, ballot, voter common.Address) (bool, error) {
	vals, err := c.call(ctx, c.verifier, c.verifierABI, "didVoterParticipate", ballot, voter)
	if err != nil {
		return false, err
	}
	return vals[0].(bool), nil
}

func (c *EVMClient) TotalVoters(ctx context.Context) (uint64, error) {
	vals, err := c.call(ctx, c.registry, c.registryABI, "getTotalVoters")
	if err != nil {
		return 0, err
	}
	return toUint64(vals[0].(*big.Int)), nil
}

func (c *EVMClient) call(ctx context.Context, to common.Address, contract abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	input, err := contract.Pack(method, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "pack %s", method)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	output, err := c.rpc.CallContract(callCtx, ethereum.CallMsg{To: &to, Data: input}, nil)
	if err != nil {
		return nil, classifyCall(errors.Wrapf(err, "call %s", method))
	}
	vals, err := contract.Unpack(method, output)
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", method)
	}
	return vals, nil
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}
