// Package bridge is the off-ledger client for the stakepot escrow chain: it
// signs and submits operator transactions over CometBFT RPC, waits for
// their results with bounded polling, and exposes typed reads. It hides
// submission/confirmation latency from the orchestrator but never hides a
// rejection behind a generic failure.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"cosmossdk.io/log"
	"cosmossdk.io/math"
	abci "github.com/cometbft/cometbft/abci/types"
	cmtbytes "github.com/cometbft/cometbft/libs/bytes"
	rpchttp "github.com/cometbft/cometbft/rpc/client/http"
	ctypes "github.com/cometbft/cometbft/rpc/core/types"
	cmttypes "github.com/cometbft/cometbft/types"

	"stakepot/internal/codec"
	"stakepot/internal/reward"
	"stakepot/internal/state"
)

// rpcClient is the slice of the CometBFT RPC surface the bridge uses.
// Narrow on purpose: tests substitute a fake.
type rpcClient interface {
	BroadcastTxSync(ctx context.Context, tx cmttypes.Tx) (*ctypes.ResultBroadcastTx, error)
	Tx(ctx context.Context, hash []byte, prove bool) (*ctypes.ResultTx, error)
	ABCIQuery(ctx context.Context, path string, data cmtbytes.HexBytes) (*ctypes.ResultABCIQuery, error)
}

type Client struct {
	cfg    Config
	rpc    rpcClient
	logger log.Logger

	nonceMu   sync.Mutex
	lastNonce uint64
}

// TxReceipt identifies a committed transaction.
type TxReceipt struct {
	Hash   string
	Height int64
}

// SettlementReceipt pairs the tx reference with the economics that were
// computed for it, for orchestrator observability.
type SettlementReceipt struct {
	TxReceipt
	Split reward.Split
}

func New(cfg Config, logger log.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rpc, err := rpchttp.New(cfg.RPCEndpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", ErrNetworkUnavailable, cfg.RPCEndpoint, err)
	}
	return &Client{
		cfg:    cfg,
		rpc:    rpc,
		logger: logger.With("module", "bridge", "chainId", cfg.ChainID),
	}, nil
}

// ---- Mutating calls ----

// CreateGame submits a game creation staking the operator's own deposit and
// returns the ledger-assigned id, which is only observable in the
// GameCreated event of the committed tx.
func (c *Client) CreateGame(ctx context.Context, stakeAmount math.Int, minPlayers, maxPlayers uint8) (uint64, *TxReceipt, error) {
	rtx, err := c.submitTx(ctx, "escrow/create_game", codec.CreateGameTx{
		Creator:     c.cfg.Operator,
		StakeAmount: stakeAmount,
		MinPlayers:  minPlayers,
		MaxPlayers:  maxPlayers,
		Deposit:     stakeAmount,
	})
	if err != nil {
		return 0, nil, err
	}
	raw, ok := findEventAttr(rtx.TxResult.Events, "GameCreated", "gameId")
	if !ok {
		return 0, nil, fmt.Errorf("%w: committed tx %X carries no GameCreated event", ErrResultNotAvailable, rtx.Hash)
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, nil, fmt.Errorf("parse gameId %q: %w", raw, err)
	}
	return id, receipt(rtx), nil
}

func (c *Client) JoinGame(ctx context.Context, gameID uint64, deposit math.Int) (*TxReceipt, error) {
	rtx, err := c.submitTx(ctx, "escrow/join_game", codec.JoinGameTx{
		Player:  c.cfg.Operator,
		GameID:  gameID,
		Deposit: deposit,
	})
	if err != nil {
		return nil, err
	}
	return receipt(rtx), nil
}

func (c *Client) StartGame(ctx context.Context, gameID uint64) (*TxReceipt, error) {
	rtx, err := c.submitTx(ctx, "escrow/start_game", codec.StartGameTx{
		Caller: c.cfg.Operator,
		GameID: gameID,
	})
	if err != nil {
		return nil, err
	}
	return receipt(rtx), nil
}

// SubmitSettlement reports a finished game's winners to the ledger.
//
// The game is re-read first so a doomed call fails fast with a typed error
// instead of paying submission cost, and so an already-settled game is
// never resubmitted. The submission itself is made exactly once; the
// ledger's own status check is the backstop against double settlement.
func (c *Client) SubmitSettlement(ctx context.Context, gameID uint64, winners []string) (*SettlementReceipt, error) {
	g, err := c.Game(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if g.Status != state.StatusInProgress {
		return nil, &StateMismatchError{GameID: gameID, Expected: state.StatusInProgress, Actual: g.Status}
	}

	houseCfg, err := c.HouseConfig(ctx)
	if err != nil {
		return nil, err
	}
	split, err := reward.Compute(g.TotalPool, len(winners), houseCfg.HouseCutBps)
	if err != nil {
		return nil, err
	}

	rtx, err := c.submitTx(ctx, "escrow/settle_game", codec.SettleGameTx{
		Caller:  c.cfg.Operator,
		GameID:  gameID,
		Winners: winners,
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("settled game",
		"gameId", gameID,
		"winners", len(winners),
		"houseFee", split.HouseFee.String(),
		"rewardPerWinner", split.RewardPerWinner.String(),
		"hash", receipt(rtx).Hash,
	)
	return &SettlementReceipt{TxReceipt: *receipt(rtx), Split: split}, nil
}

func (c *Client) Withdraw(ctx context.Context) (*TxReceipt, error) {
	rtx, err := c.submitTx(ctx, "escrow/withdraw", codec.WithdrawTx{Account: c.cfg.Operator})
	if err != nil {
		return nil, err
	}
	return receipt(rtx), nil
}

func (c *Client) EmergencyRefund(ctx context.Context, gameID uint64) (*TxReceipt, error) {
	rtx, err := c.submitTx(ctx, "escrow/emergency_refund", codec.EmergencyRefundTx{
		Caller: c.cfg.Operator,
		GameID: gameID,
	})
	if err != nil {
		return nil, err
	}
	return receipt(rtx), nil
}

// ---- Reads ----

func (c *Client) Game(ctx context.Context, gameID uint64) (*state.Game, error) {
	b, err := c.abciQuery(ctx, fmt.Sprintf("/game/%d", gameID))
	if err != nil {
		return nil, err
	}
	var g state.Game
	if err := json.Unmarshal(b, &g); err != nil {
		return nil, fmt.Errorf("decode game %d: %w", gameID, err)
	}
	return &g, nil
}

func (c *Client) Players(ctx context.Context, gameID uint64) ([]string, error) {
	b, err := c.abciQuery(ctx, fmt.Sprintf("/players/%d", gameID))
	if err != nil {
		return nil, err
	}
	var players []string
	if err := json.Unmarshal(b, &players); err != nil {
		return nil, fmt.Errorf("decode players of game %d: %w", gameID, err)
	}
	return players, nil
}

func (c *Client) PendingWithdrawal(ctx context.Context, account string) (math.Int, error) {
	b, err := c.abciQuery(ctx, "/pending/"+account)
	if err != nil {
		return math.Int{}, err
	}
	var out struct {
		Pending math.Int `json:"pending"`
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return math.Int{}, fmt.Errorf("decode pending of %q: %w", account, err)
	}
	if out.Pending.IsNil() {
		out.Pending = math.ZeroInt()
	}
	return out.Pending, nil
}

func (c *Client) HouseConfig(ctx context.Context) (state.Config, error) {
	b, err := c.abciQuery(ctx, "/config")
	if err != nil {
		return state.Config{}, err
	}
	var cfg state.Config
	if err := json.Unmarshal(b, &cfg); err != nil {
		return state.Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// ---- Internals ----

// submitTx broadcasts one signed envelope and polls for its committed
// result. The broadcast happens exactly once per call: only the result read
// is retried, so a slow network can never cause a duplicate submission.
func (c *Client) submitTx(ctx context.Context, typ string, value any) (*ctypes.ResultTx, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode %s value: %w", typ, err)
	}
	env := codec.TxEnvelope{Type: typ, Value: raw}
	if c.cfg.OperatorKey != nil {
		codec.SignEnvelope(&env, c.nextNonce(), c.cfg.Operator, c.cfg.OperatorKey)
	}
	txBytes, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode %s envelope: %w", typ, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.ConfirmTimeout)
	defer cancel()

	res, err := c.rpc.BroadcastTxSync(ctx, cmttypes.Tx(txBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: broadcast %s: %v", ErrNetworkUnavailable, typ, err)
	}
	if res.Code != 0 {
		return nil, mapLedgerError(res.Codespace, res.Code, res.Log)
	}
	c.logger.Debug("submitted tx", "type", typ, "hash", res.Hash.String())

	rtx, err := pollUntil(ctx, c.cfg.PollAttempts, c.cfg.PollInterval,
		func(ctx context.Context) (*ctypes.ResultTx, error) {
			return c.rpc.Tx(ctx, res.Hash, false)
		})
	if err != nil {
		return nil, err
	}
	if rtx.TxResult.Code != 0 {
		return nil, mapLedgerError(rtx.TxResult.Codespace, rtx.TxResult.Code, rtx.TxResult.Log)
	}
	return rtx, nil
}

func (c *Client) abciQuery(ctx context.Context, path string) ([]byte, error) {
	res, err := c.rpc.ABCIQuery(ctx, path, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: query %s: %v", ErrNetworkUnavailable, path, err)
	}
	resp := res.Response
	if resp.Code != 0 {
		return nil, mapLedgerError(resp.Codespace, resp.Code, resp.Log)
	}
	return resp.Value, nil
}

// nextNonce yields strictly increasing nonces across a client's lifetime,
// matching the ledger's per-signer replay window.
func (c *Client) nextNonce() string {
	c.nonceMu.Lock()
	defer c.nonceMu.Unlock()
	n := uint64(time.Now().UnixNano())
	if n <= c.lastNonce {
		n = c.lastNonce + 1
	}
	c.lastNonce = n
	return strconv.FormatUint(n, 10)
}

func receipt(rtx *ctypes.ResultTx) *TxReceipt {
	return &TxReceipt{Hash: rtx.Hash.String(), Height: rtx.Height}
}

func findEventAttr(events []abci.Event, typ, key string) (string, bool) {
	for _, ev := range events {
		if ev.Type != typ {
			continue
		}
		for _, a := range ev.Attributes {
			if a.Key == key {
				return a.Value, true
			}
		}
	}
	return "", false
}
