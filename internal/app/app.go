package app

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/log"
	abci "github.com/cometbft/cometbft/abci/types"

	"stakepot/internal/codec"
	"stakepot/internal/state"
)

const (
	AppVersion uint64 = 1
)

// EscrowApp is the stake-pool ledger: an ABCI state machine holding game
// records, bank balances, and pending withdrawals. CometBFT serializes all
// mutations; each tx executes against a staged clone so a failed tx leaves
// no partial state.
type EscrowApp struct {
	*abci.BaseApplication

	home   string
	logger log.Logger

	mu       sync.Mutex
	st       *state.State
	lastHash []byte
}

func New(home string, logger log.Logger) (*EscrowApp, error) {
	appHome := filepath.Join(home, "app")
	st, err := state.Load(appHome)
	if err != nil {
		return nil, err
	}
	a := &EscrowApp{
		BaseApplication: abci.NewBaseApplication(),
		home:            home,
		logger:          logger.With("module", "app"),
		st:              st,
		lastHash:        st.AppHash(),
	}
	return a, nil
}

func (a *EscrowApp) Info(_ context.Context, _ *abci.InfoRequest) (*abci.InfoResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	return &abci.InfoResponse{
		Data:             "stakepot (v0)",
		Version:          "v0",
		AppVersion:       AppVersion,
		LastBlockHeight:  a.st.Height,
		LastBlockAppHash: a.lastHash,
	}, nil
}

func (a *EscrowApp) CheckTx(_ context.Context, req *abci.CheckTxRequest) (*abci.CheckTxResponse, error) {
	_, err := codec.DecodeTxEnvelope(req.Tx)
	if err != nil {
		return &abci.CheckTxResponse{Code: 1, Log: err.Error()}, nil
	}
	// v0: only structural validation; auth runs against committed state in
	// deliverTx, where the nonce window is authoritative.
	return &abci.CheckTxResponse{Code: 0}, nil
}

func (a *EscrowApp) FinalizeBlock(_ context.Context, req *abci.FinalizeBlockRequest) (*abci.FinalizeBlockResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.st.Height = req.Height
	blockTime := req.Time.Unix()

	txResults := make([]*abci.ExecTxResult, 0, len(req.Txs))
	for _, txBytes := range req.Txs {
		res := a.deliverTx(txBytes, req.Height, blockTime)
		txResults = append(txResults, res)
	}

	a.lastHash = a.st.AppHash()

	return &abci.FinalizeBlockResponse{
		TxResults: txResults,
		AppHash:   a.lastHash,
	}, nil
}

func (a *EscrowApp) Commit(_ context.Context, _ *abci.CommitRequest) (*abci.CommitResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Persist after each block for devnet durability.
	appHome := filepath.Join(a.home, "app")
	if err := a.st.Save(appHome); err != nil {
		// CometBFT expects Commit to not crash; return error so node halts loudly.
		return nil, err
	}
	return &abci.CommitResponse{}, nil
}

func (a *EscrowApp) Query(_ context.Context, req *abci.QueryRequest) (*abci.QueryResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Paths:
	// - /games
	// - /game/<id>
	// - /players/<id>
	// - /pending/<account>
	// - /account/<account>
	// - /config
	path := strings.TrimSpace(req.Path)
	switch {
	case path == "/games":
		ids := make([]uint64, 0, len(a.st.Games))
		for id := range a.st.Games {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		b, _ := json.Marshal(ids)
		return &abci.QueryResponse{Code: 0, Value: b, Height: a.st.Height}, nil

	case path == "/config":
		b, _ := json.Marshal(a.st.Config)
		return &abci.QueryResponse{Code: 0, Value: b, Height: a.st.Height}, nil

	case strings.HasPrefix(path, "/game/"):
		g, resp := a.queryGame(strings.TrimPrefix(path, "/game/"))
		if resp != nil {
			return resp, nil
		}
		b, _ := json.Marshal(g)
		return &abci.QueryResponse{Code: 0, Value: b, Height: a.st.Height}, nil

	case strings.HasPrefix(path, "/players/"):
		g, resp := a.queryGame(strings.TrimPrefix(path, "/players/"))
		if resp != nil {
			return resp, nil
		}
		b, _ := json.Marshal(g.Players)
		return &abci.QueryResponse{Code: 0, Value: b, Height: a.st.Height}, nil

	case strings.HasPrefix(path, "/pending/"):
		account := strings.TrimPrefix(path, "/pending/")
		b, _ := json.Marshal(map[string]any{"account": account, "pending": a.st.PendingOf(account)})
		return &abci.QueryResponse{Code: 0, Value: b, Height: a.st.Height}, nil

	case strings.HasPrefix(path, "/account/"):
		account := strings.TrimPrefix(path, "/account/")
		b, _ := json.Marshal(map[string]any{"account": account, "balance": a.st.Balance(account)})
		return &abci.QueryResponse{Code: 0, Value: b, Height: a.st.Height}, nil

	default:
		return &abci.QueryResponse{Code: 1, Log: "unknown query path", Height: a.st.Height}, nil
	}
}

func (a *EscrowApp) queryGame(raw string) (*state.Game, *abci.QueryResponse) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return nil, &abci.QueryResponse{Code: 1, Log: "invalid game id", Height: a.st.Height}
	}
	g, ok := a.st.Games[id]
	if !ok {
		codespace, code, logMsg := errorsmod.ABCIInfo(ErrGameNotFound, false)
		return nil, &abci.QueryResponse{Code: code, Codespace: codespace, Log: logMsg, Height: a.st.Height}
	}
	return g, nil
}

// deliverTx executes one tx against a staged clone of state. The clone is
// swapped in only on success, so every rejection (including a failed
// transfer inside withdraw) fully reverts.
func (a *EscrowApp) deliverTx(txBytes []byte, height int64, blockTime int64) *abci.ExecTxResult {
	env, err := codec.DecodeTxEnvelope(txBytes)
	if err != nil {
		return errResult(errorsmod.Wrap(ErrInvalidRequest, err.Error()))
	}

	stage, err := a.st.Clone()
	if err != nil {
		return errResult(err)
	}
	res, err := a.applyTx(stage, env, height, blockTime)
	if err != nil {
		return errResult(err)
	}
	a.st = stage
	return res
}

func (a *EscrowApp) applyTx(st *state.State, env codec.TxEnvelope, height int64, blockTime int64) (*abci.ExecTxResult, error) {
	switch env.Type {
	case "bank/mint":
		var msg codec.BankMintTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return nil, errorsmod.Wrap(ErrInvalidRequest, "bad bank/mint value")
		}
		return bankMint(st, msg)

	case "bank/send":
		var msg codec.BankSendTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return nil, errorsmod.Wrap(ErrInvalidRequest, "bad bank/send value")
		}
		return bankSend(st, env, msg)

	case "auth/register_account":
		var msg codec.AuthRegisterAccountTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return nil, errorsmod.Wrap(ErrInvalidRequest, "bad auth/register_account value")
		}
		return authRegisterAccount(st, env, msg)

	case "escrow/create_game":
		var msg codec.CreateGameTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return nil, errorsmod.Wrap(ErrInvalidRequest, "bad escrow/create_game value")
		}
		return createGame(st, env, msg)

	case "escrow/join_game":
		var msg codec.JoinGameTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return nil, errorsmod.Wrap(ErrInvalidRequest, "bad escrow/join_game value")
		}
		return joinGame(st, env, msg, blockTime)

	case "escrow/start_game":
		var msg codec.StartGameTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return nil, errorsmod.Wrap(ErrInvalidRequest, "bad escrow/start_game value")
		}
		return startGame(st, env, msg, blockTime)

	case "escrow/settle_game":
		var msg codec.SettleGameTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return nil, errorsmod.Wrap(ErrInvalidRequest, "bad escrow/settle_game value")
		}
		return settleGame(st, env, msg)

	case "escrow/withdraw":
		var msg codec.WithdrawTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return nil, errorsmod.Wrap(ErrInvalidRequest, "bad escrow/withdraw value")
		}
		return withdraw(st, env, msg)

	case "escrow/emergency_refund":
		var msg codec.EmergencyRefundTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return nil, errorsmod.Wrap(ErrInvalidRequest, "bad escrow/emergency_refund value")
		}
		return emergencyRefund(st, env, msg)

	case "escrow/update_config":
		var msg codec.UpdateConfigTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return nil, errorsmod.Wrap(ErrInvalidRequest, "bad escrow/update_config value")
		}
		return updateConfig(st, env, msg)

	default:
		return nil, errorsmod.Wrapf(ErrInvalidRequest, "unknown tx type: %s", env.Type)
	}
}

func errResult(err error) *abci.ExecTxResult {
	codespace, code, logMsg := errorsmod.ABCIInfo(err, false)
	return &abci.ExecTxResult{Code: code, Codespace: codespace, Log: logMsg}
}

func okEvent(typ string, attrs map[string]string) *abci.ExecTxResult {
	ev := abci.Event{Type: typ}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		ev.Attributes = append(ev.Attributes, abci.EventAttribute{Key: k, Value: attrs[k], Index: true})
	}
	return &abci.ExecTxResult{
		Code:   0,
		Events: []abci.Event{ev},
	}
}

func u64(v uint64) string { return strconv.FormatUint(v, 10) }

func i64(v int64) string { return fmt.Sprintf("%d", v) }
