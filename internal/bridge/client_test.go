package bridge

import (
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"strconv"
	"testing"
	"time"

	"cosmossdk.io/log"
	"cosmossdk.io/math"
	abci "github.com/cometbft/cometbft/abci/types"
	cmtbytes "github.com/cometbft/cometbft/libs/bytes"
	ctypes "github.com/cometbft/cometbft/rpc/core/types"
	cmttypes "github.com/cometbft/cometbft/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stakepot/internal/app"
	"stakepot/internal/codec"
	"stakepot/internal/state"
)

type fakeRPC struct {
	broadcast func(ctx context.Context, tx cmttypes.Tx) (*ctypes.ResultBroadcastTx, error)
	tx        func(ctx context.Context, hash []byte, prove bool) (*ctypes.ResultTx, error)
	query     func(ctx context.Context, path string, data cmtbytes.HexBytes) (*ctypes.ResultABCIQuery, error)
}

func (f *fakeRPC) BroadcastTxSync(ctx context.Context, tx cmttypes.Tx) (*ctypes.ResultBroadcastTx, error) {
	return f.broadcast(ctx, tx)
}

func (f *fakeRPC) Tx(ctx context.Context, hash []byte, prove bool) (*ctypes.ResultTx, error) {
	return f.tx(ctx, hash, prove)
}

func (f *fakeRPC) ABCIQuery(ctx context.Context, path string, data cmtbytes.HexBytes) (*ctypes.ResultABCIQuery, error) {
	return f.query(ctx, path, data)
}

func newTestClient(rpc rpcClient) *Client {
	return &Client{
		cfg: Config{
			RPCEndpoint:    "tcp://127.0.0.1:26657",
			ChainID:        "stakepot-test",
			Operator:       "house",
			ConfirmTimeout: time.Second,
			PollInterval:   time.Millisecond,
			PollAttempts:   3,
		},
		rpc:    rpc,
		logger: log.NewNopLogger(),
	}
}

func queryValue(t *testing.T, v any) *ctypes.ResultABCIQuery {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return &ctypes.ResultABCIQuery{Response: abci.QueryResponse{Code: 0, Value: b}}
}

func inProgressGame(id uint64, pool int64, players ...string) *state.Game {
	return &state.Game{
		ID:          id,
		Creator:     players[0],
		StakeAmount: math.NewInt(pool / int64(len(players))),
		MinPlayers:  2,
		MaxPlayers:  uint8(len(players)),
		Players:     players,
		TotalPool:   math.NewInt(pool),
		Status:      state.StatusInProgress,
	}
}

func TestSubmitSettlement_HappyPath(t *testing.T) {
	hash := cmtbytes.HexBytes(bytesOf("settle-hash"))
	broadcasts := 0

	rpc := &fakeRPC{
		query: func(_ context.Context, path string, _ cmtbytes.HexBytes) (*ctypes.ResultABCIQuery, error) {
			switch path {
			case "/game/7":
				return queryValue(t, inProgressGame(7, 2000, "alice", "bob")), nil
			case "/config":
				return queryValue(t, state.Config{Owner: "house", HouseCutBps: 200}), nil
			default:
				t.Fatalf("unexpected query path %q", path)
				return nil, nil
			}
		},
		broadcast: func(_ context.Context, tx cmttypes.Tx) (*ctypes.ResultBroadcastTx, error) {
			broadcasts++
			env, err := codec.DecodeTxEnvelope(tx)
			require.NoError(t, err)
			require.Equal(t, "escrow/settle_game", env.Type)

			var msg codec.SettleGameTx
			require.NoError(t, json.Unmarshal(env.Value, &msg))
			assert.Equal(t, "house", msg.Caller)
			assert.Equal(t, uint64(7), msg.GameID)
			assert.Equal(t, []string{"bob"}, msg.Winners)

			return &ctypes.ResultBroadcastTx{Code: 0, Hash: hash}, nil
		},
		tx: func(_ context.Context, gotHash []byte, _ bool) (*ctypes.ResultTx, error) {
			require.Equal(t, []byte(hash), gotHash)
			return &ctypes.ResultTx{Hash: hash, Height: 42, TxResult: abci.ExecTxResult{Code: 0}}, nil
		},
	}

	c := newTestClient(rpc)
	receipt, err := c.SubmitSettlement(context.Background(), 7, []string{"bob"})
	require.NoError(t, err)

	assert.Equal(t, 1, broadcasts)
	assert.Equal(t, int64(42), receipt.Height)
	assert.Equal(t, hash.String(), receipt.Hash)
	assert.Equal(t, int64(40), receipt.Split.HouseFee.Int64())
	assert.Equal(t, int64(1960), receipt.Split.RewardPerWinner.Int64())
}

func TestSubmitSettlement_FailsFastWhenAlreadySettled(t *testing.T) {
	rpc := &fakeRPC{
		query: func(_ context.Context, path string, _ cmtbytes.HexBytes) (*ctypes.ResultABCIQuery, error) {
			require.Equal(t, "/game/7", path)
			g := inProgressGame(7, 2000, "alice", "bob")
			g.Status = state.StatusSettled
			return queryValue(t, g), nil
		},
		broadcast: func(context.Context, cmttypes.Tx) (*ctypes.ResultBroadcastTx, error) {
			t.Fatalf("broadcast must not happen for a settled game")
			return nil, nil
		},
	}

	c := newTestClient(rpc)
	_, err := c.SubmitSettlement(context.Background(), 7, []string{"bob"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStateMismatch)

	var mismatch *StateMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, uint64(7), mismatch.GameID)
	assert.Equal(t, state.StatusInProgress, mismatch.Expected)
	assert.Equal(t, state.StatusSettled, mismatch.Actual)
}

func TestSubmitTx_ResultAvailableAfterRetries(t *testing.T) {
	hash := cmtbytes.HexBytes(bytesOf("join-hash"))
	lookups := 0

	rpc := &fakeRPC{
		broadcast: func(context.Context, cmttypes.Tx) (*ctypes.ResultBroadcastTx, error) {
			return &ctypes.ResultBroadcastTx{Code: 0, Hash: hash}, nil
		},
		tx: func(context.Context, []byte, bool) (*ctypes.ResultTx, error) {
			lookups++
			if lookups < 3 {
				return nil, errors.New("tx not found")
			}
			return &ctypes.ResultTx{Hash: hash, Height: 9, TxResult: abci.ExecTxResult{Code: 0}}, nil
		},
	}

	c := newTestClient(rpc)
	receipt, err := c.JoinGame(context.Background(), 3, math.NewInt(100))
	require.NoError(t, err)
	assert.Equal(t, 3, lookups)
	assert.Equal(t, int64(9), receipt.Height)
}

func TestSubmitTx_PollingExhaustion(t *testing.T) {
	broadcasts := 0
	rpc := &fakeRPC{
		broadcast: func(context.Context, cmttypes.Tx) (*ctypes.ResultBroadcastTx, error) {
			broadcasts++
			return &ctypes.ResultBroadcastTx{Code: 0, Hash: bytesOf("h")}, nil
		},
		tx: func(context.Context, []byte, bool) (*ctypes.ResultTx, error) {
			return nil, errors.New("tx not found")
		},
	}

	c := newTestClient(rpc)
	_, err := c.Withdraw(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrResultNotAvailable)

	// The mutating call itself is never resubmitted.
	assert.Equal(t, 1, broadcasts)
}

func TestSubmitTx_CheckTxRejectionMapped(t *testing.T) {
	rpc := &fakeRPC{
		broadcast: func(context.Context, cmttypes.Tx) (*ctypes.ResultBroadcastTx, error) {
			return &ctypes.ResultBroadcastTx{
				Code:      app.ErrNotAuthorized.ABCICode(),
				Codespace: app.Codespace,
				Log:       "caller is not the owner",
			}, nil
		},
		tx: func(context.Context, []byte, bool) (*ctypes.ResultTx, error) {
			t.Fatalf("no result lookup after a rejected broadcast")
			return nil, nil
		},
	}

	c := newTestClient(rpc)
	_, err := c.EmergencyRefund(context.Background(), 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotAuthorized)
}

func TestSubmitTx_DeliverRejectionMapped(t *testing.T) {
	hash := cmtbytes.HexBytes(bytesOf("h"))
	rpc := &fakeRPC{
		broadcast: func(context.Context, cmttypes.Tx) (*ctypes.ResultBroadcastTx, error) {
			return &ctypes.ResultBroadcastTx{Code: 0, Hash: hash}, nil
		},
		tx: func(context.Context, []byte, bool) (*ctypes.ResultTx, error) {
			return &ctypes.ResultTx{
				Hash:   hash,
				Height: 4,
				TxResult: abci.ExecTxResult{
					Code:      app.ErrGameNotInProgress.ABCICode(),
					Codespace: app.Codespace,
					Log:       "game 5 is settled",
				},
			}, nil
		},
	}

	c := newTestClient(rpc)
	_, err := c.StartGame(context.Background(), 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStateMismatch)
}

func TestSubmitTx_BroadcastTransportError(t *testing.T) {
	rpc := &fakeRPC{
		broadcast: func(context.Context, cmttypes.Tx) (*ctypes.ResultBroadcastTx, error) {
			return nil, errors.New("connection refused")
		},
	}

	c := newTestClient(rpc)
	_, err := c.Withdraw(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNetworkUnavailable)
}

func TestSubmitTx_SignsWhenOperatorKeyPresent(t *testing.T) {
	seed := sha256.Sum256([]byte("bridge-test"))
	priv := ed25519.NewKeyFromSeed(seed[:])
	pub := priv.Public().(ed25519.PublicKey)

	hash := cmtbytes.HexBytes(bytesOf("h"))
	rpc := &fakeRPC{
		broadcast: func(_ context.Context, tx cmttypes.Tx) (*ctypes.ResultBroadcastTx, error) {
			env, err := codec.DecodeTxEnvelope(tx)
			require.NoError(t, err)
			require.Equal(t, "house", env.Signer)
			require.NotEmpty(t, env.Nonce)

			msg := codec.SignBytes(env.Type, env.Value, env.Nonce, env.Signer)
			require.True(t, ed25519.Verify(pub, msg, env.Sig))
			return &ctypes.ResultBroadcastTx{Code: 0, Hash: hash}, nil
		},
		tx: func(context.Context, []byte, bool) (*ctypes.ResultTx, error) {
			return &ctypes.ResultTx{Hash: hash, Height: 1, TxResult: abci.ExecTxResult{Code: 0}}, nil
		},
	}

	c := newTestClient(rpc)
	c.cfg.OperatorKey = priv
	_, err := c.Withdraw(context.Background())
	require.NoError(t, err)
}

func TestCreateGame_ExtractsAssignedID(t *testing.T) {
	hash := cmtbytes.HexBytes(bytesOf("create-hash"))
	rpc := &fakeRPC{
		broadcast: func(context.Context, cmttypes.Tx) (*ctypes.ResultBroadcastTx, error) {
			return &ctypes.ResultBroadcastTx{Code: 0, Hash: hash}, nil
		},
		tx: func(context.Context, []byte, bool) (*ctypes.ResultTx, error) {
			return &ctypes.ResultTx{
				Hash:   hash,
				Height: 11,
				TxResult: abci.ExecTxResult{
					Code: 0,
					Events: []abci.Event{{
						Type: "GameCreated",
						Attributes: []abci.EventAttribute{
							{Key: "creator", Value: "house"},
							{Key: "gameId", Value: "12"},
						},
					}},
				},
			}, nil
		},
	}

	c := newTestClient(rpc)
	id, receipt, err := c.CreateGame(context.Background(), math.NewInt(100), 2, 4)
	require.NoError(t, err)
	assert.Equal(t, uint64(12), id)
	assert.Equal(t, int64(11), receipt.Height)
}

func TestGameRead_MapsNotFound(t *testing.T) {
	rpc := &fakeRPC{
		query: func(context.Context, string, cmtbytes.HexBytes) (*ctypes.ResultABCIQuery, error) {
			return &ctypes.ResultABCIQuery{Response: abci.QueryResponse{
				Code:      app.ErrGameNotFound.ABCICode(),
				Codespace: app.Codespace,
				Log:       "game 99 not found",
			}}, nil
		},
	}

	c := newTestClient(rpc)
	_, err := c.Game(context.Background(), 99)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGameNotFound)
}

func TestPendingWithdrawalRead(t *testing.T) {
	rpc := &fakeRPC{
		query: func(_ context.Context, path string, _ cmtbytes.HexBytes) (*ctypes.ResultABCIQuery, error) {
			require.Equal(t, "/pending/alice", path)
			return queryValue(t, map[string]any{"account": "alice", "pending": "1960"}), nil
		},
	}

	c := newTestClient(rpc)
	amt, err := c.PendingWithdrawal(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1960), amt.Int64())
}

func TestNextNonce_StrictlyIncreasing(t *testing.T) {
	c := newTestClient(&fakeRPC{})
	prev := uint64(0)
	for i := 0; i < 100; i++ {
		n := parseNonce(t, c.nextNonce())
		require.Greater(t, n, prev)
		prev = n
	}
}

func TestMapLedgerError_UnknownCodespacePassesThrough(t *testing.T) {
	err := mapLedgerError("other", 3, "boom")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotAuthorized)
	assert.NotErrorIs(t, err, ErrStateMismatch)
	assert.NotErrorIs(t, err, ErrGameNotFound)
}

func bytesOf(s string) []byte { return []byte(s) }

func parseNonce(t *testing.T, s string) uint64 {
	t.Helper()
	n, err := strconv.ParseUint(s, 10, 64)
	require.NoError(t, err)
	return n
}
