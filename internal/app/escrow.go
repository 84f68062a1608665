package app

import (
	"strings"

	errorsmod "cosmossdk.io/errors"
	abci "github.com/cometbft/cometbft/abci/types"

	"stakepot/internal/codec"
	"stakepot/internal/reward"
	"stakepot/internal/state"
)

// createGame allocates a new game id, escrows the creator's deposit as the
// first stake, and emits GameCreated carrying the id (the only way an async
// caller learns it).
func createGame(st *state.State, env codec.TxEnvelope, msg codec.CreateGameTx) (*abci.ExecTxResult, error) {
	if err := requireSenderAuth(st, env, msg.Creator); err != nil {
		return nil, err
	}
	if msg.StakeAmount.IsNil() || !msg.StakeAmount.IsPositive() {
		return nil, errorsmod.Wrap(ErrInvalidStakeAmount, "stake amount must be > 0")
	}
	if msg.MinPlayers < state.MinPlayersFloor || msg.MinPlayers > msg.MaxPlayers || msg.MaxPlayers > state.MaxPlayersCap {
		return nil, errorsmod.Wrapf(ErrInvalidPlayerBounds, "min=%d max=%d (want %d <= min <= max <= %d)",
			msg.MinPlayers, msg.MaxPlayers, state.MinPlayersFloor, state.MaxPlayersCap)
	}
	if msg.Deposit.IsNil() || !msg.Deposit.Equal(msg.StakeAmount) {
		return nil, errorsmod.Wrap(ErrIncorrectDeposit, "deposit must equal stake amount")
	}
	if err := st.Debit(msg.Creator, msg.Deposit); err != nil {
		return nil, errorsmod.Wrap(ErrInsufficientFunds, err.Error())
	}

	id := st.NextGameID
	st.NextGameID++
	st.Games[id] = &state.Game{
		ID:          id,
		Creator:     msg.Creator,
		StakeAmount: msg.StakeAmount,
		MinPlayers:  msg.MinPlayers,
		MaxPlayers:  msg.MaxPlayers,
		Players:     []string{msg.Creator},
		TotalPool:   msg.Deposit,
		Status:      state.StatusLobby,
	}

	return okEvent("GameCreated", map[string]string{
		"gameId":      u64(id),
		"creator":     msg.Creator,
		"stakeAmount": msg.StakeAmount.String(),
		"minPlayers":  u64(uint64(msg.MinPlayers)),
		"maxPlayers":  u64(uint64(msg.MaxPlayers)),
	}), nil
}

// joinGame appends a participant and escrows their deposit. Reaching
// minPlayers advances lobby -> ready; filling the last seat auto-starts the
// game regardless of prior state.
func joinGame(st *state.State, env codec.TxEnvelope, msg codec.JoinGameTx, blockTime int64) (*abci.ExecTxResult, error) {
	if err := requireSenderAuth(st, env, msg.Player); err != nil {
		return nil, err
	}
	g, ok := st.Games[msg.GameID]
	if !ok {
		return nil, errorsmod.Wrapf(ErrGameNotFound, "game %d", msg.GameID)
	}
	if g.Status != state.StatusLobby && g.Status != state.StatusReady {
		return nil, errorsmod.Wrapf(ErrGameNotJoinable, "game %d is %s", g.ID, g.Status)
	}
	if msg.Deposit.IsNil() || !msg.Deposit.Equal(g.StakeAmount) {
		return nil, errorsmod.Wrapf(ErrIncorrectDeposit, "deposit must equal stake amount %s", g.StakeAmount)
	}
	if g.HasPlayer(msg.Player) {
		return nil, errorsmod.Wrapf(ErrAlreadyJoined, "player %q", msg.Player)
	}
	if len(g.Players) >= int(g.MaxPlayers) {
		return nil, errorsmod.Wrapf(ErrGameFull, "game %d has %d players", g.ID, len(g.Players))
	}
	if err := st.Debit(msg.Player, msg.Deposit); err != nil {
		return nil, errorsmod.Wrap(ErrInsufficientFunds, err.Error())
	}

	g.Players = append(g.Players, msg.Player)
	g.TotalPool = g.TotalPool.Add(msg.Deposit)

	res := okEvent("PlayerJoined", map[string]string{
		"gameId":      u64(g.ID),
		"player":      msg.Player,
		"playerCount": u64(uint64(len(g.Players))),
		"totalPool":   g.TotalPool.String(),
	})

	switch {
	case len(g.Players) == int(g.MaxPlayers):
		// Last seat filled: auto-start, skipping ready if minPlayers == maxPlayers.
		g.Status = state.StatusInProgress
		g.StartTime = blockTime
		res.Events = append(res.Events, gameStartedEvent(g))
	case len(g.Players) >= int(g.MinPlayers) && g.Status == state.StatusLobby:
		g.Status = state.StatusReady
		res.Events = append(res.Events, abci.Event{
			Type: "GameReady",
			Attributes: []abci.EventAttribute{
				{Key: "gameId", Value: u64(g.ID), Index: true},
				{Key: "playerCount", Value: u64(uint64(len(g.Players))), Index: false},
			},
		})
	}
	return res, nil
}

// startGame is the explicit start for a ready game that is not yet full.
// Only the creator or the owner may call it.
func startGame(st *state.State, env codec.TxEnvelope, msg codec.StartGameTx, blockTime int64) (*abci.ExecTxResult, error) {
	if err := requireSenderAuth(st, env, msg.Caller); err != nil {
		return nil, err
	}
	g, ok := st.Games[msg.GameID]
	if !ok {
		return nil, errorsmod.Wrapf(ErrGameNotFound, "game %d", msg.GameID)
	}
	if msg.Caller != g.Creator && msg.Caller != st.Config.Owner {
		return nil, errorsmod.Wrapf(ErrNotAuthorized, "caller %q is neither creator nor owner", msg.Caller)
	}
	if g.Status != state.StatusReady || len(g.Players) < int(g.MinPlayers) {
		return nil, errorsmod.Wrapf(ErrGameNotReady, "game %d is %s with %d players", g.ID, g.Status, len(g.Players))
	}

	g.Status = state.StatusInProgress
	g.StartTime = blockTime

	return &abci.ExecTxResult{Code: 0, Events: []abci.Event{gameStartedEvent(g)}}, nil
}

// settleGame is the terminal split: house fee to the owner's pending
// balance, an equal reward to each winner's, remainder retained. A second
// settle of the same game fails on the status check and credits nothing.
func settleGame(st *state.State, env codec.TxEnvelope, msg codec.SettleGameTx) (*abci.ExecTxResult, error) {
	if err := requireOwnerAuth(st, env, msg.Caller); err != nil {
		return nil, err
	}
	g, ok := st.Games[msg.GameID]
	if !ok {
		return nil, errorsmod.Wrapf(ErrGameNotFound, "game %d", msg.GameID)
	}
	if g.Status != state.StatusInProgress {
		return nil, errorsmod.Wrapf(ErrGameNotInProgress, "game %d is %s", g.ID, g.Status)
	}
	if len(msg.Winners) == 0 {
		return nil, errorsmod.Wrapf(ErrEmptyWinnerSet, "game %d", g.ID)
	}
	seen := make(map[string]bool, len(msg.Winners))
	for _, w := range msg.Winners {
		if seen[w] {
			return nil, errorsmod.Wrapf(ErrDuplicateWinner, "winner %q listed twice", w)
		}
		seen[w] = true
		if !g.HasPlayer(w) {
			return nil, errorsmod.Wrapf(ErrWinnerNotInGame, "winner %q is not a participant of game %d", w, g.ID)
		}
	}

	split, err := reward.Compute(g.TotalPool, len(msg.Winners), st.Config.HouseCutBps)
	if err != nil {
		return nil, errorsmod.Wrap(ErrInvalidConfig, err.Error())
	}

	for _, w := range msg.Winners {
		st.AddPending(w, split.RewardPerWinner)
	}
	st.AddPending(st.Config.Owner, split.HouseFee)
	g.Status = state.StatusSettled

	return okEvent("GameSettled", map[string]string{
		"gameId":          u64(g.ID),
		"winners":         strings.Join(msg.Winners, ","),
		"rewardPerWinner": split.RewardPerWinner.String(),
		"houseFee":        split.HouseFee.String(),
		"remainder":       split.Remainder.String(),
	}), nil
}

// withdraw pays out the caller's pending balance. The balance is zeroed
// before the transfer; staged execution reverts the zeroing if the credit
// fails, so the two always move together.
func withdraw(st *state.State, env codec.TxEnvelope, msg codec.WithdrawTx) (*abci.ExecTxResult, error) {
	if err := requireSenderAuth(st, env, msg.Account); err != nil {
		return nil, err
	}
	amount := st.TakePending(msg.Account)
	if !amount.IsPositive() {
		return nil, errorsmod.Wrapf(ErrNoPendingWithdrawal, "account %q", msg.Account)
	}
	if err := st.Credit(msg.Account, amount); err != nil {
		return nil, errorsmod.Wrap(ErrInvalidRequest, err.Error())
	}
	return okEvent("Withdrawn", map[string]string{
		"account": msg.Account,
		"amount":  amount.String(),
	}), nil
}

// emergencyRefund unwinds a stuck game: every participant's stake moves to
// their pending balance and the game is finalized so it can never settle.
func emergencyRefund(st *state.State, env codec.TxEnvelope, msg codec.EmergencyRefundTx) (*abci.ExecTxResult, error) {
	if err := requireOwnerAuth(st, env, msg.Caller); err != nil {
		return nil, err
	}
	g, ok := st.Games[msg.GameID]
	if !ok {
		return nil, errorsmod.Wrapf(ErrGameNotFound, "game %d", msg.GameID)
	}
	if g.Status == state.StatusSettled {
		return nil, errorsmod.Wrapf(ErrGameAlreadySettled, "game %d", g.ID)
	}

	for _, p := range g.Players {
		st.AddPending(p, g.StakeAmount)
	}
	g.Status = state.StatusSettled

	return okEvent("GameRefunded", map[string]string{
		"gameId":      u64(g.ID),
		"playerCount": u64(uint64(len(g.Players))),
		"stakeAmount": g.StakeAmount.String(),
	}), nil
}

func updateConfig(st *state.State, env codec.TxEnvelope, msg codec.UpdateConfigTx) (*abci.ExecTxResult, error) {
	if err := requireOwnerAuth(st, env, msg.Caller); err != nil {
		return nil, err
	}
	if msg.Owner == "" {
		return nil, errorsmod.Wrap(ErrInvalidConfig, "missing owner")
	}
	if msg.HouseCutBps > reward.MaxHouseCutBps {
		return nil, errorsmod.Wrapf(ErrInvalidConfig, "house cut %d bps exceeds maximum %d", msg.HouseCutBps, reward.MaxHouseCutBps)
	}
	st.Config = state.Config{Owner: msg.Owner, HouseCutBps: msg.HouseCutBps}
	return okEvent("ConfigUpdated", map[string]string{
		"owner":       msg.Owner,
		"houseCutBps": u64(uint64(msg.HouseCutBps)),
	}), nil
}

func gameStartedEvent(g *state.Game) abci.Event {
	return abci.Event{
		Type: "GameStarted",
		Attributes: []abci.EventAttribute{
			{Key: "gameId", Value: u64(g.ID), Index: true},
			{Key: "playerCount", Value: u64(uint64(len(g.Players))), Index: false},
			{Key: "startTime", Value: i64(g.StartTime), Index: false},
		},
	}
}
