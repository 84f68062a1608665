package app

import (
	errorsmod "cosmossdk.io/errors"
	abci "github.com/cometbft/cometbft/abci/types"

	"stakepot/internal/codec"
	"stakepot/internal/state"
)

// bankMint is the devnet faucet. Production chains fund accounts at genesis
// instead; the tx stays available for localnet scripting and tests.
func bankMint(st *state.State, msg codec.BankMintTx) (*abci.ExecTxResult, error) {
	if msg.To == "" || msg.Amount.IsNil() || !msg.Amount.IsPositive() {
		return nil, errorsmod.Wrap(ErrInvalidRequest, "missing to/amount")
	}
	if err := st.Credit(msg.To, msg.Amount); err != nil {
		return nil, errorsmod.Wrap(ErrInvalidRequest, err.Error())
	}
	return okEvent("BankMinted", map[string]string{
		"to":     msg.To,
		"amount": msg.Amount.String(),
	}), nil
}

func bankSend(st *state.State, env codec.TxEnvelope, msg codec.BankSendTx) (*abci.ExecTxResult, error) {
	if msg.From == "" || msg.To == "" || msg.Amount.IsNil() || !msg.Amount.IsPositive() {
		return nil, errorsmod.Wrap(ErrInvalidRequest, "missing from/to/amount")
	}
	if err := requireSenderAuth(st, env, msg.From); err != nil {
		return nil, err
	}
	if err := st.Debit(msg.From, msg.Amount); err != nil {
		return nil, errorsmod.Wrap(ErrInsufficientFunds, err.Error())
	}
	if err := st.Credit(msg.To, msg.Amount); err != nil {
		return nil, errorsmod.Wrap(ErrInvalidRequest, err.Error())
	}
	return okEvent("BankSent", map[string]string{
		"from":   msg.From,
		"to":     msg.To,
		"amount": msg.Amount.String(),
	}), nil
}
