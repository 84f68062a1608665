package app

import (
	"bytes"
	"crypto/ed25519"
	"strconv"

	errorsmod "cosmossdk.io/errors"
	abci "github.com/cometbft/cometbft/abci/types"

	"stakepot/internal/codec"
	"stakepot/internal/state"
)

func requireSignedEnvelope(env codec.TxEnvelope) error {
	if env.Nonce == "" {
		return errorsmod.Wrap(ErrUnauthorizedTx, "missing tx.nonce")
	}
	if env.Signer == "" {
		return errorsmod.Wrap(ErrUnauthorizedTx, "missing tx.signer")
	}
	if len(env.Sig) != ed25519.SignatureSize {
		return errorsmod.Wrapf(ErrUnauthorizedTx, "invalid tx.sig length: got %d want %d", len(env.Sig), ed25519.SignatureSize)
	}
	return nil
}

// requireSenderAuth authorizes a tx naming account as its sender. Accounts
// with a registered pubkey must sign every envelope and present a strictly
// increasing nonce; unregistered accounts are accepted unsigned (v0
// localnet trust level).
func requireSenderAuth(st *state.State, env codec.TxEnvelope, account string) error {
	if account == "" {
		return errorsmod.Wrap(ErrInvalidRequest, "missing sender account")
	}
	pub := st.AccountKeys[account]
	if len(pub) == 0 {
		return nil
	}
	if err := requireSignedEnvelope(env); err != nil {
		return err
	}
	if env.Signer != account {
		return errorsmod.Wrapf(ErrUnauthorizedTx, "tx signer mismatch: signer=%q want=%q", env.Signer, account)
	}
	msg := codec.SignBytes(env.Type, env.Value, env.Nonce, env.Signer)
	if !ed25519.Verify(ed25519.PublicKey(pub), msg, env.Sig) {
		return errorsmod.Wrap(ErrUnauthorizedTx, "invalid signature")
	}
	return bumpNonce(st, env.Signer, env.Nonce)
}

// requireOwnerAuth gates the owner-only operations (settle, refund, config).
func requireOwnerAuth(st *state.State, env codec.TxEnvelope, caller string) error {
	if st.Config.Owner == "" {
		return errorsmod.Wrap(ErrNotAuthorized, "no owner configured")
	}
	if caller != st.Config.Owner {
		return errorsmod.Wrapf(ErrNotAuthorized, "caller %q is not the owner", caller)
	}
	return requireSenderAuth(st, env, caller)
}

func bumpNonce(st *state.State, signer, nonce string) error {
	n, err := strconv.ParseUint(nonce, 10, 64)
	if err != nil {
		return errorsmod.Wrapf(ErrUnauthorizedTx, "invalid tx.nonce %q", nonce)
	}
	if n <= st.NonceMax[signer] {
		return errorsmod.Wrapf(ErrUnauthorizedTx, "stale tx.nonce %d (last accepted %d)", n, st.NonceMax[signer])
	}
	st.NonceMax[signer] = n
	return nil
}

// authRegisterAccount binds an ed25519 pubkey to an account. The envelope
// must be signed by the key being registered, so registration proves key
// possession.
func authRegisterAccount(st *state.State, env codec.TxEnvelope, msg codec.AuthRegisterAccountTx) (*abci.ExecTxResult, error) {
	if msg.Account == "" {
		return nil, errorsmod.Wrap(ErrInvalidRequest, "missing account")
	}
	if len(msg.PubKey) != ed25519.PublicKeySize {
		return nil, errorsmod.Wrapf(ErrInvalidRequest, "pubKey must be %d bytes", ed25519.PublicKeySize)
	}
	if existing := st.AccountKeys[msg.Account]; len(existing) != 0 && !bytes.Equal(existing, msg.PubKey) {
		return nil, errorsmod.Wrapf(ErrUnauthorizedTx, "account %q already registered with a different key", msg.Account)
	}
	if err := requireSignedEnvelope(env); err != nil {
		return nil, err
	}
	if env.Signer != msg.Account {
		return nil, errorsmod.Wrapf(ErrUnauthorizedTx, "tx signer mismatch: signer=%q want=%q", env.Signer, msg.Account)
	}
	signBytes := codec.SignBytes(env.Type, env.Value, env.Nonce, env.Signer)
	if !ed25519.Verify(ed25519.PublicKey(msg.PubKey), signBytes, env.Sig) {
		return nil, errorsmod.Wrap(ErrUnauthorizedTx, "invalid signature")
	}
	if err := bumpNonce(st, env.Signer, env.Nonce); err != nil {
		return nil, err
	}
	st.AccountKeys[msg.Account] = append([]byte(nil), msg.PubKey...)
	return okEvent("AccountRegistered", map[string]string{
		"account": msg.Account,
	}), nil
}
