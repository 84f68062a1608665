package codec

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"cosmossdk.io/math"
)

// TxEnvelope is the v0 transaction container.
//
// CometBFT transactions are opaque bytes. For v0 localnet we use JSON-encoded
// txs to move fast; this is NOT the final protocol encoding.
type TxEnvelope struct {
	// Basic routing.
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`

	// v0 tx auth (optional):
	// - Nonce: included in the signed message for replay protection (must increase per signer).
	// - Signer: logical signer account.
	// - Sig: Ed25519 signature over (type, nonce, signer, sha256(value)).
	//
	// Note: This is still a scaffold; it is NOT the final protocol encoding.
	Nonce  string `json:"nonce,omitempty"`
	Signer string `json:"signer,omitempty"`
	Sig    []byte `json:"sig,omitempty"`
}

func DecodeTxEnvelope(txBytes []byte) (TxEnvelope, error) {
	var env TxEnvelope
	if err := json.Unmarshal(txBytes, &env); err != nil {
		return TxEnvelope{}, fmt.Errorf("invalid tx json: %w", err)
	}
	if env.Type == "" {
		return TxEnvelope{}, fmt.Errorf("missing tx.type")
	}
	return env, nil
}

const txAuthDomainV0 = "stakepot/tx/v0"

// SignBytes builds the byte string covered by a tx envelope signature.
// Shared by the ledger's verification path and the bridge's signing path.
//
// signBytes = DOMAIN || 0x00 || type || 0x00 || nonce || 0x00 || signer || 0x00 || sha256(value)
func SignBytes(typ string, value []byte, nonce string, signer string) []byte {
	sum := sha256.Sum256(value)
	out := make([]byte, 0, len(txAuthDomainV0)+1+len(typ)+1+len(nonce)+1+len(signer)+1+sha256.Size)
	out = append(out, []byte(txAuthDomainV0)...)
	out = append(out, 0)
	out = append(out, []byte(typ)...)
	out = append(out, 0)
	out = append(out, []byte(nonce)...)
	out = append(out, 0)
	out = append(out, []byte(signer)...)
	out = append(out, 0)
	out = append(out, sum[:]...)
	return out
}

// SignEnvelope fills Nonce/Signer/Sig on the envelope.
func SignEnvelope(env *TxEnvelope, nonce, signer string, priv ed25519.PrivateKey) {
	env.Nonce = nonce
	env.Signer = signer
	env.Sig = ed25519.Sign(priv, SignBytes(env.Type, env.Value, nonce, signer))
}

// ---- Bank ----

type BankMintTx struct {
	To     string   `json:"to"`
	Amount math.Int `json:"amount"`
}

type BankSendTx struct {
	From   string   `json:"from"`
	To     string   `json:"to"`
	Amount math.Int `json:"amount"`
}

// ---- Auth (v0) ----

// v0: account pubkey registration for tx authentication.
type AuthRegisterAccountTx struct {
	Account string `json:"account"`
	PubKey  []byte `json:"pubKey"` // base64 (32 bytes)
}

// ---- Escrow ----

// Deposit carries the value transferred with the call (the payable amount).
// The ledger debits it from the sender's bank balance into the game pool and
// rejects any deposit not exactly equal to the game's stake amount.

type CreateGameTx struct {
	Creator     string   `json:"creator"`
	StakeAmount math.Int `json:"stakeAmount"`
	MinPlayers  uint8    `json:"minPlayers"`
	MaxPlayers  uint8    `json:"maxPlayers"`
	Deposit     math.Int `json:"deposit"`
}

type JoinGameTx struct {
	Player  string   `json:"player"`
	GameID  uint64   `json:"gameId"`
	Deposit math.Int `json:"deposit"`
}

type StartGameTx struct {
	Caller string `json:"caller"`
	GameID uint64 `json:"gameId"`
}

type SettleGameTx struct {
	Caller  string   `json:"caller"`
	GameID  uint64   `json:"gameId"`
	Winners []string `json:"winners"`
}

type WithdrawTx struct {
	Account string `json:"account"`
}

type EmergencyRefundTx struct {
	Caller string `json:"caller"`
	GameID uint64 `json:"gameId"`
}

type UpdateConfigTx struct {
	Caller      string `json:"caller"`
	Owner       string `json:"owner"`
	HouseCutBps uint32 `json:"houseCutBps"`
}
