package state

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"cosmossdk.io/math"
)

// GameStatus is the escrow lifecycle of a game. Settled is terminal.
type GameStatus string

const (
	StatusLobby      GameStatus = "lobby"
	StatusReady      GameStatus = "ready"
	StatusInProgress GameStatus = "inProgress"
	StatusSettled    GameStatus = "settled"
)

// Player-count bounds enforced at game creation.
const (
	MinPlayersFloor = 2
	MaxPlayersCap   = 10
)

type Game struct {
	ID          uint64   `json:"id"`
	Creator     string   `json:"creator"`
	StakeAmount math.Int `json:"stakeAmount"`
	MinPlayers  uint8    `json:"minPlayers"`
	MaxPlayers  uint8    `json:"maxPlayers"`

	// Append-only, no duplicates. The creator is always Players[0].
	Players   []string   `json:"players"`
	TotalPool math.Int   `json:"totalPool"`
	Status    GameStatus `json:"status"`

	// Unix seconds of the block that moved the game to inProgress. 0 until then.
	StartTime int64 `json:"startTime,omitempty"`
}

func (g *Game) HasPlayer(account string) bool {
	for _, p := range g.Players {
		if p == account {
			return true
		}
	}
	return false
}

// Config is the ledger's operator singleton. Owner is the only account
// allowed to settle, refund, and update this config.
type Config struct {
	Owner       string `json:"owner,omitempty"`
	HouseCutBps uint32 `json:"houseCutBps"`
}

type State struct {
	Height int64 `json:"height"`

	NextGameID  uint64              `json:"nextGameId"`
	Accounts    map[string]math.Int `json:"accounts"`
	AccountKeys map[string][]byte   `json:"accountKeys,omitempty"` // account -> ed25519 pubkey (32 bytes)
	NonceMax    map[string]uint64   `json:"nonceMax,omitempty"`    // signer -> last accepted tx.nonce (u64), for replay protection
	Games       map[uint64]*Game    `json:"games"`

	// Pending is the per-account claimable balance, credited by settlement
	// and refunds, zeroed by withdrawal.
	Pending map[string]math.Int `json:"pending"`

	Config Config `json:"config"`
}

func NewState() *State {
	return &State{
		Height:      0,
		NextGameID:  1,
		Accounts:    map[string]math.Int{},
		AccountKeys: map[string][]byte{},
		NonceMax:    map[string]uint64{},
		Games:       map[uint64]*Game{},
		Pending:     map[string]math.Int{},
	}
}

func Load(home string) (*State, error) {
	path := filepath.Join(home, "state.json")
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewState(), nil
		}
		return nil, fmt.Errorf("read state: %w", err)
	}
	var st State
	if err := json.Unmarshal(b, &st); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	normalize(&st)
	return &st, nil
}

func (s *State) Save(home string) error {
	if err := os.MkdirAll(home, 0o755); err != nil {
		return fmt.Errorf("mkdir home: %w", err)
	}
	path := filepath.Join(home, "state.json")
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return nil
}

// Clone returns a deep copy of state suitable for staged tx execution.
func (s *State) Clone() (*State, error) {
	if s == nil {
		return nil, fmt.Errorf("state is nil")
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode state clone: %w", err)
	}
	var out State
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode state clone: %w", err)
	}
	normalize(&out)
	return &out, nil
}

func normalize(s *State) {
	if s.Accounts == nil {
		s.Accounts = map[string]math.Int{}
	}
	if s.AccountKeys == nil {
		s.AccountKeys = map[string][]byte{}
	}
	if s.NonceMax == nil {
		s.NonceMax = map[string]uint64{}
	}
	if s.Games == nil {
		s.Games = map[uint64]*Game{}
	}
	if s.Pending == nil {
		s.Pending = map[string]math.Int{}
	}
	if s.NextGameID == 0 {
		s.NextGameID = 1
	}
	for _, g := range s.Games {
		normalizeGame(g)
	}
}

// normalizeGame is defensive against older / hand-edited state files: a nil
// math.Int panics on arithmetic, so missing amounts become zero.
func normalizeGame(g *Game) {
	if g == nil {
		return
	}
	if g.StakeAmount.IsNil() {
		g.StakeAmount = math.ZeroInt()
	}
	if g.TotalPool.IsNil() {
		g.TotalPool = math.ZeroInt()
	}
	if g.Players == nil {
		g.Players = []string{}
	}
	if g.Status == "" {
		g.Status = StatusLobby
	}
}

func (s *State) AppHash() []byte {
	// Deterministic JSON hash: marshal with stable key ordering by serializing
	// a normalized view.
	//
	// Note: encoding/json does NOT guarantee map key order, so we manually
	// normalize maps into slices.
	type accountKV struct {
		Account string   `json:"account"`
		Balance math.Int `json:"balance"`
	}
	type accountKeyKV struct {
		Account string `json:"account"`
		PubKey  []byte `json:"pubKey"`
	}
	type nonceKV struct {
		Signer string `json:"signer"`
		Nonce  uint64 `json:"nonce"`
	}
	type pendingKV struct {
		Account string   `json:"account"`
		Amount  math.Int `json:"amount"`
	}
	type gameKV struct {
		ID   uint64 `json:"id"`
		Game *Game  `json:"game"`
	}

	accounts := make([]accountKV, 0, len(s.Accounts))
	for k, v := range s.Accounts {
		accounts = append(accounts, accountKV{Account: k, Balance: v})
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Account < accounts[j].Account })

	accountKeys := make([]accountKeyKV, 0, len(s.AccountKeys))
	for k, v := range s.AccountKeys {
		accountKeys = append(accountKeys, accountKeyKV{Account: k, PubKey: v})
	}
	sort.Slice(accountKeys, func(i, j int) bool { return accountKeys[i].Account < accountKeys[j].Account })

	nonces := make([]nonceKV, 0, len(s.NonceMax))
	for k, v := range s.NonceMax {
		nonces = append(nonces, nonceKV{Signer: k, Nonce: v})
	}
	sort.Slice(nonces, func(i, j int) bool { return nonces[i].Signer < nonces[j].Signer })

	pending := make([]pendingKV, 0, len(s.Pending))
	for k, v := range s.Pending {
		pending = append(pending, pendingKV{Account: k, Amount: v})
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].Account < pending[j].Account })

	games := make([]gameKV, 0, len(s.Games))
	for id, g := range s.Games {
		games = append(games, gameKV{ID: id, Game: g})
	}
	sort.Slice(games, func(i, j int) bool { return games[i].ID < games[j].ID })

	normalized := struct {
		Height      int64          `json:"height"`
		NextGameID  uint64         `json:"nextGameId"`
		Accounts    []accountKV    `json:"accounts"`
		AccountKeys []accountKeyKV `json:"accountKeys,omitempty"`
		NonceMax    []nonceKV      `json:"nonceMax,omitempty"`
		Pending     []pendingKV    `json:"pending"`
		Games       []gameKV       `json:"games"`
		Config      Config         `json:"config"`
	}{
		Height:      s.Height,
		NextGameID:  s.NextGameID,
		Accounts:    accounts,
		AccountKeys: accountKeys,
		NonceMax:    nonces,
		Pending:     pending,
		Games:       games,
		Config:      s.Config,
	}

	b, _ := json.Marshal(normalized)
	sum := sha256.Sum256(b)
	return sum[:]
}

// ---- Bank ----

func (s *State) Balance(account string) math.Int {
	bal, ok := s.Accounts[account]
	if !ok || bal.IsNil() {
		return math.ZeroInt()
	}
	return bal
}

func (s *State) Credit(account string, amount math.Int) error {
	if amount.IsNil() || amount.IsNegative() {
		return fmt.Errorf("invalid credit amount")
	}
	s.Accounts[account] = s.Balance(account).Add(amount)
	return nil
}

func (s *State) Debit(account string, amount math.Int) error {
	if amount.IsNil() || amount.IsNegative() {
		return fmt.Errorf("invalid debit amount")
	}
	bal := s.Balance(account)
	if bal.LT(amount) {
		return fmt.Errorf("insufficient funds: have=%s need=%s", bal, amount)
	}
	s.Accounts[account] = bal.Sub(amount)
	return nil
}

// ---- Pending withdrawals ----

func (s *State) PendingOf(account string) math.Int {
	amt, ok := s.Pending[account]
	if !ok || amt.IsNil() {
		return math.ZeroInt()
	}
	return amt
}

func (s *State) AddPending(account string, amount math.Int) {
	if amount.IsNil() || !amount.IsPositive() {
		return
	}
	s.Pending[account] = s.PendingOf(account).Add(amount)
}

// TakePending zeroes the account's pending balance and returns the amount
// recorded immediately before zeroing. Zero-then-transfer is the required
// ordering; a failed transfer is unwound by staged tx execution.
func (s *State) TakePending(account string) math.Int {
	amt := s.PendingOf(account)
	if amt.IsPositive() {
		s.Pending[account] = math.ZeroInt()
	}
	return amt
}
