package app

import (
	"context"
	"encoding/json"
	"fmt"

	"cosmossdk.io/math"
	abci "github.com/cometbft/cometbft/abci/types"

	"stakepot/internal/reward"
	"stakepot/internal/state"
)

// GenesisState seeds the ledger's operator config and initial balances.
type GenesisState struct {
	Owner       string              `json:"owner"`
	HouseCutBps uint32              `json:"houseCutBps"`
	Balances    map[string]math.Int `json:"balances,omitempty"`
}

func (gs GenesisState) Validate() error {
	if gs.Owner == "" {
		return fmt.Errorf("genesis: missing owner")
	}
	if gs.HouseCutBps > reward.MaxHouseCutBps {
		return fmt.Errorf("genesis: house cut %d bps exceeds maximum %d", gs.HouseCutBps, reward.MaxHouseCutBps)
	}
	for account, bal := range gs.Balances {
		if bal.IsNil() || bal.IsNegative() {
			return fmt.Errorf("genesis: invalid balance for %q", account)
		}
	}
	return nil
}

func (a *EscrowApp) InitChain(_ context.Context, req *abci.InitChainRequest) (*abci.InitChainResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(req.AppStateBytes) == 0 {
		// No app genesis: owner stays unset until escrow/update_config,
		// and owner-only ops reject until then.
		return &abci.InitChainResponse{}, nil
	}

	var gs GenesisState
	if err := json.Unmarshal(req.AppStateBytes, &gs); err != nil {
		return nil, fmt.Errorf("decode genesis app state: %w", err)
	}
	if err := gs.Validate(); err != nil {
		return nil, err
	}

	a.st.Config = state.Config{Owner: gs.Owner, HouseCutBps: gs.HouseCutBps}
	for account, bal := range gs.Balances {
		if err := a.st.Credit(account, bal); err != nil {
			return nil, fmt.Errorf("genesis credit %q: %w", account, err)
		}
	}
	a.lastHash = a.st.AppHash()

	a.logger.Info("initialized escrow genesis", "owner", gs.Owner, "houseCutBps", gs.HouseCutBps, "accounts", len(gs.Balances))
	return &abci.InitChainResponse{AppHash: a.lastHash}, nil
}
