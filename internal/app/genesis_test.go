package app

import (
	"testing"

	abci "github.com/cometbft/cometbft/abci/types"
)

func TestInitChain_SeedsConfigAndBalances(t *testing.T) {
	a := newTestApp(t)

	genesis := mustMarshal(t, map[string]any{
		"owner":       "house",
		"houseCutBps": 250,
		"balances": map[string]any{
			"alice": "1000",
			"bob":   "500",
		},
	})
	resp, err := a.InitChain(nil, &abci.InitChainRequest{AppStateBytes: genesis})
	if err != nil {
		t.Fatalf("InitChain: %v", err)
	}
	if len(resp.AppHash) == 0 {
		t.Fatalf("expected genesis app hash")
	}

	if a.st.Config.Owner != "house" || a.st.Config.HouseCutBps != 250 {
		t.Fatalf("unexpected config: %+v", a.st.Config)
	}
	if got := balanceOf(t, a, "alice"); got != 1000 {
		t.Fatalf("alice balance: got %d want 1000", got)
	}
	if got := balanceOf(t, a, "bob"); got != 500 {
		t.Fatalf("bob balance: got %d want 500", got)
	}
}

func TestInitChain_EmptyAppState(t *testing.T) {
	a := newTestApp(t)

	if _, err := a.InitChain(nil, &abci.InitChainRequest{}); err != nil {
		t.Fatalf("InitChain: %v", err)
	}
	if a.st.Config.Owner != "" {
		t.Fatalf("expected no owner, got %q", a.st.Config.Owner)
	}

	// Owner-only ops reject until a config exists.
	res := a.deliverTx(txBytes(t, "escrow/update_config", map[string]any{
		"caller":      "anyone",
		"owner":       "anyone",
		"houseCutBps": 0,
	}), 1, 0)
	mustFailWith(t, res, ErrNotAuthorized.ABCICode())
}

func TestInitChain_RejectsInvalidGenesis(t *testing.T) {
	cases := []struct {
		name    string
		genesis map[string]any
	}{
		{"missing owner", map[string]any{"houseCutBps": 100}},
		{"house cut above cap", map[string]any{"owner": "house", "houseCutBps": 1001}},
		{"negative balance", map[string]any{
			"owner":       "house",
			"houseCutBps": 100,
			"balances":    map[string]any{"alice": "-5"},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := newTestApp(t)
			_, err := a.InitChain(nil, &abci.InitChainRequest{AppStateBytes: mustMarshal(t, tc.genesis)})
			if err == nil {
				t.Fatalf("expected genesis rejection")
			}
		})
	}
}
