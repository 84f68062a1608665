package bridge

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "STAKEPOT_BRIDGE"

// Config wires the bridge to one ledger and one operator credential.
type Config struct {
	// RPCEndpoint is the CometBFT RPC address, e.g. tcp://127.0.0.1:26657.
	RPCEndpoint string
	// ChainID names the target network; recorded on receipts for observability.
	ChainID string
	// Operator is the account submitting on-ledger calls.
	Operator string
	// OperatorKey signs tx envelopes. Optional on unregistered localnet
	// accounts; required once the operator account has a registered pubkey.
	OperatorKey ed25519.PrivateKey

	// ConfirmTimeout bounds each submit-and-observe round trip.
	ConfirmTimeout time.Duration
	// PollInterval/PollAttempts bound the wait for a submitted tx's result
	// to become queryable.
	PollInterval time.Duration
	PollAttempts int
}

// ConfigFromEnv reads STAKEPOT_BRIDGE_* environment variables:
// RPC, CHAIN_ID, OPERATOR, KEY (ed25519 seed, hex), TIMEOUT, POLL_INTERVAL,
// POLL_ATTEMPTS.
func ConfigFromEnv() (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	v.SetDefault("rpc", "tcp://127.0.0.1:26657")
	v.SetDefault("chain_id", "stakepot-localnet")
	v.SetDefault("timeout", 30*time.Second)
	v.SetDefault("poll_interval", 2*time.Second)
	v.SetDefault("poll_attempts", 5)

	cfg := Config{
		RPCEndpoint:    v.GetString("rpc"),
		ChainID:        v.GetString("chain_id"),
		Operator:       v.GetString("operator"),
		ConfirmTimeout: v.GetDuration("timeout"),
		PollInterval:   v.GetDuration("poll_interval"),
		PollAttempts:   v.GetInt("poll_attempts"),
	}

	if seedHex := v.GetString("key"); seedHex != "" {
		seed, err := hex.DecodeString(seedHex)
		if err != nil {
			return Config{}, fmt.Errorf("decode %s_KEY: %w", envPrefix, err)
		}
		if len(seed) != ed25519.SeedSize {
			return Config{}, fmt.Errorf("%s_KEY must be a %d-byte seed, got %d", envPrefix, ed25519.SeedSize, len(seed))
		}
		cfg.OperatorKey = ed25519.NewKeyFromSeed(seed)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.RPCEndpoint == "" {
		return fmt.Errorf("bridge config: missing rpc endpoint")
	}
	if c.Operator == "" {
		return fmt.Errorf("bridge config: missing operator account")
	}
	if c.ConfirmTimeout <= 0 {
		return fmt.Errorf("bridge config: confirm timeout must be positive")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("bridge config: poll interval must be positive")
	}
	if c.PollAttempts < 1 {
		return fmt.Errorf("bridge config: poll attempts must be >= 1")
	}
	return nil
}
