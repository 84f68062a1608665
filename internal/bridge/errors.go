package bridge

import (
	"errors"
	"fmt"

	"stakepot/internal/app"
	"stakepot/internal/state"
)

// Failure taxonomy surfaced to the orchestrator. Every ledger rejection with
// a determinable kind maps onto one of these; only genuinely unknown codes
// fall through to a generic error.
var (
	// ErrNotAuthorized: the operator credential does not match the ledger's
	// configured owner. A configuration problem, never retried.
	ErrNotAuthorized = errors.New("operator not authorized")

	// ErrStateMismatch: the game is not in the lifecycle state the call
	// requires. Re-read state before deciding whether to retry or give up.
	ErrStateMismatch = errors.New("game state mismatch")

	// ErrGameNotFound: the ledger has no record of the game id.
	ErrGameNotFound = errors.New("game not found")

	// ErrInsufficientOperatorFunds: the operator account cannot cover the
	// submission's value transfer.
	ErrInsufficientOperatorFunds = errors.New("insufficient operator funds")

	// ErrNetworkUnavailable: transient transport failure, retryable.
	ErrNetworkUnavailable = errors.New("network unavailable")

	// ErrResultNotAvailable: the submission was accepted but its result was
	// not observable within the polling budget. Terminal for the bridge;
	// requires manual intervention, never silently swallowed.
	ErrResultNotAvailable = errors.New("result not available")
)

// StateMismatchError carries enough structure (game id, expected vs actual
// state) for the orchestrator to decide whether to retry, refund, or alert.
type StateMismatchError struct {
	GameID   uint64
	Expected state.GameStatus
	Actual   state.GameStatus
}

func (e *StateMismatchError) Error() string {
	return fmt.Sprintf("game %d: expected status %q, found %q", e.GameID, e.Expected, e.Actual)
}

func (e *StateMismatchError) Unwrap() error { return ErrStateMismatch }

// mapLedgerError translates an ABCI rejection (codespace + code) into the
// bridge taxonomy. The ledger's registered codes are the contract here.
func mapLedgerError(codespace string, code uint32, logMsg string) error {
	if codespace != app.Codespace {
		return fmt.Errorf("ledger rejection (codespace %q, code %d): %s", codespace, code, logMsg)
	}
	switch code {
	case app.ErrNotAuthorized.ABCICode(), app.ErrUnauthorizedTx.ABCICode():
		return fmt.Errorf("%w: %s", ErrNotAuthorized, logMsg)
	case app.ErrGameNotFound.ABCICode():
		return fmt.Errorf("%w: %s", ErrGameNotFound, logMsg)
	case app.ErrGameNotInProgress.ABCICode(),
		app.ErrGameNotJoinable.ABCICode(),
		app.ErrGameNotReady.ABCICode(),
		app.ErrGameAlreadySettled.ABCICode():
		return fmt.Errorf("%w: %s", ErrStateMismatch, logMsg)
	case app.ErrInsufficientFunds.ABCICode():
		return fmt.Errorf("%w: %s", ErrInsufficientOperatorFunds, logMsg)
	default:
		return fmt.Errorf("escrow rejection (code %d): %s", code, logMsg)
	}
}
