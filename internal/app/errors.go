package app

import errorsmod "cosmossdk.io/errors"

// Codespace tags every escrow rejection in ABCI results so clients can map
// codes back to typed errors.
const Codespace = "escrow"

// Sentinel errors. Codes start at 2; code 1 is the conventional catch-all
// for unregistered internal errors.
var (
	ErrInvalidRequest      = errorsmod.Register(Codespace, 2, "invalid request")
	ErrInvalidStakeAmount  = errorsmod.Register(Codespace, 3, "invalid stake amount")
	ErrInvalidPlayerBounds = errorsmod.Register(Codespace, 4, "invalid player bounds")
	ErrIncorrectDeposit    = errorsmod.Register(Codespace, 5, "incorrect deposit")
	ErrGameNotFound        = errorsmod.Register(Codespace, 6, "game not found")
	ErrGameNotJoinable     = errorsmod.Register(Codespace, 7, "game not joinable")
	ErrGameFull            = errorsmod.Register(Codespace, 8, "game full")
	ErrAlreadyJoined       = errorsmod.Register(Codespace, 9, "already joined")
	ErrNotAuthorized       = errorsmod.Register(Codespace, 10, "not authorized")
	ErrGameNotReady        = errorsmod.Register(Codespace, 11, "game not ready")
	ErrGameNotInProgress   = errorsmod.Register(Codespace, 12, "game not in progress")
	ErrEmptyWinnerSet      = errorsmod.Register(Codespace, 13, "empty winner set")
	ErrWinnerNotInGame     = errorsmod.Register(Codespace, 14, "winner not in game")
	ErrDuplicateWinner     = errorsmod.Register(Codespace, 15, "duplicate winner")
	ErrNoPendingWithdrawal = errorsmod.Register(Codespace, 16, "no pending withdrawal")
	ErrGameAlreadySettled  = errorsmod.Register(Codespace, 17, "game already settled")
	ErrInvalidConfig       = errorsmod.Register(Codespace, 18, "invalid config")
	ErrInsufficientFunds   = errorsmod.Register(Codespace, 19, "insufficient funds")
	ErrUnauthorizedTx      = errorsmod.Register(Codespace, 20, "unauthorized tx")
)
