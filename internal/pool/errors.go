package pool

import "errors"

var (
	ErrNotCreated            = errors.New("pool not created")
	ErrAlreadyCreated        = errors.New("pool already created")
	ErrInvalidParams         = errors.New("invalid ledger params")
	ErrInvalidFee            = errors.New("fee must be between 0 and 10000 bps exclusive")
	ErrInvalidAsset          = errors.New("invalid pool asset")
	ErrInvalidAddress        = errors.New("invalid address")
	ErrNotOptedIn            = errors.New("account not opted in")
	ErrAlreadyOptedIn        = errors.New("account already opted in")
	ErrInvalidAmount         = errors.New("invalid amount")
	ErrRatioMismatch         = errors.New("deposit ratio outside tolerance")
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
	ErrPositionBusy          = errors.New("position has pending withdrawal")
	ErrPositionNotEmpty      = errors.New("position not empty")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrEscrowAlreadySet      = errors.New("escrow already set")
	ErrNothingOwed           = errors.New("nothing owed")
	ErrSettlementMismatch    = errors.New("settlement does not match owed amounts")
	ErrSlippage              = errors.New("output below minimum")
	ErrInvariant             = errors.New("constant product would decrease")
	ErrCorruptSnapshot       = errors.New("corrupt snapshot")
)
