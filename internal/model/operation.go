package model

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"swapLedger/internal/asset"
)

// OpKind names a ledger operation in the journal.
type OpKind string

const (
	OpCreate          OpKind = "create"
	OpSetEscrow       OpKind = "set_escrow"
	OpOptIn           OpKind = "opt_in"
	OpAddLiquidity    OpKind = "add_liquidity"
	OpRemoveLiquidity OpKind = "remove_liquidity"
	OpSwap            OpKind = "swap"
	OpWithdraw        OpKind = "withdraw"
	OpCloseOut        OpKind = "close_out"
	OpClearState      OpKind = "clear_state"
)

var opShortCodes = map[string]OpKind{
	"A": OpAddLiquidity,
	"R": OpRemoveLiquidity,
	"S": OpSwap,
	"W": OpWithdraw,
}

// ParseOpKind accepts the long names and the single-letter call codes.
func ParseOpKind(v string) (OpKind, error) {
	if k, ok := opShortCodes[v]; ok {
		return k, nil
	}
	switch k := OpKind(v); k {
	case OpCreate, OpSetEscrow, OpOptIn, OpAddLiquidity, OpRemoveLiquidity,
		OpSwap, OpWithdraw, OpCloseOut, OpClearState:
		return k, nil
	}
	return "", fmt.Errorf("unknown operation kind %q", v)
}

// Operation is one journal entry submitted to a pool.
//
// Args carries application arguments as big-endian byte strings:
// create [fee_bps], set_escrow [escrow], remove_liquidity [tokens],
// swap [min_out, side] (both optional, side is
// "primary"/"secondary" or "a"/"b" and must match the paid asset). Transfers carry the asset movements of the
// group; Assets names the primary and secondary asset on create.
type Operation struct {
	ID        string           `json:"id,omitempty"`
	Seq       uint64           `json:"seq"`
	Timestamp uint64           `json:"timestamp"`
	Kind      OpKind           `json:"kind"`
	Sender    string           `json:"sender"`
	Args      []hexutil.Bytes  `json:"args,omitempty"`
	Transfers []asset.Transfer `json:"transfers,omitempty"`
	Assets    []asset.Spec     `json:"assets,omitempty"`
}

// UnmarshalJSON decodes an Operation and normalizes its kind.
func (op *Operation) UnmarshalJSON(data []byte) error {
	type Alias Operation
	var a Alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	kind, err := ParseOpKind(string(a.Kind))
	if err != nil {
		return err
	}
	a.Kind = kind
	*op = Operation(a)
	return nil
}
