package sequencer

import (
	"fmt"
	"math"

	"swapLedger/internal/asset"
	"swapLedger/internal/model"
	"swapLedger/internal/pool"
)

type handlerFunc func(l *pool.Ledger, op model.Operation) (pool.Receipt, error)

var handlers = map[model.OpKind]handlerFunc{
	model.OpCreate:          applyCreate,
	model.OpSetEscrow:       applySetEscrow,
	model.OpOptIn:           applyOptIn,
	model.OpAddLiquidity:    applyAddLiquidity,
	model.OpRemoveLiquidity: applyRemoveLiquidity,
	model.OpSwap:            applySwap,
	model.OpWithdraw:        applyWithdraw,
	model.OpCloseOut:        applyCloseOut,
	model.OpClearState:      applyClearState,
}

func applyCreate(l *pool.Ledger, op model.Operation) (pool.Receipt, error) {
	if len(op.Assets) != 2 {
		return pool.Receipt{}, fmt.Errorf("%w: create needs two assets, got %d", ErrMalformed, len(op.Assets))
	}
	primary, err := asset.FromSpec(op.Assets[0])
	if err != nil {
		return pool.Receipt{}, fmt.Errorf("%w: primary: %v", ErrMalformed, err)
	}
	secondary, err := asset.FromSpec(op.Assets[1])
	if err != nil {
		return pool.Receipt{}, fmt.Errorf("%w: secondary: %v", ErrMalformed, err)
	}
	fee, err := optionalArgUint(op, 0, pool.DefaultFeeBps)
	if err != nil {
		return pool.Receipt{}, err
	}
	if fee > math.MaxUint16 {
		return pool.Receipt{}, fmt.Errorf("%w: got %d", pool.ErrInvalidFee, fee)
	}
	return pool.Receipt{Account: pool.Address(op.Sender)},
		l.Create(pool.Address(op.Sender), primary, secondary, uint16(fee))
}

func applySetEscrow(l *pool.Ledger, op model.Operation) (pool.Receipt, error) {
	escrow, err := argString(op, 0)
	if err != nil {
		return pool.Receipt{}, err
	}
	return pool.Receipt{Account: pool.Address(op.Sender)},
		l.SetEscrow(pool.Address(op.Sender), pool.Address(escrow))
}

func applyOptIn(l *pool.Ledger, op model.Operation) (pool.Receipt, error) {
	return pool.Receipt{Account: pool.Address(op.Sender)}, l.OptIn(pool.Address(op.Sender))
}

func applyCloseOut(l *pool.Ledger, op model.Operation) (pool.Receipt, error) {
	return pool.Receipt{Account: pool.Address(op.Sender)}, l.CloseOut(pool.Address(op.Sender))
}

func applyClearState(l *pool.Ledger, op model.Operation) (pool.Receipt, error) {
	return l.ClearState(pool.Address(op.Sender))
}

func applyAddLiquidity(l *pool.Ledger, op model.Operation) (pool.Receipt, error) {
	primary, secondary, escrow, err := groupContext(l)
	if err != nil {
		return pool.Receipt{}, err
	}
	if len(op.Transfers) != 2 {
		return pool.Receipt{}, fmt.Errorf("%w: add_liquidity needs two transfers, got %d", ErrMalformed, len(op.Transfers))
	}
	in0, in1 := op.Transfers[0], op.Transfers[1]
	if err := incoming(primary, in0, op.Sender, escrow); err != nil {
		return pool.Receipt{}, fmt.Errorf("primary transfer: %w", err)
	}
	if err := incoming(secondary, in1, op.Sender, escrow); err != nil {
		return pool.Receipt{}, fmt.Errorf("secondary transfer: %w", err)
	}
	return l.AddLiquidity(pool.Address(op.Sender), primary.IncomingAmount(in0), secondary.IncomingAmount(in1))
}

func applyRemoveLiquidity(l *pool.Ledger, op model.Operation) (pool.Receipt, error) {
	tokens, err := argUint(op, 0)
	if err != nil {
		return pool.Receipt{}, err
	}
	return l.RemoveLiquidity(pool.Address(op.Sender), tokens)
}

func applySwap(l *pool.Ledger, op model.Operation) (pool.Receipt, error) {
	primary, secondary, escrow, err := groupContext(l)
	if err != nil {
		return pool.Receipt{}, err
	}
	if len(op.Transfers) != 1 {
		return pool.Receipt{}, fmt.Errorf("%w: swap needs one transfer, got %d", ErrMalformed, len(op.Transfers))
	}
	minOut, err := optionalArgUint(op, 0, 0)
	if err != nil {
		return pool.Receipt{}, err
	}

	tx := op.Transfers[0]
	side, amount := pool.SidePrimary, primary.IncomingAmount(tx)
	if err := incoming(primary, tx, op.Sender, escrow); err != nil {
		if err := incoming(secondary, tx, op.Sender, escrow); err != nil {
			return pool.Receipt{}, fmt.Errorf("swap transfer matches neither pool asset: %w", err)
		}
		side, amount = pool.SideSecondary, secondary.IncomingAmount(tx)
	}
	if len(op.Args) > 1 {
		want, err := pool.ParseSide(string(op.Args[1]))
		if err != nil {
			return pool.Receipt{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if want != side {
			return pool.Receipt{}, fmt.Errorf("%w: swap names %s side but pays %s", ErrMalformed, want, side)
		}
	}
	return l.Swap(pool.Address(op.Sender), side, amount, minOut)
}

func applyWithdraw(l *pool.Ledger, op model.Operation) (pool.Receipt, error) {
	primary, secondary, escrow, err := groupContext(l)
	if err != nil {
		return pool.Receipt{}, err
	}
	if len(op.Transfers) == 0 || len(op.Transfers) > 2 {
		return pool.Receipt{}, fmt.Errorf("%w: withdraw needs one or two transfers, got %d", ErrMalformed, len(op.Transfers))
	}

	var primaryPaid, secondaryPaid uint64
	var sawPrimary, sawSecondary bool
	for _, tx := range op.Transfers {
		if tx.Receiver != op.Sender {
			return pool.Receipt{}, fmt.Errorf("%w: payout to %s, sender %s", ErrMalformed, tx.Receiver, op.Sender)
		}
		switch {
		case !sawPrimary && primary.ValidateOutgoing(tx, escrow) == nil:
			primaryPaid, sawPrimary = primary.OutgoingAmount(tx), true
		case !sawSecondary && secondary.ValidateOutgoing(tx, escrow) == nil:
			secondaryPaid, sawSecondary = secondary.OutgoingAmount(tx), true
		default:
			return pool.Receipt{}, fmt.Errorf("%w: payout matches no outstanding asset", ErrMalformed)
		}
	}
	return l.Withdraw(pool.Address(op.Sender), primaryPaid, secondaryPaid)
}

func groupContext(l *pool.Ledger) (asset.Ref, asset.Ref, string, error) {
	if !l.Created() {
		return nil, nil, "", pool.ErrNotCreated
	}
	escrow := string(l.Pool().Escrow)
	if escrow == "" {
		return nil, nil, "", ErrEscrowNotSet
	}
	primary, secondary := l.Assets()
	return primary, secondary, escrow, nil
}

func incoming(ref asset.Ref, tx asset.Transfer, sender, escrow string) error {
	if err := ref.ValidateIncoming(tx, escrow); err != nil {
		return err
	}
	if tx.Sender != sender {
		return fmt.Errorf("%w: transfer from %s, sender %s", ErrMalformed, tx.Sender, sender)
	}
	return nil
}
