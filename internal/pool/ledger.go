// Package pool implements the two-asset liquidity pool ledger: deposits mint
// pool-share tokens, burns and swaps credit owed amounts that block the
// position until a withdrawal settles them.
//
// A Ledger is not safe for concurrent use. Every operation validates all of
// its preconditions before mutating state, so a failed call leaves the ledger
// untouched.
package pool

import (
	"fmt"
	"sort"

	"swapLedger/internal/asset"
	"swapLedger/internal/muldiv"
)

// Ledger holds one pool and the positions of every opted-in account.
type Ledger struct {
	params    Params
	created   bool
	pool      Pool
	primary   asset.Ref
	secondary asset.Ref
	positions map[Address]*Position
}

// NewLedger returns an uninitialized ledger.
func NewLedger(params Params) (*Ledger, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Ledger{
		params:    params,
		positions: make(map[Address]*Position),
	}, nil
}

func (l *Ledger) Params() Params { return l.params }

func (l *Ledger) Created() bool { return l.created }

// Pool returns a copy of the pool state.
func (l *Ledger) Pool() Pool { return l.pool }

// Assets returns the primary and secondary asset refs, nil before Create.
func (l *Ledger) Assets() (asset.Ref, asset.Ref) { return l.primary, l.secondary }

// Position returns a copy of the account's position.
func (l *Ledger) Position(account Address) (Position, bool) {
	p, ok := l.positions[account]
	if !ok {
		return Position{}, false
	}
	return *p, true
}

// Accounts returns every opted-in account in sorted order.
func (l *Ledger) Accounts() []Address {
	out := make([]Address, 0, len(l.positions))
	for a := range l.positions {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Create initializes the pool. It succeeds only once.
func (l *Ledger) Create(creator Address, primary, secondary asset.Ref, feeBps uint16) error {
	if l.created {
		return ErrAlreadyCreated
	}
	if creator == "" {
		return fmt.Errorf("%w: empty creator", ErrInvalidAddress)
	}
	if primary == nil || secondary == nil {
		return fmt.Errorf("%w: both assets are required", ErrInvalidAsset)
	}
	if primary.Spec() == secondary.Spec() {
		return fmt.Errorf("%w: primary and secondary are both %s", ErrInvalidAsset, primary.Spec())
	}
	if feeBps == 0 || feeBps >= MaxBps {
		return fmt.Errorf("%w: got %d", ErrInvalidFee, feeBps)
	}

	l.pool = Pool{
		FeeBps:    feeBps,
		Creator:   creator,
		Primary:   primary.Spec(),
		Secondary: secondary.Spec(),
	}
	l.primary = primary
	l.secondary = secondary
	l.created = true
	return nil
}

// SetEscrow records the escrow address. Only the creator may call it, once.
func (l *Ledger) SetEscrow(sender, escrow Address) error {
	if err := l.requireCreated(); err != nil {
		return err
	}
	if sender != l.pool.Creator {
		return fmt.Errorf("%w: %s is not the creator", ErrUnauthorized, sender)
	}
	if l.pool.Escrow != "" {
		return ErrEscrowAlreadySet
	}
	if escrow == "" {
		return fmt.Errorf("%w: empty escrow", ErrInvalidAddress)
	}
	l.pool.Escrow = escrow
	return nil
}

// OptIn opens a zeroed position for account.
func (l *Ledger) OptIn(account Address) error {
	if err := l.requireCreated(); err != nil {
		return err
	}
	if account == "" {
		return fmt.Errorf("%w: empty account", ErrInvalidAddress)
	}
	if _, ok := l.positions[account]; ok {
		return ErrAlreadyOptedIn
	}
	l.positions[account] = &Position{}
	return nil
}

// CloseOut removes an empty position.
func (l *Ledger) CloseOut(account Address) error {
	p, err := l.position(account)
	if err != nil {
		return err
	}
	if !p.Empty() {
		return fmt.Errorf("%w: tokens=%d primary_owed=%d secondary_owed=%d",
			ErrPositionNotEmpty, p.LiquidityTokens, p.PrimaryOwed, p.SecondaryOwed)
	}
	delete(l.positions, account)
	return nil
}

// ClearState force-closes a position. Its liquidity tokens are forfeited to
// the remaining holders and any owed amounts return to the pool balances.
func (l *Ledger) ClearState(account Address) (Receipt, error) {
	p, err := l.position(account)
	if err != nil {
		return Receipt{}, err
	}

	total, err := muldiv.CheckedSub(l.pool.TotalLiquidityTokens, p.LiquidityTokens)
	if err != nil {
		return Receipt{}, fmt.Errorf("forfeit tokens: %w", err)
	}
	primary, err := muldiv.CheckedAdd(l.pool.PrimaryBalance, p.PrimaryOwed)
	if err != nil {
		return Receipt{}, fmt.Errorf("return primary owed: %w", err)
	}
	secondary, err := muldiv.CheckedAdd(l.pool.SecondaryBalance, p.SecondaryOwed)
	if err != nil {
		return Receipt{}, fmt.Errorf("return secondary owed: %w", err)
	}

	receipt := Receipt{
		Account:     account,
		Burned:      p.LiquidityTokens,
		PrimaryIn:   p.PrimaryOwed,
		SecondaryIn: p.SecondaryOwed,
	}
	l.pool.TotalLiquidityTokens = total
	l.pool.PrimaryBalance = primary
	l.pool.SecondaryBalance = secondary
	delete(l.positions, account)
	return receipt, nil
}

func (l *Ledger) requireCreated() error {
	if !l.created {
		return ErrNotCreated
	}
	return nil
}

func (l *Ledger) position(account Address) (*Position, error) {
	if err := l.requireCreated(); err != nil {
		return nil, err
	}
	p, ok := l.positions[account]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotOptedIn, account)
	}
	return p, nil
}

func (l *Ledger) idlePosition(account Address) (*Position, error) {
	p, err := l.position(account)
	if err != nil {
		return nil, err
	}
	if p.Busy() {
		return nil, fmt.Errorf("%w: primary_owed=%d secondary_owed=%d", ErrPositionBusy, p.PrimaryOwed, p.SecondaryOwed)
	}
	return p, nil
}
