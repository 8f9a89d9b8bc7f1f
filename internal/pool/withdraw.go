package pool

import "fmt"

// Withdraw settles the position's owed amounts. The paid amounts are what the
// caller confirmed leaving escrow and must match the debt exactly.
func (l *Ledger) Withdraw(account Address, primaryPaid, secondaryPaid uint64) (Receipt, error) {
	p, err := l.position(account)
	if err != nil {
		return Receipt{}, err
	}
	if !p.Busy() {
		return Receipt{}, ErrNothingOwed
	}
	if primaryPaid != p.PrimaryOwed || secondaryPaid != p.SecondaryOwed {
		return Receipt{}, fmt.Errorf("%w: paid %d/%d, owed %d/%d",
			ErrSettlementMismatch, primaryPaid, secondaryPaid, p.PrimaryOwed, p.SecondaryOwed)
	}

	p.PrimaryOwed = 0
	p.SecondaryOwed = 0
	return Receipt{
		Account:       account,
		PrimaryPaid:   primaryPaid,
		SecondaryPaid: secondaryPaid,
	}, nil
}
