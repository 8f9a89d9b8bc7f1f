// Package asset describes how a pool recognises transfers of each of its two
// assets: the chain's native coin moves by payment, any other asset moves by
// asset transfer tagged with its id.
package asset

import (
	"errors"
	"fmt"
)

// Kind is the transfer type that carries an asset.
type Kind string

const (
	KindPayment       Kind = "payment"
	KindAssetTransfer Kind = "asset_transfer"
)

var (
	ErrWrongKind     = errors.New("wrong transfer kind")
	ErrWrongAsset    = errors.New("wrong asset id")
	ErrWrongReceiver = errors.New("transfer not sent to escrow")
	ErrWrongSender   = errors.New("transfer not sent from escrow")
	ErrUnknownKind   = errors.New("unknown asset kind")
)

// Transfer is one value movement inside an operation group.
type Transfer struct {
	Kind     Kind   `json:"kind"`
	AssetID  uint64 `json:"asset_id,omitempty"`
	Sender   string `json:"sender"`
	Receiver string `json:"receiver"`
	Amount   uint64 `json:"amount"`
}

// Spec is the persisted identity of an asset.
type Spec struct {
	Kind Kind   `json:"kind"`
	ID   uint64 `json:"id,omitempty"`
}

func (s Spec) String() string {
	if s.Kind == KindPayment {
		return "native"
	}
	return fmt.Sprintf("asset:%d", s.ID)
}

// Ref validates and measures transfers of a single pool asset.
type Ref interface {
	Spec() Spec
	ValidateIncoming(tx Transfer, escrow string) error
	IncomingAmount(tx Transfer) uint64
	ValidateOutgoing(tx Transfer, escrow string) error
	OutgoingAmount(tx Transfer) uint64
}

// FromSpec returns the Ref implementation selected by s.
func FromSpec(s Spec) (Ref, error) {
	switch s.Kind {
	case KindPayment:
		return Native{}, nil
	case KindAssetTransfer:
		return Standard{ID: s.ID}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, s.Kind)
	}
}

// Native is the chain's native coin.
type Native struct{}

func (Native) Spec() Spec { return Spec{Kind: KindPayment} }

func (Native) ValidateIncoming(tx Transfer, escrow string) error {
	if tx.Kind != KindPayment {
		return fmt.Errorf("%w: want %s, got %s", ErrWrongKind, KindPayment, tx.Kind)
	}
	if tx.Receiver != escrow {
		return ErrWrongReceiver
	}
	return nil
}

func (Native) IncomingAmount(tx Transfer) uint64 { return tx.Amount }

func (Native) ValidateOutgoing(tx Transfer, escrow string) error {
	if tx.Kind != KindPayment {
		return fmt.Errorf("%w: want %s, got %s", ErrWrongKind, KindPayment, tx.Kind)
	}
	if tx.Sender != escrow {
		return ErrWrongSender
	}
	return nil
}

func (Native) OutgoingAmount(tx Transfer) uint64 { return tx.Amount }

// Standard is an issued asset identified by ID.
type Standard struct {
	ID uint64
}

func (a Standard) Spec() Spec { return Spec{Kind: KindAssetTransfer, ID: a.ID} }

func (a Standard) check(tx Transfer) error {
	if tx.Kind != KindAssetTransfer {
		return fmt.Errorf("%w: want %s, got %s", ErrWrongKind, KindAssetTransfer, tx.Kind)
	}
	if tx.AssetID != a.ID {
		return fmt.Errorf("%w: want %d, got %d", ErrWrongAsset, a.ID, tx.AssetID)
	}
	return nil
}

func (a Standard) ValidateIncoming(tx Transfer, escrow string) error {
	if err := a.check(tx); err != nil {
		return err
	}
	if tx.Receiver != escrow {
		return ErrWrongReceiver
	}
	return nil
}

func (a Standard) IncomingAmount(tx Transfer) uint64 { return tx.Amount }

func (a Standard) ValidateOutgoing(tx Transfer, escrow string) error {
	if err := a.check(tx); err != nil {
		return err
	}
	if tx.Sender != escrow {
		return ErrWrongSender
	}
	return nil
}

func (a Standard) OutgoingAmount(tx Transfer) uint64 { return tx.Amount }
