// Package payment defines the opaque cost/validate/debit hooks the
// dispatcher's payment duty calls through (spec §4, "Payment/transfer
// interface"). The actual AT2-style transfer actor is out of scope; this
// package only describes the boundary and a deterministic test double.
package payment

import (
	"context"
	"errors"
	"sync"

	"github.com/luxfi/ids"
)

// Cost is an opaque unit of account. Its real-world denomination is a
// decision for the transfer actor, not this interface.
type Cost uint64

// OperationKind narrows the chargeable operations the payment elder duty
// sees.
type OperationKind int

const (
	// ChunkStoreOp charges for storing a new chunk.
	ChunkStoreOp OperationKind = iota
	// ChunkDeleteOp charges for (or refunds) deleting a chunk.
	ChunkDeleteOp
	// QueryOp charges for a data query.
	QueryOp
)

// Operation describes one chargeable request: its kind and the size in
// bytes of the payload it concerns.
type Operation struct {
	Kind OperationKind
	Size uint64
}

// ErrInsufficientBalance is returned by Validate/Debit when an account
// cannot cover the requested amount.
var ErrInsufficientBalance = errors.New("payment: insufficient balance")

// Hooks is the boundary the dispatcher's payment-elder duty calls
// through: compute a cost, check an account can afford it, and commit the
// debit. Implementations own all transfer-actor and ledger concerns.
type Hooks interface {
	// Cost returns the charge for op.
	Cost(ctx context.Context, op Operation) (Cost, error)
	// Validate reports whether account can currently afford amount,
	// without committing anything.
	Validate(ctx context.Context, account ids.ID, amount Cost) error
	// Debit commits the charge of amount against account.
	Debit(ctx context.Context, account ids.ID, amount Cost) error
}

// NoOpHooks is a Hooks that charges nothing and never rejects. Useful
// for sections that run without payment enforcement.
type NoOpHooks struct{}

func (NoOpHooks) Cost(context.Context, Operation) (Cost, error)          { return 0, nil }
func (NoOpHooks) Validate(context.Context, ids.ID, Cost) error           { return nil }
func (NoOpHooks) Debit(context.Context, ids.ID, Cost) error              { return nil }

// FakeHooks is a deterministic, in-memory Hooks for tests: cost is a
// fixed rate per byte plus a fixed rate per operation, and debits are
// tracked against per-account balances that callers seed directly.
type FakeHooks struct {
	CostPerByte Cost
	FlatCost    Cost

	mu       sync.Mutex
	balances map[ids.ID]Cost
	Debits   []DebitRecord
}

// DebitRecord is one committed charge, recorded for test assertions.
type DebitRecord struct {
	Account ids.ID
	Amount  Cost
}

// NewFakeHooks returns a FakeHooks with no seeded balances.
func NewFakeHooks(costPerByte, flatCost Cost) *FakeHooks {
	return &FakeHooks{
		CostPerByte: costPerByte,
		FlatCost:    flatCost,
		balances:    make(map[ids.ID]Cost),
	}
}

// Credit seeds account's balance, simulating a prior successful deposit.
func (f *FakeHooks) Credit(account ids.ID, amount Cost) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balances[account] += amount
}

// Balance returns account's current balance.
func (f *FakeHooks) Balance(account ids.ID) Cost {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balances[account]
}

// Cost implements Hooks.
func (f *FakeHooks) Cost(_ context.Context, op Operation) (Cost, error) {
	return f.FlatCost + Cost(op.Size)*f.CostPerByte, nil
}

// Validate implements Hooks.
func (f *FakeHooks) Validate(_ context.Context, account ids.ID, amount Cost) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.balances[account] < amount {
		return ErrInsufficientBalance
	}
	return nil
}

// Debit implements Hooks.
func (f *FakeHooks) Debit(_ context.Context, account ids.ID, amount Cost) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.balances[account] < amount {
		return ErrInsufficientBalance
	}
	f.balances[account] -= amount
	f.Debits = append(f.Debits, DebitRecord{Account: account, Amount: amount})
	return nil
}
