package payment

import (
	"context"
	"testing"

	"github.com/luxfi/ids"
	"github.com/stretchr/testify/require"
)

func TestNoOpHooksNeverRejects(t *testing.T) {
	var h NoOpHooks
	ctx := context.Background()
	cost, err := h.Cost(ctx, Operation{Kind: ChunkStoreOp, Size: 1 << 20})
	require.NoError(t, err)
	require.Equal(t, Cost(0), cost)
	require.NoError(t, h.Validate(ctx, ids.GenerateTestID(), 999))
	require.NoError(t, h.Debit(ctx, ids.GenerateTestID(), 999))
}

func TestFakeHooksComputesCostFromSize(t *testing.T) {
	h := NewFakeHooks(2, 10)
	cost, err := h.Cost(context.Background(), Operation{Kind: ChunkStoreOp, Size: 100})
	require.NoError(t, err)
	require.Equal(t, Cost(210), cost)
}

func TestFakeHooksDebitRequiresSufficientBalance(t *testing.T) {
	h := NewFakeHooks(1, 0)
	account := ids.GenerateTestID()
	ctx := context.Background()

	require.ErrorIs(t, h.Validate(ctx, account, 50), ErrInsufficientBalance)
	require.ErrorIs(t, h.Debit(ctx, account, 50), ErrInsufficientBalance)

	h.Credit(account, 100)
	require.NoError(t, h.Validate(ctx, account, 50))
	require.NoError(t, h.Debit(ctx, account, 50))
	require.Equal(t, Cost(50), h.Balance(account))
	require.Len(t, h.Debits, 1)
	require.Equal(t, DebitRecord{Account: account, Amount: 50}, h.Debits[0])
}
