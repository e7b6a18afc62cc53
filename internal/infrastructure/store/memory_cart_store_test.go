package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/ec-cart/internal/domain/cart"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCart(id, owner string) *cart.Cart {
	now := time.Now().UTC()
	return &cart.Cart{ID: id, OwnerID: owner, TotalPrice: decimal.Zero, CreatedAt: now, UpdatedAt: now}
}

func newTestItem(id, cartID, productID string, qty int, price string) *cart.Item {
	now := time.Now().UTC()
	return &cart.Item{
		ID:                id,
		CartID:            cartID,
		ProductID:         productID,
		ProductName:       "Product " + productID,
		Quantity:          qty,
		CapturedUnitPrice: decimal.RequireFromString(price),
		CapturedDiscount:  decimal.Zero,
		AddedAt:           now,
		UpdatedAt:         now,
	}
}

func TestMemoryCartStore_CommitPublishesAndIndexes(t *testing.T) {
	s := NewMemoryCartStore()
	ctx := context.Background()

	err := s.WithTx(ctx, func(tx cart.Tx) error {
		c := newTestCart("c1", "owner-1")
		c.TotalPrice = decimal.RequireFromString("30")
		require.NoError(t, tx.SaveCart(ctx, c))
		require.NoError(t, tx.SaveItem(ctx, newTestItem("i1", "c1", "p1", 2, "10")))
		return tx.SaveItem(ctx, newTestItem("i2", "c1", "p2", 1, "10"))
	})
	require.NoError(t, err)

	c, err := s.FindByOwner(ctx, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, "c1", c.ID)
	assert.Len(t, c.Items, 2)

	ids, err := s.CartIDsByProduct(ctx, "p2")
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, ids)
}

func TestMemoryCartStore_FailedTxLeavesNoTrace(t *testing.T) {
	s := NewMemoryCartStore()
	ctx := context.Background()
	require.NoError(t, s.WithTx(ctx, func(tx cart.Tx) error {
		require.NoError(t, tx.SaveCart(ctx, newTestCart("c1", "owner-1")))
		return tx.SaveItem(ctx, newTestItem("i1", "c1", "p1", 1, "5"))
	}))

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(tx cart.Tx) error {
		require.NoError(t, tx.DeleteAllItems(ctx, "c1"))
		require.NoError(t, tx.SaveItem(ctx, newTestItem("i2", "c1", "p9", 1, "5")))
		require.NoError(t, tx.SaveCart(ctx, newTestCart("c2", "owner-2")))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	c, err := s.FindByID(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, "p1", c.Items[0].ProductID)
	_, err = s.FindByOwner(ctx, "owner-2")
	assert.ErrorIs(t, err, cart.ErrRecordNotFound)
	ids, _ := s.CartIDsByProduct(ctx, "p9")
	assert.Empty(t, ids)
}

func TestMemoryCartStore_DuplicateProductInCart(t *testing.T) {
	s := NewMemoryCartStore()
	ctx := context.Background()

	err := s.WithTx(ctx, func(tx cart.Tx) error {
		require.NoError(t, tx.SaveCart(ctx, newTestCart("c1", "owner-1")))
		require.NoError(t, tx.SaveItem(ctx, newTestItem("i1", "c1", "p1", 1, "5")))
		return tx.SaveItem(ctx, newTestItem("i2", "c1", "p1", 1, "5"))
	})

	assert.ErrorIs(t, err, cart.ErrDuplicateRecord)
	_, err = s.FindByID(ctx, "c1")
	assert.ErrorIs(t, err, cart.ErrRecordNotFound)
}

func TestMemoryCartStore_OwnerConflictRetries(t *testing.T) {
	s := NewMemoryCartStore()
	ctx := context.Background()

	attempts := 0
	err := s.WithTx(ctx, func(tx cart.Tx) error {
		attempts++
		if _, err := tx.FindByOwner(ctx, "owner-1"); err == nil {
			return nil
		}
		if attempts == 1 {
			// A competing transaction creates the owner's cart first.
			require.NoError(t, s.WithTx(ctx, func(other cart.Tx) error {
				return other.SaveCart(ctx, newTestCart("winner", "owner-1"))
			}))
		}
		return tx.SaveCart(ctx, newTestCart("loser", "owner-1"))
	})

	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	c, err := s.FindByOwner(ctx, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, "winner", c.ID)
	_, err = s.FindByID(ctx, "loser")
	assert.ErrorIs(t, err, cart.ErrRecordNotFound)
}

func TestMemoryCartStore_LockHonoursContext(t *testing.T) {
	s := NewMemoryCartStore()
	ctx := context.Background()
	require.NoError(t, s.WithTx(ctx, func(tx cart.Tx) error {
		return tx.SaveCart(ctx, newTestCart("c1", "owner-1"))
	}))

	held := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- s.WithTx(ctx, func(tx cart.Tx) error {
			if _, err := tx.FindByID(ctx, "c1"); err != nil {
				return err
			}
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	waitCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	err := s.WithTx(waitCtx, func(tx cart.Tx) error {
		_, err := tx.FindByID(waitCtx, "c1")
		return err
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	require.NoError(t, <-done)
}

func TestMemoryCartStore_DeleteItemUpdatesIndex(t *testing.T) {
	s := NewMemoryCartStore()
	ctx := context.Background()
	require.NoError(t, s.WithTx(ctx, func(tx cart.Tx) error {
		require.NoError(t, tx.SaveCart(ctx, newTestCart("c1", "owner-1")))
		return tx.SaveItem(ctx, newTestItem("i1", "c1", "p1", 1, "5"))
	}))

	require.NoError(t, s.WithTx(ctx, func(tx cart.Tx) error {
		if _, err := tx.FindByID(ctx, "c1"); err != nil {
			return err
		}
		return tx.DeleteItem(ctx, "i1")
	}))

	ids, err := s.CartIDsByProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Empty(t, ids)

	err = s.WithTx(ctx, func(tx cart.Tx) error {
		return tx.DeleteItem(ctx, "i1")
	})
	assert.ErrorIs(t, err, cart.ErrRecordNotFound)
}

func TestMemoryCartStore_ReadsAreCopies(t *testing.T) {
	s := NewMemoryCartStore()
	ctx := context.Background()
	require.NoError(t, s.WithTx(ctx, func(tx cart.Tx) error {
		require.NoError(t, tx.SaveCart(ctx, newTestCart("c1", "owner-1")))
		return tx.SaveItem(ctx, newTestItem("i1", "c1", "p1", 1, "5"))
	}))

	c, err := s.FindByID(ctx, "c1")
	require.NoError(t, err)
	c.Items[0].Quantity = 99

	again, err := s.FindByID(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 1, again.Items[0].Quantity)
}
