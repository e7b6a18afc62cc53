package cart

import "context"

// Store is the durable home of carts and their items. Every mutating engine
// operation runs inside a single WithTx call.
type Store interface {
	// WithTx runs fn atomically. fn may be invoked again when the store
	// detects a conflicting concurrent transaction, so it must not have side
	// effects outside tx.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	FindByOwner(ctx context.Context, ownerID string) (*Cart, error)
	FindByID(ctx context.Context, cartID string) (*Cart, error)
	ListAll(ctx context.Context) ([]*Cart, error)

	// CartIDsByProduct returns the carts currently holding productID.
	CartIDsByProduct(ctx context.Context, productID string) ([]string, error)
}

// Tx is a transaction scoped to the carts it reads. FindByOwner and FindByID
// lock the cart until the transaction ends and return it without items.
type Tx interface {
	FindByOwner(ctx context.Context, ownerID string) (*Cart, error)
	FindByID(ctx context.Context, cartID string) (*Cart, error)
	FindItem(ctx context.Context, cartID, productID string) (*Item, error)
	Items(ctx context.Context, cartID string) ([]*Item, error)
	SaveCart(ctx context.Context, c *Cart) error
	SaveItem(ctx context.Context, it *Item) error
	DeleteItem(ctx context.Context, itemID string) error
	DeleteAllItems(ctx context.Context, cartID string) error
}
