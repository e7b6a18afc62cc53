package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/example/ec-cart/internal/domain/cart"
)

const memoryTxAttempts = 3

// MemoryCartStore keeps carts in process. A transaction locks each cart it
// reads, works on a private copy and publishes the copy on commit, so carts
// never block one another and a failed transaction leaves no trace.
type MemoryCartStore struct {
	mu        sync.RWMutex
	carts     map[string]*cartState
	owners    map[string]string
	byProduct map[string]map[string]struct{}
	locks     map[string]chan struct{}
}

type cartState struct {
	cart  cart.Cart
	items map[string]*cart.Item // productID -> item
}

func NewMemoryCartStore() *MemoryCartStore {
	return &MemoryCartStore{
		carts:     make(map[string]*cartState),
		owners:    make(map[string]string),
		byProduct: make(map[string]map[string]struct{}),
		locks:     make(map[string]chan struct{}),
	}
}

func (s *MemoryCartStore) WithTx(ctx context.Context, fn func(tx cart.Tx) error) error {
	var err error
	for attempt := 0; attempt < memoryTxAttempts; attempt++ {
		tx := &memoryTx{store: s, held: map[string]*cartState{}, created: map[string]*cartState{}}
		err = fn(tx)
		if err == nil {
			err = tx.commit()
		}
		tx.release()
		if !errors.Is(err, cart.ErrTxConflict) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return fmt.Errorf("memory store: %w", err)
}

func (s *MemoryCartStore) FindByOwner(_ context.Context, ownerID string) (*cart.Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.owners[ownerID]
	if !ok {
		return nil, cart.ErrRecordNotFound
	}
	return s.carts[id].snapshot(), nil
}

func (s *MemoryCartStore) FindByID(_ context.Context, cartID string) (*cart.Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.carts[cartID]
	if !ok {
		return nil, cart.ErrRecordNotFound
	}
	return st.snapshot(), nil
}

func (s *MemoryCartStore) ListAll(_ context.Context) ([]*cart.Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*cart.Cart, 0, len(s.carts))
	for _, st := range s.carts {
		out = append(out, st.snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryCartStore) CartIDsByProduct(_ context.Context, productID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.byProduct[productID]))
	for id := range s.byProduct[productID] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// lock acquires the per-cart lock, honouring ctx.
func (s *MemoryCartStore) lock(ctx context.Context, cartID string) error {
	s.mu.Lock()
	l, ok := s.locks[cartID]
	if !ok {
		l = make(chan struct{}, 1)
		s.locks[cartID] = l
	}
	s.mu.Unlock()

	select {
	case l <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *MemoryCartStore) unlock(cartID string) {
	s.mu.RLock()
	l := s.locks[cartID]
	s.mu.RUnlock()
	<-l
}

func (st *cartState) snapshot() *cart.Cart {
	c := st.cart
	c.Items = st.sortedItems()
	return &c
}

func (st *cartState) sortedItems() []*cart.Item {
	items := make([]*cart.Item, 0, len(st.items))
	for _, it := range st.items {
		items = append(items, it.Clone())
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].AddedAt.Equal(items[j].AddedAt) {
			return items[i].ProductID < items[j].ProductID
		}
		return items[i].AddedAt.Before(items[j].AddedAt)
	})
	return items
}

func (st *cartState) clone() *cartState {
	cp := &cartState{cart: st.cart, items: make(map[string]*cart.Item, len(st.items))}
	for pid, it := range st.items {
		cp.items[pid] = it.Clone()
	}
	return cp
}

type memoryTx struct {
	store   *MemoryCartStore
	held    map[string]*cartState // locked existing carts, working copies
	created map[string]*cartState // carts first saved in this transaction
}

func (tx *memoryTx) FindByOwner(ctx context.Context, ownerID string) (*cart.Cart, error) {
	for _, states := range []map[string]*cartState{tx.created, tx.held} {
		for _, st := range states {
			if st.cart.OwnerID == ownerID {
				c := st.cart
				return &c, nil
			}
		}
	}
	tx.store.mu.RLock()
	id, ok := tx.store.owners[ownerID]
	tx.store.mu.RUnlock()
	if !ok {
		return nil, cart.ErrRecordNotFound
	}
	return tx.FindByID(ctx, id)
}

func (tx *memoryTx) FindByID(ctx context.Context, cartID string) (*cart.Cart, error) {
	st, err := tx.state(ctx, cartID)
	if err != nil {
		return nil, err
	}
	c := st.cart
	return &c, nil
}

func (tx *memoryTx) FindItem(ctx context.Context, cartID, productID string) (*cart.Item, error) {
	st, err := tx.state(ctx, cartID)
	if err != nil {
		return nil, err
	}
	it, ok := st.items[productID]
	if !ok {
		return nil, cart.ErrRecordNotFound
	}
	return it.Clone(), nil
}

func (tx *memoryTx) Items(ctx context.Context, cartID string) ([]*cart.Item, error) {
	st, err := tx.state(ctx, cartID)
	if err != nil {
		return nil, err
	}
	return st.sortedItems(), nil
}

func (tx *memoryTx) SaveCart(ctx context.Context, c *cart.Cart) error {
	if st, ok := tx.created[c.ID]; ok {
		st.cart = header(c)
		return nil
	}
	st, err := tx.state(ctx, c.ID)
	if errors.Is(err, cart.ErrRecordNotFound) {
		tx.created[c.ID] = &cartState{cart: header(c), items: map[string]*cart.Item{}}
		return nil
	}
	if err != nil {
		return err
	}
	st.cart = header(c)
	return nil
}

func (tx *memoryTx) SaveItem(ctx context.Context, it *cart.Item) error {
	st, err := tx.state(ctx, it.CartID)
	if err != nil {
		return err
	}
	if existing, ok := st.items[it.ProductID]; ok && existing.ID != it.ID {
		return cart.ErrDuplicateRecord
	}
	st.items[it.ProductID] = it.Clone()
	return nil
}

func (tx *memoryTx) DeleteItem(_ context.Context, itemID string) error {
	for _, states := range []map[string]*cartState{tx.created, tx.held} {
		for _, st := range states {
			for pid, it := range st.items {
				if it.ID == itemID {
					delete(st.items, pid)
					return nil
				}
			}
		}
	}
	return cart.ErrRecordNotFound
}

func (tx *memoryTx) DeleteAllItems(ctx context.Context, cartID string) error {
	st, err := tx.state(ctx, cartID)
	if err != nil {
		return err
	}
	st.items = map[string]*cart.Item{}
	return nil
}

// state returns the working copy of cartID, locking it on first access.
func (tx *memoryTx) state(ctx context.Context, cartID string) (*cartState, error) {
	if st, ok := tx.created[cartID]; ok {
		return st, nil
	}
	if st, ok := tx.held[cartID]; ok {
		return st, nil
	}

	tx.store.mu.RLock()
	_, exists := tx.store.carts[cartID]
	tx.store.mu.RUnlock()
	if !exists {
		return nil, cart.ErrRecordNotFound
	}

	if err := tx.store.lock(ctx, cartID); err != nil {
		return nil, err
	}
	tx.store.mu.RLock()
	st := tx.store.carts[cartID].clone()
	tx.store.mu.RUnlock()
	tx.held[cartID] = st
	return st, nil
}

func (tx *memoryTx) commit() error {
	s := tx.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, st := range tx.created {
		if _, taken := s.owners[st.cart.OwnerID]; taken {
			return cart.ErrTxConflict
		}
	}
	for id, st := range tx.created {
		s.owners[st.cart.OwnerID] = id
		s.publish(id, st)
	}
	for id, st := range tx.held {
		s.publish(id, st)
	}
	return nil
}

// publish installs st as the committed state of cartID and refreshes the
// product index. Callers hold s.mu.
func (s *MemoryCartStore) publish(cartID string, st *cartState) {
	if old, ok := s.carts[cartID]; ok {
		for pid := range old.items {
			if _, still := st.items[pid]; !still {
				delete(s.byProduct[pid], cartID)
				if len(s.byProduct[pid]) == 0 {
					delete(s.byProduct, pid)
				}
			}
		}
	}
	for pid := range st.items {
		if s.byProduct[pid] == nil {
			s.byProduct[pid] = make(map[string]struct{})
		}
		s.byProduct[pid][cartID] = struct{}{}
	}
	s.carts[cartID] = st
}

func (tx *memoryTx) release() {
	for id := range tx.held {
		tx.store.unlock(id)
	}
}

func header(c *cart.Cart) cart.Cart {
	h := *c
	h.Items = nil
	return h
}
