package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rl1809/pet-storefront/internal/core/domain"
	"github.com/rl1809/pet-storefront/internal/core/engine"
	"github.com/rl1809/pet-storefront/internal/logger"
)

var (
	ErrInvalidQuantity = errors.New("invalid quantity")
	ErrInvalidItem     = errors.New("invalid cart item")
	ErrInvalidPrice    = errors.New("invalid price")
	ErrClosed          = errors.New("cart service closed")
)

const (
	defaultLoadTimeout = 5 * time.Second
	defaultSaveTimeout = 5 * time.Second
)

type Option func(*CartService)

func WithSaveTimeout(d time.Duration) Option {
	return func(s *CartService) { s.saveTimeout = d }
}

func WithLoadTimeout(d time.Duration) Option {
	return func(s *CartService) { s.loadTimeout = d }
}

// CartService owns the session cart. Every mutation runs the engine under a
// lock, schedules a background save and then notifies subscribers. Callers
// never wait for the save.
type CartService struct {
	persistence *CartPersistence
	log         *logger.Logger
	writer      *snapshotWriter
	loadTimeout time.Duration
	saveTimeout time.Duration

	initOnce sync.Once

	mu     sync.Mutex
	cart   domain.Cart
	closed bool

	// notifyMu is taken before mu is released so subscribers see changes in
	// the order they were applied.
	notifyMu sync.Mutex

	subsMu  sync.Mutex
	subs    map[uint64]func(domain.Cart)
	nextSub uint64
}

func NewCartService(persistence *CartPersistence, log *logger.Logger, opts ...Option) *CartService {
	s := &CartService{
		persistence: persistence,
		log:         log.With("component", "cart_service"),
		loadTimeout: defaultLoadTimeout,
		saveTimeout: defaultSaveTimeout,
		cart:        domain.EmptyCart(),
		subs:        make(map[uint64]func(domain.Cart)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.writer = newSnapshotWriter(persistence, s.saveTimeout)
	return s
}

func (s *CartService) Cart() domain.Cart {
	s.ready()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Clone()
}

func (s *CartService) AddItem(item domain.LineItem, quantity int) (domain.Cart, error) {
	if err := validateAdd(item, quantity); err != nil {
		return domain.Cart{}, err
	}
	return s.dispatch(engine.AddItem{Item: item, Quantity: quantity})
}

// addItemWithin is AddItem with the merged line capped at limit. The check and
// the add happen under one hold of the state lock.
func (s *CartService) addItemWithin(item domain.LineItem, quantity, limit int) (domain.Cart, error) {
	if err := validateAdd(item, quantity); err != nil {
		return domain.Cart{}, err
	}
	return s.dispatchGuarded(engine.AddItem{Item: item, Quantity: quantity}, func(c domain.Cart) error {
		inCart := 0
		if line, found := c.Find(item.ProductID, item.Size); found {
			inCart = line.Quantity
		}
		if inCart+quantity > limit {
			return fmt.Errorf("%w: %d in cart, %d requested, max %d", ErrQuantityExceedsStock, inCart, quantity, limit)
		}
		return nil
	})
}

func validateAdd(item domain.LineItem, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidQuantity, quantity)
	}
	if strings.TrimSpace(item.ProductID) == "" {
		return fmt.Errorf("%w: product id is required", ErrInvalidItem)
	}
	if !item.Size.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidSize, item.Size)
	}
	if item.UnitPrice < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidPrice, item.UnitPrice)
	}
	return nil
}

func (s *CartService) RemoveItem(productID string, size domain.Size) (domain.Cart, error) {
	return s.dispatch(engine.RemoveItem{ProductID: productID, Size: size})
}

// UpdateQuantity removes the line when quantity is zero.
func (s *CartService) UpdateQuantity(productID string, size domain.Size, quantity int) (domain.Cart, error) {
	if quantity < 0 {
		return domain.Cart{}, fmt.Errorf("%w: %d", ErrInvalidQuantity, quantity)
	}
	if quantity == 0 {
		return s.RemoveItem(productID, size)
	}
	return s.dispatch(engine.UpdateQuantity{ProductID: productID, Size: size, Quantity: quantity})
}

func (s *CartService) UpdateSize(productID string, oldSize, newSize domain.Size, newPrice int64) (domain.Cart, error) {
	if !newSize.Valid() {
		return domain.Cart{}, fmt.Errorf("%w: %q", domain.ErrInvalidSize, newSize)
	}
	if newPrice < 0 {
		return domain.Cart{}, fmt.Errorf("%w: %d", ErrInvalidPrice, newPrice)
	}
	return s.dispatch(engine.UpdateSize{ProductID: productID, OldSize: oldSize, NewSize: newSize, NewPrice: newPrice})
}

// updateSizeWithin is UpdateSize with the resulting line, including any line
// it merges into, capped at limit.
func (s *CartService) updateSizeWithin(productID string, oldSize, newSize domain.Size, newPrice int64, limit int) (domain.Cart, error) {
	if !newSize.Valid() {
		return domain.Cart{}, fmt.Errorf("%w: %q", domain.ErrInvalidSize, newSize)
	}
	if newPrice < 0 {
		return domain.Cart{}, fmt.Errorf("%w: %d", ErrInvalidPrice, newPrice)
	}
	cmd := engine.UpdateSize{ProductID: productID, OldSize: oldSize, NewSize: newSize, NewPrice: newPrice}
	return s.dispatchGuarded(cmd, func(c domain.Cart) error {
		if oldSize == newSize {
			return nil
		}
		from, found := c.Find(productID, oldSize)
		if !found {
			return nil
		}
		existing := 0
		if to, found := c.Find(productID, newSize); found {
			existing = to.Quantity
		}
		if from.Quantity+existing > limit {
			return fmt.Errorf("%w: %d %s would join %d %s, max %d", ErrQuantityExceedsStock, from.Quantity, oldSize, existing, newSize, limit)
		}
		return nil
	})
}

func (s *CartService) ClearCart() (domain.Cart, error) {
	return s.dispatch(engine.ClearCart{})
}

// Subscribe registers fn to receive the cart after every change. fn runs on
// the goroutine that issued the command, after the state lock is released,
// and deliveries are serialized in the order the changes were applied. fn
// must not issue cart commands itself.
func (s *CartService) Subscribe(fn func(domain.Cart)) (cancel func()) {
	s.mustBeBuilt()

	s.subsMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subsMu.Lock()
			delete(s.subs, id)
			s.subsMu.Unlock()
		})
	}
}

// Flush waits until the latest scheduled snapshot has been written (or the
// write has failed and been logged).
func (s *CartService) Flush(ctx context.Context) error {
	s.mustBeBuilt()
	return s.writer.flush(ctx)
}

// Close flushes pending writes and stops the writer. Later mutations return
// ErrClosed.
func (s *CartService) Close(ctx context.Context) error {
	s.mustBeBuilt()

	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	if err := s.writer.stop(ctx); err != nil {
		return fmt.Errorf("stop cart writer: %w", err)
	}
	return nil
}

func (s *CartService) dispatch(cmd engine.Command) (domain.Cart, error) {
	return s.dispatchGuarded(cmd, nil)
}

// dispatchGuarded applies cmd unless guard, run against the current cart
// under the state lock, rejects it.
func (s *CartService) dispatchGuarded(cmd engine.Command, guard func(domain.Cart) error) (domain.Cart, error) {
	s.ready()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.Cart{}, ErrClosed
	}
	if guard != nil {
		if err := guard(s.cart); err != nil {
			s.mu.Unlock()
			return domain.Cart{}, err
		}
	}
	s.cart = engine.Apply(s.cart, cmd)
	current := s.cart.Clone()
	s.writer.schedule(current)
	s.notifyMu.Lock()
	s.mu.Unlock()

	s.log.Debug("cart command applied", "command", engine.Name(cmd), "lines", len(current.Lines), "item_count", current.ItemCount, "total", current.Total)
	s.notify(current)
	s.notifyMu.Unlock()
	return current, nil
}

func (s *CartService) notify(cart domain.Cart) {
	s.subsMu.Lock()
	fns := make([]func(domain.Cart), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subsMu.Unlock()

	for _, fn := range fns {
		fn(cart.Clone())
	}
}

// ready rehydrates the cart from the slot on first use.
func (s *CartService) ready() {
	s.mustBeBuilt()
	s.initOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.loadTimeout)
		defer cancel()

		saved, ok := s.persistence.Load(ctx)
		if !ok {
			s.log.Info("starting with empty cart")
			return
		}

		s.mu.Lock()
		s.cart = engine.Apply(s.cart, engine.LoadCart{Snapshot: saved})
		s.mu.Unlock()
		s.log.Info("cart restored", "lines", len(saved.Lines), "item_count", saved.ItemCount)
	})
}

func (s *CartService) mustBeBuilt() {
	if s == nil || s.writer == nil {
		panic("service: CartService used without NewCartService")
	}
}
