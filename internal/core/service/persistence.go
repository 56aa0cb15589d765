package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/rl1809/pet-storefront/internal/core/domain"
	"github.com/rl1809/pet-storefront/internal/logger"
	"github.com/rl1809/pet-storefront/internal/port"
)

const DefaultSlotKey = "djurshop-cart"

var tracer = otel.Tracer("github.com/rl1809/pet-storefront/internal/core/service")

var ErrMalformedSnapshot = errors.New("malformed cart snapshot")

// snapshot is the wire shape of a persisted cart. Field names follow the
// storefront's original client-side format so existing slots stay readable.
type snapshot struct {
	Items     []snapshotLine `json:"items"`
	Total     *int64         `json:"total"`
	ItemCount *int           `json:"itemCount"`
}

type snapshotLine struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	Size     string `json:"size"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
	ImageURL string `json:"imageUrl"`
}

// CartPersistence reads and writes the cart snapshot in one named slot.
// Neither direction ever fails the caller: write errors are logged and
// returned for inspection, read problems degrade to "no saved cart".
type CartPersistence struct {
	slot    port.CartSlot
	key     string
	log     *logger.Logger
	breaker *gobreaker.CircuitBreaker[struct{}]
}

func NewCartPersistence(slot port.CartSlot, key string, log *logger.Logger) *CartPersistence {
	if key == "" {
		key = DefaultSlotKey
	}
	p := &CartPersistence{
		slot: slot,
		key:  key,
		log:  log.With("component", "cart_persistence", "slot", key),
	}
	p.breaker = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "cart-slot-" + key,
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			p.log.Warn("cart slot breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return p
}

func (p *CartPersistence) Key() string {
	return p.key
}

func (p *CartPersistence) Save(ctx context.Context, cart domain.Cart) error {
	ctx, span := tracer.Start(ctx, "cart.save")
	defer span.End()
	span.SetAttributes(attribute.Int("cart.lines", len(cart.Lines)), attribute.Int("cart.item_count", cart.ItemCount))

	data, err := encodeSnapshot(cart)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		p.log.Error("encode cart snapshot failed", "error", err)
		return err
	}

	_, err = p.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, p.slot.Put(ctx, p.key, data)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "slot write failed")
		p.log.Warn("cart snapshot not saved, keeping in-memory state", "error", err, "items", cart.ItemCount)
		return fmt.Errorf("save cart snapshot: %w", err)
	}
	return nil
}

// Load reports false when there is no usable snapshot. A corrupt snapshot is
// deleted from the slot.
func (p *CartPersistence) Load(ctx context.Context) (domain.Cart, bool) {
	ctx, span := tracer.Start(ctx, "cart.load")
	defer span.End()

	data, err := p.slot.Get(ctx, p.key)
	if errors.Is(err, port.ErrSlotEmpty) {
		return domain.Cart{}, false
	}
	if err != nil {
		p.log.Error("read cart snapshot failed, starting empty", "error", err)
		return domain.Cart{}, false
	}

	cart, err := decodeSnapshot(data)
	if err != nil {
		p.log.Warn("discarding corrupt cart snapshot", "error", err, "bytes", len(data))
		if err := p.slot.Delete(ctx, p.key); err != nil {
			p.log.Warn("delete corrupt cart snapshot failed", "error", err)
		}
		return domain.Cart{}, false
	}
	return cart, true
}

func encodeSnapshot(cart domain.Cart) ([]byte, error) {
	items := make([]snapshotLine, 0, len(cart.Lines))
	for _, l := range cart.Lines {
		items = append(items, snapshotLine{
			ID:       l.ProductID,
			Name:     l.ProductName,
			Slug:     l.Slug,
			Size:     string(l.Size),
			Price:    l.UnitPrice,
			Quantity: l.Quantity,
			ImageURL: l.ImageURL,
		})
	}
	total, count := cart.Total, cart.ItemCount
	return json.Marshal(snapshot{Items: items, Total: &total, ItemCount: &count})
}

func decodeSnapshot(data []byte) (domain.Cart, error) {
	var s snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return domain.Cart{}, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	if s.Items == nil || s.Total == nil || s.ItemCount == nil {
		return domain.Cart{}, fmt.Errorf("%w: items, total and itemCount are required", ErrMalformedSnapshot)
	}
	if *s.Total < 0 || *s.ItemCount < 0 {
		return domain.Cart{}, fmt.Errorf("%w: negative totals", ErrMalformedSnapshot)
	}

	lines := make([]domain.CartLine, 0, len(s.Items))
	for i, it := range s.Items {
		size := domain.Size(it.Size)
		switch {
		case it.ID == "":
			return domain.Cart{}, fmt.Errorf("%w: item %d has no id", ErrMalformedSnapshot, i)
		case !size.Valid():
			return domain.Cart{}, fmt.Errorf("%w: item %d has size %q", ErrMalformedSnapshot, i, it.Size)
		case it.Quantity < 1:
			return domain.Cart{}, fmt.Errorf("%w: item %d has quantity %d", ErrMalformedSnapshot, i, it.Quantity)
		case it.Price < 0:
			return domain.Cart{}, fmt.Errorf("%w: item %d has negative price", ErrMalformedSnapshot, i)
		}
		lines = append(lines, domain.CartLine{
			ProductID:   it.ID,
			ProductName: it.Name,
			Slug:        it.Slug,
			ImageURL:    it.ImageURL,
			Size:        size,
			UnitPrice:   it.Price,
			Quantity:    it.Quantity,
		})
	}

	return domain.Cart{Lines: lines, Total: *s.Total, ItemCount: *s.ItemCount}, nil
}
