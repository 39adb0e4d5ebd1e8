package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"pos_umkm/internal/localstore"
	"pos_umkm/internal/pos"

	"github.com/shopspring/decimal"
)

const cartKey = "session.cart"

var (
	ErrNotInCart  = errors.New("product not in cart")
	ErrBadProduct = errors.New("product id is required")
)

type Line struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

// CartState is the persisted working order. OrderID is set when an existing
// order was loaded back into the cart for editing or payment.
type CartState struct {
	Lines         []Line `json:"lines"`
	OrderID       string `json:"order_id,omitempty"`
	CustomerLabel string `json:"customer_name,omitempty"`
}

func (s CartState) Empty() bool {
	return len(s.Lines) == 0
}

// Items converts the lines into order items owned by orderID.
func (s CartState) Items(orderID string) []pos.OrderItem {
	items := make([]pos.OrderItem, 0, len(s.Lines))
	for _, l := range s.Lines {
		items = append(items, pos.OrderItem{
			OrderID:   orderID,
			ProductID: l.ProductID,
			Name:      l.Name,
			UnitPrice: l.UnitPrice,
			Quantity:  l.Quantity,
		})
	}
	return items
}

type Cart struct {
	mu     sync.Mutex
	store  localstore.Store
	state  CartState
	loaded bool
}

func NewCart(store localstore.Store) *Cart {
	return &Cart{store: store}
}

func (c *Cart) State(ctx context.Context) (CartState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.loadLocked(ctx); err != nil {
		return CartState{}, err
	}
	return c.snapshotLocked(), nil
}

func (c *Cart) Add(ctx context.Context, product pos.Product) error {
	if product.ID == "" {
		return ErrBadProduct
	}
	return c.update(ctx, func(s *CartState) error {
		for i := range s.Lines {
			if s.Lines[i].ProductID == product.ID {
				s.Lines[i].Quantity++
				return nil
			}
		}
		s.Lines = append(s.Lines, Line{
			ProductID: product.ID,
			Name:      product.Name,
			UnitPrice: product.Price,
			Quantity:  1,
		})
		return nil
	})
}

// Adjust changes a line's quantity by delta and drops the line when it
// reaches zero.
func (c *Cart) Adjust(ctx context.Context, productID string, delta int) error {
	return c.update(ctx, func(s *CartState) error {
		for i := range s.Lines {
			if s.Lines[i].ProductID != productID {
				continue
			}
			s.Lines[i].Quantity += delta
			if s.Lines[i].Quantity <= 0 {
				s.Lines = append(s.Lines[:i], s.Lines[i+1:]...)
			}
			return nil
		}
		return fmt.Errorf("%w: %s", ErrNotInCart, productID)
	})
}

func (c *Cart) Remove(ctx context.Context, productID string) error {
	return c.update(ctx, func(s *CartState) error {
		for i := range s.Lines {
			if s.Lines[i].ProductID == productID {
				s.Lines = append(s.Lines[:i], s.Lines[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("%w: %s", ErrNotInCart, productID)
	})
}

func (c *Cart) SetCustomer(ctx context.Context, label string) error {
	return c.update(ctx, func(s *CartState) error {
		s.CustomerLabel = label
		return nil
	})
}

// LoadOrder replaces the cart with an existing order's items.
func (c *Cart) LoadOrder(ctx context.Context, order pos.Order, items []pos.OrderItem) error {
	return c.update(ctx, func(s *CartState) error {
		*s = CartState{OrderID: order.ID, CustomerLabel: order.CustomerLabel}
		for _, item := range items {
			s.Lines = append(s.Lines, Line{
				ProductID: item.ProductID,
				Name:      item.Name,
				UnitPrice: item.UnitPrice,
				Quantity:  item.Quantity,
			})
		}
		return nil
	})
}

func (c *Cart) Clear(ctx context.Context) error {
	return c.update(ctx, func(s *CartState) error {
		*s = CartState{}
		return nil
	})
}

func (c *Cart) update(ctx context.Context, fn func(*CartState) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.loadLocked(ctx); err != nil {
		return err
	}

	next := c.snapshotLocked()
	if err := fn(&next); err != nil {
		return err
	}
	if err := localstore.PutJSON(ctx, c.store, cartKey, next); err != nil {
		return fmt.Errorf("persist cart: %w", err)
	}
	c.state = next
	return nil
}

func (c *Cart) loadLocked(ctx context.Context) error {
	if c.loaded {
		return nil
	}
	if _, err := localstore.GetJSON(ctx, c.store, cartKey, &c.state); err != nil {
		return fmt.Errorf("load cart: %w", err)
	}
	c.loaded = true
	return nil
}

func (c *Cart) snapshotLocked() CartState {
	s := c.state
	s.Lines = append([]Line(nil), c.state.Lines...)
	return s
}
