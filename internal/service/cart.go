// Package service implements the storefront business logic on top of the
// domain stores. Services never touch HTTP; session state is passed in
// explicitly by the handlers.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rhobart/minimart/internal/domain"
	"github.com/rhobart/minimart/internal/session"
)

// CartService provides business logic for the session cart.
type CartService interface {
	// AddItem adds quantity units of a product to the session cart, merging
	// into an existing line. The requested quantity is clamped to live
	// availability, with a flash notice when clamped. The product's name,
	// price and image are cached on the line at add time.
	AddItem(ctx context.Context, sess *session.Session, productID int64, quantity int32) error

	// UpdateItem sets a line's quantity, clamped to live availability.
	// Zero or negative removes the line, as does a product that is no
	// longer available.
	UpdateItem(ctx context.Context, sess *session.Session, productID int64, quantity int32) error

	// RemoveItem drops a line from the cart.
	RemoveItem(ctx context.Context, sess *session.Session, productID int64) error

	// Clear empties the cart.
	Clear(ctx context.Context, sess *session.Session) error

	// Annotate fills each line's Available field with live quantity-on-hand
	// for display. Lines whose product has since been deleted show zero.
	Annotate(ctx context.Context, sess *session.Session) error
}

type cartService struct {
	products domain.ProductStore
	logger   *slog.Logger
}

var _ CartService = (*cartService)(nil)

// NewCartService creates a new CartService instance.
func NewCartService(products domain.ProductStore, logger *slog.Logger) CartService {
	return &cartService{
		products: products,
		logger:   logger.With("service", "cart"),
	}
}

// AddItem adds quantity units of a product to the session cart.
func (s *cartService) AddItem(ctx context.Context, sess *session.Session, productID int64, quantity int32) error {
	if quantity <= 0 {
		quantity = 1
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return err
	}

	available := product.Quantity
	if available <= 0 {
		return domain.ErrOutOfStock
	}

	if quantity > available {
		quantity = available
		sess.Flash(session.SeverityError, fmt.Sprintf("Only %d unit(s) left in stock.", available))
	}

	cart := sess.Cart()
	if line := cart.Find(productID); line != nil {
		merged := line.Quantity + quantity
		if merged > available {
			merged = available
		}
		line.Quantity = merged
	} else {
		cart.Lines = append(cart.Lines, domain.CartLine{
			ProductID: product.ID,
			Name:      product.Name,
			Price:     product.Price,
			Image:     product.Image,
			Quantity:  quantity,
		})
	}
	cart.Recompute()

	s.logger.Debug("item added to cart",
		"product_id", productID,
		"quantity", quantity,
		"item_count", cart.ItemCount())

	return nil
}

// UpdateItem sets a line's quantity, removing the line at zero or below.
func (s *cartService) UpdateItem(ctx context.Context, sess *session.Session, productID int64, quantity int32) error {
	cart := sess.Cart()

	line := cart.Find(productID)
	if line == nil {
		return domain.ErrCartItemNotFound
	}

	if quantity <= 0 {
		cart.Remove(productID)
		cart.Recompute()
		return nil
	}

	product, err := s.products.FindByID(ctx, productID)
	switch {
	case domain.IsCode(err, domain.ENOTFOUND) || (err == nil && product.Quantity <= 0):
		// The product left the catalog or sold out entirely since it was
		// added: drop the line rather than keep an unfulfillable quantity.
		cart.Remove(productID)
		sess.Flash(session.SeverityError, "This product is no longer available.")
	case err != nil:
		return err
	case quantity > product.Quantity:
		line.Quantity = product.Quantity
		sess.Flash(session.SeverityError, fmt.Sprintf("Only %d unit(s) left. Quantity adjusted.", product.Quantity))
	default:
		line.Quantity = quantity
	}
	cart.Recompute()

	return nil
}

// RemoveItem drops a line from the cart.
func (s *cartService) RemoveItem(ctx context.Context, sess *session.Session, productID int64) error {
	cart := sess.Cart()

	if cart.Find(productID) == nil {
		return domain.ErrCartItemNotFound
	}
	cart.Remove(productID)
	cart.Recompute()

	return nil
}

// Clear empties the cart.
func (s *cartService) Clear(ctx context.Context, sess *session.Session) error {
	sess.ClearCart()
	return nil
}

// Annotate fills each line's Available field with live quantity-on-hand.
func (s *cartService) Annotate(ctx context.Context, sess *session.Session) error {
	cart := sess.Cart()

	for i := range cart.Lines {
		product, err := s.products.FindByID(ctx, cart.Lines[i].ProductID)
		if err != nil {
			if domain.IsCode(err, domain.ENOTFOUND) {
				cart.Lines[i].Available = 0
				continue
			}
			return fmt.Errorf("failed to load product %d: %w", cart.Lines[i].ProductID, err)
		}
		cart.Lines[i].Available = product.Quantity
	}
	return nil
}
