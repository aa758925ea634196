package domain

import "github.com/shopspring/decimal"

var (
	ErrCartEmpty        = &Error{Code: EINVALID, Message: "Your cart is empty"}
	ErrCartItemNotFound = &Error{Code: ENOTFOUND, Message: "Item not found in cart"}
)

// TaxRate is the flat storefront tax rate applied to the cart subtotal.
var TaxRate = decimal.NewFromFloat(0.08)

// CartLine is one line of a session cart. Name, Price and Image are cached
// at add time and never re-fetched: the price is locked in when the item
// enters the cart. Available is a view-time annotation only.
type CartLine struct {
	ProductID int64
	Name      string
	Price     decimal.Decimal
	Image     string
	Quantity  int32

	// Available is the live quantity-on-hand, populated for display when
	// the cart is viewed. It is never persisted.
	Available int32
}

// Subtotal returns price × quantity for this line, on the cached price.
func (l CartLine) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt32(l.Quantity))
}

// Totals is the derived money summary of a cart.
type Totals struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// Cart is an ordered sequence of lines, unique by product id, owned
// exclusively by one session. Totals are always derived, never hand-patched.
type Cart struct {
	Lines  []CartLine
	Totals Totals
}

// NewCart returns an empty cart with zeroed totals.
func NewCart() *Cart {
	c := &Cart{}
	c.Recompute()
	return c
}

// Find returns the line for a product id, or nil.
func (c *Cart) Find(productID int64) *CartLine {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			return &c.Lines[i]
		}
	}
	return nil
}

// Remove drops the line for a product id, if present.
func (c *Cart) Remove(productID int64) {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
			return
		}
	}
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// ItemCount returns the total unit count across all lines.
func (c *Cart) ItemCount() int32 {
	var n int32
	for _, l := range c.Lines {
		n += l.Quantity
	}
	return n
}

// Recompute rebuilds Totals from the lines. Subtotal sums the cached line
// prices; tax is rounded to 2dp once, after summation, not per line.
func (c *Cart) Recompute() {
	subtotal := decimal.Zero
	for _, l := range c.Lines {
		subtotal = subtotal.Add(l.Subtotal())
	}
	tax := subtotal.Mul(TaxRate).Round(2)
	c.Totals = Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal.Add(tax),
	}
}
