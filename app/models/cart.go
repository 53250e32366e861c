package models

import (
	"github.com/shopspring/decimal"

	"github.com/yellowrose/possrv/pkg/collection"
)

// PointsPerUnit is how many currency units earn one previewed loyalty point.
const PointsPerUnit = 10

// CartLine is a product snapshot with the quantity being sold. Quantity is
// always at least 1; a line is removed rather than zeroed.
type CartLine struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// Subtotal is price × quantity.
func (l CartLine) Subtotal() float64 {
	return l.subtotal().InexactFloat64()
}

func (l CartLine) subtotal() decimal.Decimal {
	return decimal.NewFromFloat(l.Product.Price).Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart is the in-progress sale. Lines are unique by product id and keep
// insertion order.
type Cart struct {
	Lines []CartLine `json:"lines"`
}

// Add increments the line for p or appends a new line with quantity 1.
func (c *Cart) Add(p Product) {
	if i := c.index(p.ProductID); i >= 0 {
		c.Lines[i].Quantity++
		return
	}
	c.Lines = append(c.Lines, CartLine{Product: p, Quantity: 1})
}

// Update sets the quantity of productID. A quantity of zero or below removes
// the line. Unknown ids are ignored.
func (c *Cart) Update(productID, quantity int) {
	i := c.index(productID)
	switch {
	case i < 0:
	case quantity <= 0:
		c.Lines = collection.Filter(c.Lines, func(l CartLine) bool { return l.Product.ProductID != productID })
	default:
		c.Lines[i].Quantity = quantity
	}
}

// Line returns the line for productID.
func (c *Cart) Line(productID int) (CartLine, bool) {
	return collection.First(c.Lines, func(l CartLine) bool { return l.Product.ProductID == productID })
}

// Total is the sum of line subtotals.
func (c *Cart) Total() float64 {
	return c.total().InexactFloat64()
}

// Points previews the loyalty points for the current total.
func (c *Cart) Points() int {
	return int(c.total().Div(decimal.NewFromInt(PointsPerUnit)).Floor().IntPart())
}

func (c *Cart) total() decimal.Decimal {
	return collection.Reduce(c.Lines, decimal.Zero, func(sum decimal.Decimal, l CartLine) decimal.Decimal {
		return sum.Add(l.subtotal())
	})
}

// Empty reports whether the cart has no lines.
func (c *Cart) Empty() bool { return len(c.Lines) == 0 }

// Clear removes every line.
func (c *Cart) Clear() { c.Lines = nil }

// Items converts the lines to the sale payload.
func (c *Cart) Items() []SaleItem {
	return collection.Map(c.Lines, func(l CartLine) SaleItem {
		return SaleItem{
			ProductID: l.Product.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.Product.Price,
		}
	})
}

func (c *Cart) index(productID int) int {
	return collection.Index(c.Lines, func(l CartLine) bool { return l.Product.ProductID == productID })
}
