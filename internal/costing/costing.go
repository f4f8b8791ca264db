// Package costing computes ingredient-based costs of goods sold (CMV) over
// paid orders. It is a pure calculation layer: callers load the relevant
// rows and pass them in as plain values, so the math is testable without a
// database.
package costing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/salgadospro/api/internal/database"
)

// DefaultCMVPercent is the fallback cost percentage applied to an order's
// total when none of its products carry a composition.
const DefaultCMVPercent = 35

// Ingredient carries the unit cost used for composition-based costing.
type Ingredient struct {
	ID       uuid.UUID
	UnitCost decimal.Decimal
}

// CompositionEntry is one ingredient line of a product's bill of materials.
type CompositionEntry struct {
	IngredientID    uuid.UUID
	QuantityPerUnit decimal.Decimal
}

// Product pairs a product id with its composition. An empty Composition
// means the product has no bill of materials.
type Product struct {
	ID          uuid.UUID
	Composition []CompositionEntry
}

// OrderLine is one item of an order, as relevant to costing.
type OrderLine struct {
	ProductID uuid.UUID
	Quantity  int64
}

// Order is the costing view of an order.
type Order struct {
	ID          uuid.UUID
	Status      database.OrderStatus
	TotalAmount decimal.Decimal
	Lines       []OrderLine
}

// ResolveLineCost computes the ingredient cost of a single order line.
// The second return value reports whether the line's product has a
// composition at all; when false the caller should fall back to
// percentage-based estimation. Composition entries whose ingredient no
// longer exists contribute zero.
func ResolveLineCost(line OrderLine, products map[uuid.UUID]Product, ingredients map[uuid.UUID]Ingredient) (decimal.Decimal, bool) {
	product, ok := products[line.ProductID]
	if !ok || len(product.Composition) == 0 {
		return decimal.Zero, false
	}

	unitCost := decimal.Zero
	for _, entry := range product.Composition {
		ingredient, ok := ingredients[entry.IngredientID]
		if !ok {
			continue
		}
		unitCost = unitCost.Add(entry.QuantityPerUnit.Mul(ingredient.UnitCost))
	}

	return unitCost.Mul(decimal.NewFromInt(line.Quantity)), true
}

// CalculateCMV sums the cost of goods sold across the given orders. Only
// PAID and DELIVERED orders count. Each order is costed from its products'
// compositions; an order where no line has a composition is estimated as
// cmvPercent of its total instead. The result is rounded to 2 decimals
// once, at the end.
func CalculateCMV(orders []Order, products map[uuid.UUID]Product, ingredients map[uuid.UUID]Ingredient, cmvPercent decimal.Decimal) decimal.Decimal {
	total := decimal.Zero

	for _, order := range orders {
		if order.Status != database.OrderStatusPAID && order.Status != database.OrderStatusDELIVERED {
			continue
		}

		orderCost := decimal.Zero
		anyComposed := false
		for _, line := range order.Lines {
			cost, composed := ResolveLineCost(line, products, ingredients)
			if composed {
				anyComposed = true
				orderCost = orderCost.Add(cost)
			}
		}

		if !anyComposed {
			orderCost = order.TotalAmount.Mul(cmvPercent).Div(decimal.NewFromInt(100))
		}

		total = total.Add(orderCost)
	}

	return total.Round(2)
}
